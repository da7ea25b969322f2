// Package notifier posts reports to Telegram channels.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Post(ctx context.Context, text string) error
}

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	sender   Sender
	channels []string
	logger   *logrus.Entry
}

func NewTelegram(token string, channels []string, logger *logrus.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	logger.Infof("Authorized on Telegram as @%s", bot.Self.UserName)
	return NewTelegramWithSender(bot, channels, logger), nil
}

func NewTelegramWithSender(sender Sender, channels []string, logger *logrus.Logger) *Telegram {
	return &Telegram{
		sender:   sender,
		channels: channels,
		logger:   logger.WithField("component", "notifier"),
	}
}

// Post sends text to every channel. A failing channel is logged and does
// not stop the others; the joined error is returned.
func (t *Telegram) Post(ctx context.Context, text string) error {
	var errs []error
	for _, channel := range t.channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := message(channel, text)
		msg.DisableWebPagePreview = true
		if _, err := t.sender.Send(msg); err != nil {
			t.logger.WithField("channel", channel).Warnf("Failed to post report: %v", err)
			errs = append(errs, fmt.Errorf("%s: %w", channel, err))
			continue
		}
		t.logger.WithField("channel", channel).Debug("Report posted")
	}
	return errors.Join(errs...)
}

// message addresses numeric chat ids directly and everything else as a
// public channel username.
func message(channel, text string) tgbotapi.MessageConfig {
	channel = strings.TrimSpace(channel)
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return tgbotapi.NewMessageToChannel(channel, text)
}
