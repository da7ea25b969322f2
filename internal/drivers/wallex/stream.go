package wallex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/models"
)

const (
	WebSocketURL = "wss://api.wallex.ir/ws"

	// StreamFreshness bounds how old a streamed side may be before REST is used.
	StreamFreshness = 30 * time.Second
)

type bookSide struct {
	price float64
	at    time.Time
}

// Stream keeps the best bid and ask of USDTTMN from the depth channels.
type Stream struct {
	worker *crawler.WebSocketWorker
	logger *logrus.Entry

	mu  sync.RWMutex
	bid bookSide
	ask bookSide
}

func NewStream(url string, logger *logrus.Logger) *Stream {
	if url == "" {
		url = WebSocketURL
	}
	s := &Stream{logger: logger.WithField("worker", "wallex-stream")}
	s.worker = crawler.NewWebSocketWorker(crawler.DefaultWebSocketConfig(url), s.logger)
	s.worker.OnSubscribe = subscribe
	s.worker.OnMessage = func(message []byte) error {
		return s.handleMessage(message, time.Now())
	}
	return s
}

func (s *Stream) Name() string { return "wallex-stream" }

// Run blocks until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	channels := []string{Market + "@buyDepth", Market + "@sellDepth"}
	s.worker.RunWorker(ctx, channels, nil)
	return nil
}

// Latest returns an observation when both sides were seen within StreamFreshness.
func (s *Stream) Latest(now time.Time) (models.TetherObservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bid.price <= 0 || s.ask.price <= 0 {
		return models.TetherObservation{}, false
	}
	if now.Sub(s.bid.at) > StreamFreshness || now.Sub(s.ask.at) > StreamFreshness {
		return models.TetherObservation{}, false
	}

	observedAt := s.bid.at
	if s.ask.at.Before(observedAt) {
		observedAt = s.ask.at
	}
	return models.TetherObservation{
		Vendor:     Name,
		Bid:        s.bid.price,
		Ask:        s.ask.price,
		ObservedAt: observedAt,
	}, true
}

func subscribe(conn *websocket.Conn, channels []string) error {
	for _, channel := range channels {
		msg := []any{"subscribe", map[string]string{"channel": channel}}
		conn.SetWriteDeadline(time.Now().Add(crawler.WriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", channel, err)
		}
	}
	return nil
}

// handleMessage accepts frames shaped like
// ["USDTTMN@buyDepth", [{"price": "102000", "quantity": 12.5}, ...]].
func (s *Stream) handleMessage(message []byte, at time.Time) error {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	if len(frame) < 2 {
		return fmt.Errorf("short frame")
	}

	var channel string
	if err := json.Unmarshal(frame[0], &channel); err != nil {
		return fmt.Errorf("decode channel: %w", err)
	}

	var levels []any
	if err := json.Unmarshal(frame[1], &levels); err != nil {
		return fmt.Errorf("decode levels: %w", err)
	}
	price, ok := crawler.FirstLevelPrice(levels)
	if !ok {
		return fmt.Errorf("no price level on %s", channel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.HasSuffix(channel, "@buyDepth"):
		s.bid = bookSide{price: price, at: at}
	case strings.HasSuffix(channel, "@sellDepth"):
		s.ask = bookSide{price: price, at: at}
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
	return nil
}
