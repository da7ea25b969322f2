package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketConfig holds WebSocket-specific configuration
type WebSocketConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	PongTimeout      time.Duration
}

// DefaultWebSocketConfig returns a default WebSocket configuration
func DefaultWebSocketConfig(wsURL string) *WebSocketConfig {
	return &WebSocketConfig{
		URL:              wsURL,
		HandshakeTimeout: HandshakeTimeout,
		ReadTimeout:      ReadTimeout,
		WriteTimeout:     WriteTimeout,
		PingInterval:     PingInterval,
		PongTimeout:      PongTimeout,
	}
}

// WebSocketWorker keeps one subscription alive and hands every message to
// OnMessage. It reconnects with exponential backoff until ctx is done.
type WebSocketWorker struct {
	Config      *WebSocketConfig
	Logger      *logrus.Entry
	OnSubscribe func(conn *websocket.Conn, channels []string) error
	OnMessage   func(message []byte) error
}

func NewWebSocketWorker(config *WebSocketConfig, logger *logrus.Entry) *WebSocketWorker {
	return &WebSocketWorker{
		Config: config,
		Logger: logger,
	}
}

// RunWorker blocks until ctx is cancelled.
func (bw *WebSocketWorker) RunWorker(ctx context.Context, channels []string, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	reconnectDelay := InitialReconnectDelay
	consecutiveErrors := 0

	for {
		select {
		case <-ctx.Done():
			bw.Logger.Info("Shutting down websocket worker")
			return
		default:
		}

		err := bw.HandleConnection(ctx, channels)
		if err == nil {
			consecutiveErrors = 0
			reconnectDelay = InitialReconnectDelay
			continue
		}

		consecutiveErrors++
		bw.Logger.Errorf("WebSocket error (%d/%d): %v. Reconnecting in %v...",
			consecutiveErrors, MaxConsecutiveErrors, err, reconnectDelay)

		if reconnectDelay < MaxReconnectDelay {
			reconnectDelay *= 2
			if reconnectDelay > MaxReconnectDelay {
				reconnectDelay = MaxReconnectDelay
			}
		}
		if consecutiveErrors >= MaxConsecutiveErrors {
			reconnectDelay = MaxReconnectDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// HandleConnection manages a single WebSocket connection lifecycle.
// It returns nil only when ctx is cancelled.
func (bw *WebSocketWorker) HandleConnection(ctx context.Context, channels []string) error {
	u, err := url.Parse(bw.Config.URL)
	if err != nil {
		return fmt.Errorf("invalid WebSocket URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: bw.Config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}
	defer conn.Close()

	bw.Logger.Info("Connected to WebSocket")

	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()

	var pongMu sync.Mutex
	lastPongTime := time.Now()
	conn.SetPongHandler(func(string) error {
		pongMu.Lock()
		lastPongTime = time.Now()
		pongMu.Unlock()
		return nil
	})

	if bw.OnSubscribe != nil {
		if err := bw.OnSubscribe(conn, channels); err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	pingTicker := time.NewTicker(bw.Config.PingInterval)
	defer pingTicker.Stop()

	healthTicker := time.NewTicker(HealthCheckInterval)
	defer healthTicker.Stop()

	readErrors := make(chan error, 1)
	messages := make(chan []byte, 100)

	go func() {
		defer close(messages)
		for {
			conn.SetReadDeadline(time.Now().Add(bw.Config.ReadTimeout))
			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case readErrors <- err:
				case <-connCtx.Done():
				}
				return
			}
			select {
			case messages <- message:
			case <-connCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErrors:
			return fmt.Errorf("WebSocket read error: %w", err)

		case message, ok := <-messages:
			if !ok {
				select {
				case err := <-readErrors:
					return fmt.Errorf("WebSocket read error: %w", err)
				default:
					return fmt.Errorf("WebSocket reader stopped")
				}
			}
			if bw.OnMessage != nil {
				if err := bw.OnMessage(message); err != nil {
					bw.Logger.Debugf("Skipping message: %v", err)
				}
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(bw.Config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return fmt.Errorf("failed to send ping: %w", err)
			}

		case <-healthTicker.C:
			pongMu.Lock()
			sinceLastPong := time.Since(lastPongTime)
			pongMu.Unlock()
			if sinceLastPong > bw.Config.PingInterval+bw.Config.PongTimeout {
				return fmt.Errorf("connection appears unhealthy, last pong was %v ago", sinceLastPong)
			}
		}
	}
}
