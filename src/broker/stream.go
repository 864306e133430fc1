package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	streamDialTimeout      = 10 * time.Second
	streamReconnectBase    = 2 * time.Second
	streamReconnectMax     = 60 * time.Second
	streamTradeUpdatesName = "trade_updates"
)

// StreamHandler receives one order update pushed by the broker.
type StreamHandler func(OrderInfo)

// Stream consumes the broker's trade-updates websocket feed. It is a
// best-effort supplement to status polling: fills and cancels arrive sooner,
// but the poll loop remains the source of truth for order state.
type Stream struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewStream(cfg Config) *Stream {
	return &Stream{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: streamDialTimeout,
		},
	}
}

type streamRequest struct {
	Action string      `json:"action"`
	Data   interface{} `json:"data"`
}

type streamMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		Event string      `json:"event"`
		Order alpacaOrder `json:"order"`
	} `json:"data"`
}

// Run consumes the feed until ctx is cancelled, reconnecting with backoff on
// any connection failure.
func (s *Stream) Run(ctx context.Context, handler StreamHandler) error {
	backoff := streamReconnectBase

	for {
		if err := s.consumeOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WithError(err).
				WithField("backoff", backoff.String()).
				Warn("Trade-updates stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > streamReconnectMax {
			backoff = streamReconnectMax
		}
	}
}

func (s *Stream) consumeOnce(ctx context.Context, handler StreamHandler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.StreamURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the context is cancelled; the watcher exits
	// with the connection instead of outliving it across reconnects.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	auth := streamRequest{
		Action: "authenticate",
		Data: map[string]string{
			"key_id":     s.cfg.APIKeyID,
			"secret_key": s.cfg.APISecretKey,
		},
	}
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}

	listen := streamRequest{
		Action: "listen",
		Data:   map[string][]string{"streams": {streamTradeUpdatesName}},
	}
	if err := conn.WriteJSON(listen); err != nil {
		return err
	}

	logger.Info("Trade-updates stream connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.WithError(err).Debug("Skipping undecodable stream frame")
			continue
		}

		if msg.Stream != streamTradeUpdatesName || msg.Data.Order.ID == "" {
			continue
		}

		logger.WithFields(map[string]interface{}{
			"event":    msg.Data.Event,
			"order_id": msg.Data.Order.ID,
			"status":   msg.Data.Order.Status,
		}).Debug("Trade update received")

		handler(*msg.Data.Order.toOrderInfo())
	}
}
