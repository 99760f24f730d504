package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectSheetImported = "deskchat.sheet.imported"
	SubjectSheetFailed   = "deskchat.sheet.failed"
	SubjectChatAnswered  = "deskchat.chat.answered"
	SubjectChatFailed    = "deskchat.chat.failed"
)

// SheetImportedEvent reports a successful spreadsheet import. Counts are
// always present, including zero rows for a header-only sheet.
type SheetImportedEvent struct {
	SessionID string    `json:"session_id"`
	Headers   int       `json:"headers"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// SheetFailedEvent reports a failed spreadsheet import.
type SheetFailedEvent struct {
	SessionID string    `json:"session_id"`
	ErrorKind string    `json:"error_kind"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatEvent reports the outcome of one question. Message text is never included.
type ChatEvent struct {
	SessionID  string    `json:"session_id"`
	TurnID     string    `json:"turn_id"`
	HasContext bool      `json:"has_context"`
	Citations  int       `json:"citations"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("deskchat"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
