package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rhuss/jsonhandler/pkg/debug"
)

// DefaultNATSSubject is used when no subject is configured.
const DefaultNATSSubject = "jsonhandler.requests"

// NATS publishes envelopes on a subject. A publish that reaches the server
// counts as accepted.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS connects to url.
func NewNATS(url, subject string, timeout time.Duration) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultNATSSubject
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	conn, err := nats.Connect(url,
		nats.Name("jsonhandler"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}
	slog.Info("nats backend connected", "url", conn.ConnectedUrl(), "subject", subject)
	return &NATS{conn: conn, subject: subject}, nil
}

// Submit publishes envelope and waits for the server to acknowledge the flush.
func (n *NATS) Submit(ctx context.Context, envelope []byte) (int, error) {
	if err := n.conn.Publish(n.subject, envelope); err != nil {
		return 0, fmt.Errorf("publishing envelope: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return 0, fmt.Errorf("flushing envelope: %w", err)
	}
	debug.Log("dispatch", "nats publish", "subject", n.subject, "bytes", len(envelope))
	return 0, nil
}

// Close drains the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
