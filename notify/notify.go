package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/wricardo/hazardrun/game/service"
)

var ErrNoURL = errors.New("nats url is empty")

// Conn is the subset of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher implements service.Notifier on a NATS connection.
// Messages go to subject + "." + event type, for example
// hazardrun.events.game.over.
type Publisher struct {
	conn    Conn
	subject string
	logger  zerolog.Logger
}

// Connect dials NATS and returns a publisher for subject
func Connect(url, subject string, logger zerolog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	nc, err := nats.Connect(url,
		nats.Name("hazardrun"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewPublisher(nc, subject, logger), nil
}

// NewPublisher wraps an existing connection
func NewPublisher(conn Conn, subject string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// Publish buffers the event in the client; it never waits on the network.
// Failures are logged and dropped.
func (p *Publisher) Publish(ev service.Lifecycle) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error().Err(err).Str("type", ev.Type).Msg("failed to encode lifecycle event")
		return
	}
	subject := p.subject + "." + ev.Type
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish lifecycle event")
	}
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
