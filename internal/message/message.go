// internal/message/message.go
//
// ROLÊ – Lifecycle event publishing.
//
// Context
//   The scheduler announces every bulk transition so downstream consumers
//   (search indexer, cache purger, newsletter builder) can react without
//   polling the agenda table.  Publishing is fire-and-forget: a failed
//   publish is logged by the caller and never fails the transition itself.
//
//   Two publishers exist:
//     • NATSPublisher – JSON payloads on `<prefix>.<subject>`.
//     • LogPublisher  – writes the payload to the logger; used when no
//       broker is configured.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects published by the agenda scheduler.
const (
	SubjectAgendaPublished   = "agenda.published"
	SubjectAgendaUnpublished = "agenda.unpublished"
)

// Ref identifies one affected record.
type Ref struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// Event is the payload for bulk lifecycle transitions.
type Event struct {
	Subject string    `json:"subject"`
	At      time.Time `json:"at"`
	Items   []Ref     `json:"items"`
}

// Publisher delivers events.  Implementations must be safe for concurrent
// use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// -----------------------------------------------------------------------------
// NATS
// -----------------------------------------------------------------------------

// NATSPublisher publishes JSON events on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// DialNATS connects to url and returns a publisher that prefixes every
// subject with prefix.
func DialNATS(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("role"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				zap.L().Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			zap.L().Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Publish marshals ev and sends it.  ctx is checked before the write since
// nats.Conn.Publish itself is non-blocking.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	subject := ev.Subject
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}
	return p.nc.Publish(subject, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Log-only
// -----------------------------------------------------------------------------

// LogPublisher logs events instead of sending them.
type LogPublisher struct {
	Log *zap.Logger
}

// Publish logs the event at info level.
func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	l := p.Log
	if l == nil {
		l = zap.L()
	}
	ids := make([]string, len(ev.Items))
	for i, it := range ev.Items {
		ids[i] = it.ID
	}
	l.Info("event", zap.String("subject", ev.Subject), zap.Strings("ids", ids))
	return nil
}
