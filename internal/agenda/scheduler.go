// internal/agenda/scheduler.go
//
// Publish/unpublish scheduler job.
//
// Context
// -------
// The job is stateless.  An external trigger (cron, `rolectl tick`, or the
// hosting platform's scheduler) invokes Run on a fixed interval; Run reads
// the clock once, executes the publish sweep, then the unpublish sweep, and
// returns a Summary.  Nothing is kept in memory between invocations, so a
// missed or interrupted tick is compensated by the next one.
//
// Failure model
// -------------
// Each sweep is independently idempotent.  A failed sweep is logged and its
// error returned, but it never prevents or rolls back the other sweep.
package agenda

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/message"
	"github.com/rolecultura/role/internal/metrics"
)

// Sweeper is the storage contract the scheduler needs.  *Store satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context, dir Direction, now time.Time) ([]message.Ref, error)
}

// Summary is the result of one invocation.
type Summary struct {
	Timestamp   time.Time `json:"timestamp"`
	Published   int       `json:"published"`
	Unpublished int       `json:"unpublished"`
	Total       int       `json:"total"`
}

// Scheduler runs both sweeps.  Zero value is unusable; use NewScheduler.
type Scheduler struct {
	store Sweeper
	pub   message.Publisher
	log   *zap.Logger
	now   func() time.Time
}

// NewScheduler wires the sweeper and publisher.  A nil publisher disables
// lifecycle events; a nil logger falls back to zap.L().
func NewScheduler(store Sweeper, pub message.Publisher, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.L()
	}
	return &Scheduler{
		store: store,
		pub:   pub,
		log:   log.Named("scheduler"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the publish sweep, then the unpublish sweep.  The returned
// Summary counts only sweeps that succeeded; err joins every sweep failure.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	now := s.now()
	sum := Summary{Timestamp: now}

	published, pubErr := s.sweep(ctx, DirPublish, now)
	sum.Published = published

	unpublished, unpubErr := s.sweep(ctx, DirUnpublish, now)
	sum.Unpublished = unpublished

	sum.Total = sum.Published + sum.Unpublished
	return sum, errors.Join(pubErr, unpubErr)
}

func (s *Scheduler) sweep(ctx context.Context, dir Direction, now time.Time) (int, error) {
	label := string(dir)
	metrics.SweepTotal.WithLabelValues(label).Inc()

	refs, err := s.store.Sweep(ctx, dir, now)
	if err != nil {
		metrics.SweepErrorsTotal.WithLabelValues(label).Inc()
		s.log.Error("sweep failed", zap.String("direction", label), zap.Error(err))
		return 0, err
	}

	ids := make([]string, len(refs))
	slugs := make([]string, len(refs))
	for i, r := range refs {
		ids[i], slugs[i] = r.ID, r.Slug
	}
	s.log.Info("sweep done",
		zap.String("direction", label),
		zap.Int("count", len(refs)),
		zap.Strings("ids", ids),
		zap.Strings("slugs", slugs))

	if len(refs) == 0 {
		return 0, nil
	}
	metrics.SweepItemsTotal.WithLabelValues(label).Add(float64(len(refs)))
	s.announce(ctx, dir, now, refs)
	return len(refs), nil
}

// announce publishes the lifecycle event.  Failures are logged only.
func (s *Scheduler) announce(ctx context.Context, dir Direction, now time.Time, refs []message.Ref) {
	if s.pub == nil {
		return
	}
	subject := message.SubjectAgendaPublished
	if dir == DirUnpublish {
		subject = message.SubjectAgendaUnpublished
	}
	ev := message.Event{Subject: subject, At: now, Items: refs}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
