// internal/autosave/coordinator.go
//
// Debounced draft writer.
//
// Context
// -------
// A Coordinator receives a stream of form snapshots and persists the latest
// one once edits have quieted for the debounce interval.  It is an explicit
// state machine:
//
//	idle ──Update──▶ pending ──timer──▶ saving ──done──▶ idle | pending
//	                    ▲  │                    │
//	                    └──┘ Update re-arms     └─ timer fires while saving:
//	                                               cycle dropped
//
// A single timer handle and an in-flight flag drive every transition.  Only
// one save runs at a time; a debounce cycle that fires during a save is
// dropped and the next Update starts a fresh one.
//
// When the timer fires the pending snapshot is checked against the gate
// (minimum content) and compared with the last successfully saved snapshot;
// either check may skip the write.  Save errors are logged and swallowed so
// the caller keeps typing; since the saved snapshot is unchanged the next
// cycle retries.
//
// Notes
// -----
// • Close stops the timer and cancels the save context.  Nothing is saved
//   after Close returns.
// • AfterFunc is injectable so tests drive the timer by hand.
package autosave

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/metrics"
)

// State of a Coordinator.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSaving  State = "saving"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 800 * time.Millisecond

// Timer is the part of *time.Timer a Coordinator needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.  time.AfterFunc satisfies it via SystemTimer.
type AfterFunc func(d time.Duration, f func()) Timer

// SystemTimer wraps time.AfterFunc.
func SystemTimer(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SaveFunc performs the upsert.  id is empty until the first successful
// save; the returned id is remembered for later saves.
type SaveFunc[T any] func(ctx context.Context, id string, snap T) (string, error)

// Options tune a Coordinator.  Only Save is required.
type Options[T any] struct {
	Debounce  time.Duration
	Gate      func(T) bool
	AfterFunc AfterFunc
	OnSaved   func(id string, at time.Time)
	Log       *zap.Logger
	Now       func() time.Time
}

// Status is a point-in-time view of a Coordinator.
type Status struct {
	State   State      `json:"state"`
	ID      string     `json:"id,omitempty"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
}

// Coordinator debounces snapshots of type T into SaveFunc calls.
type Coordinator[T any] struct {
	save SaveFunc[T]
	opts Options[T]

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	gen      uint64 // bumped on every Update; stale timer callbacks are ignored
	timer    Timer
	armed    bool
	inFlight bool
	closed   bool

	pending  T
	saved    T
	hasSaved bool
	id       string
	savedAt  time.Time
}

// New returns an idle Coordinator.  id may be empty for a record that has
// not been inserted yet.
func New[T any](id string, save SaveFunc[T], opts Options[T]) *Coordinator[T] {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = SystemTimer
	}
	if opts.Log == nil {
		opts.Log = zap.L()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator[T]{
		save:   save,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		state:  StateIdle,
		id:     id,
	}
}

// Update records snap as the latest snapshot and restarts the debounce timer.
func (c *Coordinator[T]) Update(snap T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = snap
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.armed = true
	c.timer = c.opts.AfterFunc(c.opts.Debounce, func() { c.fire(gen) })
	if !c.inFlight {
		c.state = StatePending
	}
}

func (c *Coordinator[T]) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.armed = false

	if c.inFlight {
		c.mu.Unlock()
		metrics.AutosaveTotal.WithLabelValues("dropped").Inc()
		return
	}
	snap := c.pending
	if c.opts.Gate != nil && !c.opts.Gate(snap) {
		c.state = StateIdle
		c.mu.Unlock()
		metrics.AutosaveTotal.WithLabelValues("gated").Inc()
		return
	}
	if c.hasSaved && reflect.DeepEqual(snap, c.saved) {
		c.state = StateIdle
		c.mu.Unlock()
		metrics.AutosaveTotal.WithLabelValues("skipped").Inc()
		return
	}
	c.inFlight = true
	c.state = StateSaving
	id := c.id
	c.mu.Unlock()

	newID, err := c.save(c.ctx, id, snap)

	c.mu.Lock()
	c.inFlight = false
	if c.armed {
		c.state = StatePending
	} else {
		c.state = StateIdle
	}
	if err != nil {
		c.mu.Unlock()
		metrics.AutosaveTotal.WithLabelValues("failed").Inc()
		c.opts.Log.Warn("autosave failed", zap.String("id", id), zap.Error(err))
		return
	}
	c.id = newID
	c.saved = snap
	c.hasSaved = true
	c.savedAt = c.opts.Now()
	at, closed := c.savedAt, c.closed
	c.mu.Unlock()

	metrics.AutosaveTotal.WithLabelValues("saved").Inc()
	if c.opts.OnSaved != nil && !closed {
		c.opts.OnSaved(newID, at)
	}
}

// Status reports the current state, the record id, and the last save time.
func (c *Coordinator[T]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{State: c.state, ID: c.id}
	if c.hasSaved {
		at := c.savedAt
		st.SavedAt = &at
	}
	return st
}

// Close stops the timer and cancels any in-flight save.  It is safe to call
// more than once.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.armed = false
	if c.timer != nil {
		c.timer.Stop()
	}
	c.cancel()
}
