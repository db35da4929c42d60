// internal/autosave/sessions.go
//
// Server-held autosave sessions for agenda drafts.
//
// Context
// -------
// Thin admin clients post every form change to
// `/api/agenda/autosave/{session}` and let the server debounce.  Each open
// editing session owns one Coordinator, stored in a sync.Map together with
// a `lastSeen` UnixNano timestamp.  A background loop closes sessions idle
// longer than the configured TTL, the same way abandoned browser tabs would
// otherwise leak timers.
//
// Notes
// -----
// • The session remembers the actor from its first request; saves run
//   outside the request and carry that actor in their own context.
// • Coordinators never share state, so concurrent sessions on the same
//   record are last-writer-wins.
package autosave

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/agenda"
	"github.com/rolecultura/role/internal/auth"
	"github.com/rolecultura/role/internal/metrics"
)

// EvictInterval is how often idle sessions are scanned.
const EvictInterval = time.Minute

// DraftSaver is satisfied by *agenda.Store.
type DraftSaver interface {
	SaveDraft(ctx context.Context, id string, d agenda.Draft) (string, error)
}

// SessionOptions configure every Coordinator created by Sessions.
type SessionOptions struct {
	Debounce      time.Duration
	MinNameLength int
	IdleTTL       time.Duration
	AfterFunc     AfterFunc
	Log           *zap.Logger
}

type session struct {
	co       *Coordinator[agenda.Draft]
	lastSeen int64 // UnixNano
}

// Sessions maps session ids to Coordinators.
type Sessions struct {
	saver DraftSaver
	opts  SessionOptions
	mu    sync.Mutex // serialises create and delete; reads go through m
	m     sync.Map

	stop chan struct{}
	once sync.Once
}

// NewSessions returns a manager and starts its idle evictor when IdleTTL is
// positive.
func NewSessions(saver DraftSaver, opts SessionOptions) *Sessions {
	if opts.Log == nil {
		opts.Log = zap.L()
	}
	s := &Sessions{saver: saver, opts: opts, stop: make(chan struct{})}
	if opts.IdleTTL > 0 {
		go s.evictLoop(time.NewTicker(EvictInterval))
	}
	return s
}

// MinNameGate rejects drafts whose trimmed title is shorter than n runes.
func MinNameGate(n int) func(agenda.Draft) bool {
	return func(d agenda.Draft) bool {
		return utf8.RuneCountInString(strings.TrimSpace(d.Title)) >= n
	}
}

// ErrRecordMismatch is returned when a snapshot names a different record
// than the one its session is bound to.
var ErrRecordMismatch = errors.New("autosave session is bound to another record")

// Update feeds d into the session's Coordinator, creating it on first use
// with id (possibly empty) and the actor from ctx.  Later calls may omit id
// or repeat the bound one; any other id is rejected with ErrRecordMismatch
// and the snapshot is dropped.
func (s *Sessions) Update(ctx context.Context, sessionID, id string, d agenda.Draft) (Status, error) {
	sess := s.get(ctx, sessionID, id)
	atomic.StoreInt64(&sess.lastSeen, time.Now().UnixNano())
	if st := sess.co.Status(); id != "" && id != st.ID {
		return st, ErrRecordMismatch
	}
	sess.co.Update(d)
	return sess.co.Status(), nil
}

// Status reports on a session.  ok is false when it does not exist.
func (s *Sessions) Status(sessionID string) (Status, bool) {
	v, ok := s.m.Load(sessionID)
	if !ok {
		return Status{}, false
	}
	return v.(*session).co.Status(), true
}

// End closes and forgets a session.  Pending edits are discarded.
func (s *Sessions) End(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m.LoadAndDelete(sessionID)
	if !ok {
		return false
	}
	v.(*session).co.Close()
	metrics.AutosaveSessions.Dec()
	return true
}

// Len counts open sessions.
func (s *Sessions) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Close stops the evictor and every session.
func (s *Sessions) Close() {
	s.once.Do(func() { close(s.stop) })
	s.m.Range(func(key, _ any) bool {
		s.End(key.(string))
		return true
	})
}

func (s *Sessions) get(ctx context.Context, sessionID, id string) *session {
	if v, ok := s.m.Load(sessionID); ok {
		return v.(*session)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m.Load(sessionID); ok {
		return v.(*session)
	}

	actor, hasActor := auth.Actor(ctx)
	save := func(ctx context.Context, id string, d agenda.Draft) (string, error) {
		if hasActor {
			ctx = auth.WithActor(ctx, actor)
		}
		return s.saver.SaveDraft(ctx, id, d)
	}
	log := s.opts.Log.With(zap.String("session", sessionID))
	sess := &session{
		co: New(id, save, Options[agenda.Draft]{
			Debounce:  s.opts.Debounce,
			Gate:      MinNameGate(s.opts.MinNameLength),
			AfterFunc: s.opts.AfterFunc,
			Log:       log,
			OnSaved: func(id string, at time.Time) {
				log.Debug("draft autosaved", zap.String("id", id), zap.Time("at", at))
			},
		}),
		lastSeen: time.Now().UnixNano(),
	}
	s.m.Store(sessionID, sess)
	metrics.AutosaveSessions.Inc()
	return sess
}

func (s *Sessions) evictLoop(t *time.Ticker) {
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-t.C:
			s.evictIdle(now)
		}
	}
}

// evictIdle ends every session not touched within IdleTTL of now.
func (s *Sessions) evictIdle(now time.Time) {
	s.m.Range(func(key, value any) bool {
		sess := value.(*session)
		idle := time.Duration(now.UnixNano() - atomic.LoadInt64(&sess.lastSeen))
		if idle > s.opts.IdleTTL && s.End(key.(string)) {
			s.opts.Log.Info("autosave session evicted",
				zap.String("session", key.(string)), zap.Duration("idle", idle.Truncate(time.Second)))
		}
		return true
	})
}
