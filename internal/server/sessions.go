package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/cardquiz/internal/logger"
	"github.com/abhisek/cardquiz/internal/quiz"
)

var (
	errSessionNotFound = errors.New("session not found")
	errTooManySessions = errors.New("too many sessions")
)

type session struct {
	id     uuid.UUID
	engine *quiz.Engine
	cancel context.CancelFunc
	done   chan struct{}

	// lastSeen is unix nanoseconds of the latest request for this session.
	lastSeen atomic.Int64
}

func (s *session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

func (s *session) stop() {
	s.cancel()
	<-s.done
}

// registry owns the running quiz engines, one per session.
type registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	max      int
	// idle is the expiry for untouched sessions; zero keeps them forever.
	idle time.Duration
	now  func() time.Time

	src  quiz.ContentSource
	cfg  quiz.Config
	log  *logger.Logger
	base context.Context
}

func newRegistry(base context.Context, src quiz.ContentSource, cfg quiz.Config, max int, idle time.Duration, log *logger.Logger) *registry {
	return &registry{
		sessions: make(map[uuid.UUID]*session),
		max:      max,
		idle:     idle,
		now:      time.Now,
		src:      src,
		cfg:      cfg,
		log:      log,
		base:     base,
	}
}

func (r *registry) create() (*session, error) {
	// A full registry first gives up its idle sessions.
	if r.max > 0 && r.len() >= r.max {
		r.reap()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, errTooManySessions
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(r.base)
	s := &session{
		id:     id,
		engine: quiz.NewEngine(r.src, r.cfg, quiz.WithEngineLogger(r.log.With("session", id.String()))),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.touch(r.now())
	go func() {
		defer close(s.done)
		if err := s.engine.Run(ctx); err != nil {
			r.log.Warn("quiz engine stopped with error", "session", id.String(), "error", err)
		}
	}()

	r.sessions[id] = s
	r.log.Info("session created", "session", id.String())
	return s, nil
}

func (r *registry) get(id uuid.UUID) (*session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

func (r *registry) remove(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return errSessionNotFound
	}
	s.stop()
	r.log.Info("session removed", "session", id.String())
	return nil
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// closeAll stops every engine.
func (r *registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[uuid.UUID]*session)
	r.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
}

// reap stops sessions untouched for longer than the idle timeout and
// returns how many were removed.
func (r *registry) reap() int {
	if r.idle <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	var expired []*session
	for id, s := range r.sessions {
		if s.idleSince(now) > r.idle {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.stop()
		r.log.Info("idle session reaped", "session", s.id.String())
	}
	return len(expired)
}
