package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/logger"
)

// ErrStopped is returned by Dispatch once the engine has shut down.
var ErrStopped = errors.New("quiz engine stopped")

// ContentSource supplies batches. It must always return usable content;
// *content.Service does.
type ContentSource interface {
	GenerateCards(ctx context.Context, topic string, difficulty float64, recentSentences []string) content.Batch
	GenerateDescriptions(ctx context.Context, ref content.Item, topic string) content.Batch
	GenerateWords(ctx context.Context, ref content.Item, topic string) content.Batch
	EvaluateExplanation(ctx context.Context, ref content.Item, userText, topic string) content.Feedback
}

type envelope struct {
	ev    Event
	reply chan error
}

// Engine owns one session. Run processes events one at a time; effects run
// in their own goroutines and report back through the same queue.
type Engine struct {
	machine *Machine
	src     ContentSource
	log     *logger.Logger

	events chan envelope
	done   chan struct{}

	mu    sync.RWMutex
	state State

	subsMu     sync.Mutex
	subs       map[int]chan State
	nextID     int
	subsClosed bool

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}

	fetches sync.WaitGroup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(src ContentSource, cfg Config, opts ...EngineOption) *Engine {
	m := NewMachine(cfg)
	e := &Engine{
		machine: m,
		src:     src,
		log:     logger.Nop(),
		events:  make(chan envelope),
		done:    make(chan struct{}),
		state:   m.Initial(),
		subs:    make(map[int]chan State),
		timers:  make(map[*time.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes events until ctx is cancelled. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	defer e.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-e.events:
			err := e.apply(ctx, env.ev)
			if env.reply != nil {
				env.reply <- err
			}
		}
	}
}

// Dispatch submits a learner event and waits for the reducer's verdict.
// Rejected transitions return a *RejectedError.
func (e *Engine) Dispatch(ctx context.Context, ev Event) error {
	env := envelope{ev: ev, reply: make(chan error, 1)}
	select {
	case e.events <- env:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-env.reply:
		return err
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Subscribe delivers each committed state. Slow readers only see the
// latest one. Call cancel to stop receiving.
func (e *Engine) Subscribe() (<-chan State, func()) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	ch := make(chan State, 1)
	if e.subsClosed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = ch

	return ch, func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) apply(ctx context.Context, ev Event) error {
	next, effects, err := e.machine.Reduce(e.Snapshot(), ev)
	if err != nil {
		if errors.Is(err, ErrStale) {
			e.log.Debug("stale quiz event dropped", "event", ev.EventName())
		} else {
			e.log.Info("quiz event rejected", "event", ev.EventName(), "error", err)
		}
		return err
	}

	e.mu.Lock()
	e.state = next
	e.mu.Unlock()

	e.log.Debug("quiz event applied", "event", ev.EventName(), "stage", next.Stage, "score", next.Score)
	e.publish(next)

	for _, eff := range effects {
		e.perform(ctx, eff)
	}
	return nil
}

func (e *Engine) publish(s State) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- s:
		default:
			// Replace the unread state with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (e *Engine) perform(ctx context.Context, eff Effect) {
	switch eff := eff.(type) {
	case Schedule:
		e.schedule(eff.Delay, eff.Event)
	case FetchCards:
		e.fetch(ctx, func(ctx context.Context) Event {
			return CardsLoaded{Token: eff.Token, Batch: e.src.GenerateCards(ctx, eff.Topic, eff.Difficulty, eff.Recent)}
		})
	case FetchDescriptions:
		e.fetch(ctx, func(ctx context.Context) Event {
			return DescriptionsLoaded{Token: eff.Token, Batch: e.src.GenerateDescriptions(ctx, eff.Ref, eff.Topic)}
		})
	case FetchWords:
		e.fetch(ctx, func(ctx context.Context) Event {
			return WordsLoaded{Token: eff.Token, Batch: e.src.GenerateWords(ctx, eff.Ref, eff.Topic)}
		})
	case EvaluateExplanation:
		e.fetch(ctx, func(ctx context.Context) Event {
			return FeedbackLoaded{Token: eff.Token, Feedback: e.src.EvaluateExplanation(ctx, eff.Ref, eff.Text, eff.Topic)}
		})
	default:
		e.log.Warn("unknown quiz effect", "effect", eff)
	}
}

// fetch runs call in the background and feeds its event back.
func (e *Engine) fetch(ctx context.Context, call func(context.Context) Event) {
	e.fetches.Add(1)
	go func() {
		defer e.fetches.Done()

		fctx := ctx
		if timeout := e.machine.Config().FetchTimeout; timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		e.post(call(fctx))
	}()
}

func (e *Engine) schedule(delay time.Duration, ev Event) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		e.timersMu.Lock()
		delete(e.timers, t)
		e.timersMu.Unlock()
		e.post(ev)
	})
	e.timers[t] = struct{}{}
}

// post enqueues an engine event unless the engine is gone.
func (e *Engine) post(ev Event) {
	select {
	case e.events <- envelope{ev: ev}:
	case <-e.done:
	}
}

func (e *Engine) shutdown() {
	close(e.done)

	e.timersMu.Lock()
	for t := range e.timers {
		t.Stop()
	}
	clear(e.timers)
	e.timersMu.Unlock()

	e.fetches.Wait()

	// Subscribers see a closed channel once the engine has stopped.
	e.subsMu.Lock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.subsClosed = true
	e.subsMu.Unlock()
}
