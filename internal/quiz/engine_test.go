package quiz

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cardquiz/internal/content"
)

const waitFor = 2 * time.Second
const tick = 2 * time.Millisecond

func startEngine(t *testing.T, src ContentSource) *Engine {
	t.Helper()
	e := NewEngine(src, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func offlineContent() *content.Service {
	return content.New(nil, content.DefaultConfig(), content.WithRandSource(rand.NewPCG(7, 9)))
}

func waitState(t *testing.T, e *Engine, cond func(State) bool) State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(e.Snapshot()) }, waitFor, tick)
	return e.Snapshot()
}

func TestEngine_HayvanlarRound(t *testing.T) {
	e := startEngine(t, offlineContent())
	ctx := context.Background()

	require.NoError(t, e.Dispatch(ctx, SubmitTopic{Text: "Hayvanlar"}))
	s := waitState(t, e, func(s State) bool { return s.Stage == StageFindWrong })
	require.Len(t, s.Round.Cards.Items, content.BatchSize)
	assert.True(t, s.Round.Degraded)

	wrong, ok := s.Round.Cards.Answer()
	require.True(t, ok)
	assert.Equal(t, "The tree is very tall.", wrong.PrimaryText)

	require.NoError(t, e.Dispatch(ctx, SelectCard{ID: wrong.ID}))
	assert.Equal(t, 10, e.Snapshot().Score)
	s = waitState(t, e, func(s State) bool { return s.Stage == StageExplain })
	assert.Equal(t, 10, s.Score)

	require.NoError(t, e.Dispatch(ctx, SubmitExplanation{Text: "Resimde araba var, ağaç yok"}))
	s = waitState(t, e, func(s State) bool { return s.Stage == StageSelectCorrect })
	require.NotNil(t, s.Round.Feedback)
	assert.Equal(t, content.FallbackFeedback, s.Round.Feedback.Text)
	require.Len(t, Options(s), content.BatchSize)

	desc, _ := s.Round.Descriptions.Answer()
	require.NoError(t, e.Dispatch(ctx, SelectOption{ID: desc.ID}))
	assert.Equal(t, 25, e.Snapshot().Score)

	s = waitState(t, e, func(s State) bool { return len(s.Round.Words.Items) == content.BatchSize && !Busy(s) })
	word, _ := s.Round.Words.Answer()
	assert.Equal(t, "Car", word.PrimaryText)

	require.NoError(t, e.Dispatch(ctx, SelectOption{ID: word.ID}))
	s = e.Snapshot()
	assert.Equal(t, 45, s.Score)
	require.Len(t, s.History, 1)
	assert.True(t, s.History[0].Completed)
	assert.Equal(t, wrong.ID, s.History[0].SelectedCard)

	s = waitState(t, e, func(s State) bool { return s.Stage == StageFindWrong && s.Round.Number == 2 })
	assert.Equal(t, 45, s.Score)
	assert.InDelta(t, 1.1, s.Difficulty, 1e-9)
}

func TestEngine_DispatchReturnsRejection(t *testing.T) {
	e := startEngine(t, offlineContent())

	err := e.Dispatch(context.Background(), SubmitTopic{Text: "   "})
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, StageAwaitingTopic, e.Snapshot().Stage)
}

func TestEngine_MissClearsItself(t *testing.T) {
	e := startEngine(t, offlineContent())
	ctx := context.Background()

	require.NoError(t, e.Dispatch(ctx, SubmitTopic{Text: "Hayvanlar"}))
	s := waitState(t, e, func(s State) bool { return s.Stage == StageFindWrong })

	var other string
	for _, it := range s.Round.Cards.Items {
		if !it.IsAnswer() {
			other = it.ID
			break
		}
	}
	require.NoError(t, e.Dispatch(ctx, SelectCard{ID: other}))
	assert.Equal(t, 1, e.Snapshot().Round.MissSeq)
	assert.Equal(t, 0, e.Snapshot().Score)

	waitState(t, e, func(s State) bool { return !s.Round.CardMiss })
	assert.Equal(t, StageFindWrong, e.Snapshot().Stage)
}

// gatedSource blocks card generation until released.
type gatedSource struct {
	*content.Service
	mu      sync.Mutex
	release chan struct{}
	topics  []string
}

func (g *gatedSource) GenerateCards(ctx context.Context, topic string, difficulty float64, recent []string) content.Batch {
	g.mu.Lock()
	g.topics = append(g.topics, topic)
	g.mu.Unlock()
	<-g.release
	return g.Service.GenerateCards(ctx, topic, difficulty, recent)
}

func TestEngine_StaleCardsAfterReset(t *testing.T) {
	src := &gatedSource{Service: offlineContent(), release: make(chan struct{})}
	e := startEngine(t, src)
	ctx := context.Background()

	require.NoError(t, e.Dispatch(ctx, SubmitTopic{Text: "Hayvanlar"}))
	require.NoError(t, e.Dispatch(ctx, Reset{}))
	close(src.release)

	// Give the stale result time to arrive; it must be dropped.
	time.Sleep(50 * time.Millisecond)
	s := e.Snapshot()
	assert.Equal(t, StageAwaitingTopic, s.Stage)
	assert.Nil(t, s.Round)
	assert.Equal(t, uint64(1), s.Epoch)

	require.NoError(t, e.Dispatch(ctx, SubmitTopic{Text: "Okul"}))
	s = waitState(t, e, func(s State) bool { return s.Stage == StageFindWrong })
	assert.Equal(t, "Okul", s.Round.Topic)
	assert.Equal(t, "This is my pencil.", func() string {
		for _, it := range s.Round.Cards.Items {
			if it.ID == "card_1" {
				return it.PrimaryText
			}
		}
		return ""
	}())
}

func TestEngine_Subscribe(t *testing.T) {
	e := startEngine(t, offlineContent())
	updates, cancel := e.Subscribe()
	defer cancel()

	require.NoError(t, e.Dispatch(context.Background(), SubmitTopic{Text: "Hayvanlar"}))

	deadline := time.After(waitFor)
	for {
		select {
		case s := <-updates:
			if s.Stage == StageFindWrong {
				return
			}
		case <-deadline:
			t.Fatal("no FindWrong update received")
		}
	}
}

func TestEngine_DispatchAfterStop(t *testing.T) {
	e := NewEngine(offlineContent(), testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- e.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	err := e.Dispatch(context.Background(), SubmitTopic{Text: "x"})
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestEngine_StopClosesSubscriptions(t *testing.T) {
	e := NewEngine(offlineContent(), testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- e.Run(ctx) }()

	updates, unsubscribe := e.Subscribe()
	cancel()
	require.NoError(t, <-done)

	select {
	case _, ok := <-updates:
		if ok {
			// A buffered state may still be pending; the next read must see the close.
			_, ok = <-updates
		}
		assert.False(t, ok, "subscription still open after stop")
	case <-time.After(waitFor):
		t.Fatal("subscription not closed after stop")
	}
	unsubscribe()
	unsubscribe()

	late, lateCancel := e.Subscribe()
	defer lateCancel()
	_, ok := <-late
	assert.False(t, ok, "subscribing to a stopped engine returns a closed channel")
}
