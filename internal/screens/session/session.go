// Package session is the quiz screen. It renders the engine's state and
// turns key presses into learner events; it never decides correctness.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/quiz"
	"github.com/abhisek/cardquiz/internal/router"
	"github.com/abhisek/cardquiz/internal/screen"
	"github.com/abhisek/cardquiz/internal/ui/components"
	"github.com/abhisek/cardquiz/internal/ui/layout"
)

const (
	dispatchTimeout = 5 * time.Second
	spinnerInterval = 120 * time.Millisecond
)

// Engine is the part of *quiz.Engine the screen drives.
type Engine interface {
	Dispatch(ctx context.Context, ev quiz.Event) error
	Snapshot() quiz.State
	Subscribe() (<-chan quiz.State, func())
}

// SessionScreen implements screen.Screen for a running quiz.
type SessionScreen struct {
	engine      Engine
	updates     <-chan quiz.State
	unsubscribe func()
	state       quiz.State

	topics     components.Menu
	input      components.TextInput
	options    components.OptionList
	optionsKey string

	message      string
	messageGood  bool
	mascot       MascotVariant
	spinnerFrame int
	errMsg       string
	rng          *rand.Rand
}

var _ screen.Screen = (*SessionScreen)(nil)
var _ screen.KeyHintProvider = (*SessionScreen)(nil)

// New creates the quiz screen. rng picks feedback messages; nil seeds one
// from the clock.
func New(engine Engine, rng *rand.Rand) *SessionScreen {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	s := &SessionScreen{
		engine: engine,
		input:  components.NewTextInput("Type a topic...", 80),
		rng:    rng,
	}

	items := make([]components.MenuItem, 0, len(SampleTopics))
	for _, topic := range SampleTopics {
		items = append(items, components.MenuItem{
			Label:  topic,
			Action: func() tea.Cmd { return s.dispatch(quiz.SubmitTopic{Text: topic}, "", false) },
		})
	}
	s.topics = components.NewMenu(items)
	return s
}

func (s *SessionScreen) Init() tea.Cmd {
	s.updates, s.unsubscribe = s.engine.Subscribe()
	s.apply(s.engine.Snapshot())
	return tea.Batch(
		waitForState(s.updates),
		s.input.Init(),
		spinnerTick(),
	)
}

func (s *SessionScreen) Title() string {
	return stageLabel(s.state.Stage)
}

// State returns the last state the screen rendered.
func (s *SessionScreen) State() quiz.State { return s.state }

func (s *SessionScreen) KeyHints() []layout.KeyHint {
	if s.errMsg != "" {
		return []layout.KeyHint{{Key: "any key", Description: "Quit"}}
	}
	hints := []layout.KeyHint{}
	switch s.state.Stage {
	case quiz.StageAwaitingTopic:
		hints = append(hints,
			layout.KeyHint{Key: "Enter", Description: "Start"},
			layout.KeyHint{Key: "↑↓", Description: "Sample topics"},
		)
	case quiz.StageFindWrong, quiz.StageSelectCorrect:
		hints = append(hints,
			layout.KeyHint{Key: "↑↓/1-5", Description: "Choose"},
			layout.KeyHint{Key: "Enter", Description: "Pick"},
		)
	case quiz.StageExplain:
		hints = append(hints,
			layout.KeyHint{Key: "Enter", Description: "Send"},
			layout.KeyHint{Key: "Tab", Description: "Skip"},
		)
	}
	if s.state.Stage != quiz.StageAwaitingTopic {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+N", Description: "New topic"})
	}
	return append(hints,
		layout.KeyHint{Key: "Esc", Description: "Summary"},
		layout.KeyHint{Key: "Ctrl+C", Description: "Quit"},
	)
}

func (s *SessionScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		s.apply(msg.State)
		return s, waitForState(s.updates)

	case updatesClosedMsg:
		if s.errMsg == "" {
			s.errMsg = quiz.ErrStopped.Error()
		}
		return s, nil

	case dispatchedMsg:
		return s.handleDispatched(msg)

	case spinnerTickMsg:
		s.spinnerFrame++
		return s, spinnerTick()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.acceptsText() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

// apply adopts a state published by the engine.
func (s *SessionScreen) apply(st quiz.State) {
	prev := s.state
	s.state = st

	if roundID(prev) != roundID(st) || prev.Epoch != st.Epoch {
		s.message = ""
		s.mascot = MascotIdle
	}
	if prev.Stage != st.Stage {
		switch st.Stage {
		case quiz.StageAwaitingTopic:
			s.input = components.NewTextInput("Type a topic...", 80)
		case quiz.StageExplain:
			s.input = components.NewTextInput("Why is this card wrong?", 280)
		}
	}

	opts := quiz.Options(st)
	key := fmt.Sprintf("%d/%d/%s/%d", st.Epoch, roundID(st), quiz.ActiveStep(st), len(opts))
	switch {
	case key == s.optionsKey:
	case len(opts) == 0 && quiz.Busy(st) && roundID(prev) == roundID(st) && len(s.options.Items) > 0:
		// Keep the resolved list on screen through the reveal delay.
	default:
		s.options = components.NewOptionList(opts)
		s.options.ShowTranslation = quiz.ActiveStep(st) == quiz.StepCard
		s.optionsKey = key
	}
	s.options.Resolved, s.options.Missed = marks(st.Round, s.options.Items)
}

func (s *SessionScreen) handleDispatched(msg dispatchedMsg) (screen.Screen, tea.Cmd) {
	var rejected *quiz.RejectedError
	switch {
	case msg.Err == nil:
		if msg.Feedback != "" {
			s.message = msg.Feedback
			s.messageGood = msg.Hit
			s.mascot = MascotAlert
			if msg.Hit {
				s.mascot = MascotCelebrating
			}
		}
	case errors.As(msg.Err, &rejected):
		s.message = rejected.Reason
		s.messageGood = false
	default:
		s.errMsg = msg.Err.Error()
	}
	s.apply(s.engine.Snapshot())
	return s, nil
}

func (s *SessionScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		return s, tea.Quit
	}

	switch key {
	case "esc":
		summary := newSummaryScreenAdapter(s.state)
		return s, func() tea.Msg { return router.PushScreenMsg{Screen: summary} }
	case "ctrl+n":
		if s.state.Stage != quiz.StageAwaitingTopic || quiz.Busy(s.state) {
			return s, s.dispatch(quiz.Reset{KeepHistory: true}, "", false)
		}
		return s, nil
	}

	switch s.state.Stage {
	case quiz.StageAwaitingTopic:
		return s.handleTopicKey(msg)
	case quiz.StageFindWrong, quiz.StageSelectCorrect:
		return s.handleOptionKey(msg)
	case quiz.StageExplain:
		return s.handleExplainKey(msg)
	}
	return s, nil
}

func (s *SessionScreen) handleTopicKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if quiz.Busy(s.state) {
		return s, nil
	}
	switch msg.String() {
	case "up", "down":
		var cmd tea.Cmd
		s.topics, cmd = s.topics.Update(msg)
		return s, cmd
	case "enter":
		if topic := s.input.Value(); topic != "" {
			return s, s.dispatch(quiz.SubmitTopic{Text: topic}, "", false)
		}
		var cmd tea.Cmd
		s.topics, cmd = s.topics.Update(msg)
		return s, cmd
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *SessionScreen) handleOptionKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if quiz.Busy(s.state) || len(quiz.Options(s.state)) == 0 {
		return s, nil
	}

	var picked bool
	s.options, picked = s.options.Update(msg)
	if !picked {
		return s, nil
	}
	item, ok := s.options.Current()
	if !ok {
		return s, nil
	}

	hit := item.IsAnswer()
	if s.state.Stage == quiz.StageFindWrong {
		kind := cardMiss
		if hit {
			kind = cardHit
		}
		return s, s.dispatch(quiz.SelectCard{ID: item.ID}, pickFeedback(s.rng, kind), hit)
	}
	kind := optionMiss
	if hit {
		kind = optionHit
	}
	return s, s.dispatch(quiz.SelectOption{ID: item.ID}, pickFeedback(s.rng, kind), hit)
}

func (s *SessionScreen) handleExplainKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.state.Round == nil {
		return s, nil
	}
	if msg.String() == "tab" {
		return s, s.dispatch(quiz.SkipExplanation{}, "", false)
	}
	if s.state.Round.ExplanationSubmitted {
		return s, nil
	}
	switch msg.String() {
	case "enter":
		if text := s.input.Value(); text != "" {
			return s, s.dispatch(quiz.SubmitExplanation{Text: text}, "", false)
		}
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *SessionScreen) acceptsText() bool {
	switch s.state.Stage {
	case quiz.StageAwaitingTopic:
		return !quiz.Busy(s.state)
	case quiz.StageExplain:
		return s.state.Round != nil && !s.state.Round.ExplanationSubmitted
	}
	return false
}

// dispatch sends ev to the engine off the UI goroutine.
func (s *SessionScreen) dispatch(ev quiz.Event, feedback string, hit bool) tea.Cmd {
	engine := s.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		return dispatchedMsg{Event: ev, Feedback: feedback, Hit: hit, Err: engine.Dispatch(ctx, ev)}
	}
}

// Close stops the state subscription.
func (s *SessionScreen) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func waitForState(ch <-chan quiz.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return stateMsg{State: st}
	}
}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

func roundID(st quiz.State) int {
	if st.Round == nil {
		return 0
	}
	return st.Round.ID
}

// marks returns the resolved and missed ids among items for round r.
func marks(r *quiz.Round, items []content.Item) (resolved, missed string) {
	if r == nil || len(items) == 0 {
		return "", ""
	}
	switch items[0].Kind {
	case content.KindCard:
		if r.CardResolved {
			resolved = r.SelectedCard
		}
		if r.CardMiss {
			missed = r.MissID
		}
	case content.KindDescription:
		if r.DescriptionResolved {
			resolved = r.SelectedDescription
		}
		if r.DescriptionMiss {
			missed = r.MissID
		}
	case content.KindWord:
		if r.WordResolved {
			resolved = r.SelectedWord
		}
		if r.WordMiss {
			missed = r.MissID
		}
	}
	return resolved, missed
}

func stageLabel(st quiz.Stage) string {
	switch st {
	case quiz.StageFindWrong:
		return "Find the wrong card"
	case quiz.StageExplain:
		return "Explain"
	case quiz.StageSelectCorrect:
		return "Pick the right one"
	}
	return "Choose a topic"
}
