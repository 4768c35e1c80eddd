package quiz

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/abhisek/cardquiz/internal/content"
)

// Machine is the transition table. It holds only configuration, so one
// Machine can serve any number of sessions.
type Machine struct {
	cfg Config
}

func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Config returns the machine's configuration.
func (m *Machine) Config() Config { return m.cfg }

// Initial returns a fresh session waiting for a topic.
func (m *Machine) Initial() State {
	return State{
		Stage:       StageAwaitingTopic,
		Difficulty:  m.cfg.StartDifficulty,
		NextRoundID: 1,
	}
}

// Reduce applies ev to s. On error the returned state is s unchanged and
// there are no effects: learner events fail with *RejectedError, engine
// events that lost their race fail with ErrStale.
func (m *Machine) Reduce(s State, ev Event) (State, []Effect, error) {
	switch ev := ev.(type) {
	case SubmitTopic:
		return m.submitTopic(s, ev)
	case SelectCard:
		return m.selectCard(s, ev)
	case SubmitExplanation:
		return m.submitExplanation(s, ev)
	case SkipExplanation:
		return m.skipExplanation(s, ev)
	case SelectOption:
		return m.selectOption(s, ev)
	case Reset:
		return m.reset(s, ev)
	case CardsLoaded:
		return m.cardsLoaded(s, ev)
	case DescriptionsLoaded:
		return m.descriptionsLoaded(s, ev)
	case WordsLoaded:
		return m.wordsLoaded(s, ev)
	case FeedbackLoaded:
		return m.feedbackLoaded(s, ev)
	case RevealElapsed:
		return m.revealElapsed(s, ev)
	case MissCleared:
		return m.missCleared(s, ev)
	}
	return s, nil, fmt.Errorf("unknown event %T", ev)
}

func (m *Machine) submitTopic(s State, ev SubmitTopic) (State, []Effect, error) {
	if s.Stage != StageAwaitingTopic {
		return s, nil, reject(ev, s, "topic already chosen")
	}
	if s.Pending != nil {
		return s, nil, reject(ev, s, "cards are already loading")
	}
	topic := strings.TrimSpace(ev.Text)
	if topic == "" {
		return s, nil, reject(ev, s, "topic is empty")
	}

	next := s
	next.Topic = topic
	return m.requestCards(next)
}

// requestCards reserves the next round id and asks for its cards.
func (m *Machine) requestCards(next State) (State, []Effect, error) {
	tok := Token{Epoch: next.Epoch, RoundID: next.NextRoundID}
	next.NextRoundID++
	next.Pending = &Pending{Kind: PendingCards, Token: tok}

	return next, []Effect{FetchCards{
		Token:      tok,
		Topic:      next.Topic,
		Difficulty: next.Difficulty,
		Recent:     slices.Clip(next.RecentSentences),
	}}, nil
}

func (m *Machine) cardsLoaded(s State, ev CardsLoaded) (State, []Effect, error) {
	if !s.expects(PendingCards, ev.Token) {
		return s, nil, ErrStale
	}

	next := s
	next.Pending = nil
	next.Stage = StageFindWrong
	next.Round = &Round{
		ID:         ev.Token.RoundID,
		Number:     len(s.History) + 1,
		Topic:      s.Topic,
		Difficulty: s.Difficulty,
		Cards:      ev.Batch.Clone(),
		Degraded:   ev.Batch.Degraded(),
	}
	next.RecentSentences = m.remember(s.RecentSentences, ev.Batch)
	return next, nil, nil
}

func (m *Machine) selectCard(s State, ev SelectCard) (State, []Effect, error) {
	if s.Stage != StageFindWrong {
		return s, nil, reject(ev, s, "not picking cards")
	}
	if s.Round.CardResolved {
		return s, nil, reject(ev, s, "wrong card already found")
	}
	if s.Pending != nil {
		return s, nil, reject(ev, s, "busy")
	}
	card, ok := s.Round.Cards.Find(ev.ID)
	if !ok {
		return s, nil, reject(ev, s, "unknown card "+ev.ID)
	}

	next, r := s.withRound()
	tok := s.roundToken()
	next.TotalAnswers++
	if !card.IsAnswer() {
		return m.miss(next, r, tok, ev.ID, StepCard)
	}

	next.CorrectAnswers++
	next.Score += m.cfg.Points.Card
	r.SelectedCard = card.ID
	r.CardResolved = true
	clearMiss(r)
	return m.reveal(next, tok, StepCard, m.cfg.RevealDelay)
}

func (m *Machine) submitExplanation(s State, ev SubmitExplanation) (State, []Effect, error) {
	if s.Stage != StageExplain {
		return s, nil, reject(ev, s, "not explaining")
	}
	if s.Round.ExplanationSubmitted {
		return s, nil, reject(ev, s, "explanation already submitted")
	}
	if s.Pending != nil {
		return s, nil, reject(ev, s, "busy")
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return s, nil, reject(ev, s, "explanation is empty")
	}

	next, r := s.withRound()
	r.Explanation = text
	r.ExplanationSubmitted = true

	tok := s.roundToken()
	ref, _ := r.WrongCard()
	next.Pending = &Pending{Kind: PendingFeedback, Token: tok}
	return next, []Effect{EvaluateExplanation{Token: tok, Ref: ref, Text: text, Topic: r.Topic}}, nil
}

func (m *Machine) skipExplanation(s State, ev SkipExplanation) (State, []Effect, error) {
	if s.Stage != StageExplain {
		return s, nil, reject(ev, s, "not explaining")
	}
	// Skipping the feedback reveal is fine; the pending timer goes stale.
	if s.Pending != nil && s.Pending.Kind == PendingFeedback {
		return s, nil, reject(ev, s, "explanation is being evaluated")
	}
	next := s
	next.Pending = nil
	next.Stage = StageSelectCorrect
	return next, nil, nil
}

func (m *Machine) selectOption(s State, ev SelectOption) (State, []Effect, error) {
	if s.Stage != StageSelectCorrect {
		return s, nil, reject(ev, s, "not selecting options")
	}
	if s.Pending != nil {
		return s, nil, reject(ev, s, "busy")
	}
	if s.Round.Completed {
		return s, nil, reject(ev, s, "round already completed")
	}

	step := activeOptionStep(s.Round)
	var batch content.Batch
	switch step {
	case StepDescription:
		batch = s.Round.Descriptions
	case StepWord:
		batch = s.Round.Words
	default:
		return s, nil, reject(ev, s, "no options to choose from")
	}
	item, ok := batch.Find(ev.ID)
	if !ok {
		return s, nil, reject(ev, s, "unknown option "+ev.ID)
	}

	next, r := s.withRound()
	tok := s.roundToken()
	next.TotalAnswers++
	if !item.IsAnswer() {
		return m.miss(next, r, tok, ev.ID, step)
	}
	next.CorrectAnswers++
	clearMiss(r)

	if step == StepDescription {
		next.Score += m.cfg.Points.Description
		r.SelectedDescription = item.ID
		r.DescriptionResolved = true
		return m.reveal(next, tok, StepDescription, m.cfg.RevealDelay)
	}

	next.Score += m.cfg.Points.Word
	r.SelectedWord = item.ID
	r.WordResolved = true
	r.Completed = true
	next.History = append(slices.Clip(s.History), *r)
	next.Difficulty = m.raise(s.Difficulty)
	return m.requestCards(next)
}

func (m *Machine) descriptionsLoaded(s State, ev DescriptionsLoaded) (State, []Effect, error) {
	if !s.expects(PendingDescriptions, ev.Token) {
		return s, nil, ErrStale
	}
	next, r := s.withRound()
	r.Descriptions = ev.Batch.Clone()
	r.Degraded = r.Degraded || ev.Batch.Degraded()
	next.Pending = nil
	next.Stage = StageExplain
	return next, nil, nil
}

func (m *Machine) wordsLoaded(s State, ev WordsLoaded) (State, []Effect, error) {
	if !s.expects(PendingWords, ev.Token) {
		return s, nil, ErrStale
	}
	next, r := s.withRound()
	r.Words = ev.Batch.Clone()
	r.Degraded = r.Degraded || ev.Batch.Degraded()
	next.Pending = nil
	return next, nil, nil
}

func (m *Machine) feedbackLoaded(s State, ev FeedbackLoaded) (State, []Effect, error) {
	if !s.expects(PendingFeedback, ev.Token) {
		return s, nil, ErrStale
	}
	next, r := s.withRound()
	fb := ev.Feedback
	r.Feedback = &fb
	return m.reveal(next, ev.Token, StepExplain, m.cfg.ExplainDelay)
}

func (m *Machine) revealElapsed(s State, ev RevealElapsed) (State, []Effect, error) {
	if !s.expects(PendingReveal, ev.Token) || s.Pending.Step != ev.Step {
		return s, nil, ErrStale
	}

	next := s
	next.Pending = nil
	ref, _ := s.Round.WrongCard()

	switch ev.Step {
	case StepCard:
		next.Pending = &Pending{Kind: PendingDescriptions, Token: ev.Token}
		return next, []Effect{FetchDescriptions{Token: ev.Token, Ref: ref, Topic: s.Round.Topic}}, nil
	case StepExplain:
		next.Stage = StageSelectCorrect
		return next, nil, nil
	case StepDescription:
		next.Pending = &Pending{Kind: PendingWords, Token: ev.Token}
		return next, []Effect{FetchWords{Token: ev.Token, Ref: ref, Topic: s.Round.Topic}}, nil
	}
	return s, nil, ErrStale
}

func (m *Machine) missCleared(s State, ev MissCleared) (State, []Effect, error) {
	if s.Round == nil || ev.Token != s.roundToken() || ev.Seq != s.Round.MissSeq {
		return s, nil, ErrStale
	}
	next, r := s.withRound()
	clearMiss(r)
	return next, nil, nil
}

func (m *Machine) reset(s State, ev Reset) (State, []Effect, error) {
	next := m.Initial()
	next.Epoch = s.Epoch + 1
	next.NextRoundID = max(s.NextRoundID, next.NextRoundID)
	if ev.KeepHistory {
		next.History = s.History
	}
	return next, nil, nil
}

// reveal holds the round for delay before step's follow-up runs.
func (m *Machine) reveal(next State, tok Token, step Step, delay time.Duration) (State, []Effect, error) {
	next.Pending = &Pending{Kind: PendingReveal, Step: step, Token: tok}
	return next, []Effect{Schedule{Delay: delay, Event: RevealElapsed{Token: tok, Step: step}}}, nil
}

// miss flags a wrong pick; it clears itself after the reveal delay.
func (m *Machine) miss(next State, r *Round, tok Token, id string, step Step) (State, []Effect, error) {
	r.MissSeq++
	r.MissID = id
	switch step {
	case StepCard:
		r.CardMiss = true
	case StepDescription:
		r.DescriptionMiss = true
	case StepWord:
		r.WordMiss = true
	}
	return next, []Effect{Schedule{Delay: m.cfg.RevealDelay, Event: MissCleared{Token: tok, Seq: r.MissSeq}}}, nil
}

func (m *Machine) raise(d float64) float64 {
	d = math.Round((d+m.cfg.DifficultyStep)*1000) / 1000
	if m.cfg.MaxDifficulty > 0 && d > m.cfg.MaxDifficulty {
		d = m.cfg.MaxDifficulty
	}
	return d
}

// remember appends the batch's sentences, keeping the newest MaxRecent.
func (m *Machine) remember(recent []string, b content.Batch) []string {
	out := slices.Clone(recent)
	for _, it := range b.Items {
		if it.PrimaryText != "" {
			out = append(out, it.PrimaryText)
		}
	}
	if n := m.cfg.MaxRecent; n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func clearMiss(r *Round) {
	r.CardMiss = false
	r.DescriptionMiss = false
	r.WordMiss = false
	r.MissID = ""
}

func activeOptionStep(r *Round) Step {
	switch {
	case r == nil:
		return StepNone
	case !r.DescriptionResolved:
		return StepDescription
	case !r.WordResolved && len(r.Words.Items) > 0:
		return StepWord
	}
	return StepNone
}

// withRound returns a copy of s whose Round may be modified.
func (s State) withRound() (State, *Round) {
	r := *s.Round
	s.Round = &r
	return s, &r
}

func (s State) roundToken() Token {
	return Token{Epoch: s.Epoch, RoundID: s.Round.ID}
}

func (s State) expects(kind PendingKind, tok Token) bool {
	return s.Pending != nil && s.Pending.Kind == kind && s.Pending.Token == tok
}
