package quiz

import (
	"errors"
	"testing"
	"time"

	"github.com/abhisek/cardquiz/internal/content"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RevealDelay = 10 * time.Millisecond
	cfg.ExplainDelay = 20 * time.Millisecond
	return cfg
}

func cardBatch() content.Batch {
	return content.Batch{Kind: content.KindCard, Items: content.FallbackCards("Hayvanlar"), Origin: content.OriginFallback}
}

func mustReduce(t *testing.T, m *Machine, s State, ev Event) (State, []Effect) {
	t.Helper()
	next, effects, err := m.Reduce(s, ev)
	if err != nil {
		t.Fatalf("Reduce(%s): %v", ev.EventName(), err)
	}
	return next, effects
}

func mustReject(t *testing.T, m *Machine, s State, ev Event) {
	t.Helper()
	next, effects, err := m.Reduce(s, ev)
	var rej *RejectedError
	if !errors.As(err, &rej) || !errors.Is(err, ErrRejected) {
		t.Fatalf("Reduce(%s) err = %v, want *RejectedError", ev.EventName(), err)
	}
	if len(effects) != 0 {
		t.Fatalf("rejected event produced effects: %v", effects)
	}
	if next.Stage != s.Stage || next.Score != s.Score || next.Pending != s.Pending || next.Round != s.Round {
		t.Fatalf("rejected event changed state")
	}
}

func onlyEffect[T Effect](t *testing.T, effects []Effect) T {
	t.Helper()
	if len(effects) != 1 {
		t.Fatalf("effects = %v, want exactly one", effects)
	}
	eff, ok := effects[0].(T)
	if !ok {
		t.Fatalf("effect = %T, want %T", effects[0], eff)
	}
	return eff
}

func answerID(t *testing.T, b content.Batch) string {
	t.Helper()
	ans, ok := b.Answer()
	if !ok {
		t.Fatalf("batch has no answer")
	}
	return ans.ID
}

func nonAnswerID(t *testing.T, b content.Batch) string {
	t.Helper()
	for _, it := range b.Items {
		if !it.IsAnswer() {
			return it.ID
		}
	}
	t.Fatalf("batch has only answers")
	return ""
}

// startRound submits a topic and loads the fallback cards.
func startRound(t *testing.T, m *Machine) State {
	t.Helper()
	s, effects := mustReduce(t, m, m.Initial(), SubmitTopic{Text: "  Hayvanlar "})
	fetch := onlyEffect[FetchCards](t, effects)
	s, _ = mustReduce(t, m, s, CardsLoaded{Token: fetch.Token, Batch: cardBatch()})
	return s
}

// toSelectCorrect plays a round up to the description choice.
func toSelectCorrect(t *testing.T, m *Machine) State {
	t.Helper()
	s := startRound(t, m)

	s, effects := mustReduce(t, m, s, SelectCard{ID: answerID(t, s.Round.Cards)})
	sched := onlyEffect[Schedule](t, effects)
	s, effects = mustReduce(t, m, s, sched.Event)
	fd := onlyEffect[FetchDescriptions](t, effects)
	s, _ = mustReduce(t, m, s, DescriptionsLoaded{
		Token: fd.Token,
		Batch: content.Batch{Kind: content.KindDescription, Items: content.FallbackDescriptions(fd.Ref)},
	})
	s, _ = mustReduce(t, m, s, SkipExplanation{})
	return s
}

func TestSubmitTopic_EmptyRejected(t *testing.T) {
	m := NewMachine(testConfig())
	for _, text := range []string{"", "   ", "\t\n"} {
		mustReject(t, m, m.Initial(), SubmitTopic{Text: text})
	}
}

func TestSubmitTopic_FetchesCards(t *testing.T) {
	m := NewMachine(testConfig())
	s, effects := mustReduce(t, m, m.Initial(), SubmitTopic{Text: " Hayvanlar "})

	fetch := onlyEffect[FetchCards](t, effects)
	if fetch.Topic != "Hayvanlar" || fetch.Difficulty != 1 || fetch.Token != (Token{Epoch: 0, RoundID: 1}) {
		t.Fatalf("fetch = %+v", fetch)
	}
	if s.Stage != StageAwaitingTopic || !Busy(s) || s.Pending.Kind != PendingCards {
		t.Fatalf("state = stage %s pending %+v", s.Stage, s.Pending)
	}
	mustReject(t, m, s, SubmitTopic{Text: "again"})

	s, _ = mustReduce(t, m, s, CardsLoaded{Token: fetch.Token, Batch: cardBatch()})
	if s.Stage != StageFindWrong || Busy(s) || s.Round.ID != 1 || s.Round.Number != 1 {
		t.Fatalf("after load: stage %s round %+v", s.Stage, s.Round)
	}
	if !s.Round.Degraded {
		t.Error("fallback cards should mark the round degraded")
	}
	if len(s.RecentSentences) != 5 {
		t.Errorf("recent = %v", s.RecentSentences)
	}
}

func TestSelectCard_Correct(t *testing.T) {
	m := NewMachine(testConfig())
	s := startRound(t, m)
	before := s

	s, effects := mustReduce(t, m, s, SelectCard{ID: answerID(t, s.Round.Cards)})
	if s.Score != 10 || !s.Round.CardResolved || s.Stage != StageFindWrong {
		t.Fatalf("score %d resolved %v stage %s", s.Score, s.Round.CardResolved, s.Stage)
	}
	sched := onlyEffect[Schedule](t, effects)
	if sched.Delay != 10*time.Millisecond {
		t.Errorf("delay = %v", sched.Delay)
	}
	if before.Round.CardResolved || before.Score != 0 {
		t.Fatal("previous state was mutated")
	}

	// Re-selecting after resolution is a no-op.
	mustReject(t, m, s, SelectCard{ID: answerID(t, s.Round.Cards)})
	mustReject(t, m, s, SelectCard{ID: nonAnswerID(t, s.Round.Cards)})

	s, effects = mustReduce(t, m, s, sched.Event)
	fd := onlyEffect[FetchDescriptions](t, effects)
	if fd.Ref.ID != answerID(t, s.Round.Cards) || fd.Topic != "Hayvanlar" {
		t.Fatalf("fetch descriptions = %+v", fd)
	}

	s, _ = mustReduce(t, m, s, DescriptionsLoaded{Token: fd.Token, Batch: content.Batch{
		Kind: content.KindDescription, Items: content.FallbackDescriptions(fd.Ref),
	}})
	if s.Stage != StageExplain || s.Score != 10 {
		t.Fatalf("stage %s score %d", s.Stage, s.Score)
	}
}

func TestSelectCard_Miss(t *testing.T) {
	m := NewMachine(testConfig())
	s := startRound(t, m)
	wrong := nonAnswerID(t, s.Round.Cards)

	s, effects := mustReduce(t, m, s, SelectCard{ID: wrong})
	if s.Score != 0 || s.Stage != StageFindWrong || s.Round.CardResolved {
		t.Fatalf("miss changed progress: score %d stage %s", s.Score, s.Stage)
	}
	if !s.Round.CardMiss || s.Round.MissID != wrong || s.TotalAnswers != 1 || s.CorrectAnswers != 0 {
		t.Fatalf("miss flags = %+v", s.Round)
	}
	first := onlyEffect[Schedule](t, effects).Event.(MissCleared)

	// A second miss before the first clears supersedes it.
	s, effects = mustReduce(t, m, s, SelectCard{ID: wrong})
	second := onlyEffect[Schedule](t, effects).Event.(MissCleared)

	if _, _, err := m.Reduce(s, first); !errors.Is(err, ErrStale) {
		t.Fatalf("old clear err = %v, want ErrStale", err)
	}
	s, _ = mustReduce(t, m, s, second)
	if s.Round.CardMiss || s.Round.MissID != "" {
		t.Fatal("miss not cleared")
	}
	if Accuracy(s) != 0 {
		t.Errorf("accuracy = %v", Accuracy(s))
	}
}

func TestSelectCard_Unknown(t *testing.T) {
	m := NewMachine(testConfig())
	mustReject(t, m, startRound(t, m), SelectCard{ID: "nope"})
}

func TestExplanation(t *testing.T) {
	m := NewMachine(testConfig())
	s := startRound(t, m)
	s, effects := mustReduce(t, m, s, SelectCard{ID: answerID(t, s.Round.Cards)})
	s, effects = mustReduce(t, m, s, onlyEffect[Schedule](t, effects).Event)
	fd := onlyEffect[FetchDescriptions](t, effects)
	s, _ = mustReduce(t, m, s, DescriptionsLoaded{Token: fd.Token, Batch: content.Batch{Items: content.FallbackDescriptions(fd.Ref)}})

	mustReject(t, m, s, SubmitExplanation{Text: "  "})
	mustReject(t, m, s, SelectOption{ID: "desc_1"})

	s, effects = mustReduce(t, m, s, SubmitExplanation{Text: "The picture shows a car"})
	eval := onlyEffect[EvaluateExplanation](t, effects)
	if eval.Ref.ImageDescription != "A red car on the street" || eval.Text != "The picture shows a car" {
		t.Fatalf("evaluate = %+v", eval)
	}
	mustReject(t, m, s, SubmitExplanation{Text: "again"})
	mustReject(t, m, s, SkipExplanation{})

	s, effects = mustReduce(t, m, s, FeedbackLoaded{Token: eval.Token, Feedback: content.Feedback{Text: "Good"}})
	if s.Round.Feedback == nil || s.Round.Feedback.Text != "Good" || s.Stage != StageExplain {
		t.Fatalf("feedback = %+v stage %s", s.Round.Feedback, s.Stage)
	}
	sched := onlyEffect[Schedule](t, effects)
	if sched.Delay != 20*time.Millisecond {
		t.Errorf("explain delay = %v", sched.Delay)
	}
	s, effects = mustReduce(t, m, s, sched.Event)
	if s.Stage != StageSelectCorrect || len(effects) != 0 || ActiveStep(s) != StepDescription {
		t.Fatalf("stage %s step %s", s.Stage, ActiveStep(s))
	}
}

func TestSkipExplanation_DuringFeedbackReveal(t *testing.T) {
	m := NewMachine(testConfig())
	s := startRound(t, m)
	s, effects := mustReduce(t, m, s, SelectCard{ID: answerID(t, s.Round.Cards)})
	s, effects = mustReduce(t, m, s, onlyEffect[Schedule](t, effects).Event)
	fd := onlyEffect[FetchDescriptions](t, effects)
	s, _ = mustReduce(t, m, s, DescriptionsLoaded{Token: fd.Token, Batch: content.Batch{Items: content.FallbackDescriptions(fd.Ref)}})

	s, effects = mustReduce(t, m, s, SubmitExplanation{Text: "car, not tree"})
	eval := onlyEffect[EvaluateExplanation](t, effects)
	s, effects = mustReduce(t, m, s, FeedbackLoaded{Token: eval.Token, Feedback: content.Feedback{Text: "Good"}})
	sched := onlyEffect[Schedule](t, effects)

	s, effects = mustReduce(t, m, s, SkipExplanation{})
	if s.Stage != StageSelectCorrect || s.Pending != nil || len(effects) != 0 {
		t.Fatalf("after skip: stage %s pending %+v effects %v", s.Stage, s.Pending, effects)
	}
	if s.Round.Feedback == nil || s.Round.Feedback.Text != "Good" {
		t.Fatalf("feedback lost: %+v", s.Round.Feedback)
	}

	after, _, err := m.Reduce(s, sched.Event)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("reveal timer after skip: err = %v, want ErrStale", err)
	}
	if after.Stage != StageSelectCorrect || ActiveStep(after) != StepDescription {
		t.Fatalf("stale timer changed state: stage %s step %s", after.Stage, ActiveStep(after))
	}
}

func TestFullRoundScoring(t *testing.T) {
	m := NewMachine(testConfig())
	s := toSelectCorrect(t, m)
	if s.Score != 10 {
		t.Fatalf("score = %d", s.Score)
	}
	if got := len(Options(s)); got != content.BatchSize {
		t.Fatalf("options = %d", got)
	}

	mustReject(t, m, s, SelectOption{ID: "word_1"})
	s, _ = mustReduce(t, m, s, SelectOption{ID: nonAnswerID(t, s.Round.Descriptions)})
	if s.Score != 10 || !s.Round.DescriptionMiss {
		t.Fatalf("description miss: score %d", s.Score)
	}

	s, effects := mustReduce(t, m, s, SelectOption{ID: answerID(t, s.Round.Descriptions)})
	if s.Score != 25 || !s.Round.DescriptionResolved || s.Round.DescriptionMiss {
		t.Fatalf("after description: score %d", s.Score)
	}
	s, effects = mustReduce(t, m, s, onlyEffect[Schedule](t, effects).Event)
	fw := onlyEffect[FetchWords](t, effects)
	s, _ = mustReduce(t, m, s, WordsLoaded{Token: fw.Token, Batch: content.Batch{Kind: content.KindWord, Items: content.FallbackWords(fw.Ref)}})
	if ActiveStep(s) != StepWord || Options(s)[0].Kind != content.KindWord {
		t.Fatalf("active step = %s", ActiveStep(s))
	}

	s, effects = mustReduce(t, m, s, SelectOption{ID: answerID(t, s.Round.Words)})
	if s.Score != 45 || !s.Round.Completed {
		t.Fatalf("after word: score %d completed %v", s.Score, s.Round.Completed)
	}
	if RoundsCompleted(s) != 1 || !s.History[0].Completed {
		t.Fatalf("history = %+v", s.History)
	}
	if s.Difficulty != 1.1 {
		t.Errorf("difficulty = %v", s.Difficulty)
	}
	next := onlyEffect[FetchCards](t, effects)
	if next.Token.RoundID != 2 || next.Difficulty != 1.1 || len(next.Recent) != 5 {
		t.Fatalf("next fetch = %+v", next)
	}
	mustReject(t, m, s, SelectOption{ID: answerID(t, s.Round.Words)})

	s, _ = mustReduce(t, m, s, CardsLoaded{Token: next.Token, Batch: cardBatch()})
	if s.Stage != StageFindWrong || s.Round.Number != 2 || s.Round.CardResolved || s.Score != 45 {
		t.Fatalf("round 2 = %+v", s.Round)
	}
	if s.CorrectAnswers != 3 || s.TotalAnswers != 4 || Accuracy(s) != 75 {
		t.Errorf("accuracy %d/%d", s.CorrectAnswers, s.TotalAnswers)
	}
}

func TestDifficultyCapped(t *testing.T) {
	cfg := testConfig()
	cfg.StartDifficulty = 2.95
	m := NewMachine(cfg)
	if got := m.raise(2.95); got != 3 {
		t.Fatalf("raise(2.95) = %v", got)
	}
	if got := m.raise(3); got != 3 {
		t.Fatalf("raise(3) = %v", got)
	}
	d := 1.0
	for range 10 {
		d = m.raise(d)
	}
	if d != 2 {
		t.Fatalf("ten steps from 1 = %v, want 2", d)
	}
}

func TestReset_DropsStaleResults(t *testing.T) {
	m := NewMachine(testConfig())
	s, effects := mustReduce(t, m, m.Initial(), SubmitTopic{Text: "Hayvanlar"})
	old := onlyEffect[FetchCards](t, effects)

	s, effects = mustReduce(t, m, s, Reset{})
	if len(effects) != 0 || s.Epoch != 1 || s.Stage != StageAwaitingTopic || Busy(s) || s.Topic != "" {
		t.Fatalf("after reset = %+v", s)
	}
	if _, _, err := m.Reduce(s, CardsLoaded{Token: old.Token, Batch: cardBatch()}); !errors.Is(err, ErrStale) {
		t.Fatalf("stale cards err = %v", err)
	}

	s, effects = mustReduce(t, m, s, SubmitTopic{Text: "Food"})
	fresh := onlyEffect[FetchCards](t, effects)
	if fresh.Token == old.Token {
		t.Fatal("token reused across reset")
	}
	if _, _, err := m.Reduce(s, CardsLoaded{Token: old.Token, Batch: cardBatch()}); !errors.Is(err, ErrStale) {
		t.Fatalf("stale cards after new topic err = %v", err)
	}
}

func TestReset_StaleTimer(t *testing.T) {
	m := NewMachine(testConfig())
	s := startRound(t, m)
	s, effects := mustReduce(t, m, s, SelectCard{ID: answerID(t, s.Round.Cards)})
	timer := onlyEffect[Schedule](t, effects).Event

	s, _ = mustReduce(t, m, s, Reset{KeepHistory: true})
	if _, _, err := m.Reduce(s, timer); !errors.Is(err, ErrStale) {
		t.Fatalf("stale timer err = %v", err)
	}
}

func TestReset_KeepHistory(t *testing.T) {
	m := NewMachine(testConfig())
	s := m.Initial()
	s.History = []Round{{ID: 1, Completed: true}}
	s.Score = 45

	kept, _ := mustReduce(t, m, s, Reset{KeepHistory: true})
	if len(kept.History) != 1 || kept.Score != 0 {
		t.Fatalf("keep: history %d score %d", len(kept.History), kept.Score)
	}
	cleared, _ := mustReduce(t, m, s, Reset{})
	if len(cleared.History) != 0 {
		t.Fatalf("full reset kept history")
	}
}

func TestWrongStageRejected(t *testing.T) {
	m := NewMachine(testConfig())
	s := m.Initial()
	mustReject(t, m, s, SelectCard{ID: "card_1"})
	mustReject(t, m, s, SubmitExplanation{Text: "x"})
	mustReject(t, m, s, SkipExplanation{})
	mustReject(t, m, s, SelectOption{ID: "desc_1"})
}

func TestStageStrings(t *testing.T) {
	if StageSelectCorrect.String() != "select_correct" || Stage(9).String() != "unknown" {
		t.Fatal("stage names")
	}
	if StepWord.String() != "word" || PendingReveal.String() != "reveal" {
		t.Fatal("step/pending names")
	}
	if StageIndex(State{Stage: StageExplain}) != 2 {
		t.Fatal("stage index")
	}
}
