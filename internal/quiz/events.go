package quiz

import "github.com/abhisek/cardquiz/internal/content"

// Event is anything Reduce accepts.
type Event interface {
	EventName() string
}

// Learner events.

type SubmitTopic struct{ Text string }

type SelectCard struct{ ID string }

type SubmitExplanation struct{ Text string }

type SkipExplanation struct{}

// SelectOption picks a description, or a word once the description step is
// resolved.
type SelectOption struct{ ID string }

type Reset struct{ KeepHistory bool }

// Engine events. Each carries the token of the request that produced it.

type CardsLoaded struct {
	Token Token
	Batch content.Batch
}

type DescriptionsLoaded struct {
	Token Token
	Batch content.Batch
}

type WordsLoaded struct {
	Token Token
	Batch content.Batch
}

type FeedbackLoaded struct {
	Token    Token
	Feedback content.Feedback
}

// RevealElapsed fires when the reveal delay after a resolved step is over.
type RevealElapsed struct {
	Token Token
	Step  Step
}

// MissCleared removes the transient miss flag numbered Seq.
type MissCleared struct {
	Token Token
	Seq   int
}

func (SubmitTopic) EventName() string        { return "submit_topic" }
func (SelectCard) EventName() string         { return "select_card" }
func (SubmitExplanation) EventName() string  { return "submit_explanation" }
func (SkipExplanation) EventName() string    { return "skip_explanation" }
func (SelectOption) EventName() string       { return "select_option" }
func (Reset) EventName() string              { return "reset" }
func (CardsLoaded) EventName() string        { return "cards_loaded" }
func (DescriptionsLoaded) EventName() string { return "descriptions_loaded" }
func (WordsLoaded) EventName() string        { return "words_loaded" }
func (FeedbackLoaded) EventName() string     { return "feedback_loaded" }
func (RevealElapsed) EventName() string      { return "reveal_elapsed" }
func (MissCleared) EventName() string        { return "miss_cleared" }
