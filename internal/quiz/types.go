// Package quiz holds the round progression state machine. Machine.Reduce is
// a pure function from (State, Event) to the next State plus the Effects an
// orchestrator must perform; Engine is that orchestrator.
package quiz

import (
	"fmt"

	"github.com/abhisek/cardquiz/internal/content"
)

// Stage is the step of the round the learner is on.
type Stage int

const (
	StageAwaitingTopic Stage = iota
	StageFindWrong
	StageExplain
	StageSelectCorrect
)

var stageNames = [...]string{"awaiting_topic", "find_wrong", "explain", "select_correct"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// MarshalText lets stages appear by name in JSON.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(b []byte) error {
	i, err := indexOf(stageNames[:], string(b), "stage")
	*s = Stage(i)
	return err
}

// Step identifies a resolvable part of a round.
type Step int

const (
	StepNone Step = iota
	StepCard
	StepExplain
	StepDescription
	StepWord
)

var stepNames = [...]string{"none", "card", "explain", "description", "word"}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return "unknown"
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Step) UnmarshalText(b []byte) error {
	i, err := indexOf(stepNames[:], string(b), "step")
	*s = Step(i)
	return err
}

func indexOf(names []string, name, what string) (int, error) {
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, name)
}

// Token ties an asynchronous result to the session epoch and round that
// asked for it.
type Token struct {
	Epoch   uint64 `json:"epoch"`
	RoundID int    `json:"round_id"`
}

// PendingKind is what the session is waiting on.
type PendingKind int

const (
	PendingCards PendingKind = iota + 1
	PendingDescriptions
	PendingWords
	PendingFeedback
	PendingReveal
)

var pendingNames = map[PendingKind]string{
	PendingCards:        "cards",
	PendingDescriptions: "descriptions",
	PendingWords:        "words",
	PendingFeedback:     "feedback",
	PendingReveal:       "reveal",
}

func (k PendingKind) String() string {
	if n, ok := pendingNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k PendingKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PendingKind) UnmarshalText(b []byte) error {
	for kind, n := range pendingNames {
		if n == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown pending kind %q", b)
}

// Pending is the single outstanding fetch or reveal timer. While it is set
// learner input for the round is rejected.
type Pending struct {
	Kind  PendingKind `json:"kind"`
	Step  Step        `json:"step,omitempty"`
	Token Token       `json:"token"`
}

// Round is one pass through the stages.
type Round struct {
	ID         int     `json:"id"`
	Number     int     `json:"number"`
	Topic      string  `json:"topic"`
	Difficulty float64 `json:"difficulty"`

	Cards        content.Batch `json:"cards"`
	SelectedCard string        `json:"selected_card,omitempty"`
	CardResolved bool          `json:"card_resolved"`
	CardMiss     bool          `json:"card_miss"`

	Explanation          string            `json:"explanation,omitempty"`
	ExplanationSubmitted bool              `json:"explanation_submitted"`
	Feedback             *content.Feedback `json:"feedback,omitempty"`

	Descriptions        content.Batch `json:"descriptions"`
	SelectedDescription string        `json:"selected_description,omitempty"`
	DescriptionResolved bool          `json:"description_resolved"`
	DescriptionMiss     bool          `json:"description_miss"`

	Words        content.Batch `json:"words"`
	SelectedWord string        `json:"selected_word,omitempty"`
	WordResolved bool          `json:"word_resolved"`
	WordMiss     bool          `json:"word_miss"`
	Completed    bool          `json:"completed"`

	// Degraded is set when any batch of the round came from a fallback.
	Degraded bool `json:"degraded"`

	// MissID is the last wrongly picked item; MissSeq numbers misses so a
	// late clear timer cannot wipe a newer miss.
	MissID  string `json:"miss_id,omitempty"`
	MissSeq int    `json:"miss_seq"`
}

// WrongCard returns the card the learner found, if resolved.
func (r *Round) WrongCard() (content.Item, bool) {
	if r == nil || !r.CardResolved {
		return content.Item{}, false
	}
	return r.Cards.Find(r.SelectedCard)
}

// State is the whole session. Values are never mutated after Reduce returns
// them; slices and rounds may be shared between successive states.
type State struct {
	Epoch      uint64  `json:"epoch"`
	Stage      Stage   `json:"stage"`
	Topic      string  `json:"topic"`
	Score      int     `json:"score"`
	Difficulty float64 `json:"difficulty"`

	Round   *Round  `json:"round,omitempty"`
	History []Round `json:"history"`

	RecentSentences []string `json:"recent_sentences"`
	Pending         *Pending `json:"pending,omitempty"`

	CorrectAnswers int `json:"correct_answers"`
	TotalAnswers   int `json:"total_answers"`

	NextRoundID int `json:"next_round_id"`
}
