package quiz

import (
	"time"

	"github.com/abhisek/cardquiz/internal/content"
)

// Effect is work Reduce asks the orchestrator to do. Its result comes back
// as an Event carrying the same Token.
type Effect interface {
	effect()
}

type FetchCards struct {
	Token      Token
	Topic      string
	Difficulty float64
	Recent     []string
}

type FetchDescriptions struct {
	Token Token
	Ref   content.Item
	Topic string
}

type FetchWords struct {
	Token Token
	Ref   content.Item
	Topic string
}

type EvaluateExplanation struct {
	Token Token
	Ref   content.Item
	Text  string
	Topic string
}

// Schedule delivers Event after Delay.
type Schedule struct {
	Delay time.Duration
	Event Event
}

func (FetchCards) effect()          {}
func (FetchDescriptions) effect()   {}
func (FetchWords) effect()          {}
func (EvaluateExplanation) effect() {}
func (Schedule) effect()            {}
