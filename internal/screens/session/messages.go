package session

import (
	"time"

	"github.com/abhisek/cardquiz/internal/quiz"
)

// stateMsg carries a state committed by the engine.
type stateMsg struct {
	State quiz.State
}

// updatesClosedMsg is sent when the engine stops publishing.
type updatesClosedMsg struct{}

// dispatchedMsg reports the engine's verdict on a learner event.
type dispatchedMsg struct {
	Event    quiz.Event
	Feedback string
	Hit      bool
	Err      error
}

// spinnerTickMsg is sent at short intervals to animate the loading spinner.
type spinnerTickMsg time.Time
