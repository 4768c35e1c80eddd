package session

import (
	"github.com/abhisek/cardquiz/internal/quiz"
	"github.com/abhisek/cardquiz/internal/screen"
	"github.com/abhisek/cardquiz/internal/screens/summary"
)

// newSummaryScreenAdapter creates a summary screen from the current state.
func newSummaryScreenAdapter(st quiz.State) screen.Screen {
	return summary.New(summary.FromState(st))
}
