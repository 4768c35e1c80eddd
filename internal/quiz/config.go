package quiz

import "time"

// Points awarded per resolved step.
type Points struct {
	Card        int
	Description int
	Word        int
}

// Config controls scoring, pacing and difficulty.
type Config struct {
	Points Points

	RevealDelay  time.Duration
	ExplainDelay time.Duration

	// FetchTimeout bounds each content request the engine makes.
	FetchTimeout time.Duration

	StartDifficulty float64
	DifficultyStep  float64
	MaxDifficulty   float64

	// MaxRecent is how many past card sentences are kept for the
	// do-not-repeat list.
	MaxRecent int
}

// DefaultConfig returns the standard scoring table and delays.
func DefaultConfig() Config {
	return Config{
		Points:          Points{Card: 10, Description: 15, Word: 20},
		RevealDelay:     1500 * time.Millisecond,
		ExplainDelay:    2000 * time.Millisecond,
		FetchTimeout:    30 * time.Second,
		StartDifficulty: 1,
		DifficultyStep:  0.1,
		MaxDifficulty:   3,
		MaxRecent:       10,
	}
}
