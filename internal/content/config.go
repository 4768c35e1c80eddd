package content

import "time"

// Config controls prompt construction and model calls.
type Config struct {
	// Timeout bounds a single model call. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration

	MaxTokens   int
	Temperature float64

	// MaxRecent caps how many previously used sentences go into the card
	// prompt.
	MaxRecent int

	// NativeLanguage is the learner's language; TargetLanguage is the one
	// being learned.
	NativeLanguage string
	TargetLanguage string
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		Timeout:        20 * time.Second,
		MaxTokens:      2048,
		Temperature:    0.7,
		MaxRecent:      10,
		NativeLanguage: "Turkish",
		TargetLanguage: "English",
	}
}
