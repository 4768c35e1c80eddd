package session

import "math/rand/v2"

// SampleTopics are offered on the topic stage and the welcome splash.
var SampleTopics = []string{
	"İngilizce kelimeler",
	"Matematik formülleri",
	"Tarih olayları",
	"Coğrafya bilgileri",
	"Bilim kavramları",
	"Müzik terminolojisi",
}

type feedbackKind int

const (
	cardHit feedbackKind = iota
	cardMiss
	optionHit
	optionMiss
)

var feedbackMessages = map[feedbackKind][]string{
	cardHit: {
		"Great! You found the mismatched card! 🎉",
		"Perfect! You caught the wrong pairing! 🌟",
		"Bravo! Sharp eyes! 👏",
	},
	cardMiss: {
		"That card is paired correctly. Try again! 🔍",
		"No, that one matches. Look closer! 👀",
	},
	optionHit: {
		"Great! That's the right one! 🎯",
		"Perfect! It matches the sentence! ✨",
		"Bravo! Right choice! 🏆",
	},
	optionMiss: {
		"Not this one. Try again! 🔄",
		"Read the sentence again and pick the match! 📝",
	},
}

// pickFeedback returns a random message of the given kind.
func pickFeedback(rng *rand.Rand, kind feedbackKind) string {
	msgs := feedbackMessages[kind]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[rng.IntN(len(msgs))]
}
