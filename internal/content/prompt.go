package content

import (
	"fmt"
	"math"
	"strings"
)

const batchSystemPrompt = `You write content for a picture flashcard language-learning quiz.

Rules:
- Reply with JSON only. No markdown fences, no commentary.
- Keep sentences short and concrete so a picture can show them.
- Every item must be different from the others.`

const feedbackSystemPrompt = `You are a friendly language teacher reviewing a learner's reasoning in a picture flashcard quiz.

Rules:
- Reply in plain text only. No JSON, no markdown.
- Two or three short sentences, encouraging and concrete.`

// systemPromptFor returns the system prompt for requests of kind.
func systemPromptFor(kind Kind) string {
	if kind == KindExplanation {
		return feedbackSystemPrompt
	}
	return batchSystemPrompt
}

// DifficultyTier maps a numeric level to its prompt wording.
func DifficultyTier(level float64) string {
	switch int(math.Floor(level)) {
	case 2:
		return "medium"
	case 3:
		return "hard"
	default:
		return "easy"
	}
}

func buildCardPrompt(topic string, difficulty float64, recent []string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create 5 flashcards for a %s speaker learning %s.\n\n", cfg.NativeLanguage, cfg.TargetLanguage)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Difficulty: %s\n", DifficultyTier(difficulty))

	b.WriteString("\nEach card has a picture description, a short ")
	fmt.Fprintf(&b, "%s sentence and its %s translation.\n", cfg.TargetLanguage, cfg.NativeLanguage)
	b.WriteString("Four cards match: the sentence describes the picture (isCorrect: true).\n")
	b.WriteString("Exactly one card is mismatched: its sentence is about something completely different from its picture (isCorrect: false).\n")

	b.WriteString("\nDo not repeat these sentences:\n")
	b.WriteString(buildRecent(recent, cfg.MaxRecent))

	b.WriteString("\n\nRespond with a JSON array of 5 objects:\n")
	b.WriteString(`[{"id": "card_1", "imageDescription": "...", "sentence": "...", "translation": "...", "isCorrect": true}]`)
	return b.String()
}

func buildDescriptionPrompt(ref Item, topic string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Picture: %q\n\n", ref.ImageDescription)
	fmt.Fprintf(&b, "Write 5 one-sentence %s descriptions of a picture.\n", cfg.NativeLanguage)
	b.WriteString("Exactly one describes the picture above correctly (isCorrect: true).\n")
	b.WriteString("The other four describe different things and act as distractors (isCorrect: false).\n")

	b.WriteString("\nRespond with a JSON array of 5 objects:\n")
	b.WriteString(`[{"id": "desc_1", "text": "...", "isCorrect": true}]`)
	return b.String()
}

func buildWordPrompt(ref Item, topic string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Picture: %q\n\n", ref.ImageDescription)
	fmt.Fprintf(&b, "Give the %s word for the main object in the picture (isCorrect: true) ", cfg.TargetLanguage)
	fmt.Fprintf(&b, "and 4 distractor %s words (isCorrect: false).\n", cfg.TargetLanguage)
	fmt.Fprintf(&b, "Add the %s translation of each word.\n", cfg.NativeLanguage)

	b.WriteString("\nRespond with a JSON array of 5 objects:\n")
	b.WriteString(`[{"id": "word_1", "text": "...", "translation": "...", "isCorrect": true}]`)
	return b.String()
}

func buildImagePrompt(ref Item, topic string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Sentence: %q\n", ref.PrimaryText)
	fmt.Fprintf(&b, "Mismatched picture: %q\n\n", ref.ImageDescription)
	b.WriteString("Describe 5 pictures. Exactly one shows what the sentence says (isCorrect: true).\n")
	b.WriteString("The other four are distractors (isCorrect: false). One of them may be the mismatched picture.\n")
	fmt.Fprintf(&b, "Give each picture a %s label of one or two words.\n", cfg.NativeLanguage)

	b.WriteString("\nRespond with a JSON array of 5 objects:\n")
	b.WriteString(`[{"id": "img_1", "imageDescription": "...", "label": "...", "isCorrect": true}]`)
	return b.String()
}

func buildExplanationPrompt(ref Item, userText, topic string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", topic)
	b.WriteString("The learner picked the mismatched card:\n")
	fmt.Fprintf(&b, "- Picture: %s\n", ref.ImageDescription)
	fmt.Fprintf(&b, "- Sentence: %s\n", ref.PrimaryText)
	if ref.SecondaryText != "" {
		fmt.Fprintf(&b, "- Translation: %s\n", ref.SecondaryText)
	}
	fmt.Fprintf(&b, "\nTheir explanation of why it does not match:\n%s\n\n", userText)
	fmt.Fprintf(&b, "Reply in %s with one or two short, encouraging sentences of feedback. ", cfg.NativeLanguage)
	b.WriteString("Plain text only.")
	return b.String()
}

// buildRecent formats the most recent sentences, oldest first.
func buildRecent(recent []string, max int) string {
	if max > 0 && len(recent) > max {
		recent = recent[len(recent)-max:]
	}
	if len(recent) == 0 {
		return "None"
	}

	var b strings.Builder
	for i, s := range recent {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}
