package quiz

import "github.com/abhisek/cardquiz/internal/content"

// Options returns the items the learner can pick from right now.
func Options(s State) []content.Item {
	if s.Round == nil {
		return nil
	}
	switch ActiveStep(s) {
	case StepCard:
		return s.Round.Cards.Items
	case StepDescription:
		return s.Round.Descriptions.Items
	case StepWord:
		return s.Round.Words.Items
	}
	return nil
}

// ActiveStep is the step the learner's next input applies to.
func ActiveStep(s State) Step {
	switch s.Stage {
	case StageFindWrong:
		return StepCard
	case StageExplain:
		return StepExplain
	case StageSelectCorrect:
		return activeOptionStep(s.Round)
	}
	return StepNone
}

// Busy reports whether a fetch or reveal is outstanding. Front ends should
// disable input while it is true.
func Busy(s State) bool { return s.Pending != nil }

// Accuracy is the percentage of picks that were right.
func Accuracy(s State) float64 {
	if s.TotalAnswers == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) * 100 / float64(s.TotalAnswers)
}

// StageIndex is the stage's position in the round, starting at 0 for the
// topic prompt.
func StageIndex(s State) int { return int(s.Stage) }

// StageCount is the number of stages StageIndex ranges over.
const StageCount = 4

// AnswerOf returns the item the learner has to find in b.
func AnswerOf(b content.Batch) (content.Item, bool) { return b.Answer() }

// RoundsCompleted counts finished rounds in the session history.
func RoundsCompleted(s State) int { return len(s.History) }
