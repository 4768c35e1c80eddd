package session

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/quiz"
	"github.com/abhisek/cardquiz/internal/ui/components"
	"github.com/abhisek/cardquiz/internal/ui/layout"
	"github.com/abhisek/cardquiz/internal/ui/theme"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (s *SessionScreen) View(width, height int) string {
	if s.errMsg != "" {
		return renderError(width, height, s.errMsg)
	}

	cw := components.ContentWidth(width)
	var sections []string

	progress := components.NewProgressBar(
		fmt.Sprintf("Stage %d/%d", quiz.StageIndex(s.state)+1, quiz.StageCount),
		float64(quiz.StageIndex(s.state))/float64(quiz.StageCount-1),
		false, cw,
	)
	sections = append(sections, progress.View())

	if info := s.renderInfo(); info != "" {
		sections = append(sections, info)
	}
	sections = append(sections, "")

	switch s.state.Stage {
	case quiz.StageAwaitingTopic:
		sections = append(sections, s.renderTopic(cw))
	case quiz.StageFindWrong:
		sections = append(sections, s.renderOptions(cw, "Which card does not match its picture?"))
	case quiz.StageExplain:
		sections = append(sections, s.renderExplain(cw))
	case quiz.StageSelectCorrect:
		sections = append(sections, s.renderSelectCorrect(cw))
	}

	if s.message != "" {
		style := theme.Incorrect
		if s.messageGood {
			style = theme.Correct
		}
		sections = append(sections, "", style.Render(s.message))
	}

	body := strings.Join(sections, "\n")
	if !layout.IsCompactWidth(width) {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "    ", RenderMascot(s.mascot))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func (s *SessionScreen) renderInfo() string {
	st := s.state
	if st.Topic == "" {
		return ""
	}
	parts := []string{
		lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render("Topic: " + st.Topic),
	}
	if st.Round != nil {
		parts = append(parts, theme.Faded.Render(fmt.Sprintf("Round %d", st.Round.Number)))
	}
	parts = append(parts, theme.Faded.Render("Level: "+content.DifficultyTier(st.Difficulty)))
	if st.Round != nil && st.Round.Degraded {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.Accent).Render("offline content"))
	}
	return strings.Join(parts, "   ")
}

func (s *SessionScreen) renderTopic(cw int) string {
	if quiz.Busy(s.state) {
		return s.renderLoading("Preparing your cards")
	}
	var b strings.Builder
	b.WriteString(theme.Body.Bold(true).Render("What would you like to practise?"))
	b.WriteString("\n\n")
	b.WriteString(s.input.View())
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("or pick a sample topic:"))
	b.WriteString("\n")
	b.WriteString(s.topics.View())
	return components.ArcadeCard(b.String(), cw)
}

func (s *SessionScreen) renderOptions(cw int, prompt string) string {
	if len(s.options.Items) == 0 {
		return s.renderLoading("Loading")
	}
	var b strings.Builder
	b.WriteString(theme.Body.Bold(true).Render(prompt))
	b.WriteString("\n\n")
	b.WriteString(s.options.View(cw))
	return b.String()
}

func (s *SessionScreen) renderExplain(cw int) string {
	r := s.state.Round
	if r == nil {
		return ""
	}
	var b strings.Builder
	if wrong, ok := r.WrongCard(); ok {
		b.WriteString(theme.Body.Bold(true).Render("You found it:"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s  %s → %s", wrong.Glyph, wrong.ImageDescription, wrong.PrimaryText))
		b.WriteString("\n\n")
	}

	switch {
	case r.Feedback != nil:
		b.WriteString(theme.Body.Bold(true).Render("Feedback"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(cw - 6).Foreground(theme.Text).Render(r.Feedback.Text))
	case r.ExplanationSubmitted:
		b.WriteString(s.renderLoading("Reading your explanation"))
	default:
		b.WriteString(theme.Body.Render("Why doesn't this sentence match the picture?"))
		b.WriteString("\n\n")
		b.WriteString(s.input.View())
	}
	return components.ArcadeCard(b.String(), cw)
}

func (s *SessionScreen) renderSelectCorrect(cw int) string {
	r := s.state.Round
	var b strings.Builder
	if wrong, ok := r.WrongCard(); ok {
		b.WriteString(theme.Faded.Render("Sentence: " + wrong.PrimaryText))
		b.WriteString("\n\n")
	}
	prompt := "Which description matches the picture?"
	if len(s.options.Items) > 0 && s.options.Items[0].Kind == content.KindWord {
		prompt = "Which word fits?"
	}
	b.WriteString(s.renderOptions(cw, prompt))
	return b.String()
}

func (s *SessionScreen) renderLoading(label string) string {
	frame := spinnerFrames[s.spinnerFrame%len(spinnerFrames)]
	return lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(frame + " " + label + "...")
}

// renderError renders an error message.
func renderError(width, height int, errMsg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n\n  Error: %s\n\n  Press any key to quit.", errMsg))
}
