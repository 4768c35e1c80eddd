// Package summary shows the scoreboard for the current quiz session.
package summary

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/quiz"
	"github.com/abhisek/cardquiz/internal/router"
	"github.com/abhisek/cardquiz/internal/screen"
	"github.com/abhisek/cardquiz/internal/ui/components"
	"github.com/abhisek/cardquiz/internal/ui/layout"
	"github.com/abhisek/cardquiz/internal/ui/theme"
)

// RoundResult is one finished or abandoned round.
type RoundResult struct {
	Number    int
	Topic     string
	Sentence  string
	Completed bool
	Degraded  bool
}

// Summary is what the screen displays.
type Summary struct {
	Topic          string
	Score          int
	CorrectAnswers int
	TotalAnswers   int
	Accuracy       float64 // percent
	Level          string
	Rounds         []RoundResult
}

// FromState builds a Summary from the session history.
func FromState(st quiz.State) *Summary {
	sum := &Summary{
		Topic:          st.Topic,
		Score:          st.Score,
		CorrectAnswers: st.CorrectAnswers,
		TotalAnswers:   st.TotalAnswers,
		Accuracy:       quiz.Accuracy(st),
		Level:          content.DifficultyTier(st.Difficulty),
	}
	for i := range st.History {
		r := &st.History[i]
		res := RoundResult{
			Number:    r.Number,
			Topic:     r.Topic,
			Completed: r.Completed,
			Degraded:  r.Degraded,
		}
		if wrong, ok := r.WrongCard(); ok {
			res.Sentence = wrong.PrimaryText
		}
		sum.Rounds = append(sum.Rounds, res)
	}
	return sum
}

// SummaryScreen displays the session summary.
type SummaryScreen struct {
	summary  *Summary
	selected int
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(summary *Summary) *SummaryScreen {
	return &SummaryScreen{summary: summary}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "←→", Description: "Choose"},
		{Key: "Enter", Description: "Confirm"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "left", "right", "tab":
			s.selected = 1 - s.selected
		case "enter":
			if s.selected == 1 {
				return s, tea.Quit
			}
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "q":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	sum := s.summary
	if sum == nil {
		return ""
	}

	var b strings.Builder
	center := func(str string) {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, str))
		b.WriteString("\n")
	}

	center(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("Your progress"))
	b.WriteString("\n")

	if sum.Topic != "" {
		center(theme.Faded.Render(fmt.Sprintf("Topic: %s    Level: %s", sum.Topic, sum.Level)))
		b.WriteString("\n")
	}

	center(theme.Body.Render(fmt.Sprintf("Score: %d        Correct: %d/%d        Accuracy: %.0f%%",
		sum.Score, sum.CorrectAnswers, sum.TotalAnswers, sum.Accuracy)))
	b.WriteString("\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(
		strings.Repeat("─", min(width-8, 60)))
	center(theme.Faded.Render("Rounds"))
	center(divider)
	b.WriteString("\n")

	if len(sum.Rounds) == 0 {
		center(theme.Hint.Render("No rounds finished yet."))
	}
	for _, r := range sum.Rounds {
		status := "✓"
		if !r.Completed {
			status = "…"
		}
		line := fmt.Sprintf("%s  Round %d  %s", status, r.Number, r.Sentence)
		if r.Degraded {
			line += "  (offline)"
		}
		center(lipgloss.NewStyle().Foreground(roundColor(r)).Render(line))
	}

	b.WriteString("\n")
	bw := min(20, (width-8)/2)
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		components.ArcadeButton("Keep playing", s.selected == 0, bw),
		"  ",
		components.ArcadeButton("Quit", s.selected == 1, bw),
	)
	center(buttons)

	return b.String()
}

func roundColor(r RoundResult) color.Color {
	switch {
	case !r.Completed:
		return theme.TextDim
	case r.Degraded:
		return theme.Accent
	default:
		return theme.Success
	}
}
