package summary

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/quiz"
	"github.com/abhisek/cardquiz/internal/router"
)

func testState() quiz.State {
	return quiz.State{
		Topic:          "Hayvanlar",
		Score:          45,
		Difficulty:     1.1,
		CorrectAnswers: 3,
		TotalAnswers:   4,
		History: []quiz.Round{
			{
				ID:     1,
				Number: 1,
				Topic:  "Hayvanlar",
				Cards: content.Batch{Items: []content.Item{
					{ID: "card_1", Kind: content.KindCard, PrimaryText: "The tree is very tall."},
				}},
				SelectedCard: "card_1",
				CardResolved: true,
				Completed:    true,
				Degraded:     true,
			},
		},
	}
}

func TestFromState(t *testing.T) {
	sum := FromState(testState())
	if sum.Score != 45 || sum.Accuracy != 75 {
		t.Fatalf("score=%d accuracy=%v", sum.Score, sum.Accuracy)
	}
	if sum.Level != "easy" {
		t.Errorf("level = %q", sum.Level)
	}
	if len(sum.Rounds) != 1 || sum.Rounds[0].Sentence != "The tree is very tall." {
		t.Fatalf("rounds = %+v", sum.Rounds)
	}
}

func TestSummaryScreen_Title(t *testing.T) {
	s := New(FromState(testState()))
	if s.Title() != "Session Summary" {
		t.Errorf("Title = %q, want %q", s.Title(), "Session Summary")
	}
}

func TestSummaryScreen_Display(t *testing.T) {
	s := New(FromState(testState()))
	view := s.View(100, 30)
	if !strings.Contains(view, "Score: 45") {
		t.Errorf("expected score in view, got %q", view)
	}
	if !strings.Contains(view, "The tree is very tall.") {
		t.Error("expected round sentence in view")
	}
}

func TestSummaryScreen_EmptyHistory(t *testing.T) {
	s := New(FromState(quiz.State{}))
	if !strings.Contains(s.View(80, 24), "No rounds finished yet.") {
		t.Error("expected empty history hint")
	}
}

func TestSummaryScreen_EnterPops(t *testing.T) {
	s := New(FromState(testState()))
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command on Enter")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Fatal("expected PopScreenMsg")
	}
}

func TestSummaryScreen_QuitButton(t *testing.T) {
	s := New(FromState(testState()))
	s.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected QuitMsg")
	}
}

func TestSummaryScreen_KeyHints(t *testing.T) {
	s := New(FromState(testState()))
	if len(s.KeyHints()) != 3 {
		t.Errorf("KeyHints length = %d, want 3", len(s.KeyHints()))
	}
}
