package content

import (
	"fmt"
	"strings"
	"testing"
)

func TestDifficultyTier(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0, "easy"},
		{1, "easy"},
		{1.9, "easy"},
		{2, "medium"},
		{2.5, "medium"},
		{3, "hard"},
		{4, "easy"},
		{-1, "easy"},
	}
	for _, tt := range tests {
		if got := DifficultyTier(tt.level); got != tt.want {
			t.Errorf("DifficultyTier(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestBuildCardPrompt(t *testing.T) {
	var recent []string
	for i := 1; i <= 12; i++ {
		recent = append(recent, fmt.Sprintf("Sentence number %d.", i))
	}
	p := buildCardPrompt("Hayvanlar", 2.3, recent, DefaultConfig())

	for _, want := range []string{"Topic: Hayvanlar", "Difficulty: medium", "Turkish", "English", `"isCorrect"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// Only the last 10 sentences are listed.
	if strings.Contains(p, "Sentence number 1.") || strings.Contains(p, "Sentence number 2.") {
		t.Error("prompt should drop the oldest sentences")
	}
	for i := 3; i <= 12; i++ {
		if !strings.Contains(p, fmt.Sprintf("Sentence number %d.", i)) {
			t.Errorf("prompt missing recent sentence %d", i)
		}
	}
}

func TestBuildCardPrompt_NoRecent(t *testing.T) {
	p := buildCardPrompt("Food", 1, nil, DefaultConfig())
	if !strings.Contains(p, "Do not repeat these sentences:\nNone") {
		t.Errorf("expected None marker, got:\n%s", p)
	}
}

func TestBuildPromptsEmbedReference(t *testing.T) {
	ref := Item{Kind: KindCard, ImageDescription: "A red car on the street", PrimaryText: "The tree is very tall.", SecondaryText: "Ağaç çok uzun."}
	cfg := DefaultConfig()

	if p := buildDescriptionPrompt(ref, "t", cfg); !strings.Contains(p, ref.ImageDescription) {
		t.Error("description prompt missing picture")
	}
	if p := buildWordPrompt(ref, "t", cfg); !strings.Contains(p, ref.ImageDescription) {
		t.Error("word prompt missing picture")
	}
	if p := buildImagePrompt(ref, "t", cfg); !strings.Contains(p, ref.PrimaryText) {
		t.Error("image prompt missing sentence")
	}
	p := buildExplanationPrompt(ref, "the picture shows a car", "t", cfg)
	for _, want := range []string{ref.ImageDescription, ref.PrimaryText, ref.SecondaryText, "the picture shows a car"} {
		if !strings.Contains(p, want) {
			t.Errorf("explanation prompt missing %q", want)
		}
	}
}
