package content

import (
	"errors"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare array", `[1,2]`, `[1,2]`},
		{"prose around array", "Here you go:\n[{\"id\":\"a\"}]\nEnjoy!", `[{"id":"a"}]`},
		{"markdown fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"object", `result: {"a": [1]}`, `{"a": [1]}`},
		{"array wins when first", `[{"a":1}] and {"b":2}`, `[{"a":1}]`},
		{"greedy to last bracket", `[1] text [2]`, `[1] text [2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.in)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("Extract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_NoLiteral(t *testing.T) {
	if _, err := Extract("sorry, I cannot help with that"); !errors.Is(err, ErrNoJSON) {
		t.Fatalf("err = %v, want ErrNoJSON", err)
	}
}
