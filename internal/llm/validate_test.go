package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-option",
		Description: "A single answer option",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":      map[string]any{"type": "string"},
				"votes":     map[string]any{"type": "integer", "minimum": 0},
				"kind":      map[string]any{"type": "string", "enum": []any{"card", "word", "description"}},
				"isCorrect": map[string]any{"type": "boolean"},
			},
			"required": []any{"text", "votes"},
		},
	}
}

func TestValidateJSON_ValidJSON(t *testing.T) {
	raw := json.RawMessage(`{"text":"Dog","votes":3,"kind":"word","isCorrect":true}`)
	if err := ValidateJSON(testSchema(), raw); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateJSON_ValidWithoutOptional(t *testing.T) {
	raw := json.RawMessage(`{"text":"Cat","votes":0}`)
	if err := ValidateJSON(testSchema(), raw); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateJSON_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing required", `{"text":"Sun"}`},
		{"wrong type", `{"text":"Sun","votes":"three"}`},
		{"invalid enum", `{"text":"Sun","votes":1,"kind":"image"}`},
		{"malformed", `{not json}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(testSchema(), json.RawMessage(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			var invErr *ErrInvalidResponse
			if !errors.As(err, &invErr) {
				t.Fatalf("expected ErrInvalidResponse, got: %T", err)
			}
		})
	}
}

func TestValidateJSON_EmptyResponse(t *testing.T) {
	if err := ValidateJSON(testSchema(), json.RawMessage(``)); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestValidateJSON_NilSchema(t *testing.T) {
	raw := json.RawMessage(`{"anything":"goes"}`)
	if err := ValidateJSON(nil, raw); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateJSON_FixedLengthArray(t *testing.T) {
	schema := &Schema{
		Name: "test-five-objects",
		Definition: map[string]any{
			"type":     "array",
			"minItems": 5,
			"maxItems": 5,
			"items":    map[string]any{"type": "object"},
		},
	}

	valid := json.RawMessage(`[{},{},{},{},{"id":"x"}]`)
	if err := ValidateJSON(schema, valid); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	short := json.RawMessage(`[{},{},{},{}]`)
	if err := ValidateJSON(schema, short); err == nil {
		t.Fatal("expected error for four elements")
	}

	scalars := json.RawMessage(`[1,2,3,4,5]`)
	if err := ValidateJSON(schema, scalars); err == nil {
		t.Fatal("expected error for non-object elements")
	}
}
