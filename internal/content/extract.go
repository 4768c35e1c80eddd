package content

import (
	"encoding/json"
	"errors"
	"regexp"
)

// ErrNoJSON means the model text contained no array or object literal.
var ErrNoJSON = errors.New("no JSON literal in model output")

// jsonLiteral is greedy on purpose: it spans from the first opening bracket
// to the last matching closing bracket of the same type.
var jsonLiteral = regexp.MustCompile(`\[[\s\S]*\]|\{[\s\S]*\}`)

// Extract returns the first JSON array or object literal in text. It does
// not check that the literal parses.
func Extract(text string) (json.RawMessage, error) {
	m := jsonLiteral.FindString(text)
	if m == "" {
		return nil, ErrNoJSON
	}
	return json.RawMessage(m), nil
}
