package content

import (
	"sync"

	"github.com/abhisek/cardquiz/internal/llm"
)

var (
	schemasMu sync.Mutex
	schemas   = map[Kind]*llm.Schema{}
)

// BatchSchema is the shape every batch response must have: an array of
// exactly BatchSize objects. Field presence is not enforced here; missing
// fields get defaults during normalization.
func BatchSchema(kind Kind) *llm.Schema {
	schemasMu.Lock()
	defer schemasMu.Unlock()

	if s, ok := schemas[kind]; ok {
		return s
	}
	s := &llm.Schema{
		Name:        string(kind) + "-batch",
		Description: "A batch of " + string(kind) + " quiz options",
		Definition: map[string]any{
			"type":     "array",
			"minItems": BatchSize,
			"maxItems": BatchSize,
			"items":    map[string]any{"type": "object"},
		},
	}
	schemas[kind] = s
	return s
}
