package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
// Results are returned newest first.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// GenerationEventData captures one content generation outcome: which kind
// of batch was produced, whether it came from the model or a fallback
// table, and why a fallback was used.
type GenerationEventData struct {
	Kind      string
	Origin    string
	Reason    string
	Topic     string
	ItemCount int
	LatencyMs int64
}

// GenerationEvent is a stored generation outcome.
type GenerationEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	GenerationEventData
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// GenerationStat aggregates generation outcomes per kind and origin.
type GenerationStat struct {
	Kind         string
	Origin       string
	Count        int
	AvgLatencyMs int64
}

// LLMEventAppender records LLM API calls.
type LLMEventAppender interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// GenerationEventAppender records content generation outcomes.
type GenerationEventAppender interface {
	AppendGeneration(ctx context.Context, data GenerationEventData) error
}

// EventRepo provides append and query access to telemetry events.
type EventRepo interface {
	LLMEventAppender
	GenerationEventAppender

	// QueryLLMEvents returns LLM request events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one LLM request event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates token usage per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates token usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)

	// QueryGenerations returns generation events, newest first.
	QueryGenerations(ctx context.Context, opts QueryOpts) ([]GenerationEvent, error)

	// GenerationStats aggregates generation outcomes per kind and origin.
	GenerationStats(ctx context.Context) ([]GenerationStat, error)

	// Purge deletes every recorded event and returns how many were removed.
	Purge(ctx context.Context) (int64, error)
}
