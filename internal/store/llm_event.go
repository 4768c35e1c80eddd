package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventSelectColumns = []string{
	"id", "sequence", "created_at", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

type llmEventRow struct {
	ID           int    `sql:"id"`
	Sequence     int64  `sql:"sequence"`
	CreatedAt    int64  `sql:"created_at"`
	Provider     string `sql:"provider"`
	Model        string `sql:"model"`
	Purpose      string `sql:"purpose"`
	InputTokens  int    `sql:"input_tokens"`
	OutputTokens int    `sql:"output_tokens"`
	LatencyMs    int64  `sql:"latency_ms"`
	Success      bool   `sql:"success"`
	ErrorMessage string `sql:"error_message"`
	RequestBody  string `sql:"request_body"`
	ResponseBody string `sql:"response_body"`
}

func (row llmEventRow) event() LLMRequestEvent {
	return LLMRequestEvent{
		ID:        row.ID,
		Sequence:  row.Sequence,
		Timestamp: time.UnixMilli(row.CreatedAt),
		LLMRequestEventData: LLMRequestEventData{
			Provider:     row.Provider,
			Model:        row.Model,
			Purpose:      row.Purpose,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
			LatencyMs:    row.LatencyMs,
			Success:      row.Success,
			ErrorMessage: row.ErrorMessage,
			RequestBody:  row.RequestBody,
			ResponseBody: row.ResponseBody,
		},
	}
}

type usageRow struct {
	Key          string  `sql:"grp"`
	Calls        int     `sql:"calls"`
	InputTokens  int     `sql:"input_tokens"`
	OutputTokens int     `sql:"output_tokens"`
	AvgLatencyMs float64 `sql:"avg_latency_ms"`
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ib := builder().Insert(llmEventsTable).
		Columns(
			"sequence", "created_at", "provider", "model", "purpose",
			"input_tokens", "output_tokens", "latency_ms", "success",
			"error_message", "request_body", "response_body",
		).
		Values(
			seqNum, now(), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
			data.ErrorMessage, data.RequestBody, data.ResponseBody,
		)
	if err := r.insert(ctx, ib); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}

	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	t := entsql.Table(llmEventsTable)
	sel := builder().Select().From(t)
	sel.Select(columnsOf(sel, llmEventSelectColumns)...)
	applyQueryOpts(sel, opts)

	var rows []llmEventRow
	if err := r.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}

	events := make([]LLMRequestEvent, len(rows))
	for i, row := range rows {
		events[i] = row.event()
	}
	return events, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error) {
	t := entsql.Table(llmEventsTable)
	sel := builder().Select().From(t)
	sel.Select(columnsOf(sel, llmEventSelectColumns)...).
		Where(entsql.EQ(sel.C("id"), id)).
		Limit(1)

	var rows []llmEventRow
	if err := r.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("get LLM event %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	e := rows[0].event()
	return &e, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	rows, err := r.usageBy(ctx, "purpose")
	if err != nil {
		return nil, fmt.Errorf("usage by purpose: %w", err)
	}
	out := make([]LLMUsage, len(rows))
	for i, row := range rows {
		out[i] = row.usage()
		out[i].Purpose = row.Key
	}
	return out, nil
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	rows, err := r.usageBy(ctx, "model")
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}
	out := make([]LLMUsage, len(rows))
	for i, row := range rows {
		out[i] = row.usage()
		out[i].Model = row.Key
	}
	return out, nil
}

func (r *eventRepo) usageBy(ctx context.Context, column string) ([]usageRow, error) {
	t := entsql.Table(llmEventsTable)
	sel := builder().Select().From(t)
	sel.Select(
		entsql.As(sel.C(column), "grp"),
		entsql.As(entsql.Count("*"), "calls"),
		entsql.As(entsql.Sum(sel.C("input_tokens")), "input_tokens"),
		entsql.As(entsql.Sum(sel.C("output_tokens")), "output_tokens"),
		entsql.As(entsql.Avg(sel.C("latency_ms")), "avg_latency_ms"),
	).
		GroupBy(sel.C(column)).
		OrderBy(entsql.Asc(sel.C(column)))

	var rows []usageRow
	if err := r.query(ctx, sel, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (row usageRow) usage() LLMUsage {
	return LLMUsage{
		Calls:        row.Calls,
		InputTokens:  row.InputTokens,
		OutputTokens: row.OutputTokens,
		AvgLatencyMs: int64(row.AvgLatencyMs),
	}
}

// columnsOf qualifies column names with the selector's table.
func columnsOf(sel *entsql.Selector, names []string) []string {
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = sel.C(n)
	}
	return cols
}
