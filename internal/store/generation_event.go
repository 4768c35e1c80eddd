package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var generationSelectColumns = []string{
	"id", "sequence", "created_at", "kind", "origin",
	"reason", "topic", "item_count", "latency_ms",
}

type generationRow struct {
	ID        int    `sql:"id"`
	Sequence  int64  `sql:"sequence"`
	CreatedAt int64  `sql:"created_at"`
	Kind      string `sql:"kind"`
	Origin    string `sql:"origin"`
	Reason    string `sql:"reason"`
	Topic     string `sql:"topic"`
	ItemCount int    `sql:"item_count"`
	LatencyMs int64  `sql:"latency_ms"`
}

type generationStatRow struct {
	Kind         string  `sql:"kind"`
	Origin       string  `sql:"origin"`
	Count        int     `sql:"count"`
	AvgLatencyMs float64 `sql:"avg_latency_ms"`
}

func (r *eventRepo) AppendGeneration(ctx context.Context, data GenerationEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ib := builder().Insert(generationEventsTable).
		Columns("sequence", "created_at", "kind", "origin", "reason", "topic", "item_count", "latency_ms").
		Values(seqNum, now(), data.Kind, data.Origin, data.Reason, data.Topic, data.ItemCount, data.LatencyMs)
	if err := r.insert(ctx, ib); err != nil {
		return fmt.Errorf("save generation event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryGenerations(ctx context.Context, opts QueryOpts) ([]GenerationEvent, error) {
	sel := builder().Select().From(entsql.Table(generationEventsTable))
	sel.Select(columnsOf(sel, generationSelectColumns)...)
	applyQueryOpts(sel, opts)

	var rows []generationRow
	if err := r.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("query generation events: %w", err)
	}

	events := make([]GenerationEvent, len(rows))
	for i, row := range rows {
		events[i] = GenerationEvent{
			ID:        row.ID,
			Sequence:  row.Sequence,
			Timestamp: time.UnixMilli(row.CreatedAt),
			GenerationEventData: GenerationEventData{
				Kind:      row.Kind,
				Origin:    row.Origin,
				Reason:    row.Reason,
				Topic:     row.Topic,
				ItemCount: row.ItemCount,
				LatencyMs: row.LatencyMs,
			},
		}
	}
	return events, nil
}

func (r *eventRepo) GenerationStats(ctx context.Context) ([]GenerationStat, error) {
	sel := builder().Select().From(entsql.Table(generationEventsTable))
	sel.Select(
		entsql.As(sel.C("kind"), "kind"),
		entsql.As(sel.C("origin"), "origin"),
		entsql.As(entsql.Count("*"), "count"),
		entsql.As(entsql.Avg(sel.C("latency_ms")), "avg_latency_ms"),
	).
		GroupBy(sel.C("kind"), sel.C("origin")).
		OrderBy(entsql.Asc(sel.C("kind")), entsql.Asc(sel.C("origin")))

	var rows []generationStatRow
	if err := r.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("generation stats: %w", err)
	}

	out := make([]GenerationStat, len(rows))
	for i, row := range rows {
		out[i] = GenerationStat{
			Kind:         row.Kind,
			Origin:       row.Origin,
			Count:        row.Count,
			AvgLatencyMs: int64(row.AvgLatencyMs),
		}
	}
	return out, nil
}
