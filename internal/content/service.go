package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/cardquiz/internal/llm"
	"github.com/abhisek/cardquiz/internal/logger"
	"github.com/abhisek/cardquiz/internal/store"
	"github.com/abhisek/cardquiz/internal/telemetry"
)

var (
	// ErrNoProvider is the fallback reason when no model is configured.
	ErrNoProvider = errors.New("no LLM provider configured")

	// ErrAnswerCount means a parsed batch did not have exactly one answer.
	ErrAnswerCount = errors.New("batch must have exactly one answer item")

	// ErrEmptyFeedback means the model returned only whitespace.
	ErrEmptyFeedback = errors.New("empty feedback from model")
)

// Decorator fills presentation-only fields such as image URLs.
type Decorator interface {
	Decorate(ctx context.Context, items []Item)
}

// Service generates quiz content. It is safe for concurrent use.
type Service struct {
	provider  llm.Provider
	config    Config
	recorder  store.GenerationEventAppender
	decorator Decorator
	log       *logger.Logger
	tracer    trace.Tracer

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder records every generation outcome.
func WithRecorder(r store.GenerationEventAppender) Option {
	return func(s *Service) { s.recorder = r }
}

// WithDecorator runs d on every batch before it is returned.
func WithDecorator(d Decorator) Option {
	return func(s *Service) { s.decorator = d }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRandSource makes shuffling reproducible.
func WithRandSource(src rand.Source) Option {
	return func(s *Service) { s.rng = rand.New(src) }
}

// New creates a Service. provider may be nil, in which case every call
// returns fallback content.
func New(provider llm.Provider, cfg Config, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		config:   cfg,
		log:      logger.Nop(),
		tracer:   telemetry.Tracer("cardquiz/content"),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Live reports whether a model is configured.
func (s *Service) Live() bool { return s.provider != nil }

// GenerateCards returns five cards about topic, one of them mismatched.
func (s *Service) GenerateCards(ctx context.Context, topic string, difficulty float64, recentSentences []string) Batch {
	prompt := buildCardPrompt(topic, difficulty, recentSentences, s.config)
	return s.generate(ctx, KindCard, topic, Item{}, prompt)
}

// GenerateDescriptions returns five descriptions of ref's picture.
func (s *Service) GenerateDescriptions(ctx context.Context, ref Item, topic string) Batch {
	return s.generate(ctx, KindDescription, topic, ref, buildDescriptionPrompt(ref, topic, s.config))
}

// GenerateWords returns five words, one naming the main object of ref's
// picture.
func (s *Service) GenerateWords(ctx context.Context, ref Item, topic string) Batch {
	return s.generate(ctx, KindWord, topic, ref, buildWordPrompt(ref, topic, s.config))
}

// GenerateImages returns five pictures, one matching ref's sentence.
func (s *Service) GenerateImages(ctx context.Context, ref Item, topic string) Batch {
	return s.generate(ctx, KindImage, topic, ref, buildImagePrompt(ref, topic, s.config))
}

// Generate dispatches on kind. ref is ignored for cards.
func (s *Service) Generate(ctx context.Context, kind Kind, topic string, difficulty float64, ref Item) (Batch, error) {
	switch kind {
	case KindCard:
		return s.GenerateCards(ctx, topic, difficulty, nil), nil
	case KindDescription:
		return s.GenerateDescriptions(ctx, ref, topic), nil
	case KindWord:
		return s.GenerateWords(ctx, ref, topic), nil
	case KindImage:
		return s.GenerateImages(ctx, ref, topic), nil
	}
	return Batch{}, fmt.Errorf("unknown content kind %q", kind)
}

// EvaluateExplanation asks the model to comment on the learner's reasoning.
func (s *Service) EvaluateExplanation(ctx context.Context, ref Item, userText, topic string) Feedback {
	ctx, span := s.tracer.Start(ctx, "content."+string(KindExplanation),
		trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	start := time.Now()
	fb := Feedback{Origin: OriginLive}

	raw, err := s.call(ctx, KindExplanation, buildExplanationPrompt(ref, userText, topic, s.config))
	if err == nil {
		fb.Text = strings.TrimSpace(raw)
		if fb.Text == "" {
			err = ErrEmptyFeedback
		}
	}
	if err != nil {
		fb = Feedback{Text: FallbackFeedback, Origin: OriginFallback, Reason: err.Error()}
		span.RecordError(err)
	}

	s.finish(ctx, span, KindExplanation, topic, fb.Origin, fb.Reason, 0, time.Since(start))
	return fb
}

func (s *Service) generate(ctx context.Context, kind Kind, topic string, ref Item, prompt string) Batch {
	ctx, span := s.tracer.Start(ctx, "content."+string(kind),
		trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	start := time.Now()
	batch := Batch{Kind: kind, Origin: OriginLive}

	items, err := s.fetch(ctx, kind, prompt)
	if err != nil {
		items = Fallback(kind, topic, ref)
		batch.Origin = OriginFallback
		batch.Reason = err.Error()
		span.RecordError(err)
	}

	s.shuffle(items)
	if s.decorator != nil {
		s.decorator.Decorate(ctx, items)
	}
	batch.Items = items

	s.finish(ctx, span, kind, topic, batch.Origin, batch.Reason, len(items), time.Since(start))
	return batch
}

// fetch runs the model call and the parse pipeline. Any error means the
// caller falls back.
func (s *Service) fetch(ctx context.Context, kind Kind, prompt string) ([]Item, error) {
	text, err := s.call(ctx, kind, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}
	if err := llm.ValidateJSON(BatchSchema(kind), raw); err != nil {
		return nil, err
	}

	var elems []map[string]any
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode %s batch: %w", kind, err)
	}

	items := normalize(kind, elems)
	if n := countAnswers(items); n != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrAnswerCount, n)
	}
	return items, nil
}

// call makes exactly one model request.
func (s *Service) call(ctx context.Context, kind Kind, prompt string) (string, error) {
	if s.provider == nil {
		return "", ErrNoProvider
	}

	ctx = llm.WithPurpose(ctx, kind.Purpose())
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPromptFor(kind),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}
	return string(resp.Content), nil
}

// shuffle is a uniform Fisher-Yates permutation in place.
func (s *Service) shuffle(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

func (s *Service) finish(ctx context.Context, span trace.Span, kind Kind, topic string, origin Origin, reason string, count int, latency time.Duration) {
	span.SetAttributes(
		attribute.String("origin", string(origin)),
		attribute.Int("items", count),
	)
	if origin == OriginFallback {
		span.SetStatus(codes.Error, reason)
		s.log.Warn("content fallback", "kind", kind, "topic", topic, "reason", reason)
	} else {
		s.log.Debug("content generated", "kind", kind, "topic", topic, "latency_ms", latency.Milliseconds())
	}

	if s.recorder == nil {
		return
	}
	err := s.recorder.AppendGeneration(context.WithoutCancel(ctx), store.GenerationEventData{
		Kind:      string(kind),
		Origin:    string(origin),
		Reason:    reason,
		Topic:     topic,
		ItemCount: count,
		LatencyMs: latency.Milliseconds(),
	})
	if err != nil {
		s.log.Warn("record generation event failed", "kind", kind, "error", err)
	}
}
