package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/cardquiz/internal/config"
	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/images"
	"github.com/abhisek/cardquiz/internal/llm"
	"github.com/abhisek/cardquiz/internal/logger"
	"github.com/abhisek/cardquiz/internal/quiz"
	"github.com/abhisek/cardquiz/internal/store"
	"github.com/abhisek/cardquiz/internal/telemetry"
)

// deps is everything a command needs to generate content.
type deps struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *store.Store
	content *content.Service
	images  *images.Lookup

	closers []func()
}

type depOptions struct {
	// tui keeps logs and traces off the terminal.
	tui bool
	// noStore skips the database; generation events are not recorded.
	noStore bool
}

// loadConfig resolves --config and applies --db on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.Path = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then config/CARDQUIZ_DB, then the default XDG path.
func resolveDBPath(cfg *config.Config) (string, error) {
	if cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}

// openStore loads config and opens the event database.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func openDeps(ctx context.Context, cmd *cobra.Command, opts depOptions) (*deps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg}

	logFile := cfg.Log.File
	if opts.tui && logFile == "" {
		if dir, err := store.DataDir(); err == nil {
			logFile = filepath.Join(dir, "cardquiz.log")
		}
	}
	d.log, err = logger.New(logger.Options{Mode: cfg.Log.Mode, File: logFile})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	d.closers = append(d.closers, d.log.Sync)

	var traceOut io.Writer = os.Stderr
	if opts.tui && cfg.Trace.Enabled {
		dir, err := store.DataDir()
		if err != nil {
			d.Close()
			return nil, err
		}
		f, err := os.OpenFile(filepath.Join(dir, "traces.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		d.closers = append(d.closers, func() { _ = f.Close() })
		traceOut = f
	}
	shutdownTracing := telemetry.Init(ctx, d.log, telemetry.Config{
		Enabled:     cfg.Trace.Enabled,
		ServiceName: "cardquiz",
		Version:     version,
		Writer:      traceOut,
	})
	d.closers = append(d.closers, func() { _ = shutdownTracing(context.Background()) })

	var eventRepo store.EventRepo
	if !opts.noStore {
		dbPath, err := resolveDBPath(cfg)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		d.store, err = store.Open(dbPath)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		d.closers = append(d.closers, func() { _ = d.store.Close() })
		eventRepo = d.store.EventRepo()
	}

	var cache images.Cache
	if cfg.Redis.URL != "" {
		rc, err := images.NewRedisCache(ctx, images.RedisOptions{URL: cfg.Redis.URL})
		if err != nil {
			d.log.Warn("redis image cache unavailable, using memory cache", "error", err)
		} else {
			d.closers = append(d.closers, func() { _ = rc.Close() })
			cache = rc
		}
	}
	d.images = images.New(cache, d.log)

	var provider llm.Provider
	if cfg.LLM.HasKey() {
		provider, err = llm.NewProvider(ctx, cfg.LLM, eventRepo, d.log)
		if err != nil {
			d.log.Warn("LLM provider unavailable, serving built-in content", "error", err)
			provider = nil
		}
	} else {
		d.log.Info("no LLM API key configured, serving built-in content")
	}

	contentOpts := []content.Option{
		content.WithDecorator(d.images),
		content.WithLogger(d.log),
	}
	if eventRepo != nil {
		contentOpts = append(contentOpts, content.WithRecorder(eventRepo))
	}
	d.content = content.New(provider, contentConfig(cfg), contentOpts...)
	return d, nil
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

func contentConfig(cfg *config.Config) content.Config {
	c := content.DefaultConfig()
	c.Timeout = cfg.LLM.Timeout
	c.MaxTokens = cfg.Content.MaxTokens
	c.Temperature = cfg.Content.Temperature
	c.MaxRecent = cfg.Content.MaxRecent
	c.NativeLanguage = cfg.Content.NativeLanguage
	c.TargetLanguage = cfg.Content.TargetLanguage
	return c
}

func quizConfig(cfg *config.Config) quiz.Config {
	q := quiz.DefaultConfig()
	q.Points = quiz.Points{
		Card:        cfg.Quiz.CardPoints,
		Description: cfg.Quiz.DescPoints,
		Word:        cfg.Quiz.WordPoints,
	}
	q.RevealDelay = cfg.Quiz.RevealDelay
	q.ExplainDelay = cfg.Quiz.ExplainDelay
	q.FetchTimeout = cfg.Quiz.FetchTimeout
	q.DifficultyStep = cfg.Quiz.DifficultyStep
	q.MaxDifficulty = cfg.Quiz.MaxDifficulty
	q.MaxRecent = cfg.Content.MaxRecent
	return q
}
