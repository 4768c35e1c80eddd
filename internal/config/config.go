// Package config loads cardquiz settings from defaults, an optional YAML
// file and CARDQUIZ_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/cardquiz/internal/llm"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CARDQUIZ"

// Config is the fully resolved application configuration.
type Config struct {
	LLM     llm.Config
	Quiz    Quiz
	Content Content
	Server  Server
	Store   Store
	Redis   Redis
	Log     Log
	Trace   Trace

	// File is the config file that was read, empty if none.
	File string
}

// Quiz holds pacing and scoring for the progression state machine.
type Quiz struct {
	RevealDelay    time.Duration
	ExplainDelay   time.Duration
	FetchTimeout   time.Duration
	CardPoints     int
	DescPoints     int
	WordPoints     int
	DifficultyStep float64
	MaxDifficulty  float64
}

// Content holds prompt settings for the content service.
type Content struct {
	NativeLanguage string
	TargetLanguage string
	MaxRecent      int
	Temperature    float64
	MaxTokens      int
}

// Server holds the HTTP API settings.
type Server struct {
	Addr          string
	CORSOrigins   []string
	RatePerSecond float64
	Burst         int

	// SessionIdle is how long an untouched session lives before it is reaped.
	SessionIdle time.Duration
}

// Store holds the telemetry database location. Empty means the default path.
type Store struct {
	Path string
}

// Redis enables the shared image URL cache when URL is set.
type Redis struct {
	URL string
}

// Log selects the logger mode and optional output file.
type Log struct {
	Mode string
	File string
}

// Trace toggles OpenTelemetry span export.
type Trace struct {
	Enabled bool
}

func setDefaults(v *viper.Viper) {
	def := llm.DefaultConfig()

	// llm.provider has no default so an explicit choice can be detected.
	v.SetDefault("llm.timeout", def.Timeout)
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", def.Gemini.Model)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", def.Anthropic.Model)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", def.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", def.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")

	v.SetDefault("quiz.reveal_delay", 1500*time.Millisecond)
	v.SetDefault("quiz.explain_delay", 2000*time.Millisecond)
	v.SetDefault("quiz.fetch_timeout", 30*time.Second)
	v.SetDefault("quiz.points.card", 10)
	v.SetDefault("quiz.points.description", 15)
	v.SetDefault("quiz.points.word", 20)
	v.SetDefault("quiz.difficulty_step", 0.1)
	v.SetDefault("quiz.max_difficulty", 3.0)

	v.SetDefault("content.native_language", "Turkish")
	v.SetDefault("content.target_language", "English")
	v.SetDefault("content.max_recent", 10)
	v.SetDefault("content.temperature", 0.7)
	v.SetDefault("content.max_tokens", 2048)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_per_second", 5.0)
	v.SetDefault("server.burst", 10)
	v.SetDefault("server.session_idle", 30*time.Minute)

	v.SetDefault("store.path", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("log.mode", "prod")
	v.SetDefault("log.file", "")
	v.SetDefault("trace.enabled", false)
}

// Load resolves the configuration. When path is empty the default config
// file is used if it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else if dir, err := Dir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases for the values people set most.
	bindings := map[string][]string{
		"llm.gemini.api_key":     {"CARDQUIZ_LLM_GEMINI_API_KEY", "CARDQUIZ_GEMINI_API_KEY"},
		"llm.anthropic.api_key":  {"CARDQUIZ_LLM_ANTHROPIC_API_KEY", "CARDQUIZ_ANTHROPIC_API_KEY"},
		"llm.openai.api_key":     {"CARDQUIZ_LLM_OPENAI_API_KEY", "CARDQUIZ_OPENAI_API_KEY"},
		"llm.openrouter.api_key": {"CARDQUIZ_LLM_OPENROUTER_API_KEY", "CARDQUIZ_OPENROUTER_API_KEY"},
		"store.path":             {"CARDQUIZ_STORE_PATH", "CARDQUIZ_DB"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	provider := v.GetString("llm.provider")
	explicitProvider := provider != ""
	if !explicitProvider {
		provider = llm.DefaultConfig().Provider
	}

	cfg := &Config{
		LLM: llm.Config{
			Provider: provider,
			Timeout:  v.GetDuration("llm.timeout"),
			Gemini: llm.GeminiConfig{
				APIKey: v.GetString("llm.gemini.api_key"),
				Model:  v.GetString("llm.gemini.model"),
			},
			Anthropic: llm.AnthropicConfig{
				APIKey: v.GetString("llm.anthropic.api_key"),
				Model:  v.GetString("llm.anthropic.model"),
			},
			OpenAI: llm.OpenAIConfig{
				APIKey:  v.GetString("llm.openai.api_key"),
				Model:   v.GetString("llm.openai.model"),
				BaseURL: v.GetString("llm.openai.base_url"),
			},
			OpenRouter: llm.OpenRouterConfig{
				APIKey:  v.GetString("llm.openrouter.api_key"),
				Model:   v.GetString("llm.openrouter.model"),
				BaseURL: v.GetString("llm.openrouter.base_url"),
			},
		},
		Quiz: Quiz{
			RevealDelay:    v.GetDuration("quiz.reveal_delay"),
			ExplainDelay:   v.GetDuration("quiz.explain_delay"),
			FetchTimeout:   v.GetDuration("quiz.fetch_timeout"),
			CardPoints:     v.GetInt("quiz.points.card"),
			DescPoints:     v.GetInt("quiz.points.description"),
			WordPoints:     v.GetInt("quiz.points.word"),
			DifficultyStep: v.GetFloat64("quiz.difficulty_step"),
			MaxDifficulty:  v.GetFloat64("quiz.max_difficulty"),
		},
		Content: Content{
			NativeLanguage: v.GetString("content.native_language"),
			TargetLanguage: v.GetString("content.target_language"),
			MaxRecent:      v.GetInt("content.max_recent"),
			Temperature:    v.GetFloat64("content.temperature"),
			MaxTokens:      v.GetInt("content.max_tokens"),
		},
		Server: Server{
			Addr:          v.GetString("server.addr"),
			CORSOrigins:   splitList(v.GetStringSlice("server.cors_origins")),
			RatePerSecond: v.GetFloat64("server.rate_per_second"),
			Burst:         v.GetInt("server.burst"),
			SessionIdle:   v.GetDuration("server.session_idle"),
		},
		Store: Store{Path: v.GetString("store.path")},
		Redis: Redis{URL: v.GetString("redis.url")},
		Log: Log{
			Mode: v.GetString("log.mode"),
			File: v.GetString("log.file"),
		},
		Trace: Trace{Enabled: v.GetBool("trace.enabled")},
		File:  v.ConfigFileUsed(),
	}

	// Fall back to the vendor env vars when nothing cardquiz-specific
	// picked a provider or a key.
	if !cfg.LLM.HasKey() && !explicitProvider {
		if found, ok := llm.DiscoverConfig(); ok {
			found.Timeout = cfg.LLM.Timeout
			found.Gemini.Model = cfg.LLM.Gemini.Model
			found.Anthropic.Model = cfg.LLM.Anthropic.Model
			found.OpenAI.Model = cfg.LLM.OpenAI.Model
			found.OpenAI.BaseURL = cfg.LLM.OpenAI.BaseURL
			found.OpenRouter.Model = cfg.LLM.OpenRouter.Model
			found.OpenRouter.BaseURL = cfg.LLM.OpenRouter.BaseURL
			cfg.LLM = found
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the quiz cannot run with. A missing API key is
// not an error here: the content service then serves fallback batches.
func (c *Config) Validate() error {
	switch {
	case c.Quiz.RevealDelay < 0 || c.Quiz.ExplainDelay < 0:
		return fmt.Errorf("quiz delays must not be negative")
	case c.Quiz.FetchTimeout <= 0:
		return fmt.Errorf("quiz.fetch_timeout must be positive")
	case c.Quiz.MaxDifficulty < 1:
		return fmt.Errorf("quiz.max_difficulty must be at least 1")
	case c.Content.MaxRecent < 0:
		return fmt.Errorf("content.max_recent must not be negative")
	case c.Log.Mode != "dev" && c.Log.Mode != "prod":
		return fmt.Errorf("log.mode must be dev or prod, got %q", c.Log.Mode)
	}
	if err := c.LLM.Validate(); err != nil && !errors.Is(err, llm.ErrMissingAPIKey) {
		return err
	}
	return nil
}

// Dir returns $XDG_CONFIG_HOME/cardquiz (or ~/.config/cardquiz).
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "cardquiz"), nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
