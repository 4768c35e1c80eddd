// Package server exposes quiz sessions over a JSON HTTP API. Each session
// runs its own quiz.Engine; handlers translate requests into learner events.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/logger"
	"github.com/abhisek/cardquiz/internal/quiz"
)

// ContentService is what the API needs from the content layer.
type ContentService interface {
	quiz.ContentSource
	Generate(ctx context.Context, kind content.Kind, topic string, difficulty float64, ref content.Item) (content.Batch, error)
}

// ImageResolver turns a picture description into a URL.
type ImageResolver interface {
	URL(ctx context.Context, description string) string
}

// Config holds the HTTP settings.
type Config struct {
	Addr          string
	CORSOrigins   []string
	RatePerSecond float64
	Burst         int
	MaxSessions   int
	// SessionIdle expires sessions nobody has touched for this long.
	// Zero means 30 minutes; negative disables expiry.
	SessionIdle time.Duration
	Quiz        quiz.Config
}

const defaultSessionIdle = 30 * time.Minute

// Server is the HTTP front end.
type Server struct {
	cfg      Config
	content  ContentService
	images   ImageResolver
	log      *logger.Logger
	sessions *registry
	stop     context.CancelFunc
	handler  http.Handler
}

// New builds the router. Close must be called to stop the session engines.
func New(cfg Config, svc ContentService, images ImageResolver, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	switch {
	case cfg.SessionIdle == 0:
		cfg.SessionIdle = defaultSessionIdle
	case cfg.SessionIdle < 0:
		cfg.SessionIdle = 0
	}

	base, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		content:  svc,
		images:   images,
		log:      log,
		sessions: newRegistry(base, svc, cfg.Quiz, cfg.MaxSessions, cfg.SessionIdle, log),
		stop:     stop,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(tracing)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RatePerSecond > 0 {
			burst := s.cfg.Burst
			if burst <= 0 {
				burst = 1
			}
			r.Use(newRateLimiter(s.cfg.RatePerSecond, burst).middleware)
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Post("/topic", s.submitTopic)
				r.Post("/cards/{cardID}", s.selectCard)
				r.Post("/explanation", s.submitExplanation)
				r.Post("/explanation/skip", s.skipExplanation)
				r.Post("/options/{optionID}", s.selectOption)
				r.Post("/reset", s.reset)
			})
		})

		r.Get("/images", s.imageURL)
		r.Post("/preview/{kind}", s.preview)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	s.log.Info("http server stopped")
	return err
}

// ReapIdleSessions removes expired sessions periodically until ctx is done.
func (s *Server) ReapIdleSessions(ctx context.Context) error {
	if s.cfg.SessionIdle <= 0 {
		return nil
	}
	interval := s.cfg.SessionIdle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.sessions.reap(); n > 0 {
				s.log.Info("reaped idle sessions", "count", n, "remaining", s.sessions.len())
			}
		}
	}
}

// Close stops every session engine.
func (s *Server) Close() {
	s.stop()
	s.sessions.closeAll()
}
