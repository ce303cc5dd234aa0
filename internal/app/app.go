// Package app assembles the TableVox server: the session manager, the
// HTTP surface (health, metrics), and the provider set, wired from a loaded
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tablevox/tablevox/internal/config"
	"github.com/tablevox/tablevox/internal/health"
	"github.com/tablevox/tablevox/internal/nlu"
	"github.com/tablevox/tablevox/internal/observe"
	"github.com/tablevox/tablevox/internal/session"
	"github.com/tablevox/tablevox/pkg/stt"
)

// shutdownTimeout bounds graceful HTTP shutdown and session draining.
const shutdownTimeout = 10 * time.Second

// App is the assembled TableVox server.
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	metrics   *observe.Metrics
	providers Providers
	sessions  *session.Manager
	srv       *http.Server

	stopOnce sync.Once
	stopErr  error
}

// Option configures an [App].
type Option func(*App)

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New assembles an App from a validated config and its provider set.
func New(cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	if providers.STT == nil {
		return nil, errors.New("app: an STT provider is required")
	}
	if cfg.Agent.Mode == config.ModeLLM && providers.LLM == nil {
		return nil, errors.New("app: agent mode llm requires an LLM provider")
	}

	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.sessions = session.NewManager(session.ManagerConfig{
		STT: providers.STT,
		Stream: stt.StreamConfig{
			SampleRate: cfg.STT.SampleRate,
			Language:   cfg.STT.Language,
		},
		Session: a.sessionTemplate(),
		Metrics: a.metrics,
		Logger:  a.log,
	})

	mux := http.NewServeMux()
	health.New(a.checkers()).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// sessionTemplate translates the agent config into the per-session template
// the manager clones for each call.
func (a *App) sessionTemplate() session.Config {
	tmpl := session.Config{
		Mode:         session.Mode(a.cfg.Agent.Mode),
		Restaurant:   a.cfg.Agent.Restaurant,
		SystemPrompt: a.cfg.Agent.SystemPrompt,
		LLM:          a.providers.LLM,
		Temperature:  a.cfg.LLM.Temperature,
		MaxTokens:    a.cfg.LLM.MaxTokens,
		PauseHead:    a.cfg.Agent.PauseHead,
	}
	if a.cfg.Agent.NormalizerEnabled() {
		tmpl.Normalizer = nlu.NewNormalizer()
	}
	return tmpl
}

// checkers builds the readiness checks for the configured providers. The
// checks confirm wiring, not remote reachability; probing paid APIs from a
// readiness loop would be wasteful.
func (a *App) checkers() []health.Checker {
	cs := []health.Checker{{
		Name:  "stt",
		Check: func(context.Context) error { return nil },
	}}
	if a.cfg.Agent.Mode == config.ModeLLM {
		cs = append(cs, health.Checker{
			Name: "llm",
			Check: func(context.Context) error {
				if a.providers.LLM == nil {
					return errors.New("llm provider not configured")
				}
				return nil
			},
		})
	}
	if a.cfg.TTS.Name != "" {
		cs = append(cs, health.Checker{
			Name: "tts",
			Check: func(context.Context) error {
				if a.providers.TTS == nil {
					return errors.New("tts synthesizer not configured")
				}
				return nil
			},
		})
	}
	return cs
}

// Sessions returns the session manager.
func (a *App) Sessions() *session.Manager {
	return a.sessions
}

// Run serves HTTP until ctx is cancelled, then drains sessions and shuts the
// server down. It blocks and returns the first fatal error, or nil on a clean
// shutdown.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("server starting",
		"addr", a.cfg.Server.ListenAddr,
		"mode", a.cfg.Agent.Mode,
		"stt", a.cfg.STT.Name,
		"llm", a.cfg.LLM.Name,
		"tts", a.cfg.TTS.Name,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown drains active sessions and stops the HTTP server. Safe to call
// more than once and concurrently with [App.Run].
func (a *App) Shutdown() error {
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.log.Info("server shutting down", "active_sessions", a.sessions.Count())
		a.sessions.StopAll(ctx)

		if err := a.srv.Shutdown(ctx); err != nil {
			a.stopErr = fmt.Errorf("app: http shutdown: %w", err)
		}
	})
	return a.stopErr
}

// Speak renders reply text as audio through the configured synthesizer.
// Returns an error when no TTS provider is configured.
func (a *App) Speak(ctx context.Context, text string) (io.ReadCloser, error) {
	if a.providers.TTS == nil {
		return nil, errors.New("app: no tts synthesizer configured")
	}
	start := time.Now()
	audio, err := a.providers.TTS.Synthesize(ctx, text)
	if err != nil {
		a.metrics.RecordProviderError(ctx, "tts", "synthesize")
		return nil, err
	}
	a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	return audio, nil
}
