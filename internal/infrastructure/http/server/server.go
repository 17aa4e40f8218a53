package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"3tcapital/ms_extraccion_core/internal/infrastructure/config"
	httperrors "3tcapital/ms_extraccion_core/internal/infrastructure/http"
	"3tcapital/ms_extraccion_core/internal/infrastructure/http/middleware"
)

// Server wraps the HTTP server exposing the health and extraction endpoints.
type Server struct {
	log             *slog.Logger
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// Options configures the server. A nil extraction handler answers 503.
type Options struct {
	Config             config.AppConfig
	Logger             *slog.Logger
	HealthHandler      http.Handler
	EnqueueHandler     http.Handler
	SyncProcessHandler http.Handler
}

// New builds the router and the underlying http.Server.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	httpCfg := opts.Config.HTTP
	log := opts.Logger

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(secureHeaders(opts.Config, log))

	r.Method(http.MethodGet, "/health", opts.HealthHandler)

	r.Route("/api/v1/extractions", func(r chi.Router) {
		if httpCfg.RateLimitRPM > 0 {
			r.Use(rateLimiter(httpCfg.RateLimitRPM, log))
		}
		r.Method(http.MethodPost, "/", orUnavailable(opts.EnqueueHandler, log))
		r.With(middleware.ExtendedTimeout(httpCfg.WriteTimeoutSync)).
			Method(http.MethodPost, "/sync", orUnavailable(opts.SyncProcessHandler, log))
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", httpCfg.Port),
		Handler:      r,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}

	return &Server{log: log, httpServer: srv, shutdownTimeout: httpCfg.ShutdownTimeout}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		s.log.Info("shutting down HTTP server", "timeout", timeout)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close immediately closes all listeners and connections.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

func secureHeaders(cfg config.AppConfig, log *slog.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		AllowedHosts:          cfg.HTTP.AllowedHosts,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.App.Environment != "production",
	})
	sm.SetBadHostHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, http.StatusBadRequest, "Bad request", []string{"host not allowed"}, log)
	}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Process has already answered when it returns an error.
			if err := sm.Process(w, r); err != nil {
				log.WarnContext(r.Context(), "secure headers blocked request", "error", err, "host", r.Host)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimiter(rpm int, log *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(rpm, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				return "ip:" + r.RemoteAddr, nil
			}
			return "ip:" + host, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httperrors.WriteError(w, http.StatusTooManyRequests, "Too many requests", []string{"rate limit exceeded"}, log)
		}),
	)
}

func orUnavailable(h http.Handler, log *slog.Logger) http.Handler {
	if h != nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", []string{"endpoint is not configured"}, log)
	})
}
