package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"3tcapital/ms_extraccion_core/internal/infrastructure/config"
	"3tcapital/ms_extraccion_core/internal/infrastructure/http/middleware"
	"3tcapital/ms_extraccion_core/internal/testutil"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

func TestNew_NilLogger(t *testing.T) {
	_, err := New(Options{
		Config:        config.AppConfig{HTTP: config.HTTPSettings{Port: 8080}},
		HealthHandler: okHandler(""),
	})

	if err == nil {
		t.Fatal("expected error for nil logger")
	}
	if err.Error() != "logger is required" {
		t.Errorf("expected error 'logger is required', got %q", err.Error())
	}
}

func TestNew_NilHealthHandler(t *testing.T) {
	_, err := New(Options{
		Config: config.AppConfig{HTTP: config.HTTPSettings{Port: 8080}},
		Logger: testutil.NewTestLogger(),
	})

	if err == nil {
		t.Fatal("expected error for nil health handler")
	}
	if err.Error() != "health handler is required" {
		t.Errorf("expected error 'health handler is required', got %q", err.Error())
	}
}

func TestNew_ValidOptions(t *testing.T) {
	cfg := config.AppConfig{
		HTTP: config.HTTPSettings{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
	}

	server, err := New(Options{
		Config:        cfg,
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if server.httpServer.Addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", server.httpServer.Addr)
	}
	if server.httpServer.WriteTimeout != 10*time.Second {
		t.Errorf("expected write timeout 10s, got %v", server.httpServer.WriteTimeout)
	}
}

func TestServer_Routes(t *testing.T) {
	tests := []struct {
		name           string
		opts           Options
		method         string
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "health",
			method:         http.MethodGet,
			path:           "/health",
			expectedStatus: http.StatusOK,
			expectedBody:   "healthy",
		},
		{
			name:           "enqueue registered",
			opts:           Options{EnqueueHandler: okHandler("queued")},
			method:         http.MethodPost,
			path:           "/api/v1/extractions",
			expectedStatus: http.StatusOK,
			expectedBody:   "queued",
		},
		{
			name:           "enqueue not configured",
			method:         http.MethodPost,
			path:           "/api/v1/extractions",
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "sync registered",
			opts:           Options{SyncProcessHandler: okHandler("processed")},
			method:         http.MethodPost,
			path:           "/api/v1/extractions/sync",
			expectedStatus: http.StatusOK,
			expectedBody:   "processed",
		},
		{
			name:           "sync not configured",
			method:         http.MethodPost,
			path:           "/api/v1/extractions/sync",
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "wrong method",
			opts:           Options{EnqueueHandler: okHandler("queued")},
			method:         http.MethodGet,
			path:           "/api/v1/extractions",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Config = config.AppConfig{HTTP: config.HTTPSettings{Port: 8080}}
			opts.Logger = testutil.NewTestLogger()
			opts.HealthHandler = okHandler("healthy")

			server, err := New(opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			server.httpServer.Handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedBody != "" && w.Body.String() != tt.expectedBody {
				t.Errorf("expected body %q, got %q", tt.expectedBody, w.Body.String())
			}
			if w.Header().Get(middleware.CorrelationHeader) == "" {
				t.Error("expected correlation header to be set")
			}
		})
	}
}

func TestServer_SecureHeaders(t *testing.T) {
	server, err := New(Options{
		Config:        config.AppConfig{HTTP: config.HTTPSettings{Port: 8080}},
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler("healthy"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected X-Frame-Options DENY, got %q", got)
	}
}

func TestServer_AllowedHostsInProduction(t *testing.T) {
	server, err := New(Options{
		Config: config.AppConfig{
			App:  config.AppSettings{Environment: "production"},
			HTTP: config.HTTPSettings{Port: 8080, AllowedHosts: []string{"extraction.internal"}},
		},
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler("healthy"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "evil.example"
	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for foreign host, got %d", w.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	server, err := New(Options{
		Config:         config.AppConfig{HTTP: config.HTTPSettings{Port: 8080, RateLimitRPM: 2}},
		Logger:         testutil.NewTestLogger(),
		HealthHandler:  okHandler("healthy"),
		EnqueueHandler: okHandler("queued"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/extractions", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		server.httpServer.Handler.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", last)
	}
}

func TestServer_Close(t *testing.T) {
	server, err := New(Options{
		Config:        config.AppConfig{HTTP: config.HTTPSettings{Port: 8080}},
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := server.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestServer_Run_ContextCancel(t *testing.T) {
	server, err := New(Options{
		Config: config.AppConfig{
			HTTP: config.HTTPSettings{
				Port:            0,
				ShutdownTimeout: 1 * time.Second,
			},
		},
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := server.Run(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
