package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"3tcapital/ms_extraccion_core/internal/core/audit"
	ctxutil "3tcapital/ms_extraccion_core/internal/infrastructure/context"
	"3tcapital/ms_extraccion_core/internal/infrastructure/security"
)

// TracedClient wraps an HTTP client used to reach a generative or storage
// backend. It logs every exchange with sanitized bodies and persists an audit
// record per call. It satisfies the Do-style client interfaces of the OpenAI
// and AWS SDKs.
type TracedClient struct {
	client       *http.Client
	log          *slog.Logger
	auditRepo    audit.Repository
	backend      string
	auditEnabled bool
	logReqBody   bool
	logRespBody  bool
	maxBodySize  int

	pending sync.WaitGroup
}

// TracedClientConfig holds configuration for the traced HTTP client.
type TracedClientConfig struct {
	Timeout         time.Duration
	AuditEnabled    bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
	MaxConnsPerHost int // 0 uses 50
}

// NewTracedClient creates a traced client with a pooled transport.
func NewTracedClient(cfg *TracedClientConfig, log *slog.Logger, auditRepo audit.Repository, backend string) *TracedClient {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 102400
	}
	maxConnsPerHost := cfg.MaxConnsPerHost
	if maxConnsPerHost == 0 {
		maxConnsPerHost = 50
	}

	// Generation can take long before the first byte arrives.
	responseHeaderTimeout := cfg.Timeout
	if responseHeaderTimeout < 60*time.Second {
		responseHeaderTimeout = 60 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &TracedClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log:          log.With("component", "traced_client", "backend", backend),
		auditRepo:    auditRepo,
		backend:      backend,
		auditEnabled: cfg.AuditEnabled,
		logReqBody:   cfg.LogRequestBody,
		logRespBody:  cfg.LogResponseBody,
		maxBodySize:  cfg.MaxBodySize,
	}
}

// Do executes req, logging and auditing the exchange. Audit records are
// written in the background and never fail the call.
func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	correlationID := ctxutil.GetCorrelationID(ctx)
	operation := c.extractOperation(req)
	start := time.Now()

	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	var requestBody []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		requestBody, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(requestBody))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(requestBody)), nil
		}
	}

	c.logRequest(correlationID, operation, req, requestBody)

	resp, err := c.client.Do(req)
	duration := time.Since(start)

	var responseBody []byte
	if resp != nil && resp.Body != nil {
		var readErr error
		responseBody, readErr = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(responseBody))
		if readErr != nil && err == nil {
			err = fmt.Errorf("read response body: %w", readErr)
		}
	}

	c.logResponse(correlationID, operation, req, resp, err, duration, responseBody)

	if !c.auditEnabled || c.auditRepo == nil {
		return resp, err
	}

	if correlationID == "" {
		correlationID = "audit-" + uuid.NewString()
		c.log.Warn("Missing correlation ID, generated fallback",
			"fallback_id", correlationID,
			"operation", operation,
		)
	}

	entry := c.buildAuditLog(correlationID, operation, req, resp, err, duration, requestBody, responseBody)

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("Panic in audit log persistence",
					"panic", r,
					"correlation_id", entry.CorrelationID,
					"operation", entry.Operation,
				)
			}
		}()

		// The request context ends with the call; the audit write outlives it.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := c.auditRepo.Save(saveCtx, entry); err != nil {
			c.log.Error("Failed to persist audit log",
				"error", err,
				"correlation_id", entry.CorrelationID,
				"operation", entry.Operation,
				"response_status", entry.ResponseStatus,
				"duration_ms", entry.DurationMs,
			)
		}
	}()

	return resp, err
}

// Wait blocks until every pending audit write has finished.
func (c *TracedClient) Wait() {
	c.pending.Wait()
}

func (c *TracedClient) logRequest(correlationID, operation string, req *http.Request, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
	}
	if c.logReqBody && len(body) > 0 {
		attrs = append(attrs, "request_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}
	c.log.Debug("backend_request", attrs...)
}

func (c *TracedClient) logResponse(correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		c.log.Error("backend_request_failed", attrs...)
		return
	}

	attrs = append(attrs, "status", resp.StatusCode, "response_size_bytes", len(body))
	if c.logRespBody && len(body) > 0 {
		attrs = append(attrs, "response_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}

	switch {
	case resp.StatusCode >= 500:
		c.log.Error("backend_response", attrs...)
	case resp.StatusCode >= 400:
		c.log.Warn("backend_response", attrs...)
	default:
		c.log.Info("backend_response", attrs...)
	}
}

func (c *TracedClient) buildAuditLog(correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, requestBody, responseBody []byte) audit.BackendCallLog {
	entry := audit.BackendCallLog{
		CorrelationID:  correlationID,
		Backend:        c.backend,
		Operation:      operation,
		RequestMethod:  req.Method,
		RequestURL:     security.SanitizeURL(req.URL.String()),
		RequestHeaders: security.SanitizeHeaders(req.Header),
		RequestBody:    security.SanitizeBody(requestBody, c.maxBodySize),
		DurationMs:     duration.Milliseconds(),
	}

	if resp != nil {
		status := resp.StatusCode
		entry.ResponseStatus = &status
		entry.ResponseHeaders = security.SanitizeHeaders(resp.Header)
		entry.ResponseBody = security.SanitizeBody(responseBody, c.maxBodySize)
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	return entry
}

// extractOperation names the call after its endpoint: "chat/completions"
// becomes "ChatCompletions" and a Bedrock "/model/{id}/converse" becomes
// "Converse". Object keys fall back to method and backend.
func (c *TracedClient) extractOperation(req *http.Request) string {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	last := parts[len(parts)-1]
	if last == "" || strings.ContainsAny(last, ".:%") {
		return fmt.Sprintf("%s_%s", req.Method, c.backend)
	}

	name := []string{last}
	if len(parts) > 1 && parts[len(parts)-2] == "chat" {
		name = []string{"chat", last}
	}

	var b strings.Builder
	for _, part := range name {
		for _, word := range strings.FieldsFunc(part, func(r rune) bool { return r == '-' || r == '_' }) {
			b.WriteString(strings.ToUpper(word[:1]) + word[1:])
		}
	}
	return b.String()
}

// Client returns the underlying HTTP client.
func (c *TracedClient) Client() *http.Client {
	return c.client
}
