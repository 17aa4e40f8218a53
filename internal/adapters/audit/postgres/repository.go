package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/ms_extraccion_core/internal/core/audit"
)

// Repository implements audit.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a PostgreSQL audit repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log.With("component", "audit_repository")}
}

// Save persists one backend call log.
func (r *Repository) Save(ctx context.Context, entry audit.BackendCallLog) error {
	const query = `
		INSERT INTO backend_call_log (
			correlation_id, backend, operation, request_method, request_url,
			request_headers, request_body, response_status, response_headers,
			response_body, duration_ms, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	requestHeaders, err := marshalHeaders(entry.RequestHeaders)
	if err != nil {
		return fmt.Errorf("marshal request headers: %w", err)
	}
	responseHeaders, err := marshalHeaders(entry.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("marshal response headers: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		entry.CorrelationID,
		entry.Backend,
		entry.Operation,
		entry.RequestMethod,
		entry.RequestURL,
		requestHeaders,
		nullableJSON(entry.RequestBody),
		entry.ResponseStatus,
		responseHeaders,
		nullableJSON(entry.ResponseBody),
		entry.DurationMs,
		entry.ErrorMessage,
	)
	if err != nil {
		r.log.Error("Failed to insert backend call log",
			"correlation_id", entry.CorrelationID,
			"backend", entry.Backend,
			"operation", entry.Operation,
			"error", err,
		)
		return fmt.Errorf("insert backend call log: %w", err)
	}

	r.log.Debug("Backend call log saved",
		"correlation_id", entry.CorrelationID,
		"backend", entry.Backend,
		"operation", entry.Operation,
		"response_status", entry.ResponseStatus,
		"duration_ms", entry.DurationMs,
	)
	return nil
}

// FindByCorrelationID returns every call logged under correlationID, newest first.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.BackendCallLog, error) {
	const query = `
		SELECT id, correlation_id, backend, operation, request_method, request_url,
		       request_headers, request_body, response_status, response_headers,
		       response_body, duration_ms, error_message, created_at
		FROM backend_call_log
		WHERE correlation_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query backend call logs: %w", err)
	}
	defer rows.Close()

	var logs []audit.BackendCallLog
	for rows.Next() {
		var (
			entry                           audit.BackendCallLog
			requestHeaders, responseHeaders []byte
			requestBody, responseBody       []byte
		)
		err := rows.Scan(
			&entry.ID,
			&entry.CorrelationID,
			&entry.Backend,
			&entry.Operation,
			&entry.RequestMethod,
			&entry.RequestURL,
			&requestHeaders,
			&requestBody,
			&entry.ResponseStatus,
			&responseHeaders,
			&responseBody,
			&entry.DurationMs,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backend call log: %w", err)
		}

		if err := json.Unmarshal(requestHeaders, &entry.RequestHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal request headers: %w", err)
		}
		if err := json.Unmarshal(responseHeaders, &entry.ResponseHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal response headers: %w", err)
		}
		entry.RequestBody = requestBody
		entry.ResponseBody = responseBody

		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return logs, nil
}

func marshalHeaders(headers map[string]string) ([]byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	return json.Marshal(headers)
}

// nullableJSON maps an empty body to SQL NULL.
func nullableJSON(body json.RawMessage) any {
	if len(body) == 0 {
		return nil
	}
	return []byte(body)
}

var _ audit.Repository = (*Repository)(nil)
