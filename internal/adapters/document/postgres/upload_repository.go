package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

// UploadRepository implements document.UploadRepository using PostgreSQL.
type UploadRepository struct {
	pool *pgxpool.Pool
}

// NewUploadRepository creates a PostgreSQL upload status repository.
func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{pool: pool}
}

// UpdateStatus writes the aggregate status of an upload, replacing any previous one.
func (r *UploadRepository) UpdateStatus(ctx context.Context, s document.UploadStatus) error {
	const query = `
		INSERT INTO document_uploads (
			document_upload_id, merchant_id, status, exception_status,
			average_confidence, confidence_scores, document_ids, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (document_upload_id) DO UPDATE SET
			merchant_id = EXCLUDED.merchant_id,
			status = EXCLUDED.status,
			exception_status = EXCLUDED.exception_status,
			average_confidence = EXCLUDED.average_confidence,
			confidence_scores = EXCLUDED.confidence_scores,
			document_ids = EXCLUDED.document_ids,
			updated_at = EXCLUDED.updated_at
	`

	scores := s.ConfidenceScores
	if scores == nil {
		scores = []float64{}
	}
	ids := s.DocumentIDs
	if ids == nil {
		ids = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		s.DocumentUploadID, s.MerchantID, s.Status, s.ExceptionStatus,
		s.AverageConfidence, scores, ids, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update upload status %s: %w", s.DocumentUploadID, err)
	}
	return nil
}

var _ document.UploadRepository = (*UploadRepository)(nil)
