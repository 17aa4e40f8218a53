package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"3tcapital/ms_extraccion_core/internal/adapters/queue"
	"3tcapital/ms_extraccion_core/internal/application/pipeline"
	"3tcapital/ms_extraccion_core/internal/core/extraction"
	ctxutil "3tcapital/ms_extraccion_core/internal/infrastructure/context"
	httperrors "3tcapital/ms_extraccion_core/internal/infrastructure/http"
)

const maxBodyBytes = 10 << 20

// Enqueuer schedules an extraction message for the background worker.
type Enqueuer interface {
	EnqueueExtraction(ctx context.Context, msg extraction.Message) (*asynq.TaskInfo, error)
}

// Handler accepts extraction messages over HTTP.
type Handler struct {
	enqueuer  Enqueuer
	processor pipeline.Processor
	log       *slog.Logger
}

// NewHandler creates the extraction handler. Either dependency may be nil,
// in which case the matching endpoint answers 503.
func NewHandler(enqueuer Enqueuer, processor pipeline.Processor, log *slog.Logger) *Handler {
	return &Handler{enqueuer: enqueuer, processor: processor, log: log}
}

// EnqueueResponse is returned when a message is accepted for async processing.
type EnqueueResponse struct {
	TaskID           string `json:"taskId"`
	Queue            string `json:"queue"`
	DocumentUploadID string `json:"documentUploadId"`
}

// ProcessResponse is returned by the synchronous endpoint.
type ProcessResponse struct {
	pipeline.Summary
	Status            string    `json:"status"`
	ExceptionStatus   string    `json:"exceptionStatus"`
	AverageConfidence float64   `json:"averageConfidence"`
	DocumentIDs       []string  `json:"documentIds"`
	ConfidenceScores  []float64 `json:"confidenceScores"`
}

// Enqueue handles POST /api/v1/extractions.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httperrors.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", []string{"queue is not configured"}, h.log)
		return
	}

	msg, ok := h.decode(w, r)
	if !ok {
		return
	}

	info, err := h.enqueuer.EnqueueExtraction(r.Context(), msg)
	switch {
	case errors.Is(err, queue.ErrAlreadyQueued):
		httperrors.WriteError(w, http.StatusConflict, "Upload already queued", []string{err.Error()}, h.log)
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "enqueue extraction failed",
			"error", err,
			"merchant_id", msg.MerchantID,
			"document_upload_id", msg.DocumentUploadID,
		)
		httperrors.WriteError(w, http.StatusInternalServerError, "Internal server error", []string{"could not enqueue message"}, h.log)
		return
	}

	h.log.InfoContext(r.Context(), "extraction enqueued",
		"task_id", info.ID,
		"queue", info.Queue,
		"merchant_id", msg.MerchantID,
		"document_upload_id", msg.DocumentUploadID,
	)
	httperrors.WriteJSON(w, http.StatusAccepted, EnqueueResponse{
		TaskID:           info.ID,
		Queue:            info.Queue,
		DocumentUploadID: msg.DocumentUploadID,
	}, h.log)
}

// Process handles POST /api/v1/extractions/sync, running the pipeline inline.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		httperrors.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", []string{"pipeline is not configured"}, h.log)
		return
	}

	msg, ok := h.decode(w, r)
	if !ok {
		return
	}

	ctx := ctxutil.WithMerchantID(r.Context(), msg.MerchantID)
	summary, err := h.processor.ProcessMessage(ctx, msg)
	if err != nil {
		h.handleError(w, r, msg, err)
		return
	}

	upload := summary.Upload
	httperrors.WriteJSON(w, http.StatusOK, ProcessResponse{
		Summary:           summary,
		Status:            upload.Status,
		ExceptionStatus:   upload.ExceptionStatus,
		AverageConfidence: upload.AverageConfidence,
		DocumentIDs:       upload.DocumentIDs,
		ConfidenceScores:  upload.ConfidenceScores,
	}, h.log)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (extraction.Message, bool) {
	var msg extraction.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Invalid request body", []string{err.Error()}, h.log)
		return msg, false
	}
	if err := msg.Validate(); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Validation error", validationMessages(err), h.log)
		return msg, false
	}
	return msg, true
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, msg extraction.Message, err error) {
	attrs := []any{
		"error", err,
		"merchant_id", msg.MerchantID,
		"document_upload_id", msg.DocumentUploadID,
	}

	switch {
	case pipeline.IsPermanent(err):
		h.log.WarnContext(r.Context(), "extraction message rejected", attrs...)
		httperrors.WriteError(w, http.StatusUnprocessableEntity, "Unprocessable message", []string{err.Error()}, h.log)
	case errors.Is(err, context.DeadlineExceeded):
		h.log.ErrorContext(r.Context(), "extraction timed out", attrs...)
		httperrors.WriteError(w, http.StatusGatewayTimeout, "Processing timed out", []string{"retry asynchronously"}, h.log)
	default:
		h.log.ErrorContext(r.Context(), "extraction failed", attrs...)
		httperrors.WriteError(w, http.StatusInternalServerError, "Internal server error", []string{"processing failed"}, h.log)
	}
}

func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return out
}
