package pipeline

import (
	"fmt"
	"strings"
	"time"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

// MsgNoDocuments is the upload exception when no file produced a document.
const MsgNoDocuments = "No readable extraction results"

// FileOutcome is the result of one source file of a message.
type FileOutcome struct {
	Source          string  `json:"source"`
	DocumentID      string  `json:"documentId,omitempty"`
	Status          string  `json:"status"`
	ExceptionStatus string  `json:"exceptionStatus"`
	Confidence      float64 `json:"confidenceScore"`
	PONumber        string  `json:"poNumber,omitempty"`
	Skipped         bool    `json:"skipped,omitempty"`
}

var statusRank = map[string]int{
	document.UploadSuccess:       0,
	document.UploadPendingReview: 1,
	document.UploadFail:          2,
	document.UploadFailed:        3,
}

// AggregateUpload folds file outcomes into the upload status record. The
// upload takes the worst status of its files; the confidence average only
// covers files that produced a document.
func AggregateUpload(uploadID, merchantID string, files []FileOutcome, now time.Time) document.UploadStatus {
	status := document.UploadStatus{
		DocumentUploadID: uploadID,
		MerchantID:       merchantID,
		Status:           document.UploadSuccess,
		ConfidenceScores: []float64{},
		DocumentIDs:      []string{},
		UpdatedAt:        now,
	}

	var (
		messages []string
		seen     = map[string]bool{}
		sum      float64
	)
	for _, f := range files {
		if statusRank[f.Status] > statusRank[status.Status] {
			status.Status = f.Status
		}
		if !f.Skipped {
			status.ConfidenceScores = append(status.ConfidenceScores, f.Confidence)
			status.DocumentIDs = append(status.DocumentIDs, f.DocumentID)
			sum += f.Confidence
		}
		if document.IsBlank(f.ExceptionStatus) || f.ExceptionStatus == document.NotApplicable || seen[f.ExceptionStatus] {
			continue
		}
		seen[f.ExceptionStatus] = true
		messages = append(messages, f.ExceptionStatus)
	}

	if len(status.DocumentIDs) == 0 {
		status.Status = document.UploadFailed
		messages = append([]string{MsgNoDocuments}, messages...)
	} else {
		status.AverageConfidence = sum / float64(len(status.ConfidenceScores))
	}

	status.ExceptionStatus = document.NotApplicable
	if len(messages) > 0 {
		status.ExceptionStatus = strings.Join(messages, "; ")
	}
	return status
}

func skippedOutcome(source, reason string) FileOutcome {
	return FileOutcome{
		Source:          source,
		Status:          document.UploadPendingReview,
		ExceptionStatus: fmt.Sprintf("%s: %s", source, reason),
		Skipped:         true,
	}
}

func systemErrorStatus(uploadID, merchantID string, now time.Time) document.UploadStatus {
	return document.UploadStatus{
		DocumentUploadID: uploadID,
		MerchantID:       merchantID,
		Status:           document.UploadFailed,
		ExceptionStatus:  document.UploadSystemError,
		ConfidenceScores: []float64{},
		DocumentIDs:      []string{},
		UpdatedAt:        now,
	}
}
