package handoff

import "context"

// Notification tells downstream ERP consumers that a document is ready.
type Notification struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
	MerchantID   string `json:"merchantId"`
}

// Publisher pushes notifications onto the ERP hand-off queue.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}
