package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"3tcapital/ms_extraccion_core/internal/application/checks"
	"3tcapital/ms_extraccion_core/internal/application/duplicate"
	"3tcapital/ms_extraccion_core/internal/application/fieldmap"
	"3tcapital/ms_extraccion_core/internal/application/matcher"
	"3tcapital/ms_extraccion_core/internal/application/poconvert"
	"3tcapital/ms_extraccion_core/internal/application/standardize"
	"3tcapital/ms_extraccion_core/internal/core/blob"
	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/extraction"
	"3tcapital/ms_extraccion_core/internal/core/handoff"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// Dependencies holds every collaborator of the pipeline. Publisher may be nil
// when no ERP hand-off queue is configured.
type Dependencies struct {
	Policies     merchant.Registry
	Blobs        blob.Store
	Mapper       *fieldmap.Mapper
	Matcher      *matcher.Matcher
	Duplicates   *duplicate.Checker
	Standardizer *standardize.Standardizer
	Synthesizer  *checks.Synthesizer
	Converter    *poconvert.Converter
	Documents    document.Repository
	Uploads      document.UploadRepository
	Publisher    handoff.Publisher
}

// Config holds pipeline-wide defaults that a merchant policy may override.
type Config struct {
	AmountTolerance decimal.Decimal
}

// Summary reports the outcome of one message.
type Summary struct {
	DocumentUploadID string                `json:"documentUploadId"`
	Upload           document.UploadStatus `json:"-"`
	Files            []FileOutcome         `json:"files"`
	Usage            llm.Usage             `json:"usage"`
}

// Pipeline turns the extraction results of one upload into persisted,
// validated documents.
type Pipeline struct {
	deps Dependencies
	cfg  Config
	now  func() time.Time
	log  *slog.Logger
}

// New creates a Pipeline.
func New(deps Dependencies, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.AmountTolerance.IsZero() {
		cfg.AmountTolerance = checks.DefaultTolerance
	}
	return &Pipeline{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
		log:  log.With("component", "pipeline"),
	}
}

// ProcessMessage runs every file of msg through the pipeline. Business
// exceptions are persisted as document status and never returned as errors.
// A system failure marks the upload as failed and is returned so the caller's
// queue can retry or dead-letter the message.
func (p *Pipeline) ProcessMessage(ctx context.Context, msg extraction.Message) (Summary, error) {
	if err := msg.Validate(); err != nil {
		return Summary{}, stageError("validate", "", fmt.Errorf("%w: %v", ErrInvalidMessage, err))
	}

	startTime := time.Now()
	log := p.log.With("merchant_id", msg.MerchantID, "document_upload_id", msg.DocumentUploadID)

	summary, err := p.process(ctx, msg, log)
	if err != nil {
		log.Error("Extraction message failed",
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		status := systemErrorStatus(msg.DocumentUploadID, msg.MerchantID, p.now())
		if updateErr := p.deps.Uploads.UpdateStatus(context.WithoutCancel(ctx), status); updateErr != nil {
			log.Error("Failed to mark upload as failed", "error", updateErr)
		}
		return summary, err
	}

	log.Info("Extraction message processed",
		"files", len(summary.Files),
		"status", summary.Upload.Status,
		"input_tokens", summary.Usage.InputTokens,
		"output_tokens", summary.Usage.OutputTokens,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return summary, nil
}

func (p *Pipeline) process(ctx context.Context, msg extraction.Message, log *slog.Logger) (Summary, error) {
	summary := Summary{DocumentUploadID: msg.DocumentUploadID}

	policy, err := p.deps.Policies.Resolve(ctx, msg.MerchantID)
	if err != nil {
		return summary, stageError("resolve policy", "", err)
	}

	docType := documentType(msg, policy)
	table := fieldmap.ForType(docType).WithOverrides(policy.FieldAliases)

	files, skipped, err := p.loadFiles(ctx, msg)
	if err != nil {
		return summary, err
	}
	summary.Files = append(summary.Files, skipped...)

	for _, res := range p.deps.Mapper.MapFiles(files, table) {
		switch res.Outcome {
		case extraction.OutcomeSkip:
			summary.Files = append(summary.Files, skippedOutcome(res.Source, res.Reason))
			continue
		case extraction.OutcomeFatal:
			return summary, stageError("map", res.Source, res.Err)
		}

		outcome, usage, err := p.processDocument(ctx, msg, policy, res, log)
		summary.Usage.Add(usage)
		if err != nil {
			return summary, err
		}
		summary.Files = append(summary.Files, outcome)
	}

	summary.Upload = AggregateUpload(msg.DocumentUploadID, msg.MerchantID, summary.Files, p.now())
	if err := p.deps.Uploads.UpdateStatus(ctx, summary.Upload); err != nil {
		return summary, stageError("update upload status", "", err)
	}
	return summary, nil
}

// processDocument runs the stages in their fixed order: match, duplicate check,
// standardize, missing fields, amounts, synthesis, purchase order, persist, hand-off.
func (p *Pipeline) processDocument(ctx context.Context, msg extraction.Message, policy merchant.Policy, res extraction.Result, log *slog.Logger) (FileOutcome, llm.Usage, error) {
	var usage llm.Usage

	doc := res.Document
	doc.ID = uuid.NewString()
	doc.MerchantID = msg.MerchantID
	doc.DocumentUploadID = msg.DocumentUploadID
	doc.CreatedAt = p.now()

	if !Recognized(doc.Type, res.Class, msg.SourceFileName, res.Source) {
		doc = unrecognizedDocument(doc)
		log.Warn("Unrecognized document format", "file", res.Source, "class", res.Class)
		id, err := p.deps.Documents.Save(ctx, doc, nil)
		if err != nil {
			return FileOutcome{}, usage, stageError("persist", res.Source, err)
		}
		doc.ID = id
		return outcomeOf(doc, document.UploadFailed, nil), usage, nil
	}

	fieldmap.ApplyPolicy(&doc, policy)

	matchUsage, err := p.deps.Matcher.Match(ctx, &doc, policy)
	usage.Add(matchUsage)
	if err != nil {
		return FileOutcome{}, usage, stageError("match", res.Source, err)
	}

	if err := p.deps.Duplicates.Check(ctx, &doc); err != nil {
		return FileOutcome{}, usage, stageError("duplicate check", res.Source, err)
	}

	doc, stdUsage, err := p.deps.Standardizer.Standardize(ctx, doc, policy)
	usage.Add(stdUsage)
	if err != nil {
		return FileOutcome{}, usage, stageError("standardize", res.Source, err)
	}

	checks.MissingFields(&doc, policy)
	checks.Amounts(&doc, policy.Tolerance(p.cfg.AmountTolerance))

	verdict, synthUsage, err := p.deps.Synthesizer.Synthesize(ctx, &doc, policy)
	usage.Add(synthUsage)
	if err != nil {
		return FileOutcome{}, usage, stageError("synthesize", res.Source, err)
	}

	var order *document.PurchaseOrder
	if doc.Type == document.TypeInvoice {
		order, err = p.deps.Converter.Convert(ctx, &doc, policy)
		if err != nil {
			return FileOutcome{}, usage, stageError("convert", res.Source, err)
		}
	}

	status := verdict.Status
	if doc.Status == document.StatusExceptions && status == document.UploadSuccess {
		status = document.UploadPendingReview
	}

	doc.InputTokens = usage.InputTokens
	doc.OutputTokens = usage.OutputTokens
	id, err := p.deps.Documents.Save(ctx, doc, order)
	if err != nil {
		return FileOutcome{}, usage, stageError("persist", res.Source, err)
	}
	doc.ID = id
	if order != nil {
		order.SourceDocumentID = id
	}

	p.handOff(ctx, doc, policy, log)

	log.Info("Document processed",
		"file", res.Source,
		"document_id", doc.ID,
		"status", status,
		"exception_status", doc.ExceptionStatus,
	)
	return outcomeOf(doc, status, order), usage, nil
}

// handOff notifies the ERP queue. The document is already persisted, so a
// failed notification is logged and does not fail the message.
func (p *Pipeline) handOff(ctx context.Context, doc document.Document, policy merchant.Policy, log *slog.Logger) {
	if p.deps.Publisher == nil || !policy.ERPHandoff || doc.Status != document.StatusSuccess {
		return
	}
	n := handoff.Notification{DocumentID: doc.ID, DocumentType: string(doc.Type), MerchantID: doc.MerchantID}
	if err := p.deps.Publisher.Publish(ctx, n); err != nil {
		log.Error("ERP hand-off failed", "document_id", doc.ID, "error", err)
	}
}

// loadFiles returns the raw extraction results of msg. Objects that no longer
// exist are skipped; any other storage failure aborts the message.
func (p *Pipeline) loadFiles(ctx context.Context, msg extraction.Message) ([]extraction.SourceFile, []FileOutcome, error) {
	if len(msg.ExtractionResult) > 0 {
		return []extraction.SourceFile{{Name: msg.SourceFileName, Data: msg.ExtractionResult}}, nil, nil
	}

	var (
		files   []extraction.SourceFile
		skipped []FileOutcome
	)
	for _, key := range msg.ResultJSONList {
		data, err := p.deps.Blobs.Get(ctx, key)
		if errors.Is(err, blob.ErrNotFound) {
			f := extraction.SourceFile{Name: key}
			p.log.Warn("Extraction result not found", "key", key)
			skipped = append(skipped, skippedOutcome(f.DisplayName(), "extraction result not found"))
			continue
		}
		if err != nil {
			return nil, nil, stageError("load", key, err)
		}
		files = append(files, extraction.SourceFile{Name: key, Data: data})
	}
	return files, skipped, nil
}

func documentType(msg extraction.Message, policy merchant.Policy) document.Type {
	for _, t := range []string{msg.DocumentType, policy.DocumentType} {
		switch document.Type(t) {
		case document.TypeInvoice, document.TypePurchaseOrder, document.TypeGoodsReceipt:
			return document.Type(t)
		}
	}
	return document.TypeInvoice
}

func outcomeOf(doc document.Document, status string, order *document.PurchaseOrder) FileOutcome {
	out := FileOutcome{
		Source:          doc.SourceFile,
		DocumentID:      doc.ID,
		Status:          status,
		ExceptionStatus: doc.ExceptionStatus,
		Confidence:      doc.ConfidenceScore,
	}
	if order != nil {
		out.PONumber = order.Number
	}
	return out
}
