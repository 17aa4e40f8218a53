package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"3tcapital/ms_extraccion_core/internal/application/prompting"
	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/masterdata"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// Default batch sizes bound the number of candidate rows per backend call.
const (
	DefaultVendorBatchSize = 100
	DefaultItemBatchSize   = 50
	DefaultStoreBatchSize  = 100
)

// Exception messages written by the matcher.
const (
	MsgVendorNotFound = "Could not find vendor match"
	MsgItemNotFound   = "Could not find item match"
	MsgStoreNotFound  = "Could not find store match"
)

// Config holds the batching parameters of the matcher.
type Config struct {
	VendorBatchSize int
	ItemBatchSize   int
	StoreBatchSize  int
}

func (c Config) withDefaults() Config {
	if c.VendorBatchSize <= 0 {
		c.VendorBatchSize = DefaultVendorBatchSize
	}
	if c.ItemBatchSize <= 0 {
		c.ItemBatchSize = DefaultItemBatchSize
	}
	if c.StoreBatchSize <= 0 {
		c.StoreBatchSize = DefaultStoreBatchSize
	}
	return c
}

// Matcher resolves free-text vendor, item and store names to master-data codes.
// Batches are evaluated strictly in order; the decision for a given candidate
// ordering is deterministic up to the backend answers.
type Matcher struct {
	source masterdata.Source
	client *prompting.Client
	cfg    Config
	log    *slog.Logger
}

// New creates a Matcher.
func New(source masterdata.Source, client *prompting.Client, cfg Config, log *slog.Logger) *Matcher {
	return &Matcher{
		source: source,
		client: client,
		cfg:    cfg.withDefaults(),
		log:    log.With("component", "matcher"),
	}
}

// Match runs vendor, item and store matching on doc and returns the tokens spent.
func (m *Matcher) Match(ctx context.Context, doc *document.Document, policy merchant.Policy) (llm.Usage, error) {
	var total llm.Usage

	usage, err := m.MatchVendor(ctx, doc, policy)
	total.Add(usage)
	if err != nil {
		return total, err
	}

	usage, err = m.MatchItems(ctx, doc, policy)
	total.Add(usage)
	if err != nil {
		return total, err
	}

	usage, err = m.MatchStore(ctx, doc, policy)
	total.Add(usage)
	return total, err
}

// promptCandidate is a candidate row as shown to the backend. Index is local
// to the batch the row was sent in.
type promptCandidate struct {
	Index       int
	Code        string
	Name        string
	Description string
	UOM         string
}

func promptCandidates(batch []masterdata.Candidate) []promptCandidate {
	out := make([]promptCandidate, len(batch))
	for i, c := range batch {
		out[i] = promptCandidate{Index: i, Code: c.Code, Name: c.Name, Description: c.Description, UOM: c.UOM}
	}
	return out
}

// singleAnswer is the backend reply for vendor and store matching.
type singleAnswer struct {
	Index           int    `json:"index"`
	CompleteMapping bool   `json:"completeMapping"`
	ExceptionStatus string `json:"exceptionStatus"`
}

// singleResult is the outcome of a batched single-record match.
type singleResult struct {
	Candidate       *masterdata.Candidate
	Complete        bool
	ExceptionStatus string
	Batches         int
}

// matchSingle asks for the best candidate batch by batch and stops at the first
// complete mapping. Without one, the answer of the last batch is returned as is.
func (m *Matcher) matchSingle(ctx context.Context, prompt, overrideKey string, docType document.Type, target any, batches [][]masterdata.Candidate) (singleResult, llm.Usage, error) {
	var (
		result singleResult
		usage  llm.Usage
	)

	for i, batch := range batches {
		text, err := m.client.Templates().Render(ctx, prompt, overrideKey, map[string]any{
			"DocumentType": docType,
			"Target":       target,
			"Candidates":   promptCandidates(batch),
		})
		if err != nil {
			return result, usage, err
		}

		answer, callUsage, err := prompting.Call[singleAnswer](ctx, m.client, text, nil)
		usage.Add(callUsage)
		if err != nil {
			return result, usage, fmt.Errorf("%s match batch %d: %w", prompt, i+1, err)
		}

		result = singleResult{ExceptionStatus: answer.ExceptionStatus, Batches: i + 1}
		if answer.Index >= 0 && answer.Index < len(batch) {
			c := batch[answer.Index]
			result.Candidate = &c
			result.Complete = answer.CompleteMapping
		} else if answer.Index != -1 {
			m.log.Warn("Discarded out of range match",
				"prompt", prompt,
				"batch", i+1,
				"index", answer.Index,
				"batch_size", len(batch),
			)
		}

		if result.Complete {
			break
		}
	}

	return result, usage, nil
}
