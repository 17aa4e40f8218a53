package matcher

import (
	"context"
	"fmt"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/masterdata"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// MatchStore resolves the delivery location of doc to a store code. It only
// runs for merchants with store mapping enabled. An empty store table sets the
// location code to the placeholder without calling the backend.
func (m *Matcher) MatchStore(ctx context.Context, doc *document.Document, policy merchant.Policy) (llm.Usage, error) {
	if !policy.UseStoreMapping {
		return llm.Usage{}, nil
	}

	candidates, err := m.source.Load(ctx, doc.MerchantID, masterdata.KindStore)
	if err != nil {
		return llm.Usage{}, fmt.Errorf("load stores: %w", err)
	}
	if len(candidates) == 0 {
		doc.LocationCode = document.Placeholder
		return llm.Usage{}, nil
	}

	target := map[string]string{
		document.FieldStoreName:    doc.StoreName,
		document.FieldBuyerName:    doc.BuyerName,
		document.FieldBuyerAddress: doc.BuyerAddress,
	}
	batches := masterdata.Batches(candidates, m.cfg.StoreBatchSize)

	result, usage, err := m.matchSingle(ctx, merchant.PromptStore, policy.PromptPaths[merchant.PromptStore], doc.Type, target, batches)
	if err != nil {
		return usage, err
	}

	if result.Candidate != nil {
		doc.LocationCode = result.Candidate.Code
		if !document.IsBlank(result.Candidate.Name) {
			doc.StoreName = result.Candidate.Name
		}
	} else {
		doc.LocationCode = document.Placeholder
	}
	if !result.Complete {
		doc.AddIssue(document.IssueLocationCode, document.FieldLocationCode, exceptionOr(result.ExceptionStatus, MsgStoreNotFound))
	}
	return usage, nil
}
