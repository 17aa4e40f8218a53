package matcher

import (
	"context"
	"fmt"

	"3tcapital/ms_extraccion_core/internal/application/bbox"
	"3tcapital/ms_extraccion_core/internal/application/prompting"
	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/masterdata"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// promptItem is a line item as shown to the backend.
type promptItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ItemName    string `json:"itemName"`
	ItemCode    string `json:"itemCode"`
	UOM         string `json:"uom"`
}

type itemAnswer struct {
	Matches []struct {
		ID              string `json:"id"`
		Index           int    `json:"index"`
		CompleteMapping bool   `json:"completeMapping"`
		ExceptionStatus string `json:"exceptionStatus"`
	} `json:"matches"`
}

// MatchItems resolves every line item of doc against the item table. Items
// matched in a batch are settled; the rest carry over to the next batch.
// Items left after the last batch get a mapping finding.
func (m *Matcher) MatchItems(ctx context.Context, doc *document.Document, policy merchant.Policy) (llm.Usage, error) {
	var usage llm.Usage
	if len(doc.LineItems) == 0 {
		return usage, nil
	}

	candidates, err := m.itemCandidates(ctx, doc)
	if err != nil {
		return usage, err
	}

	pending := make(map[string]int, len(doc.LineItems))
	order := make([]string, 0, len(doc.LineItems))
	for i := range doc.LineItems {
		id := bbox.ItemID(i)
		pending[id] = i
		order = append(order, id)
	}

	overrideKey := policy.PromptPaths[merchant.PromptItem]
	for n, batch := range masterdata.Batches(candidates, m.cfg.ItemBatchSize) {
		if len(pending) == 0 {
			break
		}

		items := make([]promptItem, 0, len(pending))
		for _, id := range order {
			if i, ok := pending[id]; ok {
				line := doc.LineItems[i]
				items = append(items, promptItem{ID: id, Description: line.Description, ItemName: line.ItemName, ItemCode: line.ItemCode, UOM: line.UOM})
			}
		}

		text, err := m.client.Templates().Render(ctx, merchant.PromptItem, overrideKey, map[string]any{
			"DocumentType": doc.Type,
			"Items":        items,
			"Candidates":   promptCandidates(batch),
		})
		if err != nil {
			return usage, err
		}

		answer, callUsage, err := prompting.Call[itemAnswer](ctx, m.client, text, nil)
		usage.Add(callUsage)
		if err != nil {
			return usage, fmt.Errorf("item match batch %d: %w", n+1, err)
		}

		for _, match := range answer.Matches {
			i, ok := pending[match.ID]
			if !ok || !match.CompleteMapping {
				continue
			}
			if match.Index < 0 || match.Index >= len(batch) {
				m.log.Warn("Discarded out of range item match",
					"document_id", doc.ID,
					"item", match.ID,
					"index", match.Index,
					"batch_size", len(batch),
				)
				continue
			}
			applyItem(&doc.LineItems[i], batch[match.Index], policy)
			delete(pending, match.ID)
		}
	}

	for _, id := range order {
		if i, ok := pending[id]; ok {
			doc.LineItems[i].AddIssue(document.IssueMasterMapping, document.FieldItemCode, MsgItemNotFound)
		}
	}
	return usage, nil
}

// itemCandidates narrows the table with the contract, account or lease numbers
// printed on the document, falling back to the full table when none match.
func (m *Matcher) itemCandidates(ctx context.Context, doc *document.Document) ([]masterdata.Candidate, error) {
	var identifiers []string
	for _, v := range []string{doc.ContractNumber, doc.AccountNumber, doc.LeaseNumber} {
		if !document.IsBlank(v) {
			identifiers = append(identifiers, v)
		}
	}

	if len(identifiers) > 0 {
		candidates, err := m.source.Lookup(ctx, doc.MerchantID, masterdata.KindItem, identifiers)
		if err != nil {
			return nil, fmt.Errorf("lookup items: %w", err)
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	candidates, err := m.source.Load(ctx, doc.MerchantID, masterdata.KindItem)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	return candidates, nil
}

func applyItem(item *document.LineItem, c masterdata.Candidate, policy merchant.Policy) {
	item.ItemCode = c.Code
	if !document.IsBlank(c.Name) {
		item.ItemName = c.Name
	}
	if !document.IsBlank(c.UOM) {
		item.UOM = c.UOM
	}
	if policy.OverrideQuantityFromUOM {
		overrideQuantity(item)
	}
}
