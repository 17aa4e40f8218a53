package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/infrastructure/database"
)

// Timeline events written with each save.
const (
	EventProcessed = "processed"
	EventPOCreated = "po_created"
)

// Repository implements document.Repository using PostgreSQL. A document is
// keyed by its upload and source file, so a redelivered message overwrites the
// rows of its first attempt instead of duplicating them.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a PostgreSQL document repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log.With("component", "document_repository")}
}

// Save writes the header, its line items, the optional purchase order and the
// timeline entries in one transaction. On a redelivery the upsert keeps the
// id of the first attempt, and that id is returned.
func (r *Repository) Save(ctx context.Context, doc document.Document, order *document.PurchaseOrder) (string, error) {
	boxes, err := marshalBoxes(doc.BoundingBoxes)
	if err != nil {
		return "", fmt.Errorf("marshal bounding boxes: %w", err)
	}

	var id string
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertDocumentSQL, append(documentArgs(doc), boxes)...).Scan(&id); err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM document_line_items WHERE document_id = $1`, id); err != nil {
			return fmt.Errorf("delete line items: %w", err)
		}
		if err := insertLines(ctx, tx, id, doc.LineItems); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM purchase_orders WHERE source_document_id = $1`, id); err != nil {
			return fmt.Errorf("delete purchase order: %w", err)
		}
		if order != nil {
			o := *order
			o.SourceDocumentID = id
			if err := insertOrder(ctx, tx, o); err != nil {
				return err
			}
		}

		return insertTimeline(ctx, tx, id, doc, order)
	})
	if err != nil {
		r.log.Error("Failed to save document",
			"document_id", doc.ID,
			"document_upload_id", doc.DocumentUploadID,
			"error", err,
		)
		return "", err
	}

	r.log.Debug("Document saved",
		"document_id", id,
		"line_items", len(doc.LineItems),
		"purchase_order", order != nil,
	)
	return id, nil
}

// ExistsInvoice reports whether a matching invoice number was persisted by
// another upload of the same merchant and document type.
func (r *Repository) ExistsInvoice(ctx context.Context, q document.DuplicateQuery) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE merchant_id = $1
			  AND document_type = $2
			  AND LOWER(invoice_number) = LOWER($3)
			  AND document_upload_id <> $4
			  AND ($5 = FALSE OR status = 'Success')
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query,
		q.MerchantID,
		string(q.DocumentType),
		q.InvoiceNumber,
		q.ExcludeUploadID,
		q.RequireSuccess,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query duplicate invoice: %w", err)
	}
	return exists, nil
}

const upsertDocumentSQL = `
	INSERT INTO documents (
		id, merchant_id, document_upload_id, source_file, document_type,
		invoice_number, invoice_date, due_date, po_number, customer_reference,
		supplier_name, supplier_code, supplier_address, buyer_name, buyer_address,
		store_name, location_code, contract_number, account_number, lease_number,
		category, billing_period, remarks, currency, total_amount,
		tax_amount, status, exception_status, confidence_score, input_tokens,
		output_tokens, created_at, bounding_boxes
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33
	)
	ON CONFLICT (document_upload_id, source_file) DO UPDATE SET
		document_type = EXCLUDED.document_type,
		invoice_number = EXCLUDED.invoice_number,
		invoice_date = EXCLUDED.invoice_date,
		due_date = EXCLUDED.due_date,
		po_number = EXCLUDED.po_number,
		customer_reference = EXCLUDED.customer_reference,
		supplier_name = EXCLUDED.supplier_name,
		supplier_code = EXCLUDED.supplier_code,
		supplier_address = EXCLUDED.supplier_address,
		buyer_name = EXCLUDED.buyer_name,
		buyer_address = EXCLUDED.buyer_address,
		store_name = EXCLUDED.store_name,
		location_code = EXCLUDED.location_code,
		contract_number = EXCLUDED.contract_number,
		account_number = EXCLUDED.account_number,
		lease_number = EXCLUDED.lease_number,
		category = EXCLUDED.category,
		billing_period = EXCLUDED.billing_period,
		remarks = EXCLUDED.remarks,
		currency = EXCLUDED.currency,
		total_amount = EXCLUDED.total_amount,
		tax_amount = EXCLUDED.tax_amount,
		status = EXCLUDED.status,
		exception_status = EXCLUDED.exception_status,
		confidence_score = EXCLUDED.confidence_score,
		input_tokens = EXCLUDED.input_tokens,
		output_tokens = EXCLUDED.output_tokens,
		bounding_boxes = EXCLUDED.bounding_boxes,
		updated_at = NOW()
	RETURNING id
`

// documentArgs returns the header columns in upsertDocumentSQL order,
// without the trailing bounding boxes.
func documentArgs(doc document.Document) []any {
	return []any{
		doc.ID, doc.MerchantID, doc.DocumentUploadID, doc.SourceFile, string(doc.Type),
		doc.InvoiceNumber, doc.InvoiceDate, doc.DueDate, doc.PurchaseOrderNumber, doc.CustomerReference,
		doc.SupplierName, doc.SupplierCode, doc.SupplierAddress, doc.BuyerName, doc.BuyerAddress,
		doc.StoreName, doc.LocationCode, doc.ContractNumber, doc.AccountNumber, doc.LeaseNumber,
		doc.Category, doc.BillingPeriod, doc.Remarks, doc.Currency, numeric(doc.TotalAmount),
		numeric(doc.TaxAmount), string(doc.Status), doc.ExceptionStatus, doc.ConfidenceScore, doc.InputTokens,
		doc.OutputTokens, doc.CreatedAt,
	}
}

func insertLines(ctx context.Context, tx pgx.Tx, documentID string, items []document.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	const query = `
		INSERT INTO document_line_items (
			document_id, line_number, item_list_id, description, item_code,
			item_name, quantity, uom, unit_price, tax_rate,
			tax_amount, total_price, status, exception_status, bounding_boxes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	batch := &pgx.Batch{}
	for i, item := range items {
		boxes, err := marshalBoxes(item.BoundingBoxes)
		if err != nil {
			return fmt.Errorf("marshal line %d bounding boxes: %w", i+1, err)
		}
		batch.Queue(query, append(lineArgs(documentID, i+1, item), boxes)...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for i := range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert line item %d: %w", i+1, err)
		}
	}
	return nil
}

func lineArgs(documentID string, lineNumber int, item document.LineItem) []any {
	return []any{
		documentID, lineNumber, item.ItemListID, item.Description, item.ItemCode,
		item.ItemName, numeric(item.Quantity), item.UOM, numeric(item.UnitPrice), numeric(item.TaxRate),
		numeric(item.TaxAmount), numeric(item.TotalPrice), string(item.Status), item.ExceptionStatus,
	}
}

func insertOrder(ctx context.Context, tx pgx.Tx, o document.PurchaseOrder) error {
	const header = `
		INSERT INTO purchase_orders (
			id, po_number, source_document_id, merchant_id, document_upload_id,
			supplier_name, supplier_code, location_code, currency, order_date,
			total_amount, status, exception_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := tx.Exec(ctx, header,
		o.ID, o.Number, o.SourceDocumentID, o.MerchantID, o.DocumentUploadID,
		o.SupplierName, o.SupplierCode, o.LocationCode, o.Currency, o.OrderDate,
		numeric(o.TotalAmount), string(o.Status), o.ExceptionStatus, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase order %s: %w", o.Number, err)
	}

	if len(o.LineItems) == 0 {
		return nil
	}

	const line = `
		INSERT INTO purchase_order_line_items (
			purchase_order_id, line_number, description, item_code, item_name,
			quantity, uom, unit_price, tax_rate, tax_amount, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	batch := &pgx.Batch{}
	for _, l := range o.LineItems {
		batch.Queue(line,
			o.ID, l.LineNumber, l.Description, l.ItemCode, l.ItemName,
			numeric(l.Quantity), l.UOM, numeric(l.UnitPrice), numeric(l.TaxRate), numeric(l.TaxAmount), numeric(l.TotalPrice),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert purchase order lines: %w", err)
	}
	return nil
}

func insertTimeline(ctx context.Context, tx pgx.Tx, documentID string, doc document.Document, order *document.PurchaseOrder) error {
	const query = `
		INSERT INTO document_timeline (document_id, event, status, exception_status)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, query, documentID, EventProcessed, string(doc.Status), doc.ExceptionStatus); err != nil {
		return fmt.Errorf("insert timeline: %w", err)
	}
	if order != nil {
		if _, err := tx.Exec(ctx, query, documentID, EventPOCreated, string(order.Status), order.Number); err != nil {
			return fmt.Errorf("insert timeline: %w", err)
		}
	}
	return nil
}

// numeric maps an absent amount to SQL NULL.
func numeric(a document.Amount) any {
	if !a.Valid {
		return nil
	}
	return a.Value.String()
}

func marshalBoxes(boxes document.BoundingBoxes) ([]byte, error) {
	if boxes == nil {
		boxes = document.BoundingBoxes{}
	}
	return json.Marshal(boxes)
}

var _ document.Repository = (*Repository)(nil)
