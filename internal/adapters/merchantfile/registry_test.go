package merchantfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

const policies = `
default:
  documentType: invoice
  requiredFields: [invoiceNumber, invoiceDate, totalAmount]
  defaults:
    currency: MYR
  amountTolerance: "0.02"

merchants:
  Robo:
    code: robo
    invoiceToPO: true
    useStoreMapping: true
    erpHandoff: true
    requiredFields: [invoiceNumber, supplierName]
    defaults:
      paymentTerms: NET30
    fieldAliases:
      customerPO: [PurchaseOrder, CustomerRef]
  gadget:
    documentType: purchase_order
`

func TestParse_Resolve(t *testing.T) {
	reg, err := Parse([]byte(policies))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	t.Run("merchant entry over default", func(t *testing.T) {
		p, err := reg.Resolve(ctx, "robo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.MerchantID != "Robo" || !p.InvoiceToPO || !p.UseStoreMapping || !p.ERPHandoff {
			t.Errorf("unexpected policy %+v", p)
		}
		if p.DocumentType != "invoice" {
			t.Errorf("expected inherited document type, got %q", p.DocumentType)
		}
		if len(p.RequiredFields) != 2 || p.RequiredFields[1] != "supplierName" {
			t.Errorf("expected merchant list to replace default, got %v", p.RequiredFields)
		}
		if p.Defaults["currency"] != "MYR" || p.Defaults["paymentTerms"] != "NET30" {
			t.Errorf("expected merged defaults, got %v", p.Defaults)
		}
		if p.AmountTolerance != "0.02" {
			t.Errorf("expected inherited tolerance, got %q", p.AmountTolerance)
		}
		if len(p.FieldAliases["customerPO"]) != 2 {
			t.Errorf("unexpected aliases %v", p.FieldAliases)
		}
	})

	t.Run("unknown merchant gets default", func(t *testing.T) {
		p, err := reg.Resolve(ctx, "acme")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.MerchantID != "acme" || p.InvoiceToPO || len(p.RequiredFields) != 3 {
			t.Errorf("unexpected policy %+v", p)
		}
	})

	t.Run("resolved policies are copies", func(t *testing.T) {
		p, _ := reg.Resolve(ctx, "robo")
		p.Defaults["currency"] = "USD"
		p.RequiredFields[0] = "changed"

		again, _ := reg.Resolve(ctx, "robo")
		if again.Defaults["currency"] != "MYR" || again.RequiredFields[0] != "invoiceNumber" {
			t.Errorf("registry was modified through a resolved policy: %+v", again)
		}
	})

	if got := reg.Merchants(); len(got) != 2 || got[0] != "Robo" || got[1] != "gadget" {
		t.Errorf("unexpected merchants %v", got)
	}
}

func TestResolve_NoDefault(t *testing.T) {
	reg, err := Parse([]byte("merchants:\n  robo:\n    code: robo\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := reg.Resolve(context.Background(), "acme"); !errors.Is(err, merchant.ErrUnknownMerchant) {
		t.Errorf("expected ErrUnknownMerchant, got %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid yaml", "merchants: [unclosed"},
		{"wrong field type", "merchants:\n  robo:\n    invoiceToPO: maybe\n"},
		{"empty merchant id", "merchants:\n  \"\":\n    code: x\n"},
		{"misspelled required field", "merchants:\n  robo:\n    requiredFields: [invoiceNumber, PONumber]\n"},
		{"line field as header field", "merchants:\n  robo:\n    requiredFields: [unitPrice]\n"},
		{"unknown required line field", "merchants:\n  robo:\n    requiredLineItemFields: [qty]\n"},
		{"unknown field in default", "default:\n  requiredFields: [vendorName]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merchants.yaml")
	if err := os.WriteFile(path, []byte(policies), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Resolve(context.Background(), "gadget"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_RequiredFieldError(t *testing.T) {
	_, err := Parse([]byte("merchants:\n  robo:\n    requiredFields: [invoiceNumber, PONumber]\n"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "merchant robo") || !strings.Contains(err.Error(), "PONumber") {
		t.Errorf("expected error to name the merchant and the field, got %v", err)
	}
}

func TestParse_RequiredFieldsAccepted(t *testing.T) {
	input := "default:\n  requiredFields: [poNumber, taxAmount]\n  requiredLineItemFields: [description, taxAmount, uom]\n"
	if _, err := Parse([]byte(input)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
