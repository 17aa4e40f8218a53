package merchant

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownMerchant is returned when no policy exists for a merchant and no default is configured.
var ErrUnknownMerchant = errors.New("merchant: unknown merchant")

// Prompt names usable as keys of Policy.PromptPaths.
const (
	PromptVendor      = "vendor"
	PromptItem        = "item"
	PromptStore       = "store"
	PromptStandardize = "standardize"
	PromptSynthesize  = "synthesize"
)

// Policy holds every per-merchant switch of the pipeline. It is resolved once
// per message and passed down explicitly.
type Policy struct {
	MerchantID              string              `yaml:"merchantId"`
	Name                    string              `yaml:"name"`
	Code                    string              `yaml:"code"`
	DocumentType            string              `yaml:"documentType"`
	OverrideQuantityFromUOM bool                `yaml:"overrideQuantityFromUom"`
	UseCustomerRefAsPO      bool                `yaml:"useCustomerRefAsPO"`
	InvoiceToPO             bool                `yaml:"invoiceToPO"`
	UseStoreMapping         bool                `yaml:"useStoreMapping"`
	ERPHandoff              bool                `yaml:"erpHandoff"`
	RequiredFields          []string            `yaml:"requiredFields"`
	RequiredLineItemFields  []string            `yaml:"requiredLineItemFields"`
	PromptPaths             map[string]string   `yaml:"promptPaths"`
	FieldAliases            map[string][]string `yaml:"fieldAliases"`
	Defaults                map[string]string   `yaml:"defaults"`
	UtilityCategories       []string            `yaml:"utilityCategories"`
	AmountTolerance         string              `yaml:"amountTolerance"`
	POPrefix                string              `yaml:"poPrefix"`
}

// Tolerance returns the configured amount tolerance, or fallback when unset or invalid.
func (p Policy) Tolerance(fallback decimal.Decimal) decimal.Decimal {
	if strings.TrimSpace(p.AmountTolerance) == "" {
		return fallback
	}
	d, err := decimal.NewFromString(strings.TrimSpace(p.AmountTolerance))
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}

// NumberingCode returns the code that prefixes generated purchase order numbers.
func (p Policy) NumberingCode() string {
	for _, c := range []string{p.POPrefix, p.Code, p.MerchantID} {
		if c = strings.TrimSpace(c); c != "" {
			return strings.ToUpper(c)
		}
	}
	return "PO"
}

// IsUtility reports whether category belongs to the merchant's utility categories.
func (p Policy) IsUtility(category string) bool {
	categories := p.UtilityCategories
	if len(categories) == 0 {
		categories = DefaultUtilityCategories
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return false
	}
	for _, c := range categories {
		if strings.Contains(category, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// DefaultUtilityCategories are matched when a merchant does not list its own.
var DefaultUtilityCategories = []string{"utility", "utilities", "electricity", "water", "gas", "telecom", "internet"}

// Registry resolves the policy of a merchant.
type Registry interface {
	Resolve(ctx context.Context, merchantID string) (Policy, error)
}
