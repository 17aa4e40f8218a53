package pipeline

import (
	"path"
	"strings"
	"unicode"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

// foreignTokens are file name tokens that identify a document of another
// type than the pipeline expects.
var foreignTokens = map[document.Type][]string{
	document.TypeInvoice:       {"grn", "goodsreceipt", "goodsreceived", "deliveryorder"},
	document.TypePurchaseOrder: {"grn", "goodsreceipt", "goodsreceived", "invoice"},
	document.TypeGoodsReceipt:  {"invoice"},
}

// classAliases map the extraction service class to a document type.
var classAliases = map[string]document.Type{
	"invoice":           document.TypeInvoice,
	"taxinvoice":        document.TypeInvoice,
	"purchaseorder":     document.TypePurchaseOrder,
	"po":                document.TypePurchaseOrder,
	"grn":               document.TypeGoodsReceipt,
	"goodsreceipt":      document.TypeGoodsReceipt,
	"goodsreceivednote": document.TypeGoodsReceipt,
	"deliveryorder":     document.TypeGoodsReceipt,
}

// Recognized reports whether a file belongs to the pipeline of the expected
// type. Any file name carrying a foreign token is rejected, as is a payload
// whose class names another known type. Unknown classes are accepted.
func Recognized(expected document.Type, class string, names ...string) bool {
	for _, name := range names {
		tokens := fileTokens(name)
		for _, foreign := range foreignTokens[expected] {
			if tokens[foreign] {
				return false
			}
		}
	}

	if t, ok := classAliases[squash(class)]; ok && t != expected {
		return false
	}
	return true
}

// fileTokens splits a file name into lower case words and the joined pairs of
// adjacent words, so "goods_receipt" yields "goodsreceipt".
func fileTokens(name string) map[string]bool {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	words := strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]bool, len(words)*2)
	for i, w := range words {
		tokens[w] = true
		if i > 0 {
			tokens[words[i-1]+w] = true
		}
	}
	return tokens
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// unrecognizedDocument is the canned record written for a file routed to the
// wrong pipeline.
func unrecognizedDocument(doc document.Document) document.Document {
	out := document.Document{
		ID:               doc.ID,
		MerchantID:       doc.MerchantID,
		DocumentUploadID: doc.DocumentUploadID,
		SourceFile:       doc.SourceFile,
		Type:             doc.Type,
		ConfidenceScore:  doc.ConfidenceScore,
		CreatedAt:        doc.CreatedAt,
	}
	out.AddIssue(document.IssueStandardization, "", document.UnrecognizedFormat)
	out.Normalize()
	return out
}
