package document

import (
	"sort"
	"strings"
)

// IssueKind classifies a finding raised by a pipeline stage.
// Lower values take precedence when several findings co-occur.
type IssueKind int

const (
	IssueDuplicate IssueKind = iota + 1
	IssueMasterMapping
	IssueAmountMismatch
	IssueMissingField
	IssueStandardization
	IssueLineItem
	IssueLocationCode
)

func (k IssueKind) String() string {
	switch k {
	case IssueDuplicate:
		return "duplicate"
	case IssueMasterMapping:
		return "master-mapping"
	case IssueAmountMismatch:
		return "amount-mismatch"
	case IssueMissingField:
		return "missing-field"
	case IssueStandardization:
		return "standardization"
	case IssueLineItem:
		return "line-item"
	case IssueLocationCode:
		return "location-code"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind name in JSON payloads.
func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Issue is a structured finding. Business exceptions are data, never errors.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

// AddIssue records a document-level finding and moves the document to Exceptions.
func (d *Document) AddIssue(kind IssueKind, field, message string) {
	d.Issues = append(d.Issues, Issue{Kind: kind, Field: field, Message: message})
	d.Status = StatusExceptions
	d.ExceptionStatus = joinMessages(d.Issues)
}

// AddIssue records a line-level finding and moves the line to Exceptions.
func (l *LineItem) AddIssue(kind IssueKind, field, message string) {
	l.Issues = append(l.Issues, Issue{Kind: kind, Field: field, Message: message})
	l.Status = StatusExceptions
	l.ExceptionStatus = joinMessages(l.Issues)
}

// HasIssue reports whether a document-level finding of kind exists.
func (d *Document) HasIssue(kind IssueKind) bool {
	for _, issue := range d.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

// PrimaryIssue returns the highest-priority finding across the document and its
// line items. Line-level findings rank as IssueLineItem unless they are mapping
// failures, which keep their own rank.
func (d *Document) PrimaryIssue() (Issue, bool) {
	all := d.AllIssues()
	if len(all) == 0 {
		return Issue{}, false
	}
	return all[0], true
}

// AllIssues merges document and line findings ordered by priority. Order within
// the same kind follows discovery order.
func (d *Document) AllIssues() []Issue {
	all := append([]Issue(nil), d.Issues...)
	for _, item := range d.LineItems {
		for _, issue := range item.Issues {
			if issue.Kind != IssueMasterMapping && issue.Kind != IssueLocationCode {
				issue.Kind = IssueLineItem
			}
			all = append(all, issue)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Kind < all[j].Kind })
	return all
}

func joinMessages(issues []Issue) string {
	seen := make(map[string]bool, len(issues))
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Message == "" || seen[issue.Message] {
			continue
		}
		seen[issue.Message] = true
		parts = append(parts, issue.Message)
	}
	return strings.Join(parts, "; ")
}
