package checks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"3tcapital/ms_extraccion_core/internal/application/prompting"
	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// MaxExceptionLength caps the synthesized exception status.
const MaxExceptionLength = 300

// Verdict is the final review outcome of a document.
type Verdict struct {
	Status          string `json:"status"`
	ExceptionStatus string `json:"exceptionStatus"`
}

type lineFinding struct {
	Line            int    `json:"line"`
	Description     string `json:"description"`
	ExceptionStatus string `json:"exceptionStatus"`
}

// Synthesizer merges document and line findings into one exception status.
type Synthesizer struct {
	client *prompting.Client
	log    *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(client *prompting.Client, log *slog.Logger) *Synthesizer {
	return &Synthesizer{
		client: client,
		log:    log.With("component", "synthesizer"),
	}
}

// Synthesize sets the final status and exception status of doc. Documents
// without findings succeed without a backend call. The backend wording is kept
// only when it agrees with the priority order: a duplicate always fails, any
// other finding goes to review, and the primary cause leads the message.
func (s *Synthesizer) Synthesize(ctx context.Context, doc *document.Document, policy merchant.Policy) (Verdict, llm.Usage, error) {
	findings := doc.AllIssues()
	if len(findings) == 0 {
		doc.MarkSuccess()
		return Verdict{Status: document.UploadSuccess, ExceptionStatus: document.NotApplicable}, llm.Usage{}, nil
	}

	expected := ExpectedStatus(doc)
	fallback := Summary(findings)

	var lines []lineFinding
	for i, item := range doc.LineItems {
		if item.Status == document.StatusExceptions {
			lines = append(lines, lineFinding{Line: i + 1, Description: item.Description, ExceptionStatus: item.ExceptionStatus})
		}
	}

	prompt, err := s.client.Templates().Render(ctx, merchant.PromptSynthesize, policy.PromptPaths[merchant.PromptSynthesize], map[string]any{
		"DocumentType": doc.Type,
		"Findings":     findings,
		"LineFindings": lines,
	})
	if err != nil {
		return Verdict{}, llm.Usage{}, err
	}

	answer, usage, err := prompting.Call(ctx, s.client, prompt, func(v Verdict) error {
		switch v.Status {
		case document.UploadSuccess, document.UploadPendingReview, document.UploadFail:
			return nil
		}
		return fmt.Errorf("unknown status %q", v.Status)
	})
	if err != nil {
		return Verdict{}, usage, fmt.Errorf("synthesize exceptions: %w", err)
	}

	verdict := Verdict{Status: expected, ExceptionStatus: fallback}
	if answer.Status == expected && leadsWith(answer.ExceptionStatus, findings[0]) {
		verdict.ExceptionStatus = truncate(strings.TrimSpace(answer.ExceptionStatus))
	} else {
		s.log.Warn("Overrode synthesized exception status",
			"document_id", doc.ID,
			"backend_status", answer.Status,
			"expected_status", expected,
			"primary_issue", findings[0].Kind.String(),
		)
	}

	doc.Status = document.StatusExceptions
	doc.ExceptionStatus = verdict.ExceptionStatus
	return verdict, usage, nil
}

// ExpectedStatus returns the review status implied by the findings of doc.
func ExpectedStatus(doc *document.Document) string {
	primary, ok := doc.PrimaryIssue()
	switch {
	case !ok:
		return document.UploadSuccess
	case primary.Kind == document.IssueDuplicate:
		return document.UploadFail
	default:
		return document.UploadPendingReview
	}
}

// Summary joins finding messages in priority order, primary cause first.
func Summary(findings []document.Issue) string {
	seen := make(map[string]bool, len(findings))
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.Message == "" || seen[f.Message] {
			continue
		}
		seen[f.Message] = true
		parts = append(parts, f.Message)
	}
	return truncate(strings.Join(parts, "; "))
}

// leadsWith reports whether text is usable and its first sentence refers to
// the primary finding. Only duplicates carry a keyword strong enough to check.
func leadsWith(text string, primary document.Issue) bool {
	text = strings.TrimSpace(text)
	if document.IsBlank(text) || text == document.NotApplicable {
		return false
	}
	if primary.Kind != document.IssueDuplicate {
		return true
	}
	first, _, _ := strings.Cut(text, ".")
	return strings.Contains(strings.ToLower(first), "duplicate")
}

func truncate(s string) string {
	if len(s) <= MaxExceptionLength {
		return s
	}
	r := []rune(s)
	if len(r) <= MaxExceptionLength {
		return s
	}
	return string(r[:MaxExceptionLength-3]) + "..."
}
