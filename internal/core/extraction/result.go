package extraction

import "3tcapital/ms_extraccion_core/internal/core/document"

// Outcome discriminates a Result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeSkip
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkip:
		return "skip"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the per-file outcome of a stage: a document, a skipped file with a
// reason, or a fatal error that aborts the message.
type Result struct {
	Source   string
	Outcome  Outcome
	Document document.Document
	Class    string
	Reason   string
	Err      error
}

// OK wraps a successfully produced document.
func OK(source string, doc document.Document) Result {
	return Result{Source: source, Outcome: OutcomeOK, Document: doc}
}

// WithClass records the document class reported by the extraction service.
func (r Result) WithClass(class string) Result {
	r.Class = class
	return r
}

// Skip marks a file that cannot be processed but must not abort the batch.
func Skip(source, reason string, err error) Result {
	return Result{Source: source, Outcome: OutcomeSkip, Reason: reason, Err: err}
}

// Fatal marks a failure that aborts the whole message.
func Fatal(source string, err error) Result {
	return Result{Source: source, Outcome: OutcomeFatal, Err: err}
}
