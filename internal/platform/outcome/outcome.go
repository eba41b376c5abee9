// Package outcome builds the error bodies returned by the HTTP layer.
//
// An Outcome carries one or more issues, each with a severity, a machine
// readable code and a human readable diagnostic. Validation issues also carry
// the JSON path of the offending field in Expression.
package outcome

import "fmt"

// Issue severity levels.
const (
	SeverityFatal       = "fatal"
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Issue codes.
const (
	CodeInvalid      = "invalid"
	CodeStructure    = "structure"
	CodeRequired     = "required"
	CodeValue        = "value"
	CodeProcessing   = "processing"
	CodeNotFound     = "not-found"
	CodeNotSupported = "not-supported"
	CodeThrottled    = "throttled"
	CodeTooCostly    = "too-costly"
	CodeTimeout      = "timeout"
	CodeException    = "exception"
)

// Outcome is the JSON error envelope.
type Outcome struct {
	Issue []Issue `json:"issue"`
}

// Issue is a single problem reported in an Outcome.
type Issue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

// New creates an Outcome with a single issue.
func New(severity, code, diagnostics string) *Outcome {
	return &Outcome{
		Issue: []Issue{{Severity: severity, Code: code, Diagnostics: diagnostics}},
	}
}

// Error creates an error Outcome with code "processing".
func Error(diagnostics string) *Outcome {
	return New(SeverityError, CodeProcessing, diagnostics)
}

// Required returns an issue for a missing or empty field.
func Required(field string) Issue {
	return Issue{
		Severity:    SeverityError,
		Code:        CodeRequired,
		Diagnostics: fmt.Sprintf("%s is required", field),
		Expression:  []string{field},
	}
}

// Invalid returns an issue for a field with an unusable value.
func Invalid(field, message string) Issue {
	return Issue{
		Severity:    SeverityError,
		Code:        CodeInvalid,
		Diagnostics: fmt.Sprintf("%s: %s", field, message),
		Expression:  []string{field},
	}
}

// FromIssues wraps a list of issues.
func FromIssues(issues []Issue) *Outcome {
	return &Outcome{Issue: issues}
}

// HasErrors reports whether any issue is an error or fatal.
func (o *Outcome) HasErrors() bool {
	for _, issue := range o.Issue {
		if issue.Severity == SeverityError || issue.Severity == SeverityFatal {
			return true
		}
	}
	return false
}
