package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by Report.Err when a report contains errors.
var ErrInvalid = errors.New("graph is invalid")

// Severity of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding codes.
const (
	CodeNoEntry           = "no-entry"
	CodeMultipleEntries   = "multiple-entries"
	CodeNoSink            = "no-sink"
	CodeMultipleSinks     = "multiple-sinks"
	CodeUnconnectedInput  = "unconnected-input"
	CodeUnconnectedOutput = "unconnected-output"
	CodeSharedInput       = "shared-input"
	CodeSharedOutput      = "shared-output"
	CodeTimerOrder        = "timer-order"
	CodePathBudget        = "path-budget"
	CodeDanglingEndpoint  = "dangling-endpoint"
	CodeUnknownPort       = "unknown-port"
	CodeUnknownType       = "unknown-type"
	CodeCycle             = "cycle"
)

// Finding is one validation result. NodeID is empty for graph-wide findings.
type Finding struct {
	Severity Severity
	Code     string
	Message  string
	NodeID   string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s [%s]: %s", f.Severity, f.Code, f.Message)
}

// Report is the outcome of Validate.
type Report struct {
	Findings []Finding
}

// Valid reports whether no error-level findings exist.
func (r Report) Valid() bool { return len(r.Errors()) == 0 }

// Errors returns the error-level findings.
func (r Report) Errors() []Finding { return r.filter(SeverityError) }

// Warnings returns the warning-level findings.
func (r Report) Warnings() []Finding { return r.filter(SeverityWarning) }

// HasCode reports whether any finding carries code.
func (r Report) HasCode(code string) bool {
	for _, f := range r.Findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

func (r Report) filter(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Err returns nil for a valid report, otherwise an error wrapping ErrInvalid
// that lists every error finding.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, f := range errs {
		msgs[i] = f.Message
	}
	return fmt.Errorf("%w:\n- %s", ErrInvalid, strings.Join(msgs, "\n- "))
}

func (r *Report) add(s Severity, code, nodeID, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: s,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		NodeID:   nodeID,
	})
}
