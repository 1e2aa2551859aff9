// Package diagnostic collects the recoverable anomalies of a generation run.
// Nothing recorded here aborts a run; callers decide whether warnings matter.
package diagnostic

import (
	"fmt"
	"strings"
)

// Codes recorded by the engine.
const (
	CodeTypeNotInIndex       = "TYPE_NOT_IN_INDEX"
	CodeCycleDetected        = "CYCLE_DETECTED"
	CodeInvalidConstraint    = "INVALID_CONSTRAINT"
	CodeInvalidPreregistered = "INVALID_PREREGISTERED_SCHEMA"
	CodeNameCollision        = "NAME_COLLISION"
)

// Severity of a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is a single recorded anomaly.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	// Type is the rendered type the diagnostic relates to, if any
	Type string
	// Field is the property path the diagnostic relates to, if any
	Field string
}

// String formats the diagnostic on one line.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", d.Severity, d.Code, d.Message)
	if d.Type != "" {
		fmt.Fprintf(&b, " (type %s", d.Type)
		if d.Field != "" {
			fmt.Fprintf(&b, ", field %s", d.Field)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Diagnostics holds everything recorded during a run. The zero value is ready to use.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// AddError records an error diagnostic.
func (d *Diagnostics) AddError(code, message, typ, field string) {
	if d == nil {
		return
	}
	d.Errors = append(d.Errors, Diagnostic{Severity: Error, Code: code, Message: message, Type: typ, Field: field})
}

// AddWarning records a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, typ, field string) {
	if d == nil {
		return
	}
	d.Warnings = append(d.Warnings, Diagnostic{Severity: Warning, Code: code, Message: message, Type: typ, Field: field})
}

// AddInfo records an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, typ, field string) {
	if d == nil {
		return
	}
	d.Infos = append(d.Infos, Diagnostic{Severity: Info, Code: code, Message: message, Type: typ, Field: field})
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return d != nil && len(d.Errors) > 0
}

// All returns every diagnostic, errors first.
func (d *Diagnostics) All() []Diagnostic {
	if d == nil {
		return nil
	}
	all := make([]Diagnostic, 0, len(d.Errors)+len(d.Warnings)+len(d.Infos))
	all = append(all, d.Errors...)
	all = append(all, d.Warnings...)
	return append(all, d.Infos...)
}

// ByCode returns the diagnostics recorded with code.
func (d *Diagnostics) ByCode(code string) []Diagnostic {
	var out []Diagnostic
	for _, diag := range d.All() {
		if diag.Code == code {
			out = append(out, diag)
		}
	}
	return out
}

// Merge appends the diagnostics of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if d == nil || other == nil {
		return
	}
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}
