package reconcile

import "fmt"

// DiagnosticKind classifies a non-fatal anomaly found while reading records.
type DiagnosticKind string

const (
	// DiagMalformedRecord marks a numeric field that could not be parsed
	// and was defaulted to zero.
	DiagMalformedRecord DiagnosticKind = "malformed_record"
	// DiagUnknownCategory marks a transaction whose tag or legacy type was
	// unrecognised and fell back to "other".
	DiagUnknownCategory DiagnosticKind = "unknown_category"
	// DiagBadTimestamp marks a record excluded from the monthly group-by
	// because its timestamp did not parse.
	DiagBadTimestamp DiagnosticKind = "bad_timestamp"
)

// Diagnostic describes one anomaly. Anomalies never abort a report; they are
// returned alongside the summary so presentation layers may warn.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Record string         `json:"record"`
	ID     int64          `json:"id"`
	Field  string         `json:"field,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Field != "" {
		return fmt.Sprintf("%s %s/%d field %s: %s", d.Kind, d.Record, d.ID, d.Field, d.Detail)
	}
	return fmt.Sprintf("%s %s/%d: %s", d.Kind, d.Record, d.ID, d.Detail)
}
