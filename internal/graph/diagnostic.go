package graph

import "fmt"

// DiagnosticCode identifies a non-fatal condition found while building or analyzing a graph
type DiagnosticCode string

const (
	DiagExtractionFailed    DiagnosticCode = "extraction_failed"
	DiagDuplicateFile       DiagnosticCode = "duplicate_file"
	DiagNoEntryPoint        DiagnosticCode = "no_entry_point"
	DiagMultipleEntryPoints DiagnosticCode = "multiple_entry_points"
	DiagIncomingMismatch    DiagnosticCode = "snapshot_incoming_mismatch"
)

// Diagnostic is returned to the caller instead of being logged
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	File    NodeID         `json:"file,omitempty"`
	Message string         `json:"message"`
	Related []NodeID       `json:"related,omitempty"`
}

func (d Diagnostic) String() string {
	if d.File != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Code, d.File, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}
