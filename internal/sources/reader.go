// Package sources loads the four raw extracts (CRM, surveys, attendance,
// outcomes) into uniform string tables. File formats differ per source;
// everything downstream of Reader sees the same shape.
package sources

import (
	"context"
)

// Source names used in logs and the quality report.
const (
	SourceCRM        = "crm"
	SourceSurveys    = "surveys"
	SourceAttendance = "attendance"
	SourceOutcomes   = "outcomes"
)

// RawTable holds one extract exactly as loaded: a header row and string
// cells. Rows may be ragged; normalization pads missing cells as empty.
type RawTable struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Cell returns the value at (row, col) or empty string when the row is
// shorter than the header.
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Reader loads one raw extract. The bootstrap generator implements the
// same interface so tests and fresh checkouts can substitute fixtures.
type Reader interface {
	// Name returns the logical source name.
	Name() string

	// Read loads the extract.
	Read(ctx context.Context) (*RawTable, error)
}
