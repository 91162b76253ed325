// Package quality computes the data-quality side artifact: per-table row
// counts, missing cells, duplicates, excluded rows and schema drift. The
// report documents degradation; it never blocks the pipeline.
package quality

import (
	"strings"

	"impactetl/internal/normalize"
	"impactetl/internal/sources"
)

// TableReport is one row of the quality report.
type TableReport struct {
	Table         string `json:"table"`
	Rows          int    `json:"rows"`
	Cols          int    `json:"cols"`
	MissingValues int    `json:"missing_values"`
	DuplicateRows int    `json:"duplicate_rows"`
	DuplicateKeys int    `json:"duplicate_keys"`
	ExcludedRows  int    `json:"excluded_rows"`
	ParseFailures int    `json:"parse_failures"`
	// SchemaDrift lists expected columns entirely absent from the
	// source, semicolon-joined. Distinct from per-row missing values.
	SchemaDrift string `json:"schema_drift,omitempty"`
}

// Columns is the published column order of data_quality_report.csv.
var Columns = []string{
	"table",
	"rows",
	"cols",
	"missing_values",
	"duplicate_rows",
	"duplicate_keys",
	"excluded_rows",
	"parse_failures",
	"schema_drift",
}

// ForRaw profiles a raw extract before any cleaning: blank cells count as
// missing, byte-identical rows count as duplicates.
func ForRaw(table *sources.RawTable) TableReport {
	report := TableReport{
		Table: table.Name + "_raw",
		Rows:  len(table.Rows),
		Cols:  len(table.Columns),
	}

	seen := make(map[string]struct{}, len(table.Rows))
	for i := range table.Rows {
		for c := range table.Columns {
			if strings.TrimSpace(table.Cell(i, c)) == "" {
				report.MissingValues++
			}
		}
		fp := strings.Join(table.Rows[i], "\x1f")
		if _, dup := seen[fp]; dup {
			report.DuplicateRows++
			continue
		}
		seen[fp] = struct{}{}
	}
	return report
}

// ForClean profiles a cleaned table as serialized for export, folding in
// what normalization recorded: resolved duplicates, excluded rows, parse
// failures and schema drift.
func ForClean(name string, rows [][]string, cols int, stats *normalize.Stats) TableReport {
	report := TableReport{
		Table:         name + "_clean",
		Rows:          len(rows),
		Cols:          cols,
		MissingValues: countMissing(rows),
	}
	if stats != nil {
		report.DuplicateRows = stats.DuplicateRows
		report.DuplicateKeys = stats.DuplicateKeys
		report.ExcludedRows = stats.ExcludedRows
		report.ParseFailures = stats.ParseFailures
		report.SchemaDrift = strings.Join(stats.SchemaDrift, ";")
	}
	return report
}

// ForMaster profiles the master dataset. Duplicate keys here would mean
// join fan-out, so the count doubles as an invariant check: anything but
// zero is a pipeline defect.
func ForMaster(rows [][]string, cols int) TableReport {
	report := TableReport{
		Table:         "master_dataset",
		Rows:          len(rows),
		Cols:          cols,
		MissingValues: countMissing(rows),
	}

	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := row[0] + "\x1f" + row[1]
		if _, dup := keys[key]; dup {
			report.DuplicateKeys++
			continue
		}
		keys[key] = struct{}{}
	}
	return report
}

func countMissing(rows [][]string) int {
	missing := 0
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) == "" {
				missing++
			}
		}
	}
	return missing
}
