// Package normalize cleans raw extract tables into typed domain records:
// canonical column names, parsed dates and numerics, standardized IDs,
// deduplication. Malformed values become nil and the row survives; only a
// row whose join key cannot be recovered is excluded.
package normalize

import (
	"regexp"
	"strings"

	"impactetl/internal/errors"
)

// Canonical column names shared by every source.
const (
	ColParticipantID = "participant_id"
	ColProgramID     = "program_id"
	ColCity          = "city"
	ColEventDate     = "event_date"
	ColAttended      = "attended"
	ColSurveyScore   = "survey_score"
	ColNPS           = "nps"
	ColPreScore      = "pre_score"
	ColPostScore     = "post_score"
	ColEmail         = "email"
	ColPhone         = "phone"
	ColDOB           = "dob"
)

// columnAliases maps snake-cased header names to canonical columns. The
// upstream CRM, survey and attendance tools each export their own header
// vocabulary; this table is the one place that vocabulary is absorbed.
var columnAliases = map[string]string{
	"participant_id": ColParticipantID,
	"participantid":  ColParticipantID,
	"student_id":     ColParticipantID,
	"studentid":      ColParticipantID,
	"id":             ColParticipantID,

	"program_id": ColProgramID,
	"programid":  ColProgramID,
	"program":    ColProgramID,

	"city":     ColCity,
	"site":     ColCity,
	"location": ColCity,

	"date":            ColEventDate,
	"event_date":      ColEventDate,
	"session_date":    ColEventDate,
	"attendance_date": ColEventDate,

	"attended": ColAttended,
	"present":  ColAttended,

	"pre_score":          ColPreScore,
	"post_score":         ColPostScore,
	"outcome_score_pre":  ColPreScore,
	"outcome_score_post": ColPostScore,

	"survey_score": ColSurveyScore,
	"satisfaction": ColSurveyScore,
	"nps":          ColNPS,

	"email":     ColEmail,
	"phone":     ColPhone,
	"dob":       ColDOB,
	"birthdate": ColDOB,
}

var (
	nonWordRe    = regexp.MustCompile(`[^\w]+`)
	underscoreRe = regexp.MustCompile(`_+`)
)

// snakeCase lowers a header and collapses every non-word run to a single
// underscore: "Session Date" -> "session_date".
func snakeCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRe.ReplaceAllString(s, "_")
	s = underscoreRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ColumnMapping is the resolved layout of one raw table: canonical column
// name to cell index, plus the headers that matched nothing and were
// dropped.
type ColumnMapping struct {
	Index   map[string]int
	Dropped []string
}

// Has reports whether the canonical column exists in the source.
func (m *ColumnMapping) Has(canonical string) bool {
	_, ok := m.Index[canonical]
	return ok
}

// MapColumns resolves raw headers against the alias table. When two raw
// headers map to the same canonical column the first wins; the rest are
// dropped and reported.
func MapColumns(headers []string) *ColumnMapping {
	m := &ColumnMapping{Index: make(map[string]int)}
	for i, h := range headers {
		canonical, ok := columnAliases[snakeCase(h)]
		if !ok {
			m.Dropped = append(m.Dropped, h)
			continue
		}
		if _, taken := m.Index[canonical]; taken {
			m.Dropped = append(m.Dropped, h)
			continue
		}
		m.Index[canonical] = i
	}
	return m
}

// Missing returns the canonical columns from expected that the source
// lacks entirely. These are schema drift, reported separately from
// per-row missing values.
func (m *ColumnMapping) Missing(expected []string) []string {
	var missing []string
	for _, col := range expected {
		if !m.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// ValidateAliases sanity-checks the alias table at startup: every alias
// must target a canonical column that is itself a fixed point of the
// table. A broken table is a programming error, caught before any data
// is read.
func ValidateAliases() error {
	for alias, canonical := range columnAliases {
		target, ok := columnAliases[canonical]
		if !ok || target != canonical {
			return errors.NewConfigError("column alias table is inconsistent", nil).
				WithContext("alias", alias).
				WithContext("canonical", canonical)
		}
		if snakeCase(alias) != alias {
			return errors.NewConfigError("column alias is not snake_cased", nil).
				WithContext("alias", alias)
		}
	}
	return nil
}
