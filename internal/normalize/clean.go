package normalize

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"impactetl/internal/sources"
	"impactetl/pkg/contracts/domain"
)

// Stats records what normalization did to one source, for the quality
// report. Nothing here is ever fatal.
type Stats struct {
	Source         string
	RowsIn         int
	RowsOut        int
	DroppedColumns []string
	SchemaDrift    []string
	ParseFailures  int
	ExcludedRows   int
	DuplicateRows  int
	DuplicateKeys  int
}

// Expected canonical columns per source. A column absent from this list
// for a whole extract is schema drift.
var (
	expectedCRM        = []string{ColParticipantID, ColCity, ColEmail, ColPhone, ColDOB}
	expectedSurveys    = []string{ColParticipantID, ColProgramID, ColEventDate, ColSurveyScore, ColNPS}
	expectedAttendance = []string{ColParticipantID, ColProgramID, ColEventDate, ColAttended, ColCity}
	expectedOutcomes   = []string{ColParticipantID, ColProgramID, ColPreScore, ColPostScore, ColCity}
)

// Normalizer cleans raw tables into typed records.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

func (n *Normalizer) newStats(table *sources.RawTable, mapping *ColumnMapping, expected []string) *Stats {
	stats := &Stats{
		Source:         table.Name,
		RowsIn:         len(table.Rows),
		DroppedColumns: mapping.Dropped,
		SchemaDrift:    mapping.Missing(expected),
	}
	if len(stats.DroppedColumns) > 0 {
		n.logger.Warn("dropping unrecognized columns",
			slog.String("source", table.Name),
			slog.Any("columns", stats.DroppedColumns))
	}
	if len(stats.SchemaDrift) > 0 {
		n.logger.Warn("expected columns absent from source",
			slog.String("source", table.Name),
			slog.Any("columns", stats.SchemaDrift))
	}
	return stats
}

// cell returns the raw cell for a canonical column, or empty when the
// source lacks the column.
func cell(table *sources.RawTable, mapping *ColumnMapping, row int, canonical string) string {
	idx, ok := mapping.Index[canonical]
	if !ok {
		return ""
	}
	return table.Cell(row, idx)
}

// countMiss bumps ParseFailures when a non-blank raw cell normalized to
// nothing. Blank cells are missing values, not parse failures.
func (s *Stats) countMiss(raw string, parsed bool) {
	if strings.TrimSpace(raw) != "" && !parsed {
		s.ParseFailures++
	}
}

// CleanCRM normalizes the CRM export to one record per participant.
// Duplicate participant keys are resolved deterministically: the last
// occurrence in file order wins.
func (n *Normalizer) CleanCRM(table *sources.RawTable) ([]domain.ParticipantRecord, *Stats) {
	mapping := MapColumns(table.Columns)
	stats := n.newStats(table, mapping, expectedCRM)

	seen := make(map[string]struct{})
	byKey := make(map[string]int)
	var records []domain.ParticipantRecord

	for i := range table.Rows {
		rawID := cell(table, mapping, i, ColParticipantID)
		id := ParticipantID(rawID)
		if id == "" {
			stats.countMiss(rawID, false)
			stats.ExcludedRows++
			continue
		}

		rawDOB := cell(table, mapping, i, ColDOB)
		dob := ParseDate(rawDOB)
		stats.countMiss(rawDOB, dob != nil)

		rec := domain.ParticipantRecord{
			ParticipantID: id,
			Email:         CleanString(cell(table, mapping, i, ColEmail)),
			Phone:         CleanString(cell(table, mapping, i, ColPhone)),
			City:          City(cell(table, mapping, i, ColCity)),
			DateOfBirth:   dob,
		}

		fp := fingerprint(rec)
		if _, dup := seen[fp]; dup {
			stats.DuplicateRows++
			continue
		}
		seen[fp] = struct{}{}

		if pos, dup := byKey[id]; dup {
			// Same key, different data: later record wins.
			stats.DuplicateKeys++
			records[pos] = rec
			continue
		}
		byKey[id] = len(records)
		records = append(records, rec)
	}

	stats.RowsOut = len(records)
	return records, stats
}

// CleanSurveys normalizes survey responses. Scores outside 1-5 and NPS
// outside 0-10 become nil; the response still counts.
func (n *Normalizer) CleanSurveys(table *sources.RawTable) ([]domain.SurveyResponse, *Stats) {
	mapping := MapColumns(table.Columns)
	stats := n.newStats(table, mapping, expectedSurveys)

	seen := make(map[string]struct{})
	var records []domain.SurveyResponse

	for i := range table.Rows {
		rawPID := cell(table, mapping, i, ColParticipantID)
		rawPRG := cell(table, mapping, i, ColProgramID)
		pid := ParticipantID(rawPID)
		prg := ProgramID(rawPRG)
		if pid == "" || prg == "" {
			stats.countMiss(rawPID, pid != "")
			stats.countMiss(rawPRG, prg != "")
			stats.ExcludedRows++
			continue
		}

		rawDate := cell(table, mapping, i, ColEventDate)
		date := ParseDate(rawDate)
		stats.countMiss(rawDate, date != nil)

		rawScore := cell(table, mapping, i, ColSurveyScore)
		score := ClampScore(ParseFloat(rawScore), 1, 5)
		stats.countMiss(rawScore, score != nil)

		rawNPS := cell(table, mapping, i, ColNPS)
		nps := ClampScore(ParseFloat(rawNPS), 0, 10)
		stats.countMiss(rawNPS, nps != nil)

		rec := domain.SurveyResponse{
			ParticipantID: pid,
			ProgramID:     prg,
			EventDate:     date,
			Score:         score,
			NPS:           nps,
		}

		fp := fingerprint(rec)
		if _, dup := seen[fp]; dup {
			stats.DuplicateRows++
			continue
		}
		seen[fp] = struct{}{}
		records = append(records, rec)
	}

	stats.RowsOut = len(records)
	return records, stats
}

// CleanAttendance normalizes attendance events. A row with an unparseable
// date is kept; only rows without a recoverable key are excluded.
func (n *Normalizer) CleanAttendance(table *sources.RawTable) ([]domain.AttendanceEvent, *Stats) {
	mapping := MapColumns(table.Columns)
	stats := n.newStats(table, mapping, expectedAttendance)

	seen := make(map[string]struct{})
	var records []domain.AttendanceEvent

	for i := range table.Rows {
		rawPID := cell(table, mapping, i, ColParticipantID)
		rawPRG := cell(table, mapping, i, ColProgramID)
		pid := ParticipantID(rawPID)
		prg := ProgramID(rawPRG)
		if pid == "" || prg == "" {
			stats.countMiss(rawPID, pid != "")
			stats.countMiss(rawPRG, prg != "")
			stats.ExcludedRows++
			continue
		}

		rawDate := cell(table, mapping, i, ColEventDate)
		date := ParseDate(rawDate)
		stats.countMiss(rawDate, date != nil)

		rawAttended := cell(table, mapping, i, ColAttended)
		attended := ParseBool(rawAttended)
		stats.countMiss(rawAttended, attended != nil)

		rec := domain.AttendanceEvent{
			ParticipantID: pid,
			ProgramID:     prg,
			EventDate:     date,
			Attended:      attended,
			City:          City(cell(table, mapping, i, ColCity)),
		}

		fp := fingerprint(rec)
		if _, dup := seen[fp]; dup {
			stats.DuplicateRows++
			continue
		}
		seen[fp] = struct{}{}
		records = append(records, rec)
	}

	stats.RowsOut = len(records)
	return records, stats
}

// CleanOutcomes normalizes outcome pairs. Duplicate keys are counted here
// but resolved by the merger, which keeps the strongest post score.
func (n *Normalizer) CleanOutcomes(table *sources.RawTable) ([]domain.OutcomeRecord, *Stats) {
	mapping := MapColumns(table.Columns)
	stats := n.newStats(table, mapping, expectedOutcomes)

	seen := make(map[string]struct{})
	keys := make(map[domain.Pair]int)
	var records []domain.OutcomeRecord

	for i := range table.Rows {
		rawPID := cell(table, mapping, i, ColParticipantID)
		rawPRG := cell(table, mapping, i, ColProgramID)
		pid := ParticipantID(rawPID)
		prg := ProgramID(rawPRG)
		if pid == "" || prg == "" {
			stats.countMiss(rawPID, pid != "")
			stats.countMiss(rawPRG, prg != "")
			stats.ExcludedRows++
			continue
		}

		rawPre := cell(table, mapping, i, ColPreScore)
		pre := ParseFloat(rawPre)
		stats.countMiss(rawPre, pre != nil)

		rawPost := cell(table, mapping, i, ColPostScore)
		post := ParseFloat(rawPost)
		stats.countMiss(rawPost, post != nil)

		rec := domain.OutcomeRecord{
			ParticipantID: pid,
			ProgramID:     prg,
			PreScore:      pre,
			PostScore:     post,
			City:          City(cell(table, mapping, i, ColCity)),
		}

		fp := fingerprint(rec)
		if _, dup := seen[fp]; dup {
			stats.DuplicateRows++
			continue
		}
		seen[fp] = struct{}{}

		key := rec.Key()
		keys[key]++
		if keys[key] == 2 {
			stats.DuplicateKeys++
		}
		records = append(records, rec)
	}

	stats.RowsOut = len(records)
	return records, stats
}

// fingerprint serializes a record by value for exact-duplicate detection.
// Pointer fields are dereferenced so two rows with equal data match.
func fingerprint(v interface{}) string {
	switch r := v.(type) {
	case domain.ParticipantRecord:
		return strings.Join([]string{r.ParticipantID, fstr(r.City), fstr(r.Email), fstr(r.Phone), fdate(r.DateOfBirth)}, "\x1f")
	case domain.SurveyResponse:
		return strings.Join([]string{r.ParticipantID, r.ProgramID, fdate(r.EventDate), ffloat(r.Score), ffloat(r.NPS)}, "\x1f")
	case domain.AttendanceEvent:
		return strings.Join([]string{r.ParticipantID, r.ProgramID, fdate(r.EventDate), fbool(r.Attended), fstr(r.City)}, "\x1f")
	case domain.OutcomeRecord:
		return strings.Join([]string{r.ParticipantID, r.ProgramID, ffloat(r.PreScore), ffloat(r.PostScore), fstr(r.City)}, "\x1f")
	default:
		return fmt.Sprintf("%+v", v)
	}
}

func fstr(s *string) string {
	if s == nil {
		return "\x00"
	}
	return *s
}

func ffloat(f *float64) string {
	if f == nil {
		return "\x00"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func fbool(b *bool) string {
	if b == nil {
		return "\x00"
	}
	return strconv.FormatBool(*b)
}

func fdate(t *time.Time) string {
	if t == nil {
		return "\x00"
	}
	return t.Format("2006-01-02")
}
