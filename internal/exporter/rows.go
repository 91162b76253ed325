package exporter

import (
	"strconv"

	"impactetl/internal/quality"
	"impactetl/pkg/contracts/domain"
)

// Published column orders for the clean tables. Downstream consumers
// depend on these staying stable; see domain.MasterColumns for the
// master dataset schema.
var (
	CRMColumns = []string{
		"participant_id", "email", "phone", "city", "date_of_birth",
	}
	AttendanceColumns = []string{
		"participant_id", "program_id", "event_date", "attended", "city",
	}
	SurveyColumns = []string{
		"participant_id", "program_id", "event_date", "survey_score", "nps",
	}
	OutcomeColumns = []string{
		"participant_id", "program_id", "city", "pre_score", "post_score", "outcome_delta",
	}
)

// ParticipantRows serializes cleaned CRM records in CRMColumns order.
func ParticipantRows(records []domain.ParticipantRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ParticipantID,
			stringCell(r.Email),
			stringCell(r.Phone),
			stringCell(r.City),
			dateCell(r.DateOfBirth),
		})
	}
	return rows
}

// AttendanceRows serializes cleaned attendance events in
// AttendanceColumns order.
func AttendanceRows(events []domain.AttendanceEvent) [][]string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.ParticipantID,
			e.ProgramID,
			dateCell(e.EventDate),
			boolCell(e.Attended),
			stringCell(e.City),
		})
	}
	return rows
}

// SurveyRows serializes cleaned survey responses in SurveyColumns order.
func SurveyRows(responses []domain.SurveyResponse) [][]string {
	rows := make([][]string, 0, len(responses))
	for _, r := range responses {
		rows = append(rows, []string{
			r.ParticipantID,
			r.ProgramID,
			dateCell(r.EventDate),
			floatCell(r.Score),
			floatCell(r.NPS),
		})
	}
	return rows
}

// OutcomeRows serializes cleaned outcome records in OutcomeColumns order.
// The delta column is recomputed here from pre/post, so the artifact can
// never disagree with its own score columns.
func OutcomeRows(records []domain.OutcomeRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ParticipantID,
			r.ProgramID,
			stringCell(r.City),
			floatCell(r.PreScore),
			floatCell(r.PostScore),
			floatCell(r.Delta()),
		})
	}
	return rows
}

// MasterRows serializes master rows in domain.MasterColumns order.
func MasterRows(records []domain.MasterRow) [][]string {
	rows := make([][]string, 0, len(records))
	for _, m := range records {
		rows = append(rows, []string{
			m.ParticipantID,
			m.ProgramID,
			stringCell(m.City),
			stringCell(m.Email),
			intCell(m.SessionsTotal),
			intCell(m.SessionsAttended),
			floatCell(m.AttendanceRate),
			dateCell(m.FirstSession),
			dateCell(m.LastSession),
			floatCell(m.AvgSatisfaction),
			floatCell(m.AvgNPS),
			intCell(m.SurveyResponses),
			dateCell(m.LastSurvey),
			floatCell(m.PreScore),
			floatCell(m.PostScore),
			floatCell(m.OutcomeDelta),
		})
	}
	return rows
}

// QualityRows serializes quality report rows in quality.Columns order.
func QualityRows(reports []quality.TableReport) [][]string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.Table,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Cols),
			strconv.Itoa(r.MissingValues),
			strconv.Itoa(r.DuplicateRows),
			strconv.Itoa(r.DuplicateKeys),
			strconv.Itoa(r.ExcludedRows),
			strconv.Itoa(r.ParseFailures),
			r.SchemaDrift,
		})
	}
	return rows
}
