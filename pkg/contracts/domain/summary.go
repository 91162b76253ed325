package domain

import (
	"time"
)

// AttendanceSummary is the attendance extract collapsed to one row per
// (participant, program) pair. Rate is nil when no sessions exist for the
// pair, never a divide-by-zero.
type AttendanceSummary struct {
	ParticipantID    string     `json:"participant_id" db:"participant_id"`
	ProgramID        string     `json:"program_id" db:"program_id"`
	SessionsTotal    int        `json:"sessions_total" db:"sessions_total"`
	SessionsAttended int        `json:"sessions_attended" db:"sessions_attended"`
	AttendanceRate   *float64   `json:"attendance_rate,omitempty" db:"attendance_rate"`
	FirstSession     *time.Time `json:"first_session,omitempty" db:"first_session"`
	LastSession      *time.Time `json:"last_session,omitempty" db:"last_session"`
}

// SurveySummary is the survey extract collapsed to one row per pair.
// Averages skip nil scores; Responses counts every submission, scored or not.
type SurveySummary struct {
	ParticipantID   string     `json:"participant_id" db:"participant_id"`
	ProgramID       string     `json:"program_id" db:"program_id"`
	AvgSatisfaction *float64   `json:"avg_satisfaction,omitempty" db:"avg_satisfaction"`
	AvgNPS          *float64   `json:"avg_nps,omitempty" db:"avg_nps"`
	Responses       int        `json:"survey_responses" db:"survey_responses"`
	LastSurvey      *time.Time `json:"last_survey,omitempty" db:"last_survey"`
}

// Key returns the join key for the summary.
func (a AttendanceSummary) Key() Pair {
	return Pair{ParticipantID: a.ParticipantID, ProgramID: a.ProgramID}
}

// Key returns the join key for the summary.
func (s SurveySummary) Key() Pair {
	return Pair{ParticipantID: s.ParticipantID, ProgramID: s.ProgramID}
}
