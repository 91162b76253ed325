package domain

import (
	"time"
)

// MasterRow is one row of the master dataset at (participant, program)
// grain. Every field that a source did not supply for the pair stays nil;
// downstream aggregates must skip nils rather than read zeros.
//
// ProgramID is empty only for participants that exist in the CRM export but
// in no event or outcome source. Such rows still appear exactly once so the
// dashboard can count enrolled-but-inactive participants.
type MasterRow struct {
	ParticipantID string  `json:"participant_id" db:"participant_id"`
	ProgramID     string  `json:"program_id" db:"program_id"`
	City          *string `json:"city,omitempty" db:"city"`
	Email         *string `json:"email,omitempty" db:"email"`

	SessionsTotal    *int       `json:"sessions_total,omitempty" db:"sessions_total"`
	SessionsAttended *int       `json:"sessions_attended,omitempty" db:"sessions_attended"`
	AttendanceRate   *float64   `json:"attendance_rate,omitempty" db:"attendance_rate"`
	FirstSession     *time.Time `json:"first_session,omitempty" db:"first_session"`
	LastSession      *time.Time `json:"last_session,omitempty" db:"last_session"`

	AvgSatisfaction *float64   `json:"avg_satisfaction,omitempty" db:"avg_satisfaction"`
	AvgNPS          *float64   `json:"avg_nps,omitempty" db:"avg_nps"`
	SurveyResponses *int       `json:"survey_responses,omitempty" db:"survey_responses"`
	LastSurvey      *time.Time `json:"last_survey,omitempty" db:"last_survey"`

	PreScore     *float64 `json:"pre_score,omitempty" db:"pre_score"`
	PostScore    *float64 `json:"post_score,omitempty" db:"post_score"`
	OutcomeDelta *float64 `json:"outcome_delta,omitempty" db:"outcome_delta"`
}

// MasterColumns is the published column order of master_dataset.csv.
// The dashboard consumer depends on this schema staying stable.
var MasterColumns = []string{
	"participant_id",
	"program_id",
	"city",
	"email",
	"sessions_total",
	"sessions_attended",
	"attendance_rate",
	"first_session",
	"last_session",
	"avg_satisfaction",
	"avg_nps",
	"survey_responses",
	"last_survey",
	"pre_score",
	"post_score",
	"outcome_delta",
}

// Key returns the join key for the row.
func (m MasterRow) Key() Pair {
	return Pair{ParticipantID: m.ParticipantID, ProgramID: m.ProgramID}
}
