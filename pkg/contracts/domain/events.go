package domain

import (
	"time"
)

// AttendanceEvent is one session record for a participant in a program.
// Many events exist per (participant, program) pair; the aggregator
// collapses them before any join.
type AttendanceEvent struct {
	ParticipantID string     `json:"participant_id" db:"participant_id" validate:"required"`
	ProgramID     string     `json:"program_id" db:"program_id" validate:"required"`
	EventDate     *time.Time `json:"event_date,omitempty" db:"event_date"`
	Attended      *bool      `json:"attended,omitempty" db:"attended"`
	City          *string    `json:"city,omitempty" db:"city"`
}

// SurveyResponse is one survey submission. Score and NPS are nil when the
// raw value was missing or out of bounds (score 1-5, NPS 0-10).
type SurveyResponse struct {
	ParticipantID string     `json:"participant_id" db:"participant_id" validate:"required"`
	ProgramID     string     `json:"program_id" db:"program_id" validate:"required"`
	EventDate     *time.Time `json:"event_date,omitempty" db:"event_date"`
	Score         *float64   `json:"survey_score,omitempty" db:"survey_score"`
	NPS           *float64   `json:"nps,omitempty" db:"nps"`
}

// OutcomeRecord holds pre/post assessment scores for a pair.
// Delta is always recomputed from the two scores, never read from input.
type OutcomeRecord struct {
	ParticipantID string   `json:"participant_id" db:"participant_id" validate:"required"`
	ProgramID     string   `json:"program_id" db:"program_id" validate:"required"`
	PreScore      *float64 `json:"pre_score,omitempty" db:"pre_score"`
	PostScore     *float64 `json:"post_score,omitempty" db:"post_score"`
	City          *string  `json:"city,omitempty" db:"city"`
}

// Key returns the join key for the event.
func (e AttendanceEvent) Key() Pair {
	return Pair{ParticipantID: e.ParticipantID, ProgramID: e.ProgramID}
}

// Key returns the join key for the response.
func (s SurveyResponse) Key() Pair {
	return Pair{ParticipantID: s.ParticipantID, ProgramID: s.ProgramID}
}

// Key returns the join key for the outcome.
func (o OutcomeRecord) Key() Pair {
	return Pair{ParticipantID: o.ParticipantID, ProgramID: o.ProgramID}
}

// Delta returns post minus pre, or nil when either side is missing.
func (o OutcomeRecord) Delta() *float64 {
	if o.PreScore == nil || o.PostScore == nil {
		return nil
	}
	d := *o.PostScore - *o.PreScore
	return &d
}
