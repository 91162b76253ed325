package domain

import (
	"time"
)

// ParticipantRecord is a cleaned CRM row for a single participant.
// ParticipantID is the unique key; the remaining fields are optional and
// stay nil when the export did not carry them.
type ParticipantRecord struct {
	ParticipantID string     `json:"participant_id" db:"participant_id" validate:"required"`
	Email         *string    `json:"email,omitempty" db:"email"`
	Phone         *string    `json:"phone,omitempty" db:"phone"`
	City          *string    `json:"city,omitempty" db:"city"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
}

// ProgramRecord describes a program (a cohort/site), keyed by ProgramID.
// Programs are not delivered as their own extract; the registry is derived
// from the event-grain sources during normalization.
type ProgramRecord struct {
	ProgramID string  `json:"program_id" db:"program_id" validate:"required"`
	City      *string `json:"city,omitempty" db:"city"`
	Name      *string `json:"name,omitempty" db:"name"`
}

// Pair is the join key used at every grain past normalization.
type Pair struct {
	ParticipantID string `json:"participant_id"`
	ProgramID     string `json:"program_id"`
}

// Less orders pairs by participant then program, for deterministic output.
func (p Pair) Less(other Pair) bool {
	if p.ParticipantID != other.ParticipantID {
		return p.ParticipantID < other.ParticipantID
	}
	return p.ProgramID < other.ProgramID
}
