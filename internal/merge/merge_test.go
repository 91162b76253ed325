package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactetl/pkg/contracts/domain"
)

func sptr(s string) *string   { return &s }
func fptr(v float64) *float64 { return &v }

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func findRow(t *testing.T, rows []domain.MasterRow, pid, prg string) domain.MasterRow {
	t.Helper()
	for _, r := range rows {
		if r.ParticipantID == pid && r.ProgramID == prg {
			return r
		}
	}
	t.Fatalf("row (%s, %s) not found", pid, prg)
	return domain.MasterRow{}
}

func TestBuild_OneRowPerPair(t *testing.T) {
	in := Inputs{
		Attendance: []domain.AttendanceSummary{
			{ParticipantID: "P-000001", ProgramID: "PRG-001", SessionsTotal: 2, SessionsAttended: 1, AttendanceRate: fptr(0.5)},
		},
		Surveys: []domain.SurveySummary{
			{ParticipantID: "P-000001", ProgramID: "PRG-001", Responses: 2, AvgSatisfaction: fptr(4)},
			{ParticipantID: "P-000002", ProgramID: "PRG-002", Responses: 1, AvgNPS: fptr(8)},
		},
		Outcomes: []domain.OutcomeRecord{
			{ParticipantID: "P-000001", ProgramID: "PRG-001", PreScore: fptr(60), PostScore: fptr(75)},
			{ParticipantID: "P-000003", ProgramID: "PRG-001", PreScore: fptr(40), PostScore: fptr(50)},
		},
	}

	rows := Build(in)
	require.Len(t, rows, 3)

	seen := make(map[domain.Pair]int)
	for _, r := range rows {
		seen[r.Key()]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, key)
	}

	full := findRow(t, rows, "P-000001", "PRG-001")
	require.NotNil(t, full.SessionsTotal)
	assert.Equal(t, 2, *full.SessionsTotal)
	require.NotNil(t, full.AvgSatisfaction)
	assert.Equal(t, 4.0, *full.AvgSatisfaction)
	require.NotNil(t, full.OutcomeDelta)
	assert.Equal(t, 15.0, *full.OutcomeDelta)

	// A pair missing whole sources still appears, with those fields nil.
	surveyOnly := findRow(t, rows, "P-000002", "PRG-002")
	assert.Nil(t, surveyOnly.SessionsTotal)
	assert.Nil(t, surveyOnly.AttendanceRate)
	assert.Nil(t, surveyOnly.PreScore)
	require.NotNil(t, surveyOnly.SurveyResponses)
	assert.Equal(t, 1, *surveyOnly.SurveyResponses)
}

func TestBuild_CRMOnlyParticipant(t *testing.T) {
	in := Inputs{
		Participants: []domain.ParticipantRecord{
			{ParticipantID: "P-000009", Email: sptr("p9@example.org"), City: sptr("Boston")},
		},
	}

	rows := Build(in)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "P-000009", r.ParticipantID)
	assert.Equal(t, "", r.ProgramID)
	require.NotNil(t, r.Email)
	assert.Equal(t, "p9@example.org", *r.Email)
	assert.Nil(t, r.SessionsTotal)
	assert.Nil(t, r.AvgSatisfaction)
	assert.Nil(t, r.OutcomeDelta)
	require.NotNil(t, r.City)
	assert.Equal(t, "Boston", *r.City)
}

func TestBuild_ActiveParticipantGetsNoExtraRow(t *testing.T) {
	in := Inputs{
		Participants: []domain.ParticipantRecord{{ParticipantID: "P-000001"}},
		Attendance: []domain.AttendanceSummary{
			{ParticipantID: "P-000001", ProgramID: "PRG-001", SessionsTotal: 1},
		},
	}

	rows := Build(in)
	require.Len(t, rows, 1)
	assert.Equal(t, "PRG-001", rows[0].ProgramID)
}

func TestBuild_OutcomeDelta(t *testing.T) {
	in := Inputs{
		Outcomes: []domain.OutcomeRecord{
			{ParticipantID: "P-000001", ProgramID: "PRG-001", PreScore: fptr(60), PostScore: fptr(75)},
			{ParticipantID: "P-000002", ProgramID: "PRG-001", PreScore: fptr(60)},
			{ParticipantID: "P-000003", ProgramID: "PRG-001", PostScore: fptr(75)},
		},
	}

	rows := Build(in)
	require.Len(t, rows, 3)

	withBoth := findRow(t, rows, "P-000001", "PRG-001")
	require.NotNil(t, withBoth.OutcomeDelta)
	assert.Equal(t, 15.0, *withBoth.OutcomeDelta)

	assert.Nil(t, findRow(t, rows, "P-000002", "PRG-001").OutcomeDelta)
	assert.Nil(t, findRow(t, rows, "P-000003", "PRG-001").OutcomeDelta)
}

func TestBuild_DuplicateOutcomeHighestPostWins(t *testing.T) {
	in := Inputs{
		Outcomes: []domain.OutcomeRecord{
			{ParticipantID: "P-000001", ProgramID: "PRG-001", PreScore: fptr(50), PostScore: fptr(60)},
			{ParticipantID: "P-000001", ProgramID: "PRG-001", PreScore: fptr(55), PostScore: fptr(80)},
			{ParticipantID: "P-000001", ProgramID: "PRG-001", PreScore: fptr(58)},
		},
	}

	rows := Build(in)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].PostScore)
	assert.Equal(t, 80.0, *rows[0].PostScore)
	assert.Equal(t, 55.0, *rows[0].PreScore)
	assert.Equal(t, 25.0, *rows[0].OutcomeDelta)
}

func TestBuild_CityPrecedence(t *testing.T) {
	in := Inputs{
		Participants: []domain.ParticipantRecord{
			{ParticipantID: "P-000001", City: sptr("Boston")},
			{ParticipantID: "P-000002", City: sptr("Boston")},
			{ParticipantID: "P-000003"},
		},
		Programs: []domain.ProgramRecord{
			{ProgramID: "PRG-001", City: sptr("New York")},
		},
		Attendance: []domain.AttendanceSummary{
			{ParticipantID: "P-000001", ProgramID: "PRG-001", SessionsTotal: 1},
			{ParticipantID: "P-000002", ProgramID: "PRG-002", SessionsTotal: 1},
			{ParticipantID: "P-000003", ProgramID: "PRG-002", SessionsTotal: 1},
		},
	}

	rows := Build(in)

	// Program site city beats participant home city.
	assert.Equal(t, "New York", *findRow(t, rows, "P-000001", "PRG-001").City)
	// No program city: participant city.
	assert.Equal(t, "Boston", *findRow(t, rows, "P-000002", "PRG-002").City)
	// Nothing anywhere: placeholder.
	assert.Equal(t, "Unknown", *findRow(t, rows, "P-000003", "PRG-002").City)
}

func TestBuild_Deterministic(t *testing.T) {
	in := Inputs{
		Participants: []domain.ParticipantRecord{
			{ParticipantID: "P-000002"},
			{ParticipantID: "P-000001"},
		},
		Attendance: []domain.AttendanceSummary{
			{ParticipantID: "P-000002", ProgramID: "PRG-002", SessionsTotal: 1},
			{ParticipantID: "P-000001", ProgramID: "PRG-001", SessionsTotal: 1},
		},
	}

	first := Build(in)
	second := Build(in)
	assert.Equal(t, first, second)

	// Sorted output: stable artifact between runs on identical input.
	assert.Equal(t, "P-000001", first[0].ParticipantID)
	assert.Equal(t, "P-000002", first[1].ParticipantID)
}

func TestDerivePrograms(t *testing.T) {
	events := []domain.AttendanceEvent{
		{ParticipantID: "P-000001", ProgramID: "PRG-001", City: sptr("New York")},
		{ParticipantID: "P-000002", ProgramID: "PRG-001", City: sptr("New York")},
		{ParticipantID: "P-000003", ProgramID: "PRG-001", City: sptr("Boston")},
		{ParticipantID: "P-000004", ProgramID: "PRG-002"},
	}
	outcomes := []domain.OutcomeRecord{
		{ParticipantID: "P-000001", ProgramID: "PRG-003", City: sptr("Chicago")},
	}

	programs := DerivePrograms(events, outcomes)
	require.Len(t, programs, 3)

	assert.Equal(t, "PRG-001", programs[0].ProgramID)
	require.NotNil(t, programs[0].City)
	assert.Equal(t, "New York", *programs[0].City)

	assert.Equal(t, "PRG-002", programs[1].ProgramID)
	assert.Nil(t, programs[1].City) // no city evidence at all

	assert.Equal(t, "PRG-003", programs[2].ProgramID)
	assert.Equal(t, "Chicago", *programs[2].City)
}

func TestDerivePrograms_TieBreaksLexicographically(t *testing.T) {
	events := []domain.AttendanceEvent{
		{ParticipantID: "P-000001", ProgramID: "PRG-001", City: sptr("Chicago")},
		{ParticipantID: "P-000002", ProgramID: "PRG-001", City: sptr("Boston")},
	}

	for trial := 0; trial < 3; trial++ {
		programs := DerivePrograms(events, nil)
		require.Len(t, programs, 1)
		assert.Equal(t, "Boston", *programs[0].City)

		events[0], events[1] = events[1], events[0]
	}
}
