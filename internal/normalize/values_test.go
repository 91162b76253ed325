package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string // "" means nil
	}{
		{"iso", "2026-01-15", "2026-01-15"},
		{"iso slashes", "2026/01/30", "2026-01-30"},
		{"us", "01/20/2026", "2026-01-20"},
		{"us no padding", "1/5/2026", "2026-01-05"},
		{"spelled month", "Jan 25 2026", "2026-01-25"},
		{"spelled month comma", "Feb 5, 2026", "2026-02-05"},
		{"blank", "", ""},
		{"whitespace", "   ", ""},
		{"garbage", "not a date", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.input)
			if tt.expected == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Format("2006-01-02"))
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"plain", "42.5", fptr(42.5)},
		{"currency", "$1,250.00", fptr(1250)},
		{"percent", "85%", fptr(85)},
		{"padded", "  7 ", fptr(7)},
		{"blank", "", nil},
		{"garbage", "n/a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFloat(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 1e-9)
		})
	}
}

func TestParseBool(t *testing.T) {
	truthy := []string{"1", "Yes", "yes", "Y", "true", "T"}
	for _, s := range truthy {
		got := ParseBool(s)
		require.NotNil(t, got, s)
		assert.True(t, *got, s)
	}

	falsy := []string{"0", "No", "no", "N", "false", "F"}
	for _, s := range falsy {
		got := ParseBool(s)
		require.NotNil(t, got, s)
		assert.False(t, *got, s)
	}

	for _, s := range []string{"", "maybe", "2"} {
		assert.Nil(t, ParseBool(s), s)
	}
}

func TestParticipantID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123", "P-000123"},
		{" 45 ", "P-000045"},
		{"P-000045", "P-000045"},
		{"student 7", "P-000007"},
		{"", ""},
		{"no digits", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParticipantID(tt.input), tt.input)
	}
}

func TestProgramID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1", "PRG-001"},
		{"PRG1", "PRG-001"},
		{"Program 3", "PRG-003"},
		{"PRG-003", "PRG-003"},
		{"stem nyc", "STEM_NYC"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ProgramID(tt.input), tt.input)
	}
}

func TestCity(t *testing.T) {
	tests := []struct {
		input    string
		expected string // "" means nil
	}{
		{"chicago", "Chicago"},
		{"NYC", "New York"},
		{"new york city", "New York"},
		{"Bk", "Brooklyn"},
		{"  boston  ", "Boston"},
		{"", ""},
	}
	for _, tt := range tests {
		got := City(tt.input)
		if tt.expected == "" {
			assert.Nil(t, got, tt.input)
			continue
		}
		require.NotNil(t, got, tt.input)
		assert.Equal(t, tt.expected, *got, tt.input)
	}
}

func TestClampScore(t *testing.T) {
	assert.Nil(t, ClampScore(nil, 1, 5))
	assert.Nil(t, ClampScore(fptr(0), 1, 5))
	assert.Nil(t, ClampScore(fptr(6), 1, 5))
	require.NotNil(t, ClampScore(fptr(5), 1, 5))
	assert.Equal(t, 5.0, *ClampScore(fptr(5), 1, 5))
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Session Date", "session_date"},
		{"ParticipantID", "participantid"},
		{"Participant Id", "participant_id"},
		{"  NPS  ", "nps"},
		{"outcome-score-pre", "outcome_score_pre"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, snakeCase(tt.input), tt.input)
	}
}

func TestValidateAliases(t *testing.T) {
	require.NoError(t, ValidateAliases())
}

func TestMapColumns(t *testing.T) {
	mapping := MapColumns([]string{"ID", "ProgramID", "Session Date", "Present", "Site", "Mystery"})

	assert.Equal(t, 0, mapping.Index[ColParticipantID])
	assert.Equal(t, 1, mapping.Index[ColProgramID])
	assert.Equal(t, 2, mapping.Index[ColEventDate])
	assert.Equal(t, 3, mapping.Index[ColAttended])
	assert.Equal(t, 4, mapping.Index[ColCity])
	assert.Equal(t, []string{"Mystery"}, mapping.Dropped)

	assert.Empty(t, mapping.Missing(expectedAttendance))
	assert.Equal(t, []string{ColSurveyScore}, mapping.Missing([]string{ColSurveyScore}))
}

func TestMapColumns_FirstAliasWins(t *testing.T) {
	mapping := MapColumns([]string{"participant_id", "student_id"})
	assert.Equal(t, 0, mapping.Index[ColParticipantID])
	assert.Equal(t, []string{"student_id"}, mapping.Dropped)
}

func fptr(v float64) *float64 {
	return &v
}
