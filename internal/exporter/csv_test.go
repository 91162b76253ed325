package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactetl/internal/config"
	"impactetl/pkg/contracts/domain"
)

func testWriter(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	paths, err := config.NewPaths(config.PathsConfig{
		BaseDir:  t.TempDir(),
		RawDir:   "data_raw",
		CleanDir: "data_clean",
		LogsDir:  "logs",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return NewCSVWriter(paths), paths
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteClean(t *testing.T) {
	writer, paths := testWriter(t)

	err := writer.WriteClean("out.csv", WriteOptions{
		Headers:   []string{"a", "b"},
		Records:   [][]string{{"1", "2"}, {"3", "4"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)

	records := readCSV(t, paths.GetCleanPath("out.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"a", "b"}, records[0])
	assert.Equal(t, []string{"3", "4"}, records[2])

	// BOM present for Excel.
	data, err := os.ReadFile(paths.GetCleanPath("out.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"))
}

func TestWriteCSV_NoTempFileLeftBehind(t *testing.T) {
	writer, paths := testWriter(t)

	err := writer.WriteClean("out.csv", WriteOptions{
		Headers: []string{"a"},
		Records: [][]string{{"1"}},
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(paths.CleanDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())
}

func TestWriteCSV_ReplacesExistingAtomically(t *testing.T) {
	writer, paths := testWriter(t)
	target := paths.GetCleanPath("out.csv")

	require.NoError(t, writer.WriteCSV(target, WriteOptions{Headers: []string{"old"}}))
	require.NoError(t, writer.WriteCSV(target, WriteOptions{Headers: []string{"new"}}))

	records := readCSV(t, target)
	assert.Equal(t, []string{"new"}, records[0])
}

func TestStreamWriter(t *testing.T) {
	writer, paths := testWriter(t)
	target := paths.GetCleanPath("stream.csv")

	stream, err := writer.CreateStreamWriter(target, []string{"id", "value"})
	require.NoError(t, err)

	require.NoError(t, stream.WriteRecord([]string{"1", "x"}))

	// Nothing published before Close.
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, stream.WriteRecord([]string{"2", "y"}))
	require.NoError(t, stream.Close())

	records := readCSV(t, target)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2", "y"}, records[2])
}

func TestStreamWriter_AbortDiscards(t *testing.T) {
	writer, paths := testWriter(t)
	target := paths.GetCleanPath("stream.csv")

	stream, err := writer.CreateStreamWriter(target, []string{"id"})
	require.NoError(t, err)
	require.NoError(t, stream.WriteRecord([]string{"1"}))
	stream.Abort()

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMasterRows_NilStaysEmpty(t *testing.T) {
	rate := 0.5
	total := 2
	day := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	rows := MasterRows([]domain.MasterRow{
		{
			ParticipantID:  "P-000001",
			ProgramID:      "PRG-001",
			SessionsTotal:  &total,
			AttendanceRate: &rate,
			LastSession:    &day,
		},
		{ParticipantID: "P-000002"},
	})
	require.Len(t, rows, 2)
	require.Len(t, rows[0], len(domain.MasterColumns))

	assert.Equal(t, "2", rows[0][4])
	assert.Equal(t, "0.50", rows[0][6])
	assert.Equal(t, "2024-01-08", rows[0][8])

	// Absent measures serialize as empty cells, never zeros.
	assert.Equal(t, "", rows[1][1])
	for _, cell := range rows[1][2:] {
		assert.Equal(t, "", cell)
	}
}

func TestOutcomeRows_DeltaRecomputed(t *testing.T) {
	pre, post := 60.0, 75.5
	rows := OutcomeRows([]domain.OutcomeRecord{
		{ParticipantID: "P-000001", ProgramID: "PRG-001", PreScore: &pre, PostScore: &post},
		{ParticipantID: "P-000002", ProgramID: "PRG-001", PreScore: &pre},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "15.50", rows[0][5])
	assert.Equal(t, "", rows[1][5]) // missing post: no delta
}

func TestAttendanceRows(t *testing.T) {
	attended := true
	city := "Boston"
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := AttendanceRows([]domain.AttendanceEvent{
		{ParticipantID: "P-000001", ProgramID: "PRG-001", EventDate: &day, Attended: &attended, City: &city},
		{ParticipantID: "P-000002", ProgramID: "PRG-001"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"P-000001", "PRG-001", "2024-02-01", "true", "Boston"}, rows[0])
	assert.Equal(t, []string{"P-000002", "PRG-001", "", "", ""}, rows[1])
}
