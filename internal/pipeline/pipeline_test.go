package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactetl/internal/config"
)

type fakeStep struct {
	id      string
	execute func(ctx context.Context, state *RunState, artifacts *Artifacts) error
	calls   int
}

func (f *fakeStep) ID() string   { return f.id }
func (f *fakeStep) Name() string { return f.id }
func (f *fakeStep) Execute(ctx context.Context, state *RunState, artifacts *Artifacts) error {
	f.calls++
	if f.execute != nil {
		return f.execute(ctx, state, artifacts)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_RunsStepsInOrder(t *testing.T) {
	var order []string
	mk := func(id string) *fakeStep {
		return &fakeStep{id: id, execute: func(context.Context, *RunState, *Artifacts) error {
			order = append(order, id)
			return nil
		}}
	}
	steps := []Step{mk("one"), mk("two"), mk("three")}

	runner := NewRunner(steps, discardLogger(), nil)
	state, err := runner.Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", "three"}, order)
	assert.Equal(t, RunStatusCompleted, state.Status)
	for _, s := range state.Steps {
		assert.Equal(t, StepStatusCompleted, s.CurrentStatus())
	}
}

func TestRunner_FailureStopsRun(t *testing.T) {
	boom := errors.New("boom")
	failing := &fakeStep{id: "failing", execute: func(context.Context, *RunState, *Artifacts) error {
		return boom
	}}
	after := &fakeStep{id: "after"}

	runner := NewRunner([]Step{failing, after}, discardLogger(), nil)
	state, err := runner.Run(context.Background(), "run-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Equal(t, StepStatusFailed, state.StepByID("failing").CurrentStatus())
	assert.Equal(t, StepStatusPending, state.StepByID("after").CurrentStatus())
	assert.Zero(t, after.calls)
	assert.True(t, state.HasFailures())
}

func TestRunner_SkipContinues(t *testing.T) {
	skipping := &fakeStep{id: "skipping", execute: func(context.Context, *RunState, *Artifacts) error {
		return Skip("nothing to do")
	}}
	after := &fakeStep{id: "after"}

	runner := NewRunner([]Step{skipping, after}, discardLogger(), nil)
	state, err := runner.Run(context.Background(), "run-3")
	require.NoError(t, err)

	skipped := state.StepByID("skipping")
	assert.Equal(t, StepStatusSkipped, skipped.CurrentStatus())
	assert.Equal(t, "nothing to do", skipped.Message)
	assert.Equal(t, 1, after.calls)
	assert.Equal(t, RunStatusCompleted, state.Status)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner([]Step{&fakeStep{id: "never"}}, discardLogger(), nil)
	state, err := runner.Run(ctx, "run-4")
	require.Error(t, err)
	assert.Equal(t, RunStatusFailed, state.Status)
}

// Full run against bootstrapped extracts: every artifact published.
func TestRun_EndToEnd(t *testing.T) {
	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			BootstrapMissing: true,
			BootstrapSeed:    42,
			ExcelBOM:         true,
		},
	}
	paths, err := config.NewPaths(config.PathsConfig{
		BaseDir:  t.TempDir(),
		RawDir:   "data_raw",
		CleanDir: "data_clean",
		LogsDir:  "logs",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	runner := NewRunner(DefaultSteps(cfg, paths, discardLogger()), discardLogger(), nil)
	state, err := runner.Run(context.Background(), "run-e2e")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, state.Status)

	for _, name := range []string{
		config.CRMCleanFile,
		config.SurveysCleanFile,
		config.AttendanceCleanFile,
		config.OutcomesCleanFile,
		config.MasterDatasetFile,
		config.QualityReportFile,
	} {
		info, err := os.Stat(paths.GetCleanPath(name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	master := readCleanCSV(t, paths.MasterDatasetPath())
	require.Greater(t, len(master), 1)
	assert.Equal(t, "participant_id", master[0][0])

	// One row per key, even with duplicated raw inputs.
	seen := make(map[string]bool)
	for _, row := range master[1:] {
		key := row[0] + "|" + row[1]
		assert.False(t, seen[key], key)
		seen[key] = true
	}

	// A second run over the same inputs reproduces the master byte for
	// byte: the bootstrap is seeded and the pipeline is deterministic.
	first, err := os.ReadFile(paths.MasterDatasetPath())
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "run-e2e-2")
	require.NoError(t, err)
	second, err := os.ReadFile(paths.MasterDatasetPath())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func readCleanCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}
