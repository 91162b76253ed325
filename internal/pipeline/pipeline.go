// Package pipeline orchestrates a run: bootstrap, load, normalize,
// aggregate, merge, report, export. Steps run sequentially and share an
// Artifacts bag; a step failure stops the run with nothing published,
// because only the final export step writes to the clean directory.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"impactetl/internal/normalize"
	"impactetl/internal/quality"
	"impactetl/internal/sources"
	"impactetl/pkg/contracts/domain"
)

// Step is a single unit of pipeline work.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() string

	// Name returns the human-readable name for this step.
	Name() string

	// Execute runs the step against the shared artifacts.
	Execute(ctx context.Context, state *RunState, artifacts *Artifacts) error
}

// skipError signals that a step decided not to run; the runner records
// the skip and continues.
type skipError struct{ reason string }

func (e skipError) Error() string { return e.reason }

// Skip returns an error that marks the current step skipped instead of
// failed.
func Skip(reason string) error { return skipError{reason: reason} }

// Artifacts carries the data flowing between steps. Each step reads the
// fields of its predecessors and fills in its own; nothing is shared
// concurrently across step boundaries.
type Artifacts struct {
	// Raw tables by source name, filled by the load step.
	Raw map[string]*sources.RawTable

	// Cleaned records and per-source stats, filled by normalize.
	Participants []domain.ParticipantRecord
	Events       []domain.AttendanceEvent
	Responses    []domain.SurveyResponse
	Outcomes     []domain.OutcomeRecord
	Stats        map[string]*normalize.Stats

	// Aggregates and the derived program registry.
	AttendanceSummaries []domain.AttendanceSummary
	SurveySummaries     []domain.SurveySummary
	Programs            []domain.ProgramRecord

	// Join output.
	Master []domain.MasterRow

	// Quality report rows.
	Reports []quality.TableReport
}

// NewArtifacts returns an empty artifact bag.
func NewArtifacts() *Artifacts {
	return &Artifacts{
		Raw:   make(map[string]*sources.RawTable),
		Stats: make(map[string]*normalize.Stats),
	}
}

// Runner executes steps in order with logging and tracing around each.
type Runner struct {
	steps  []Step
	logger *slog.Logger
	tracer trace.Tracer
}

// NewRunner creates a runner over the given steps.
func NewRunner(steps []Step, logger *slog.Logger, tracer trace.Tracer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{steps: steps, logger: logger, tracer: tracer}
}

// Run executes every step in order. The returned state is complete even
// on failure: later steps stay pending, the failed step carries its
// error.
func (r *Runner) Run(ctx context.Context, runID string) (*RunState, error) {
	state := NewRunState(runID)
	for _, step := range r.steps {
		state.AddStep(NewStepState(step.ID(), step.Name()))
	}
	state.Start()

	artifacts := NewArtifacts()

	ctx, runSpan := r.startSpan(ctx, "pipeline.run",
		attribute.String("run.id", runID),
		attribute.Int("run.step_count", len(r.steps)),
	)
	defer runSpan.End()

	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("pipeline cancelled before step %s: %w", step.ID(), err)
			state.Fail(err)
			runSpan.SetStatus(codes.Error, err.Error())
			return state, err
		}

		if err := r.runStep(ctx, step, state, artifacts); err != nil {
			err = fmt.Errorf("step %s failed: %w", step.ID(), err)
			state.Fail(err)
			runSpan.SetStatus(codes.Error, err.Error())
			return state, err
		}
	}

	state.Complete()
	runSpan.SetStatus(codes.Ok, "pipeline completed")
	r.logger.InfoContext(ctx, "pipeline completed",
		slog.String("run_id", runID),
		slog.Duration("duration", state.Duration()))
	return state, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, state *RunState, artifacts *Artifacts) error {
	stepState := state.StepByID(step.ID())
	stepState.Start()

	ctx, span := r.startSpan(ctx, "pipeline.step."+step.ID(),
		attribute.String("step.id", step.ID()),
		attribute.String("step.name", step.Name()),
	)
	defer span.End()

	r.logger.InfoContext(ctx, "step started",
		slog.String("step", step.ID()))

	start := time.Now()
	err := step.Execute(ctx, state, artifacts)
	duration := time.Since(start)

	if skip, ok := err.(skipError); ok {
		stepState.Skip(skip.reason)
		span.SetStatus(codes.Ok, "step skipped")
		r.logger.InfoContext(ctx, "step skipped",
			slog.String("step", step.ID()),
			slog.String("reason", skip.reason))
		return nil
	}
	if err != nil {
		stepState.Fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.ErrorContext(ctx, "step failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return err
	}

	stepState.Complete()
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	span.SetStatus(codes.Ok, "step completed")
	r.logger.InfoContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

func (r *Runner) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if r.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}
