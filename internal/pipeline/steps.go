package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"impactetl/internal/aggregate"
	"impactetl/internal/config"
	"impactetl/internal/exporter"
	"impactetl/internal/merge"
	"impactetl/internal/normalize"
	"impactetl/internal/quality"
	"impactetl/internal/sources"
	"impactetl/pkg/contracts/domain"
)

// Step IDs in execution order.
const (
	StepIDBootstrap = "bootstrap"
	StepIDLoad      = "load"
	StepIDNormalize = "normalize"
	StepIDAggregate = "aggregate"
	StepIDMerge     = "merge"
	StepIDReport    = "report"
	StepIDExport    = "export"
)

// DefaultSteps builds the standard run: every step, in order.
func DefaultSteps(cfg *config.Config, paths *config.Paths, logger *slog.Logger) []Step {
	return []Step{
		NewBootstrapStep(paths, cfg.Pipeline, logger),
		NewLoadStep(sources.DefaultReaders(paths)),
		NewNormalizeStep(logger),
		NewAggregateStep(),
		NewMergeStep(),
		NewReportStep(),
		NewExportStep(exporter.NewCSVWriter(paths), cfg.Pipeline.ExcelBOM),
	}
}

// BootstrapStep generates any missing raw extract so a fresh checkout
// produces a full artifact set without real upstream exports.
type BootstrapStep struct {
	bootstrapper *sources.Bootstrapper
	enabled      bool
}

func NewBootstrapStep(paths *config.Paths, cfg config.PipelineConfig, logger *slog.Logger) *BootstrapStep {
	return &BootstrapStep{
		bootstrapper: sources.NewBootstrapper(paths, cfg.BootstrapSeed, logger),
		enabled:      cfg.BootstrapMissing,
	}
}

func (s *BootstrapStep) ID() string   { return StepIDBootstrap }
func (s *BootstrapStep) Name() string { return "Bootstrap missing extracts" }

func (s *BootstrapStep) Execute(ctx context.Context, _ *RunState, _ *Artifacts) error {
	if !s.enabled {
		return Skip("bootstrap disabled; raw extracts must already exist")
	}
	created, err := s.bootstrapper.EnsureRawFiles(ctx)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		return Skip("all raw extracts present")
	}
	return nil
}

// LoadStep reads all four raw extracts concurrently. Readers touch
// disjoint sources, so the only coordination needed is the errgroup.
type LoadStep struct {
	readers []sources.Reader
}

func NewLoadStep(readers []sources.Reader) *LoadStep {
	return &LoadStep{readers: readers}
}

func (s *LoadStep) ID() string   { return StepIDLoad }
func (s *LoadStep) Name() string { return "Load raw extracts" }

func (s *LoadStep) Execute(ctx context.Context, _ *RunState, artifacts *Artifacts) error {
	tables := make([]*sources.RawTable, len(s.readers))

	g, ctx := errgroup.WithContext(ctx)
	for i, reader := range s.readers {
		g.Go(func() error {
			table, err := reader.Read(ctx)
			if err != nil {
				return fmt.Errorf("reading %s: %w", reader.Name(), err)
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, table := range tables {
		artifacts.Raw[table.Name] = table
	}
	return nil
}

// NormalizeStep cleans each raw table into typed records. The four
// cleaners are independent and write disjoint artifact fields, so they
// run concurrently.
type NormalizeStep struct {
	normalizer *normalize.Normalizer
}

func NewNormalizeStep(logger *slog.Logger) *NormalizeStep {
	return &NormalizeStep{normalizer: normalize.NewNormalizer(logger)}
}

func (s *NormalizeStep) ID() string   { return StepIDNormalize }
func (s *NormalizeStep) Name() string { return "Normalize and clean" }

func (s *NormalizeStep) Execute(ctx context.Context, _ *RunState, artifacts *Artifacts) error {
	stats := make([]*normalize.Stats, 4)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		table, ok := artifacts.Raw[sources.SourceCRM]
		if !ok {
			return fmt.Errorf("raw %s table not loaded", sources.SourceCRM)
		}
		artifacts.Participants, stats[0] = s.normalizer.CleanCRM(table)
		return nil
	})
	g.Go(func() error {
		table, ok := artifacts.Raw[sources.SourceSurveys]
		if !ok {
			return fmt.Errorf("raw %s table not loaded", sources.SourceSurveys)
		}
		artifacts.Responses, stats[1] = s.normalizer.CleanSurveys(table)
		return nil
	})
	g.Go(func() error {
		table, ok := artifacts.Raw[sources.SourceAttendance]
		if !ok {
			return fmt.Errorf("raw %s table not loaded", sources.SourceAttendance)
		}
		artifacts.Events, stats[2] = s.normalizer.CleanAttendance(table)
		return nil
	})
	g.Go(func() error {
		table, ok := artifacts.Raw[sources.SourceOutcomes]
		if !ok {
			return fmt.Errorf("raw %s table not loaded", sources.SourceOutcomes)
		}
		artifacts.Outcomes, stats[3] = s.normalizer.CleanOutcomes(table)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, st := range stats {
		artifacts.Stats[st.Source] = st
	}
	return nil
}

// AggregateStep collapses event-grain tables to pair grain.
type AggregateStep struct{}

func NewAggregateStep() *AggregateStep { return &AggregateStep{} }

func (s *AggregateStep) ID() string   { return StepIDAggregate }
func (s *AggregateStep) Name() string { return "Aggregate to pair grain" }

func (s *AggregateStep) Execute(_ context.Context, _ *RunState, artifacts *Artifacts) error {
	artifacts.AttendanceSummaries = aggregate.Attendance(artifacts.Events)
	artifacts.SurveySummaries = aggregate.Surveys(artifacts.Responses)
	return nil
}

// MergeStep derives the program registry and builds the master dataset.
type MergeStep struct{}

func NewMergeStep() *MergeStep { return &MergeStep{} }

func (s *MergeStep) ID() string   { return StepIDMerge }
func (s *MergeStep) Name() string { return "Build master dataset" }

func (s *MergeStep) Execute(_ context.Context, _ *RunState, artifacts *Artifacts) error {
	artifacts.Programs = merge.DerivePrograms(artifacts.Events, artifacts.Outcomes)
	artifacts.Master = merge.Build(merge.Inputs{
		Participants: artifacts.Participants,
		Programs:     artifacts.Programs,
		Attendance:   artifacts.AttendanceSummaries,
		Surveys:      artifacts.SurveySummaries,
		Outcomes:     artifacts.Outcomes,
	})
	return nil
}

// ReportStep profiles raw inputs, cleaned tables and the master dataset
// into the quality report.
type ReportStep struct{}

func NewReportStep() *ReportStep { return &ReportStep{} }

func (s *ReportStep) ID() string   { return StepIDReport }
func (s *ReportStep) Name() string { return "Compute quality report" }

func (s *ReportStep) Execute(_ context.Context, _ *RunState, artifacts *Artifacts) error {
	reports := make([]quality.TableReport, 0, 9)

	for _, name := range []string{
		sources.SourceCRM, sources.SourceSurveys,
		sources.SourceAttendance, sources.SourceOutcomes,
	} {
		if table, ok := artifacts.Raw[name]; ok {
			reports = append(reports, quality.ForRaw(table))
		}
	}

	reports = append(reports,
		quality.ForClean(sources.SourceCRM,
			exporter.ParticipantRows(artifacts.Participants),
			len(exporter.CRMColumns), artifacts.Stats[sources.SourceCRM]),
		quality.ForClean(sources.SourceSurveys,
			exporter.SurveyRows(artifacts.Responses),
			len(exporter.SurveyColumns), artifacts.Stats[sources.SourceSurveys]),
		quality.ForClean(sources.SourceAttendance,
			exporter.AttendanceRows(artifacts.Events),
			len(exporter.AttendanceColumns), artifacts.Stats[sources.SourceAttendance]),
		quality.ForClean(sources.SourceOutcomes,
			exporter.OutcomeRows(artifacts.Outcomes),
			len(exporter.OutcomeColumns), artifacts.Stats[sources.SourceOutcomes]),
		quality.ForMaster(exporter.MasterRows(artifacts.Master), len(domain.MasterColumns)),
	)

	artifacts.Reports = reports
	return nil
}

// ExportStep publishes all six artifacts. Each file is written
// atomically, so the clean directory never holds partial output even if
// the run dies mid-export.
type ExportStep struct {
	writer *exporter.CSVWriter
	bom    bool
}

func NewExportStep(writer *exporter.CSVWriter, bom bool) *ExportStep {
	return &ExportStep{writer: writer, bom: bom}
}

func (s *ExportStep) ID() string   { return StepIDExport }
func (s *ExportStep) Name() string { return "Export clean artifacts" }

func (s *ExportStep) Execute(_ context.Context, _ *RunState, artifacts *Artifacts) error {
	files := []struct {
		name    string
		headers []string
		records [][]string
	}{
		{config.CRMCleanFile, exporter.CRMColumns, exporter.ParticipantRows(artifacts.Participants)},
		{config.SurveysCleanFile, exporter.SurveyColumns, exporter.SurveyRows(artifacts.Responses)},
		{config.AttendanceCleanFile, exporter.AttendanceColumns, exporter.AttendanceRows(artifacts.Events)},
		{config.OutcomesCleanFile, exporter.OutcomeColumns, exporter.OutcomeRows(artifacts.Outcomes)},
		{config.MasterDatasetFile, domain.MasterColumns, exporter.MasterRows(artifacts.Master)},
		{config.QualityReportFile, quality.Columns, exporter.QualityRows(artifacts.Reports)},
	}

	for _, f := range files {
		err := s.writer.WriteClean(f.name, exporter.WriteOptions{
			Headers:   f.headers,
			Records:   f.records,
			BOMPrefix: s.bom,
		})
		if err != nil {
			return fmt.Errorf("exporting %s: %w", f.name, err)
		}
	}
	return nil
}
