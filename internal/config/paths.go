package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Raw extract filenames expected under the raw data directory.
const (
	CRMRawFile        = "crm_export.csv"
	SurveysRawFile    = "survey_responses.csv"
	AttendanceRawFile = "attendance.xlsx"
	OutcomesRawFile   = "program_outcomes.xlsx"
)

// Clean output filenames written to the clean data directory.
const (
	CRMCleanFile        = "crm_clean.csv"
	SurveysCleanFile    = "surveys_clean.csv"
	AttendanceCleanFile = "attendance_clean.csv"
	OutcomesCleanFile   = "outcomes_clean.csv"
	MasterDatasetFile   = "master_dataset.csv"
	QualityReportFile   = "data_quality_report.csv"
)

// Paths contains all the application paths.
// This is the single source of truth for ALL file paths in the pipeline.
type Paths struct {
	BaseDir  string
	RawDir   string
	CleanDir string
	LogsDir  string
}

// NewPaths resolves the path layout from configuration. An empty base
// directory means the current working directory.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		base = wd
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	return &Paths{
		BaseDir:  abs,
		RawDir:   resolveUnder(abs, cfg.RawDir),
		CleanDir: resolveUnder(abs, cfg.CleanDir),
		LogsDir:  resolveUnder(abs, cfg.LogsDir),
	}, nil
}

func resolveUnder(base, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// EnsureDirectories creates all required directories
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.RawDir, p.CleanDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetRawPath returns the full path for a file in the raw data directory
func (p *Paths) GetRawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetCleanPath returns the full path for a file in the clean data directory
func (p *Paths) GetCleanPath(filename string) string {
	return filepath.Join(p.CleanDir, filename)
}

// GetLogPath returns the full path for a file in the logs directory
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// MasterDatasetPath returns the published master dataset location.
func (p *Paths) MasterDatasetPath() string {
	return p.GetCleanPath(MasterDatasetFile)
}

// QualityReportPath returns the published quality report location.
func (p *Paths) QualityReportPath() string {
	return p.GetCleanPath(QualityReportFile)
}
