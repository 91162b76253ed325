// Package http serves the published artifacts over a small read-only
// API. The server never recomputes anything: it reads what the pipeline
// exported, so a response always reflects a complete, consistent run.
package http

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"impactetl/internal/config"
	apierrors "impactetl/internal/errors"
	"impactetl/internal/quality"
	"impactetl/pkg/contracts/domain"
)

// MasterFilter narrows the master dataset query. Zero values mean no
// constraint.
type MasterFilter struct {
	City            string
	ProgramID       string
	ParticipantID   string
	MinAttendance   *float64
	MinSatisfaction *float64
	From            *time.Time // last_session on or after
	To              *time.Time // first_session on or before
}

// ReportService reads the exported artifacts. Files are re-parsed only
// when their mtime changes, so repeated queries between pipeline runs
// hit the cache.
type ReportService struct {
	paths  *config.Paths
	logger *slog.Logger

	mu         sync.Mutex
	master     []domain.MasterRow
	masterTime time.Time
	reports    []quality.TableReport
	reportTime time.Time
}

// NewReportService creates a service over the clean directory.
func NewReportService(paths *config.Paths, logger *slog.Logger) *ReportService {
	return &ReportService{
		paths:  paths,
		logger: logger.With(slog.String("component", "report_service")),
	}
}

// MasterRows returns master dataset rows matching the filter.
func (s *ReportService) MasterRows(ctx context.Context, filter MasterFilter) ([]domain.MasterRow, error) {
	rows, err := s.loadMaster(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MasterRow, 0, len(rows))
	for _, row := range rows {
		if matches(row, filter) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Programs returns the distinct program IDs present in the master
// dataset, sorted. The empty program of enrollment-only rows is skipped.
func (s *ReportService) Programs(ctx context.Context) ([]string, error) {
	rows, err := s.loadMaster(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var programs []string
	for _, row := range rows {
		if row.ProgramID == "" {
			continue
		}
		if _, ok := seen[row.ProgramID]; !ok {
			seen[row.ProgramID] = struct{}{}
			programs = append(programs, row.ProgramID)
		}
	}
	// Master rows are sorted by key, so first-seen order is sorted too.
	return programs, nil
}

// QualityReport returns the published quality report rows.
func (s *ReportService) QualityReport(ctx context.Context) ([]quality.TableReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.paths.QualityReportPath()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierrors.NewNotFoundError("quality report")
		}
		return nil, apierrors.NewStorageError("failed to stat quality report", err)
	}
	if s.reports != nil && info.ModTime().Equal(s.reportTime) {
		return s.reports, nil
	}

	records, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	reports, err := parseQualityReport(records)
	if err != nil {
		return nil, err
	}

	s.reports = reports
	s.reportTime = info.ModTime()
	s.logger.InfoContext(ctx, "quality report loaded", slog.Int("tables", len(reports)))
	return reports, nil
}

func (s *ReportService) loadMaster(ctx context.Context) ([]domain.MasterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.paths.MasterDatasetPath()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierrors.NewNotFoundError("master dataset")
		}
		return nil, apierrors.NewStorageError("failed to stat master dataset", err)
	}
	if s.master != nil && info.ModTime().Equal(s.masterTime) {
		return s.master, nil
	}

	records, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := parseMaster(records)
	if err != nil {
		return nil, err
	}

	s.master = rows
	s.masterTime = info.ModTime()
	s.logger.InfoContext(ctx, "master dataset loaded", slog.Int("rows", len(rows)))
	return rows, nil
}

func matches(row domain.MasterRow, f MasterFilter) bool {
	if f.City != "" && (row.City == nil || !strings.EqualFold(*row.City, f.City)) {
		return false
	}
	if f.ProgramID != "" && !strings.EqualFold(row.ProgramID, f.ProgramID) {
		return false
	}
	if f.ParticipantID != "" && !strings.EqualFold(row.ParticipantID, f.ParticipantID) {
		return false
	}
	if f.MinAttendance != nil && (row.AttendanceRate == nil || *row.AttendanceRate < *f.MinAttendance) {
		return false
	}
	if f.MinSatisfaction != nil && (row.AvgSatisfaction == nil || *row.AvgSatisfaction < *f.MinSatisfaction) {
		return false
	}
	if f.From != nil && (row.LastSession == nil || row.LastSession.Before(*f.From)) {
		return false
	}
	if f.To != nil && (row.FirstSession == nil || row.FirstSession.After(*f.To)) {
		return false
	}
	return true
}

func readCSVFile(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apierrors.NewStorageError(fmt.Sprintf("failed to read %s", path), err)
	}
	content := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		return nil, apierrors.NewParsingError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return records, nil
}

// parseMaster reads rows written in domain.MasterColumns order.
func parseMaster(records [][]string) ([]domain.MasterRow, error) {
	if len(records) == 0 {
		return nil, apierrors.NewParsingError("master dataset is empty", nil)
	}
	if len(records[0]) != len(domain.MasterColumns) {
		return nil, apierrors.NewParsingError(
			fmt.Sprintf("master dataset has %d columns, want %d", len(records[0]), len(domain.MasterColumns)), nil)
	}

	rows := make([]domain.MasterRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, domain.MasterRow{
			ParticipantID:    rec[0],
			ProgramID:        rec[1],
			City:             optString(rec[2]),
			Email:            optString(rec[3]),
			SessionsTotal:    optInt(rec[4]),
			SessionsAttended: optInt(rec[5]),
			AttendanceRate:   optFloat(rec[6]),
			FirstSession:     optDate(rec[7]),
			LastSession:      optDate(rec[8]),
			AvgSatisfaction:  optFloat(rec[9]),
			AvgNPS:           optFloat(rec[10]),
			SurveyResponses:  optInt(rec[11]),
			LastSurvey:       optDate(rec[12]),
			PreScore:         optFloat(rec[13]),
			PostScore:        optFloat(rec[14]),
			OutcomeDelta:     optFloat(rec[15]),
		})
	}
	return rows, nil
}

func parseQualityReport(records [][]string) ([]quality.TableReport, error) {
	if len(records) == 0 {
		return nil, apierrors.NewParsingError("quality report is empty", nil)
	}

	reports := make([]quality.TableReport, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(quality.Columns) {
			return nil, apierrors.NewParsingError("quality report row too short", nil)
		}
		reports = append(reports, quality.TableReport{
			Table:         rec[0],
			Rows:          atoiOrZero(rec[1]),
			Cols:          atoiOrZero(rec[2]),
			MissingValues: atoiOrZero(rec[3]),
			DuplicateRows: atoiOrZero(rec[4]),
			DuplicateKeys: atoiOrZero(rec[5]),
			ExcludedRows:  atoiOrZero(rec[6]),
			ParseFailures: atoiOrZero(rec[7]),
			SchemaDrift:   rec[8],
		})
	}
	return reports, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func optFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func atoiOrZero(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
