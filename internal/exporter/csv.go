// Package exporter serializes cleaned tables, the master dataset and the
// quality report to CSV. Every write is atomic: content goes to a temp
// file in the target directory and is renamed into place, so a consumer
// polling the clean directory never reads a half-written artifact.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"impactetl/internal/config"
)

// CSVWriter writes CSV artifacts into the clean directory.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // UTF-8 BOM so Excel opens the file correctly
}

// WriteClean writes a named artifact into the clean directory.
func (w *CSVWriter) WriteClean(fileName string, options WriteOptions) error {
	return w.WriteCSV(w.paths.GetCleanPath(fileName), options)
}

// WriteCSV writes data to a CSV file at fullPath. The temp file lives in
// the same directory as the target so the final rename stays on one
// filesystem.
func (w *CSVWriter) WriteCSV(fullPath string, options WriteOptions) error {
	slog.Info("Writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeContent(tmp, options); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("failed to publish %s: %w", filepath.Base(fullPath), err)
	}
	return nil
}

func writeContent(file *os.File, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// StreamWriter writes rows incrementally for datasets too large to hold
// as [][]string. Rows accumulate in a temp file; Close publishes it.
type StreamWriter struct {
	file    *os.File
	writer  *csv.Writer
	tmpPath string
	target  string
}

// CreateStreamWriter opens a streaming writer for fullPath.
func (w *CSVWriter) CreateStreamWriter(fullPath string, headers []string) (*StreamWriter, error) {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			os.Remove(file.Name())
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{
		file:    file,
		writer:  writer,
		tmpPath: file.Name(),
		target:  fullPath,
	}, nil
}

// WriteRecord writes a single record to the stream.
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream and renames the temp file into place. The
// target only ever holds a complete file.
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		os.Remove(s.tmpPath)
		return err
	}
	if err := s.file.Close(); err != nil {
		os.Remove(s.tmpPath)
		return err
	}
	return os.Rename(s.tmpPath, s.target)
}

// Abort discards the stream without publishing.
func (s *StreamWriter) Abort() {
	s.writer.Flush()
	s.file.Close()
	os.Remove(s.tmpPath)
}
