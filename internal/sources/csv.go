package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"

	"impactetl/internal/errors"
)

// CSVReader reads a delimited-text extract. The first row is the header.
type CSVReader struct {
	name string
	path string
}

// NewCSVReader creates a reader for a CSV extract.
func NewCSVReader(name, path string) *CSVReader {
	return &CSVReader{name: name, path: path}
}

// Name returns the logical source name.
func (r *CSVReader) Name() string {
	return r.name
}

// Read loads the CSV file. Ragged rows are tolerated; quoting follows
// RFC 4180 as implemented by encoding/csv.
func (r *CSVReader) Read(ctx context.Context) (*RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(r.path)
		}
		return nil, errors.NewStorageError("failed to read extract", err).WithContext("path", r.path)
	}

	// Strip a UTF-8 BOM so the first header cell survives intact.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to parse CSV extract", err).WithContext("path", r.path)
	}

	table := &RawTable{Name: r.name}
	if len(records) == 0 {
		return table, nil
	}
	table.Columns = records[0]
	table.Rows = records[1:]
	return table, nil
}
