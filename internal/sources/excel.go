package sources

import (
	"context"
	"os"

	"github.com/xuri/excelize/v2"

	"impactetl/internal/errors"
)

// ExcelReader reads a spreadsheet extract with excelize. Sheet naming in
// the upstream exports drifts, so the preferred sheet is probed first and
// the first sheet in the workbook is the fallback.
type ExcelReader struct {
	name  string
	path  string
	sheet string
}

// NewExcelReader creates a reader for an Excel extract. sheet may be
// empty to always use the first sheet.
func NewExcelReader(name, path, sheet string) *ExcelReader {
	return &ExcelReader{name: name, path: path, sheet: sheet}
}

// Name returns the logical source name.
func (r *ExcelReader) Name() string {
	return r.name
}

// Read loads the workbook and extracts the header row plus data rows.
func (r *ExcelReader) Read(ctx context.Context) (*RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, errors.NewNotFoundError(r.path)
	}

	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, errors.NewParsingError("failed to open workbook", err).WithContext("path", r.path)
	}
	defer f.Close()

	sheet := r.resolveSheet(f)
	if sheet == "" {
		return nil, errors.NewParsingError("workbook has no sheets", nil).WithContext("path", r.path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.NewParsingError("failed to read sheet", err).
			WithContext("path", r.path).
			WithContext("sheet", sheet)
	}

	table := &RawTable{Name: r.name}
	if len(rows) == 0 {
		return table, nil
	}
	table.Columns = rows[0]
	table.Rows = rows[1:]
	return table, nil
}

func (r *ExcelReader) resolveSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	if r.sheet != "" {
		for _, s := range sheets {
			if s == r.sheet {
				return s
			}
		}
	}
	return sheets[0]
}
