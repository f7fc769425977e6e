package sheets

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nconklindev/sheetmerge/internal/types"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const emptyHeader = "__EMPTY"

var (
	ErrEmptyFile       = errors.New("empty file")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds size limit")
)

// AllowedTypes lists the extensions the reader accepts.
var AllowedTypes = []string{".xlsx", ".xlsm", ".csv"}

// ParseError reports a file that could not be turned into rows.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader converts uploads into source files.
type Reader struct {
	// MaxFileSize rejects larger uploads when positive.
	MaxFileSize int64
}

// Parse reads the first sheet of an upload. The first row is the header row
// and every following non-blank row becomes a row record.
func (r Reader) Parse(up types.Upload) (types.SourceFile, error) {
	size := up.Size
	if size == 0 {
		size = int64(len(up.Data))
	}
	if r.MaxFileSize > 0 && size > r.MaxFileSize {
		return types.SourceFile{}, &ParseError{File: up.Name, Err: fmt.Errorf("%w: %d bytes", ErrTooLarge, size)}
	}

	var (
		grid [][]types.Value
		err  error
	)

	ext := strings.ToLower(filepath.Ext(up.Name))
	switch ext {
	case ".csv":
		grid, err = readCSVGrid(up.Data)
	case ".xlsx", ".xlsm":
		grid, err = readXLSXGrid(up.Data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if err != nil {
		return types.SourceFile{}, &ParseError{File: up.Name, Err: err}
	}
	if len(grid) == 0 {
		return types.SourceFile{}, &ParseError{File: up.Name, Err: ErrEmptyFile}
	}

	headers, rows := buildRows(grid)
	return types.SourceFile{
		ID:      uuid.NewString(),
		Name:    up.Name,
		Size:    size,
		Headers: headers,
		Rows:    rows,
	}, nil
}

func readCSVGrid(data []byte) ([][]types.Value, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	grid := make([][]types.Value, 0, len(records))
	for _, record := range records {
		row := make([]types.Value, len(record))
		for i, cell := range record {
			row[i] = types.String(cell)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func readXLSXGrid(data []byte) ([][]types.Value, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	formatted, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	raw, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make([][]types.Value, 0, len(formatted))
	for rowIdx, cells := range formatted {
		row := make([]types.Value, len(cells))
		for colIdx, text := range cells {
			row[colIdx] = types.String(text)
			if rowIdx == 0 || text == "" {
				continue
			}
			if n, ok := numericCell(f, sheetName, raw, rowIdx, colIdx, text); ok {
				row[colIdx] = types.Number(n)
			}
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// numericCell reports whether a cell holds a plain number. Cells whose
// displayed text is not itself numeric (dates, currency formats) stay text.
func numericCell(f *excelize.File, sheet string, raw [][]string, rowIdx, colIdx int, text string) (float64, bool) {
	if rowIdx >= len(raw) || colIdx >= len(raw[rowIdx]) {
		return 0, false
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err != nil {
		return 0, false
	}

	cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
	if err != nil {
		return 0, false
	}
	cellType, err := f.GetCellType(sheet, cellName)
	if err != nil {
		return 0, false
	}
	if cellType != excelize.CellTypeNumber && cellType != excelize.CellTypeUnset {
		return 0, false
	}

	n, err := strconv.ParseFloat(raw[rowIdx][colIdx], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// buildRows names the columns from the first grid row and turns the
// remaining rows into row records. Missing cells become blank values.
func buildRows(grid [][]types.Value) ([]string, []types.Row) {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}

	headerCells := make([]string, width)
	for i, v := range grid[0] {
		headerCells[i] = v.String()
	}
	headers := uniqueHeaders(headerCells)

	rows := make([]types.Row, 0, len(grid)-1)
	for _, values := range grid[1:] {
		if isBlankRow(values) {
			continue
		}
		row := make(types.Row, width)
		for i, h := range headers {
			v := types.Blank
			if i < len(values) {
				v = values[i]
			}
			row[i] = types.Cell{Header: h, Value: v}
		}
		rows = append(rows, row)
	}

	return headers, rows
}

// uniqueHeaders fills blank header cells with __EMPTY names and suffixes
// repeated names with _1, _2 so every header in a file is distinct.
func uniqueHeaders(cells []string) []string {
	seen := make(map[string]bool, len(cells))
	headers := make([]string, len(cells))

	for i, cell := range cells {
		base := cell
		if strings.TrimSpace(base) == "" {
			base = emptyHeader
		}

		name := base
		for n := 1; seen[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		headers[i] = name
	}

	return headers
}

func isBlankRow(values []types.Value) bool {
	for _, v := range values {
		if v.IsNumber || strings.TrimSpace(v.Text) != "" {
			return false
		}
	}
	return true
}
