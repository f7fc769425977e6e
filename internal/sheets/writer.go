package sheets

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nconklindev/sheetmerge/internal/types"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSheetName = "Merged Data"
	SourceColumn     = "Source File"

	maxColWidth = 60
)

// ExportOptions controls how merged rows are written.
type ExportOptions struct {
	SheetName     string
	IncludeSource bool
	WriteMapping  bool
}

// Export writes merged rows to outputFile. The format follows the file
// extension: .csv writes CSV, anything else writes a single-sheet XLSX.
// Provenance is dropped unless IncludeSource adds it as a regular column.
func Export(outputFile string, schema types.SchemaMapping, rows []types.MergedRow, opts ExportOptions) (*types.ExportResult, error) {
	columns := append([]string(nil), schema.StandardHeaders...)
	sourceColumn := ""
	if opts.IncludeSource {
		sourceColumn = sourceColumnName(columns)
		columns = append(columns, sourceColumn)
	}

	records := make([]map[string]types.Value, len(rows))
	for i, row := range rows {
		rec := row.Record()
		if sourceColumn != "" {
			rec[sourceColumn] = types.String(row.Source)
		}
		records[i] = rec
	}

	var err error
	if strings.ToLower(filepath.Ext(outputFile)) == ".csv" {
		err = writeCSV(outputFile, columns, records)
	} else {
		sheet := opts.SheetName
		if sheet == "" {
			sheet = DefaultSheetName
		}
		err = writeXLSX(outputFile, sheet, columns, records)
	}
	if err != nil {
		return nil, err
	}

	result := &types.ExportResult{
		OutputFile:  outputFile,
		Columns:     columns,
		RowsWritten: len(records),
	}

	if opts.WriteMapping {
		mappingFile := strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".mapping.yaml"
		if err := WriteMappingReport(mappingFile, schema); err != nil {
			return nil, err
		}
		result.MappingFile = mappingFile
	}

	return result, nil
}

// sourceColumnName returns SourceColumn, suffixed with _1, _2 when a
// standard header already uses the name.
func sourceColumnName(headers []string) string {
	name := SourceColumn
	for n := 1; slices.Contains(headers, name); n++ {
		name = SourceColumn + "_" + strconv.Itoa(n)
	}
	return name
}

func writeXLSX(outputFile, sheet string, columns []string, records []map[string]types.Value) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	// Column widths must be set before the first row is written
	for i, col := range columns {
		width := float64(len(col) + 4)
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if len(columns) > 0 {
		headerRow := make([]interface{}, len(columns))
		for i, col := range columns {
			headerRow[i] = excelize.Cell{Value: col, StyleID: headerStyle}
		}
		if err := sw.SetRow("A1", headerRow); err != nil {
			return fmt.Errorf("write headers: %w", err)
		}
	}

	for i, rec := range records {
		rowData := make([]interface{}, len(columns))
		for j, col := range columns {
			v := rec[col]
			if v.IsNumber {
				rowData[j] = v.Number
			} else {
				rowData[j] = v.Text
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowData); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return f.SaveAs(outputFile)
}

func writeCSV(outputFile string, columns []string, records []map[string]types.Value) error {
	outFile, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer outFile.Close()

	writer := csv.NewWriter(outFile)

	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		line := make([]string, len(columns))
		for i, col := range columns {
			line[i] = rec[col].String()
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

type mappingReport struct {
	StandardHeaders []string      `yaml:"standard_headers"`
	Mapping         []mappingPair `yaml:"mapping"`
}

type mappingPair struct {
	Original string `yaml:"original"`
	Standard string `yaml:"standard"`
}

// WriteMappingReport saves the schema as YAML. Pairs are grouped by
// standard header in schema order.
func WriteMappingReport(path string, schema types.SchemaMapping) error {
	report := mappingReport{StandardHeaders: schema.StandardHeaders}
	for _, std := range schema.StandardHeaders {
		for _, original := range sortedOriginals(schema, std) {
			report.Mapping = append(report.Mapping, mappingPair{Original: original, Standard: std})
		}
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func sortedOriginals(schema types.SchemaMapping, std string) []string {
	var originals []string
	for original, target := range schema.Mapping {
		if target == std {
			originals = append(originals, original)
		}
	}
	slices.Sort(originals)
	return originals
}
