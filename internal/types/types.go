package types

import (
	"strconv"
)

// Value is a single spreadsheet cell: a string, a number or blank.
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
}

func String(s string) Value {
	return Value{Text: s}
}

func Number(n float64) Value {
	return Value{Number: n, IsNumber: true, Text: strconv.FormatFloat(n, 'f', -1, 64)}
}

// Blank is the value used for missing cells and unfilled merged columns.
var Blank = Value{}

func (v Value) IsBlank() bool {
	return !v.IsNumber && v.Text == ""
}

func (v Value) String() string {
	return v.Text
}

// Cell pairs an original header with its value.
type Cell struct {
	Header string
	Value  Value
}

// Row is a row record. Cells keep the source file's column order, which is
// the order merge collisions are resolved in.
type Row []Cell

// Upload is a raw file handed to the row source adapter.
type Upload struct {
	Name string
	Size int64
	Data []byte
}

// SourceFile is a parsed upload. It is never modified after parsing.
type SourceFile struct {
	ID      string
	Name    string
	Size    int64
	Headers []string
	Rows    []Row
}

// SchemaMapping maps every original header to exactly one standard header.
type SchemaMapping struct {
	StandardHeaders []string
	Mapping         map[string]string
}

// Target returns the standard header for an original header.
func (m SchemaMapping) Target(original string) (string, bool) {
	t, ok := m.Mapping[original]
	return t, ok
}

// Equal reports whether both mappings have the same standard headers in the
// same order and the same original to standard pairs.
func (m SchemaMapping) Equal(o SchemaMapping) bool {
	if len(m.StandardHeaders) != len(o.StandardHeaders) || len(m.Mapping) != len(o.Mapping) {
		return false
	}
	for i := range m.StandardHeaders {
		if m.StandardHeaders[i] != o.StandardHeaders[i] {
			return false
		}
	}
	for k, v := range m.Mapping {
		if ov, ok := o.Mapping[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// MergedRow holds one value per standard header plus the name of the file
// the row came from. Provenance is kept outside Values.
type MergedRow struct {
	Values map[string]Value
	Source string
}

// Record returns the row without provenance, as handed to the exporter.
func (r MergedRow) Record() map[string]Value {
	out := make(map[string]Value, len(r.Values))
	for k, v := range r.Values {
		out[k] = v
	}
	return out
}

type Strategy int

const (
	StrategyIdentity Strategy = iota
	StrategySemantic
)

func (s Strategy) String() string {
	switch s {
	case StrategySemantic:
		return "semantic"
	default:
		return "identity"
	}
}

// MergeResult is the output of one merge over a snapshot of the working set.
type MergeResult struct {
	Strategy   Strategy
	Schema     SchemaMapping
	Rows       []MergedRow
	Collisions int
	Degraded   bool
	Warning    string
	Generation int
}

type ExportResult struct {
	OutputFile  string
	MappingFile string
	Columns     []string
	RowsWritten int
}
