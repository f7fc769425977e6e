package merge

import (
	"github.com/nconklindev/sheetmerge/internal/types"
)

// Stats describes a merge run.
type Stats struct {
	Rows int
	// Collisions counts cells overwritten because two original headers of
	// one row map to the same standard header.
	Collisions int
	// Dropped counts cells whose header had no mapping entry.
	Dropped int
}

// Rows applies schema to every row of every file. Output order is file
// order, then row order. Every output row carries exactly the schema's
// standard headers, blank where the source had no value.
//
// When several original headers of one row map to the same standard header
// and more than one holds a value, the cell that comes later in the row
// wins. Blank cells never overwrite a value.
func Rows(files []types.SourceFile, schema types.SchemaMapping) ([]types.MergedRow, Stats) {
	total := 0
	for _, f := range files {
		total += len(f.Rows)
	}

	merged := make([]types.MergedRow, 0, total)
	var stats Stats

	for _, file := range files {
		for _, row := range file.Rows {
			out := types.MergedRow{
				Values: make(map[string]types.Value, len(schema.StandardHeaders)),
				Source: file.Name,
			}
			for _, h := range schema.StandardHeaders {
				out.Values[h] = types.Blank
			}

			written := make(map[string]bool, len(row))
			for _, cell := range row {
				target, ok := schema.Target(cell.Header)
				if !ok {
					stats.Dropped++
					continue
				}
				if _, known := out.Values[target]; !known {
					// a target outside the standard headers would add a key
					stats.Dropped++
					continue
				}
				if cell.Value.IsBlank() {
					continue
				}
				if written[target] {
					stats.Collisions++
				}
				out.Values[target] = cell.Value
				written[target] = true
			}

			merged = append(merged, out)
		}
	}

	stats.Rows = len(merged)
	return merged, stats
}
