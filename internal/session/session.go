// Package session holds the working set of parsed files and the merge
// computed from it.
//
// A Session is a value. Every change returns a new Session with a higher
// generation, and a merge result is only accepted by the Session whose
// generation it was computed against. Results computed against a file set
// that has since changed are rejected with ErrStale.
package session

import (
	"errors"
	"slices"

	"github.com/nconklindev/sheetmerge/internal/types"
)

var (
	ErrNoFiles = errors.New("no files to merge")
	ErrStale   = errors.New("file set changed while merging")
)

type Session struct {
	files      []types.SourceFile
	generation int
	merged     *types.MergeResult
}

func New() Session {
	return Session{}
}

// Files returns the working set in the order files were added.
func (s Session) Files() []types.SourceFile {
	return slices.Clone(s.files)
}

func (s Session) Len() int {
	return len(s.files)
}

func (s Session) Generation() int {
	return s.generation
}

// RowCount is the total number of rows across the working set.
func (s Session) RowCount() int {
	n := 0
	for _, f := range s.files {
		n += len(f.Rows)
	}
	return n
}

// Merged returns the last accepted merge, or nil when the file set changed
// since.
func (s Session) Merged() *types.MergeResult {
	return s.merged
}

// Add appends a parsed batch to the working set and discards any merge.
func (s Session) Add(batch []types.SourceFile) Session {
	if len(batch) == 0 {
		return s
	}
	return Session{
		files:      append(slices.Clone(s.files), batch...),
		generation: s.generation + 1,
	}
}

// Remove drops the file with id and discards any merge. It reports whether
// the file was present.
func (s Session) Remove(id string) (Session, bool) {
	idx := slices.IndexFunc(s.files, func(f types.SourceFile) bool { return f.ID == id })
	if idx < 0 {
		return s, false
	}
	return Session{
		files:      slices.Delete(slices.Clone(s.files), idx, idx+1),
		generation: s.generation + 1,
	}, true
}

// HeaderUniverse lists every header across the working set once, in order
// of first appearance.
func (s Session) HeaderUniverse() []string {
	seen := make(map[string]bool)
	var headers []string
	for _, f := range s.files {
		for _, h := range f.Headers {
			if !seen[h] {
				seen[h] = true
				headers = append(headers, h)
			}
		}
	}
	return headers
}

// WithResult stores a merge result computed from this session's file set.
func (s Session) WithResult(res *types.MergeResult) (Session, error) {
	if res == nil || res.Generation != s.generation {
		return s, ErrStale
	}
	s.merged = res
	return s, nil
}
