package ui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nconklindev/sheetmerge/internal/logging"
	"github.com/nconklindev/sheetmerge/internal/normalize"
	"github.com/nconklindev/sheetmerge/internal/session"
	"github.com/nconklindev/sheetmerge/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testModel() Model {
	return InitialModel(Options{
		Normalizer: normalize.New(nil, logging.Discard()),
		Logger:     logging.Discard(),
	})
}

func sampleFiles() []types.SourceFile {
	return []types.SourceFile{
		{
			ID:      "f1",
			Name:    "File1.csv",
			Headers: []string{"Name", "Email"},
			Rows: []types.Row{{
				{Header: "Name", Value: types.String("Alice")},
				{Header: "Email", Value: types.String("a@x.com")},
			}},
		},
		{
			ID:      "f2",
			Name:    "File2.csv",
			Headers: []string{"Name", "E-mail"},
			Rows: []types.Row{{
				{Header: "Name", Value: types.String("Bob")},
				{Header: "E-mail", Value: types.String("b@x.com")},
			}},
		},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func loaded(t *testing.T) Model {
	t.Helper()
	return update(t, testModel(), batchLoadedMsg{files: sampleFiles()})
}

func TestBatchLoaded(t *testing.T) {
	m := loaded(t)
	if m.state != stateFileList {
		t.Errorf("state = %v; want file list", m.state)
	}
	if m.session.Len() != 2 {
		t.Errorf("session has %d files; want 2", m.session.Len())
	}
}

func TestBatchFailureDiscardsBatch(t *testing.T) {
	m := update(t, testModel(), batchLoadedMsg{err: errors.New("parse bad.xlsx: zip: not a valid zip file")})
	if m.state != stateError {
		t.Fatalf("state = %v; want error", m.state)
	}
	if m.session.Len() != 0 {
		t.Errorf("session has %d files; want 0", m.session.Len())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateFilePicker {
		t.Errorf("state after enter = %v; want file picker", m.state)
	}
}

func TestMergeComplete(t *testing.T) {
	m := loaded(t)

	res, err := session.Merge(context.Background(), m.session, m.opts.Normalizer, types.StrategyIdentity, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	m = update(t, m, mergeCompleteMsg{result: res})

	if m.state != statePreview {
		t.Fatalf("state = %v; want preview", m.state)
	}
	if m.session.Merged() != res {
		t.Error("merge result not stored on the session")
	}
	if got := len(m.table.Rows()); got != 2 {
		t.Errorf("preview has %d rows; want 2", got)
	}
	// #, Name, Email, E-mail, Source
	if got := len(m.table.Columns()); got != 5 {
		t.Errorf("preview has %d columns; want 5", got)
	}

	m = update(t, m, key("b"))
	if m.state != stateFileList {
		t.Errorf("state after b = %v; want file list", m.state)
	}
}

func TestRemoveDuringMergeDiscardsResult(t *testing.T) {
	m := loaded(t)

	res, err := session.Merge(context.Background(), m.session, m.opts.Normalizer, types.StrategyIdentity, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}

	m = update(t, m, key("d"))
	if m.session.Len() != 1 {
		t.Fatalf("session has %d files after remove; want 1", m.session.Len())
	}

	m = update(t, m, mergeCompleteMsg{result: res})
	if m.state != stateFileList {
		t.Errorf("state = %v; want file list", m.state)
	}
	if m.session.Merged() != nil {
		t.Error("stale merge result was accepted")
	}
}

func TestRemoveClearsMerge(t *testing.T) {
	m := loaded(t)
	res, _ := session.Merge(context.Background(), m.session, m.opts.Normalizer, types.StrategyIdentity, logging.Discard())
	m = update(t, m, mergeCompleteMsg{result: res})
	m = update(t, m, key("b"))

	m = update(t, m, key("d"))
	if m.session.Merged() != nil {
		t.Error("merge survived a file removal")
	}

	m = update(t, m, key("p"))
	if m.state == statePreview {
		t.Error("preview opened without a merge")
	}
}

func TestToggleStaged(t *testing.T) {
	m := testModel()
	m.toggleStaged("/tmp/a.csv")
	m.toggleStaged("/tmp/b.xlsx")
	m.toggleStaged("/tmp/a.csv")

	if len(m.staged) != 1 || m.staged[0] != "/tmp/b.xlsx" {
		t.Errorf("staged = %v; want [/tmp/b.xlsx]", m.staged)
	}

	m = update(t, m, key("x"))
	if len(m.staged) != 0 {
		t.Errorf("staged = %v after clear; want empty", m.staged)
	}
}

func TestBuildTable_LimitsPreview(t *testing.T) {
	res := &types.MergeResult{
		Schema: types.SchemaMapping{StandardHeaders: []string{"N"}, Mapping: map[string]string{"N": "N"}},
	}
	for i := 0; i < previewRows+50; i++ {
		res.Rows = append(res.Rows, types.MergedRow{
			Source: "f.csv",
			Values: map[string]types.Value{"N": types.String(fmt.Sprint(i))},
		})
	}

	tbl := buildTable(res, 10)
	if got := len(tbl.Rows()); got != previewRows {
		t.Errorf("preview has %d rows; want %d", got, previewRows)
	}
	for _, col := range tbl.Columns() {
		if col.Width < minColumnWidth || col.Width > maxColumnWidth {
			t.Errorf("column %q width %d outside [%d, %d]", col.Title, col.Width, minColumnWidth, maxColumnWidth)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		max      int
		expected string
	}{
		{"Short", "/tmp/out.xlsx", 30, "/tmp/out.xlsx"},
		{"Long", "/very/long/directory/name/out.xlsx", 12, ".../out.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncatePath(tt.path, tt.max); got != tt.expected {
				t.Errorf("truncatePath(%q, %d) = %q; want %q", tt.path, tt.max, got, tt.expected)
			}
		})
	}
}
