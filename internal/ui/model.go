package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/nconklindev/sheetmerge/internal/normalize"
	"github.com/nconklindev/sheetmerge/internal/session"
	"github.com/nconklindev/sheetmerge/internal/sheets"
	"github.com/nconklindev/sheetmerge/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	previewRows     = 100
	maxColumnWidth  = 24
	minColumnWidth  = 4
	reservedHeight  = 14
	minPickerHeight = 5
)

type state int

const (
	stateFilePicker state = iota
	stateLoading
	stateFileList
	stateMerging
	statePreview
	stateExporting
	stateComplete
	stateError
)

// Options wires the model to the merge pipeline.
type Options struct {
	Loader     session.Loader
	Normalizer *normalize.Normalizer
	Export     sheets.ExportOptions
	OutputDir  string
	// OracleReady is false when no API key is configured.
	OracleReady bool
	Logger      *slog.Logger
	// Preload is loaded as the first batch on start.
	Preload []string
}

type Model struct {
	state      state
	opts       Options
	logger     *slog.Logger
	filepicker filepicker.Model
	staged     []string
	session    session.Session
	cursor     int
	table      table.Model
	progress   progress.Model
	spinner    spinner.Model
	strategy   types.Strategy
	export     *types.ExportResult
	notice     string
	err        error
	errReturn  state
	width      int
	height     int

	progressChan chan float64
	resultChan   chan batchLoadedMsg
	startCmd     tea.Cmd
}

type batchLoadedMsg struct {
	files []types.SourceFile
	err   error
}

type mergeCompleteMsg struct {
	result *types.MergeResult
	err    error
}

type exportCompleteMsg struct {
	result *types.ExportResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

func InitialModel(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fp := filepicker.New()
	fp.AllowedTypes = sheets.AllowedTypes
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles = pickerStyles(fp.Styles)

	prog := progress.New(progress.WithGradient(string(colorAccent), "#FF9F5A"))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := Model{
		state:      stateFilePicker,
		opts:       opts,
		logger:     opts.Logger,
		filepicker: fp,
		staged:     slices.Clone(opts.Preload),
		session:    session.New(),
		progress:   prog,
		spinner:    sp,
	}

	// Preloaded files are loaded as the first batch
	if len(m.staged) > 0 {
		m, m.startCmd = m.loadBatch()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.filepicker.Init(), m.startCmd)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Subtract space for title, subtitle, help text, and padding
		height := msg.Height - reservedHeight
		if height < minPickerHeight {
			height = minPickerHeight
		}

		m.filepicker.SetHeight(height)
		if m.session.Merged() != nil {
			m.table.SetHeight(height)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case batchLoadedMsg:
		m.staged = nil
		if msg.err != nil {
			return m.fail(msg.err, m.returnState()), nil
		}
		m.session = m.session.Add(msg.files)
		m.notice = fmt.Sprintf("Added %d file(s)", len(msg.files))
		m.cursor = 0
		m.state = stateFileList
		return m, nil

	case mergeCompleteMsg:
		if msg.err != nil {
			return m.fail(msg.err, stateFileList), nil
		}
		next, err := m.session.WithResult(msg.result)
		if err != nil {
			m.logger.Warn("discarding merge",
				"err", err,
				"result_generation", msg.result.Generation,
				"session_generation", m.session.Generation(),
			)
			m.notice = "File set changed during merge; run the merge again"
			m.state = stateFileList
			return m, nil
		}
		m.session = next
		m.table = buildTable(msg.result, m.tableHeight())
		m.notice = ""
		m.state = statePreview
		return m, nil

	case exportCompleteMsg:
		if msg.err != nil {
			return m.fail(msg.err, statePreview), nil
		}
		m.export = msg.result
		m.state = stateComplete
		return m, nil

	case spinner.TickMsg:
		if m.state != stateMerging && m.state != stateExporting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateLoading {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	switch m.state {
	case stateFilePicker:
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.toggleStaged(path)
		}
		return m, cmd

	case statePreview:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes keys for the current state. handled is false when
// the key should fall through to the focused bubble.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	key := msg.String()

	switch m.state {
	case stateFilePicker:
		switch key {
		case "q":
			return m, tea.Quit, true
		case "tab":
			if len(m.staged) > 0 {
				next, cmd := m.loadBatch()
				return next, cmd, true
			}
			if m.session.Len() > 0 {
				m.state = stateFileList
			}
			return m, nil, true
		case "x":
			m.staged = nil
			return m, nil, true
		}

	case stateFileList:
		files := m.session.Files()
		switch key {
		case "q":
			return m, tea.Quit, true
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(files)-1 {
				m.cursor++
			}
		case "d", "delete", "backspace":
			if len(files) == 0 {
				break
			}
			removed := files[m.cursor]
			next, ok := m.session.Remove(removed.ID)
			if ok {
				m.session = next
				m.notice = fmt.Sprintf("Removed %s; previous merge discarded", removed.Name)
				m.logger.Info("file removed", "file", removed.Name)
			}
			if m.cursor >= m.session.Len() && m.cursor > 0 {
				m.cursor--
			}
		case "a":
			m.notice = ""
			m.state = stateFilePicker
		case "s":
			next, cmd := m.startMerge(types.StrategyIdentity)
			return next, cmd, true
		case "m":
			next, cmd := m.startMerge(types.StrategySemantic)
			return next, cmd, true
		case "p":
			if m.session.Merged() != nil {
				m.state = statePreview
			}
		}
		return m, nil, true

	case statePreview:
		switch key {
		case "q":
			return m, tea.Quit, true
		case "tab", "b":
			m.state = stateFileList
			return m, nil, true
		case "e":
			next, cmd := m.startExport(".xlsx")
			return next, cmd, true
		case "c":
			next, cmd := m.startExport(".csv")
			return next, cmd, true
		}

	case stateComplete:
		switch key {
		case "q":
			return m, tea.Quit, true
		case "enter", "esc":
			m.state = statePreview
		}
		return m, nil, true

	case stateError:
		switch key {
		case "q":
			return m, tea.Quit, true
		case "enter", "esc":
			m.err = nil
			m.state = m.errReturn
		}
		return m, nil, true

	case stateLoading, stateMerging, stateExporting:
		return m, nil, true
	}

	return m, nil, false
}

func (m *Model) toggleStaged(path string) {
	if i := slices.Index(m.staged, path); i >= 0 {
		m.staged = slices.Delete(m.staged, i, i+1)
		return
	}
	m.staged = append(m.staged, path)
}

func (m Model) returnState() state {
	if m.session.Len() > 0 {
		return stateFileList
	}
	return stateFilePicker
}

func (m Model) fail(err error, back state) Model {
	m.logger.Error("operation failed", "err", err)
	m.err = err
	m.errReturn = back
	m.state = stateError
	return m
}

func (m Model) tableHeight() int {
	height := m.height - reservedHeight
	if height < minPickerHeight {
		height = minPickerHeight
	}
	return height
}

func (m Model) loadBatch() (Model, tea.Cmd) {
	m.state = stateLoading
	m.notice = ""
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan batchLoadedMsg, 1)

	// Capture for the goroutine
	progressChan := m.progressChan
	resultChan := m.resultChan
	paths := slices.Clone(m.staged)
	loader := m.opts.Loader
	loader.Progress = progressChan
	loader.Logger = m.logger

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				var msg batchLoadedMsg
				uploads, err := session.ReadUploads(paths)
				if err != nil {
					msg.err = err
				} else {
					msg.files, msg.err = loader.LoadBatch(context.Background(), uploads)
				}

				resultChan <- msg

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		m.progress.SetPercent(0),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan batchLoadedMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return res
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) startMerge(strategy types.Strategy) (Model, tea.Cmd) {
	if m.session.Len() == 0 {
		return m, nil
	}

	m.state = stateMerging
	m.strategy = strategy
	m.notice = ""

	snapshot := m.session
	normalizer := m.opts.Normalizer
	logger := m.logger

	merge := func() tea.Msg {
		res, err := session.Merge(context.Background(), snapshot, normalizer, strategy, logger)
		return mergeCompleteMsg{result: res, err: err}
	}
	return m, tea.Batch(merge, m.spinner.Tick)
}

func (m Model) startExport(ext string) (Model, tea.Cmd) {
	res := m.session.Merged()
	if res == nil || len(res.Rows) == 0 {
		return m, nil
	}

	m.state = stateExporting
	name := fmt.Sprintf("merged_data_%d%s", time.Now().UnixMilli(), ext)
	outputFile := filepath.Join(m.opts.OutputDir, name)
	opts := m.opts.Export
	logger := m.logger

	export := func() tea.Msg {
		out, err := sheets.Export(outputFile, res.Schema, res.Rows, opts)
		if err == nil {
			logger.Info("export written", "file", out.OutputFile, "rows", out.RowsWritten)
		}
		return exportCompleteMsg{result: out, err: err}
	}
	return m, tea.Batch(export, m.spinner.Tick)
}

func buildTable(res *types.MergeResult, height int) table.Model {
	headers := res.Schema.StandardHeaders
	shown := min(len(res.Rows), previewRows)

	widths := make([]int, len(headers)+2)
	widths[0] = max(len("#"), len(fmt.Sprint(shown)))
	for i, h := range headers {
		widths[i+1] = len(h)
	}
	widths[len(widths)-1] = len("Source")

	rows := make([]table.Row, 0, shown)
	for i, r := range res.Rows[:shown] {
		row := make(table.Row, 0, len(widths))
		row = append(row, fmt.Sprint(i+1))
		for j, h := range headers {
			v := r.Values[h].String()
			widths[j+1] = max(widths[j+1], len(v))
			row = append(row, v)
		}
		widths[len(widths)-1] = max(widths[len(widths)-1], len(r.Source))
		row = append(row, r.Source)
		rows = append(rows, row)
	}

	titles := append(append([]string{"#"}, headers...), "Source")
	columns := make([]table.Column, len(titles))
	for i, title := range titles {
		columns[i] = table.Column{Title: title, Width: min(max(widths[i], minColumnWidth), maxColumnWidth)}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	t.SetStyles(previewStyles())

	return t
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateLoading:
		return m.viewLoading()
	case stateFileList:
		return m.viewFileList()
	case stateMerging, stateExporting:
		return m.viewWorking()
	case statePreview:
		return m.viewPreview()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := TitleStyle.Render("▦ SheetMerge - Spreadsheet Header Reconciler")

	authorSpan := SubtitleStyle.Render("by Nick Conklin • ")
	githubSpan := LinkStyle.Render("https://github.com/nconklindev/sheetmerge")
	byLine := lipgloss.JoinHorizontal(lipgloss.Top, authorSpan, githubSpan)

	s.WriteString(lipgloss.JoinVertical(lipgloss.Left, title, byLine))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select the CSV or XLSX files to combine"))
	s.WriteString("\n")

	if len(m.staged) > 0 {
		names := make([]string, len(m.staged))
		for i, p := range m.staged {
			names[i] = filepath.Base(p)
		}
		s.WriteString(CheckedStyle.Render(fmt.Sprintf("Staged (%d): %s", len(m.staged), strings.Join(names, ", "))))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")

	help := "enter: stage/unstage file • tab: load staged files • x: clear staged • q: quit"
	if len(m.staged) == 0 && m.session.Len() > 0 {
		help = "enter: stage file • tab: back to files • q: quit"
	}
	s.WriteString(HelpStyle.Render(help))

	return s.String()
}

func (m Model) viewLoading() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Loading..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Parsing %d file(s)...", len(m.staged)))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewFileList() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Upload & Merge"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d file(s) • %d row(s) • %d distinct header(s)",
		m.session.Len(), m.session.RowCount(), len(m.session.HeaderUniverse()))))
	s.WriteString("\n\n")

	files := m.session.Files()
	if len(files) == 0 {
		s.WriteString(UnselectedStyle.Render("No files loaded. Press a to add some."))
		s.WriteString("\n")
	}

	for i, f := range files {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}

		line := fmt.Sprintf("%s %s  (%s, %d rows, %d columns)", cursor, f.Name, humanize.Bytes(uint64(f.Size)), len(f.Rows), len(f.Headers))
		if m.cursor == i {
			line = SelectedStyle.Render(line)
		} else {
			line = UnselectedStyle.Render(line)
		}

		s.WriteString(line)
		s.WriteString("\n")
	}

	if m.notice != "" {
		s.WriteString("\n")
		s.WriteString(SuccessStyle.Render(m.notice))
		s.WriteString("\n")
	}

	if !m.opts.OracleReady {
		s.WriteString("\n")
		s.WriteString(WarningStyle.Render("No GEMINI_API_KEY set: smart merge will fall back to exact matching."))
		s.WriteString("\n")
	}

	help := "↑/↓: navigate • d: remove • a: add files • s: simple merge (exact match) • m: smart merge (AI) • q: quit"
	if m.session.Merged() != nil {
		help += " • p: preview"
	}
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render(help))

	return BoxStyle.Render(s.String())
}

func (m Model) viewWorking() string {
	var s strings.Builder

	if m.state == stateExporting {
		s.WriteString(TitleStyle.Render("▦ Exporting..."))
		s.WriteString("\n\n")
		s.WriteString(m.spinner.View() + " Writing merged file...")
		return BoxStyle.Render(s.String())
	}

	s.WriteString(TitleStyle.Render("▦ Merging..."))
	s.WriteString("\n\n")
	if m.strategy == types.StrategySemantic {
		s.WriteString(m.spinner.View() + " Matching similar headers with AI...")
	} else {
		s.WriteString(m.spinner.View() + " Matching identical headers...")
	}

	return BoxStyle.Render(s.String())
}

func (m Model) viewPreview() string {
	res := m.session.Merged()
	if res == nil {
		return ""
	}

	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Merged Result"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Total Rows: %d • Columns: %d • Showing first %d • %s merge",
		len(res.Rows), len(res.Schema.StandardHeaders), min(len(res.Rows), previewRows), res.Strategy)))
	s.WriteString("\n")

	if res.Warning != "" {
		s.WriteString(WarningStyle.Render("⚠ " + res.Warning))
		s.WriteString("\n")
	}
	if res.Collisions > 0 {
		s.WriteString(WarningStyle.Render(fmt.Sprintf("⚠ %d cell(s) had more than one matching column; the rightmost value was kept", res.Collisions)))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.table.View())
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: scroll • e: export xlsx • c: export csv • b: back to files • q: quit"))

	return s.String()
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Export Complete!"))
	s.WriteString("\n\n")

	// Truncate paths if they're too long
	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	outputPath := truncatePath(m.export.OutputFile, maxPathLen)
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s\n", outputPath)))
	if m.export.MappingFile != "" {
		s.WriteString(fmt.Sprintf("Mapping: %s\n", truncatePath(m.export.MappingFile, maxPathLen)))
	}
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(m.export.Columns, ", ")))
	s.WriteString(fmt.Sprintf("Rows written: %d\n", m.export.RowsWritten))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("enter: back to preview • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("enter: continue • q: quit"))

	return BoxStyle.Render(s.String())
}

func truncatePath(path string, maxLen int) string {
	if len(path) > maxLen {
		return "..." + path[len(path)-maxLen+3:]
	}
	return path
}
