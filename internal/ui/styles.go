package ui

import (
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Palette
const (
	colorAccent  = lipgloss.Color("#FF8C42")
	colorAccent2 = lipgloss.Color("#FFB84D")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#FFFFFF")
	colorError   = lipgloss.Color("#FF4757")
	colorWarning = lipgloss.Color("#F59E0B")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1)

	LinkStyle = lipgloss.NewStyle().
			Foreground(colorAccent2).
			Underline(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginBottom(1)

	// SelectedStyle marks the file under the cursor in the file list.
	SelectedStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(colorText)

	// CheckedStyle renders the staged files line in the picker.
	CheckedStyle = lipgloss.NewStyle().
			Foreground(colorAccent2).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	// WarningStyle is used for degraded merges and collision notices.
	WarningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorAccent2).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)
)

// pickerStyles themes the file picker.
func pickerStyles(s filepicker.Styles) filepicker.Styles {
	s.Cursor = lipgloss.NewStyle().Foreground(colorAccent)
	s.Symlink = lipgloss.NewStyle().Foreground(colorAccent2)
	s.Directory = lipgloss.NewStyle().Foreground(colorAccent2)
	s.File = lipgloss.NewStyle().Foreground(colorText)
	s.Permission = lipgloss.NewStyle().Foreground(colorMuted)
	s.Selected = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	s.FileSize = lipgloss.NewStyle().Foreground(colorMuted)
	return s
}

// previewStyles themes the merged data table.
func previewStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(colorAccent)
	s.Selected = s.Selected.
		Foreground(colorText).
		Background(colorAccent).
		Bold(false)
	return s
}
