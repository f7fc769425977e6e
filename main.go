package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nconklindev/sheetmerge/internal/config"
	"github.com/nconklindev/sheetmerge/internal/logging"
	"github.com/nconklindev/sheetmerge/internal/normalize"
	"github.com/nconklindev/sheetmerge/internal/oracle"
	"github.com/nconklindev/sheetmerge/internal/session"
	"github.com/nconklindev/sheetmerge/internal/sheets"
	"github.com/nconklindev/sheetmerge/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("sheetmerge %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("starting sheetmerge", "version", version, "config", cfg.String())

	client := oracle.New(oracle.Options{
		APIKey:  cfg.Oracle.APIKey,
		Model:   cfg.Oracle.Model,
		BaseURL: cfg.Oracle.BaseURL,
		Timeout: cfg.Oracle.Timeout,
	}, logger)

	model := ui.InitialModel(ui.Options{
		Loader: session.Loader{
			Source:  sheets.Reader{MaxFileSize: cfg.Upload.MaxFileSize},
			Workers: cfg.Upload.Workers,
			Logger:  logger,
		},
		Normalizer: normalize.New(client, logger),
		Export: sheets.ExportOptions{
			SheetName:     cfg.Export.SheetName,
			IncludeSource: cfg.Export.IncludeSource,
			WriteMapping:  cfg.Export.WriteMapping,
		},
		OutputDir:   cfg.Export.OutputDir,
		OracleReady: cfg.Oracle.APIKey != "",
		Logger:      logger,
		Preload:     os.Args[1:],
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Error("program exited", "error", err)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger sends logs to the configured file. A file that cannot be
// opened disables logging rather than writing over the UI.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	f, err := logging.OpenFile(cfg.File)
	if err != nil {
		return logging.Discard()
	}
	// The file stays open for the life of the process.
	return logging.Setup(cfg.Level, cfg.Format, f)
}
