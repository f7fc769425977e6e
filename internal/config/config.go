// Package config loads settings from environment variables, optionally
// seeded from a .env file.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Oracle  OracleConfig
	Upload  UploadConfig
	Export  ExportConfig
	Logging LoggingConfig
}

// OracleConfig holds the semantic header classifier settings.
type OracleConfig struct {
	// APIKey is the Gemini credential. Leaving it empty is allowed; smart
	// merges then fall back to exact matching.
	APIKey string `env:"GEMINI_API_KEY" envAlt:"API_KEY"`

	// Model is the Gemini model name (default: gemini-2.5-flash)
	Model string `env:"SHEETMERGE_MODEL" default:"gemini-2.5-flash"`

	// BaseURL is the Generative Language API host; the client adds the
	// API version (default: https://generativelanguage.googleapis.com/)
	BaseURL string `env:"SHEETMERGE_ORACLE_URL" default:"https://generativelanguage.googleapis.com/"`

	// Timeout bounds one oracle call; 0 waits indefinitely (default: 0s)
	Timeout time.Duration `env:"SHEETMERGE_ORACLE_TIMEOUT" default:"0s"`
}

// UploadConfig holds file loading settings.
type UploadConfig struct {
	// Workers is the number of files parsed concurrently (default: 4)
	Workers int `env:"SHEETMERGE_PARSE_WORKERS" default:"4"`

	// MaxFileSize is the largest accepted file in bytes (default: 50MB)
	MaxFileSize int64 `env:"SHEETMERGE_MAX_FILE_SIZE" default:"52428800"`
}

// ExportConfig holds merged output settings.
type ExportConfig struct {
	// SheetName names the single output sheet (default: Merged Data)
	SheetName string `env:"SHEETMERGE_SHEET_NAME" default:"Merged Data"`

	// OutputDir is where exports are written (default: current directory)
	OutputDir string `env:"SHEETMERGE_OUTPUT_DIR" default:"."`

	// IncludeSource adds a "Source File" column (default: false)
	IncludeSource bool `env:"SHEETMERGE_INCLUDE_SOURCE" default:"false"`

	// WriteMapping saves a YAML mapping report next to exports (default: true)
	WriteMapping bool `env:"SHEETMERGE_WRITE_MAPPING" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File receives log output since the terminal belongs to the UI.
	// Empty means sheetmerge.log in the OS temp directory.
	File string `env:"SHEETMERGE_LOG_FILE"`
}
