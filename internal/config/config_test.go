package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	for _, name := range []string{
		"GEMINI_API_KEY", "API_KEY", "SHEETMERGE_MODEL", "SHEETMERGE_ORACLE_URL",
		"SHEETMERGE_ORACLE_TIMEOUT", "SHEETMERGE_PARSE_WORKERS", "SHEETMERGE_MAX_FILE_SIZE",
		"SHEETMERGE_SHEET_NAME", "SHEETMERGE_OUTPUT_DIR", "SHEETMERGE_INCLUDE_SOURCE",
		"SHEETMERGE_WRITE_MAPPING", "LOG_LEVEL", "LOG_FORMAT", "SHEETMERGE_LOG_FILE",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Oracle.APIKey != "" {
		t.Errorf("Oracle.APIKey = %q, want empty", cfg.Oracle.APIKey)
	}
	if cfg.Oracle.Model != "gemini-2.5-flash" {
		t.Errorf("Oracle.Model = %q, want %q", cfg.Oracle.Model, "gemini-2.5-flash")
	}
	if cfg.Oracle.Timeout != 0 {
		t.Errorf("Oracle.Timeout = %v, want 0", cfg.Oracle.Timeout)
	}
	if cfg.Upload.Workers != 4 {
		t.Errorf("Upload.Workers = %d, want %d", cfg.Upload.Workers, 4)
	}
	if cfg.Upload.MaxFileSize != 52428800 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 52428800)
	}
	if cfg.Export.SheetName != "Merged Data" {
		t.Errorf("Export.SheetName = %q, want %q", cfg.Export.SheetName, "Merged Data")
	}
	if cfg.Export.IncludeSource {
		t.Error("Export.IncludeSource = true, want false")
	}
	if !cfg.Export.WriteMapping {
		t.Error("Export.WriteMapping = false, want true")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "alt-key")
	t.Setenv("SHEETMERGE_ORACLE_TIMEOUT", "20s")
	t.Setenv("SHEETMERGE_PARSE_WORKERS", "8")
	t.Setenv("SHEETMERGE_INCLUDE_SOURCE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Oracle.APIKey != "alt-key" {
		t.Errorf("Oracle.APIKey = %q, want value from API_KEY", cfg.Oracle.APIKey)
	}
	if cfg.Oracle.Timeout != 20*time.Second {
		t.Errorf("Oracle.Timeout = %v, want %v", cfg.Oracle.Timeout, 20*time.Second)
	}
	if cfg.Upload.Workers != 8 {
		t.Errorf("Upload.Workers = %d, want %d", cfg.Upload.Workers, 8)
	}
	if !cfg.Export.IncludeSource {
		t.Error("Export.IncludeSource = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_PrimaryKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("API_KEY", "alt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Oracle.APIKey != "primary" {
		t.Errorf("Oracle.APIKey = %q, want %q", cfg.Oracle.APIKey, "primary")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("SHEETMERGE_MODEL")
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("SHEETMERGE_MODEL=gemini-2.5-pro\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envFile, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Oracle.Model != "gemini-2.5-pro" {
		t.Errorf("Oracle.Model = %q, want value from .env", cfg.Oracle.Model)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"Bad integer", "SHEETMERGE_PARSE_WORKERS", "many"},
		{"Zero workers", "SHEETMERGE_PARSE_WORKERS", "0"},
		{"Bad duration", "SHEETMERGE_ORACLE_TIMEOUT", "soon"},
		{"Bad boolean", "SHEETMERGE_INCLUDE_SOURCE", "maybe"},
		{"Bad log level", "LOG_LEVEL", "verbose"},
		{"Bad log format", "LOG_FORMAT", "xml"},
		{"Long sheet name", "SHEETMERGE_SHEET_NAME", strings.Repeat("x", 32)},
		{"Sheet name with slash", "SHEETMERGE_SHEET_NAME", "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q error = nil", tt.key, tt.value)
			}
		})
	}
}

func TestString_MasksAPIKey(t *testing.T) {
	cfg := &Config{Oracle: OracleConfig{APIKey: "super-secret"}}
	if s := cfg.String(); strings.Contains(s, "super-secret") || !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s; want masked key", s)
	}
}
