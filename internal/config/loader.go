package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables, applying defaults
// and validating the result. Variables in envFiles are loaded first
// without overriding the environment; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	// godotenv.Load never overrides variables already set in the process
	for _, name := range envFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config load %s: %w", name, err)
		}
	}

	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into the per-concern sections
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate (GEMINI_API_KEY, then API_KEY)
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}
		// Apply default if not set
		if value == "" {
			value = defaultVal
		}

		// No value and no default leaves the zero value, e.g. an empty API key
		if value == "" {
			continue
		}

		// Set the field value

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Oracle validation. A missing API key is not an error here: smart
	// merges degrade to exact matching instead.
	if c.Oracle.Model == "" {
		errs = append(errs, "SHEETMERGE_MODEL must not be empty")
	}
	if c.Oracle.Timeout < 0 {
		errs = append(errs, "SHEETMERGE_ORACLE_TIMEOUT must be non-negative")
	}

	// Upload validation
	if c.Upload.Workers <= 0 {
		errs = append(errs, "SHEETMERGE_PARSE_WORKERS must be positive")
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "SHEETMERGE_MAX_FILE_SIZE must be positive")
	}

	// Excel limits sheet names to 31 characters without []:*?/\
	if n := len([]rune(c.Export.SheetName)); n == 0 || n > 31 || strings.ContainsAny(c.Export.SheetName, `[]:*?/\`) {
		errs = append(errs, fmt.Sprintf("SHEETMERGE_SHEET_NAME (%q) must be 1-31 characters without []:*?/\\", c.Export.SheetName))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a representation safe for logging; the API key is masked.
func (c *Config) String() string {
	key := "[UNSET]"
	if c.Oracle.APIKey != "" {
		key = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Oracle: {APIKey: %s, Model: %q, Timeout: %s}, ", key, c.Oracle.Model, c.Oracle.Timeout)
	fmt.Fprintf(&b, "Upload: {Workers: %d, MaxFileSize: %d}, ", c.Upload.Workers, c.Upload.MaxFileSize)
	fmt.Fprintf(&b, "Export: {SheetName: %q, OutputDir: %q, IncludeSource: %v, WriteMapping: %v}, ",
		c.Export.SheetName, c.Export.OutputDir, c.Export.IncludeSource, c.Export.WriteMapping)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
