// Package oracle classifies spreadsheet headers with a Gemini model.
//
// The Client makes one generateContent call per Classify and validates the
// structured answer before it is used as a schema. Nothing is retried;
// callers are expected to fall back on any error.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nconklindev/sheetmerge/internal/types"

	"google.golang.org/genai"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion = "v1beta"
	DefaultModel      = "gemini-2.5-flash"
)

var (
	ErrMissingCredential = errors.New("oracle API key is missing")
	ErrInvalidResponse   = errors.New("invalid oracle response")
)

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds a single call. Zero means no timeout.
	Timeout time.Duration
}

// Client is a stateless header classifier backed by the Gemini API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// Classify asks the model to group synonymous headers and returns the
// validated schema. headers must be deduplicated and non-empty.
func (c *Client) Classify(ctx context.Context, headers []string) (types.SchemaMapping, error) {
	if c.apiKey == "" {
		return types.SchemaMapping{}, ErrMissingCredential
	}
	if len(headers) == 0 {
		return types.SchemaMapping{}, fmt.Errorf("%w: no headers requested", ErrInvalidResponse)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: c.timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.baseURL,
			APIVersion: DefaultAPIVersion,
		},
	})
	if err != nil {
		return types.SchemaMapping{}, fmt.Errorf("create oracle client: %w", err)
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(buildPrompt(headers)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return types.SchemaMapping{}, fmt.Errorf("oracle request: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return types.SchemaMapping{}, fmt.Errorf("%w: empty candidate", ErrInvalidResponse)
	}

	var answer recommendation
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return types.SchemaMapping{}, fmt.Errorf("%w: decode recommendation: %v", ErrInvalidResponse, err)
	}

	mapping, err := validate(headers, answer)
	if err != nil {
		return types.SchemaMapping{}, err
	}

	c.logger.Debug("oracle classified headers",
		"model", c.model,
		"headers", len(headers),
		"standard", len(mapping.StandardHeaders),
		"elapsed", time.Since(start),
	)
	return mapping, nil
}

func buildPrompt(headers []string) string {
	list, _ := json.Marshal(headers)

	var s strings.Builder
	s.WriteString("You are a data processing expert. I have a list of column headers collected from multiple Excel files that need to be merged.\n\n")
	s.WriteString("Many headers represent the same concept but are named differently (e.g., \"Email\", \"E-mail Address\", \"Mail\"). Some headers are unique.\n\n")
	s.WriteString("Your task:\n")
	s.WriteString("1. Identify the standard, unified column names. Use the most common or professional naming convention (e.g., prefer \"Email\" over \"Mail\").\n")
	s.WriteString("2. Map EVERY input header to one of these standard headers.\n\n")
	s.WriteString("Input Headers:\n")
	s.Write(list)
	return s.String()
}
