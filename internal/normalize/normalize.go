// Package normalize reconciles the headers of several source files into one
// schema.
//
// A HeaderClassifier turns a deduplicated header list into a SchemaMapping.
// IdentityClassifier maps every header to itself and cannot fail. A remote
// classifier may fail at any time, so the Normalizer always reaches it
// through a FallbackClassifier that substitutes the identity result and
// records that the mapping was degraded.
package normalize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nconklindev/sheetmerge/internal/types"
)

// DegradedWarning is shown when semantic mapping fell back to identity.
const DegradedWarning = "AI mapping failed. Falling back to direct text matching."

// HeaderClassifier builds a schema mapping for a non-empty, deduplicated
// header list.
type HeaderClassifier interface {
	Classify(ctx context.Context, headers []string) (types.SchemaMapping, error)
}

// IdentityClassifier maps every header to itself in first-seen order.
type IdentityClassifier struct{}

func (IdentityClassifier) Classify(_ context.Context, headers []string) (types.SchemaMapping, error) {
	return Identity(headers), nil
}

// Identity returns the identity schema for headers. Duplicates are dropped.
func Identity(headers []string) types.SchemaMapping {
	standard := Dedupe(headers)
	mapping := make(map[string]string, len(standard))
	for _, h := range standard {
		mapping[h] = h
	}
	return types.SchemaMapping{StandardHeaders: standard, Mapping: mapping}
}

// Dedupe removes repeated headers, keeping the first occurrence.
func Dedupe(headers []string) []string {
	seen := make(map[string]bool, len(headers))
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// Resolution is the outcome of a classification that may have degraded.
type Resolution struct {
	Schema   types.SchemaMapping
	Degraded bool
	Cause    error
}

// FallbackClassifier tries Primary and substitutes Fallback on any error.
type FallbackClassifier struct {
	Primary  HeaderClassifier
	Fallback HeaderClassifier
	Logger   *slog.Logger
}

func NewFallbackClassifier(primary HeaderClassifier, logger *slog.Logger) FallbackClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return FallbackClassifier{Primary: primary, Fallback: IdentityClassifier{}, Logger: logger}
}

func (c FallbackClassifier) Classify(ctx context.Context, headers []string) (types.SchemaMapping, error) {
	res, err := c.Resolve(ctx, headers)
	return res.Schema, err
}

// Resolve runs the primary classifier and reports whether the fallback
// result was used. It only returns an error when the fallback fails too.
func (c FallbackClassifier) Resolve(ctx context.Context, headers []string) (Resolution, error) {
	if c.Primary != nil {
		schema, err := c.Primary.Classify(ctx, headers)
		if err == nil {
			return Resolution{Schema: schema}, nil
		}
		c.logger().Warn("header classification degraded to fallback", "headers", len(headers), "err", err)
		return c.fallback(ctx, headers, err)
	}
	return c.fallback(ctx, headers, fmt.Errorf("no primary classifier configured"))
}

func (c FallbackClassifier) fallback(ctx context.Context, headers []string, cause error) (Resolution, error) {
	fb := c.Fallback
	if fb == nil {
		fb = IdentityClassifier{}
	}
	schema, err := fb.Classify(ctx, headers)
	if err != nil {
		return Resolution{}, fmt.Errorf("fallback classifier: %w (primary: %v)", err, cause)
	}
	return Resolution{Schema: schema, Degraded: true, Cause: cause}, nil
}

func (c FallbackClassifier) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Result is a normalized schema plus the warning to show, if any.
type Result struct {
	Schema   types.SchemaMapping
	Degraded bool
	Warning  string
}

// Normalizer picks the classifier for a strategy.
type Normalizer struct {
	semantic FallbackClassifier
	logger   *slog.Logger
}

// New builds a Normalizer. oracle may be nil, in which case every semantic
// request degrades to identity.
func New(oracle HeaderClassifier, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		semantic: NewFallbackClassifier(oracle, logger),
		logger:   logger,
	}
}

// Normalize maps the header universe under strategy. An empty universe
// yields an empty schema without consulting any classifier.
func (n *Normalizer) Normalize(ctx context.Context, universe []string, strategy types.Strategy) (Result, error) {
	headers := Dedupe(universe)
	if len(headers) == 0 {
		return Result{Schema: types.SchemaMapping{StandardHeaders: []string{}, Mapping: map[string]string{}}}, nil
	}

	var out Result
	if strategy == types.StrategySemantic {
		res, err := n.semantic.Resolve(ctx, headers)
		if err != nil {
			return Result{}, err
		}
		out = Result{Schema: res.Schema, Degraded: res.Degraded}
		if res.Degraded {
			out.Warning = DegradedWarning
		}
	} else {
		out = Result{Schema: Identity(headers)}
	}

	n.logger.Info("headers normalized",
		"strategy", strategy.String(),
		"headers", len(headers),
		"standard", len(out.Schema.StandardHeaders),
		"degraded", out.Degraded,
	)
	return out, nil
}
