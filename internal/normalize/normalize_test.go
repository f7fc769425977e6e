package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nconklindev/sheetmerge/internal/types"
)

type stubClassifier struct {
	schema types.SchemaMapping
	err    error
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ []string) (types.SchemaMapping, error) {
	s.calls++
	return s.schema, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"Keeps order", []string{"Name", "Email", "E-mail"}, []string{"Name", "Email", "E-mail"}},
		{"Drops duplicates", []string{"Name", "Email", "Name", "E-mail", "Email"}, []string{"Name", "Email", "E-mail"}},
		{"Empty", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Identity(tt.input)
			if len(got.StandardHeaders) != len(tt.expected) {
				t.Fatalf("StandardHeaders = %v; want %v", got.StandardHeaders, tt.expected)
			}
			for i, h := range tt.expected {
				if got.StandardHeaders[i] != h {
					t.Errorf("StandardHeaders[%d] = %q; want %q", i, got.StandardHeaders[i], h)
				}
				if got.Mapping[h] != h {
					t.Errorf("Mapping[%q] = %q; want %q", h, got.Mapping[h], h)
				}
			}
			if len(got.Mapping) != len(tt.expected) {
				t.Errorf("Mapping has %d entries; want %d", len(got.Mapping), len(tt.expected))
			}
		})
	}
}

func TestIdentityIsIdempotent(t *testing.T) {
	universe := []string{"Name", "Email", "Name", "Phone"}
	first := Identity(universe)
	second := Identity(universe)
	if !first.Equal(second) {
		t.Errorf("Identity() not stable: %v vs %v", first, second)
	}
}

func TestNormalize_EmptyUniverseSkipsOracle(t *testing.T) {
	oracle := &stubClassifier{err: errors.New("should not be called")}
	n := New(oracle, quietLogger())

	for _, strategy := range []types.Strategy{types.StrategyIdentity, types.StrategySemantic} {
		res, err := n.Normalize(context.Background(), nil, strategy)
		if err != nil {
			t.Fatalf("Normalize(%s) error = %v", strategy, err)
		}
		if len(res.Schema.StandardHeaders) != 0 || len(res.Schema.Mapping) != 0 {
			t.Errorf("Normalize(%s) = %v; want empty schema", strategy, res.Schema)
		}
		if res.Degraded {
			t.Errorf("Normalize(%s) degraded on empty input", strategy)
		}
	}
	if oracle.calls != 0 {
		t.Errorf("oracle called %d times; want 0", oracle.calls)
	}
}

func TestNormalize_IdentityStrategyIgnoresOracle(t *testing.T) {
	oracle := &stubClassifier{}
	n := New(oracle, quietLogger())

	res, err := n.Normalize(context.Background(), []string{"Name", "Email"}, types.StrategyIdentity)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle called %d times; want 0", oracle.calls)
	}
	if !res.Schema.Equal(Identity([]string{"Name", "Email"})) {
		t.Errorf("Schema = %v; want identity", res.Schema)
	}
}

func TestNormalize_SemanticSuccess(t *testing.T) {
	want := types.SchemaMapping{
		StandardHeaders: []string{"Name", "Email"},
		Mapping:         map[string]string{"Name": "Name", "Email": "Email", "E-mail": "Email"},
	}
	oracle := &stubClassifier{schema: want}
	n := New(oracle, quietLogger())

	res, err := n.Normalize(context.Background(), []string{"Name", "Email", "Name", "E-mail"}, types.StrategySemantic)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Degraded || res.Warning != "" {
		t.Errorf("Degraded = %v, Warning = %q; want clean success", res.Degraded, res.Warning)
	}
	if !res.Schema.Equal(want) {
		t.Errorf("Schema = %v; want %v", res.Schema, want)
	}
	if oracle.calls != 1 {
		t.Errorf("oracle called %d times; want 1", oracle.calls)
	}
}

func TestNormalize_OracleFailureFallsBackToIdentity(t *testing.T) {
	universe := []string{"Name", "Email", "Name", "E-mail"}

	tests := []struct {
		name   string
		oracle HeaderClassifier
	}{
		{"Network error", &stubClassifier{err: errors.New("dial tcp: connection refused")}},
		{"No oracle configured", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(tt.oracle, quietLogger())
			res, err := n.Normalize(context.Background(), universe, types.StrategySemantic)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !res.Degraded {
				t.Error("Degraded = false; want true")
			}
			if res.Warning != DegradedWarning {
				t.Errorf("Warning = %q; want %q", res.Warning, DegradedWarning)
			}
			if !res.Schema.Equal(Identity(universe)) {
				t.Errorf("Schema = %v; want identity %v", res.Schema, Identity(universe))
			}
		})
	}
}

func TestFallbackClassifier_ReportsCause(t *testing.T) {
	cause := errors.New("missing credential")
	fc := NewFallbackClassifier(&stubClassifier{err: cause}, quietLogger())

	res, err := fc.Resolve(context.Background(), []string{"A"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !errors.Is(res.Cause, cause) {
		t.Errorf("Cause = %v; want %v", res.Cause, cause)
	}

	schema, err := fc.Classify(context.Background(), []string{"A"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if schema.Mapping["A"] != "A" {
		t.Errorf("Classify() mapping = %v; want identity", schema.Mapping)
	}
}

func TestFallbackClassifier_FallbackFailure(t *testing.T) {
	fc := FallbackClassifier{
		Primary:  &stubClassifier{err: errors.New("primary down")},
		Fallback: &stubClassifier{err: errors.New("fallback down")},
		Logger:   quietLogger(),
	}
	if _, err := fc.Resolve(context.Background(), []string{"A"}); err == nil {
		t.Error("Resolve() error = nil; want error when both classifiers fail")
	}
}

func TestNormalize_LogsEveryStrategy(t *testing.T) {
	tests := []struct {
		strategy     types.Strategy
		wantDegraded bool
	}{
		{types.StrategyIdentity, false},
		{types.StrategySemantic, true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			n := New(&stubClassifier{err: errors.New("offline")}, logger)

			if _, err := n.Normalize(context.Background(), []string{"Name", "Email"}, tt.strategy); err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}

			var entry map[string]any
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var e map[string]any
				if err := json.Unmarshal([]byte(line), &e); err == nil && e["msg"] == "headers normalized" {
					entry = e
				}
			}
			if entry == nil {
				t.Fatalf("no headers normalized entry in %q", buf.String())
			}
			if entry["strategy"] != tt.strategy.String() {
				t.Errorf("strategy = %v; want %s", entry["strategy"], tt.strategy)
			}
			if entry["standard"] != float64(2) {
				t.Errorf("standard = %v; want 2", entry["standard"])
			}
			if entry["degraded"] != tt.wantDegraded {
				t.Errorf("degraded = %v; want %v", entry["degraded"], tt.wantDegraded)
			}
		})
	}
}
