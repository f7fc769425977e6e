package session

import (
	"context"
	"log/slog"

	"github.com/nconklindev/sheetmerge/internal/merge"
	"github.com/nconklindev/sheetmerge/internal/normalize"
	"github.com/nconklindev/sheetmerge/internal/types"
)

// Merge normalizes the headers of s and merges its rows. The result is
// stamped with the generation of s; pass it to WithResult on the current
// session to keep it.
//
// Oracle failures never surface here: they produce a degraded result with
// a warning instead.
func Merge(ctx context.Context, s Session, n *normalize.Normalizer, strategy types.Strategy, logger *slog.Logger) (*types.MergeResult, error) {
	if s.Len() == 0 {
		return nil, ErrNoFiles
	}
	if logger == nil {
		logger = slog.Default()
	}

	norm, err := n.Normalize(ctx, s.HeaderUniverse(), strategy)
	if err != nil {
		return nil, err
	}

	rows, stats := merge.Rows(s.files, norm.Schema)
	if stats.Collisions > 0 || stats.Dropped > 0 {
		logger.Warn("merge overwrote or dropped cells",
			"collisions", stats.Collisions,
			"dropped", stats.Dropped,
		)
	}
	logger.Info("merge complete",
		"strategy", strategy.String(),
		"files", s.Len(),
		"rows", stats.Rows,
		"columns", len(norm.Schema.StandardHeaders),
		"degraded", norm.Degraded,
	)

	return &types.MergeResult{
		Strategy:   strategy,
		Schema:     norm.Schema,
		Rows:       rows,
		Collisions: stats.Collisions,
		Degraded:   norm.Degraded,
		Warning:    norm.Warning,
		Generation: s.generation,
	}, nil
}
