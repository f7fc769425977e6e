package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/nconklindev/sheetmerge/internal/types"

	"golang.org/x/sync/errgroup"
)

// RowSource parses one upload into a source file.
type RowSource interface {
	Parse(up types.Upload) (types.SourceFile, error)
}

// Loader parses upload batches concurrently.
type Loader struct {
	Source RowSource
	// Workers limits concurrent parses. Zero or less means no limit.
	Workers int
	Logger  *slog.Logger
	// Progress, when set, receives the fraction of settled files.
	Progress chan<- float64
}

// LoadBatch parses every upload and returns them in input order. Files
// are admitted all together or not at all: if any upload fails, the whole
// batch is discarded and the returned error joins every failure.
func (l Loader) LoadBatch(ctx context.Context, uploads []types.Upload) ([]types.SourceFile, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parsed := make([]types.SourceFile, len(uploads))
	failures := make([]error, len(uploads))
	var settled atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}

	for i, up := range uploads {
		g.Go(func() error {
			defer l.report(&settled, len(uploads))

			if err := ctx.Err(); err != nil {
				failures[i] = fmt.Errorf("parse %s: %w", up.Name, err)
				return nil
			}

			file, err := l.Source.Parse(up)
			if err != nil {
				logger.Warn("file rejected", "file", up.Name, "err", err)
				failures[i] = err
				return nil
			}

			logger.Debug("file parsed", "file", up.Name, "headers", len(file.Headers), "rows", len(file.Rows))
			parsed[i] = file
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(failures...); err != nil {
		return nil, err
	}
	return parsed, nil
}

func (l Loader) report(settled *atomic.Int64, total int) {
	n := settled.Add(1)
	if l.Progress == nil || total == 0 {
		return
	}
	select {
	case l.Progress <- float64(n) / float64(total):
	default:
	}
}

// ReadUploads reads files from disk into uploads.
func ReadUploads(paths []string) ([]types.Upload, error) {
	uploads := make([]types.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		uploads = append(uploads, types.Upload{
			Name: filepath.Base(path),
			Size: int64(len(data)),
			Data: data,
		})
	}
	return uploads, nil
}
