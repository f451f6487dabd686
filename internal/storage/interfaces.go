// Package storage defines the persistence interfaces consumed by the
// services. Implementations live in the memory and sqlstore subpackages.
package storage

import (
	"context"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// DrawStore persists historical draws.
type DrawStore interface {
	InsertDraw(ctx context.Context, d draw.Draw) (draw.Draw, error)
	BulkInsertDraws(ctx context.Context, ds []draw.Draw) (int, error)
	GetDrawByNumber(ctx context.Context, drawNumber int) (draw.Draw, error)
	ListDraws(ctx context.Context, f draw.Filter) ([]draw.Draw, error)
	CountDraws(ctx context.Context, f draw.Filter) (int, error)
	LatestDraws(ctx context.Context, limit int) ([]draw.Draw, error)
	MaxDrawNumber(ctx context.Context) (int, error)
}

// ImportRunStore persists the record of ingestion runs.
type ImportRunStore interface {
	RecordImportRun(ctx context.Context, run draw.ImportRun) (draw.ImportRun, error)
	ListImportRuns(ctx context.Context, limit int) ([]draw.ImportRun, error)
}
