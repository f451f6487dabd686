// Package draws exposes read access to the stored draw history.
package draws

import (
	"context"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/storage"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Service answers queries over the draw history.
type Service struct {
	store storage.DrawStore
	runs  storage.ImportRunStore
	log   *logger.Logger
}

// New creates the draw query service.
func New(store storage.DrawStore, runs storage.ImportRunStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("draws")
	}
	return &Service{store: store, runs: runs, log: log}
}

// Page is one page of draws together with the total match count.
type Page struct {
	Draws  []draw.Draw `json:"draws"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// Page size bounds for List.
const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// List returns a page of draws matching the filter, newest first. The game
// type filter accepts display labels and is reduced to the stored slug.
func (s *Service) List(ctx context.Context, f draw.Filter) (Page, error) {
	f.GameType = draw.NormalizeGameType(f.GameType)
	if f.Limit <= 0 || f.Limit > maxPageLimit {
		f.Limit = defaultPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	total, err := s.store.CountDraws(ctx, f)
	if err != nil {
		return Page{}, err
	}
	ds, err := s.store.ListDraws(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Draws: ds, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Get returns a single draw by its draw number.
func (s *Service) Get(ctx context.Context, drawNumber int) (draw.Draw, error) {
	return s.store.GetDrawByNumber(ctx, drawNumber)
}

// Latest returns the most recent draws by draw number.
func (s *Service) Latest(ctx context.Context, limit int) ([]draw.Draw, error) {
	return s.store.LatestDraws(ctx, limit)
}

// ImportHistory returns the most recent ingestion runs.
func (s *Service) ImportHistory(ctx context.Context, limit int) ([]draw.ImportRun, error) {
	return s.runs.ListImportRuns(ctx, limit)
}
