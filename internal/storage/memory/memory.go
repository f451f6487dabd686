// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/storage"
)

// Store is the in-memory implementation of DrawStore and ImportRunStore.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	nextRunID  int64
	draws      map[int]draw.Draw // keyed by draw number
	importRuns []draw.ImportRun
}

var _ storage.DrawStore = (*Store)(nil)
var _ storage.ImportRunStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:    1,
		nextRunID: 1,
		draws:     make(map[int]draw.Draw),
	}
}

// DrawStore implementation ---------------------------------------------------

func (s *Store) InsertDraw(_ context.Context, d draw.Draw) (draw.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(d)
}

func (s *Store) insertLocked(d draw.Draw) (draw.Draw, error) {
	if _, exists := s.draws[d.DrawNumber]; exists {
		return draw.Draw{}, fmt.Errorf("draw %d already exists", d.DrawNumber)
	}
	d.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Numbers = append([]int(nil), d.Numbers...)
	s.draws[d.DrawNumber] = d
	return d, nil
}

func (s *Store) BulkInsertDraws(_ context.Context, ds []draw.Draw) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, d := range ds {
		if _, err := s.insertLocked(d); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (s *Store) GetDrawByNumber(_ context.Context, drawNumber int) (draw.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.draws[drawNumber]
	if !ok {
		return draw.Draw{}, sql.ErrNoRows
	}
	return d, nil
}

func (s *Store) ListDraws(_ context.Context, f draw.Filter) ([]draw.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filteredLocked(f)
	sortDrawsDesc(matched)

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Store) CountDraws(_ context.Context, f draw.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filteredLocked(f)), nil
}

func (s *Store) LatestDraws(_ context.Context, limit int) ([]draw.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]draw.Draw, 0, len(s.draws))
	for _, d := range s.draws {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].DrawNumber > all[j].DrawNumber
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) MaxDrawNumber(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for number := range s.draws {
		if number > max {
			max = number
		}
	}
	return max, nil
}

func (s *Store) filteredLocked(f draw.Filter) []draw.Draw {
	var matched []draw.Draw
	for _, d := range s.draws {
		if f.GameType != "" && d.GameType != f.GameType {
			continue
		}
		if f.GameProvider != "" && d.GameProvider != f.GameProvider {
			continue
		}
		if f.DateFrom != nil && d.DrawDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && d.DrawDate.After(*f.DateTo) {
			continue
		}
		matched = append(matched, d)
	}
	return matched
}

func sortDrawsDesc(ds []draw.Draw) {
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].DrawDate.Equal(ds[j].DrawDate.Time) {
			return ds[i].DrawDate.After(ds[j].DrawDate)
		}
		return ds[i].DrawNumber > ds[j].DrawNumber
	})
}

// ImportRunStore implementation ----------------------------------------------

func (s *Store) RecordImportRun(_ context.Context, run draw.ImportRun) (draw.ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = s.nextRunID
	s.nextRunID++
	run.CreatedAt = time.Now().UTC()
	s.importRuns = append(s.importRuns, run)
	return run, nil
}

func (s *Store) ListImportRuns(_ context.Context, limit int) ([]draw.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]draw.ImportRun, len(s.importRuns))
	copy(runs, s.importRuns)
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
