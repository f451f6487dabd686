package ingestion

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/metrics"
	"github.com/lotterylab/lotterylab/internal/storage"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Stats summarizes one import.
type Stats struct {
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
	MaxBefore int `json:"max_existing"`
}

// Service imports parsed feed lines into storage.
type Service struct {
	store    storage.DrawStore
	runs     storage.ImportRunStore
	fetcher  *Fetcher
	metrics  *metrics.Metrics
	provider string
	log      *logger.Logger
}

// New creates the ingestion service. fetcher and m may be nil; without a
// fetcher only file and in-process imports are available.
func New(store storage.DrawStore, runs storage.ImportRunStore, fetcher *Fetcher, m *metrics.Metrics, provider string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ingestion")
	}
	return &Service{
		store:    store,
		runs:     runs,
		fetcher:  fetcher,
		metrics:  m,
		provider: provider,
		log:      log,
	}
}

// ImportLines writes the new draws from a parsed feed into storage. Draws at
// or below the current high-water mark are skipped, as are lines that fail
// validation. The first draw of each calendar date is the main game; any
// further draw on the same date is the plus game.
func (s *Service) ImportLines(ctx context.Context, lines []ParsedLine) (Stats, error) {
	maxBefore, err := s.store.MaxDrawNumber(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read high-water mark: %w", err)
	}
	stats := Stats{MaxBefore: maxBefore}

	sorted := make([]ParsedLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DrawNumber < sorted[j].DrawNumber })

	// Game type depends on position within the date across the whole feed,
	// so it is assigned before the high-water mark filter.
	seenDates := make(map[string]bool)
	var batch []draw.Draw
	for _, line := range sorted {
		gameType := "lotto"
		dateKey := line.Date.String()
		if seenDates[dateKey] {
			gameType = "lotto_plus"
		}
		seenDates[dateKey] = true

		if line.DrawNumber <= maxBefore {
			stats.Skipped++
			continue
		}
		if err := Validate(line); err != nil {
			s.log.WithError(err).Warn("skipping invalid feed line")
			stats.Skipped++
			continue
		}

		batch = append(batch, draw.Draw{
			DrawNumber:   line.DrawNumber,
			DrawDate:     line.Date,
			GameType:     draw.NormalizeGameType(gameType),
			GameProvider: s.provider,
			Numbers:      draw.SortedCopy(line.Numbers),
		})
	}

	inserted, err := s.store.BulkInsertDraws(ctx, batch)
	stats.Inserted = inserted
	if err != nil {
		return stats, fmt.Errorf("insert draws: %w", err)
	}
	return stats, nil
}

// ImportFile imports a feed snapshot from disk.
func (s *Service) ImportFile(ctx context.Context, path string) (Stats, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, err
	}

	lines, malformed := ParseFeed(decodeFeed(body))
	stats, err := s.ImportLines(ctx, lines)
	stats.Skipped += malformed
	if err != nil {
		return stats, err
	}

	if _, err := s.runs.RecordImportRun(ctx, draw.ImportRun{
		SourceURL: "file://" + path,
		Inserted:  stats.Inserted,
		Skipped:   stats.Skipped,
		MaxBefore: stats.MaxBefore,
	}); err != nil {
		s.log.WithError(err).Warn("failed to record import run")
	}
	return stats, nil
}

// UpdateFromFeed downloads the remote feed and imports any new draws. When
// the download is byte-identical to the newest archived snapshot and the
// database is not empty, the parse is skipped entirely.
func (s *Service) UpdateFromFeed(ctx context.Context) (Stats, error) {
	if s.fetcher == nil {
		return Stats{}, fmt.Errorf("no feed source configured")
	}

	start := time.Now()
	res, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveFetchFailure()
		}
		return Stats{}, err
	}

	var stats Stats
	if res.Unchanged {
		max, err := s.store.MaxDrawNumber(ctx)
		if err != nil {
			return Stats{}, err
		}
		if max > 0 {
			s.log.WithField("sha256", res.SHA256).Info("feed unchanged, nothing to import")
			stats.MaxBefore = max
			s.finishUpdate(ctx, res, stats, start)
			return stats, nil
		}
	}

	lines, malformed := ParseFeed(res.Text)
	stats, err = s.ImportLines(ctx, lines)
	stats.Skipped += malformed
	if err != nil {
		return stats, err
	}

	s.finishUpdate(ctx, res, stats, start)
	s.log.WithField("inserted", stats.Inserted).
		WithField("skipped", stats.Skipped).
		Info("feed update complete")
	return stats, nil
}

func (s *Service) finishUpdate(ctx context.Context, res FetchResult, stats Stats, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveIngest(stats.Inserted, stats.Skipped, time.Since(start))
	}
	if _, err := s.runs.RecordImportRun(ctx, draw.ImportRun{
		SourceURL:   s.fetcher.sourceURL,
		SHA256:      res.SHA256,
		ArchiveFile: res.ArchiveFile,
		Inserted:    stats.Inserted,
		Skipped:     stats.Skipped,
		MaxBefore:   stats.MaxBefore,
	}); err != nil {
		s.log.WithError(err).Warn("failed to record import run")
	}
}
