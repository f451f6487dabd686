package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/storage"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Window sizes per analysis. The heavier pairwise analyses use wider
// windows because their estimates converge slowly.
const (
	randomnessWindow  = 100
	patternsWindow    = 1000
	clustersWindow    = 2000
	correlationWindow = 5000
)

// Minimum draw counts below which an analysis refuses to answer.
const (
	minRandomnessDraws  = 10
	minPatternsDraws    = 10
	minCorrelationDraws = 5
	minClustersDraws    = 20
)

// DefaultCorrelationThreshold is the minimum absolute Pearson coefficient a
// pair must reach to count as significant.
const DefaultCorrelationThreshold = 0.05

// ErrInsufficientData signals that the stored history is too small for the
// requested analysis.
var ErrInsufficientData = errors.New("not enough draws for analysis")

// Query scopes an analysis to a game type, an optional provider and an
// optional date range or trailing window of days.
type Query struct {
	GameType   string
	Provider   string
	WindowDays int
	DateFrom   *draw.Date
	DateTo     *draw.Date
}

// Service computes analyses over the stored draw history.
type Service struct {
	store storage.DrawStore
	log   *logger.Logger
}

// New creates the analysis service.
func New(store storage.DrawStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("analysis")
	}
	return &Service{store: store, log: log}
}

// filterFor translates a Query into a storage filter. An explicit date
// range wins over window_days; a window of N days covers the end date and
// the N-1 days before it.
func filterFor(q Query) draw.Filter {
	f := draw.Filter{GameType: draw.NormalizeGameType(q.GameType), GameProvider: q.Provider}
	if q.DateFrom != nil || q.DateTo != nil {
		f.DateFrom = q.DateFrom
		f.DateTo = q.DateTo
		return f
	}
	if q.WindowDays > 0 {
		to := draw.Today()
		from := to.AddDays(-(q.WindowDays - 1))
		f.DateFrom = &from
		f.DateTo = &to
	}
	return f
}

// scoped returns up to limit of the most recent draws matching the query,
// in chronological order.
func (s *Service) scoped(ctx context.Context, q Query, limit int) ([]draw.Draw, error) {
	f := filterFor(q)
	f.Limit = limit
	ds, err := s.store.ListDraws(ctx, f)
	if err != nil {
		return nil, err
	}
	// ListDraws returns newest first; the sequence tests need draw order.
	for i, j := 0, len(ds)-1; i < j; i, j = i+1, j-1 {
		ds[i], ds[j] = ds[j], ds[i]
	}
	return ds, nil
}

func requireDraws(ds []draw.Draw, min int) error {
	if len(ds) < min {
		return fmt.Errorf("%w: need %d draws, have %d", ErrInsufficientData, min, len(ds))
	}
	return nil
}

// Frequency returns the frequency table for the query scope.
func (s *Service) Frequency(ctx context.Context, q Query) (FrequencyResult, error) {
	ds, err := s.store.ListDraws(ctx, filterFor(q))
	if err != nil {
		return FrequencyResult{}, err
	}
	if len(ds) == 0 {
		return FrequencyResult{}, fmt.Errorf("%w: no draws in scope", ErrInsufficientData)
	}
	return computeFrequency(ds), nil
}

// Randomness runs the randomness test battery over the most recent draws in
// scope.
func (s *Service) Randomness(ctx context.Context, q Query) (RandomnessResult, error) {
	ds, err := s.scoped(ctx, q, randomnessWindow)
	if err != nil {
		return RandomnessResult{}, err
	}
	if err := requireDraws(ds, minRandomnessDraws); err != nil {
		return RandomnessResult{}, err
	}
	return computeRandomness(ds), nil
}

// Patterns returns the structural pattern statistics over the most recent
// draws in scope.
func (s *Service) Patterns(ctx context.Context, q Query) (PatternsResult, error) {
	ds, err := s.scoped(ctx, q, patternsWindow)
	if err != nil {
		return PatternsResult{}, err
	}
	if err := requireDraws(ds, minPatternsDraws); err != nil {
		return PatternsResult{}, err
	}
	return computePatterns(ds), nil
}

// Correlation returns pairwise appearance correlations. threshold <= 0
// falls back to the default.
func (s *Service) Correlation(ctx context.Context, q Query, threshold float64) (CorrelationResult, error) {
	if threshold <= 0 {
		threshold = DefaultCorrelationThreshold
	}
	ds, err := s.scoped(ctx, q, correlationWindow)
	if err != nil {
		return CorrelationResult{}, err
	}
	if err := requireDraws(ds, minCorrelationDraws); err != nil {
		return CorrelationResult{}, err
	}
	return computeCorrelation(ds, threshold), nil
}

// Clusters returns number pairs that co-occur more than chance allows.
func (s *Service) Clusters(ctx context.Context, q Query) (ClustersResult, error) {
	ds, err := s.scoped(ctx, q, clustersWindow)
	if err != nil {
		return ClustersResult{}, err
	}
	if err := requireDraws(ds, minClustersDraws); err != nil {
		return ClustersResult{}, err
	}
	return computeClusters(ds), nil
}

// Trends fits per-number appearance trends over trailing calendar periods.
func (s *Service) Trends(ctx context.Context, q Query, period string, numPeriods int) (TrendsResult, error) {
	if !ValidTrendPeriod(period) {
		return TrendsResult{}, fmt.Errorf("unsupported period %q", period)
	}
	ds, err := s.store.ListDraws(ctx, filterFor(q))
	if err != nil {
		return TrendsResult{}, err
	}
	if len(ds) == 0 {
		return TrendsResult{}, fmt.Errorf("%w: no draws in scope", ErrInsufficientData)
	}
	return computeTrends(ds, period, numPeriods), nil
}

// TrendChart returns per-period appearance series for the given numbers.
// With no numbers the top movers from the trend fit are charted.
func (s *Service) TrendChart(ctx context.Context, q Query, period string, numPeriods int, numbers []int) (TrendChartResult, error) {
	if !ValidTrendPeriod(period) {
		return TrendChartResult{}, fmt.Errorf("unsupported period %q", period)
	}
	for _, n := range numbers {
		if n < draw.MinNumber || n > draw.MaxNumber {
			return TrendChartResult{}, fmt.Errorf("number %d outside range %d..%d", n, draw.MinNumber, draw.MaxNumber)
		}
	}

	ds, err := s.store.ListDraws(ctx, filterFor(q))
	if err != nil {
		return TrendChartResult{}, err
	}
	if len(ds) == 0 {
		return TrendChartResult{}, fmt.Errorf("%w: no draws in scope", ErrInsufficientData)
	}
	return computeTrendChart(ds, period, numPeriods, numbers), nil
}
