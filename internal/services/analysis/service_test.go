package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/storage/memory"
)

func seededService(t *testing.T, draws []draw.Draw) *Service {
	t.Helper()
	store := memory.New()
	for i, d := range draws {
		d.DrawNumber = i + 1
		_, err := store.InsertDraw(context.Background(), d)
		require.NoError(t, err)
	}
	return New(store, nil)
}

func TestFrequencyInsufficientData(t *testing.T) {
	svc := seededService(t, nil)
	_, err := svc.Frequency(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestFrequencyWithWindow(t *testing.T) {
	old := drawOn(draw.Today().AddDays(-100), 1, 2, 3, 4, 5, 6)
	recent := drawOn(draw.Today().AddDays(-3), 10, 20, 30, 40, 41, 42)
	svc := seededService(t, []draw.Draw{old, recent})

	result, err := svc.Frequency(context.Background(), Query{WindowDays: 30})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalDraws)
	assert.Equal(t, 1, result.Numbers[9].Count) // number 10
	assert.Zero(t, result.Numbers[0].Count)     // number 1 is outside the window
}

func TestFrequencyWithDateRange(t *testing.T) {
	old := drawOn(draw.Today().AddDays(-100), 1, 2, 3, 4, 5, 6)
	recent := drawOn(draw.Today().AddDays(-3), 10, 20, 30, 40, 41, 42)
	svc := seededService(t, []draw.Draw{old, recent})

	to := draw.Today().AddDays(-50)
	result, err := svc.Frequency(context.Background(), Query{DateTo: &to})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalDraws)
	assert.Equal(t, 1, result.Numbers[0].Count)
}

func TestRandomnessInsufficientData(t *testing.T) {
	svc := seededService(t, cyclicDraws(5))
	_, err := svc.Randomness(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRandomness(t *testing.T) {
	svc := seededService(t, cyclicDraws(49))
	result, err := svc.Randomness(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 49, result.Sample.Draws)
	assert.True(t, result.ChiSquare.Random)
}

func TestPatternsFiltersGameType(t *testing.T) {
	draws := cyclicDraws(20)
	for i := range draws {
		if i%2 == 1 {
			draws[i].GameType = "lotto_plus"
		}
	}
	svc := seededService(t, draws)

	result, err := svc.Patterns(context.Background(), Query{GameType: "lotto"})
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalDraws)

	// Display labels reduce to the stored slug.
	result, err = svc.Patterns(context.Background(), Query{GameType: "Lotto Plus"})
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalDraws)
}

func TestCorrelationAndClusters(t *testing.T) {
	svc := seededService(t, alternatingDraws(40))

	corr, err := svc.Correlation(context.Background(), Query{}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCorrelationThreshold, corr.Threshold)
	assert.Equal(t, 66, corr.SignificantCount)

	clusters, err := svc.Clusters(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 30, clusters.SignificantPairs)
}

func TestClustersInsufficientData(t *testing.T) {
	svc := seededService(t, alternatingDraws(10))
	_, err := svc.Clusters(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrendsRejectsBadPeriod(t *testing.T) {
	svc := seededService(t, cyclicDraws(20))
	_, err := svc.Trends(context.Background(), Query{}, "decade", 12)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientData)
}

func TestTrends(t *testing.T) {
	svc := seededService(t, trendingDraws())
	result, err := svc.Trends(context.Background(), Query{GameType: "lotto"}, PeriodMonth, 6)
	require.NoError(t, err)
	assert.Len(t, result.Periods, 6)
	require.NotEmpty(t, result.Rising)
	assert.Equal(t, 7, result.Rising[0].Number)
}

func TestTrendChart(t *testing.T) {
	svc := seededService(t, trendingDraws())
	result, err := svc.TrendChart(context.Background(), Query{}, PeriodMonth, 6, []int{7})
	require.NoError(t, err)
	require.Len(t, result.Series, 1)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, result.Series[0].Counts)
}

func TestTrendChartRejectsBadNumber(t *testing.T) {
	svc := seededService(t, trendingDraws())
	_, err := svc.TrendChart(context.Background(), Query{}, PeriodMonth, 6, []int{50})
	assert.Error(t, err)
}
