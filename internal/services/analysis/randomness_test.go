package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// cyclicDraws spreads numbers over the pool as evenly as possible.
func cyclicDraws(count int) []draw.Draw {
	date := draw.NewDate(2020, time.January, 4)
	draws := make([]draw.Draw, count)
	next := 0
	for i := range draws {
		numbers := make([]int, 0, draw.PerDraw)
		for len(numbers) < draw.PerDraw {
			numbers = append(numbers, next%49+1)
			next++
		}
		draws[i] = drawOn(date.AddDays(i*7), numbers...)
	}
	return draws
}

// biasedDraws repeats the same six numbers every time.
func biasedDraws(count int) []draw.Draw {
	date := draw.NewDate(2020, time.January, 4)
	draws := make([]draw.Draw, count)
	for i := range draws {
		draws[i] = drawOn(date.AddDays(i*7), 1, 2, 3, 4, 5, 6)
	}
	return draws
}

func TestChiSquareUniformityAcceptsEvenCounts(t *testing.T) {
	result := chiSquareUniformity(cyclicDraws(98))
	assert.True(t, result.Random)
	assert.Greater(t, result.PValue, 0.9)
	assert.Equal(t, 48, result.Dof)
	assert.Equal(t, 588, result.Observations)
	assert.InDelta(t, 12.0, result.Expected, 1e-9)
}

func TestChiSquareUniformityRejectsBias(t *testing.T) {
	result := chiSquareUniformity(biasedDraws(100))
	assert.False(t, result.Random)
	assert.Less(t, result.PValue, 0.001)
}

func TestKSUniformity(t *testing.T) {
	even := ksUniformity(flattenNumbers(cyclicDraws(98)))
	assert.True(t, even.Random)
	assert.InDelta(t, 1.36/24.24871130596428, even.Critical, 1e-9) // 1.36/sqrt(588)

	biased := ksUniformity(flattenNumbers(biasedDraws(100)))
	assert.False(t, biased.Random)
}

func TestRunsMedianDetectsAlternation(t *testing.T) {
	// Perfectly alternating values produce far more runs than expected. The
	// odd length leaves the low value as the median element, so the 101 lows
	// sit at or below it and the 100 highs above.
	seq := make([]float64, 201)
	for i := range seq {
		if i%2 == 0 {
			seq[i] = 1
		} else {
			seq[i] = 49
		}
	}
	result := runsTest(RunsMedian, medianSigns(seq))
	assert.False(t, result.Random)
	assert.Greater(t, result.ZScore, 2.0)
	assert.Equal(t, 100, result.N1)
	assert.Equal(t, 101, result.N2)
	assert.Equal(t, 201, result.Runs)
}

func TestMedianSignsTiesClassLow(t *testing.T) {
	// Median element of the sorted sequence is 2; the ties stay in the low
	// class instead of being dropped.
	signs := medianSigns([]float64{3, 1, 2, 3, 2})
	assert.Equal(t, []bool{true, false, false, true, false}, signs)
}

func TestRunsEvenOddDetectsParityAlternation(t *testing.T) {
	seq := make([]float64, 200)
	for i := range seq {
		seq[i] = float64(i%2 + 1) // 1, 2, 1, 2, ...
	}
	result := runsTest(RunsEvenOdd, evenOddSigns(seq))
	assert.False(t, result.Random)
	assert.Greater(t, result.ZScore, 2.0)
}

func TestRunsHighLowDegeneratesOnSingleClass(t *testing.T) {
	seq := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	result := runsTest(RunsHighLow, highLowSigns(seq))
	assert.True(t, result.Random)
	assert.Equal(t, 1.0, result.PValue)
	assert.Zero(t, result.ZScore)
	assert.Equal(t, 8, result.N2)
}

func TestRunsShortSequence(t *testing.T) {
	assert.True(t, runsTest(RunsMedian, medianSigns([]float64{1})).Random)
	assert.True(t, runsTest(RunsEvenOdd, nil).Random)
}

func TestAutocorrelationDetectsPeriodicity(t *testing.T) {
	seq := make([]float64, 300)
	for i := range seq {
		seq[i] = float64(i % 2)
	}
	result := autocorrelation(seq)
	require.Len(t, result.Lags, maxAutocorrelationLags)
	first := result.Lags[0]
	assert.Equal(t, 1, first.Lag)
	assert.True(t, first.Significant)
	assert.Less(t, first.Coefficient, 0.0)
	assert.Less(t, first.CILow, first.Coefficient)
	assert.Greater(t, first.CIHigh, first.Coefficient)
	assert.True(t, result.Significant)
	assert.Contains(t, result.SignificantLags, 1)
}

func TestAutocorrelationLagCount(t *testing.T) {
	// 12 observations allow at most 12/3 = 4 lags.
	seq := []float64{5, 9, 2, 7, 1, 8, 3, 6, 4, 9, 2, 7}
	result := autocorrelation(seq)
	assert.Len(t, result.Lags, 4)
}

func TestEntropy(t *testing.T) {
	biased := entropy(biasedDraws(100))
	assert.InDelta(t, 2.585, biased.Entropy, 1e-3) // log2(6)
	assert.InDelta(t, 5.615, biased.MaxEntropy, 1e-3)

	even := entropy(cyclicDraws(98))
	assert.InDelta(t, even.MaxEntropy, even.Entropy, 1e-6)
	assert.InDelta(t, 1.0, even.Ratio, 1e-6)
}

func TestComputeRandomnessStructure(t *testing.T) {
	result := computeRandomness(cyclicDraws(100))

	assert.Equal(t, 100, result.Sample.Draws)
	assert.Equal(t, 600, result.Sample.Observations)
	assert.Equal(t, 49, result.Sample.NumbersCovered)
	assert.InDelta(t, 100.0, result.Sample.CoveragePct, 1e-9)

	assert.Equal(t, 5, result.TestsTotal)
	require.Len(t, result.Runs, 3)
	assert.Equal(t, RunsMedian, result.Runs[0].Kind)
	assert.Equal(t, RunsEvenOdd, result.Runs[1].Kind)
	assert.Equal(t, RunsHighLow, result.Runs[2].Kind)
	assert.Len(t, result.Autocorrelation.Lags, maxAutocorrelationLags)

	assert.True(t, result.ChiSquare.Random)
	assert.True(t, result.Summary.AppearsRandom)
	assert.Equal(t, "high", result.Summary.Confidence)
	assert.Equal(t, "good", result.Summary.DataQuality)
}

func TestSummaryFlagsLimitedSample(t *testing.T) {
	result := computeRandomness(cyclicDraws(20))
	assert.Equal(t, "limited sample", result.Summary.DataQuality)
}
