package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// Supported trend period granularities.
const (
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// defaultTrendPeriods is how many trailing periods the trend analysis covers
// when the caller does not say.
const defaultTrendPeriods = 12

// Trend classifications.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// trendTopMovers caps the rising and falling lists.
const trendTopMovers = 10

// chartDefaultSeries is how many series the chart carries when the caller
// names no numbers.
const chartDefaultSeries = 6

// NumberTrend is the fitted appearance-rate trend for one number.
type NumberTrend struct {
	Number         int     `json:"number"`
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	R              float64 `json:"r"`
	PValue         float64 `json:"p_value"`
	Classification string  `json:"classification"`
}

// TrendsResult describes per-number appearance trends over trailing periods.
type TrendsResult struct {
	Period         string        `json:"period"`
	Periods        []string      `json:"periods"`
	DrawsPerPeriod []int         `json:"draws_per_period"`
	Numbers        []NumberTrend `json:"numbers"`
	Rising         []NumberTrend `json:"rising"`
	Falling        []NumberTrend `json:"falling"`
	StableCount    int           `json:"stable_count"`
}

// TrendSeries is the per-period appearance counts of one number.
type TrendSeries struct {
	Number int   `json:"number"`
	Counts []int `json:"counts"`
}

// TrendChartResult holds per-period series suitable for chart rendering.
type TrendChartResult struct {
	Period string        `json:"period"`
	Labels []string      `json:"labels"`
	Series []TrendSeries `json:"series"`
}

// ValidTrendPeriod reports whether p names a supported granularity.
func ValidTrendPeriod(p string) bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

func periodKey(d draw.Date, period string) string {
	switch period {
	case PeriodWeek:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case PeriodQuarter:
		return fmt.Sprintf("%04d-Q%d", d.Year(), (int(d.Month())-1)/3+1)
	case PeriodYear:
		return fmt.Sprintf("%04d", d.Year())
	default:
		return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
	}
}

// trendBuckets groups the draws into calendar periods and keeps the trailing
// numPeriods bucket keys in chronological order.
func trendBuckets(draws []draw.Draw, period string, numPeriods int) ([]string, map[string][]draw.Draw) {
	if numPeriods <= 0 {
		numPeriods = defaultTrendPeriods
	}
	buckets := make(map[string][]draw.Draw)
	for _, d := range draws {
		key := periodKey(d.DrawDate, period)
		buckets[key] = append(buckets[key], d)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > numPeriods {
		keys = keys[len(keys)-numPeriods:]
	}
	return keys, buckets
}

// periodCounts is how often number (pool index) appeared in each bucket.
func periodCounts(keys []string, buckets map[string][]draw.Draw, index int) []int {
	counts := make([]int, len(keys))
	for i, key := range keys {
		for _, d := range buckets[key] {
			for _, n := range d.Numbers {
				if n-draw.MinNumber == index {
					counts[i]++
				}
			}
		}
	}
	return counts
}

// computeTrends buckets the draws into calendar periods, keeps the trailing
// numPeriods buckets, and fits a least-squares line through each number's
// appearance rate. A number is rising or falling when the slope's t-test is
// significant at the 5% level, stable otherwise.
func computeTrends(draws []draw.Draw, period string, numPeriods int) TrendsResult {
	keys, buckets := trendBuckets(draws, period, numPeriods)
	result := TrendsResult{Period: period, Periods: keys}

	result.DrawsPerPeriod = make([]int, len(keys))
	for i, key := range keys {
		result.DrawsPerPeriod[i] = len(buckets[key])
	}

	// A line through fewer than three points is noise.
	if len(keys) < 3 {
		return result
	}

	poolSize := draw.MaxNumber - draw.MinNumber + 1
	xs := make([]float64, len(keys))
	for i := range xs {
		xs[i] = float64(i)
	}

	for index := 0; index < poolSize; index++ {
		counts := periodCounts(keys, buckets, index)
		ys := make([]float64, len(keys))
		for i, count := range counts {
			// Appearance rate, normalized by the period's draw count.
			ys[i] = float64(count) / float64(len(buckets[keys[i]]))
		}

		fit := linearRegression(xs, ys)
		trend := NumberTrend{
			Number:         index + draw.MinNumber,
			Slope:          fit.slope,
			Intercept:      fit.intercept,
			R:              fit.r,
			PValue:         fit.pValue,
			Classification: TrendStable,
		}
		if fit.pValue < significanceLevel && fit.slope != 0 {
			if fit.slope > 0 {
				trend.Classification = TrendRising
				result.Rising = append(result.Rising, trend)
			} else {
				trend.Classification = TrendFalling
				result.Falling = append(result.Falling, trend)
			}
		} else {
			result.StableCount++
		}
		result.Numbers = append(result.Numbers, trend)
	}

	sort.Slice(result.Rising, func(i, j int) bool { return result.Rising[i].Slope > result.Rising[j].Slope })
	sort.Slice(result.Falling, func(i, j int) bool { return result.Falling[i].Slope < result.Falling[j].Slope })
	if len(result.Rising) > trendTopMovers {
		result.Rising = result.Rising[:trendTopMovers]
	}
	if len(result.Falling) > trendTopMovers {
		result.Falling = result.Falling[:trendTopMovers]
	}
	return result
}

// computeTrendChart builds per-period appearance series. With no explicit
// numbers the top movers are charted, padded with the most frequent numbers
// when there are not enough movers.
func computeTrendChart(draws []draw.Draw, period string, numPeriods int, numbers []int) TrendChartResult {
	keys, buckets := trendBuckets(draws, period, numPeriods)
	result := TrendChartResult{Period: period, Labels: keys}

	if len(numbers) == 0 {
		numbers = defaultChartNumbers(draws, period, numPeriods)
	}
	for _, number := range numbers {
		result.Series = append(result.Series, TrendSeries{
			Number: number,
			Counts: periodCounts(keys, buckets, number-draw.MinNumber),
		})
	}
	return result
}

func defaultChartNumbers(draws []draw.Draw, period string, numPeriods int) []int {
	var numbers []int
	trends := computeTrends(draws, period, numPeriods)
	for i := 0; i < len(trends.Rising) && i < chartDefaultSeries/2; i++ {
		numbers = append(numbers, trends.Rising[i].Number)
	}
	for i := 0; i < len(trends.Falling) && len(numbers) < chartDefaultSeries; i++ {
		numbers = append(numbers, trends.Falling[i].Number)
	}
	if len(numbers) < chartDefaultSeries {
		seen := make(map[int]bool, len(numbers))
		for _, n := range numbers {
			seen[n] = true
		}
		freq := computeFrequency(draws)
		sort.SliceStable(freq.Numbers, func(i, j int) bool {
			return freq.Numbers[i].Count > freq.Numbers[j].Count
		})
		for _, nf := range freq.Numbers {
			if len(numbers) == chartDefaultSeries {
				break
			}
			if !seen[nf.Number] {
				numbers = append(numbers, nf.Number)
			}
		}
	}
	sort.Ints(numbers)
	return numbers
}

type regression struct {
	slope     float64
	intercept float64
	r         float64
	pValue    float64
}

// linearRegression fits y = a + b*x by least squares and returns the slope,
// intercept, Pearson r and the two-sided p-value of the slope's t-test.
func linearRegression(xs, ys []float64) regression {
	fit := regression{pValue: 1}
	n := len(xs)
	if n < 3 {
		return fit
	}

	mx, my := mean(xs), mean(ys)
	sxx, syy, sxy := 0.0, 0.0, 0.0
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 {
		return fit
	}
	fit.slope = sxy / sxx
	fit.intercept = my - fit.slope*mx
	if syy > 0 {
		fit.r = sxy / math.Sqrt(sxx*syy)
	}

	rss := 0.0
	for i := range xs {
		resid := ys[i] - fit.intercept - fit.slope*xs[i]
		rss += resid * resid
	}
	df := n - 2
	if rss == 0 {
		// A perfect fit; flat lines are not trends.
		if fit.slope != 0 {
			fit.pValue = 0
		}
		return fit
	}

	se := math.Sqrt(rss / float64(df) / sxx)
	fit.pValue = studentTPValue(fit.slope/se, df)
	return fit
}
