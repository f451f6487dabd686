// Package analysis computes the statistical views over the draw history:
// frequencies, randomness tests, pattern counts, correlations and trends.
package analysis

import (
	"sort"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// hotColdCount is how many numbers each of the hot and cold lists carries.
const hotColdCount = 6

// NumberFrequency is the observed count for one number in the pool.
type NumberFrequency struct {
	Number       int     `json:"number"`
	Count        int     `json:"count"`
	Percentage   float64 `json:"percentage"`
	Deviation    float64 `json:"deviation"`
	DeviationPct float64 `json:"deviation_pct"`
}

// FrequencyResult is the frequency table over a set of draws. Numbers is
// always the full pool, zero-filled for numbers that never appeared.
type FrequencyResult struct {
	TotalDraws int               `json:"total_draws"`
	Expected   float64           `json:"expected_count"`
	Numbers    []NumberFrequency `json:"numbers"`
	Hot        []int             `json:"hot"`
	Cold       []int             `json:"cold"`
}

// countOccurrences tallies how often each pool number appears across draws.
// Index 0 of the result corresponds to MinNumber.
func countOccurrences(draws []draw.Draw) []int {
	counts := make([]int, draw.MaxNumber-draw.MinNumber+1)
	for _, d := range draws {
		for _, n := range d.Numbers {
			if n >= draw.MinNumber && n <= draw.MaxNumber {
				counts[n-draw.MinNumber]++
			}
		}
	}
	return counts
}

// computeFrequency builds the frequency table. Expected count per number is
// draws * PerDraw / pool size under the uniformity hypothesis.
func computeFrequency(draws []draw.Draw) FrequencyResult {
	counts := countOccurrences(draws)
	total := len(draws)
	poolSize := draw.MaxNumber - draw.MinNumber + 1
	expected := float64(total) * draw.PerDraw / float64(poolSize)

	result := FrequencyResult{
		TotalDraws: total,
		Expected:   expected,
		Numbers:    make([]NumberFrequency, poolSize),
	}

	totalPicks := total * draw.PerDraw
	for i, count := range counts {
		percentage, deviationPct := 0.0, 0.0
		if totalPicks > 0 {
			percentage = float64(count) / float64(totalPicks) * 100
			deviationPct = (float64(count) - expected) / expected * 100
		}
		result.Numbers[i] = NumberFrequency{
			Number:       draw.MinNumber + i,
			Count:        count,
			Percentage:   percentage,
			Deviation:    float64(count) - expected,
			DeviationPct: deviationPct,
		}
	}

	result.Hot = topNumbersByDeviation(result.Numbers, hotColdCount, true)
	result.Cold = topNumbersByDeviation(result.Numbers, hotColdCount, false)
	return result
}

// topNumbersByDeviation picks up to n numbers with the largest positive
// (hot) or most negative (cold) deviation from the expected count. Numbers
// at exactly the expected count qualify for neither list. Ties break on
// the lower number.
func topNumbersByDeviation(freqs []NumberFrequency, n int, hot bool) []int {
	sorted := make([]NumberFrequency, len(freqs))
	copy(sorted, freqs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if hot {
			return sorted[i].Deviation > sorted[j].Deviation
		}
		return sorted[i].Deviation < sorted[j].Deviation
	})

	numbers := make([]int, 0, n)
	for _, f := range sorted {
		if len(numbers) == n {
			break
		}
		if hot && f.Deviation <= 0 || !hot && f.Deviation >= 0 {
			break
		}
		numbers = append(numbers, f.Number)
	}
	sort.Ints(numbers)
	return numbers
}
