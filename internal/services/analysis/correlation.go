package analysis

import (
	"math"
	"sort"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// Caps on the pair lists the correlation analysis reports.
const (
	correlationSignificantCap = 50
	correlationTopCap         = 10
)

// PairCorrelation is the correlation between the appearances of two numbers.
type PairCorrelation struct {
	A           int     `json:"a"`
	B           int     `json:"b"`
	Coefficient float64 `json:"coefficient"`
	PValue      float64 `json:"p_value"`
}

// CorrelationSummary describes the upper triangle of the correlation matrix.
type CorrelationSummary struct {
	Mean     float64        `json:"mean"`
	Max      float64        `json:"max"`
	Min      float64        `json:"min"`
	Strength map[string]int `json:"strength"`
}

// CorrelationResult reports pairwise appearance correlations: the
// significant pairs, a matrix for heatmap rendering, and summary stats.
type CorrelationResult struct {
	TotalDraws       int                `json:"total_draws"`
	Threshold        float64            `json:"threshold"`
	SignificantCount int                `json:"significant_count"`
	SignificantPairs []PairCorrelation  `json:"significant_pairs"`
	TopPairs         []PairCorrelation  `json:"top_pairs"`
	Summary          CorrelationSummary `json:"summary"`
	Matrix           [][]float64        `json:"matrix"`
}

// presenceCounts tallies single and pairwise appearance counts over draws.
func presenceCounts(draws []draw.Draw) (single []int, pair [][]int) {
	poolSize := draw.MaxNumber - draw.MinNumber + 1
	single = make([]int, poolSize)
	pair = make([][]int, poolSize)
	for i := range pair {
		pair[i] = make([]int, poolSize)
	}

	for _, d := range draws {
		for i, a := range d.Numbers {
			ai := a - draw.MinNumber
			single[ai]++
			for _, b := range d.Numbers[i+1:] {
				bi := b - draw.MinNumber
				pair[ai][bi]++
				pair[bi][ai]++
			}
		}
	}
	return single, pair
}

// pearsonPValue is the two-sided t-test p-value of a Pearson coefficient
// over n samples. Near-perfect correlations collapse to p 0.
func pearsonPValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if 1-r*r < 1e-12 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	return studentTPValue(t, n-2)
}

// computeCorrelation calculates the Pearson correlation between the binary
// appearance vectors of every number pair. Pairs whose absolute coefficient
// reaches the threshold are reported, sorted by strength.
func computeCorrelation(draws []draw.Draw, threshold float64) CorrelationResult {
	n := len(draws)
	result := CorrelationResult{
		TotalDraws: n,
		Threshold:  threshold,
		Summary:    CorrelationSummary{Strength: map[string]int{}},
	}
	if n == 0 {
		return result
	}

	single, pair := presenceCounts(draws)
	poolSize := len(single)
	fn := float64(n)

	matrix := make([][]float64, poolSize)
	for i := range matrix {
		matrix[i] = make([]float64, poolSize)
		matrix[i][i] = 1
	}

	var significant []PairCorrelation
	sum, count := 0.0, 0
	for i := 0; i < poolSize; i++ {
		for j := i + 1; j < poolSize; j++ {
			sx, sy := float64(single[i]), float64(single[j])
			sxy := float64(pair[i][j])
			// For binary vectors sum(x^2) == sum(x).
			denom := math.Sqrt((fn*sx - sx*sx) * (fn*sy - sy*sy))
			r := 0.0
			if denom != 0 {
				r = (fn*sxy - sx*sy) / denom
			}
			matrix[i][j] = r
			matrix[j][i] = r

			sum += r
			count++
			if count == 1 || r > result.Summary.Max {
				result.Summary.Max = r
			}
			if count == 1 || r < result.Summary.Min {
				result.Summary.Min = r
			}
			result.Summary.Strength[strengthBucket(r)]++

			if math.Abs(r) >= threshold {
				significant = append(significant, PairCorrelation{
					A:           i + draw.MinNumber,
					B:           j + draw.MinNumber,
					Coefficient: r,
					PValue:      pearsonPValue(r, n),
				})
			}
		}
	}
	if count > 0 {
		result.Summary.Mean = sum / float64(count)
	}
	result.Matrix = matrix
	result.SignificantCount = len(significant)

	sort.Slice(significant, func(i, j int) bool {
		return math.Abs(significant[i].Coefficient) > math.Abs(significant[j].Coefficient)
	})
	if len(significant) > correlationSignificantCap {
		significant = significant[:correlationSignificantCap]
	}
	result.SignificantPairs = significant
	if len(significant) > correlationTopCap {
		result.TopPairs = significant[:correlationTopCap]
	} else {
		result.TopPairs = significant
	}
	return result
}

func strengthBucket(r float64) string {
	switch abs := math.Abs(r); {
	case abs >= 0.3:
		return "strong"
	case abs >= 0.1:
		return "moderate"
	case abs >= 0.05:
		return "weak"
	default:
		return "negligible"
	}
}
