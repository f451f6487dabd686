package analysis

import (
	"math"
	"sort"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// significanceLevel is the alpha used by every hypothesis test.
const significanceLevel = 0.05

// maxAutocorrelationLags caps the autocorrelation scan; the effective lag
// count is min(maxAutocorrelationLags, n/3).
const maxAutocorrelationLags = 10

// lowHighBoundary splits the pool into a low and a high half; numbers up to
// the boundary count as low.
const lowHighBoundary = 24

// Runs test variants over the flattened number sequence.
const (
	RunsMedian  = "median"
	RunsEvenOdd = "even_odd"
	RunsHighLow = "high_low"
)

// ChiSquareTest is a chi-square goodness-of-fit outcome against the uniform
// distribution.
type ChiSquareTest struct {
	Statistic    float64 `json:"statistic"`
	PValue       float64 `json:"p_value"`
	Dof          int     `json:"degrees_of_freedom"`
	Expected     float64 `json:"expected_frequency"`
	Observations int     `json:"total_observations"`
	Random       bool    `json:"is_random"`
}

// KSTest is a one-sample Kolmogorov-Smirnov outcome against the uniform CDF.
type KSTest struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Critical  float64 `json:"critical_value"`
	Random    bool    `json:"is_random"`
}

// RunsTestResult is the outcome of one Wald-Wolfowitz style runs test.
type RunsTestResult struct {
	Kind         string  `json:"kind"`
	Runs         int     `json:"runs"`
	N1           int     `json:"n1"`
	N2           int     `json:"n2"`
	ExpectedRuns float64 `json:"expected_runs"`
	Variance     float64 `json:"variance"`
	ZScore       float64 `json:"z_score"`
	PValue       float64 `json:"p_value"`
	Random       bool    `json:"is_random"`
}

// AutocorrelationLag is the autocorrelation of the number sequence at one
// lag, with its 95% confidence interval r ± 1.96/sqrt(n).
type AutocorrelationLag struct {
	Lag         int     `json:"lag"`
	Coefficient float64 `json:"coefficient"`
	PValue      float64 `json:"p_value"`
	CILow       float64 `json:"ci_low"`
	CIHigh      float64 `json:"ci_high"`
	Significant bool    `json:"significant"`
}

// AutocorrelationResult is the autocorrelation scan across lags.
type AutocorrelationResult struct {
	Lags            []AutocorrelationLag `json:"lags"`
	SignificantLags []int                `json:"significant_lags"`
	Significant     bool                 `json:"significant"`
}

// EntropyResult is the Shannon entropy of the number distribution.
type EntropyResult struct {
	Entropy    float64 `json:"entropy"`
	MaxEntropy float64 `json:"max_entropy"`
	Ratio      float64 `json:"ratio"`
}

// SampleInfo describes the sample the battery ran over.
type SampleInfo struct {
	Draws          int     `json:"draws"`
	Observations   int     `json:"observations"`
	NumbersCovered int     `json:"numbers_covered"`
	CoveragePct    float64 `json:"coverage_pct"`
}

// RandomnessSummary is the one-look verdict over the whole battery.
type RandomnessSummary struct {
	AppearsRandom bool   `json:"appears_random"`
	Confidence    string `json:"confidence"`
	DataQuality   string `json:"data_quality"`
}

// RandomnessResult bundles every randomness test over one draw window.
type RandomnessResult struct {
	Sample            SampleInfo            `json:"sample"`
	ChiSquare         ChiSquareTest         `json:"chi_square"`
	KolmogorovSmirnov KSTest                `json:"kolmogorov_smirnov"`
	Runs              []RunsTestResult      `json:"runs_tests"`
	Autocorrelation   AutocorrelationResult `json:"autocorrelation"`
	Entropy           EntropyResult         `json:"entropy"`
	TestsPassed       int                   `json:"tests_passed"`
	TestsTotal        int                   `json:"tests_total"`
	Summary           RandomnessSummary     `json:"summary"`
}

// computeRandomness runs the full test battery. draws must be in
// chronological order; the sequence tests depend on it.
func computeRandomness(draws []draw.Draw) RandomnessResult {
	flat := flattenNumbers(draws)

	result := RandomnessResult{
		Sample:            sampleInfo(draws),
		ChiSquare:         chiSquareUniformity(draws),
		KolmogorovSmirnov: ksUniformity(flat),
		Runs: []RunsTestResult{
			runsTest(RunsMedian, medianSigns(flat)),
			runsTest(RunsEvenOdd, evenOddSigns(flat)),
			runsTest(RunsHighLow, highLowSigns(flat)),
		},
		Autocorrelation: autocorrelation(flat),
		Entropy:         entropy(draws),
	}

	result.TestsTotal = 2 + len(result.Runs)
	if result.ChiSquare.Random {
		result.TestsPassed++
	}
	if result.KolmogorovSmirnov.Random {
		result.TestsPassed++
	}
	for _, r := range result.Runs {
		if r.Random {
			result.TestsPassed++
		}
	}
	result.Summary = summarize(result)
	return result
}

func sampleInfo(draws []draw.Draw) SampleInfo {
	counts := countOccurrences(draws)
	covered := 0
	for _, c := range counts {
		if c > 0 {
			covered++
		}
	}
	return SampleInfo{
		Draws:          len(draws),
		Observations:   len(draws) * draw.PerDraw,
		NumbersCovered: covered,
		CoveragePct:    float64(covered) / float64(len(counts)) * 100,
	}
}

// summarize derives the verdict block. The headline follows the chi-square
// test, the strongest single indicator of frequency bias.
func summarize(r RandomnessResult) RandomnessSummary {
	s := RandomnessSummary{AppearsRandom: r.ChiSquare.Random}
	switch {
	case r.ChiSquare.PValue > 0.10:
		s.Confidence = "high"
	case r.ChiSquare.PValue > significanceLevel:
		s.Confidence = "moderate"
	default:
		s.Confidence = "low"
	}
	if r.Sample.Draws >= 100 {
		s.DataQuality = "good"
	} else {
		s.DataQuality = "limited sample"
	}
	return s
}

// flattenNumbers concatenates the numbers of every draw in order.
func flattenNumbers(draws []draw.Draw) []float64 {
	flat := make([]float64, 0, len(draws)*draw.PerDraw)
	for _, d := range draws {
		for _, n := range d.Numbers {
			flat = append(flat, float64(n))
		}
	}
	return flat
}

// chiSquareUniformity tests the number frequencies against the uniform
// expectation, df = pool size - 1.
func chiSquareUniformity(draws []draw.Draw) ChiSquareTest {
	counts := countOccurrences(draws)
	poolSize := len(counts)
	observations := len(draws) * draw.PerDraw
	expected := float64(observations) / float64(poolSize)
	result := ChiSquareTest{
		Dof:          poolSize - 1,
		Expected:     expected,
		Observations: observations,
		PValue:       1,
		Random:       true,
	}
	if expected == 0 {
		return result
	}

	statistic := 0.0
	for _, count := range counts {
		diff := float64(count) - expected
		statistic += diff * diff / expected
	}
	p := chiSquareSurvival(statistic, poolSize-1)
	result.Statistic = statistic
	result.PValue = p
	result.Random = p >= significanceLevel
	return result
}

// ksUniformity runs a one-sample Kolmogorov-Smirnov test of the drawn
// numbers against the discrete uniform distribution on the pool.
func ksUniformity(flat []float64) KSTest {
	n := len(flat)
	if n == 0 {
		return KSTest{PValue: 1, Random: true}
	}

	sorted := make([]float64, n)
	copy(sorted, flat)
	sort.Float64s(sorted)

	span := float64(draw.MaxNumber - draw.MinNumber + 1)
	d := 0.0
	for i, x := range sorted {
		// Uniform CDF over the pool, evaluated at x.
		cdf := (x - float64(draw.MinNumber) + 1) / span
		empiricalHi := float64(i+1) / float64(n)
		empiricalLo := float64(i) / float64(n)
		d = math.Max(d, math.Max(math.Abs(empiricalHi-cdf), math.Abs(cdf-empiricalLo)))
	}

	p := ksPValue(d, n)
	return KSTest{
		Statistic: d,
		PValue:    p,
		Critical:  1.36 / math.Sqrt(float64(n)),
		Random:    p >= significanceLevel,
	}
}

// medianSigns dichotomizes the sequence around its upper median element;
// values at or below it class as low.
func medianSigns(flat []float64) []bool {
	if len(flat) == 0 {
		return nil
	}
	sorted := make([]float64, len(flat))
	copy(sorted, flat)
	sort.Float64s(sorted)
	center := sorted[len(sorted)/2]

	signs := make([]bool, len(flat))
	for i, x := range flat {
		signs[i] = x > center
	}
	return signs
}

// evenOddSigns maps the sequence to the parity of each value.
func evenOddSigns(flat []float64) []bool {
	signs := make([]bool, len(flat))
	for i, x := range flat {
		signs[i] = int(x)%2 == 1
	}
	return signs
}

// highLowSigns splits the sequence at the low/high boundary of the pool.
func highLowSigns(flat []float64) []bool {
	signs := make([]bool, len(flat))
	for i, x := range flat {
		signs[i] = x > lowHighBoundary
	}
	return signs
}

// runsTest is the Wald-Wolfowitz runs test over a two-class sequence.
// Degenerate single-class sequences come back with z 0 and p 1.
func runsTest(kind string, signs []bool) RunsTestResult {
	result := RunsTestResult{Kind: kind, PValue: 1, Random: true}
	if len(signs) < 2 {
		return result
	}

	runs, n1, n2 := 1, 0, 0
	for i, s := range signs {
		if s {
			n1++
		} else {
			n2++
		}
		if i > 0 && s != signs[i-1] {
			runs++
		}
	}
	result.Runs = runs
	result.N1 = n1
	result.N2 = n2
	if n1 == 0 || n2 == 0 {
		return result
	}

	fn1, fn2 := float64(n1), float64(n2)
	total := fn1 + fn2
	expectedRuns := 2*fn1*fn2/total + 1
	variance := 2 * fn1 * fn2 * (2*fn1*fn2 - total) / (total * total * (total - 1))

	result.ExpectedRuns = expectedRuns
	result.Variance = variance
	if variance <= 0 {
		return result
	}
	z := (float64(runs) - expectedRuns) / math.Sqrt(variance)
	p := 2 * (1 - normalCDF(math.Abs(z)))
	result.ZScore = z
	result.PValue = p
	result.Random = p >= significanceLevel
	return result
}

// autocorrelation scans lag-k autocorrelation coefficients for
// k = 1..min(10, n/3), with the normal approximation z = r * sqrt(n).
func autocorrelation(flat []float64) AutocorrelationResult {
	var result AutocorrelationResult
	n := len(flat)
	maxLag := maxAutocorrelationLags
	if n/3 < maxLag {
		maxLag = n / 3
	}
	if n < 3 || maxLag < 1 {
		return result
	}

	m := mean(flat)
	denom := 0.0
	for _, x := range flat {
		denom += (x - m) * (x - m)
	}
	if denom == 0 {
		return result
	}

	halfWidth := 1.96 / math.Sqrt(float64(n))
	for lag := 1; lag <= maxLag; lag++ {
		num := 0.0
		for i := 0; i < n-lag; i++ {
			num += (flat[i] - m) * (flat[i+lag] - m)
		}
		r := num / denom
		z := r * math.Sqrt(float64(n))
		p := 2 * (1 - normalCDF(math.Abs(z)))
		significant := p < significanceLevel
		result.Lags = append(result.Lags, AutocorrelationLag{
			Lag:         lag,
			Coefficient: r,
			PValue:      p,
			CILow:       r - halfWidth,
			CIHigh:      r + halfWidth,
			Significant: significant,
		})
		if significant {
			result.SignificantLags = append(result.SignificantLags, lag)
		}
	}
	result.Significant = len(result.SignificantLags) > 0
	return result
}

// entropy is the Shannon entropy of the observed number distribution in
// bits, against the log2(pool size) maximum.
func entropy(draws []draw.Draw) EntropyResult {
	counts := countOccurrences(draws)
	maxEntropy := math.Log2(float64(len(counts)))
	result := EntropyResult{MaxEntropy: maxEntropy}

	total := len(draws) * draw.PerDraw
	if total == 0 {
		return result
	}
	h := 0.0
	for _, count := range counts {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(total)
		h -= p * math.Log2(p)
	}
	result.Entropy = h
	result.Ratio = h / maxEntropy
	return result
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
