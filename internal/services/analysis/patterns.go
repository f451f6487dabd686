package analysis

import (
	"sort"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// patternsSequenceCap bounds the sequence example lists in the response.
const patternsSequenceCap = 50

// sumTopCount is how many of the most common sums the sum block reports.
const sumTopCount = 10

// ConsecutiveSequence is one run of consecutive numbers inside a draw.
type ConsecutiveSequence struct {
	DrawNumber int   `json:"draw_number"`
	Sequence   []int `json:"sequence"`
}

// ConsecutivePatterns aggregates runs of consecutive numbers (length >= 2)
// across the window.
type ConsecutivePatterns struct {
	Count     int                   `json:"count"`
	MaxLength int                   `json:"max_length"`
	AvgLength float64               `json:"avg_length"`
	Sequences []ConsecutiveSequence `json:"sequences"`
}

// ArithmeticSequence is one contiguous constant-difference subsequence of a
// sorted draw.
type ArithmeticSequence struct {
	DrawNumber int   `json:"draw_number"`
	Sequence   []int `json:"sequence"`
	Difference int   `json:"difference"`
	Length     int   `json:"length"`
}

// ArithmeticPatterns aggregates arithmetic sequences (length >= 3) across
// the window.
type ArithmeticPatterns struct {
	Total            int                  `json:"total"`
	Found            []ArithmeticSequence `json:"found"`
	DifferenceCounts map[int]int          `json:"difference_counts"`
}

// DigitPatterns describes the decimal-digit structure of the drawn numbers.
type DigitPatterns struct {
	// DigitCounts[d] is how often digit d appears across all drawn numbers.
	DigitCounts map[int]int `json:"digit_counts"`
	// RepeatingDigits counts appearances of numbers whose digits repeat
	// (11, 22, 33, 44).
	RepeatingDigits map[int]int `json:"repeating_digits"`
	// DigitSumCounts histograms the digit sum of each drawn number.
	DigitSumCounts map[int]int `json:"digit_sum_counts"`
	// DigitProductCounts histograms the digit product of each drawn number.
	DigitProductCounts map[int]int `json:"digit_product_counts"`
}

// SumCount is one entry of the most-common-sums list.
type SumCount struct {
	Sum   int `json:"sum"`
	Count int `json:"count"`
}

// SumPatterns describes the distribution of per-draw number sums.
type SumPatterns struct {
	Min          int         `json:"min"`
	Max          int         `json:"max"`
	MostCommon   []SumCount  `json:"most_common"`
	Distribution map[int]int `json:"distribution"`
}

// PatternsResult bundles the structural pattern statistics of a window.
type PatternsResult struct {
	TotalDraws  int                 `json:"total_draws"`
	Consecutive ConsecutivePatterns `json:"consecutive"`
	Arithmetic  ArithmeticPatterns  `json:"arithmetic"`
	Digits      DigitPatterns       `json:"digits"`
	Sums        SumPatterns         `json:"sums"`
}

func computePatterns(draws []draw.Draw) PatternsResult {
	result := PatternsResult{
		TotalDraws: len(draws),
		Arithmetic: ArithmeticPatterns{DifferenceCounts: map[int]int{}},
		Digits: DigitPatterns{
			DigitCounts:        map[int]int{},
			RepeatingDigits:    map[int]int{},
			DigitSumCounts:     map[int]int{},
			DigitProductCounts: map[int]int{},
		},
		Sums: SumPatterns{Distribution: map[int]int{}},
	}
	if len(draws) == 0 {
		return result
	}

	lengthTotal := 0
	for _, d := range draws {
		numbers := draw.SortedCopy(d.Numbers)

		for _, seq := range consecutiveRuns(numbers) {
			result.Consecutive.Count++
			lengthTotal += len(seq)
			if len(seq) > result.Consecutive.MaxLength {
				result.Consecutive.MaxLength = len(seq)
			}
			if len(result.Consecutive.Sequences) < patternsSequenceCap {
				result.Consecutive.Sequences = append(result.Consecutive.Sequences,
					ConsecutiveSequence{DrawNumber: d.DrawNumber, Sequence: seq})
			}
		}

		for _, seq := range arithmeticSubsequences(numbers) {
			diff := seq[1] - seq[0]
			result.Arithmetic.Total++
			// The histogram counts steps, one per adjacent pair.
			result.Arithmetic.DifferenceCounts[diff] += len(seq) - 1
			if len(result.Arithmetic.Found) < patternsSequenceCap {
				result.Arithmetic.Found = append(result.Arithmetic.Found, ArithmeticSequence{
					DrawNumber: d.DrawNumber,
					Sequence:   seq,
					Difference: diff,
					Length:     len(seq),
				})
			}
		}

		sum := 0
		for _, n := range numbers {
			sum += n
			tallyDigits(n, &result.Digits)
		}
		result.Sums.Distribution[sum]++
	}

	if result.Consecutive.Count > 0 {
		result.Consecutive.AvgLength = float64(lengthTotal) / float64(result.Consecutive.Count)
	}
	fillSumExtremes(&result.Sums)
	return result
}

// consecutiveRuns returns the maximal runs of consecutive values (length
// >= 2) in a sorted draw.
func consecutiveRuns(sorted []int) [][]int {
	var runs [][]int
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i] == sorted[i-1]+1 {
			continue
		}
		if i-start >= 2 {
			run := make([]int, i-start)
			copy(run, sorted[start:i])
			runs = append(runs, run)
		}
		start = i
	}
	return runs
}

// arithmeticSubsequences returns every contiguous constant-difference
// subsequence (length >= 3) of a sorted draw, so a full progression also
// counts each of its shorter windows.
func arithmeticSubsequences(sorted []int) [][]int {
	var seqs [][]int
	for i := 0; i+2 < len(sorted); i++ {
		diff := sorted[i+1] - sorted[i]
		end := i + 2
		for end < len(sorted) && sorted[end]-sorted[end-1] == diff {
			end++
		}
		for j := i + 3; j <= end; j++ {
			seq := make([]int, j-i)
			copy(seq, sorted[i:j])
			seqs = append(seqs, seq)
		}
	}
	return seqs
}

func tallyDigits(n int, digits *DigitPatterns) {
	sum, product, repeating := 0, 1, true
	last := -1
	for _, r := range []byte(intDigits(n)) {
		d := int(r - '0')
		digits.DigitCounts[d]++
		sum += d
		product *= d
		if last >= 0 && d != last {
			repeating = false
		}
		last = d
	}
	if repeating && n >= 10 {
		digits.RepeatingDigits[n]++
	}
	digits.DigitSumCounts[sum]++
	digits.DigitProductCounts[product]++
}

func intDigits(n int) string {
	if n < 10 {
		return string([]byte{byte('0' + n)})
	}
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func fillSumExtremes(sums *SumPatterns) {
	first := true
	for sum, count := range sums.Distribution {
		if first {
			sums.Min, sums.Max = sum, sum
			first = false
		}
		if sum < sums.Min {
			sums.Min = sum
		}
		if sum > sums.Max {
			sums.Max = sum
		}
		sums.MostCommon = append(sums.MostCommon, SumCount{Sum: sum, Count: count})
	}
	sort.Slice(sums.MostCommon, func(i, j int) bool {
		if sums.MostCommon[i].Count != sums.MostCommon[j].Count {
			return sums.MostCommon[i].Count > sums.MostCommon[j].Count
		}
		return sums.MostCommon[i].Sum < sums.MostCommon[j].Sum
	})
	if len(sums.MostCommon) > sumTopCount {
		sums.MostCommon = sums.MostCommon[:sumTopCount]
	}
}
