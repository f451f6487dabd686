package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

func TestConsecutiveRuns(t *testing.T) {
	runs := consecutiveRuns([]int{1, 2, 3, 10, 20, 30})
	require.Len(t, runs, 1)
	assert.Equal(t, []int{1, 2, 3}, runs[0])

	runs = consecutiveRuns([]int{4, 5, 10, 20, 30, 40})
	require.Len(t, runs, 1)
	assert.Equal(t, []int{4, 5}, runs[0])

	assert.Empty(t, consecutiveRuns([]int{1, 3, 5, 7, 9, 11}))

	runs = consecutiveRuns([]int{1, 2, 10, 11, 12, 40})
	require.Len(t, runs, 2)
	assert.Equal(t, []int{10, 11, 12}, runs[1])
}

func TestArithmeticSubsequences(t *testing.T) {
	seqs := arithmeticSubsequences([]int{5, 10, 15, 22, 31, 44})
	require.Len(t, seqs, 1)
	assert.Equal(t, []int{5, 10, 15}, seqs[0])

	// A full six-number progression yields every window of length >= 3:
	// four of length 3, three of 4, two of 5 and the progression itself.
	seqs = arithmeticSubsequences([]int{7, 14, 21, 28, 35, 42})
	require.Len(t, seqs, 10)
	assert.Equal(t, []int{7, 14, 21}, seqs[0])
	assert.Equal(t, []int{7, 14, 21, 28, 35, 42}, seqs[3])
	assert.Equal(t, []int{14, 21, 28}, seqs[4])

	assert.Empty(t, arithmeticSubsequences([]int{1, 2, 4, 8, 16, 32}))
}

func TestTallyDigits(t *testing.T) {
	digits := DigitPatterns{
		DigitCounts:        map[int]int{},
		RepeatingDigits:    map[int]int{},
		DigitSumCounts:     map[int]int{},
		DigitProductCounts: map[int]int{},
	}

	tallyDigits(44, &digits)
	assert.Equal(t, 2, digits.DigitCounts[4])
	assert.Equal(t, 1, digits.RepeatingDigits[44])
	assert.Equal(t, 1, digits.DigitSumCounts[8])
	assert.Equal(t, 1, digits.DigitProductCounts[16])

	tallyDigits(7, &digits)
	assert.Equal(t, 1, digits.DigitCounts[7])
	assert.Empty(t, digits.RepeatingDigits[7])
	assert.Equal(t, 1, digits.DigitSumCounts[7])

	tallyDigits(30, &digits)
	assert.Equal(t, 1, digits.DigitProductCounts[0])
}

func TestComputePatterns(t *testing.T) {
	date := draw.NewDate(2024, time.April, 6)
	result := computePatterns([]draw.Draw{
		drawOn(date, 1, 2, 3, 10, 20, 30),
		drawOn(date.AddDays(3), 1, 3, 5, 7, 9, 11),
	})

	assert.Equal(t, 2, result.TotalDraws)

	// Only the first draw holds a consecutive run: 1,2,3.
	assert.Equal(t, 1, result.Consecutive.Count)
	assert.Equal(t, 3, result.Consecutive.MaxLength)
	assert.InDelta(t, 3.0, result.Consecutive.AvgLength, 1e-9)
	require.Len(t, result.Consecutive.Sequences, 1)
	assert.Equal(t, []int{1, 2, 3}, result.Consecutive.Sequences[0].Sequence)

	// The first draw holds 1,2,3 and 10,20,30; the second is a six-term
	// progression with difference 2, so every window of it counts too:
	// 4+3+2+1 sequences covering 30 steps.
	assert.Equal(t, 12, result.Arithmetic.Total)
	assert.Equal(t, 2, result.Arithmetic.DifferenceCounts[1])
	assert.Equal(t, 2, result.Arithmetic.DifferenceCounts[10])
	assert.Equal(t, 30, result.Arithmetic.DifferenceCounts[2])

	// Sums are 66 and 36.
	assert.Equal(t, 36, result.Sums.Min)
	assert.Equal(t, 66, result.Sums.Max)
	assert.Equal(t, 1, result.Sums.Distribution[36])
	assert.Equal(t, 1, result.Sums.Distribution[66])
	assert.Len(t, result.Sums.MostCommon, 2)

	assert.NotEmpty(t, result.Digits.DigitCounts)
	assert.Equal(t, 1, result.Digits.RepeatingDigits[11])
}

func TestComputePatternsEmpty(t *testing.T) {
	result := computePatterns(nil)
	assert.Zero(t, result.TotalDraws)
	assert.Empty(t, result.Sums.Distribution)
	assert.Empty(t, result.Consecutive.Sequences)
}
