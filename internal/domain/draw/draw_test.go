package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumbers(t *testing.T) {
	numbers, err := ParseNumbers("8,12,31,39,43,45")
	require.NoError(t, err)
	assert.Equal(t, []int{8, 12, 31, 39, 43, 45}, numbers)

	numbers, err = ParseNumbers(" 1 , 2 ,3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, numbers)

	_, err = ParseNumbers("1,2,x")
	assert.Error(t, err)
}

func TestFormatNumbersRoundTrip(t *testing.T) {
	original := []int{3, 7, 11, 23, 41, 44}
	parsed, err := ParseNumbers(FormatNumbers(original))
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestSortedCopy(t *testing.T) {
	input := []int{44, 3, 23, 7, 41, 11}
	sorted := SortedCopy(input)
	assert.Equal(t, []int{3, 7, 11, 23, 41, 44}, sorted)
	// Input stays untouched.
	assert.Equal(t, []int{44, 3, 23, 7, 41, 11}, input)
}

func TestNormalizeGameType(t *testing.T) {
	assert.Equal(t, "lotto", NormalizeGameType("Lotto"))
	assert.Equal(t, "lotto_plus", NormalizeGameType("Lotto Plus"))
	assert.Equal(t, "lotto_plus", NormalizeGameType("plus"))
	assert.Equal(t, "mini_lotto", NormalizeGameType("Mini Lotto"))
	assert.Equal(t, "euro_jackpot", NormalizeGameType("Euro Jackpot"))
	assert.Empty(t, NormalizeGameType(""))
}
