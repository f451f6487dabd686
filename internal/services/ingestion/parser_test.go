package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

func TestParseFeed(t *testing.T) {
	text := "1. 27.01.1957 8,12,31,39,43,45\n" +
		"2. 03.02.1957 5,10,11,22,25,27\n"

	lines, malformed := ParseFeed(text)
	require.Len(t, lines, 2)
	assert.Zero(t, malformed)

	assert.Equal(t, 1, lines[0].DrawNumber)
	assert.Equal(t, draw.NewDate(1957, time.January, 27), lines[0].Date)
	assert.Equal(t, []int{8, 12, 31, 39, 43, 45}, lines[0].Numbers)
}

func TestParseFeedSkipsMalformed(t *testing.T) {
	text := "1. 27.01.1957 8,12,31,39,43,45\n" +
		"garbage line here\n" +
		"3. 1957-02-10 1,2,3,4,5,6\n" + // wrong date form
		"4. 17.02.1957 1,2,x,4,5,6\n" + // non-numeric entry
		"\n" +
		"5. 24.02.1957 4,9,16,21,33,40\n"

	lines, malformed := ParseFeed(text)
	require.Len(t, lines, 2)
	assert.Equal(t, 3, malformed)
	assert.Equal(t, 5, lines[1].DrawNumber)
}

func TestParseFeedEmpty(t *testing.T) {
	lines, malformed := ParseFeed("")
	assert.Empty(t, lines)
	assert.Zero(t, malformed)
}
