package ingestion

import (
	"fmt"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// Validate checks a parsed line against the game rules before it is allowed
// into storage.
func Validate(line ParsedLine) error {
	if line.DrawNumber <= 0 {
		return fmt.Errorf("draw number %d must be positive", line.DrawNumber)
	}
	if len(line.Numbers) != draw.PerDraw {
		return fmt.Errorf("draw %d: expected %d numbers, got %d", line.DrawNumber, draw.PerDraw, len(line.Numbers))
	}

	seen := make(map[int]bool, draw.PerDraw)
	for _, n := range line.Numbers {
		if n < draw.MinNumber || n > draw.MaxNumber {
			return fmt.Errorf("draw %d: number %d outside range %d..%d", line.DrawNumber, n, draw.MinNumber, draw.MaxNumber)
		}
		if seen[n] {
			return fmt.Errorf("draw %d: duplicate number %d", line.DrawNumber, n)
		}
		seen[n] = true
	}

	if line.Date.After(draw.Today()) {
		return fmt.Errorf("draw %d: date %s is in the future", line.DrawNumber, line.Date)
	}
	return nil
}
