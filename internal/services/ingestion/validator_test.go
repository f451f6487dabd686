package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

func validLine() ParsedLine {
	return ParsedLine{
		DrawNumber: 100,
		Date:       draw.NewDate(2020, time.June, 6),
		Numbers:    []int{1, 9, 17, 25, 33, 49},
	}
}

func TestValidateAccepts(t *testing.T) {
	assert.NoError(t, Validate(validLine()))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ParsedLine)
	}{
		{"zero draw number", func(l *ParsedLine) { l.DrawNumber = 0 }},
		{"too few numbers", func(l *ParsedLine) { l.Numbers = l.Numbers[:5] }},
		{"too many numbers", func(l *ParsedLine) { l.Numbers = append(l.Numbers, 2) }},
		{"number below range", func(l *ParsedLine) { l.Numbers[0] = 0 }},
		{"number above range", func(l *ParsedLine) { l.Numbers[5] = 50 }},
		{"duplicate number", func(l *ParsedLine) { l.Numbers[1] = l.Numbers[0] }},
		{"future date", func(l *ParsedLine) { l.Date = draw.Today().AddDays(1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line := validLine()
			line.Numbers = append([]int(nil), line.Numbers...)
			tc.mutate(&line)
			assert.Error(t, Validate(line))
		})
	}
}
