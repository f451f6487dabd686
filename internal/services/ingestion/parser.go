// Package ingestion downloads the remote results feed, parses and validates
// it, and imports new draws into storage.
package ingestion

import (
	"bufio"
	"strconv"
	"strings"
	"time"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// feedDateLayout is the date form used by the feed, e.g. "27.01.1957".
const feedDateLayout = "02.01.2006"

// ParsedLine is one successfully decoded feed line.
type ParsedLine struct {
	DrawNumber int
	Date       draw.Date
	Numbers    []int
}

// ParseFeed decodes the feed text. Each line has the form
//
//	<draw>. <dd.mm.yyyy> <n1,n2,n3,n4,n5,n6>
//
// Lines that do not match are counted and skipped; the feed historically
// contains occasional garbage and a trailing blank line.
func ParseFeed(text string) (lines []ParsedLine, malformed int) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		line, ok := parseLine(raw)
		if !ok {
			malformed++
			continue
		}
		lines = append(lines, line)
	}
	return lines, malformed
}

func parseLine(raw string) (ParsedLine, bool) {
	fields := strings.Fields(raw)
	if len(fields) != 3 {
		return ParsedLine{}, false
	}

	drawNumber, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
	if err != nil {
		return ParsedLine{}, false
	}

	date, err := time.Parse(feedDateLayout, fields[1])
	if err != nil {
		return ParsedLine{}, false
	}

	numbers, err := draw.ParseNumbers(fields[2])
	if err != nil {
		return ParsedLine{}, false
	}

	return ParsedLine{
		DrawNumber: drawNumber,
		Date:       draw.DateOf(date),
		Numbers:    numbers,
	}, true
}
