// Package draw holds the core domain model: one historical lottery result
// and the helpers shared by ingestion, storage and analysis.
package draw

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Limits of the number pool. Every draw consists of PerDraw unique numbers
// between MinNumber and MaxNumber inclusive.
const (
	MinNumber = 1
	MaxNumber = 49
	PerDraw   = 6
)

// Draw is one historical lottery result.
type Draw struct {
	ID           int64    `json:"id"`
	DrawNumber   int      `json:"draw_number"`
	DrawDate     Date     `json:"draw_date"`
	GameType     string   `json:"game_type"`
	GameProvider string   `json:"game_provider,omitempty"`
	Numbers      []int    `json:"numbers"`
	Jackpot      *float64 `json:"jackpot,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Filter narrows draw queries. Zero values mean "no constraint"; Limit <= 0
// returns all matching rows.
type Filter struct {
	GameType     string
	GameProvider string
	DateFrom     *Date
	DateTo       *Date
	Limit        int
	Offset       int
}

// ImportRun records one ingestion run against the remote feed.
type ImportRun struct {
	ID          int64     `json:"id"`
	SourceURL   string    `json:"source_url"`
	SHA256      string    `json:"sha256"`
	ArchiveFile string    `json:"archive_file,omitempty"`
	Inserted    int       `json:"inserted"`
	Skipped     int       `json:"skipped"`
	MaxBefore   int       `json:"max_existing"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParseNumbers decodes the comma-separated wire/storage form of a number set.
func ParseNumbers(csv string) ([]int, error) {
	parts := strings.Split(csv, ",")
	numbers := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", part, err)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// FormatNumbers encodes a number set into its comma-separated storage form.
func FormatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// SortedCopy returns the numbers in ascending order without mutating the input.
func SortedCopy(numbers []int) []int {
	out := make([]int, len(numbers))
	copy(out, numbers)
	sort.Ints(out)
	return out
}

// NormalizeGameType maps game labels onto the canonical slugs used in
// storage. Unknown labels are slugified as-is.
func NormalizeGameType(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "lotto plus", "plus", "lotto_plus":
		return "lotto_plus"
	case "lotto":
		return "lotto"
	case "mini lotto", "minilotto", "mini_lotto":
		return "mini_lotto"
	}
	return strings.ReplaceAll(v, " ", "_")
}
