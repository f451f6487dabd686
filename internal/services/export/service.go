// Package export assembles downloadable reports over the stored history.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/services/analysis"
	"github.com/lotterylab/lotterylab/internal/storage"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// reportLatestDraws is how many recent draws a report embeds.
const reportLatestDraws = 100

// Options selects the report scope and its sections.
type Options struct {
	GameType   string
	WindowDays int
	Frequency  bool
	Randomness bool
	Patterns   bool
	Latest     bool
}

// DefaultOptions is a full report over the whole history of a game type.
func DefaultOptions(gameType string) Options {
	return Options{
		GameType:   gameType,
		Frequency:  true,
		Randomness: true,
		Patterns:   true,
		Latest:     true,
	}
}

// Report is the assembled report payload. Sections the caller did not ask
// for, or that the history is too small for, are nil.
type Report struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	GameType    string                     `json:"game_type,omitempty"`
	TotalDraws  int                        `json:"total_draws"`
	FirstDraw   *draw.Date                 `json:"first_draw_date,omitempty"`
	LastDraw    *draw.Date                 `json:"last_draw_date,omitempty"`
	Frequency   *analysis.FrequencyResult  `json:"frequency,omitempty"`
	Randomness  *analysis.RandomnessResult `json:"randomness,omitempty"`
	Patterns    *analysis.PatternsResult   `json:"patterns,omitempty"`
	Latest      []draw.Draw                `json:"latest_draws,omitempty"`
}

// Rendered is a report serialized for download.
type Rendered struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Service builds and renders reports.
type Service struct {
	store    storage.DrawStore
	analysis *analysis.Service
	log      *logger.Logger
	now      func() time.Time
}

// New creates the export service.
func New(store storage.DrawStore, analysisSvc *analysis.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("export")
	}
	return &Service{store: store, analysis: analysisSvc, log: log, now: time.Now}
}

// Build assembles the report. An empty game type covers the whole history;
// an empty history is an error. Sections that need more draws than the
// scope holds are skipped with a warning.
func (s *Service) Build(ctx context.Context, opts Options) (Report, error) {
	query := analysis.Query{GameType: opts.GameType, WindowDays: opts.WindowDays}

	total, err := s.store.CountDraws(ctx, draw.Filter{GameType: opts.GameType})
	if err != nil {
		return Report{}, err
	}
	if total == 0 {
		return Report{}, fmt.Errorf("%w: no draws in scope", analysis.ErrInsufficientData)
	}

	report := Report{
		GeneratedAt: s.now().UTC(),
		GameType:    opts.GameType,
		TotalDraws:  total,
	}

	if opts.Frequency {
		freq, err := s.analysis.Frequency(ctx, query)
		if err != nil {
			return Report{}, err
		}
		report.Frequency = &freq
	}
	if opts.Randomness {
		randomness, err := s.analysis.Randomness(ctx, query)
		switch {
		case errors.Is(err, analysis.ErrInsufficientData):
			s.log.WithError(err).Warn("skipping randomness section")
		case err != nil:
			return Report{}, err
		default:
			report.Randomness = &randomness
		}
	}
	if opts.Patterns {
		patterns, err := s.analysis.Patterns(ctx, query)
		switch {
		case errors.Is(err, analysis.ErrInsufficientData):
			s.log.WithError(err).Warn("skipping patterns section")
		case err != nil:
			return Report{}, err
		default:
			report.Patterns = &patterns
		}
	}
	if opts.Latest {
		latest, err := s.store.ListDraws(ctx, draw.Filter{GameType: opts.GameType, Limit: reportLatestDraws})
		if err != nil {
			return Report{}, err
		}
		report.Latest = latest
		if len(latest) > 0 {
			last := latest[0].DrawDate
			report.LastDraw = &last
		}
	}

	// The oldest draw needs its own lookup; latest is capped.
	oldest, err := s.store.ListDraws(ctx, draw.Filter{GameType: opts.GameType})
	if err != nil {
		return Report{}, err
	}
	if len(oldest) > 0 {
		first := oldest[len(oldest)-1].DrawDate
		report.FirstDraw = &first
		if report.LastDraw == nil {
			last := oldest[0].DrawDate
			report.LastDraw = &last
		}
	}
	return report, nil
}

// Render serializes a report. Unsupported formats are an error.
func (s *Service) Render(report Report, format string) (Rendered, error) {
	switch format {
	case FormatJSON:
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return Rendered{}, err
		}
		return Rendered{
			Filename:    reportFilename(report, FormatJSON),
			ContentType: "application/json",
			Body:        body,
		}, nil
	case FormatCSV:
		body, err := renderCSV(report)
		if err != nil {
			return Rendered{}, err
		}
		return Rendered{
			Filename:    reportFilename(report, FormatCSV),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	default:
		return Rendered{}, fmt.Errorf("unsupported format %q", format)
	}
}

// Export builds and renders in one step.
func (s *Service) Export(ctx context.Context, opts Options, format string) (Rendered, error) {
	report, err := s.Build(ctx, opts)
	if err != nil {
		return Rendered{}, err
	}
	return s.Render(report, format)
}

func reportFilename(report Report, ext string) string {
	gameType := report.GameType
	if gameType == "" {
		gameType = "all"
	}
	return fmt.Sprintf("lottery_report_%s_%s.%s", gameType, report.GeneratedAt.Format("20060102_1504"), ext)
}

func renderCSV(report Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	write := func(records ...[]string) error {
		for _, record := range records {
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	}

	meta := [][]string{
		{"generated_at", report.GeneratedAt.Format(time.RFC3339)},
		{"game_type", report.GameType},
		{"total_draws", strconv.Itoa(report.TotalDraws)},
	}
	if report.FirstDraw != nil {
		meta = append(meta, []string{"first_draw_date", report.FirstDraw.String()})
	}
	if report.LastDraw != nil {
		meta = append(meta, []string{"last_draw_date", report.LastDraw.String()})
	}
	if err := write(meta...); err != nil {
		return nil, err
	}

	if freq := report.Frequency; freq != nil {
		if err := write(
			[]string{"hot_numbers", draw.FormatNumbers(freq.Hot)},
			[]string{"cold_numbers", draw.FormatNumbers(freq.Cold)},
			nil,
			[]string{"number", "count", "percentage", "deviation"},
		); err != nil {
			return nil, err
		}
		for _, nf := range freq.Numbers {
			record := []string{
				strconv.Itoa(nf.Number),
				strconv.Itoa(nf.Count),
				strconv.FormatFloat(nf.Percentage, 'f', 4, 64),
				strconv.FormatFloat(nf.Deviation, 'f', 4, 64),
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}

	if r := report.Randomness; r != nil {
		if err := write(
			nil,
			[]string{"test", "statistic", "p_value", "is_random"},
			[]string{"chi_square", formatFloat(r.ChiSquare.Statistic), formatFloat(r.ChiSquare.PValue), strconv.FormatBool(r.ChiSquare.Random)},
			[]string{"kolmogorov_smirnov", formatFloat(r.KolmogorovSmirnov.Statistic), formatFloat(r.KolmogorovSmirnov.PValue), strconv.FormatBool(r.KolmogorovSmirnov.Random)},
		); err != nil {
			return nil, err
		}
		for _, rt := range r.Runs {
			record := []string{
				"runs_" + rt.Kind,
				formatFloat(rt.ZScore),
				formatFloat(rt.PValue),
				strconv.FormatBool(rt.Random),
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
		if err := write(
			[]string{"entropy", formatFloat(r.Entropy.Entropy), "", ""},
			[]string{"appears_random", "", "", strconv.FormatBool(r.Summary.AppearsRandom)},
		); err != nil {
			return nil, err
		}
	}

	if p := report.Patterns; p != nil {
		if err := write(
			nil,
			[]string{"consecutive_runs", strconv.Itoa(p.Consecutive.Count)},
			[]string{"arithmetic_sequences", strconv.Itoa(p.Arithmetic.Total)},
			[]string{"sum_min", strconv.Itoa(p.Sums.Min)},
			[]string{"sum_max", strconv.Itoa(p.Sums.Max)},
		); err != nil {
			return nil, err
		}
	}

	if len(report.Latest) > 0 {
		if err := write(nil, []string{"draw_number", "draw_date", "game_type", "numbers"}); err != nil {
			return nil, err
		}
		for _, d := range report.Latest {
			record := []string{
				strconv.Itoa(d.DrawNumber),
				d.DrawDate.String(),
				d.GameType,
				draw.FormatNumbers(d.Numbers),
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
