// Package generator produces quick-pick tickets weighted by the recent
// frequency profile of the game.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/services/analysis"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Category weights. Hot and neutral numbers are favored; cold numbers stay
// in the mix so tickets do not collapse onto the same few numbers.
const (
	hotWeight     = 0.4
	neutralWeight = 0.4
	coldWeight    = 0.2
)

// maxTickets caps one generation request.
const maxTickets = 20

// frequencyWindowDays is the trailing window the hot/cold profile is built
// from. Histories without draws inside the window fall back to all of it.
const frequencyWindowDays = 365

// Ticket is one generated number set with the categories it drew from.
type Ticket struct {
	Numbers []int `json:"numbers"`
	Hot     int   `json:"hot"`
	Neutral int   `json:"neutral"`
	Cold    int   `json:"cold"`
}

// Result is a generation response: the tickets plus the hot and cold sets
// the weighting used.
type Result struct {
	GameType     string   `json:"game_type,omitempty"`
	BasedOnDraws int      `json:"based_on_draws"`
	Hot          []int    `json:"hot"`
	Cold         []int    `json:"cold"`
	Tickets      []Ticket `json:"tickets"`
}

// Service generates tickets.
type Service struct {
	analysis *analysis.Service
	rng      *rand.Rand
	log      *logger.Logger
}

// New creates the generator. rng may be nil; a time-seeded source is used
// then. Tests pass a fixed-seed source for determinism.
func New(analysisSvc *analysis.Service, rng *rand.Rand, log *logger.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = logger.NewDefault("generator")
	}
	return &Service{analysis: analysisSvc, rng: rng, log: log}
}

// Generate produces count tickets for the game type, weighting number
// selection by the hot and cold lists of the trailing year.
func (s *Service) Generate(ctx context.Context, gameType string, count int) (Result, error) {
	if count <= 0 {
		count = 1
	}
	if count > maxTickets {
		return Result{}, fmt.Errorf("at most %d tickets per request", maxTickets)
	}

	freq, err := s.analysis.Frequency(ctx, analysis.Query{GameType: gameType, WindowDays: frequencyWindowDays})
	if errors.Is(err, analysis.ErrInsufficientData) {
		freq, err = s.analysis.Frequency(ctx, analysis.Query{GameType: gameType})
	}
	if err != nil {
		return Result{}, err
	}

	hot := make(map[int]bool, len(freq.Hot))
	for _, n := range freq.Hot {
		hot[n] = true
	}
	cold := make(map[int]bool, len(freq.Cold))
	for _, n := range freq.Cold {
		cold[n] = true
	}

	result := Result{
		GameType:     gameType,
		BasedOnDraws: freq.TotalDraws,
		Hot:          freq.Hot,
		Cold:         freq.Cold,
		Tickets:      make([]Ticket, count),
	}
	for i := range result.Tickets {
		result.Tickets[i] = s.pickTicket(hot, cold)
	}
	return result, nil
}

func (s *Service) pickTicket(hot, cold map[int]bool) Ticket {
	var hotPool, coldPool, neutralPool []int
	for n := draw.MinNumber; n <= draw.MaxNumber; n++ {
		switch {
		case hot[n]:
			hotPool = append(hotPool, n)
		case cold[n]:
			coldPool = append(coldPool, n)
		default:
			neutralPool = append(neutralPool, n)
		}
	}

	var ticket Ticket
	picked := make(map[int]bool, draw.PerDraw)
	for len(ticket.Numbers) < draw.PerDraw {
		var pool *[]int
		roll := s.rng.Float64()
		switch {
		case roll < hotWeight && len(hotPool) > 0:
			pool = &hotPool
		case roll < hotWeight+coldWeight && len(coldPool) > 0:
			pool = &coldPool
		case len(neutralPool) > 0:
			pool = &neutralPool
		case len(hotPool) > 0:
			pool = &hotPool
		default:
			pool = &coldPool
		}

		idx := s.rng.Intn(len(*pool))
		n := (*pool)[idx]
		(*pool) = append((*pool)[:idx], (*pool)[idx+1:]...)
		if picked[n] {
			continue
		}
		picked[n] = true
		ticket.Numbers = append(ticket.Numbers, n)
		switch {
		case hot[n]:
			ticket.Hot++
		case cold[n]:
			ticket.Cold++
		default:
			ticket.Neutral++
		}
	}

	ticket.Numbers = draw.SortedCopy(ticket.Numbers)
	return ticket
}
