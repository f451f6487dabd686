package analysis

import (
	"sort"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
)

// clusterChiSquareCritical is the 5% critical value at one degree of
// freedom, used to decide whether a pair co-occurs more than chance allows.
const clusterChiSquareCritical = 3.84

// Caps on the pair lists the cluster analysis reports. Partner lists are
// built from the top partnerPairCap pairs.
const (
	clusterTopPairCap = 20
	partnerPairCap    = 50
)

// ClusterPair is one number pair with its co-occurrence statistics.
type ClusterPair struct {
	A         int     `json:"a"`
	B         int     `json:"b"`
	Count     int     `json:"count"`
	Expected  float64 `json:"expected"`
	ChiSquare float64 `json:"chi_square"`
}

// ClustersResult reports which number pairs appear together more often than
// chance, and how the strongest pairs interconnect.
type ClustersResult struct {
	TotalDraws       int           `json:"total_draws"`
	SignificantPairs int           `json:"significant_pairs"`
	AvgPairFrequency float64       `json:"avg_pair_frequency"`
	TopPairs         []ClusterPair `json:"top_pairs"`
	Partners         map[int][]int `json:"partners"`
	MostConnected    int           `json:"most_connected"`
}

// computeClusters tallies pair co-occurrence, flags pairs whose chi-square
// against the hypergeometric expectation clears the 5% critical value, and
// maps the partner structure of the strongest pairs.
func computeClusters(draws []draw.Draw) ClustersResult {
	n := len(draws)
	result := ClustersResult{TotalDraws: n, Partners: map[int][]int{}}
	if n == 0 {
		return result
	}

	_, pair := presenceCounts(draws)
	poolSize := len(pair)

	// P(both a and b in one draw) = (6*5)/(49*48).
	perDraw := float64(draw.PerDraw)
	pool := float64(poolSize)
	expected := float64(n) * perDraw * (perDraw - 1) / (pool * (pool - 1))

	var pairs []ClusterPair
	countSum := 0
	for i := 0; i < poolSize; i++ {
		for j := i + 1; j < poolSize; j++ {
			count := pair[i][j]
			countSum += count
			chi2 := 0.0
			if expected > 0 {
				diff := float64(count) - expected
				chi2 = diff * diff / expected
			}
			if chi2 > clusterChiSquareCritical && float64(count) > expected {
				result.SignificantPairs++
			}
			pairs = append(pairs, ClusterPair{
				A:         i + draw.MinNumber,
				B:         j + draw.MinNumber,
				Count:     count,
				Expected:  expected,
				ChiSquare: chi2,
			})
		}
	}
	result.AvgPairFrequency = float64(countSum) / float64(len(pairs))

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	if len(pairs) > clusterTopPairCap {
		result.TopPairs = pairs[:clusterTopPairCap]
	} else {
		result.TopPairs = pairs
	}

	top := pairs
	if len(top) > partnerPairCap {
		top = top[:partnerPairCap]
	}
	degree := map[int]int{}
	for _, p := range top {
		if p.Count == 0 {
			continue
		}
		result.Partners[p.A] = append(result.Partners[p.A], p.B)
		result.Partners[p.B] = append(result.Partners[p.B], p.A)
		degree[p.A]++
		degree[p.B]++
	}
	for _, partners := range result.Partners {
		sort.Ints(partners)
	}
	for number, d := range degree {
		best := degree[result.MostConnected]
		if d > best || (d == best && (result.MostConnected == 0 || number < result.MostConnected)) {
			result.MostConnected = number
		}
	}
	return result
}
