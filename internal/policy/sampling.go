// Package policy implements the per-street option generator and hand-state
// resolver of spec §4.7 and §4.9.
package policy

import (
	"math"
	"math/rand"
	"sort"

	"gto-trainer/internal/cards"
	"gto-trainer/internal/episode"
	"gto-trainer/internal/equity"
	"gto-trainer/internal/rangemodel"
)

// MaxBetOptions caps the size of any aggressive-action family (spec §4.7).
const MaxBetOptions = 4

func sampleCapPreflop(mcTrials int) int {
	return clampInt(int(float64(mcTrials)*1.2), 50, 200)
}

func sampleCapPostflop(mcTrials int) int {
	return clampInt(int(float64(mcTrials)*0.6), 30, 120)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type precision struct {
	trials int
	target float64
}

func precisionFor(street string, mcTrials int) precision {
	floor := func(frac float64) int {
		v := int(frac * float64(mcTrials))
		if v < 40 {
			v = 40
		}
		return v
	}
	switch street {
	case episode.StreetPreflop:
		return precision{floor(0.55), 0.05}
	case episode.StreetFlop:
		return precision{floor(0.65), 0.04}
	case episode.StreetTurn:
		return precision{floor(0.80), 0.03}
	default: // river
		return precision{floor(0.95), 0.025}
	}
}

// blockedSet returns hero's hole cards plus the dealt board, the universe
// that can never appear in a rival combo.
func blockedSet(hero [2]cards.Card, board []cards.Card) map[cards.Card]bool {
	b := map[cards.Card]bool{hero[0]: true, hero[1]: true}
	for _, c := range board {
		b[c] = true
	}
	return b
}

// rivalRangeFor resolves the rival combo population to sample from: the
// hand-state's stored continue range if present, otherwise the range-model
// output for the requested tag, filtered by blockers (spec §4.7 step 1).
func rivalRangeFor(hs *episode.HandState, tag string, openSize float64, blocked map[cards.Card]bool) []cards.Combo {
	if len(hs.RivalContinueRange) > 0 {
		filtered := rangemodel.CombosWithoutBlockers(hs.RivalContinueRange, blocked)
		if len(filtered) > 0 {
			return filtered
		}
	}
	var ranked []cards.Combo
	if tag == "sb_open" {
		ranked = rangemodel.RivalSBOpenRange(openSize, blocked, "")
	} else {
		ranked = rangemodel.RivalBBDefendRange(openSize, blocked, "")
	}
	if len(ranked) == 0 {
		// Boundary behaviour: sampled range empty after blocker filtering ->
		// fall back to the unsampled (全 ranked, unfiltered) range.
		ranked = rangemodel.AllRanked()
	}
	return ranked
}

// stratifiedSample draws up to cap combos from population, stratified by
// combo category so each category's share of the sample matches its share
// of the population, with weighted sampling without replacement inside each
// category (spec §4.7 step 2).
func stratifiedSample(population []cards.Combo, cap int, rng *rand.Rand) []cards.Combo {
	if len(population) <= cap {
		return population
	}
	buckets := map[cards.Category][]cards.Combo{}
	for _, c := range population {
		cat := cards.CategoryOf(c)
		buckets[cat] = append(buckets[cat], c)
	}
	var out []cards.Combo
	total := len(population)
	for cat, combos := range buckets {
		share := float64(len(combos)) / float64(total)
		take := int(math.Round(share * float64(cap)))
		if take < 1 && len(combos) > 0 {
			take = 1
		}
		out = append(out, weightedSampleNoReplace(combos, take, rng)...)
		_ = cat
	}
	if len(out) > cap {
		out = out[:cap]
	}
	return out
}

// weightedSampleNoReplace weights each combo by its playability score so
// stronger holdings are mildly favoured when thinning a large population.
func weightedSampleNoReplace(combos []cards.Combo, n int, rng *rand.Rand) []cards.Combo {
	if n >= len(combos) {
		return combos
	}
	pool := append([]cards.Combo(nil), combos...)
	weights := make([]float64, len(pool))
	for i, c := range pool {
		weights[i] = rangemodel.PlayabilityScore(c) + 1
	}
	out := make([]cards.Combo, 0, n)
	for len(out) < n && len(pool) > 0 {
		var total float64
		for _, w := range weights {
			total += w
		}
		r := rng.Float64() * total
		idx := 0
		acc := 0.0
		for i, w := range weights {
			acc += w
			if r <= acc {
				idx = i
				break
			}
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return out
}

// equitiesFor evaluates hero equity against each sampled combo at the
// street's Monte Carlo precision.
func equitiesFor(eq *equity.Evaluator, hero [2]cards.Card, board []cards.Card, combos []cards.Combo, prec precision) []float64 {
	out := make([]float64, len(combos))
	for i, c := range combos {
		v, err := eq.VsCombo(hero, board, [2]cards.Card{c[0], c[1]}, prec.trials, prec.target)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out
}

func weightedMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// foldContinueStats partitions sampled combos by rival equity against the
// bet-to-call threshold be = call_cost / final_pot: combos whose rival
// equity (1 - hero equity) is below be fold; the rest continue.
func foldContinueStats(equities []float64, be float64) (fe, avgEqIfCalled, continueRatio float64) {
	if len(equities) == 0 {
		return 0, 0, 0
	}
	var foldCount, contCount int
	var contEqSum float64
	for _, eq := range equities {
		rivalEq := 1 - eq
		if rivalEq < be {
			foldCount++
		} else {
			contCount++
			contEqSum += eq
		}
	}
	total := len(equities)
	fe = float64(foldCount) / float64(total)
	continueRatio = float64(contCount) / float64(total)
	if contCount > 0 {
		avgEqIfCalled = contEqSum / float64(contCount)
	}
	return
}

// selectFractions always includes the smallest and largest candidate, then
// fills the remainder with candidates closest to {0.33,0.5,0.66,0.75,1.0,1.25}
// (spec §4.7).
func selectFractions(fractions map[float64]bool, limit int) []float64 {
	var unique []float64
	for f := range fractions {
		if f > 0 {
			unique = append(unique, f)
		}
	}
	sort.Float64s(unique)
	if len(unique) <= limit || limit <= 0 {
		return unique
	}

	selected := []float64{unique[0]}
	used := map[float64]bool{unique[0]: true}
	if limit > 1 {
		last := unique[len(unique)-1]
		selected = append(selected, last)
		used[last] = true
	}
	targets := []float64{0.33, 0.5, 0.66, 0.75, 1.0, 1.25}
	for len(selected) < limit {
		var candidate float64
		found := false
		bestDistance := math.Inf(1)
		for _, v := range unique {
			if used[v] {
				continue
			}
			for _, t := range targets {
				d := math.Abs(v - t)
				if d < bestDistance-1e-6 {
					bestDistance = d
					candidate = v
					found = true
				}
			}
			if !found {
				candidate = v
				found = true
			}
		}
		if !found {
			break
		}
		selected = append(selected, candidate)
		used[candidate] = true
	}
	sort.Float64s(selected)
	if len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
