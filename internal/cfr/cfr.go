// Package cfr implements the local counterfactual-regret-minimisation
// refiner of spec §4.8: vanilla regret-matching over a small two-player
// zero-sum normal-form subgame built from Option.meta.
package cfr

import (
	"math"

	"gto-trainer/internal/policyshared"
)

// Config controls the iteration schedule.
type Config struct {
	Iterations             int
	MinimumActions          int
	ExtraIterationsPerAction int
}

// DefaultConfig matches the reference engine: base 200 iterations, minimum
// 2 hero actions, 120 extra iterations per action above the minimum.
func DefaultConfig() Config {
	return Config{Iterations: 200, MinimumActions: 2, ExtraIterationsPerAction: 120}
}

// Backend runs the refiner.
type Backend struct {
	Config Config
	Name   string
}

// New returns a refiner using DefaultConfig.
func New() *Backend {
	return &Backend{Config: DefaultConfig(), Name: "local_cfr_v1"}
}

// Refine rewrites the EV/frequency of every eligible option in place and
// returns the (possibly unmodified) slice.
func (b *Backend) Refine(options []*policyshared.Option) []*policyshared.Option {
	type eligible struct {
		idx int
		opt *policyshared.Option
	}
	var elig []eligible
	for i, o := range options {
		if supportsCFR(o) {
			elig = append(elig, eligible{i, o})
		}
	}
	if len(elig) < b.Config.MinimumActions {
		return options
	}

	matrix, rivalActions := extractPayoffs(elig)
	if matrix == nil {
		return options
	}
	numActions := len(matrix)
	numRival := len(matrix[0])

	heroRegret := make([]float64, numActions)
	heroStratSum := make([]float64, numActions)
	rivalRegret := make([]float64, numRival)
	rivalStratSum := make([]float64, numRival)

	extraActions := numActions - b.Config.MinimumActions
	if extraActions < 0 {
		extraActions = 0
	}
	iterations := b.Config.Iterations + extraActions*b.Config.ExtraIterationsPerAction
	if iterations < 1 {
		iterations = 1
	}

	for iter := 0; iter < iterations; iter++ {
		heroStrategy := regretMatching(heroRegret)
		rivalStrategy := regretMatching(rivalRegret)

		for i := range heroStratSum {
			heroStratSum[i] += heroStrategy[i]
		}
		for j := range rivalStratSum {
			rivalStratSum[j] += rivalStrategy[j]
		}

		heroUtil := make([]float64, numActions)
		for i := 0; i < numActions; i++ {
			var sum float64
			for j := 0; j < numRival; j++ {
				sum += matrix[i][j] * rivalStrategy[j]
			}
			heroUtil[i] = sum
		}
		var heroExpected float64
		for i := 0; i < numActions; i++ {
			heroExpected += heroStrategy[i] * heroUtil[i]
		}
		for i := 0; i < numActions; i++ {
			heroRegret[i] += heroUtil[i] - heroExpected
		}

		rivalPayoff := make([]float64, numRival)
		for j := 0; j < numRival; j++ {
			var sum float64
			for i := 0; i < numActions; i++ {
				sum += -matrix[i][j] * heroStrategy[i]
			}
			rivalPayoff[j] = sum
		}
		var rivalExpected float64
		for j := 0; j < numRival; j++ {
			rivalExpected += rivalStrategy[j] * rivalPayoff[j]
		}
		for j := 0; j < numRival; j++ {
			rivalRegret[j] += rivalPayoff[j] - rivalExpected
		}
	}

	heroAvg := normalise(heroStratSum)
	rivalAvg := normalise(rivalStratSum)

	adjustedValues := make([]float64, numActions)
	for i := 0; i < numActions; i++ {
		var sum float64
		for j := 0; j < numRival; j++ {
			sum += matrix[i][j] * rivalAvg[j]
		}
		adjustedValues[i] = sum
	}

	rivalMix := make(map[string]float64, len(rivalActions))
	for j, label := range rivalActions {
		rivalMix[label] = rivalAvg[j]
	}

	var sumHeroAvg float64
	for _, v := range heroAvg {
		sumHeroAvg += v
	}

	maxHeroRegret := 0.0
	for _, r := range heroRegret {
		if math.Abs(r) > maxHeroRegret {
			maxHeroRegret = math.Abs(r)
		}
	}
	maxRivalRegret := 0.0
	for _, r := range rivalRegret {
		if math.Abs(r) > maxRivalRegret {
			maxRivalRegret = math.Abs(r)
		}
	}

	for i, e := range elig {
		opt := e.opt
		if opt.Meta == nil {
			opt.Meta = map[string]any{}
		}
		if _, ok := opt.Meta["baseline_ev"]; !ok {
			opt.Meta["baseline_ev"] = opt.EV
		}
		opt.Meta["cfr_backend"] = b.Name
		opt.Meta["cfr_iterations"] = iterations
		opt.Meta["cfr_probability"] = heroAvg[i]
		opt.Meta["cfr_rival_mix"] = rivalMix
		opt.Meta["cfr_regret"] = heroRegret[i]
		opt.Meta["cfr_avg_ev"] = adjustedValues[i]
		opt.Meta["cfr_validation"] = validation(maxHeroRegret, maxRivalRegret, sumHeroAvg, matrix)
		opt.GTOFreq = &heroAvg[i]
		opt.EV = adjustedValues[i]
	}

	return options
}

func validation(heroExploit, rivalExploit, sumHeroAvg float64, matrix [][]float64) map[string]any {
	var flags []string
	zeroSumDeviation := 0.0
	// Rival payoffs are the negation of the hero matrix by construction, so
	// zero_sum_deviation is always 0. The checks made are that the averaged
	// hero strategy sums to 1 and that every payoff is finite.
	if math.Abs(sumHeroAvg-1) > 1e-6 {
		flags = append(flags, "cfr_strategy_not_normalised")
	}
	for _, row := range matrix {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				flags = append(flags, "cfr_non_zero_sum_payoffs")
			}
		}
	}
	return map[string]any{
		"hero_exploitability":  heroExploit,
		"rival_exploitability": rivalExploit,
		"zero_sum_deviation":   zeroSumDeviation,
		"flags":                flags,
	}
}

func supportsCFR(o *policyshared.Option) bool {
	if o.Meta == nil {
		return false
	}
	supports, _ := o.Meta["supports_cfr"].(bool)
	if !supports {
		return false
	}
	if _, ok := o.Meta["cfr_payoffs"]; ok {
		return true
	}
	_, hasFold := o.Meta["hero_ev_fold"]
	_, hasCont := o.Meta["hero_ev_continue"]
	return hasFold && hasCont
}

func extractPayoffs(elig []struct {
	idx int
	opt *policyshared.Option
}) ([][]float64, []string) {
	type rowInfo struct {
		labels []string
		values []float64
	}
	var rows []rowInfo
	var labelsOrder []string
	seen := map[string]bool{}

	for _, e := range elig {
		meta := e.opt.Meta
		var labels []string
		var values []float64
		if payoffs, ok := meta["cfr_payoffs"].(map[string]any); ok {
			rawLabels, _ := payoffs["rival_actions"].([]string)
			heroVals, _ := payoffs["hero"].([]float64)
			if rawLabels == nil || heroVals == nil {
				return nil, nil
			}
			labels = rawLabels
			values = heroVals
		} else {
			foldEV, okF := meta["hero_ev_fold"].(float64)
			contEV, okC := meta["hero_ev_continue"].(float64)
			if !okF || !okC || math.IsNaN(foldEV) || math.IsNaN(contEV) {
				return nil, nil
			}
			labels = []string{"fold", "continue"}
			values = []float64{foldEV, contEV}
		}
		rows = append(rows, rowInfo{labels: labels, values: values})
		for _, l := range labels {
			if !seen[l] {
				seen[l] = true
				labelsOrder = append(labelsOrder, l)
			}
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Reorder so "fold" is first.
	for i, l := range labelsOrder {
		if l == "fold" {
			labelsOrder = append(labelsOrder[:i], labelsOrder[i+1:]...)
			labelsOrder = append([]string{"fold"}, labelsOrder...)
			break
		}
	}

	matrix := make([][]float64, len(rows))
	for ri, row := range rows {
		valueMap := make(map[string]float64, len(row.labels))
		for i, l := range row.labels {
			valueMap[l] = row.values[i]
		}
		out := make([]float64, len(labelsOrder))
		for ci, label := range labelsOrder {
			if v, ok := valueMap[label]; ok {
				out[ci] = v
			} else if label == "jam" {
				if v, ok := valueMap["call"]; ok {
					out[ci] = v
				} else {
					out[ci] = valueMap["fold"]
				}
			} else if label == "continue" {
				if v, ok := valueMap["call"]; ok {
					out[ci] = v
				} else {
					out[ci] = valueMap["fold"]
				}
			} else {
				out[ci] = valueMap["fold"]
			}
		}
		matrix[ri] = out
	}
	return matrix, labelsOrder
}

func regretMatching(regrets []float64) []float64 {
	out := make([]float64, len(regrets))
	var total float64
	for i, r := range regrets {
		if r > 0 {
			out[i] = r
			total += r
		}
	}
	if total <= 1e-12 {
		uniform := 1.0 / float64(len(regrets))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func normalise(stratSum []float64) []float64 {
	var total float64
	for _, v := range stratSum {
		total += v
	}
	out := make([]float64, len(stratSum))
	if total <= 1e-12 {
		uniform := 1.0 / float64(len(stratSum))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i, v := range stratSum {
		out[i] = v / total
	}
	return out
}
