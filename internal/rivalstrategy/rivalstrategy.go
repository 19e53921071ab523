// Package rivalstrategy samples whether the simulated rival folds or
// continues against a hero aggressive action, per spec §4.5.
package rivalstrategy

import (
	"math"
	"math/rand"
	"sort"

	"gto-trainer/internal/cards"
	"gto-trainer/internal/rangemodel"
)

// Profile is the lightweight metadata stored on an Option's meta describing
// the rival's expected response to a hero action.
type Profile struct {
	Ranked          []cards.Combo
	Strengths       []float64
	Ranks           map[cards.Combo]int
	FoldProbability float64
	ContinueRatio   float64
	Temperature     float64
	Noise           float64
	Total           int
	ContinueCount   int
}

// Decision is the outcome of one DecideAction sample.
type Decision struct {
	Folds bool
}

// AdaptState tracks hero's observed aggression across a hand, feeding the
// adaptation term of decide_action.
type AdaptState struct {
	Aggr    int
	Passive int
}

// BuildProfile constructs a response profile from the sampled range
// considered when the option was evaluated.
func BuildProfile(sampledRange []cards.Combo, foldProbability, continueRatio float64) Profile {
	ranked := append([]cards.Combo(nil), sampledRange...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rangemodel.PlayabilityScore(ranked[i]) > rangemodel.PlayabilityScore(ranked[j])
	})
	total := len(ranked)
	foldProbability = clamp01(foldProbability)
	continueRatio = clamp01(continueRatio)

	continueCount := int(float64(total)*continueRatio + 0.5)
	if continueCount < 0 {
		continueCount = 0
	}
	if continueCount > total {
		continueCount = total
	}
	if continueRatio > 0 && continueCount == 0 {
		continueCount = 1
	}

	strengths := make([]float64, total)
	ranks := make(map[cards.Combo]int, total)
	for i, c := range ranked {
		strengths[i] = rangemodel.PlayabilityScore(c)
		ranks[c] = i
	}

	return Profile{
		Ranked:          ranked,
		Strengths:       strengths,
		Ranks:           ranks,
		FoldProbability: foldProbability,
		ContinueRatio:   continueRatio,
		Temperature:     math.Max(0.05, 0.2*(1-continueRatio)),
		Noise:           0.05 * (1 - continueRatio),
		Total:           total,
		ContinueCount:   continueCount,
	}
}

// percentileFor returns 1.0 for the strongest combo in the profile and 0.0
// for the weakest.
func (p Profile) percentileFor(combo cards.Combo) float64 {
	if p.Total == 0 {
		return 0.5
	}
	idx, ok := p.Ranks[combo]
	if !ok {
		target := rangemodel.PlayabilityScore(combo)
		idx = p.Total - 1
		for i, s := range p.Strengths {
			if target >= s {
				idx = i
				break
			}
		}
	}
	if p.Total <= 1 {
		return 1.0
	}
	return 1.0 - float64(idx)/float64(p.Total-1)
}

// sampleCombo draws a combo from the profile biased by continue_ratio: a
// draw below continue_ratio picks from the continuing segment, otherwise
// from the tail.
func (p Profile) sampleCombo(rng *rand.Rand) (cards.Combo, bool) {
	if p.Total == 0 {
		return cards.Combo{}, false
	}
	if p.ContinueCount <= 0 || p.ContinueCount >= p.Total {
		return p.Ranked[rng.Intn(p.Total)], true
	}
	if rng.Float64() < p.ContinueRatio {
		return p.Ranked[rng.Intn(p.ContinueCount)], true
	}
	tail := p.Total - p.ContinueCount
	return p.Ranked[p.ContinueCount+rng.Intn(tail)], true
}

// DecideAction samples whether the rival folds to the hero's action. When
// rivalCards is nil the sampler draws its own combo from the profile.
func DecideAction(profile *Profile, rivalCards *cards.Combo, adapt AdaptState, rng *rand.Rand) Decision {
	if profile == nil {
		return Decision{Folds: false}
	}

	var percentile float64
	if rivalCards != nil {
		percentile = profile.percentileFor(*rivalCards)
	} else if combo, ok := profile.sampleCombo(rng); ok {
		percentile = profile.percentileFor(combo)
	} else {
		percentile = 0.5
	}

	// threshold_norm is the strength boundary implied by continue_ratio: the
	// top continue_ratio share of the (percentile) population continues.
	thresholdNorm := 1.0 - profile.ContinueRatio
	biasScale := math.Min(0.6, math.Max(0.2, profile.FoldProbability+0.2))
	shift := math.Tanh((thresholdNorm-percentile)/profile.Temperature) * biasScale

	sampleWeight := math.Min(1.0, float64(adapt.Aggr+adapt.Passive)/10.0)
	adaptation := clampAbs(0.14*math.Log(float64(adapt.Aggr+1)/float64(adapt.Passive+1)), 0.35) * sampleWeight

	foldProb := profile.FoldProbability + shift + adaptation
	if profile.Noise > 0 {
		jitter := (rng.Float64()*2 - 1) * profile.Noise
		foldProb += jitter
	}
	foldProb = clamp01(foldProb)

	draw := rng.Float64()
	return Decision{Folds: draw < foldProb}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampAbs(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}
