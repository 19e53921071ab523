// Package scoring grades decisions against the best available option and
// summarises a session's record stream (spec §4.12).
package scoring

import "math"

// Record is one logged decision: the chosen and best options' EVs plus the
// enclosing context needed to grade it.
type Record struct {
	HandIndex  int
	Street     string
	ChosenKey  string
	ChosenEV   float64
	BestKey    string
	BestEV     float64
	WorstEV    float64
	RoomEV     float64
	PotBB      float64
	HandEnded  bool
	OutOfPolicy bool
}

const (
	evNoiseFloorBase = 0.02
	evNoiseFloorPct  = 0.0025
	evDecay          = 2.0

	ratioNoiseFloorBase = 0.003
	ratioNoiseFloorPct  = 0.00075
	ratioNoiseFloorCap  = 0.99
	ratioDecay          = 20.0

	redBandDecay = 18.0
)

// DecisionLossRatio is max(0, best-chosen) normalised by pot, falling back
// to room_ev then to max(|best|,|chosen|) when pot is negligible.
func DecisionLossRatio(r Record) float64 {
	loss := math.Max(0, r.BestEV-r.ChosenEV)
	denom := r.PotBB
	if denom <= 1e-6 {
		denom = r.RoomEV
	}
	if denom <= 1e-6 {
		denom = math.Max(math.Abs(r.BestEV), math.Abs(r.ChosenEV))
	}
	if denom <= 1e-6 {
		return 0
	}
	return loss / denom
}

func evNoiseFloor(pot float64) float64 {
	return evNoiseFloorBase + evNoiseFloorPct*pot
}

func ratioNoiseFloor(pot float64) float64 {
	return math.Min(ratioNoiseFloorCap, ratioNoiseFloorBase+ratioNoiseFloorPct*pot)
}

func decayedScore(x, noiseFloor, decay float64) float64 {
	return 100 * math.Exp(-decay*math.Max(0, x-noiseFloor))
}

// DecisionScore is min(score_ev, score_ratio), each a noise-floored
// exponential decay of the raw EV loss / loss ratio.
func DecisionScore(r Record) float64 {
	evLoss := math.Max(0, r.BestEV-r.ChosenEV)
	scoreEV := decayedScore(evLoss, evNoiseFloor(r.PotBB), evDecay)
	scoreRatio := decayedScore(DecisionLossRatio(r), ratioNoiseFloor(r.PotBB), ratioDecay)
	return math.Min(scoreEV, scoreRatio)
}

// DecisionAccuracy is 1.0 inside the noise floor, falls linearly to 0.5
// through the yellow band, then decays exponentially to 0 through the red
// band; 0 when the choice is out-of-policy and best is not.
func DecisionAccuracy(r Record) float64 {
	if r.OutOfPolicy && r.BestKey != r.ChosenKey {
		return 0
	}
	ratio := DecisionLossRatio(r)
	floor := ratioNoiseFloor(r.PotBB)
	if ratio <= floor {
		return 1.0
	}
	yellowCeiling := math.Max(0.05*r.PotBB, 0.35)
	if ratio <= yellowCeiling {
		span := yellowCeiling - floor
		if span <= 1e-9 {
			return 0.5
		}
		frac := (ratio - floor) / span
		return 1.0 - 0.5*frac
	}
	redExcess := ratio - yellowCeiling
	return 0.5 * math.Exp(-redBandDecay*redExcess)
}

// EffectiveEV applies the scoring guard of spec §4.9: a CFR-refined EV may
// never grade worse than the closed-form baseline it refined.
func EffectiveEV(optionEV float64, baselineEV *float64) float64 {
	if baselineEV == nil {
		return optionEV
	}
	return math.Max(optionEV, *baselineEV)
}

// Summary is the pot-weighted aggregate over a record stream.
type Summary struct {
	Hands          int
	Decisions      int
	Hits           int
	EVLost         float64
	Score          float64
	AccuracyPoints float64
	AvgEVLost      float64
	AvgLossPct     float64
}

// SummarizeRecords computes pot-weighted averages of loss ratio and
// decision score, plus hit count, accuracy points, decision count, and the
// number of distinct hand indices.
func SummarizeRecords(records []Record) Summary {
	var s Summary
	hands := map[int]bool{}
	var potWeight, scoreWeighted, ratioWeighted float64

	for _, r := range records {
		hands[r.HandIndex] = true
		s.Decisions++
		loss := math.Max(0, r.BestEV-r.ChosenEV)
		s.EVLost += loss
		score := DecisionScore(r)
		ratio := DecisionLossRatio(r)
		weight := math.Max(r.PotBB, 1e-6)
		potWeight += weight
		scoreWeighted += score * weight
		ratioWeighted += ratio * weight
		s.AccuracyPoints += DecisionAccuracy(r)
		if r.ChosenKey == r.BestKey {
			s.Hits++
		}
	}

	s.Hands = len(hands)
	if s.Decisions > 0 {
		s.AvgEVLost = s.EVLost / float64(s.Decisions)
	}
	if potWeight > 0 {
		s.Score = scoreWeighted / potWeight
		s.AvgLossPct = ratioWeighted / potWeight
	}
	return s
}

// ConservationDiagnostics is the CI-facing check that refined EVs and
// stored records haven't drifted: sum(best) - sum(chosen) - sum(ev_loss)
// should sit within tol of zero.
type ConservationDiagnostics struct {
	Delta          float64
	WithinTolerance bool
}

func EVConservationDiagnostics(records []Record, tol float64) ConservationDiagnostics {
	var bestSum, chosenSum, lossSum float64
	for _, r := range records {
		bestSum += r.BestEV
		chosenSum += r.ChosenEV
		lossSum += math.Max(0, r.BestEV-r.ChosenEV)
	}
	delta := bestSum - chosenSum - lossSum
	return ConservationDiagnostics{Delta: delta, WithinTolerance: math.Abs(delta) <= tol}
}
