package rivalstrategy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gto-trainer/internal/cards"
)

func sampleRange() []cards.Combo {
	return []cards.Combo{
		cards.NewCombo(48, 49), // AA
		cards.NewCombo(44, 45), // KK
		cards.NewCombo(0, 4),   // 32s
		cards.NewCombo(8, 17),  // weak offsuit
	}
}

func TestBuildProfileTemperatureNeverZero(t *testing.T) {
	for _, ratio := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		p := BuildProfile(sampleRange(), 0.3, ratio)
		assert.Greater(t, p.Temperature, 0.0, "ratio=%v", ratio)
	}
}

func TestBuildProfileClampsInputsAndCounts(t *testing.T) {
	p := BuildProfile(sampleRange(), 1.5, -0.5)
	assert.Equal(t, 1.0, p.FoldProbability)
	assert.Equal(t, 0.0, p.ContinueRatio)
	assert.Equal(t, 0, p.ContinueCount)

	p2 := BuildProfile(sampleRange(), 0.2, 0.01)
	assert.GreaterOrEqual(t, p2.ContinueCount, 1, "a positive continue ratio must keep at least one combo continuing")
}

func TestPercentileForStrongestAndWeakestCombo(t *testing.T) {
	r := sampleRange()
	p := BuildProfile(r, 0.3, 0.5)
	strongest := p.Ranked[0]
	weakest := p.Ranked[len(p.Ranked)-1]
	assert.InDelta(t, 1.0, p.percentileFor(strongest), 1e-9)
	assert.InDelta(t, 0.0, p.percentileFor(weakest), 1e-9)
}

func TestDecideActionNilProfileNeverFolds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := DecideAction(nil, nil, AdaptState{}, rng)
	assert.False(t, d.Folds)
}

// Higher continue_ratio should produce a lower observed fold rate across many
// independent samples, holding everything else fixed.
func TestDecideActionFoldRateDecreasesWithContinueRatio(t *testing.T) {
	r := sampleRange()
	low := BuildProfile(r, 0.3, 0.1)
	high := BuildProfile(r, 0.3, 0.9)

	const n = 2000
	foldRate := func(p Profile) float64 {
		rng := rand.New(rand.NewSource(7))
		folds := 0
		for i := 0; i < n; i++ {
			if DecideAction(&p, nil, AdaptState{}, rng).Folds {
				folds++
			}
		}
		return float64(folds) / n
	}

	assert.Less(t, foldRate(high), foldRate(low))
}

func TestDecideActionKnownRivalCardsUsesPercentile(t *testing.T) {
	r := sampleRange()
	p := BuildProfile(r, 0.2, 0.25)
	strongest := p.Ranked[0]
	weakest := p.Ranked[len(p.Ranked)-1]

	rng := rand.New(rand.NewSource(3))
	strongFolds, weakFolds := 0, 0
	for i := 0; i < 500; i++ {
		if DecideAction(&p, &strongest, AdaptState{}, rng).Folds {
			strongFolds++
		}
		if DecideAction(&p, &weakest, AdaptState{}, rng).Folds {
			weakFolds++
		}
	}
	require.Greater(t, weakFolds, strongFolds, "the weakest combo in the range should fold more often than the strongest")
}

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
	assert.Equal(t, 0.35, clampAbs(10, 0.35))
	assert.Equal(t, -0.35, clampAbs(-10, 0.35))
	assert.Equal(t, 0.1, clampAbs(0.1, 0.35))
}
