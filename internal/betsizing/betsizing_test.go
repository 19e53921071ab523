package betsizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreflopRaiseSizesSeedsFromBaseMultipliers(t *testing.T) {
	m := New()
	sizes := m.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0)
	require.GreaterOrEqual(t, len(sizes), preflopMinCount)
	for _, s := range sizes {
		assert.Greater(t, s, 3.0, "a raise size must exceed the open it's raising")
	}
}

func TestPreflopRaiseSizesExcludeTheJamSize(t *testing.T) {
	m := New()
	// A short stack collapses the legal window down near the jam itself.
	sizes := m.PreflopRaiseSizes(3.0, 3.0, 5.0, 5.0)
	jam := 3.0 + 5.0
	for _, s := range sizes {
		assert.Less(t, s, jam-1e-9, "jam is offered separately by the option generator")
	}
}

// Regret observed above the expansion threshold on an existing size should
// grow the candidate set (spec §4.6 regret-triggered expansion).
func TestObservePreflopExpandsOnHighRegret(t *testing.T) {
	m := New()
	before := m.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0)
	target := before[0]

	m.ObservePreflop(3.0, 97.0, []Observation{{Size: target, Frequency: 0.3, Regret: 0.9}})

	after := m.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0)
	assert.Greater(t, len(after), len(before), "a high-regret size should trigger expansion")
}

// Repeated zero-frequency observations decay usage below the drop threshold
// and the manager should collapse expanded (non-baseline) sizes back out,
// never dropping below the preflop minimum count.
func TestObservePreflopCollapsesUnusedExpandedSizes(t *testing.T) {
	m := New()
	before := m.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0)
	target := before[0]
	m.ObservePreflop(3.0, 97.0, []Observation{{Size: target, Frequency: 0.3, Regret: 0.9}})
	expanded := m.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0)
	require.Greater(t, len(expanded), len(before))

	for i := 0; i < 20; i++ {
		m.ObservePreflop(3.0, 97.0, []Observation{{Size: target, Frequency: 0, Regret: 0}})
	}
	final := m.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0)
	assert.GreaterOrEqual(t, len(final), preflopMinCount)
}

func TestPostflopBetFractionsSeedsFromProvidedBase(t *testing.T) {
	m := New()
	base := []float64{0.33, 0.75}
	out := m.PostflopBetFractions("flop", "dry", base)
	assert.ElementsMatch(t, base, out)
}

func TestPostflopBetFractionsClampsToLegalRange(t *testing.T) {
	m := New()
	out := m.PostflopBetFractions("river", "wet", []float64{0, -0.2, 1.0, 3.5})
	for _, v := range out {
		assert.Greater(t, v, 0.0)
		assert.LessOrEqual(t, v, 3.0)
	}
}

// Spec §8 idempotence law: reset_bet_sizing_state followed by a fresh query
// must reproduce exactly the same baseline a brand-new manager would give.
func TestResetIsIdempotentWithAFreshManager(t *testing.T) {
	m := New()
	m.ObservePreflop(3.0, 97.0, []Observation{{Size: 8.4, Frequency: 0.9, Regret: 0.9}})
	m.ObservePostflop("flop", "dry", []Observation{{Size: 0.5, Frequency: 0.9, Regret: 0.9}})
	m.Reset()

	fresh := New()
	assert.Equal(t, fresh.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0), m.PreflopRaiseSizes(3.0, 3.0, 97.0, 97.0))
	assert.Equal(t,
		fresh.PostflopBetFractions("flop", "dry", []float64{0.33, 0.75}),
		m.PostflopBetFractions("flop", "dry", []float64{0.33, 0.75}),
	)
}
