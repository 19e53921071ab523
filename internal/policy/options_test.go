package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gto-trainer/internal/cards"
	"gto-trainer/internal/policyshared"
	"gto-trainer/internal/rivalstrategy"
)

// Spec §4.7 requires every option's rationale text to literally mention the
// hero's fold-equity need, the realised equity, and the resulting EV.
func assertRationaleContract(t *testing.T, why string) {
	t.Helper()
	assert.Contains(t, why, "fold")
	assert.Contains(t, why, "equity")
	assert.Contains(t, why, "EV")
}

func TestOptionRationalesContainFoldEquityEVTerms(t *testing.T) {
	sample := []cards.Combo{cards.NewCombo(cards.Card(10), cards.Card(20))}

	assertRationaleContract(t, foldOption().Why)
	assertRationaleContract(t, callOption(1.0, 0.5, 2.0).Why)
	assertRationaleContract(t, checkOption(0.5, 5.0).Why)
	assertRationaleContract(t, checkShowdownOption(0.5, 5.0).Why)
	assertRationaleContract(t, threeBetOption(9.0, 1.0, 0.4, 0.5, 0.3, sample, []float64{0.5}, 0.3).Why)
	assertRationaleContract(t, jamOption(20.0, 1.0, 0.4, 0.5, 0.3, sample, 0.4).Why)
	assertRationaleContract(t, betOption("flop", 0.5, 2.5, 1.0, 0.4, 0.5, 0.3, sample).Why)
	assertRationaleContract(t, riverBetOption(0.5, 2.5, 1.0, 0.4, 0.5, 0.3, sample).Why)
}

func TestFoldOptionEndsHandWithZeroEV(t *testing.T) {
	o := foldOption()
	assert.True(t, o.EndsHand)
	assert.Equal(t, 0.0, o.EV)
}

func TestJamOptionEndsHandAndNeverSupportsCFR(t *testing.T) {
	sample := []cards.Combo{cards.NewCombo(cards.Card(0), cards.Card(4))}
	o := jamOption(20.0, 1.0, 0.4, 0.5, 0.3, sample, 0.4)
	assert.True(t, o.EndsHand)
	assert.Equal(t, false, o.Meta["supports_cfr"])
}

func TestEveryAggressiveOptionCarriesARivalProfile(t *testing.T) {
	sample := []cards.Combo{cards.NewCombo(cards.Card(0), cards.Card(4)), cards.NewCombo(cards.Card(8), cards.Card(12))}
	opts := map[string]*policyshared.Option{
		"3bet": threeBetOption(9.0, 1.0, 0.4, 0.5, 0.3, sample, []float64{0.5, 0.6}, 0.3),
		"jam":  jamOption(20.0, 1.0, 0.4, 0.5, 0.3, sample, 0.4),
		"bet":  betOption("flop", 0.5, 2.5, 1.0, 0.4, 0.5, 0.3, sample),
	}
	for name, o := range opts {
		t.Run(name, func(t *testing.T) {
			profile, ok := o.Meta["rival_profile"].(rivalstrategy.Profile)
			assert.True(t, ok, "rival_profile must be attached and of the right type")
			assert.NotZero(t, profile.Temperature, "profile must carry a non-zero temperature so fold sampling isn't degenerate")
			assert.NotEmpty(t, profile.Ranked)
		})
	}
}

func TestFlopFractionCandidatesDryBoardIncludesQuarterExcludesHalf(t *testing.T) {
	// A dry, disconnected board: low texture score.
	dry := boardTextureScore([]cards.Card{
		cards.Card(0),  // 2s
		cards.Card(24), // 8s... picked to keep suits/ranks spread
		cards.Card(47), // K-ish
	})
	// Deep stacks (97.5bb behind a 5bb pot): at spr <= 2.2 the medium size
	// is 0.5 regardless of texture.
	candidates := flopFractionCandidates(dry, 19.5)
	set := map[float64]bool{}
	for _, f := range candidates {
		set[f] = true
	}
	if dry < 0.45 {
		assert.True(t, set[0.25], "dry board should include the 25%% candidate")
	}
	if dry <= 0.6 {
		assert.False(t, set[0.5], "dry board should not include the 50%% candidate in the initial set")
	}
}
