package rangemodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gto-trainer/internal/cards"
)

func TestAllRankedCoversEveryCombo(t *testing.T) {
	ranked := AllRanked()
	assert.Len(t, ranked, 1326)
	seen := map[cards.Combo]bool{}
	for _, c := range ranked {
		assert.False(t, seen[c], "duplicate combo in ranking")
		seen[c] = true
	}
}

func TestAllRankedStrongestIsPocketAces(t *testing.T) {
	ranked := AllRanked()
	assert.Equal(t, "AA", ranked[0].String())
}

func TestTopPercentBoundaryBehaviour(t *testing.T) {
	ranked := AllRanked()
	assert.Nil(t, TopPercent(ranked, 0))
	assert.Equal(t, ranked, TopPercent(ranked, 1))
	assert.Len(t, TopPercent(ranked, 1.5), len(ranked))
	half := TopPercent(ranked, 0.5)
	assert.InDelta(t, len(ranked)/2, len(half), 1)
}

func TestRivalSBOpenRangeWidensAsOpenSizeShrinks(t *testing.T) {
	wide := RivalSBOpenRange(2.0, nil, "")
	narrow := RivalSBOpenRange(3.0, nil, "")
	assert.Greater(t, len(wide), len(narrow), "smaller opens should come from a wider range (spec §4.3 anchors)")
}

func TestRivalBBDefendRangeNarrowsAsOpenSizeGrows(t *testing.T) {
	wide := RivalBBDefendRange(2.0, nil, "")
	narrow := RivalBBDefendRange(3.0, nil, "")
	assert.Greater(t, len(wide), len(narrow))
}

func TestCombosWithoutBlockersExcludesBlockedCards(t *testing.T) {
	combos := []cards.Combo{cards.NewCombo(48, 49), cards.NewCombo(0, 4)}
	blocked := map[cards.Card]bool{48: true}
	out := CombosWithoutBlockers(combos, blocked)
	assert.Len(t, out, 1)
	assert.Equal(t, combos[1], out[0])
}

func TestRankIndexMatchesAllRankedPosition(t *testing.T) {
	ranked := AllRanked()
	idx := RankIndex(ranked[10])
	assert.Equal(t, 10, idx)
	assert.Equal(t, -1, RankIndex(cards.Combo{200, 201}))
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.NoError(t, err)
}

func TestLoadConfigOverridesDefaultAnchors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"default":{"sb_open":[{"size":2.0,"percent":0.5},{"size":3.0,"percent":0.1}],"bb_defend":[{"size":2.0,"percent":0.6}]}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, LoadConfig(path))
	t.Cleanup(func() { loadedConfig = nil })

	percent := interpolate(anchorsFor("", true), 2.0)
	assert.InDelta(t, 0.5, percent, 1e-9)
}

func TestInterpolateClampsOutsideAnchorRange(t *testing.T) {
	anchors := []anchorPoint{{2.0, 0.9}, {3.0, 0.7}}
	assert.Equal(t, 0.9, interpolate(anchors, 1.0))
	assert.Equal(t, 0.7, interpolate(anchors, 5.0))
	assert.InDelta(t, 0.8, interpolate(anchors, 2.5), 1e-9)
}
