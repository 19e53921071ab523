package equity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gto-trainer/internal/cards"
)

// Spec §8 invariant 2: with a full five-card board, equity must land exactly
// on one of {0, 0.5, 1} (no partial outcome possible at showdown).
func TestFullBoardEquityIsWinLoseOrTie(t *testing.T) {
	eval := New()

	t.Run("tie when both hands play the board", func(t *testing.T) {
		board := []cards.Card{48, 45, 42, 39, 32} // As Kh Qd Jc Ts: broadway on board
		hero := [2]cards.Card{3, 7}                // 2c 3c, doesn't improve on the board
		rival := [2]cards.Card{8, 12}              // 4s 5s, doesn't improve on the board
		eq, err := eval.VsCombo(hero, board, rival, 0, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, eq, 1e-9)
	})

	t.Run("win for the dominant pocket pair", func(t *testing.T) {
		board := []cards.Card{2, 13, 27, 38, 8} // 2d 5h 8c Jd 4s, no pairs/straights/flushes
		hero := [2]cards.Card{48, 49}           // As Ah
		rival := [2]cards.Card{44, 45}          // Ks Kh
		eq, err := eval.VsCombo(hero, board, rival, 0, 0)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, eq, 1e-9)
	})
}

func TestVsComboRejectsOversizedBoard(t *testing.T) {
	eval := New()
	board := []cards.Card{0, 4, 8, 12, 16, 20}
	_, err := eval.VsCombo([2]cards.Card{48, 49}, board, [2]cards.Card{44, 45}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidBoard)
}

// Spec §8: pre-flop equity is produced by adaptive Monte Carlo and must stay
// within the probability simplex; a big pocket pair should heavily favour
// hero against a weak offsuit hand.
func TestPreflopMonteCarloEquityIsPlausibleAndBounded(t *testing.T) {
	eval := New()
	hero := [2]cards.Card{48, 49}  // As Ah
	rival := [2]cards.Card{8, 17} // 4s 6h
	eq, err := eval.VsCombo(hero, nil, rival, 400, 0.03)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, eq, 0.0)
	assert.LessOrEqual(t, eq, 1.0)
	assert.Greater(t, eq, 0.7, "AA should be a heavy favourite over a weak offsuit hand")
}

func TestVsComboCachesRepeatedQueries(t *testing.T) {
	eval := New()
	hero := [2]cards.Card{48, 49}
	rival := [2]cards.Card{44, 45}
	board := []cards.Card{2, 13, 27, 38, 8}
	first, err := eval.VsCombo(hero, board, rival, 0, 0)
	require.NoError(t, err)
	second, err := eval.VsCombo(hero, board, rival, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, eval.cache.ll.Len())
}

func TestVsRangeAveragesAcrossCombos(t *testing.T) {
	eval := New()
	hero := [2]cards.Card{48, 49}
	board := []cards.Card{2, 13, 27, 38, 8}
	combos := [][2]cards.Card{{44, 45}, {44, 45}}
	avg, err := eval.VsRange(hero, board, combos, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, avg, 1e-9)
}

func TestVsRangeEmptyRangeReturnsZero(t *testing.T) {
	eval := New()
	avg, err := eval.VsRange([2]cards.Card{48, 49}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}

func TestLRUCacheEvictsOldestEntryAtCapacity(t *testing.T) {
	c := newLRUCache(2)
	c.put(cacheKey{canon: "a"}, 1)
	c.put(cacheKey{canon: "b"}, 2)
	c.put(cacheKey{canon: "c"}, 3) // evicts "a"

	_, ok := c.get(cacheKey{canon: "a"})
	assert.False(t, ok)
	v, ok := c.get(cacheKey{canon: "b"})
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	v, ok = c.get(cacheKey{canon: "c"})
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}
