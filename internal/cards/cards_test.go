package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardStringRoundTrip(t *testing.T) {
	for c := Card(0); c < 52; c++ {
		s := c.Upper()
		require.Len(t, s, 2)
		back, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, c, back, "round trip mismatch for card %d (%s)", int(c), s)
	}
}

func TestAbbrevInvariantUnderSwap(t *testing.T) {
	a, b := Card(0), Card(5) // 2s, 3h: distinct ranks and suits
	assert.Equal(t, AbbrevOf(a, b), AbbrevOf(b, a))
}

func TestCanonicalizeSuitPermutationInvariant(t *testing.T) {
	hero := [2]Card{Card(0), Card(5)}
	board := []Card{Card(8), Card(13), Card(20)}
	rival := [2]Card{Card(25), Card(30)}

	k1, err := Canonicalize(hero, board, rival)
	require.NoError(t, err)

	// Apply a suit permutation (rotate suits by 1) to every card; the
	// canonical key must be unchanged.
	rotate := func(c Card) Card { return Card(c.Rank()*4 + (c.Suit()+1)%4) }
	hero2 := [2]Card{rotate(hero[0]), rotate(hero[1])}
	board2 := make([]Card, len(board))
	for i, c := range board {
		board2[i] = rotate(c)
	}
	rival2 := [2]Card{rotate(rival[0]), rotate(rival[1])}

	k2, err := Canonicalize(hero2, board2, rival2)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestCanonicalizeRejectsDuplicateCards(t *testing.T) {
	hero := [2]Card{Card(0), Card(0)}
	_, err := Canonicalize(hero, nil, [2]Card{Card(1), Card(2)})
	assert.Error(t, err)
}
