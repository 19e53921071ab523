package episode

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducesFourNodesSharingOneHandState(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	ep, err := Build(rng, "BB", 100, 0.5, 1.0, "balanced")
	require.NoError(t, err)

	require.Len(t, ep.Nodes, 4)
	assert.Equal(t, []string{StreetPreflop, StreetFlop, StreetTurn, StreetRiver}, StreetOrder)
	for i, n := range ep.Nodes {
		assert.Equal(t, StreetOrder[i], n.Street)
		assert.Same(t, ep.State, n.HandState)
	}
}

func TestBuildDealsNoDuplicateCards(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ep, err := Build(rng, "SB", 100, 0.5, 1.0, "aggressive")
	require.NoError(t, err)

	seen := map[string]bool{}
	all := append([]string{}, ep.State.HeroCards[0].Upper(), ep.State.HeroCards[1].Upper())
	all = append(all, ep.State.RivalCards[0].Upper(), ep.State.RivalCards[1].Upper())
	for _, c := range ep.State.FullBoard {
		all = append(all, c.Upper())
	}
	require.Len(t, all, 9)
	for _, c := range all {
		assert.False(t, seen[c], "duplicate card %s in deal", c)
		seen[c] = true
	}
}

func TestBuildMaintainsPotAndEffectiveStackInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ep, err := Build(rng, "BB", 100, 0.5, 1.0, "passive")
	require.NoError(t, err)

	s := ep.State
	assert.Equal(t, s.HeroContrib+s.RivalContrib, s.Pot)
	assert.Equal(t, minf(s.HeroStack, s.RivalStack), s.EffectiveStack)
}

func TestBuildRejectsUnknownRivalStyleAsBalanced(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ep, err := Build(rng, "BB", 100, 0.5, 1.0, "unknown-style")
	require.NoError(t, err)
	assert.Equal(t, "balanced", ep.State.RivalStyle)
}
