package episode

import (
	"gto-trainer/internal/cards"
	"gto-trainer/internal/rivalstrategy"
)

// HandState is the mutable per-hand record shared by reference across all
// four Nodes of an Episode (spec §3). Its invariants are maintained by the
// helpers below, never by direct field mutation from other packages.
type HandState struct {
	Pot            float64
	HeroContrib    float64
	RivalContrib   float64
	HeroStack      float64
	RivalStack     float64
	EffectiveStack float64

	Street     string
	BoardIndex int

	HeroCards  [2]cards.Card
	RivalCards [2]cards.Card
	FullBoard  []cards.Card

	Nodes map[string]*Node

	RivalRangeTag string // sb_open | bb_defend
	RivalStyle    string // balanced | aggressive | passive
	StyleConst    map[string]float64

	RivalContinueRange   []cards.Combo
	RivalContinueWeights []float64

	RivalAdapt rivalstrategy.AdaptState

	HandOver bool

	TurnMode      string // bet | check
	RiverMode     string // lead | check
	TurnBetSize   float64
	RiverLeadSize float64
}

// RecalculatePot updates and returns the pot from the tracked contributions
// (spec §3 invariant 1).
func (hs *HandState) RecalculatePot() float64 {
	hs.Pot = hs.HeroContrib + hs.RivalContrib
	return hs.Pot
}

// UpdateEffectiveStack refreshes the effective stack and propagates it to
// every cached node (spec §3 invariant 2 and §4.9's rebuild rules).
func (hs *HandState) UpdateEffectiveStack() float64 {
	hs.EffectiveStack = minf(hs.HeroStack, hs.RivalStack)
	for _, n := range hs.Nodes {
		n.EffectiveBB = hs.EffectiveStack
	}
	return hs.EffectiveStack
}

// ApplyContribution applies a bet/call to the given role's stack, clipping
// to what is available, and returns the amount actually applied (spec §3
// invariant 3). It always re-derives pot and effective stack afterward.
func (hs *HandState) ApplyContribution(role string, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	var stack, contrib *float64
	switch role {
	case "hero":
		stack, contrib = &hs.HeroStack, &hs.HeroContrib
	case "rival":
		stack, contrib = &hs.RivalStack, &hs.RivalContrib
	default:
		return 0
	}
	if *stack <= 0 {
		return 0
	}
	applied := amount
	if applied > *stack {
		applied = *stack
	}
	*contrib += applied
	*stack -= applied
	if *stack < 0 {
		*stack = 0
	}
	hs.RecalculatePot()
	hs.UpdateEffectiveStack()
	return applied
}

// SetStreetPot synchronises the cached node for street with the latest pot
// and effective stack (spec §4.9: rebuild rules).
func (hs *HandState) SetStreetPot(street string, pot float64) {
	n, ok := hs.Nodes[street]
	if !ok {
		return
	}
	n.PotBB = pot
	n.EffectiveBB = hs.EffectiveStack
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
