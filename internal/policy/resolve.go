package policy

import (
	"math"
	"math/rand"

	"gto-trainer/internal/cards"
	"gto-trainer/internal/episode"
	"gto-trainer/internal/policyshared"
	"gto-trainer/internal/rivalstrategy"
)

// Resolution is the outcome of applying a chosen option to a hand (spec §4.9).
type Resolution struct {
	HandEnded   bool
	Note        string
	RevealRival bool
}

// ResolveFor applies chosen to node.HandState according to meta.action,
// adjusting contributions (pot and effective stack, with the new effective
// stack copied onto the cached nodes), sampling the rival response, and
// updating the rival continue range/adaptation counters. It does not change
// hs.Street or hs.BoardIndex, and downstream nodes keep the pot and
// description they were built with.
func (g *Generator) ResolveFor(node *episode.Node, chosen *policyshared.Option, rng *rand.Rand) Resolution {
	hs := node.HandState
	if hs.HandOver {
		return Resolution{HandEnded: true, Note: "Hand already over."}
	}
	action, _ := chosen.Meta["action"].(string)

	switch action {
	case "fold":
		hs.HandOver = true
		hs.RivalContinueRange = nil
		return Resolution{HandEnded: true, Note: "You folded; the rival takes down the pot."}

	case "check":
		hs.RecalculatePot()
		hs.UpdateEffectiveStack()
		if node.Street == episode.StreetRiver {
			hs.HandOver = true
			outcome := g.showdownOutcome(hs)
			return Resolution{HandEnded: true, Note: showdownNote(outcome), RevealRival: true}
		}
		recordAdapt(hs, false)
		return Resolution{HandEnded: false, Note: "You check; action moves to the next street."}

	case "call":
		callCost, _ := chosen.Meta["call_cost"].(float64)
		hs.ApplyContribution("hero", callCost)
		recordAdapt(hs, false)
		if node.Street == episode.StreetRiver {
			hs.HandOver = true
			outcome := g.showdownOutcome(hs)
			return Resolution{HandEnded: true, Note: showdownNote(outcome), RevealRival: true}
		}
		return Resolution{HandEnded: false, Note: "You call; action moves to the next street."}

	case "bet", "3bet":
		return g.resolveAggressive(node, chosen, rng, false)

	case "jam":
		return g.resolveAggressive(node, chosen, rng, true)

	default:
		return Resolution{HandEnded: false, Note: "No action applied."}
	}
}

func (g *Generator) resolveAggressive(node *episode.Node, chosen *policyshared.Option, rng *rand.Rand, isJam bool) Resolution {
	hs := node.HandState

	var heroTarget float64
	if isJam {
		heroTarget = hs.HeroContrib + math.Min(hs.HeroStack, hs.RivalStack)
	} else if raiseTo, ok := chosen.Meta["raise_to"].(float64); ok {
		heroTarget = raiseTo
	} else if bet, ok := chosen.Meta["bet"].(float64); ok {
		heroTarget = hs.HeroContrib + bet
	}
	heroInvest := heroTarget - hs.HeroContrib
	hs.ApplyContribution("hero", heroInvest)
	recordAdapt(hs, true)

	profile, _ := chosen.Meta["rival_profile"].(rivalstrategy.Profile)
	decision := rivalstrategy.DecideAction(&profile, &cards.Combo{hs.RivalCards[0], hs.RivalCards[1]}, hs.RivalAdapt, rng)

	if decision.Folds {
		hs.HandOver = true
		hs.RivalContinueRange = nil
		return Resolution{HandEnded: true, Note: "The rival folds; you win the pot.", RevealRival: false}
	}

	callCost := heroTarget - hs.RivalContrib
	hs.ApplyContribution("rival", callCost)

	if profile.ContinueCount > 0 {
		hs.RivalContinueRange = append([]cards.Combo(nil), profile.Ranked[:profile.ContinueCount]...)
	}

	if isJam || node.Street == episode.StreetRiver {
		hs.HandOver = true
		outcome := g.showdownOutcome(hs)
		return Resolution{HandEnded: true, Note: showdownNote(outcome), RevealRival: true}
	}

	return Resolution{HandEnded: false, Note: "The rival calls; action moves to the next street.", RevealRival: false}
}

func recordAdapt(hs *episode.HandState, aggressive bool) {
	if aggressive {
		hs.RivalAdapt.Aggr++
	} else {
		hs.RivalAdapt.Passive++
	}
}

// showdownOutcome asks the equity evaluator for the exact result (1 / 0.5 /
// 0) of the fully-dealt board between hero and the rival's actual holding.
func (g *Generator) showdownOutcome(hs *episode.HandState) float64 {
	outcome, err := g.Equity.VsCombo(hs.HeroCards, hs.FullBoard, hs.RivalCards, 1, 0)
	if err != nil {
		return 0.5
	}
	return outcome
}

func showdownNote(outcome float64) string {
	switch outcome {
	case 1:
		return "Showdown: you win the pot."
	case 0:
		return "Showdown: the rival wins the pot."
	default:
		return "Showdown: the pot is chopped."
	}
}
