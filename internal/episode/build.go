package episode

import (
	"fmt"
	"math/rand"

	"gto-trainer/internal/cards"
)

// Episode is an ordered sequence of four Nodes sharing one HandState
// (spec §3, §4.10).
type Episode struct {
	HeroSeat  string
	RivalSeat string
	Nodes     []*Node
	State     *HandState
}

// openSizeChoices are the three opening sizes the builder samples uniformly
// from (spec §4.10 step 2).
var openSizeChoices = []float64{2.0, 2.5, 3.0}

// Build deals a fresh hand and constructs its four nodes, per spec §4.10.
func Build(rng *rand.Rand, heroSeat string, stacks, sb, bb float64, rivalStyle string) (*Episode, error) {
	rivalSeat := RivalSeatFor(heroSeat)

	deck := cards.FullDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	hero := [2]cards.Card{deck[0], deck[1]}
	rival := [2]cards.Card{deck[2], deck[3]}
	board := append([]cards.Card{}, deck[4:9]...)

	seen := map[cards.Card]bool{}
	for _, c := range append([]cards.Card{hero[0], hero[1], rival[0], rival[1]}, board...) {
		if seen[c] {
			return nil, cards.ErrInvalidDeal
		}
		seen[c] = true
	}

	openSize := openSizeChoices[rng.Intn(len(openSizeChoices))]

	var heroBlind, rivalBlind float64
	if heroSeat == "SB" {
		heroBlind, rivalBlind = sb, bb
	} else {
		heroBlind, rivalBlind = bb, sb
	}

	state := &HandState{
		HeroStack:  stacks - heroBlind,
		RivalStack: stacks - rivalBlind,
		Street:     StreetPreflop,
		HeroCards:  hero,
		RivalCards: rival,
		FullBoard:  board,
		Nodes:      map[string]*Node{},
		RivalStyle: normalizeStyle(rivalStyle),
		StyleConst: styleConstants(rivalStyle),
	}
	state.HeroContrib = heroBlind
	state.RivalContrib = rivalBlind
	// Rival (treated as the preflop opener regardless of seat, per the
	// trainer's simplified model) tops its contribution up to open_size.
	topUp := openSize - rivalBlind
	if topUp > 0 {
		state.ApplyContribution("rival", topUp)
	} else {
		state.RecalculatePot()
		state.UpdateEffectiveStack()
	}

	ep := &Episode{HeroSeat: heroSeat, RivalSeat: rivalSeat, State: state}

	preflop := &Node{
		Street:      StreetPreflop,
		Description: fmt.Sprintf("%s opens to %.2fbb. Action on you.", rivalSeat, openSize),
		PotBB:       state.Pot,
		EffectiveBB: state.EffectiveStack,
		HeroCards:   hero,
		Board:       nil,
		Actor:       heroSeat,
		HandState:   state,
		Context: map[string]any{
			"open_size":   openSize,
			"facing":      FacingOpen,
			"hero_seat":   heroSeat,
			"rival_seat":  rivalSeat,
			"rival_range": "sb_open",
			"rival_style": state.RivalStyle,
		},
	}
	state.Nodes[StreetPreflop] = preflop

	flopBoard := board[:3]
	flop := &Node{
		Street:      StreetFlop,
		Description: fmt.Sprintf("Flop %s. %s checks to you.", formatBoard(flopBoard), rivalSeat),
		PotBB:       state.Pot,
		EffectiveBB: state.EffectiveStack,
		HeroCards:   hero,
		Board:       append([]cards.Card{}, flopBoard...),
		Actor:       heroSeat,
		HandState:   state,
		Context: map[string]any{
			"facing":      FacingOOPCheck,
			"hero_seat":   heroSeat,
			"rival_seat":  rivalSeat,
			"rival_range": "bb_defend",
			"rival_style": state.RivalStyle,
			"board_key":   boardKey(flopBoard),
		},
	}
	state.Nodes[StreetFlop] = flop

	turnBetProb := state.StyleConst["turn_bet_probability"]
	turnMode := "check"
	var turnBetSize float64
	if rng.Float64() < turnBetProb {
		turnMode = "bet"
		sizes := state.StyleConst["turn_bet_sizes"]
		if sizes == 0 {
			sizes = 0.66
		}
		turnBetSize = sizes
	}
	state.TurnMode = turnMode
	state.TurnBetSize = turnBetSize

	turnBoard := board[:4]
	turnFacing := FacingCheck
	turnDesc := fmt.Sprintf("Turn %s. %s checks to you.", formatBoard(turnBoard), rivalSeat)
	if turnMode == "bet" {
		turnFacing = FacingBet
		turnDesc = fmt.Sprintf("Turn %s. %s bets %.0f%% pot.", formatBoard(turnBoard), rivalSeat, turnBetSize*100)
	}
	turn := &Node{
		Street:      StreetTurn,
		Description: turnDesc,
		PotBB:       state.Pot,
		EffectiveBB: state.EffectiveStack,
		HeroCards:   hero,
		Board:       append([]cards.Card{}, turnBoard...),
		Actor:       heroSeat,
		HandState:   state,
		Context: map[string]any{
			"facing":      turnFacing,
			"hero_seat":   heroSeat,
			"rival_seat":  rivalSeat,
			"rival_range": "bb_defend",
			"rival_style": state.RivalStyle,
			"board_key":   boardKey(turnBoard),
		},
	}
	if turnMode == "bet" {
		turn.Context["bet"] = turnBetSize * state.Pot
	}
	state.Nodes[StreetTurn] = turn

	riverLeadProb := state.StyleConst["river_lead_probability"]
	riverMode := "check"
	var riverLeadSize float64
	if rng.Float64() < riverLeadProb {
		riverMode = "lead"
		riverLeadSize = 0.75
	}
	state.RiverMode = riverMode
	state.RiverLeadSize = riverLeadSize

	riverFacing := FacingCheck
	riverDesc := fmt.Sprintf("River %s. %s checks to you.", formatBoard(board), rivalSeat)
	if riverMode == "lead" {
		riverFacing = FacingBet
		riverDesc = fmt.Sprintf("River %s. %s bets %.0f%% pot.", formatBoard(board), rivalSeat, riverLeadSize*100)
	}
	river := &Node{
		Street:      StreetRiver,
		Description: riverDesc,
		PotBB:       state.Pot,
		EffectiveBB: state.EffectiveStack,
		HeroCards:   hero,
		Board:       append([]cards.Card{}, board...),
		Actor:       heroSeat,
		HandState:   state,
		Context: map[string]any{
			"facing":      riverFacing,
			"hero_seat":   heroSeat,
			"rival_seat":  rivalSeat,
			"rival_range": "bb_defend",
			"rival_style": state.RivalStyle,
			"board_key":   boardKey(board),
		},
	}
	if riverMode == "lead" {
		river.Context["bet"] = riverLeadSize * state.Pot
	}
	state.Nodes[StreetRiver] = river

	ep.Nodes = []*Node{preflop, flop, turn, river}
	return ep, nil
}

func normalizeStyle(style string) string {
	switch style {
	case "aggressive", "passive":
		return style
	default:
		return "balanced"
	}
}

// styleConstants returns the persona-specific tuning constants referenced by
// spec §4.10 (turn_bet_probability, turn_bet_sizes, river_lead_probability,
// turn_probe_tighten, ...).
func styleConstants(style string) map[string]float64 {
	switch normalizeStyle(style) {
	case "aggressive":
		return map[string]float64{
			"turn_bet_probability":   0.62,
			"turn_bet_sizes":         0.75,
			"river_lead_probability": 0.55,
			"turn_probe_tighten":     0.85,
		}
	case "passive":
		return map[string]float64{
			"turn_bet_probability":   0.28,
			"turn_bet_sizes":         0.5,
			"river_lead_probability": 0.25,
			"turn_probe_tighten":     1.1,
		}
	default:
		return map[string]float64{
			"turn_bet_probability":   0.45,
			"turn_bet_sizes":         0.66,
			"river_lead_probability": 0.4,
			"turn_probe_tighten":     1.0,
		}
	}
}

func formatBoard(board []cards.Card) string {
	out := ""
	for i, c := range board {
		if i > 0 {
			out += " "
		}
		out += c.Upper()
	}
	return out
}

func boardKey(board []cards.Card) string {
	cp := append([]cards.Card{}, board...)
	for i := 0; i < len(cp); i++ {
		for j := i + 1; j < len(cp); j++ {
			if cp[j].Upper() < cp[i].Upper() {
				cp[i], cp[j] = cp[j], cp[i]
			}
		}
	}
	return formatBoard(cp)
}
