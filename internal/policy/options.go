package policy

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gto-trainer/internal/betsizing"
	"gto-trainer/internal/cards"
	"gto-trainer/internal/episode"
	"gto-trainer/internal/equity"
	"gto-trainer/internal/policyshared"
	"gto-trainer/internal/preflopmix"
	"gto-trainer/internal/rivalstrategy"
)

// Generator wires the collaborators the option generator reads, per the
// data-flow paragraph of spec §2 ("reads Range, Preflop mix, Equity,
// Bet-sizing; writes profiles").
type Generator struct {
	Equity    *equity.Evaluator
	BetSizing *betsizing.Manager
}

// New returns a Generator over the given process-wide (or test-local)
// collaborators.
func New(eq *equity.Evaluator, bs *betsizing.Manager) *Generator {
	return &Generator{Equity: eq, BetSizing: bs}
}

// OptionsFor builds the option menu for node at the given mc_trials budget.
func (g *Generator) OptionsFor(node *episode.Node, mcTrials int, rng *rand.Rand) []*policyshared.Option {
	switch node.Street {
	case episode.StreetPreflop:
		return g.preflopOptions(node, mcTrials, rng)
	case episode.StreetFlop:
		return g.flopOptions(node, mcTrials, rng)
	case episode.StreetTurn:
		return g.turnOptions(node, mcTrials, rng)
	default:
		return g.riverOptions(node, mcTrials, rng)
	}
}

// --- preflop ---------------------------------------------------------------

func (g *Generator) preflopOptions(node *episode.Node, mcTrials int, rng *rand.Rand) []*policyshared.Option {
	hs := node.HandState
	openSize := node.Context["open_size"].(float64)
	blocked := blockedSet(hs.HeroCards, nil)
	population := rivalRangeFor(hs, "sb_open", openSize, blocked)
	cap := sampleCapPreflop(mcTrials)
	sample := stratifiedSample(population, cap, rng)
	prec := precisionFor(episode.StreetPreflop, mcTrials)
	equities := equitiesFor(g.Equity, hs.HeroCards, nil, sample, prec)
	avgEq := weightedMean(equities)

	var options []*policyshared.Option

	options = append(options, foldOption())

	callCost := openSize - hs.HeroContrib
	potIfCalled := hs.Pot + callCost
	callEV := avgEq*potIfCalled - (1-avgEq)*callCost
	options = append(options, callOption(callEV, avgEq, callCost))

	raiseSizes := g.BetSizing.PreflopRaiseSizes(openSize, hs.HeroContrib, hs.HeroStack, hs.RivalStack)
	jamTo := hs.HeroContrib + math.Min(hs.HeroStack, hs.RivalStack)

	fractionsLimit := MaxBetOptions
	if len(raiseSizes) > fractionsLimit {
		raiseSizes = raiseSizes[:fractionsLimit]
	}
	var observations []betsizing.Observation
	for _, raiseTo := range raiseSizes {
		heroInvest := raiseTo - hs.HeroContrib
		betCost := raiseTo - openSize // rival's additional cost to call hero's 3-bet
		be := betCost / (hs.Pot + heroInvest + betCost)
		fe, eqCall, contRatio := foldContinueStats(equities, be)
		evCalled := eqCall*(hs.Pot+heroInvest+betCost) - heroInvest
		ev := fe*hs.Pot + (1-fe)*evCalled
		opt := threeBetOption(raiseTo, ev, fe, eqCall, contRatio, sample, equities, be)
		options = append(options, opt)
		observations = append(observations, betsizing.Observation{Size: raiseTo, Frequency: 1.0 / float64(len(raiseSizes)), Regret: math.Abs(ev - callEV)})
	}
	g.BetSizing.ObservePreflop(openSize, hs.EffectiveStack, observations)

	jamHeroInvest := jamTo - hs.HeroContrib
	jamBetCost := jamTo - openSize
	jamBe := jamBetCost / (hs.Pot + jamHeroInvest + jamBetCost)
	jamFe, jamEqCall, jamContRatio := foldContinueStats(equities, jamBe)
	jamEVCalled := jamEqCall*(hs.Pot+jamHeroInvest+jamBetCost) - jamHeroInvest
	jamEV := jamFe*hs.Pot + (1-jamFe)*jamEVCalled
	options = append(options, jamOption(jamTo, jamEV, jamFe, jamEqCall, jamContRatio, sample, jamFe))

	heroCombo := cards.NewCombo(hs.HeroCards[0], hs.HeroCards[1])
	solverMix := preflopmix.ActionProfileForCombo(heroCombo, openSize, blocked)
	for _, o := range options {
		if o.Meta == nil {
			o.Meta = map[string]any{}
		}
		o.Meta["street"] = episode.StreetPreflop
		o.Meta["combo_trials"] = prec.trials
		o.Meta["target_std_error"] = prec.target
		o.Meta["solver_mix"] = solverMix
	}
	return options
}

// --- flop --------------------------------------------------------------

func (g *Generator) flopOptions(node *episode.Node, mcTrials int, rng *rand.Rand) []*policyshared.Option {
	hs := node.HandState
	blocked := blockedSet(hs.HeroCards, node.Board)
	population := rivalRangeFor(hs, "bb_defend", openSizeOf(node), blocked)
	cap := sampleCapPostflop(mcTrials)
	sample := stratifiedSample(population, cap, rng)
	prec := precisionFor(episode.StreetFlop, mcTrials)
	equities := equitiesFor(g.Equity, hs.HeroCards, node.Board, sample, prec)
	avgEq := weightedMean(equities)

	var options []*policyshared.Option
	options = append(options, checkOption(avgEq, hs.Pot))

	spr := hs.EffectiveStack / math.Max(hs.Pot, 1e-6)
	texture := boardTextureScore(node.Board)
	candidates := flopFractionCandidates(texture, spr)
	fracMap := map[float64]bool{}
	for _, f := range candidates {
		fracMap[f] = true
	}
	fractions := selectFractions(fracMap, MaxBetOptions)

	var observations []betsizing.Observation
	for _, frac := range fractions {
		bet := frac * hs.Pot
		be := bet / (hs.Pot + 2*bet)
		fe, eqCall, contRatio := foldContinueStats(equities, be)
		finalPot := hs.Pot + 2*bet
		evCalled := eqCall*finalPot - bet
		ev := fe*hs.Pot + (1-fe)*evCalled
		opt := betOption(episode.StreetFlop, frac, bet, ev, fe, eqCall, contRatio, sample)
		options = append(options, opt)
		observations = append(observations, betsizing.Observation{Size: frac, Frequency: 1.0 / float64(len(fractions)), Regret: math.Abs(ev - avgEq*hs.Pot)})
	}
	g.BetSizing.ObservePostflop(episode.StreetFlop, boardTextureKey(texture), observations)

	for _, o := range options {
		o.Meta["street"] = episode.StreetFlop
		o.Meta["combo_trials"] = prec.trials
		o.Meta["target_std_error"] = prec.target
	}
	return options
}

// --- turn ----------------------------------------------------------------

func (g *Generator) turnOptions(node *episode.Node, mcTrials int, rng *rand.Rand) []*policyshared.Option {
	hs := node.HandState
	facing, _ := node.Context["facing"].(string)
	if facing == episode.FacingBet {
		return g.vsBetOptions(node, mcTrials, rng, episode.StreetTurn)
	}

	blocked := blockedSet(hs.HeroCards, node.Board)
	population := rivalRangeFor(hs, "bb_defend", openSizeOf(node), blocked)
	cap := sampleCapPostflop(mcTrials)
	sample := stratifiedSample(population, cap, rng)
	prec := precisionFor(episode.StreetTurn, mcTrials)
	equities := equitiesFor(g.Equity, hs.HeroCards, node.Board, sample, prec)
	avgEq := weightedMean(equities)

	var options []*policyshared.Option
	options = append(options, checkOption(avgEq, hs.Pot))

	spr := hs.EffectiveStack / math.Max(hs.Pot, 1e-6)
	texture := boardTextureScore(node.Board)
	candidates := turnProbeCandidates(texture, spr)
	fracMap := map[float64]bool{}
	for _, f := range candidates {
		fracMap[f] = true
	}
	fractions := selectFractions(fracMap, MaxBetOptions)

	var observations []betsizing.Observation
	for _, frac := range fractions {
		bet := frac * hs.Pot
		be := bet / (hs.Pot + 2*bet)
		fe, eqCall, contRatio := foldContinueStats(equities, be)
		finalPot := hs.Pot + 2*bet
		evCalled := eqCall*finalPot - bet
		ev := fe*hs.Pot + (1-fe)*evCalled
		opt := betOption(episode.StreetTurn, frac, bet, ev, fe, eqCall, contRatio, sample)
		options = append(options, opt)
		observations = append(observations, betsizing.Observation{Size: frac, Frequency: 1.0 / float64(len(fractions)), Regret: math.Abs(ev - avgEq*hs.Pot)})
	}
	g.BetSizing.ObservePostflop(episode.StreetTurn, boardTextureKey(texture), observations)
	for _, o := range options {
		o.Meta["street"] = episode.StreetTurn
		o.Meta["combo_trials"] = prec.trials
		o.Meta["target_std_error"] = prec.target
	}
	return options
}

// --- river -----------------------------------------------------------------

func (g *Generator) riverOptions(node *episode.Node, mcTrials int, rng *rand.Rand) []*policyshared.Option {
	hs := node.HandState
	facing, _ := node.Context["facing"].(string)
	if facing == episode.FacingBet {
		return g.riverVsBetOptions(node, mcTrials, rng)
	}

	blocked := blockedSet(hs.HeroCards, node.Board)
	population := rivalRangeFor(hs, "bb_defend", openSizeOf(node), blocked)
	cap := sampleCapPostflop(mcTrials)
	sample := stratifiedSample(population, cap, rng)
	prec := precisionFor(episode.StreetRiver, mcTrials)
	equities := equitiesFor(g.Equity, hs.HeroCards, node.Board, sample, prec)
	avgEq := weightedMean(equities)

	var options []*policyshared.Option
	options = append(options, checkShowdownOption(avgEq, hs.Pot))

	spr := hs.EffectiveStack / math.Max(hs.Pot, 1e-6)
	texture := boardTextureScore(node.Board)
	candidates := riverLeadCandidates(texture, spr)
	fracMap := map[float64]bool{}
	for _, f := range candidates {
		fracMap[f] = true
	}
	fractions := selectFractions(fracMap, MaxBetOptions)

	var observations []betsizing.Observation
	for _, frac := range fractions {
		bet := frac * hs.Pot
		be := bet / (hs.Pot + bet)
		fe, eqCall, contRatio := foldContinueStats(equities, be)
		evCalled := eqCall*(hs.Pot+bet) - (1-eqCall)*bet
		ev := fe*hs.Pot + (1-fe)*evCalled
		opt := riverBetOption(frac, bet, ev, fe, eqCall, contRatio, sample)
		options = append(options, opt)
		observations = append(observations, betsizing.Observation{Size: frac, Frequency: 1.0 / float64(len(fractions)), Regret: math.Abs(ev - avgEq*hs.Pot)})
	}
	g.BetSizing.ObservePostflop(episode.StreetRiver, boardTextureKey(texture), observations)
	for _, o := range options {
		o.Meta["street"] = episode.StreetRiver
		o.Meta["combo_trials"] = prec.trials
		o.Meta["target_std_error"] = prec.target
	}
	return options
}

// vsBetOptions builds the turn (non-river) response menu to a facing bet:
// fold, call, jam.
func (g *Generator) vsBetOptions(node *episode.Node, mcTrials int, rng *rand.Rand, street string) []*policyshared.Option {
	hs := node.HandState
	bet, _ := node.Context["bet"].(float64)
	blocked := blockedSet(hs.HeroCards, node.Board)
	population := rivalRangeFor(hs, "bb_defend", openSizeOf(node), blocked)
	cap := sampleCapPostflop(mcTrials)
	sample := stratifiedSample(population, cap, rng)
	prec := precisionFor(street, mcTrials)
	equities := equitiesFor(g.Equity, hs.HeroCards, node.Board, sample, prec)
	avgEq := weightedMean(equities)

	var options []*policyshared.Option
	options = append(options, foldOption())

	callCost := bet
	potIfCalled := hs.Pot + callCost
	callEV := avgEq*potIfCalled - (1-avgEq)*callCost
	options = append(options, callOption(callEV, avgEq, callCost))

	jamTo := math.Min(hs.HeroStack, hs.RivalStack)
	if jamTo > 0 {
		heroInvest := jamTo
		be := (jamTo - bet) / (hs.Pot + jamTo + (jamTo - bet))
		fe, eqCall, contRatio := foldContinueStats(equities, be)
		evCalled := eqCall*(hs.Pot+heroInvest+jamTo) - heroInvest
		ev := fe*hs.Pot + (1-fe)*evCalled
		options = append(options, jamOption(hs.HeroContrib+jamTo, ev, fe, eqCall, contRatio, sample, fe))
	}

	for _, o := range options {
		o.Meta["street"] = street
		o.Meta["combo_trials"] = prec.trials
		o.Meta["target_std_error"] = prec.target
	}
	return options
}

// riverVsBetOptions handles the river-specific facing-bet menu, which adds a
// check-raise-jam split per spec §4.7.
func (g *Generator) riverVsBetOptions(node *episode.Node, mcTrials int, rng *rand.Rand) []*policyshared.Option {
	hs := node.HandState
	bet, _ := node.Context["bet"].(float64)
	blocked := blockedSet(hs.HeroCards, node.Board)
	population := rivalRangeFor(hs, "bb_defend", openSizeOf(node), blocked)
	cap := sampleCapPostflop(mcTrials)
	sample := stratifiedSample(population, cap, rng)
	prec := precisionFor(episode.StreetRiver, mcTrials)
	equities := equitiesFor(g.Equity, hs.HeroCards, node.Board, sample, prec)
	avgEq := weightedMean(equities)

	var options []*policyshared.Option
	options = append(options, foldOption())

	callCost := bet
	callEV := avgEq*(hs.Pot+callCost) - (1-avgEq)*callCost
	options = append(options, callOption(callEV, avgEq, callCost))

	jamAmt := math.Min(hs.HeroStack, hs.RivalStack)
	if jamAmt > 0 {
		be := (jamAmt - bet) / (hs.Pot + jamAmt + (jamAmt - bet))
		fe, eqCall, contRatio := foldContinueStats(equities, be)
		// Split the continuing mass into a calling share and a check-raise
		// jam share: a flat topJamFraction of that mass, valued with the same
		// continuing-range equity as the calling share (spec §4.7 river bet
		// rule; the split ratio is the tunable of spec §9 open question (a)).
		const topJamFraction = 0.25
		callShare := contRatio * (1 - topJamFraction)
		jamMass := contRatio * topJamFraction
		evCalled := eqCall*(hs.Pot+callCost) - (1-eqCall)*callCost
		heroCallEVvsJam := eqCall*(hs.Pot+jamAmt) - (1-eqCall)*jamAmt
		ev := fe*hs.Pot + callShare*evCalled + jamMass*math.Max(-bet, heroCallEVvsJam)
		opt := jamOption(hs.HeroContrib+jamAmt, ev, fe, eqCall, contRatio, sample, fe)
		opt.Meta["rival_raise_ratio"] = jamMass
		options = append(options, opt)
	}

	for _, o := range options {
		o.Meta["street"] = episode.StreetRiver
		o.Meta["combo_trials"] = prec.trials
		o.Meta["target_std_error"] = prec.target
	}
	return options
}

func openSizeOf(node *episode.Node) float64 {
	if v, ok := node.Context["open_size"].(float64); ok {
		return v
	}
	return 2.5
}

// --- option constructors -----------------------------------------------

func foldOption() *policyshared.Option {
	return &policyshared.Option{
		Key:      "fold",
		EV:       0,
		Why:      "Folding forfeits the pot with zero further risk; no fold equity needed and EV is exactly 0.00bb by definition.",
		EndsHand: true,
		Meta: map[string]any{
			"action": "fold",
		},
	}
}

func callOption(ev, eq, callCost float64) *policyshared.Option {
	return &policyshared.Option{
		Key: "call",
		EV:  ev,
		Why: fmt.Sprintf("Calling %.2fbb needs no fold equity; it realises roughly %.0f%% equity against the continuing range, for an EV of %.2fbb.", callCost, eq*100, ev),
		Meta: map[string]any{
			"action":     "call",
			"call_cost":  callCost,
			"supports_cfr": false,
		},
	}
}

func checkOption(eq, pot float64) *policyshared.Option {
	return &policyshared.Option{
		Key: "check",
		EV:  eq * pot,
		Why: fmt.Sprintf("Checking realises roughly %.0f%% equity with no fold equity on offer; EV is %.2fbb with the pot staying put.", eq*100, eq*pot),
		Meta: map[string]any{
			"action":       "check",
			"supports_cfr": false,
		},
	}
}

func checkShowdownOption(eq, pot float64) *policyshared.Option {
	o := checkOption(eq, pot)
	o.EndsHand = true
	o.Meta["ends_street"] = "showdown"
	return o
}

func threeBetOption(raiseTo, ev, fe, eqCall, contRatio float64, sample []cards.Combo, equities []float64, be float64) *policyshared.Option {
	profile := rivalstrategy.BuildProfile(sample, fe, contRatio)
	return &policyshared.Option{
		Key: fmt.Sprintf("3bet_%.2f", raiseTo),
		EV:  ev,
		Why: fmt.Sprintf("3-betting to %.2fbb needs about %.0f%% fold equity; the rival folds roughly %.0f%% here and continues with %.0f%% equity, for an EV of %.2fbb.", raiseTo, be*100, fe*100, eqCall*100, ev),
		Meta: map[string]any{
			"action":              "3bet",
			"raise_to":            raiseTo,
			"rival_threshold":     be,
			"rival_fe":            fe,
			"rival_continue_ratio": contRatio,
			"rival_profile":       profile,
			"supports_cfr":        true,
			"hero_ev_fold":        0.0,
			"hero_ev_continue":    ev,
		},
	}
}

func jamOption(jamTo, ev, fe, eqCall, contRatio float64, sample []cards.Combo, fold float64) *policyshared.Option {
	profile := rivalstrategy.BuildProfile(sample, fold, contRatio)
	return &policyshared.Option{
		Key:      "jam",
		EV:       ev,
		EndsHand: true,
		Why:      fmt.Sprintf("Jamming to %.2fbb needs fold equity to show a profit; the rival folds about %.0f%% of the time and continues with %.0f%% equity, for an EV of %.2fbb.", jamTo, fe*100, eqCall*100, ev),
		Meta: map[string]any{
			"action":              "jam",
			"raise_to":            jamTo,
			"rival_fe":            fe,
			"rival_continue_ratio": contRatio,
			"rival_profile":       profile,
			"supports_cfr":        false,
		},
	}
}

func betOption(street string, frac, bet, ev, fe, eqCall, contRatio float64, sample []cards.Combo) *policyshared.Option {
	profile := rivalstrategy.BuildProfile(sample, fe, contRatio)
	// A pure bluff of frac*pot breaks even when the rival folds frac/(1+frac).
	needFE := frac / (1 + frac)
	return &policyshared.Option{
		Key: fmt.Sprintf("bet_%.0f", frac*100),
		EV:  ev,
		Why: fmt.Sprintf("Betting %.0f%% pot needs roughly %.0f%% fold equity; it gets about %.0f%% here and the continuing range has %.0f%% equity, for an EV of %.2fbb.", frac*100, needFE*100, fe*100, eqCall*100, ev),
		Meta: map[string]any{
			"action":              "bet",
			"street":              street,
			"bet":                 bet,
			"sizing_fraction":     frac,
			"rival_fe":            fe,
			"rival_continue_ratio": contRatio,
			"rival_profile":       profile,
			"supports_cfr":        true,
			"hero_ev_fold":        0.0,
			"hero_ev_continue":    ev,
		},
	}
}

func riverBetOption(frac, bet, ev, fe, eqCall, contRatio float64, sample []cards.Combo) *policyshared.Option {
	o := betOption(episode.StreetRiver, frac, bet, ev, fe, eqCall, contRatio, sample)
	o.EndsHand = true
	o.Meta["ends_street"] = "showdown_or_fold"
	return o
}

// --- board texture / sizing candidate helpers ---------------------------

// boardTextureScore is a crude wetness proxy in [0,1]: higher means wetter
// (more straight/flush draw potential).
func boardTextureScore(board []cards.Card) float64 {
	if len(board) == 0 {
		return 0.5
	}
	suitCounts := map[int]int{}
	ranks := make([]int, 0, len(board))
	for _, c := range board {
		suitCounts[c.Suit()]++
		ranks = append(ranks, c.Rank())
	}
	flushy := 0
	for _, n := range suitCounts {
		if n >= 3 {
			flushy = 1
		}
	}
	sort.Ints(ranks)
	spread := 0
	if len(ranks) > 1 {
		spread = ranks[len(ranks)-1] - ranks[0]
	}
	connected := 0.0
	if spread <= 4 {
		connected = 1.0 - float64(spread)/4.0
	}
	score := 0.4*float64(flushy) + 0.6*connected
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func boardTextureKey(score float64) string {
	return fmt.Sprintf("tex_%.1f", math.Round(score*10)/10)
}

func flopFractionCandidates(texture, spr float64) []float64 {
	out := map[float64]bool{}
	if texture < 0.45 {
		out[0.25] = true
	}
	out[0.33] = true
	if texture > 0.6 {
		out[0.5] = true
	}
	medium := 0.5
	if spr > 2.2 {
		medium = 0.66
	}
	out[medium] = true
	out[0.75] = true
	if spr > 3.2 {
		out[1.0] = true
	}
	if spr > 4.5 && texture < 0.35 {
		out[1.15] = true
	}
	return keysOf(out)
}

func turnProbeCandidates(texture, spr float64) []float64 {
	out := map[float64]bool{0.5: true}
	if texture < 0.55 {
		out[0.4] = true
	}
	if spr > 2.0 {
		out[0.75] = true
	} else {
		out[0.6] = true
	}
	if spr > 3.5 {
		out[1.0] = true
	}
	return keysOf(out)
}

func riverLeadCandidates(texture, spr float64) []float64 {
	out := map[float64]bool{0.5: true, 0.85: true}
	if spr > 1.6 {
		out[1.0] = true
	}
	if spr > 2.8 {
		out[1.35] = true
	}
	if texture < 0.4 && spr > 3.5 {
		out[1.6] = true
	}
	return keysOf(out)
}

func keysOf(m map[float64]bool) []float64 {
	out := make([]float64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

