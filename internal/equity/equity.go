// Package equity implements the Monte Carlo / exact-enumeration hero equity
// evaluator described in spec §4.2: exact enumeration once the board has at
// least three cards, adaptive Monte Carlo otherwise, both keyed through an
// LRU cache on the suit-canonicalised deal.
package equity

import (
	"fmt"
	"math"
	"math/rand"

	poker "github.com/paulhankin/poker"
	"github.com/rs/zerolog/log"

	"gto-trainer/internal/cards"
)

const (
	minMonteTrials   = 0
	maxMonteTrials   = 1000
	monteChunk       = 150
	targetStdError   = 0.025
	cacheCapacity    = 50_000
)

// ErrInvalidBoard is returned when a board carries more than five cards.
var ErrInvalidBoard = fmt.Errorf("invalid board: more than 5 cards")

// Evaluator is the process-wide (or test-local) equity engine. It owns the
// LRU cache described in spec §5 ("equity LRU cache ... process-wide
// read-mostly cache with interior mutability and its own lock").
type Evaluator struct {
	cache *lruCache
}

// New returns a fresh Evaluator with an empty cache, suitable as the
// production singleton or a fresh per-test instance (spec §9: "encapsulate
// each [cache] behind an explicit handle passed to the engine by the host").
func New() *Evaluator {
	return &Evaluator{cache: newLRUCache(cacheCapacity)}
}

type cacheKey struct {
	canon      string
	trials     int
	stdErrQ    int64
}

// VsCombo is hero's equity (win probability, half credit for ties) against a
// single known rival combo. trials is the Monte Carlo floor used when the
// board has fewer than three cards; target is the desired standard error,
// defaulting to 0.025 when zero.
func (e *Evaluator) VsCombo(hero [2]cards.Card, board []cards.Card, rival [2]cards.Card, trials int, target float64) (float64, error) {
	if len(board) > 5 {
		return 0, ErrInvalidBoard
	}
	if target <= 0 {
		target = targetStdError
	}
	canon, err := cards.Canonicalize(hero, board, rival)
	if err != nil {
		return 0, err
	}
	key := cacheKey{canon: canonString(canon), trials: trials, stdErrQ: int64(target * 1e4)}
	if v, ok := e.cache.get(key); ok {
		return v, nil
	}

	var result float64
	if len(board) >= 3 {
		result = enumerateExact(canon.Hero, canon.Board, canon.Rival)
	} else {
		seed := int64(hashKey(key))
		rng := rand.New(rand.NewSource(seed))
		result = adaptiveMonteCarlo(canon.Hero, canon.Board, canon.Rival, trials, target, rng)
	}
	e.cache.put(key, result)
	return result, nil
}

// VsRange is the unweighted mean of VsCombo over combos.
func (e *Evaluator) VsRange(hero [2]cards.Card, board []cards.Card, combos [][2]cards.Card, trials int) (float64, error) {
	if len(combos) == 0 {
		return 0, nil
	}
	var total float64
	for _, rival := range combos {
		v, err := e.VsCombo(hero, board, rival, trials, 0)
		if err != nil {
			log.Warn().Err(err).Msg("equity: skipping illegal combo in range evaluation")
			continue
		}
		total += v
	}
	return total / float64(len(combos)), nil
}

func canonString(k cards.CanonicalKey) string {
	buf := make([]byte, 0, 24)
	for _, c := range k.Hero {
		buf = append(buf, byte(c))
	}
	for _, c := range k.Board {
		buf = append(buf, byte(c))
	}
	for _, c := range k.Rival {
		buf = append(buf, byte(c))
	}
	return string(buf)
}

func hashKey(k cacheKey) uint64 {
	h := uint64(1469598103934665603) // FNV offset basis
	for i := 0; i < len(k.canon); i++ {
		h ^= uint64(k.canon[i])
		h *= 1099511628211
	}
	h ^= uint64(k.trials)
	h *= 1099511628211
	h ^= uint64(k.stdErrQ)
	h *= 1099511628211
	return h
}

func toPHCard(c cards.Card) poker.Card {
	var s poker.Suit
	switch cards.Suits[c.Suit()] {
	case 's':
		s = poker.Spade
	case 'h':
		s = poker.Heart
	case 'd':
		s = poker.Diamond
	case 'c':
		s = poker.Club
	}
	// cards.Card rank 0..12 (deuce..ace); poker.Rank wants 1..13 with ace=1.
	rank := c.Rank() + 2 // 2..14
	var r poker.Rank
	if rank == 14 {
		r = poker.Rank(1)
	} else {
		r = poker.Rank(rank)
	}
	pc, _ := poker.MakeCard(s, r)
	return pc
}

// evaluate7 returns the best-5-of-N score for up to 7 cards; lower is
// stronger, matching paulhankin/poker's convention.
func evaluate7(cs []cards.Card) int16 {
	pcs := make([]poker.Card, len(cs))
	for i, c := range cs {
		pcs[i] = toPHCard(c)
	}
	switch len(pcs) {
	case 7:
		var a [7]poker.Card
		copy(a[:], pcs)
		return poker.Eval7(&a)
	case 5:
		var a [5]poker.Card
		copy(a[:], pcs)
		return poker.Eval5(&a)
	default:
		best := int16(32767)
		n := len(pcs)
		choose := make([]int, 5)
		var five [5]poker.Card
		var rec func(start, k int)
		rec = func(start, k int) {
			if k == 5 {
				for i := 0; i < 5; i++ {
					five[i] = pcs[choose[i]]
				}
				score := poker.Eval5(&five)
				if score < best {
					best = score
				}
				return
			}
			for i := start; i <= n-(5-k); i++ {
				choose[k] = i
				rec(i+1, k+1)
			}
		}
		rec(0, 0)
		return best
	}
}

func compare(hero, rival []cards.Card) int {
	hr := evaluate7(hero)
	vr := evaluate7(rival)
	switch {
	case hr < vr:
		return 1
	case hr == vr:
		return 0
	default:
		return -1
	}
}

func enumerateExact(hero [2]cards.Card, board []cards.Card, rival [2]cards.Card) float64 {
	need := 5 - len(board)
	if need < 0 {
		return 0
	}
	known := map[cards.Card]bool{hero[0]: true, hero[1]: true, rival[0]: true, rival[1]: true}
	for _, c := range board {
		known[c] = true
	}
	var deck []cards.Card
	for c := cards.Card(0); c < 52; c++ {
		if !known[c] {
			deck = append(deck, c)
		}
	}

	if need == 0 {
		heroCards := append([]cards.Card{hero[0], hero[1]}, board...)
		rivalCards := append([]cards.Card{rival[0], rival[1]}, board...)
		switch compare(heroCards, rivalCards) {
		case 1:
			return 1.0
		case 0:
			return 0.5
		default:
			return 0.0
		}
	}

	var wins, ties, total float64
	var combo func(start int, picked []cards.Card)
	combo = func(start int, picked []cards.Card) {
		if len(picked) == need {
			fullBoard := append(append([]cards.Card{}, board...), picked...)
			heroCards := append([]cards.Card{hero[0], hero[1]}, fullBoard...)
			rivalCards := append([]cards.Card{rival[0], rival[1]}, fullBoard...)
			total++
			switch compare(heroCards, rivalCards) {
			case 1:
				wins++
			case 0:
				ties++
			}
			return
		}
		for i := start; i < len(deck); i++ {
			combo(i+1, append(picked, deck[i]))
		}
	}
	combo(0, nil)
	if total == 0 {
		return 0
	}
	return (wins + 0.5*ties) / total
}

func adaptiveMonteCarlo(hero [2]cards.Card, board []cards.Card, rival [2]cards.Card, baseTrials int, target float64, rng *rand.Rand) float64 {
	minTrials := baseTrials
	if minTrials < minMonteTrials {
		minTrials = minMonteTrials
	}
	maxTrials := maxMonteTrials
	if minTrials > maxTrials {
		maxTrials = minTrials
	}
	chunk := monteChunk
	if chunk > maxTrials {
		chunk = maxTrials
	}
	if chunk < 1 {
		chunk = 1
	}

	known := map[cards.Card]bool{hero[0]: true, hero[1]: true, rival[0]: true, rival[1]: true}
	for _, c := range board {
		known[c] = true
	}
	var deck []cards.Card
	for c := cards.Card(0); c < 52; c++ {
		if !known[c] {
			deck = append(deck, c)
		}
	}
	need := 5 - len(board)

	var wins, ties float64
	var trials int
	sampleOnce := func() {
		perm := rng.Perm(len(deck))
		fill := make([]cards.Card, need)
		for i := 0; i < need; i++ {
			fill[i] = deck[perm[i]]
		}
		fullBoard := append(append([]cards.Card{}, board...), fill...)
		heroCards := append([]cards.Card{hero[0], hero[1]}, fullBoard...)
		rivalCards := append([]cards.Card{rival[0], rival[1]}, fullBoard...)
		switch compare(heroCards, rivalCards) {
		case 1:
			wins++
		case 0:
			ties++
		}
		trials++
	}

	for trials < maxTrials {
		remaining := maxTrials - trials
		current := chunk
		if current > remaining {
			current = remaining
		}
		for i := 0; i < current; i++ {
			sampleOnce()
		}
		equity := 0.0
		if trials > 0 {
			equity = (wins + 0.5*ties) / float64(trials)
		}
		variance := math.Max(equity*(1-equity), 0)
		stdErr := math.Inf(1)
		if trials > 0 {
			stdErr = math.Sqrt(variance / float64(trials))
		}
		if trials >= minTrials && stdErr <= target {
			break
		}
	}
	if trials == 0 {
		return 0
	}
	return (wins + 0.5*ties) / float64(trials)
}
