// Package betsizing implements the process-wide bet-sizing manager of
// spec §4.6: per-context usage/regret tracking that expands or collapses
// preflop raise sizes and postflop bet fractions.
package betsizing

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

const (
	minIncrement              = 0.25
	usageDecay                = 0.82
	usageFloor                = 0.01
	usageDropThreshold         = 0.012
	regretExpandThreshold      = 0.45
	postflopRegretExpandThresh = 0.3
	preflopMinCount            = 2
	preflopMaxCount            = 6
	postflopMaxCount           = 5
)

var preflopBaseMultipliers = []float64{2.8, 3.5, 5.0}

// Observation is one (size, frequency, regret) sample fed back into the
// manager after a decision resolves.
type Observation struct {
	Size      float64
	Frequency float64
	Regret    float64
}

type sizingState struct {
	sizes    []float64
	usage    map[float64]float64
	regret   map[float64]float64
	baseline map[float64]bool
}

func newSizingState(initial []float64) *sizingState {
	s := &sizingState{
		sizes:    append([]float64(nil), initial...),
		usage:    map[float64]float64{},
		regret:   map[float64]float64{},
		baseline: map[float64]bool{},
	}
	for _, v := range initial {
		s.baseline[v] = true
		s.usage[v] = 1.0
	}
	return s
}

func (s *sizingState) observe(obs []Observation, expandThreshold float64, maxCount int) {
	for _, o := range obs {
		s.usage[o.Size] = s.usage[o.Size]*usageDecay + math.Max(o.Frequency, 0)
		s.regret[o.Size] = o.Regret
	}

	// Find the size with the max observed regret.
	maxRegret := math.Inf(-1)
	var maxSize float64
	found := false
	for _, size := range s.sizes {
		r := s.regret[size]
		if r > maxRegret {
			maxRegret = r
			maxSize = size
			found = true
		}
	}
	expanded := math.NaN()
	if found && maxRegret > expandThreshold && len(s.sizes) < maxCount {
		expanded = s.expandAround(maxSize)
	}

	// Drop rarely used, non-baseline sizes. A size inserted by this call's
	// expansion is kept until a later observation finds it still unused.
	kept := s.sizes[:0:0]
	for _, size := range s.sizes {
		if s.baseline[size] || s.usage[size] >= usageDropThreshold || size == expanded {
			kept = append(kept, size)
		}
	}
	if len(kept) >= preflopMinCount || len(kept) == len(s.sizes) {
		s.sizes = kept
	}
	sort.Float64s(s.sizes)
}

func (s *sizingState) expandAround(target float64) float64 {
	sort.Float64s(s.sizes)
	idx := -1
	for i, v := range s.sizes {
		if v == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return math.NaN()
	}
	var neighbour float64
	if idx+1 < len(s.sizes) {
		neighbour = s.sizes[idx+1]
	} else if idx-1 >= 0 {
		neighbour = s.sizes[idx-1]
	} else {
		return math.NaN()
	}
	mid := (target + neighbour) / 2
	for _, v := range s.sizes {
		if math.Abs(v-mid) < 1e-9 {
			return math.NaN()
		}
	}
	s.sizes = append(s.sizes, mid)
	s.usage[mid] = usageFloor
	return mid
}

// Manager is the process-wide bet-sizing state. Construct one per process
// (or per test) via New().
type Manager struct {
	mu        sync.Mutex
	preflop   map[string]*sizingState
	postflop  map[string]*sizingState
}

// New returns a fresh, empty bet-sizing manager.
func New() *Manager {
	return &Manager{
		preflop:  map[string]*sizingState{},
		postflop: map[string]*sizingState{},
	}
}

func bucket(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Round(value/step) * step
}

func preflopKey(openSize, effectiveStack float64) string {
	return fmt.Sprintf("%.1f|%d", bucket(openSize, 0.5), int(bucket(effectiveStack, 10)))
}

// PreflopRaiseSizes returns the current set of raise-to amounts for the
// given (open_size, stack) context, initialising it from the base
// multipliers on first use and clipping to the legal window.
func (m *Manager) PreflopRaiseSizes(openSize, heroContrib, heroStack, rivalStack float64) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := preflopKey(openSize, math.Min(heroStack, rivalStack))
	state, ok := m.preflop[key]
	if !ok {
		state = newSizingState(initialPreflopSizes(openSize))
		m.preflop[key] = state
	}
	return clipPreflopSizes(state.sizes, openSize, heroContrib, heroStack, rivalStack)
}

func initialPreflopSizes(openSize float64) []float64 {
	out := make([]float64, len(preflopBaseMultipliers))
	for i, mult := range preflopBaseMultipliers {
		out[i] = roundTo(openSize*mult, minIncrement)
	}
	sort.Float64s(out)
	return out
}

func clipPreflopSizes(sizes []float64, openSize, heroContrib, heroStack, rivalStack float64) []float64 {
	jam := heroContrib + math.Min(heroStack, rivalStack)
	lo := heroContrib + minIncrement
	hi := jam
	if hi < lo {
		hi = lo
	}
	seen := map[float64]bool{}
	out := make([]float64, 0, len(sizes))
	for _, s := range sizes {
		clipped := s
		if clipped < lo {
			clipped = lo
		}
		if clipped > hi {
			clipped = hi
		}
		clipped = roundTo(clipped, minIncrement)
		if clipped >= jam-1e-9 {
			continue // jam is offered separately by the option generator
		}
		if seen[clipped] {
			continue
		}
		seen[clipped] = true
		out = append(out, clipped)
	}
	sort.Float64s(out)
	if len(out) < preflopMinCount {
		for _, mult := range preflopBaseMultipliers {
			v := roundTo(clampf(openSize*mult, lo, hi), minIncrement)
			if v < jam-1e-9 && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
			if len(out) >= preflopMinCount {
				break
			}
		}
		sort.Float64s(out)
	}
	return out
}

// ObservePreflop feeds back usage/regret observations for the given
// (open_size, stack) context.
func (m *Manager) ObservePreflop(openSize, effectiveStack float64, obs []Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := preflopKey(openSize, effectiveStack)
	state, ok := m.preflop[key]
	if !ok {
		state = newSizingState(initialPreflopSizes(openSize))
		m.preflop[key] = state
	}
	state.observe(obs, regretExpandThreshold, preflopMaxCount)
}

// PostflopBetFractions returns the current set of pot-fraction bet sizes for
// the given (street, context) bucket, seeded from base on first use.
func (m *Manager) PostflopBetFractions(street, context string, base []float64) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := street + "|" + context
	state, ok := m.postflop[key]
	if !ok {
		state = newSizingState(append([]float64(nil), base...))
		m.postflop[key] = state
	}
	out := append([]float64(nil), state.sizes...)
	sort.Float64s(out)
	clamped := make([]float64, 0, len(out))
	for _, v := range out {
		if v > 0 && v <= 3.0 {
			clamped = append(clamped, v)
		}
	}
	return clamped
}

// ObservePostflop feeds back usage/regret observations for the given
// (street, context) bucket.
func (m *Manager) ObservePostflop(street, context string, obs []Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := street + "|" + context
	state, ok := m.postflop[key]
	if !ok {
		state = newSizingState(nil)
		m.postflop[key] = state
	}
	state.observe(obs, postflopRegretExpandThresh, postflopMaxCount)
}

// Reset zeroes all tracked state; used by tests and whenever an independent
// session demands determinism (spec §4.6: reset_bet_sizing_state).
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preflop = map[string]*sizingState{}
	m.postflop = map[string]*sizingState{}
}

func roundTo(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
