// Package rangemodel implements the deterministic combo ranking and the
// solver-calibrated SB-open / BB-defend percentile tables of spec §4.3.
package rangemodel

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"gto-trainer/internal/cards"
)

// anchorPoint pairs an open size with a defend/open share at that size.
type anchorPoint struct {
	Size    float64
	Percent float64
}

// defaultBBDefend and defaultSBOpen are the built-in anchors; spec §4.3 calls
// for aggregate defend shares landing at ~0.66/0.54/0.36 (BB) and
// ~0.90/0.82/0.70 (SB open) at opens of 2.0/2.5/3.0bb.
var defaultBBDefend = []anchorPoint{{2.0, 0.66}, {2.5, 0.54}, {3.0, 0.36}}
var defaultSBOpen = []anchorPoint{{2.0, 0.90}, {2.5, 0.82}, {3.0, 0.70}}

// StackAnchors overrides the default anchors for a specific effective-stack
// depth bucket, loaded from ranges/config.json (spec §6).
type StackAnchors struct {
	SBOpen   []anchorPoint
	BBDefend []anchorPoint
}

// Config is the process-wide range configuration: the default anchors plus
// any stack-depth-specific overrides.
type Config struct {
	Default Config_Default
	Stacks  map[string]StackAnchors
}

// Config_Default mirrors the default section of ranges/config.json.
type Config_Default struct {
	SBOpen   []anchorPoint
	BBDefend []anchorPoint
}

var (
	configMu     sync.RWMutex
	loadedConfig *Config
)

type jsonAnchor struct {
	Size    float64 `json:"size"`
	Percent float64 `json:"percent"`
}

type jsonConfig struct {
	Default struct {
		SBOpen   []jsonAnchor `json:"sb_open"`
		BBDefend []jsonAnchor `json:"bb_defend"`
	} `json:"default"`
	Stacks map[string]struct {
		SBOpen   []jsonAnchor `json:"sb_open"`
		BBDefend []jsonAnchor `json:"bb_defend"`
	} `json:"stacks"`
}

// LoadConfig reads ranges/config.json at path. A missing or malformed file
// is not an error: the built-in anchors remain in effect.
func LoadConfig(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil // absence is not fatal, spec §6
	}
	var jc jsonConfig
	if err := json.Unmarshal(raw, &jc); err != nil {
		return nil
	}
	cfg := &Config{Stacks: map[string]StackAnchors{}}
	cfg.Default.SBOpen = toAnchors(jc.Default.SBOpen)
	cfg.Default.BBDefend = toAnchors(jc.Default.BBDefend)
	for depth, v := range jc.Stacks {
		cfg.Stacks[depth] = StackAnchors{
			SBOpen:   toAnchors(v.SBOpen),
			BBDefend: toAnchors(v.BBDefend),
		}
	}
	configMu.Lock()
	loadedConfig = cfg
	configMu.Unlock()
	return nil
}

func toAnchors(in []jsonAnchor) []anchorPoint {
	out := make([]anchorPoint, len(in))
	for i, a := range in {
		out[i] = anchorPoint{Size: a.Size, Percent: a.Percent}
	}
	return out
}

func anchorsFor(stackDepth string, sbOpen bool) []anchorPoint {
	configMu.RLock()
	cfg := loadedConfig
	configMu.RUnlock()
	if cfg != nil {
		if stackDepth != "" {
			if sa, ok := cfg.Stacks[stackDepth]; ok {
				if sbOpen && len(sa.SBOpen) > 0 {
					return sa.SBOpen
				}
				if !sbOpen && len(sa.BBDefend) > 0 {
					return sa.BBDefend
				}
			}
		}
		if sbOpen && len(cfg.Default.SBOpen) > 0 {
			return cfg.Default.SBOpen
		}
		if !sbOpen && len(cfg.Default.BBDefend) > 0 {
			return cfg.Default.BBDefend
		}
	}
	if sbOpen {
		return defaultSBOpen
	}
	return defaultBBDefend
}

// interpolate performs linear interpolation between anchor points, clamping
// outside the anchor range (spec §4.3: "interpolation ... is linear in
// open_size").
func interpolate(anchors []anchorPoint, openSize float64) float64 {
	if len(anchors) == 0 {
		return 0.5
	}
	sorted := append([]anchorPoint(nil), anchors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size < sorted[j].Size })
	if openSize <= sorted[0].Size {
		return sorted[0].Percent
	}
	last := sorted[len(sorted)-1]
	if openSize >= last.Size {
		return last.Percent
	}
	for i := 0; i+1 < len(sorted); i++ {
		a, b := sorted[i], sorted[i+1]
		if openSize >= a.Size && openSize <= b.Size {
			t := (openSize - a.Size) / (b.Size - a.Size)
			return a.Percent + t*(b.Percent-a.Percent)
		}
	}
	return last.Percent
}

// comboScore is the deterministic playability score used to rank all 1326
// combos once, globally. Higher is stronger.
func comboScore(c cards.Combo) float64 {
	ra, rb := c[0].Rank(), c[1].Rank()
	high, low := ra, rb
	if rb > ra {
		high, low = rb, ra
	}
	suited := c[0].Suit() == c[1].Suit()

	score := float64(high*10 + low)
	if high == low {
		score += 80 + float64(high)*5
	}
	if suited {
		score += 5
	}
	gap := high - low - 1
	if high != low {
		switch {
		case gap <= 0:
			score += 4
		case gap == 1:
			score += 3
		case gap == 2:
			score += 1
		case gap >= 4:
			score -= float64(gap)
		}
	}
	return score
}

var (
	rankOnce   sync.Once
	rankedAll  []cards.Combo
)

// AllRanked returns all 1326 canonical combos ordered from strongest to
// weakest by comboScore, computed once and cached (spec §9: "express the
// playability score as a pure function and cache once per deck").
func AllRanked() []cards.Combo {
	rankOnce.Do(func() {
		var all []cards.Combo
		for a := cards.Card(0); a < 52; a++ {
			for b := a + 1; b < 52; b++ {
				all = append(all, cards.Combo{a, b})
			}
		}
		sort.SliceStable(all, func(i, j int) bool {
			return comboScore(all[i]) > comboScore(all[j])
		})
		rankedAll = all
	})
	return rankedAll
}

func isBlocked(c cards.Combo, blocked map[cards.Card]bool) bool {
	return blocked[c[0]] || blocked[c[1]]
}

func filterBlocked(combos []cards.Combo, blocked map[cards.Card]bool) []cards.Combo {
	if len(blocked) == 0 {
		return combos
	}
	out := make([]cards.Combo, 0, len(combos))
	for _, c := range combos {
		if !isBlocked(c, blocked) {
			out = append(out, c)
		}
	}
	return out
}

// TopPercent returns the strongest fraction of ranked (already blocker
// filtered) combos.
func TopPercent(ranked []cards.Combo, percent float64) []cards.Combo {
	if percent <= 0 || len(ranked) == 0 {
		return nil
	}
	if percent >= 1 {
		return ranked
	}
	n := int(float64(len(ranked))*percent + 0.5)
	if n < 1 {
		n = 1
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// TightenRange returns the strongest prefix of combos representing fraction
// of the supplied (already ordered) range.
func TightenRange(combos []cards.Combo, fraction float64) []cards.Combo {
	return TopPercent(combos, fraction)
}

// RivalSBOpenRange returns the rival's opening range as small-blind, given
// the open size and the set of blocked cards.
func RivalSBOpenRange(openSize float64, blocked map[cards.Card]bool, stackDepth string) []cards.Combo {
	percent := interpolate(anchorsFor(stackDepth, true), openSize)
	ranked := filterBlocked(AllRanked(), blocked)
	return TopPercent(ranked, percent)
}

// RivalBBDefendRange returns the rival's big-blind defending range against an
// open of the given size, given the set of blocked cards.
func RivalBBDefendRange(openSize float64, blocked map[cards.Card]bool, stackDepth string) []cards.Combo {
	percent := interpolate(anchorsFor(stackDepth, false), openSize)
	ranked := filterBlocked(AllRanked(), blocked)
	return TopPercent(ranked, percent)
}

// CombosWithoutBlockers filters out any combo that shares a card with the
// blocked set, without re-ranking.
func CombosWithoutBlockers(combos []cards.Combo, blocked map[cards.Card]bool) []cards.Combo {
	return filterBlocked(combos, blocked)
}

// PlayabilityScore exposes comboScore for callers (preflop mix, rival
// strategy) that need the same ranking without re-deriving it.
func PlayabilityScore(c cards.Combo) float64 { return comboScore(c) }

// RankIndex returns the 0-based index of combo c in AllRanked(), or -1.
func RankIndex(c cards.Combo) int {
	ranked := AllRanked()
	for i, r := range ranked {
		if r == c {
			return i
		}
	}
	return -1
}
