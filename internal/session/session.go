// Package session implements the per-session training loop of spec §4.11:
// seeded episode generation, memoised option menus, and decision recording.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	mrand "math/rand"
	"sync"
	"time"

	"gto-trainer/internal/betsizing"
	"gto-trainer/internal/cfr"
	"gto-trainer/internal/episode"
	"gto-trainer/internal/equity"
	"gto-trainer/internal/policy"
	"gto-trainer/internal/policyshared"
	"gto-trainer/internal/scoring"
)

// Error kinds surfaced to callers, per spec §7.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrInvalidInput    = errors.New("invalid input")
)

const (
	defaultHands    = 1
	defaultMCTrials = 120
	minMCTrials     = 40
	stacksBB        = 100.0
	sbBB            = 0.5
	bbBB            = 1.0
)

// Config is the caller-supplied session configuration (spec §6 POST body).
type Config struct {
	Hands      int
	MCTrials   int
	Seed       *int64
	RivalStyle string
}

// normalize clamps/defaults config fields per spec §6 boundary rules.
func (c Config) normalize() Config {
	out := c
	if out.Hands < 1 {
		out.Hands = defaultHands
	}
	if out.MCTrials < minMCTrials {
		if out.MCTrials == 0 {
			out.MCTrials = defaultMCTrials
		} else {
			out.MCTrials = minMCTrials
		}
	}
	switch out.RivalStyle {
	case "balanced", "aggressive", "passive":
	default:
		out.RivalStyle = "balanced"
	}
	return out
}

// DecisionContract is the supplemented `contract?` field of NodePayload: a
// presenter-facing summary of what's legal at this node (spec §6, SUPPLEMENTED
// FEATURES item 1).
type DecisionContract struct {
	StatusLabel  string   `json:"status_label"`
	StatusDetail string   `json:"status_detail"`
	LegalActions []string `json:"legal_actions"`
}

// ActionSnapshot is the chosen/best option summary in FeedbackPayload.
type ActionSnapshot struct {
	Key string  `json:"key"`
	EV  float64 `json:"ev"`
}

// Feedback is returned by Choose.
type Feedback struct {
	Correct bool           `json:"correct"`
	EVLoss  float64        `json:"ev_loss"`
	Chosen  ActionSnapshot `json:"chosen"`
	Best    ActionSnapshot `json:"best"`
	Ended   bool           `json:"ended"`
}

// NodeView is the GET /{sid}/node response shape (done=false branch).
type NodeView struct {
	Street      string
	Description string
	PotBB       float64
	EffectiveBB float64
	HeroCards   [2]string
	BoardCards  []string
	Actor       string
	HandNo      int
	TotalHands  int
	Contract    DecisionContract
	Options     []OptionView
}

// OptionView is one rendered option.
type OptionView struct {
	Key      string
	Label    string
	EV       float64
	Why      string
	EndsHand bool
	GTOFreq  *float64
}

// Summary is the GET /{sid}/summary response shape.
type Summary struct {
	Hands        int     `json:"hands"`
	Decisions    int     `json:"decisions"`
	Hits         int     `json:"hits"`
	EVLost       float64 `json:"ev_lost"`
	Score        float64 `json:"score"`
	AccuracyPct  float64 `json:"accuracy_pct"`
	AvgEVLost    float64 `json:"avg_ev_lost"`
	AvgLossPct   float64 `json:"avg_loss_pct"`
}

type cacheEntry struct {
	node    *episode.Node
	options []*policyshared.Option
}

// session is the internal mutable state for one trainee session.
type session struct {
	mu sync.Mutex

	config   Config
	rng      *mrand.Rand
	hero0    string // first hand's hero seat
	episodes []*episode.Episode
	handIdx  int
	nodeIdx  int
	records  []scoring.Record
	cache    map[string]*cacheEntry
	done     bool
}

// Manager owns every live session plus the process-wide collaborators the
// option generator and CFR refiner read from (spec §5: process-wide,
// read-mostly caches behind their own locks).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	gen      *policy.Generator
	cfrFn    *cfr.Backend
	seq      uint64
}

// NewManager wires a fresh equity evaluator and bet-sizing manager, per the
// data-flow paragraph of spec §2.
func NewManager() *Manager {
	return &Manager{
		sessions: map[string]*session{},
		gen:      policy.New(equity.New(), betsizing.New()),
		cfrFn:    cfr.New(),
	}
}

// CreateSession seeds a fresh RNG stream, builds the first episode, and
// returns the new session id.
func (m *Manager) CreateSession(cfg Config) (string, error) {
	cfg = cfg.normalize()

	var seed int64
	if cfg.Seed != nil {
		seed = *cfg.Seed
	} else {
		seed = secureSeed()
	}
	rng := mrand.New(mrand.NewSource(seed))

	heroSeat := episode.HeroSeatForHand(0)
	ep, err := episode.Build(rng, heroSeat, stacksBB, sbBB, bbBB, cfg.RivalStyle)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	sess := &session{
		config:   cfg,
		rng:      rng,
		episodes: []*episode.Episode{ep},
		handIdx:  0,
		nodeIdx:  0,
		cache:    map[string]*cacheEntry{},
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("sess_%d_%d", time.Now().UnixNano()%1_000_000_000, m.seq)
	m.sessions[id] = sess
	return id, nil
}

func secureSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return int64(binary.LittleEndian.Uint64(b[:]))
	}
	return time.Now().UnixNano()
}

func (m *Manager) lookup(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetNode walks to the next decision node, building a fresh episode on
// demand once the current one is exhausted. Returns (nil, true, summary,
// nil) when the session is complete.
func (m *Manager) GetNode(id string) (*NodeView, bool, *Summary, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, false, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.done || sess.handIdx >= sess.config.Hands {
		sess.done = true
		summary := summaryFromRecords(sess.records)
		return nil, true, &summary, nil
	}

	node := sess.currentNode()
	entry := sess.cache[nodeKey(sess.handIdx, node)]
	if entry == nil {
		opts := m.gen.OptionsFor(node, sess.config.MCTrials, sess.rng)
		opts = m.cfrFn.Refine(opts)
		entry = &cacheEntry{node: node, options: opts}
		sess.cache[nodeKey(sess.handIdx, node)] = entry
	}

	view := renderNode(node, entry.options, sess.handIdx, sess.config.Hands)
	return &view, false, nil, nil
}

func (s *session) currentEpisode() *episode.Episode {
	return s.episodes[len(s.episodes)-1]
}

func (s *session) currentNode() *episode.Node {
	return s.currentEpisode().Nodes[s.nodeIdx]
}

func nodeKey(handIdx int, n *episode.Node) string {
	return fmt.Sprintf("%d:%s", handIdx, n.Street)
}

// Choose validates the index, records the decision, resolves it against
// hand state, advances the pointer (skipping remaining nodes on
// ends_hand), and invalidates the option cache for the resolved node.
func (m *Manager) Choose(id string, choiceIdx int) (*Feedback, *NodeView, bool, *Summary, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, nil, false, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.done {
		return nil, nil, false, nil, fmt.Errorf("%w: session already complete", ErrInvalidChoice)
	}

	node := sess.currentNode()
	key := nodeKey(sess.handIdx, node)
	entry := sess.cache[key]
	if entry == nil {
		opts := m.gen.OptionsFor(node, sess.config.MCTrials, sess.rng)
		opts = m.cfrFn.Refine(opts)
		entry = &cacheEntry{node: node, options: opts}
		sess.cache[key] = entry
	}
	options := entry.options
	if choiceIdx < 0 || choiceIdx >= len(options) {
		return nil, nil, false, nil, fmt.Errorf("%w: choice index out of range", ErrInvalidChoice)
	}

	chosen := options[choiceIdx]
	best, worst := bestWorst(options)

	var baselinePtr *float64
	if b, ok := chosen.Meta["baseline_ev"].(float64); ok {
		baselinePtr = &b
	}
	chosenEV := scoring.EffectiveEV(chosen.EV, baselinePtr)
	var bestBaseline *float64
	if b, ok := best.Meta["baseline_ev"].(float64); ok {
		bestBaseline = &b
	}
	bestEV := scoring.EffectiveEV(best.EV, bestBaseline)

	res := m.gen.ResolveFor(node, chosen, sess.rng)

	pot := node.HandState.Pot
	rec := scoring.Record{
		HandIndex: sess.handIdx,
		Street:    node.Street,
		ChosenKey: chosen.Key,
		ChosenEV:  chosenEV,
		BestKey:   best.Key,
		BestEV:    bestEV,
		WorstEV:   worst.EV,
		RoomEV:    bestEV - worst.EV,
		PotBB:     pot,
		HandEnded: res.HandEnded,
	}
	sess.records = append(sess.records, rec)

	delete(sess.cache, key)

	feedback := &Feedback{
		Correct: chosen.Key == best.Key,
		EVLoss:  math.Max(0, bestEV-chosenEV),
		Chosen:  ActionSnapshot{Key: chosen.Key, EV: chosenEV},
		Best:    ActionSnapshot{Key: best.Key, EV: bestEV},
		Ended:   res.HandEnded || chosen.EndsHand,
	}

	sess.advance(res.HandEnded || chosen.EndsHand)

	if sess.handIdx >= sess.config.Hands {
		sess.done = true
		summary := summaryFromRecords(sess.records)
		return feedback, nil, true, &summary, nil
	}

	nextNode := sess.currentNode()
	nextEntry := sess.cache[nodeKey(sess.handIdx, nextNode)]
	if nextEntry == nil {
		opts := m.gen.OptionsFor(nextNode, sess.config.MCTrials, sess.rng)
		opts = m.cfrFn.Refine(opts)
		nextEntry = &cacheEntry{node: nextNode, options: opts}
		sess.cache[nodeKey(sess.handIdx, nextNode)] = nextEntry
	}
	view := renderNode(nextNode, nextEntry.options, sess.handIdx, sess.config.Hands)
	return feedback, &view, false, nil, nil
}

// advance moves the node pointer forward, building the next hand's episode
// on demand; handEnded skips any remaining nodes in the current episode.
func (s *session) advance(handEnded bool) {
	ep := s.currentEpisode()
	if handEnded || s.nodeIdx+1 >= len(ep.Nodes) {
		s.handIdx++
		s.nodeIdx = 0
		if s.handIdx < s.config.Hands {
			heroSeat := episode.HeroSeatForHand(s.handIdx)
			next, err := episode.Build(s.rng, heroSeat, stacksBB, sbBB, bbBB, s.config.RivalStyle)
			if err == nil {
				s.episodes = append(s.episodes, next)
			}
		}
		return
	}
	s.nodeIdx++
}

// Summary returns the current pot-weighted summary for a session.
func (m *Manager) Summary(id string) (*Summary, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s := summaryFromRecords(sess.records)
	return &s, nil
}

func summaryFromRecords(records []scoring.Record) Summary {
	agg := scoring.SummarizeRecords(records)
	accuracyPct := 0.0
	if agg.Decisions > 0 {
		accuracyPct = 100 * agg.AccuracyPoints / float64(agg.Decisions)
	}
	return Summary{
		Hands:       agg.Hands,
		Decisions:   agg.Decisions,
		Hits:        agg.Hits,
		EVLost:      agg.EVLost,
		Score:       agg.Score,
		AccuracyPct: accuracyPct,
		AvgEVLost:   agg.AvgEVLost,
		AvgLossPct:  agg.AvgLossPct,
	}
}

func bestWorst(options []*policyshared.Option) (*policyshared.Option, *policyshared.Option) {
	best, worst := options[0], options[0]
	for _, o := range options[1:] {
		if o.EV > best.EV {
			best = o
		}
		if o.EV < worst.EV {
			worst = o
		}
	}
	return best, worst
}

func renderNode(n *episode.Node, options []*policyshared.Option, handIdx, totalHands int) NodeView {
	board := make([]string, len(n.Board))
	for i, c := range n.Board {
		board[i] = c.Upper()
	}
	hero := [2]string{n.HeroCards[0].Upper(), n.HeroCards[1].Upper()}

	views := make([]OptionView, len(options))
	for i, o := range options {
		views[i] = OptionView{
			Key:      o.Key,
			Label:    labelFor(o),
			EV:       o.EV,
			Why:      o.Why,
			EndsHand: o.EndsHand,
			GTOFreq:  o.GTOFreq,
		}
	}

	return NodeView{
		Street:      n.Street,
		Description: n.Description,
		PotBB:       n.PotBB,
		EffectiveBB: n.EffectiveBB,
		HeroCards:   hero,
		BoardCards:  board,
		Actor:       n.Actor,
		HandNo:      handIdx + 1,
		TotalHands:  totalHands,
		Contract:    deriveContract(n),
		Options:     views,
	}
}

// deriveContract implements the supplemented DecisionContract feature
// (SPEC_FULL.md SUPPLEMENTED FEATURES item 1).
func deriveContract(n *episode.Node) DecisionContract {
	facing, _ := n.Context["facing"].(string)
	legal := []string{"fold", "call", "check", "bet", "raise", "jam"}
	switch facing {
	case episode.FacingBet:
		return DecisionContract{
			StatusLabel:  "Facing a bet",
			StatusDetail: "The rival has bet into you; choose fold, call, or jam.",
			LegalActions: []string{"fold", "call", "jam"},
		}
	case episode.FacingOpen:
		return DecisionContract{
			StatusLabel:  "Facing an open",
			StatusDetail: "The rival has opened the pot preflop; choose fold, call, 3-bet, or jam.",
			LegalActions: []string{"fold", "call", "3bet", "jam"},
		}
	case episode.FacingOOPCheck, episode.FacingCheck:
		return DecisionContract{
			StatusLabel:  "Your action",
			StatusDetail: "The rival has checked to you; choose check or bet.",
			LegalActions: []string{"check", "bet"},
		}
	default:
		return DecisionContract{StatusLabel: "Your action", StatusDetail: "Choose one of the listed options.", LegalActions: legal}
	}
}

func labelFor(o *policyshared.Option) string {
	switch o.Key {
	case "fold":
		return "Fold"
	case "call":
		cost, _ := o.Meta["call_cost"].(float64)
		return fmt.Sprintf("Call %.2fbb", cost)
	case "check":
		return "Check"
	case "jam":
		return "All-in"
	default:
		if frac, ok := o.Meta["sizing_fraction"].(float64); ok {
			return fmt.Sprintf("Bet %.0f%%", frac*100)
		}
		if raiseTo, ok := o.Meta["raise_to"].(float64); ok {
			return fmt.Sprintf("3-bet to %.2fbb", raiseTo)
		}
		return o.Key
	}
}
