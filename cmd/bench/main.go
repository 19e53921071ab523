// Command bench runs the scenario benchmark harness against the session
// manager: a fixed number of hands across one or more seeds, grading every
// decision with the hero's chosen policy and reporting combined + per-seed
// summary stats.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"gto-trainer/internal/session"
)

type CLI struct {
	Hands      int    `kong:"default='200',help='Hands per seed'"`
	Seeds      []int  `kong:"help='Explicit RNG seeds (repeatable); one run per seed'"`
	MC         int    `kong:"default='120',help='Monte Carlo trials per decision (floored at 40)'"`
	RivalStyle string `kong:"default='balanced',enum='balanced,aggressive,passive',help='Rival response style'"`
	HeroPolicy string `kong:"default='best',enum='gto,best',help='Hero action-selection policy: gto picks the top GTOFreq option, best picks the top EV'"`
}

type seedResult struct {
	seed    int
	summary session.Summary
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("gto-trainer-bench"),
		kong.Description("Scenario benchmark harness for the gto-trainer decision engine"),
		kong.UsageOnError(),
	)

	seeds := cli.Seeds
	if len(seeds) == 0 {
		seeds = []int{1}
	}

	results := make([]seedResult, len(seeds))

	var g errgroup.Group
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			summary, err := runSeed(cli, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = seedResult{seed: seed, summary: summary}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].seed < results[j].seed })

	for _, r := range results {
		fmt.Printf("seed=%d hands=%d decisions=%d hits=%d ev_lost=%.4f score=%.2f accuracy_pct=%.1f\n",
			r.seed, r.summary.Hands, r.summary.Decisions, r.summary.Hits,
			r.summary.EVLost, r.summary.Score, r.summary.AccuracyPct)
	}

	fmt.Println("--- combined ---")
	var totalHands, totalDecisions, totalHits int
	var totalEVLost float64
	for _, r := range results {
		totalHands += r.summary.Hands
		totalDecisions += r.summary.Decisions
		totalHits += r.summary.Hits
		totalEVLost += r.summary.EVLost
	}
	fmt.Printf("hands=%d decisions=%d hits=%d ev_lost=%.4f\n", totalHands, totalDecisions, totalHits, totalEVLost)
}

// runSeed drives one full benchmark run against a dedicated session: the
// hero picks per cli.HeroPolicy at every node until the session reports
// done, then returns its final summary.
func runSeed(cli CLI, seed int) (session.Summary, error) {
	mgr := session.NewManager()
	s := int64(seed)
	id, err := mgr.CreateSession(session.Config{
		Hands:      cli.Hands,
		MCTrials:   cli.MC,
		Seed:       &s,
		RivalStyle: cli.RivalStyle,
	})
	if err != nil {
		return session.Summary{}, err
	}

	node, done, summary, err := mgr.GetNode(id)
	if err != nil {
		return session.Summary{}, err
	}
	for !done {
		choice := pickChoice(node.Options, cli.HeroPolicy)
		_, next, doneAfter, summaryAfter, err := mgr.Choose(id, choice)
		if err != nil {
			return session.Summary{}, err
		}
		done = doneAfter
		if done {
			summary = summaryAfter
			break
		}
		node = next
	}
	return *summary, nil
}

// pickChoice selects an option index per the hero policy: "best" takes the
// highest EV; "gto" takes the highest GTOFreq, falling back to EV when no
// option carries a GTO frequency (i.e. the CFR refiner skipped this node).
func pickChoice(options []session.OptionView, policy string) int {
	if policy == "gto" {
		best := -1
		for i, o := range options {
			if o.GTOFreq == nil {
				continue
			}
			if best < 0 || *o.GTOFreq > *options[best].GTOFreq {
				best = i
			}
		}
		if best >= 0 {
			return best
		}
	}
	best := 0
	for i, o := range options {
		if o.EV > options[best].EV {
			best = i
		}
	}
	return best
}
