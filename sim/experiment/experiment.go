// Package experiment runs several independent queue simulations, optionally in
// parallel. Every run owns its own Simulator and RandomStream, so runs share no
// mutable state and results do not depend on scheduling.
package experiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/trace"
)

// Scenario is one named configuration to simulate.
type Scenario struct {
	Name   string
	Seed   int64
	Config sim.SimulationConfig
}

// Result holds the outcome of one scenario.
// Err is set when the run completed but could not be reported (zero clock).
type Result struct {
	Scenario Scenario
	RunID    string
	Report   *sim.Report
	Trace    *trace.TraceSummary // nil unless the scenario traced events
	Err      error
}

// Run simulates every scenario and returns results in input order.
// All configurations are validated before any run starts; the first invalid one
// fails the whole call. parallelism <= 0 means one goroutine per scenario.
// ctx is only consulted between runs: a started run always finishes.
func Run(ctx context.Context, scenarios []Scenario, parallelism int) ([]Result, error) {
	sims := make([]*sim.Simulator, len(scenarios))
	for i, sc := range scenarios {
		s, err := sim.NewSimulationFromConfig(sc.Seed, sc.Config)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		sims[i] = s
	}

	results := make([]Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range scenarios {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = runOne(scenarios[i], sims[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runOne(sc Scenario, s *sim.Simulator) Result {
	res := Result{Scenario: sc, RunID: uuid.NewString()}
	log := logrus.WithFields(logrus.Fields{"run_id": res.RunID, "scenario": sc.Name})
	log.Debugf("running %s seed=%d", sc.Config.Notation(), sc.Seed)

	s.Run()
	res.Report, res.Err = s.Report()
	if res.Err != nil {
		log.Warnf("no report: %v", res.Err)
	}
	if s.Trace != nil {
		res.Trace = trace.Summarize(s.Trace)
	}
	return res
}

// LossViolation records a pair of runs where adding servers increased loss.
type LossViolation struct {
	Fewer, More string // scenario names
	LostFewer   int64
	LostMore    int64
}

func (v LossViolation) String() string {
	return fmt.Sprintf("%s lost %d but %s (more servers) lost %d", v.Fewer, v.LostFewer, v.More, v.LostMore)
}

// CompareLoss checks that loss never grows with the server count among runs
// that differ only in their number of servers. Runs without a report are skipped.
func CompareLoss(results []Result) []LossViolation {
	type key struct {
		seed int64
		cfg  sim.SimulationConfig
	}
	groups := make(map[key][]Result)
	var order []key
	for _, r := range results {
		if r.Report == nil {
			continue
		}
		cfg := r.Scenario.Config
		cfg.Servers = 0
		k := key{seed: r.Scenario.Seed, cfg: cfg}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	var violations []LossViolation
	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].Scenario.Config.Servers < g[j].Scenario.Config.Servers
		})
		for i := 1; i < len(g); i++ {
			prev, cur := g[i-1], g[i]
			if cur.Scenario.Config.Servers > prev.Scenario.Config.Servers && cur.Report.Lost > prev.Report.Lost {
				violations = append(violations, LossViolation{
					Fewer: prev.Scenario.Name, More: cur.Scenario.Name,
					LostFewer: prev.Report.Lost, LostMore: cur.Report.Lost,
				})
			}
		}
	}
	return violations
}

// ReferenceScenarios returns the classic pair of runs: G/G/1/5 and G/G/2/5
// with seed 42, arrivals in [2,5] and service in [3,5].
func ReferenceScenarios(mode sim.Mode) []Scenario {
	one := sim.DefaultSimulationConfig()
	one.Mode = mode
	two := one
	two.Servers = 2
	return []Scenario{
		{Name: "gg1k5", Seed: 42, Config: one},
		{Name: "gg2k5", Seed: 42, Config: two},
	}
}
