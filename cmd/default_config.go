package cmd

import (
	sim "github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/experiment"
)

// DefaultScenarioFile returns the classic reference pair (G/G/1/5 and G/G/2/5,
// seed 42) as a scenario file, every field spelled out.
func DefaultScenarioFile(mode sim.Mode) ScenarioFile {
	f := ScenarioFile{Version: "1", Seed: 42, Mode: string(mode)}
	for _, sc := range experiment.ReferenceScenarios(mode) {
		f.Scenarios = append(f.Scenarios, specFromConfig(sc.Name, sc.Config))
	}
	return f
}

func specFromConfig(name string, cfg sim.SimulationConfig) ScenarioSpec {
	return ScenarioSpec{
		Name:         name,
		Capacity:     &cfg.Capacity,
		Servers:      &cfg.Servers,
		MinArrival:   &cfg.MinArrival,
		MaxArrival:   &cfg.MaxArrival,
		MinService:   &cfg.MinService,
		MaxService:   &cfg.MaxService,
		DrawBudget:   &cfg.DrawBudget,
		FirstArrival: &cfg.FirstArrival,
	}
}
