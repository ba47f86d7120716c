package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	sim "github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/experiment"
	"github.com/inference-sim/queue-sim/sim/trace"
)

// ScenarioFile describes a batch of independent simulations.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ScenarioFile struct {
	Version     string         `yaml:"version"`
	Seed        int64          `yaml:"seed"`                  // default seed for scenarios without one
	Mode        string         `yaml:"mode,omitempty"`        // default mode for scenarios without one
	Parallelism int            `yaml:"parallelism,omitempty"` // 0 = one goroutine per scenario
	Scenarios   []ScenarioSpec `yaml:"scenarios"`
}

// ScenarioSpec is one configuration. Omitted fields take the G/G/1/5 reference defaults.
type ScenarioSpec struct {
	Name         string   `yaml:"name"`
	Seed         *int64   `yaml:"seed,omitempty"`
	Capacity     *int     `yaml:"capacity,omitempty"`
	Servers      *int     `yaml:"servers,omitempty"`
	MinArrival   *float64 `yaml:"min_arrival,omitempty"`
	MaxArrival   *float64 `yaml:"max_arrival,omitempty"`
	MinService   *float64 `yaml:"min_service,omitempty"`
	MaxService   *float64 `yaml:"max_service,omitempty"`
	DrawBudget   *int64   `yaml:"draw_budget,omitempty"`
	FirstArrival *float64 `yaml:"first_arrival,omitempty"`
	Mode         string   `yaml:"mode,omitempty"`
	TraceLevel   string   `yaml:"trace_level,omitempty"`
}

// LoadScenarioFile reads and strictly parses a scenario file (typos are errors).
func LoadScenarioFile(path string) (*ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseScenarioFile(data)
}

// ParseScenarioFile strictly decodes scenario YAML.
func ParseScenarioFile(data []byte) (*ScenarioFile, error) {
	var f ScenarioFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file has no scenarios")
	}
	return &f, nil
}

// OverrideMode forces mode onto the file and every scenario in it.
func (f *ScenarioFile) OverrideMode(mode string) {
	f.Mode = mode
	for i := range f.Scenarios {
		f.Scenarios[i].Mode = mode
	}
}

// ToScenarios resolves defaults and returns the validated scenarios.
func (f *ScenarioFile) ToScenarios() ([]experiment.Scenario, error) {
	seen := make(map[string]bool)
	out := make([]experiment.Scenario, 0, len(f.Scenarios))
	for i, spec := range f.Scenarios {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("scenario_%d", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate scenario name %q", name)
		}
		seen[name] = true

		sc := spec.resolve(name, f.Seed, f.Mode)
		if err := sc.Config.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		out = append(out, sc)
	}
	logrus.Debugf("loaded %d scenarios", len(out))
	return out, nil
}

func (s ScenarioSpec) resolve(name string, fileSeed int64, fileMode string) experiment.Scenario {
	cfg := sim.DefaultSimulationConfig()
	setIfPresent(&cfg.Capacity, s.Capacity)
	setIfPresent(&cfg.Servers, s.Servers)
	setIfPresent(&cfg.MinArrival, s.MinArrival)
	setIfPresent(&cfg.MaxArrival, s.MaxArrival)
	setIfPresent(&cfg.MinService, s.MinService)
	setIfPresent(&cfg.MaxService, s.MaxService)
	setIfPresent(&cfg.DrawBudget, s.DrawBudget)
	setIfPresent(&cfg.FirstArrival, s.FirstArrival)

	mode := s.Mode
	if mode == "" {
		mode = fileMode
	}
	if mode != "" {
		cfg.Mode = sim.Mode(mode)
	}
	if s.TraceLevel != "" {
		cfg.TraceLevel = trace.TraceLevel(s.TraceLevel)
	}

	seed := fileSeed
	setIfPresent(&seed, s.Seed)
	return experiment.Scenario{Name: name, Seed: seed, Config: cfg}
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
