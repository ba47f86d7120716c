package sim

import (
	"fmt"
	"math"

	"github.com/inference-sim/queue-sim/sim/trace"
)

// Mode selects the driver's tie-break, draw-budget and server-restart rules.
type Mode string

const (
	// ModeStrict never spends more draws than the budget and only restarts a
	// server on departure when a customer is actually waiting for one.
	ModeStrict Mode = "strict"
	// ModeReference lets an arrival win a tie with a departure, checks the
	// budget only at the top of the loop (the last event may overshoot by one
	// draw), and restarts a departing server whenever anyone is left in the system.
	ModeReference Mode = "reference"
)

var validModes = map[Mode]bool{
	ModeStrict:    true,
	ModeReference: true,
	"":            true, // empty defaults to strict
}

// IsValidMode returns true if the given mode string is recognized.
func IsValidMode(mode string) bool {
	return validModes[Mode(mode)]
}

// Defaults for the reference G/G/1/5 scenario.
const (
	DefaultCapacity     = 5
	DefaultServers      = 1
	DefaultMinArrival   = 2.0
	DefaultMaxArrival   = 5.0
	DefaultMinService   = 3.0
	DefaultMaxService   = 5.0
	DefaultDrawBudget   = 100000
	DefaultFirstArrival = 2.0
)

// Upper bounds on the sizes that are allocated per state and per server.
const (
	MaxCapacity = 1 << 20
	MaxServers  = 1 << 16
)

// SimulationConfig is the immutable description of one G/G/c/K run.
type SimulationConfig struct {
	Capacity     int              `yaml:"capacity" json:"capacity"`           // K: max customers in system, waiting + in service (>= 0)
	Servers      int              `yaml:"servers" json:"servers"`             // c: parallel servers (>= 1)
	MinArrival   float64          `yaml:"min_arrival" json:"min_arrival"`     // interarrival range lower bound
	MaxArrival   float64          `yaml:"max_arrival" json:"max_arrival"`     // interarrival range upper bound
	MinService   float64          `yaml:"min_service" json:"min_service"`     // service range lower bound
	MaxService   float64          `yaml:"max_service" json:"max_service"`     // service range upper bound
	DrawBudget   int64            `yaml:"draw_budget" json:"draw_budget"`     // N: random draws before the run stops (>= 0)
	FirstArrival float64          `yaml:"first_arrival" json:"first_arrival"` // fixed time of the first arrival; not drawn
	Mode         Mode             `yaml:"mode,omitempty" json:"mode,omitempty"`
	TraceLevel   trace.TraceLevel `yaml:"trace_level,omitempty" json:"trace_level,omitempty"`
}

// NewSimulationConfig builds a config with the default draw budget,
// first-arrival offset and mode.
func NewSimulationConfig(capacity, servers int, minArrival, maxArrival, minService, maxService float64) SimulationConfig {
	return SimulationConfig{
		Capacity:     capacity,
		Servers:      servers,
		MinArrival:   minArrival,
		MaxArrival:   maxArrival,
		MinService:   minService,
		MaxService:   maxService,
		DrawBudget:   DefaultDrawBudget,
		FirstArrival: DefaultFirstArrival,
		Mode:         ModeStrict,
		TraceLevel:   trace.TraceLevelNone,
	}
}

// DefaultSimulationConfig returns the reference G/G/1/5 configuration.
func DefaultSimulationConfig() SimulationConfig {
	return NewSimulationConfig(DefaultCapacity, DefaultServers,
		DefaultMinArrival, DefaultMaxArrival, DefaultMinService, DefaultMaxService)
}

// EffectiveMode returns the configured mode, defaulting to ModeStrict.
func (c SimulationConfig) EffectiveMode() Mode {
	if c.Mode == "" {
		return ModeStrict
	}
	return c.Mode
}

// Notation returns the Kendall notation of the model, e.g. "G/G/2/5".
func (c SimulationConfig) Notation() string {
	return fmt.Sprintf("G/G/%d/%d", c.Servers, c.Capacity)
}

// Validate checks the structural invariants. It returns a *ConfigurationError
// naming the first offending field, or nil.
func (c SimulationConfig) Validate() error {
	if c.Servers < 1 || c.Servers > MaxServers {
		return newConfigurationError("servers", "must be in [1, %d], got %d", MaxServers, c.Servers)
	}
	if c.Capacity < 0 || c.Capacity > MaxCapacity {
		return newConfigurationError("capacity", "must be in [0, %d], got %d", MaxCapacity, c.Capacity)
	}
	if c.DrawBudget < 0 {
		return newConfigurationError("draw_budget", "must be >= 0, got %d", c.DrawBudget)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"min_arrival", c.MinArrival}, {"max_arrival", c.MaxArrival},
		{"min_service", c.MinService}, {"max_service", c.MaxService},
		{"first_arrival", c.FirstArrival},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return newConfigurationError(f.name, "must be a finite number, got %v", f.v)
		}
	}
	if c.MinArrival > c.MaxArrival {
		return newConfigurationError("arrival", "min %v exceeds max %v", c.MinArrival, c.MaxArrival)
	}
	if c.MinService > c.MaxService {
		return newConfigurationError("service", "min %v exceeds max %v", c.MinService, c.MaxService)
	}
	if c.FirstArrival < 0 {
		return newConfigurationError("first_arrival", "must be >= 0, got %v", c.FirstArrival)
	}
	if !IsValidMode(string(c.Mode)) {
		return newConfigurationError("mode", "unknown mode %q; valid: strict, reference", c.Mode)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return newConfigurationError("trace_level", "unknown trace level %q; valid: none, events", c.TraceLevel)
	}
	return nil
}
