package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/queue-sim/sim/trace"
)

func TestNewSimulationConfig_FieldEquivalence(t *testing.T) {
	got := NewSimulationConfig(5, 2, 2.0, 5.0, 3.0, 5.0)
	want := SimulationConfig{
		Capacity:     5,
		Servers:      2,
		MinArrival:   2.0,
		MaxArrival:   5.0,
		MinService:   3.0,
		MaxService:   5.0,
		DrawBudget:   DefaultDrawBudget,
		FirstArrival: DefaultFirstArrival,
		Mode:         ModeStrict,
		TraceLevel:   trace.TraceLevelNone,
	}
	assert.Equal(t, want, got)
}

func TestDefaultSimulationConfig_IsReferenceGG15(t *testing.T) {
	cfg := DefaultSimulationConfig()
	assert.Equal(t, "G/G/1/5", cfg.Notation())
	assert.Equal(t, int64(100000), cfg.DrawBudget)
	assert.Equal(t, 2.0, cfg.FirstArrival)
	assert.NoError(t, cfg.Validate())
}

func TestSimulationConfig_Validate_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*SimulationConfig)
		field string
	}{
		{"zero servers", func(c *SimulationConfig) { c.Servers = 0 }, "servers"},
		{"negative servers", func(c *SimulationConfig) { c.Servers = -3 }, "servers"},
		{"negative capacity", func(c *SimulationConfig) { c.Capacity = -1 }, "capacity"},
		{"huge capacity", func(c *SimulationConfig) { c.Capacity = 2_000_000_000 }, "capacity"},
		{"huge server count", func(c *SimulationConfig) { c.Servers = MaxServers + 1 }, "servers"},
		{"negative budget", func(c *SimulationConfig) { c.DrawBudget = -1 }, "draw_budget"},
		{"inverted arrival", func(c *SimulationConfig) { c.MinArrival, c.MaxArrival = 5, 2 }, "arrival"},
		{"inverted service", func(c *SimulationConfig) { c.MinService, c.MaxService = 5, 3 }, "service"},
		{"NaN arrival", func(c *SimulationConfig) { c.MinArrival = math.NaN() }, "min_arrival"},
		{"infinite service", func(c *SimulationConfig) { c.MaxService = math.Inf(1) }, "max_service"},
		{"negative first arrival", func(c *SimulationConfig) { c.FirstArrival = -1 }, "first_arrival"},
		{"unknown mode", func(c *SimulationConfig) { c.Mode = "fast" }, "mode"},
		{"unknown trace level", func(c *SimulationConfig) { c.TraceLevel = "verbose" }, "trace_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSimulationConfig()
			tt.mut(&cfg)

			err := cfg.Validate()

			require.Error(t, err)
			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr), "want *ConfigurationError, got %T", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestSimulationConfig_Validate_AcceptsBoundaries(t *testing.T) {
	// capacity 0, equal ranges, zero budget and empty mode are all legal
	cfg := NewSimulationConfig(0, 1, 3, 3, 4, 4)
	cfg.DrawBudget = 0
	cfg.Mode = ""
	cfg.TraceLevel = ""
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ModeStrict, cfg.EffectiveMode())

	cfg = NewSimulationConfig(MaxCapacity, MaxServers, 2, 5, 3, 5)
	assert.NoError(t, cfg.Validate())
}

func TestNewSimulation_InvalidConfig_ReturnsConfigurationError(t *testing.T) {
	s, err := NewSimulation(42, 5, 0, 2, 5, 3, 5)
	assert.Nil(t, s)
	var cerr *ConfigurationError
	assert.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "servers")
}
