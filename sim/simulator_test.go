package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/queue-sim/sim/internal/testutil"
	"github.com/inference-sim/queue-sim/sim/trace"
)

func newTestSimulator(t *testing.T, seed int64, cfg SimulationConfig) *Simulator {
	t.Helper()
	s, err := NewSimulationFromConfig(seed, cfg)
	require.NoError(t, err)
	return s
}

func goldenConfig(tc testutil.GoldenTestCase) SimulationConfig {
	cfg := NewSimulationConfig(tc.Capacity, tc.Servers, tc.MinArrival, tc.MaxArrival, tc.MinService, tc.MaxService)
	cfg.DrawBudget = tc.DrawBudget
	cfg.Mode = Mode(tc.Mode)
	return cfg
}

// TestSimulator_GoldenDataset pins every golden configuration to its recorded
// outcome: exact counters and bit-identical floating-point state times.
func TestSimulator_GoldenDataset(t *testing.T) {
	ds := testutil.LoadGoldenDataset(t)
	require.NotEmpty(t, ds.Tests)

	for _, tc := range ds.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			s := newTestSimulator(t, tc.Seed, goldenConfig(tc))
			s.Run()

			assert.Equal(t, tc.Metrics.Lost, s.Metrics.Lost, "lost")
			assert.Equal(t, tc.Metrics.DrawsUsed, s.DrawsUsed(), "draws used")
			assert.Equal(t, tc.Metrics.Arrivals, s.Metrics.Arrivals, "arrivals")
			assert.Equal(t, tc.Metrics.Admitted, s.Metrics.Admitted, "admitted")
			assert.Equal(t, tc.Metrics.Departures, s.Metrics.Departures, "departures")
			testutil.AssertFloat64Equal(t, "final clock", tc.Metrics.FinalClock, s.Clock, 1e-12)
			require.Len(t, s.Metrics.TimeInState, len(tc.Metrics.TimeInState))
			for i, want := range tc.Metrics.TimeInState {
				testutil.AssertFloat64Equal(t, "time in state", want, s.Metrics.TimeInState[i], 1e-12)
			}
		})
	}
}

func TestSimulator_SameSeed_IdenticalReports(t *testing.T) {
	for _, mode := range []Mode{ModeStrict, ModeReference} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := NewSimulationConfig(5, 2, 2, 5, 3, 5)
			cfg.DrawBudget = 20000
			cfg.Mode = mode

			a := newTestSimulator(t, 42, cfg)
			b := newTestSimulator(t, 42, cfg)
			a.Run()
			b.Run()

			ra, err := a.Report()
			require.NoError(t, err)
			rb, err := b.Report()
			require.NoError(t, err)
			assert.Equal(t, ra, rb)
			assert.Equal(t, ra.String(), rb.String())
		})
	}
}

func TestSimulator_DifferentSeeds_DifferentRuns(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.DrawBudget = 1000
	a := newTestSimulator(t, 1, cfg)
	b := newTestSimulator(t, 2, cfg)
	a.Run()
	b.Run()
	assert.NotEqual(t, a.Clock, b.Clock)
}

// TestSimulator_Invariants_HoldAfterEveryEvent steps the loop by hand and checks
// conservation, the occupancy bound, loss-iff-full, draw accounting and, in
// strict mode, that exactly min(occupancy, c) servers are busy.
func TestSimulator_Invariants_HoldAfterEveryEvent(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		servers  int
		mode     Mode
	}{
		{"single server strict", 5, 1, ModeStrict},
		{"two servers strict", 5, 2, ModeStrict},
		{"more servers than capacity", 2, 4, ModeStrict},
		{"heavy load", 3, 1, ModeStrict},
		{"two servers reference", 5, 2, ModeReference},
		{"zero capacity", 0, 1, ModeStrict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewSimulationConfig(tt.capacity, tt.servers, 2, 5, 3, 5)
			if tt.name == "heavy load" {
				cfg.MinArrival, cfg.MaxArrival = 0.5, 1.5
			}
			cfg.DrawBudget = 5000
			cfg.Mode = tt.mode
			s := newTestSimulator(t, 42, cfg)

			for {
				ev := s.nextEvent()
				occBefore := s.Occupancy()
				lostBefore := s.Metrics.Lost
				if !s.step() {
					break
				}

				// conservation
				assert.InDelta(t, s.Clock, s.Metrics.TotalTime(), 1e-9*math.Max(1, s.Clock))
				// occupancy bound
				require.LessOrEqual(t, s.Occupancy(), tt.capacity)
				// loss iff full
				if _, isArrival := ev.(*ArrivalEvent); isArrival {
					lostNow := s.Metrics.Lost > lostBefore
					require.Equal(t, occBefore == tt.capacity, lostNow, "t=%v occ=%d", s.Clock, occBefore)
				}
				// draw accounting
				if tt.mode == ModeStrict {
					require.LessOrEqual(t, s.DrawsUsed(), cfg.DrawBudget)
				}
				// idle-server invariant
				if tt.mode == ModeStrict {
					require.Equal(t, min(s.Occupancy(), tt.servers), s.Servers.Busy(), "t=%v", s.Clock)
				}
			}
			if tt.mode == ModeStrict {
				assert.GreaterOrEqual(t, s.DrawsUsed(), cfg.DrawBudget-1)
			}
		})
	}
}

func TestSimulator_ReferenceScenario_SingleServer(t *testing.T) {
	// GIVEN seed 42, K=5, c=1, arrivals [2,5], service [3,5], N=100000
	s, err := NewSimulation(42, 5, 1, 2.0, 5.0, 3.0, 5.0)
	require.NoError(t, err)

	// WHEN the run completes
	s.Run()
	r, err := s.Report()
	require.NoError(t, err)

	// THEN loss and clock are sane and probabilities sum to 100%
	assert.GreaterOrEqual(t, r.Lost, int64(0))
	assert.Greater(t, r.FinalClock, 0.0)
	assert.InDelta(t, 100.0, r.TotalProbabilityPercent(), 1e-9)
	assert.Equal(t, int64(100000), r.DrawsUsed)
}

func TestSimulator_MoreServers_LossDoesNotIncrease(t *testing.T) {
	for _, mode := range []Mode{ModeStrict, ModeReference} {
		t.Run(string(mode), func(t *testing.T) {
			lost := make([]int64, 0, 2)
			for _, c := range []int{1, 2} {
				cfg := NewSimulationConfig(5, c, 2, 5, 3, 5)
				cfg.Mode = mode
				s := newTestSimulator(t, 42, cfg)
				s.Run()
				lost = append(lost, s.Metrics.Lost)
			}
			assert.LessOrEqual(t, lost[1], lost[0])
		})
	}
}

func TestSimulator_ZeroCapacity_EveryArrivalLost(t *testing.T) {
	// GIVEN a system that can hold nobody
	s, err := NewSimulation(42, 0, 1, 2, 5, 3, 5)
	require.NoError(t, err)

	// WHEN it runs
	s.Run()

	// THEN every arrival is lost, no service is drawn, and all time is in state 0
	assert.Equal(t, s.Metrics.Arrivals, s.Metrics.Lost)
	assert.Zero(t, s.Metrics.Admitted)
	assert.Zero(t, s.Metrics.ServiceStarts)
	assert.Equal(t, s.Clock, s.Metrics.TimeInState[0])
	assert.Equal(t, int64(100000), s.Metrics.Lost)
}

func TestSimulator_ZeroBudget_ReportFailsWithDivisionByZero(t *testing.T) {
	// GIVEN N=0
	cfg := DefaultSimulationConfig()
	cfg.DrawBudget = 0
	s := newTestSimulator(t, 42, cfg)

	// WHEN run and reported
	s.Run()
	r, err := s.Report()

	// THEN nothing happened and the report refuses to divide by a zero clock
	assert.Nil(t, r)
	assert.Zero(t, s.Clock)
	assert.Zero(t, s.Metrics.Events)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
	var dz *DivisionByZeroError
	assert.ErrorAs(t, err, &dz)
}

func TestSimulator_StrictBudgetOfOne_FirstArrivalUnaffordable(t *testing.T) {
	// GIVEN a budget of one draw and an idle server
	cfg := DefaultSimulationConfig()
	cfg.DrawBudget = 1
	s := newTestSimulator(t, 42, cfg)

	// WHEN run: the first arrival needs two draws (interarrival + service)
	s.Run()

	// THEN strict mode does not start it, reference mode overshoots by one
	assert.Zero(t, s.DrawsUsed())
	assert.Zero(t, s.Clock)

	cfg.Mode = ModeReference
	ref := newTestSimulator(t, 42, cfg)
	ref.Run()
	assert.Equal(t, int64(2), ref.DrawsUsed())
	assert.Equal(t, 2.0, ref.Clock)
}

func TestSimulator_RunTwice_SecondCallIsNoOp(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.DrawBudget = 500
	s := newTestSimulator(t, 42, cfg)
	s.Run()
	first := s.Snapshot()

	s.Run()

	assert.Equal(t, first, s.Snapshot())
}

func TestSimulator_FirstArrivalOffset_IsConfigurable(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.FirstArrival = 7.5
	cfg.DrawBudget = 2
	s := newTestSimulator(t, 42, cfg)

	s.Run()

	// the only event is the first arrival, at the offset, with no draw spent on it
	assert.Equal(t, 7.5, s.Clock)
	assert.Equal(t, 7.5, s.Metrics.TimeInState[0])
	assert.Equal(t, int64(1), s.Metrics.Arrivals)
}

func TestSimulator_NextEvent_TieBreaks(t *testing.T) {
	cfg := NewSimulationConfig(5, 3, 2, 5, 3, 5)

	t.Run("arrival strictly earlier wins", func(t *testing.T) {
		s := newTestSimulator(t, 1, cfg)
		s.NextArrival = 4
		s.Servers.Assign(0, 5)
		ev := s.nextEvent()
		assert.IsType(t, &ArrivalEvent{}, ev)
		assert.Equal(t, 4.0, ev.Timestamp())
	})

	t.Run("departure wins exact tie in strict mode", func(t *testing.T) {
		s := newTestSimulator(t, 1, cfg)
		s.NextArrival = 5
		s.Servers.Assign(1, 5)
		ev := s.nextEvent()
		require.IsType(t, &DepartureEvent{}, ev)
		assert.Equal(t, 1, ev.(*DepartureEvent).Server)
	})

	t.Run("arrival wins exact tie in reference mode", func(t *testing.T) {
		refCfg := cfg
		refCfg.Mode = ModeReference
		s := newTestSimulator(t, 1, refCfg)
		s.NextArrival = 5
		s.Servers.Assign(1, 5)
		assert.IsType(t, &ArrivalEvent{}, s.nextEvent())
	})

	t.Run("departure ties go to lowest server", func(t *testing.T) {
		s := newTestSimulator(t, 1, cfg)
		s.NextArrival = 10
		s.Servers.Assign(2, 7)
		s.Servers.Assign(1, 7)
		s.Servers.Assign(0, 8)
		ev := s.nextEvent()
		require.IsType(t, &DepartureEvent{}, ev)
		assert.Equal(t, 1, ev.(*DepartureEvent).Server)
		assert.Equal(t, 7.0, ev.Timestamp())
	})

	t.Run("all idle means arrival", func(t *testing.T) {
		s := newTestSimulator(t, 1, cfg)
		assert.IsType(t, &ArrivalEvent{}, s.nextEvent())
	})
}

func TestSimulator_Departure_StrictKeepsServerIdleWhenNobodyWaits(t *testing.T) {
	// GIVEN two customers, both in service on two servers
	cfg := NewSimulationConfig(5, 2, 2, 5, 3, 5)
	strict := newTestSimulator(t, 1, cfg)
	cfg.Mode = ModeReference
	ref := newTestSimulator(t, 1, cfg)
	for _, s := range []*Simulator{strict, ref} {
		s.Queue.Enqueue(0)
		s.Queue.Enqueue(1)
		s.Servers.Assign(0, 3)
		s.Servers.Assign(1, 4)
		s.NextArrival = 100
	}

	// WHEN server 0 finishes
	require.True(t, strict.step())
	require.True(t, ref.step())

	// THEN strict idles server 0 without a draw; reference restarts it
	assert.True(t, strict.Servers.IsIdle(0))
	assert.Zero(t, strict.DrawsUsed())
	assert.False(t, ref.Servers.IsIdle(0))
	assert.Equal(t, int64(1), ref.DrawsUsed())
}

func TestSimulator_EventTrace_MatchesMetrics(t *testing.T) {
	strict := NewSimulationConfig(3, 2, 1, 3, 3, 5)
	strict.DrawBudget = 2000
	// two servers in reference mode restart with nobody waiting, so some
	// departures remove no one
	reference := NewSimulationConfig(5, 2, 2, 5, 3, 5)
	reference.Mode = ModeReference

	tests := []struct {
		name      string
		cfg       SimulationConfig
		wantEmpty bool
	}{
		{"strict", strict, false},
		{"reference two servers", reference, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a traced run
			cfg := tt.cfg
			cfg.TraceLevel = trace.TraceLevelEvents
			s := newTestSimulator(t, 42, cfg)

			// WHEN it runs
			s.Run()
			summary := trace.Summarize(s.Trace)

			// THEN the trace agrees with the counters
			require.NotNil(t, s.Trace)
			assert.Equal(t, int(s.Metrics.Events), summary.TotalEvents)
			assert.Equal(t, int(s.Metrics.Arrivals), summary.Arrivals)
			assert.Equal(t, int(s.Metrics.Lost), summary.Dropped)
			assert.Equal(t, int(s.Metrics.Departures), summary.Departures)
			assert.Equal(t, s.Metrics.PeakOccupancy, summary.PeakOccupancy)
			for i, e := range s.Trace.Events {
				assert.Equal(t, int64(i), e.Seq)
			}

			// AND per-server completions only count customers that left
			var completions int64
			for i, n := range s.Metrics.ServerCompletions {
				completions += n
				assert.Equal(t, int(n), summary.DeparturesByServer[i], "server %d", i)
			}
			assert.Equal(t, s.Metrics.Departures, completions)
			if tt.wantEmpty {
				assert.Positive(t, summary.EmptyDepartures)
			} else {
				assert.Zero(t, summary.EmptyDepartures)
			}
		})
	}
}

func TestSimulator_NoTraceByDefault(t *testing.T) {
	s, err := NewSimulation(42, 5, 1, 2, 5, 3, 5)
	require.NoError(t, err)
	assert.Nil(t, s.Trace)
}

func BenchmarkSimulator_Run(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s, _ := NewSimulation(42, 5, 2, 2, 5, 3, 5)
		s.Run()
	}
}
