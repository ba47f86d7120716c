// sim/simulator.go
package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim/trace"
)

// Simulator is the core object that holds simulation time, system state, and the event loop.
// It is owned by a single goroutine; independent runs each build their own Simulator.
type Simulator struct {
	Config SimulationConfig
	// InitialSeed is the seed the RandomStream was created from
	InitialSeed int64

	Clock       float64
	NextArrival float64
	// Queue holds every customer in the system, waiting or in service
	Queue   *CustomerQueue
	Servers *ServerBank
	Metrics *Metrics
	// Trace is nil unless Config.TraceLevel is "events"
	Trace *trace.SimulationTrace

	rng *RandomStream
}

// NewSimulation builds a simulator with the default draw budget, first-arrival
// offset and mode. Invalid parameters fail with a *ConfigurationError.
func NewSimulation(seed int64, capacity int, servers int, minArrival, maxArrival, minService, maxService float64) (*Simulator, error) {
	return NewSimulationFromConfig(seed, NewSimulationConfig(capacity, servers, minArrival, maxArrival, minService, maxService))
}

// NewSimulationFromConfig builds a simulator from a full configuration.
func NewSimulationFromConfig(seed int64, cfg SimulationConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStrict
	}
	if cfg.TraceLevel == "" {
		cfg.TraceLevel = trace.TraceLevelNone
	}
	s := &Simulator{
		Config:      cfg,
		InitialSeed: seed,
		Clock:       0,
		NextArrival: cfg.FirstArrival,
		Queue:       NewCustomerQueue(cfg.Capacity),
		Servers:     NewServerBank(cfg.Servers),
		Metrics:     NewMetrics(cfg.Capacity, cfg.Servers),
		rng:         NewRandomStream(seed),
	}
	if cfg.TraceLevel == trace.TraceLevelEvents {
		s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.TraceLevel})
	}
	return s, nil
}

// DrawsUsed returns the number of random values consumed so far.
func (sim *Simulator) DrawsUsed() int64 {
	return sim.rng.DrawsUsed()
}

// Occupancy returns the number of customers in the system.
func (sim *Simulator) Occupancy() int {
	return sim.Queue.Len()
}

// Run executes the event loop until the draw budget is exhausted.
// Calling Run again continues from the current draw counter, so a second
// call after exhaustion does nothing.
func (sim *Simulator) Run() {
	logrus.WithFields(logrus.Fields{
		"model": sim.Config.Notation(),
		"seed":  sim.InitialSeed,
		"mode":  sim.Config.Mode,
		"draws": sim.Config.DrawBudget,
	}).Info("Starting simulation")

	for sim.step() {
	}

	logrus.WithFields(logrus.Fields{
		"model":  sim.Config.Notation(),
		"clock":  sim.Clock,
		"lost":   sim.Metrics.Lost,
		"draws":  sim.rng.DrawsUsed(),
		"events": sim.Metrics.Events,
	}).Info("Simulation ended")
}

// step processes one event. It returns false, leaving the state untouched,
// once the draw budget is exhausted or (ModeStrict) cannot pay for the next event.
func (sim *Simulator) step() bool {
	if sim.rng.DrawsUsed() >= sim.Config.DrawBudget {
		return false
	}
	ev := sim.nextEvent()
	if sim.Config.Mode == ModeStrict {
		if need := int64(ev.Draws(sim)); sim.rng.DrawsUsed()+need > sim.Config.DrawBudget {
			logrus.Debugf("[t=%.4f] %T needs %d draws, %d left; stopping", ev.Timestamp(), ev,
				need, sim.Config.DrawBudget-sim.rng.DrawsUsed())
			return false
		}
	}
	sim.advance(ev.Timestamp())
	ev.Execute(sim)
	sim.Metrics.Events++
	return true
}

// nextEvent picks the earliest pending event. The arrival wins only when it
// is strictly earlier than every departure (ModeReference: earlier or equal);
// departure ties go to the lowest server index.
func (sim *Simulator) nextEvent() Event {
	server := -1
	earliest := idle
	for i := 0; i < sim.Servers.Len(); i++ {
		if d := sim.Servers.NextDeparture(i); d < earliest {
			earliest = d
			server = i
		}
	}
	if server < 0 || sim.NextArrival < earliest ||
		(sim.Config.Mode == ModeReference && sim.NextArrival == earliest) {
		return &ArrivalEvent{time: sim.NextArrival}
	}
	return &DepartureEvent{time: earliest, Server: server}
}

// advance moves the clock to t, charging the elapsed time to the occupancy
// in force before the event takes effect.
func (sim *Simulator) advance(t float64) {
	sim.Metrics.Accumulate(sim.Queue.Len(), t-sim.Clock)
	sim.Clock = t
}

// startService draws a service time for server i and schedules its departure.
func (sim *Simulator) startService(i int) {
	sim.Servers.Assign(i, sim.Clock+sim.rng.RangeDraw(sim.Config.MinService, sim.Config.MaxService))
	sim.Metrics.ServiceStarts++
}

// restartsAfterDeparture decides whether server i picks up another customer
// once occupancyAfter customers remain. Server i is still counted busy.
func (sim *Simulator) restartsAfterDeparture(i int, occupancyAfter int) bool {
	if sim.Config.Mode == ModeReference {
		return occupancyAfter > 0
	}
	busyElsewhere := sim.Servers.Busy()
	if !sim.Servers.IsIdle(i) {
		busyElsewhere--
	}
	return occupancyAfter > busyElsewhere
}

func (sim *Simulator) record(r trace.EventRecord) {
	if sim.Trace == nil {
		return
	}
	r.Seq = sim.Metrics.Events
	sim.Trace.RecordEvent(r)
}

// State is a read-only snapshot of a simulator, handed to the reporter.
type State struct {
	Clock         float64
	NextArrival   float64
	NextDeparture []float64
	Occupancy     int
	DrawsUsed     int64
	Metrics       Metrics
}

// Snapshot copies the current state.
func (sim *Simulator) Snapshot() State {
	return State{
		Clock:         sim.Clock,
		NextArrival:   sim.NextArrival,
		NextDeparture: sim.Servers.Departures(),
		Occupancy:     sim.Queue.Len(),
		DrawsUsed:     sim.rng.DrawsUsed(),
		Metrics:       sim.Metrics.clone(),
	}
}
