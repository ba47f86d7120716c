// Package sim provides the discrete-event simulation engine for a single-queue,
// multi-server loss system (G/G/c/K).
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - rng.go: the linear congruential RandomStream every duration is drawn from
//   - event.go: ArrivalEvent and DepartureEvent and the state changes they make
//   - simulator.go: next-event selection, clock advance and time-in-state accounting
//   - report.go: occupancy probabilities, loss statistics and rendering
//
// # Determinism
//
// A run is a pure function of (seed, SimulationConfig). Draws happen in event
// order: on an arrival the next interarrival time is drawn before the service
// time of the arriving customer. Two runs with the same inputs MUST produce
// bit-for-bit identical reports.
//
// # Modes
//
// ModeReference lets an arrival win a tie with a departure, checks the draw
// budget only at the top of the loop so the last event may overshoot it by one
// draw, and restarts a departing server whenever anyone is left in the system. ModeStrict (the default) never exceeds
// the draw budget and keeps servers idle when every remaining customer is
// already in service. It also lets a departure win a tie with the next arrival.
// For a single server the modes agree except at such ties and at the end of a run.
//
// Sub-packages:
//   - sim/trace/: optional per-event trace recording
//   - sim/experiment/: independent runs over several configurations
package sim
