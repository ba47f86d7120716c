package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim/trace"
)

// Event defines the interface for all simulation events.
// Draws reports how many random values Execute will consume given the
// current state, so the driver can refuse events the budget cannot afford.
type Event interface {
	Timestamp() float64
	Draws(*Simulator) int
	Execute(*Simulator)
}

// ArrivalEvent represents a customer arriving at the system.
type ArrivalEvent struct {
	time float64
}

// Timestamp returns the scheduled time of the ArrivalEvent.
func (e *ArrivalEvent) Timestamp() float64 {
	return e.time
}

// Draws is one for the next interarrival time, plus one for a service time
// when the customer is admitted and finds an idle server.
func (e *ArrivalEvent) Draws(sim *Simulator) int {
	if sim.Queue.Full() {
		return 1
	}
	if sim.Servers.FirstIdle() >= 0 {
		return 2
	}
	return 1
}

// Execute admits or drops the customer and schedules the next arrival.
func (e *ArrivalEvent) Execute(sim *Simulator) {
	before := sim.Queue.Len()
	sim.Metrics.Arrivals++

	admitted := sim.Queue.Enqueue(sim.Clock)
	// the interarrival draw always precedes the service draw
	sim.NextArrival = sim.Clock + sim.rng.RangeDraw(sim.Config.MinArrival, sim.Config.MaxArrival)
	sim.Metrics.InterarrivalDraws++

	server := -1
	if admitted {
		sim.Metrics.Admitted++
		sim.Metrics.ObserveOccupancy(sim.Queue.Len())
		if server = sim.Servers.FirstIdle(); server >= 0 {
			sim.startService(server)
		}
	} else {
		sim.Metrics.Lost++
	}

	logrus.Tracef("<< Arrival at %.4f: admitted=%v server=%d occupancy=%d", e.time, admitted, server, sim.Queue.Len())
	sim.record(trace.EventRecord{
		Time:            e.time,
		Kind:            trace.KindArrival,
		Server:          server,
		OccupancyBefore: before,
		OccupancyAfter:  sim.Queue.Len(),
		Dropped:         !admitted,
	})
}

// DepartureEvent represents a server finishing a service.
type DepartureEvent struct {
	time   float64
	Server int
}

// Timestamp returns the scheduled time of the DepartureEvent.
func (e *DepartureEvent) Timestamp() float64 {
	return e.time
}

// Draws is one when the server immediately starts another service, else zero.
func (e *DepartureEvent) Draws(sim *Simulator) int {
	if sim.restartsAfterDeparture(e.Server, max(sim.Queue.Len()-1, 0)) {
		return 1
	}
	return 0
}

// Execute removes the earliest customer and either restarts or idles the server.
// In ModeReference a server may finish a service nobody was waiting for; that
// departure removes no one and is not counted.
func (e *DepartureEvent) Execute(sim *Simulator) {
	before := sim.Queue.Len()
	_, served := sim.Queue.Dequeue()
	if served {
		sim.Metrics.Departures++
		sim.Metrics.ServerCompletions[e.Server]++
	}

	restarted := sim.restartsAfterDeparture(e.Server, sim.Queue.Len())
	if restarted {
		sim.startService(e.Server)
	} else {
		sim.Servers.Release(e.Server)
	}

	logrus.Tracef("<< Departure at %.4f: server=%d served=%v restarted=%v occupancy=%d", e.time, e.Server, served, restarted, sim.Queue.Len())
	sim.record(trace.EventRecord{
		Time:            e.time,
		Kind:            trace.KindDeparture,
		Server:          e.Server,
		OccupancyBefore: before,
		OccupancyAfter:  sim.Queue.Len(),
		Empty:           !served,
	})
}
