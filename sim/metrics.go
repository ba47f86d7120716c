// Tracks time-in-state and customer counters for one run.

package sim

import "gonum.org/v1/gonum/floats"

// Metrics aggregates the statistics accumulated by the event loop.
// TimeInState[n] is the simulated time during which exactly n customers
// were in the system.
type Metrics struct {
	TimeInState []float64

	Arrivals   int64 // arrival events processed, admitted or not
	Admitted   int64 // arrivals that found room
	Lost       int64 // arrivals rejected because occupancy was at capacity
	Departures int64 // customers that left after service
	Events     int64 // events processed

	PeakOccupancy     int
	ServerCompletions []int64 // per-server departures of an actual customer
	ServiceStarts     int64   // service times drawn
	InterarrivalDraws int64   // interarrival times drawn
}

// NewMetrics creates zeroed metrics for a system of the given capacity and server count.
func NewMetrics(capacity, servers int) *Metrics {
	return &Metrics{
		TimeInState:       make([]float64, capacity+1),
		ServerCompletions: make([]int64, servers),
	}
}

// Accumulate adds elapsed simulated time to the given occupancy state.
func (m *Metrics) Accumulate(state int, elapsed float64) {
	m.TimeInState[state] += elapsed
}

// ObserveOccupancy updates the peak occupancy.
func (m *Metrics) ObserveOccupancy(n int) {
	if n > m.PeakOccupancy {
		m.PeakOccupancy = n
	}
}

// TotalTime returns the sum of TimeInState, which equals the clock.
func (m *Metrics) TotalTime() float64 {
	return floats.Sum(m.TimeInState)
}

func (m *Metrics) clone() Metrics {
	c := *m
	c.TimeInState = append([]float64(nil), m.TimeInState...)
	c.ServerCompletions = append([]int64(nil), m.ServerCompletions...)
	return c
}
