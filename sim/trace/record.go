// Package trace provides per-event trace recording for queue simulations.
// It stores pure data types and does not import sim/.
package trace

// EventKind distinguishes the two event types of the queue model.
type EventKind string

const (
	KindArrival   EventKind = "arrival"
	KindDeparture EventKind = "departure"
)

// EventRecord captures a single processed event.
type EventRecord struct {
	Seq             int64 // 0-based position in processing order
	Time            float64
	Kind            EventKind
	Server          int // server that started (arrival) or finished (departure) a service; -1 for none
	OccupancyBefore int
	OccupancyAfter  int
	Dropped         bool // arrival lost because the system was full
	Empty           bool // departure that found nobody to remove (reference mode only)
}
