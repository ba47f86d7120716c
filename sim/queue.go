// Implements the CustomerQueue, which holds every customer currently in the
// system (waiting or in service), and the bank of parallel servers.

package sim

import (
	"fmt"
	"math"
	"strings"
)

// CustomerQueue is a bounded FIFO of customer arrival timestamps.
// Its length is the system occupancy; the timestamps only preserve order.
type CustomerQueue struct {
	queue    []float64
	capacity int
}

// NewCustomerQueue creates an empty queue holding at most capacity customers.
func NewCustomerQueue(capacity int) *CustomerQueue {
	return &CustomerQueue{
		queue:    make([]float64, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

// Enqueue appends a customer that arrived at the given time.
// Returns false, leaving the queue unchanged, when the queue is full.
func (q *CustomerQueue) Enqueue(arrivedAt float64) bool {
	if len(q.queue) >= q.capacity {
		return false
	}
	q.queue = append(q.queue, arrivedAt)
	return true
}

// Dequeue removes the earliest-enqueued customer and returns its arrival time.
// ok is false when the queue is empty.
func (q *CustomerQueue) Dequeue() (arrivedAt float64, ok bool) {
	if len(q.queue) == 0 {
		return 0, false
	}
	arrivedAt = q.queue[0]
	q.queue = q.queue[1:]
	return arrivedAt, true
}

// Peek returns the earliest arrival time without removing it.
func (q *CustomerQueue) Peek() (float64, bool) {
	if len(q.queue) == 0 {
		return 0, false
	}
	return q.queue[0], true
}

// Len returns the number of customers in the system.
func (q *CustomerQueue) Len() int {
	return len(q.queue)
}

// Empty reports whether nobody is in the system.
func (q *CustomerQueue) Empty() bool {
	return len(q.queue) == 0
}

// Full reports whether an arrival would be lost.
func (q *CustomerQueue) Full() bool {
	return len(q.queue) >= q.capacity
}

// Cap returns the queue capacity K.
func (q *CustomerQueue) Cap() int {
	return q.capacity
}

func (q *CustomerQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(fmt.Sprintf("%.2f", val))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// idle marks a server with no scheduled departure.
var idle = math.Inf(1)

// ServerBank tracks the scheduled departure time of each server.
// A server is idle iff its departure is +Inf.
type ServerBank struct {
	nextDeparture []float64
}

// NewServerBank creates c idle servers.
func NewServerBank(c int) *ServerBank {
	deps := make([]float64, c)
	for i := range deps {
		deps[i] = idle
	}
	return &ServerBank{nextDeparture: deps}
}

// Len returns the number of servers.
func (b *ServerBank) Len() int {
	return len(b.nextDeparture)
}

// NextDeparture returns the scheduled departure of server i (+Inf when idle).
func (b *ServerBank) NextDeparture(i int) float64 {
	return b.nextDeparture[i]
}

// IsIdle reports whether server i has no assigned customer.
func (b *ServerBank) IsIdle(i int) bool {
	return math.IsInf(b.nextDeparture[i], 1)
}

// FirstIdle returns the lowest-indexed idle server, or -1 when all are busy.
func (b *ServerBank) FirstIdle() int {
	for i := range b.nextDeparture {
		if b.IsIdle(i) {
			return i
		}
	}
	return -1
}

// Busy returns the number of servers with a scheduled departure.
func (b *ServerBank) Busy() int {
	n := 0
	for i := range b.nextDeparture {
		if !b.IsIdle(i) {
			n++
		}
	}
	return n
}

// Assign schedules server i to finish at the given time.
func (b *ServerBank) Assign(i int, departAt float64) {
	b.nextDeparture[i] = departAt
}

// Release marks server i idle.
func (b *ServerBank) Release(i int) {
	b.nextDeparture[i] = idle
}

// Departures returns a copy of all scheduled departure times.
func (b *ServerBank) Departures() []float64 {
	out := make([]float64, len(b.nextDeparture))
	copy(out, b.nextDeparture)
	return out
}
