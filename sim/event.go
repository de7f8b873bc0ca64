package sim

import "fmt"

// Tag identifies what an event means to its target entity.
// Tags are interpreted per target, so packages declare their own.
type Tag int

// Event is a timestamped message addressed to one Entity.
// Events are immutable once created and are dispatched exactly once.
type Event struct {
	time    float64 // Simulation time at which the event fires (seconds)
	serial  int64   // Tie-breaker among events sharing the same time
	target  Entity
	tag     Tag
	payload any
}

// Time returns the scheduled time of the event.
func (e *Event) Time() float64 { return e.time }

// Serial returns the ordering serial assigned by the kernel.
func (e *Event) Serial() int64 { return e.serial }

// Target returns the entity the event is dispatched to.
func (e *Event) Target() Entity { return e.target }

// Tag returns the event tag.
func (e *Event) Tag() Tag { return e.tag }

// Payload returns the optional payload, nil if none was given.
func (e *Event) Payload() any { return e.payload }

func (e *Event) String() string {
	name := "<nil>"
	if e.target != nil {
		name = e.target.Name()
	}
	return fmt.Sprintf("event(t=%g serial=%d tag=%d target=%s)", e.time, e.serial, e.tag, name)
}

// before reports whether e is ordered ahead of o: time first, serial second.
func (e *Event) before(o *Event) bool {
	if e.time != o.time {
		return e.time < o.time
	}
	return e.serial < o.serial
}

// EventQueue implements heap.Interface and orders events by (time, serial).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []*Event

func (eq EventQueue) Len() int           { return len(eq) }
func (eq EventQueue) Less(i, j int) bool { return eq[i].before(eq[j]) }
func (eq EventQueue) Swap(i, j int)      { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(*Event))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

// Peek returns the earliest event without removing it, or nil when empty.
func (eq EventQueue) Peek() *Event {
	if len(eq) == 0 {
		return nil
	}
	return eq[0]
}
