// sim/kernel.go
package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Entity is anything that schedules or receives events: network links, the
// network model, the offloading manager, node-status updaters.
type Entity interface {
	// Name identifies the entity in logs.
	Name() string
	// Start is called once when Run begins so the entity can schedule its first events.
	Start(k *Kernel)
	// ProcessEvent handles one event addressed to this entity.
	// Handlers must not block and must not pump the event loop.
	ProcessEvent(k *Kernel, ev *Event)
	// Shutdown is called once when the run ends, normally or after Terminate.
	Shutdown(k *Kernel)
}

// Kernel owns the simulation clock and the event queue.
// It is single-threaded: events are processed one at a time to completion.
// Independent runs must use independent kernels.
type Kernel struct {
	clock   float64
	horizon float64
	queue   EventQueue

	// nextSerial grows for regular schedules; nowSerial shrinks for ScheduleNow so
	// "now" events sort ahead of already-queued events at the same time.
	nextSerial int64
	nowSerial  int64

	entities   []Entity
	terminated bool
	hasRun     bool
	dispatched int64
}

// NewKernel creates a kernel. A horizon <= 0 means the run is unbounded;
// otherwise events scheduled after the horizon are never dispatched.
func NewKernel(horizon float64) *Kernel {
	if horizon <= 0 || math.IsNaN(horizon) {
		horizon = math.Inf(1)
	}
	return &Kernel{
		horizon: horizon,
		queue:   make(EventQueue, 0),
	}
}

// Register adds an entity to the registry. Registration order is the order in
// which entities are started and shut down.
func (k *Kernel) Register(e Entity) {
	k.entities = append(k.entities, e)
}

// Clock returns the current simulation time.
func (k *Kernel) Clock() float64 { return k.clock }

// Horizon returns the configured horizon (+Inf when unbounded).
func (k *Kernel) Horizon() float64 { return k.horizon }

// Pending returns the number of queued events.
func (k *Kernel) Pending() int { return k.queue.Len() }

// Dispatched returns the number of events dispatched so far.
func (k *Kernel) Dispatched() int64 { return k.dispatched }

// Terminated reports whether Terminate has been called.
func (k *Kernel) Terminated() bool { return k.terminated }

// Schedule queues an event for target after delay seconds.
// Panics on a negative or NaN delay.
func (k *Kernel) Schedule(target Entity, delay float64, tag Tag, payload any) *Event {
	if delay < 0 || math.IsNaN(delay) {
		panic(fmt.Sprintf("sim: Schedule called with invalid delay %v for %s", delay, target.Name()))
	}
	k.nextSerial++
	ev := &Event{
		time:    k.clock + delay,
		serial:  k.nextSerial,
		target:  target,
		tag:     tag,
		payload: payload,
	}
	heap.Push(&k.queue, ev)
	return ev
}

// ScheduleNow queues an event at the current time, ahead of every event already
// queued for this time.
func (k *Kernel) ScheduleNow(target Entity, tag Tag, payload any) *Event {
	k.nowSerial--
	ev := &Event{
		time:    k.clock,
		serial:  k.nowSerial,
		target:  target,
		tag:     tag,
		payload: payload,
	}
	heap.Push(&k.queue, ev)
	return ev
}

// Terminate stops the run once the current same-timestamp batch has been processed.
// Events still queued are discarded.
func (k *Kernel) Terminate() {
	k.terminated = true
}

// Run starts every registered entity and then dispatches events in (time, serial)
// order until the queue drains, Terminate is called, or the horizon is passed.
// All events sharing a timestamp are dispatched before the stop conditions are re-checked.
// Panics if called more than once.
func (k *Kernel) Run() {
	if k.hasRun {
		panic("sim: Kernel.Run() called more than once")
	}
	k.hasRun = true

	for _, e := range k.entities {
		e.Start(k)
	}

	for k.queue.Len() > 0 && !k.terminated {
		if k.queue.Peek().time > k.horizon {
			break
		}
		ev := heap.Pop(&k.queue).(*Event)
		k.dispatch(ev)
		for k.queue.Len() > 0 && k.queue.Peek().time == k.clock {
			k.dispatch(heap.Pop(&k.queue).(*Event))
		}
	}

	logrus.Infof("[t=%.3f] simulation ended after %d events (%d still queued)", k.clock, k.dispatched, k.queue.Len())
	for _, e := range k.entities {
		e.Shutdown(k)
	}
	k.entities = nil
	k.queue = k.queue[:0]
}

func (k *Kernel) dispatch(ev *Event) {
	if ev.time < k.clock {
		panic(fmt.Sprintf("sim: past event dispatched: event time %v is before clock %v (%s)", ev.time, k.clock, ev))
	}
	k.clock = ev.time
	k.dispatched++
	logrus.Debugf("[t=%.6f] dispatch tag=%d -> %s", k.clock, ev.tag, ev.target.Name())
	ev.target.ProcessEvent(k, ev)
}
