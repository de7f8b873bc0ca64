package offload

import (
	"fmt"

	"github.com/edgesim/edgesim/sim"
	"github.com/sirupsen/logrus"
)

// Executor is the compute-resource provider. It runs a task on its destination
// and, when the task finishes, sends an event with the given tag and the task
// as payload to notify.
type Executor interface {
	sim.Entity
	Execute(k *sim.Kernel, task *sim.Task, notify sim.Entity, tag sim.Tag)
}

// job is one task held by a CoreScheduler.
type job struct {
	task   *sim.Task
	notify sim.Entity
	tag    sim.Tag
}

// nodeQueue is the per-node core allocation: up to cores jobs in service,
// the rest waiting first-come first-served.
type nodeQueue struct {
	busy    int
	waiting []job
}

// CoreScheduler executes tasks on their destination's cores. Each task holds
// one core for length / MIPS seconds. Allocation is first-come first-served.
type CoreScheduler struct {
	queues map[int]*nodeQueue
}

// NewCoreScheduler creates an idle scheduler.
func NewCoreScheduler() *CoreScheduler {
	return &CoreScheduler{
		queues: make(map[int]*nodeQueue),
	}
}

// Name implements sim.Entity.
func (s *CoreScheduler) Name() string { return "core-scheduler" }

// Start implements sim.Entity.
func (s *CoreScheduler) Start(_ *sim.Kernel) {}

// Shutdown implements sim.Entity.
func (s *CoreScheduler) Shutdown(k *sim.Kernel) {
	for id, q := range s.queues {
		if q.busy > 0 || len(q.waiting) > 0 {
			logrus.Debugf("[t=%.3f] core-scheduler: node %d has %d running, %d waiting at shutdown", k.Clock(), id, q.busy, len(q.waiting))
		}
	}
}

// Execute implements Executor.
func (s *CoreScheduler) Execute(k *sim.Kernel, task *sim.Task, notify sim.Entity, tag sim.Tag) {
	node := task.Destination
	if !(node.MIPS > 0) {
		panic(fmt.Sprintf("core-scheduler: %s has no compute capacity for task %d", node, task.ID))
	}
	task.ExecSubmitTime = k.Clock()
	q, ok := s.queues[node.ID]
	if !ok {
		q = &nodeQueue{}
		s.queues[node.ID] = q
	}
	j := job{task: task, notify: notify, tag: tag}
	if q.busy >= max(node.Cores, 1) {
		q.waiting = append(q.waiting, j)
		return
	}
	s.serve(k, q, j)
}

func (s *CoreScheduler) serve(k *sim.Kernel, q *nodeQueue, j job) {
	q.busy++
	j.task.ExecStartTime = k.Clock()
	k.Schedule(s, j.task.Length/j.task.Destination.MIPS, tagCoreFinished, j)
}

// ProcessEvent implements sim.Entity.
func (s *CoreScheduler) ProcessEvent(k *sim.Kernel, ev *sim.Event) {
	if ev.Tag() != tagCoreFinished {
		panic(fmt.Sprintf("core-scheduler: unexpected event tag %d", ev.Tag()))
	}
	j := ev.Payload().(job)
	node := j.task.Destination
	q := s.queues[node.ID]
	q.busy--
	j.task.ExecEndTime = k.Clock()
	k.ScheduleNow(j.notify, j.tag, j.task)

	if len(q.waiting) > 0 {
		next := q.waiting[0]
		q.waiting = q.waiting[1:]
		s.serve(k, q, next)
	}
}
