package offload

import (
	"errors"
	"fmt"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/network"
	"github.com/edgesim/edgesim/sim/orchestrator"
	"github.com/edgesim/edgesim/sim/trace"
	"github.com/sirupsen/logrus"
)

const (
	tagTaskArrival sim.Tag = iota + 1
	tagExecutionDone
	tagCoreFinished
	tagStatusUpdate
)

// Manager moves every task through the offloading pipeline:
//
//	arrival → REQUEST (device → orchestrator) → orchestrate
//	→ TASK_PAYLOAD (orchestrator → destination) → [CONTAINER (registry → destination)]
//	→ execute → RESULT_TO_ORCHESTRATOR → RESULT_TO_DEVICE
//
// Admission checks run on arrival, at the orchestrator, at the destination
// and on result receipt. A failed task sends nothing further.
type Manager struct {
	cfg      sim.Config
	tasks    []*sim.Task
	cloud    *sim.Node // first cloud node: orchestrator fallback and container registry
	net      *network.Model
	orch     orchestrator.Orchestrator
	executor Executor
	sink     trace.Sink

	arrived  int
	finished int
	executed map[sim.NodeKind]int
	err      error
}

// NewManager creates a manager for tasks and installs it as the network handler.
func NewManager(cfg sim.Config, tasks []*sim.Task, cloud *sim.Node, net *network.Model,
	orch orchestrator.Orchestrator, executor Executor, sink trace.Sink) *Manager {
	if sink == nil {
		sink = trace.NopSink{}
	}
	m := &Manager{
		cfg:      cfg,
		tasks:    tasks,
		cloud:    cloud,
		net:      net,
		orch:     orch,
		executor: executor,
		sink:     sink,
		executed: make(map[sim.NodeKind]int),
	}
	net.SetHandler(m)
	return m
}

// Name implements sim.Entity.
func (m *Manager) Name() string { return "offload-manager" }

// Start implements sim.Entity. Every task arrival is scheduled up front.
func (m *Manager) Start(k *sim.Kernel) {
	if len(m.tasks) == 0 {
		k.Terminate()
		return
	}
	for _, t := range m.tasks {
		k.Schedule(m, t.ArrivalTime-k.Clock(), tagTaskArrival, t)
	}
}

// Shutdown implements sim.Entity.
func (m *Manager) Shutdown(k *sim.Kernel) {
	if pending := len(m.tasks) - m.finished; pending > 0 {
		logrus.Infof("[t=%.3f] offload-manager: %d tasks unfinished at end of run", k.Clock(), pending)
	}
}

// Err returns the fatal error that stopped the run, if any.
func (m *Manager) Err() error { return m.err }

// Arrived returns the number of tasks whose arrival was processed.
func (m *Manager) Arrived() int { return m.arrived }

// Finished returns the number of tasks that reached a terminal status.
func (m *Manager) Finished() int { return m.finished }

// Executed returns the number of tasks that finished execution on nodes of the given kind.
func (m *Manager) Executed(kind sim.NodeKind) int { return m.executed[kind] }

// ProcessEvent implements sim.Entity.
func (m *Manager) ProcessEvent(k *sim.Kernel, ev *sim.Event) {
	task := ev.Payload().(*sim.Task)
	switch ev.Tag() {
	case tagTaskArrival:
		m.onArrival(k, task)
	case tagExecutionDone:
		m.onExecuted(k, task)
	default:
		panic(fmt.Sprintf("offload-manager: unexpected event tag %d", ev.Tag()))
	}
}

// TransferCompleted implements network.Handler.
func (m *Manager) TransferCompleted(k *sim.Kernel, tr *network.Transfer) {
	task := tr.Task
	if task.Terminal() {
		return
	}
	switch tr.Kind {
	case network.TransferRequest:
		m.onRequest(k, task)
	case network.TransferTaskPayload:
		m.onPayload(k, task)
	case network.TransferContainer:
		if m.admit(k, PhaseDestination, task) {
			m.executor.Execute(k, task, m, tagExecutionDone)
		}
	case network.TransferResultToOrchestrator:
		m.send(k, task, network.TransferResultToDevice, task.Orchestrator, task.Device, task.OutputSize)
	case network.TransferResultToDevice:
		if m.admit(k, PhaseResult, task) {
			task.Succeed(k.Clock())
			m.finish(k, task)
		}
	default:
		panic(fmt.Sprintf("offload-manager: unexpected transfer kind %s", tr.Kind))
	}
}

func (m *Manager) onArrival(k *sim.Kernel, task *sim.Task) {
	m.arrived++
	if !m.admit(k, PhaseGeneration, task) {
		return
	}
	task.Orchestrator = m.orchestratorFor(task)
	logrus.Debugf("[t=%.6f] task %d arrived at %s, orchestrated by %s", k.Clock(), task.ID, task.Device, task.Orchestrator)
	m.send(k, task, network.TransferRequest, task.Device, task.Orchestrator, task.RequestSize)
}

// orchestratorFor places the orchestrator according to the deployment setting.
func (m *Manager) orchestratorFor(task *sim.Task) *sim.Node {
	switch m.cfg.Orchestration.Deployment {
	case "CLOUD":
		return m.cloud
	case "EDGE":
		if task.Device.Uplink != nil {
			return task.Device.Uplink
		}
		return m.cloud
	default:
		return task.Device
	}
}

func (m *Manager) onRequest(k *sim.Kernel, task *sim.Task) {
	if !m.admit(k, PhaseOrchestrator, task) {
		return
	}
	d, err := m.orch.Orchestrate(task)
	rec := trace.OrchestrationRecord{
		TaskID:    task.ID,
		Clock:     k.Clock(),
		Algorithm: m.cfg.Orchestration.Algorithm,
		Chosen:    -1,
		Eligible:  d.Eligible,
		Score:     d.Score,
		Reason:    d.Reason,
	}
	if err == nil {
		if d.Node == nil {
			panic(fmt.Sprintf("offload: orchestrator returned no destination for task %d", task.ID))
		}
		if d.Node.IsSensor() {
			panic(fmt.Sprintf("offload: orchestrator chose sensor %s as destination of task %d", d.Node, task.ID))
		}
		task.Destination = d.Node
		rec.Chosen = d.Node.ID
	}
	m.record(func() { m.sink.RecordOrchestration(rec) })

	if err != nil {
		if !errors.Is(err, orchestrator.ErrLackOfResources) {
			m.abort(k, fmt.Errorf("orchestrating task %d: %w", task.ID, err))
			return
		}
		m.fail(k, task, sim.ReasonNoEligibleDestination)
		return
	}
	m.send(k, task, network.TransferTaskPayload, task.Orchestrator, task.Destination, task.RequestSize)
}

func (m *Manager) onPayload(k *sim.Kernel, task *sim.Task) {
	if !m.admit(k, PhaseDestination, task) {
		return
	}
	if m.cfg.RegistryEnabled && m.cloud != nil && !task.Destination.IsCloud() && task.ContainerSize > 0 {
		m.send(k, task, network.TransferContainer, m.cloud, task.Destination, task.ContainerSize)
		return
	}
	m.executor.Execute(k, task, m, tagExecutionDone)
}

func (m *Manager) onExecuted(k *sim.Kernel, task *sim.Task) {
	if task.Terminal() {
		return
	}
	m.executed[task.Destination.Kind]++
	if task.Destination.IsDead() {
		m.fail(k, task, sim.ReasonDestinationDead)
		return
	}
	m.send(k, task, network.TransferResultToOrchestrator, task.Destination, task.Orchestrator, task.OutputSize)
}

// admit runs the admission check for phase and fails the task if it does not pass.
func (m *Manager) admit(k *sim.Kernel, phase Phase, task *sim.Task) bool {
	reason := Admit(phase, task, k.Clock(), m.cfg)
	if reason == sim.ReasonNone {
		return true
	}
	logrus.Debugf("[t=%.6f] task %d rejected at %s phase: %s", k.Clock(), task.ID, phase, reason)
	m.fail(k, task, reason)
	return false
}

func (m *Manager) send(k *sim.Kernel, task *sim.Task, kind network.TransferKind, src, dst *sim.Node, size float64) {
	if _, err := m.net.Send(k, task, kind, src, dst, size); err != nil {
		m.abort(k, err)
	}
}

// abort stops the run on a topology or configuration bug.
func (m *Manager) abort(k *sim.Kernel, err error) {
	if m.err == nil {
		m.err = err
	}
	logrus.Errorf("[t=%.3f] offload-manager: %v", k.Clock(), err)
	k.Terminate()
}

func (m *Manager) fail(k *sim.Kernel, task *sim.Task, reason sim.FailureReason) {
	task.Fail(reason, k.Clock())
	m.finish(k, task)
}

// finish reports a terminal task and stops the run once every task is done.
func (m *Manager) finish(k *sim.Kernel, task *sim.Task) {
	m.finished++
	m.orch.ResultReturned(task)
	rec := taskRecord(task)
	m.record(func() { m.sink.RecordTask(rec) })
	if m.finished == len(m.tasks) {
		logrus.Infof("[t=%.3f] offload-manager: all %d tasks finished", k.Clock(), m.finished)
		k.Terminate()
	}
}

// record calls the sink, ignoring any panic it raises.
func (m *Manager) record(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("offload-manager: observability sink failed: %v", r)
		}
	}()
	fn()
}

func taskRecord(t *sim.Task) trace.TaskRecord {
	rec := trace.TaskRecord{
		TaskID:       t.ID,
		Application:  t.Application,
		Device:       t.Device.ID,
		Orchestrator: -1,
		Destination:  -1,
		Status:       string(t.Status),
		Reason:       string(t.Reason),
		Arrival:      t.ArrivalTime,
		Completion:   t.CompletionTime,
		NetworkTime:  t.TotalNetworkTime(),
		ExecTime:     t.ExecutionTime(),
	}
	if t.Orchestrator != nil {
		rec.Orchestrator = t.Orchestrator.ID
	}
	if t.Destination != nil {
		rec.Destination = t.Destination.ID
	}
	return rec
}
