package sim

import "fmt"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskSuccess TaskStatus = "success"
	TaskFailed  TaskStatus = "failed"
)

// FailureReason explains why a task failed. Empty for pending and successful tasks.
type FailureReason string

const (
	ReasonNone                   FailureReason = ""
	ReasonLatencyExceeded        FailureReason = "latency_exceeded"
	ReasonOriginDead             FailureReason = "origin_dead"
	ReasonDestinationDead        FailureReason = "destination_dead"
	ReasonOrchestratorDead       FailureReason = "orchestrator_dead"
	ReasonMobilityMismatch       FailureReason = "mobility_mismatch"
	ReasonNoEligibleDestination  FailureReason = "no_eligible_destination"
	ReasonNotGeneratedDeviceDead FailureReason = "not_generated_device_dead"
)

// FailureReasons lists every failure reason in a stable order, for reporting.
var FailureReasons = []FailureReason{
	ReasonLatencyExceeded,
	ReasonOriginDead,
	ReasonDestinationDead,
	ReasonOrchestratorDead,
	ReasonMobilityMismatch,
	ReasonNoEligibleDestination,
	ReasonNotGeneratedDeviceDead,
}

// Task is one unit of offloadable work. Tasks are created by the workload
// generator and retained for statistics after they finish.
type Task struct {
	ID          int
	Application string

	Device       *Node // Origin device
	Orchestrator *Node
	Destination  *Node

	RequestSize   float64 // bits
	OutputSize    float64 // bits
	ContainerSize float64 // bits
	Length        float64 // million instructions

	MaxLatency  float64 // seconds; <= 0 means no deadline
	ArrivalTime float64

	Status TaskStatus
	Reason FailureReason

	ExecSubmitTime float64 // when the destination received the task for execution
	ExecStartTime  float64
	ExecEndTime    float64
	CompletionTime float64

	// NetworkTime accumulates per-link-kind transmission time spent by this task's transfers,
	// indexed LAN, MAN, WAN.
	NetworkTime [3]float64
}

// NewTask creates a pending task.
func NewTask(id int, device *Node, arrival float64) *Task {
	return &Task{
		ID:          id,
		Device:      device,
		ArrivalTime: arrival,
		Status:      TaskPending,
	}
}

// LatencyExceeded reports whether more than MaxLatency has elapsed since arrival.
func (t *Task) LatencyExceeded(clock float64) bool {
	if t.MaxLatency <= 0 {
		return false
	}
	return clock-t.ArrivalTime > t.MaxLatency
}

// Terminal reports whether the task has succeeded or failed.
func (t *Task) Terminal() bool {
	return t.Status != TaskPending
}

// Fail marks the task failed. Panics if the task already finished.
func (t *Task) Fail(reason FailureReason, clock float64) {
	if t.Terminal() {
		panic(fmt.Sprintf("sim: task %d failed (%s) after reaching status %s", t.ID, reason, t.Status))
	}
	t.Status = TaskFailed
	t.Reason = reason
	t.CompletionTime = clock
}

// Succeed marks the task successful. Panics if the task already finished.
func (t *Task) Succeed(clock float64) {
	if t.Terminal() {
		panic(fmt.Sprintf("sim: task %d succeeded after reaching status %s", t.ID, t.Status))
	}
	t.Status = TaskSuccess
	t.CompletionTime = clock
}

// TotalNetworkTime sums transmission time over all link kinds.
func (t *Task) TotalNetworkTime() float64 {
	return t.NetworkTime[0] + t.NetworkTime[1] + t.NetworkTime[2]
}

// ExecutionTime returns the time spent executing, 0 if the task never ran.
func (t *Task) ExecutionTime() float64 {
	if t.ExecEndTime <= t.ExecStartTime {
		return 0
	}
	return t.ExecEndTime - t.ExecStartTime
}

// WaitingTime returns the time spent queued at the destination before execution started.
func (t *Task) WaitingTime() float64 {
	if t.ExecStartTime <= t.ExecSubmitTime {
		return 0
	}
	return t.ExecStartTime - t.ExecSubmitTime
}

func (t *Task) String() string {
	return fmt.Sprintf("Task{ID: %d, App: %s, Status: %s, Reason: %s, Arrival: %g}",
		t.ID, t.Application, t.Status, t.Reason, t.ArrivalTime)
}
