package offload

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/network"
	"github.com/sirupsen/logrus"
)

// Metrics aggregates task outcomes and network usage of one run for final reporting.
type Metrics struct {
	RunID        string  `json:"run_id,omitempty"`
	Architecture string  `json:"architecture"`
	Algorithm    string  `json:"algorithm"`
	Deployment   string  `json:"deployment"`
	SimEndedTime float64 `json:"sim_ended_time"`

	Tasks     int `json:"tasks"`
	Generated int `json:"generated"` // tasks whose arrival was processed
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`

	FailuresByReason map[string]int `json:"failures_by_reason"`
	ExecutedByKind   map[string]int `json:"executed_by_kind"`

	// Averages over successful tasks, seconds.
	AvgNetworkTime   float64 `json:"avg_network_time"`
	AvgWaitingTime   float64 `json:"avg_waiting_time"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	AvgCompletion    float64 `json:"avg_completion_time"` // completion − arrival

	NetworkTimeByLink  map[string]float64 `json:"network_time_by_link"`
	TransfersCompleted int64              `json:"transfers_completed"`
	NodeFailures       int                `json:"node_failures"`
	EventsDispatched   int64              `json:"events_dispatched"`
}

// NewMetrics returns an empty Metrics with initialized maps.
func NewMetrics() *Metrics {
	return &Metrics{
		FailuresByReason:  make(map[string]int),
		ExecutedByKind:    make(map[string]int),
		NetworkTimeByLink: make(map[string]float64),
	}
}

// collect summarizes tasks after a run.
func (m *Metrics) collect(tasks []*sim.Task) {
	m.Tasks = len(tasks)
	var netSum, waitSum, execSum, completionSum float64
	for _, t := range tasks {
		switch t.Status {
		case sim.TaskSuccess:
			m.Succeeded++
			netSum += t.TotalNetworkTime()
			waitSum += t.WaitingTime()
			execSum += t.ExecutionTime()
			completionSum += t.CompletionTime - t.ArrivalTime
		case sim.TaskFailed:
			m.Failed++
			m.FailuresByReason[string(t.Reason)]++
		default:
			m.Pending++
		}
	}
	if m.Succeeded > 0 {
		n := float64(m.Succeeded)
		m.AvgNetworkTime = netSum / n
		m.AvgWaitingTime = waitSum / n
		m.AvgExecutionTime = execSum / n
		m.AvgCompletion = completionSum / n
	}
}

func (m *Metrics) collectNetwork(model *network.Model) {
	for _, kind := range network.LinkKinds {
		m.NetworkTimeByLink[kind.String()] = model.Usage(kind)
	}
	m.TransfersCompleted = model.Completed()
}

// SuccessRate returns the share of tasks that succeeded, 0 when there are none.
func (m *Metrics) SuccessRate() float64 {
	if m.Tasks == 0 {
		return 0
	}
	return float64(m.Succeeded) / float64(m.Tasks)
}

// Print writes a human-readable report.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Orchestration        : %s / %s (deployment %s)\n", m.Architecture, m.Algorithm, m.Deployment)
	fmt.Fprintf(w, "Simulation ended at  : %.3f s\n", m.SimEndedTime)
	fmt.Fprintf(w, "Tasks                : %d (generated %d)\n", m.Tasks, m.Generated)
	fmt.Fprintf(w, "Succeeded            : %d (%.2f%%)\n", m.Succeeded, 100*m.SuccessRate())
	fmt.Fprintf(w, "Failed               : %d\n", m.Failed)
	for _, reason := range sim.FailureReasons {
		if n := m.FailuresByReason[string(reason)]; n > 0 {
			fmt.Fprintf(w, "  %-26s : %d\n", reason, n)
		}
	}
	if m.Pending > 0 {
		fmt.Fprintf(w, "Unfinished           : %d\n", m.Pending)
	}
	for _, kind := range []sim.NodeKind{sim.KindCloud, sim.KindEdgeDatacenter, sim.KindEdgeDevice} {
		fmt.Fprintf(w, "Executed on %-16s : %d\n", kind, m.ExecutedByKind[string(kind)])
	}
	if m.Succeeded > 0 {
		fmt.Fprintf(w, "Average network time : %.4f s\n", m.AvgNetworkTime)
		fmt.Fprintf(w, "Average waiting time : %.4f s\n", m.AvgWaitingTime)
		fmt.Fprintf(w, "Average exec time    : %.4f s\n", m.AvgExecutionTime)
		fmt.Fprintf(w, "Average completion   : %.4f s\n", m.AvgCompletion)
	}
	for _, kind := range network.LinkKinds {
		fmt.Fprintf(w, "%s transmission time : %.4f s\n", kind, m.NetworkTimeByLink[kind.String()])
	}
	fmt.Fprintf(w, "Transfers completed  : %d\n", m.TransfersCompleted)
	fmt.Fprintf(w, "Node failures        : %d\n", m.NodeFailures)
}

// JSON returns the metrics as indented JSON.
func (m *Metrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// SaveResults writes the metrics as JSON to path.
func (m *Metrics) SaveResults(path string) error {
	data, err := m.JSON()
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	logrus.Infof("Metrics written to: %s", path)
	return nil
}
