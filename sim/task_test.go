package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_LatencyExceeded(t *testing.T) {
	tests := []struct {
		name       string
		maxLatency float64
		clock      float64
		want       bool
	}{
		{"within deadline", 5, 4, false},
		{"exactly at deadline", 5, 6, false},
		{"past deadline", 5, 6.5, true},
		{"no deadline", 0, 1e9, false},
		{"negative means no deadline", -1, 1e9, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := NewTask(1, nil, 1)
			task.MaxLatency = tc.maxLatency
			assert.Equal(t, tc.want, task.LatencyExceeded(tc.clock))
		})
	}
}

func TestTask_Fail_RecordsReasonAndTime(t *testing.T) {
	task := NewTask(1, nil, 0)
	assert.False(t, task.Terminal())

	task.Fail(ReasonDestinationDead, 3)

	assert.True(t, task.Terminal())
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, ReasonDestinationDead, task.Reason)
	assert.Equal(t, 3.0, task.CompletionTime)
}

func TestTask_TerminalStatusIsFinal(t *testing.T) {
	failed := NewTask(1, nil, 0)
	failed.Fail(ReasonOriginDead, 1)
	assert.Panics(t, func() { failed.Succeed(2) })
	assert.Panics(t, func() { failed.Fail(ReasonLatencyExceeded, 2) })
	assert.Equal(t, ReasonOriginDead, failed.Reason)

	succeeded := NewTask(2, nil, 0)
	succeeded.Succeed(1)
	assert.Panics(t, func() { succeeded.Fail(ReasonLatencyExceeded, 2) })
	assert.Equal(t, TaskSuccess, succeeded.Status)
}

func TestTask_Timings(t *testing.T) {
	task := NewTask(1, nil, 0)
	assert.Equal(t, 0.0, task.ExecutionTime())

	task.ExecStartTime = 2
	task.ExecEndTime = 3.5
	task.NetworkTime = [3]float64{0.1, 0.2, 0.3}

	assert.InDelta(t, 1.5, task.ExecutionTime(), 1e-12)
	assert.InDelta(t, 0.6, task.TotalNetworkTime(), 1e-12)
}

func TestNode_Distance(t *testing.T) {
	a := &Node{ID: 1, Kind: KindEdgeDevice, Location: Point{X: 0, Y: 0}}
	b := &Node{ID: 2, Kind: KindEdgeDevice, Location: Point{X: 3, Y: 4}}
	assert.Equal(t, 5.0, a.DistanceTo(b))
	assert.True(t, IsValidNodeKind("EDGE_DATACENTER"))
	assert.False(t, IsValidNodeKind("GATEWAY"))
}
