package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_NilTrace_ReturnsZeroSummary(t *testing.T) {
	summary := Summarize(nil)

	assert.Equal(t, 0, summary.TotalTasks)
	assert.Equal(t, 0, summary.UniqueTargets)
	assert.NotNil(t, summary.FailureReasons)
	assert.NotNil(t, summary.TargetDistribution)
}

func TestSummarize_CountsOutcomesAndTargets(t *testing.T) {
	// GIVEN a trace with mixed outcomes, transfers and decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelAll})
	st.RecordTask(TaskRecord{TaskID: 1, Status: "success"})
	st.RecordTask(TaskRecord{TaskID: 2, Status: "failed", Reason: "latency_exceeded"})
	st.RecordTask(TaskRecord{TaskID: 3, Status: "failed", Reason: "latency_exceeded"})
	st.RecordTask(TaskRecord{TaskID: 4, Status: "failed", Reason: "origin_dead"})
	st.RecordOrchestration(OrchestrationRecord{TaskID: 1, Chosen: 10})
	st.RecordOrchestration(OrchestrationRecord{TaskID: 2, Chosen: 10})
	st.RecordOrchestration(OrchestrationRecord{TaskID: 3, Chosen: 11})
	st.RecordOrchestration(OrchestrationRecord{TaskID: 4, Chosen: -1})
	st.RecordTransfer(TransferRecord{Kind: "REQUEST", LANTime: 0.5, WANTime: 1})
	st.RecordTransfer(TransferRecord{Kind: "REQUEST", MANTime: 0.25})
	st.RecordTransfer(TransferRecord{Kind: "RESULT_TO_DEVICE", LANTime: 0.5})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match the records
	assert.Equal(t, 4, summary.TotalTasks)
	assert.Equal(t, 1, summary.SucceededCount)
	assert.Equal(t, 3, summary.FailedCount)
	assert.Equal(t, 2, summary.FailureReasons["latency_exceeded"])
	assert.Equal(t, 1, summary.FailureReasons["origin_dead"])
	assert.Equal(t, 2, summary.TransfersByKind["REQUEST"])
	assert.InDelta(t, 1.0, summary.LANTime, 1e-12)
	assert.InDelta(t, 0.25, summary.MANTime, 1e-12)
	assert.InDelta(t, 1.0, summary.WANTime, 1e-12)
	assert.Equal(t, 2, summary.UniqueTargets)
	assert.Equal(t, 2, summary.TargetDistribution[10])
}
