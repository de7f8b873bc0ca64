package trace

// TraceLevel controls the verbosity of recording.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTasks captures task outcomes and orchestration decisions.
	TraceLevelTasks TraceLevel = "tasks"
	// TraceLevelAll additionally captures every delivered transfer.
	TraceLevelAll TraceLevel = "all"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelTasks: true,
	TraceLevelAll:   true,
	"":              true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Sink receives observability records. Calls are fire-and-forget: a sink has no
// way to push back on the simulation, and its failures must not affect it.
type Sink interface {
	RecordTransfer(TransferRecord)
	RecordOrchestration(OrchestrationRecord)
	RecordTask(TaskRecord)
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) RecordTransfer(TransferRecord)           {}
func (NopSink) RecordOrchestration(OrchestrationRecord) {}
func (NopSink) RecordTask(TaskRecord)                   {}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records in memory during a simulation.
type SimulationTrace struct {
	Config         TraceConfig
	Transfers      []TransferRecord
	Orchestrations []OrchestrationRecord
	Tasks          []TaskRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:         config,
		Transfers:      make([]TransferRecord, 0),
		Orchestrations: make([]OrchestrationRecord, 0),
		Tasks:          make([]TaskRecord, 0),
	}
}

// RecordTransfer appends a transfer record when the level is TraceLevelAll.
func (st *SimulationTrace) RecordTransfer(record TransferRecord) {
	if st.Config.Level != TraceLevelAll {
		return
	}
	st.Transfers = append(st.Transfers, record)
}

// RecordOrchestration appends an orchestration record unless tracing is disabled.
func (st *SimulationTrace) RecordOrchestration(record OrchestrationRecord) {
	if !st.enabled() {
		return
	}
	st.Orchestrations = append(st.Orchestrations, record)
}

// RecordTask appends a task record unless tracing is disabled.
func (st *SimulationTrace) RecordTask(record TaskRecord) {
	if !st.enabled() {
		return
	}
	st.Tasks = append(st.Tasks, record)
}

func (st *SimulationTrace) enabled() bool {
	return st.Config.Level == TraceLevelTasks || st.Config.Level == TraceLevelAll
}
