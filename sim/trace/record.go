// Package trace provides observability records for offloading simulations.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// TransferRecord captures one delivered network transfer.
type TransferRecord struct {
	TransferID int64
	TaskID     int
	Kind       string
	Src        int
	Dst        int
	SizeBits   float64
	Hops       int

	// Transmission time and bits moved per link kind.
	LANTime float64
	MANTime float64
	WANTime float64
	LANBits float64
	MANBits float64
	WANBits float64

	Start float64
	End   float64
}

// OrchestrationRecord captures a single offloading decision.
type OrchestrationRecord struct {
	TaskID    int
	Clock     float64
	Algorithm string
	Chosen    int // node ID, -1 when nothing was eligible
	Eligible  int // number of eligible candidates
	Score     float64
	Reason    string
}

// TaskRecord captures the terminal status of a task.
type TaskRecord struct {
	TaskID       int
	Application  string
	Device       int
	Orchestrator int // -1 if never assigned
	Destination  int // -1 if never assigned
	Status       string
	Reason       string
	Arrival      float64
	Completion   float64
	NetworkTime  float64
	ExecTime     float64
}
