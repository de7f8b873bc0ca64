package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTasks         int
	SucceededCount     int
	FailedCount        int
	FailureReasons     map[string]int
	TransfersByKind    map[string]int
	LANTime            float64
	MANTime            float64
	WANTime            float64
	UniqueTargets      int
	TargetDistribution map[int]int // node ID → count of tasks offloaded to it
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		FailureReasons:     make(map[string]int),
		TransfersByKind:    make(map[string]int),
		TargetDistribution: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalTasks = len(st.Tasks)
	for _, t := range st.Tasks {
		if t.Status == "success" {
			summary.SucceededCount++
			continue
		}
		summary.FailedCount++
		summary.FailureReasons[t.Reason]++
	}

	for _, tr := range st.Transfers {
		summary.TransfersByKind[tr.Kind]++
		summary.LANTime += tr.LANTime
		summary.MANTime += tr.MANTime
		summary.WANTime += tr.WANTime
	}

	for _, o := range st.Orchestrations {
		if o.Chosen >= 0 {
			summary.TargetDistribution[o.Chosen]++
		}
	}
	summary.UniqueTargets = len(summary.TargetDistribution)

	return summary
}
