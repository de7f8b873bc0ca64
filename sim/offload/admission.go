// Package offload drives tasks through the offloading pipeline: generation,
// orchestration, payload delivery, optional container pull, execution and
// result return. Failures are classified by the admission checks in this file.
package offload

import (
	"fmt"

	"github.com/edgesim/edgesim/sim"
)

// Phase is a pipeline point at which a task is checked before it may proceed.
type Phase int

const (
	PhaseGeneration   Phase = iota // task leaves its origin device
	PhaseOrchestrator              // request received by the orchestrator
	PhaseDestination               // payload (or container) received by the destination
	PhaseResult                    // result received back at the origin device
)

func (p Phase) String() string {
	switch p {
	case PhaseGeneration:
		return "generation"
	case PhaseOrchestrator:
		return "orchestrator"
	case PhaseDestination:
		return "destination"
	case PhaseResult:
		return "result"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Admit returns the reason task must fail at phase, or sim.ReasonNone if it may
// proceed. The first matching check wins.
func Admit(phase Phase, task *sim.Task, clock float64, cfg sim.Config) sim.FailureReason {
	device := task.Device
	switch phase {
	case PhaseGeneration:
		if device.IsDead() {
			return sim.ReasonNotGeneratedDeviceDead
		}
	case PhaseOrchestrator:
		switch {
		case device.IsDead():
			return sim.ReasonOriginDead
		case task.Orchestrator.IsDead():
			return sim.ReasonOrchestratorDead
		case task.LatencyExceeded(clock):
			return sim.ReasonLatencyExceeded
		case !cfg.InRange(device, task.Orchestrator):
			return sim.ReasonMobilityMismatch
		}
	case PhaseDestination:
		switch {
		case device.IsDead():
			return sim.ReasonOriginDead
		case task.Destination.IsDead():
			return sim.ReasonDestinationDead
		case task.LatencyExceeded(clock):
			return sim.ReasonLatencyExceeded
		case !cfg.InRange(device, task.Destination):
			return sim.ReasonMobilityMismatch
		}
	case PhaseResult:
		switch {
		case device.IsDead():
			return sim.ReasonOriginDead
		case task.LatencyExceeded(clock):
			return sim.ReasonLatencyExceeded
		}
	default:
		panic(fmt.Sprintf("offload: unknown admission phase %d", int(phase)))
	}
	return sim.ReasonNone
}
