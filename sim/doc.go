// Package sim provides the discrete-event simulation kernel for edgesim, a
// simulator for offloading tasks across cloud, edge datacenters and edge devices.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: Event and the (time, serial) ordered EventQueue
//   - kernel.go: the clock, Schedule/ScheduleNow, the Run loop and the Entity contract
//   - task.go: Task lifecycle (pending → success | failed(reason))
//   - node.go: the single tagged compute Node type
//   - config.go: the immutable run Config
//
// # Architecture
//
// The sim package holds the kernel and the shared domain types; everything else
// lives in sub-packages that are Entities driven by the kernel:
//   - sim/network/: infrastructure graph, links with fair-share bandwidth, transfer routing
//   - sim/orchestrator/: offloading destination selection (round-robin, trade-off)
//   - sim/offload/: admission/failure state machine, task pipeline, compute executor, node status
//   - sim/scenario/: YAML scenario loading and topology building
//   - sim/workload/: task generation
//   - sim/trace/: observability sink
//
// # Determinism
//
// The kernel is single-threaded. Events sharing a timestamp are dispatched in
// serial order, so identical registration and scheduling calls always produce
// the same dispatch order. Independent runs must each own their kernel, graph
// and nodes.
package sim
