// Package orchestrator selects an offloading destination for each task.
package orchestrator

import (
	"errors"
	"fmt"
	"math"

	"github.com/edgesim/edgesim/sim"
	"golang.org/x/exp/slices"
)

// ErrLackOfResources is returned when no node is eligible to host a task.
// The caller must fail the task; algorithms never retry.
var ErrLackOfResources = errors.New("no eligible offloading destination")

// Decision describes the outcome of one orchestration.
type Decision struct {
	Node     *sim.Node
	Index    int     // index of Node in the orchestrator's node list
	Eligible int     // number of eligible candidates at decision time
	Score    float64 // algorithm score of the chosen node (history size for round-robin)
	Reason   string
}

// Orchestrator decides where tasks run.
type Orchestrator interface {
	// Orchestrate picks a destination, records it in the task and the assignment
	// history, or returns ErrLackOfResources.
	Orchestrate(task *sim.Task) (Decision, error)
	// ResultReturned is called once for every task reaching a terminal status,
	// successful or not.
	ResultReturned(task *sim.Task)
}

// Factory builds an orchestrator for a run. It replaces selection by type name:
// callers pass the strategy they want at startup.
type Factory func(cfg sim.Config, nodes []*sim.Node) (Orchestrator, error)

// DefaultFactory builds the Default orchestrator.
func DefaultFactory(cfg sim.Config, nodes []*sim.Node) (Orchestrator, error) {
	o, err := New(cfg, nodes)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Default orchestrates over a fixed node list with one of the built-in algorithms.
type Default struct {
	cfg       sim.Config
	layers    []Layer
	algorithm Algorithm
	nodes     []*sim.Node
	index     map[int]int // node ID → position in nodes

	// history[i] lists the task IDs assigned to nodes[i]. It never shrinks during a run.
	history  [][]int
	returned []int
}

// New creates a Default orchestrator for the configured architecture and algorithm.
func New(cfg sim.Config, nodes []*sim.Node) (*Default, error) {
	layers, err := ParseArchitecture(cfg.Orchestration.Architecture)
	if err != nil {
		return nil, err
	}
	algorithm, err := ParseAlgorithm(cfg.Orchestration.Algorithm)
	if err != nil {
		return nil, err
	}
	o := &Default{
		cfg:       cfg,
		layers:    layers,
		algorithm: algorithm,
		nodes:     nodes,
		index:     make(map[int]int, len(nodes)),
		history:   make([][]int, len(nodes)),
		returned:  make([]int, len(nodes)),
	}
	for i, n := range nodes {
		if _, dup := o.index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		o.index[n.ID] = i
	}
	return o, nil
}

// Algorithm returns the selection algorithm in use.
func (o *Default) Algorithm() Algorithm { return o.algorithm }

// Nodes returns the candidate nodes in index order.
func (o *Default) Nodes() []*sim.Node { return o.nodes }

// History returns the task IDs assigned to the node at index i.
func (o *Default) History(i int) []int { return o.history[i] }

// HistorySizes returns the number of tasks assigned to each node, in index order.
func (o *Default) HistorySizes() []int {
	sizes := make([]int, len(o.history))
	for i, h := range o.history {
		sizes[i] = len(h)
	}
	return sizes
}

// Returned returns how many tasks assigned to the node at index i have finished.
func (o *Default) Returned(i int) int { return o.returned[i] }

// SeedHistory appends task IDs to a node's history; for warm-starting scenarios and tests.
func (o *Default) SeedHistory(i int, taskIDs ...int) {
	o.history[i] = append(o.history[i], taskIDs...)
}

// OffloadingIsPossible reports whether node may host task under the architecture.
func (o *Default) OffloadingIsPossible(task *sim.Task, node *sim.Node) bool {
	switch node.Kind {
	case sim.KindCloud:
		return slices.Contains(o.layers, LayerCloud)
	case sim.KindEdgeDatacenter:
		if !slices.Contains(o.layers, LayerEdge) {
			return false
		}
		if task.Device.Uplink == node {
			return true
		}
		return o.cfg.OrchestratorsEnabled() && task.Orchestrator != nil && task.Orchestrator.Uplink == node
	case sim.KindEdgeDevice:
		if !slices.Contains(o.layers, LayerMist) || node.IsDead() {
			return false
		}
		if withinRange(task.Device, node, o.cfg.EdgeDevicesRange) {
			return true
		}
		return o.cfg.OrchestratorsEnabled() && task.Orchestrator != nil &&
			withinRange(task.Orchestrator, node, o.cfg.EdgeDevicesRange)
	default:
		// Sensors only generate tasks.
		return false
	}
}

func withinRange(a, b *sim.Node, r float64) bool {
	return a.DistanceTo(b) <= r
}

// Orchestrate implements Orchestrator.
func (o *Default) Orchestrate(task *sim.Task) (Decision, error) {
	var d Decision
	switch o.algorithm {
	case AlgorithmRoundRobin:
		d = o.roundRobin(task)
	case AlgorithmTradeOff:
		d = o.tradeOff(task)
	default:
		panic(fmt.Sprintf("unhandled orchestration algorithm %q", o.algorithm))
	}
	if d.Index < 0 {
		return d, ErrLackOfResources
	}

	node := o.nodes[d.Index]
	d.Node = node
	o.history[d.Index] = append(o.history[d.Index], task.ID)
	task.Destination = node
	return d, nil
}

// ResultReturned implements Orchestrator.
func (o *Default) ResultReturned(task *sim.Task) {
	if task.Destination == nil {
		return
	}
	if i, ok := o.index[task.Destination.ID]; ok {
		o.returned[i]++
	}
}

// roundRobin keeps the first eligible node whose history is strictly smaller
// than the smallest seen so far; ties keep the earliest node.
func (o *Default) roundRobin(task *sim.Task) Decision {
	d := Decision{Index: -1}
	minSize := math.MaxInt
	for i, node := range o.nodes {
		if !o.OffloadingIsPossible(task, node) {
			continue
		}
		d.Eligible++
		if size := len(o.history[i]); size < minSize {
			minSize = size
			d.Index = i
		}
	}
	if d.Index >= 0 {
		d.Score = float64(minSize)
		d.Reason = fmt.Sprintf("round-robin (history=%d)", minSize)
	}
	return d
}

// tradeOff minimizes (history+1) × weight(kind) × length / mips; the first
// strictly smaller score wins ties. Nodes without compute capacity are skipped.
func (o *Default) tradeOff(task *sim.Task) Decision {
	d := Decision{Index: -1}
	best := math.Inf(1)
	for i, node := range o.nodes {
		if !o.OffloadingIsPossible(task, node) || !(node.MIPS > 0) {
			continue
		}
		d.Eligible++
		score := float64(len(o.history[i])+1) * o.cfg.TradeOffWeights.Weight(node.Kind) * task.Length / node.MIPS
		if score < best || d.Index < 0 {
			best = score
			d.Index = i
		}
	}
	if d.Index >= 0 {
		d.Score = best
		d.Reason = fmt.Sprintf("trade-off (score=%.4f)", best)
	}
	return d
}
