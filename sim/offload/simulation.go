package offload

import (
	"fmt"
	"math"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/network"
	"github.com/edgesim/edgesim/sim/orchestrator"
	"github.com/edgesim/edgesim/sim/trace"
	"github.com/sirupsen/logrus"
)

// Options selects the pluggable collaborators of a simulation.
// Zero values select the defaults.
type Options struct {
	Orchestrator orchestrator.Factory // default orchestrator.DefaultFactory
	Executor     Executor             // default NewCoreScheduler()
	Sink         trace.Sink           // default trace.NopSink
	RunID        string
}

// Simulation is one fully assembled, isolated run: its own kernel, topology,
// network model, orchestrator and node state.
type Simulation struct {
	cfg   sim.Config
	runID string
	nodes []*sim.Node
	tasks []*sim.Task

	Kernel       *sim.Kernel
	Graph        *network.Graph
	Network      *network.Model
	Orchestrator orchestrator.Orchestrator

	manager *Manager
	updater *StatusUpdater
	hasRun  bool
}

// NewSimulation validates the inputs and wires every component. It fails
// before anything runs when the configuration is invalid, the topology refers
// to unknown nodes, or a task origin cannot exchange data with a cloud node.
func NewSimulation(cfg sim.Config, nodes []*sim.Node, links []*network.Link, tasks []*sim.Task, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	known := make(map[int]*sim.Node, len(nodes))
	var cloud *sim.Node
	for _, n := range nodes {
		if _, dup := known[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		known[n.ID] = n
		if n.IsCloud() && cloud == nil {
			cloud = n
		}
		if !n.IsSensor() && !(n.MIPS > 0) {
			return nil, fmt.Errorf("%s can host tasks but has no compute capacity (mips=%v)", n, n.MIPS)
		}
	}

	g := network.NewGraph()
	for i, l := range links {
		if known[l.Src.ID] != l.Src || known[l.Dst.ID] != l.Dst {
			return nil, fmt.Errorf("link %d (%d->%d) refers to a node outside the topology", i, l.Src.ID, l.Dst.ID)
		}
		if !(l.Capacity > 0) || l.Latency < 0 {
			return nil, fmt.Errorf("link %d (%d->%d) needs a positive capacity and non-negative latency, got %v bit/s and %v s",
				i, l.Src.ID, l.Dst.ID, l.Capacity, l.Latency)
		}
		g.AddLink(l)
	}
	g.Finalize()

	if err := checkTasks(tasks, known, cloud, g); err != nil {
		return nil, err
	}

	factory := opts.Orchestrator
	if factory == nil {
		factory = orchestrator.DefaultFactory
	}
	orch, err := factory(cfg, nodes)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	executor := opts.Executor
	if executor == nil {
		executor = NewCoreScheduler()
	}

	model := network.NewModel(g, cfg.NetworkUpdateInterval, opts.Sink)
	s := &Simulation{
		cfg:          cfg,
		runID:        opts.RunID,
		nodes:        nodes,
		tasks:        tasks,
		Kernel:       sim.NewKernel(cfg.Horizon),
		Graph:        g,
		Network:      model,
		Orchestrator: orch,
		updater:      NewStatusUpdater(cfg, nodes),
	}
	s.manager = NewManager(cfg, tasks, cloud, model, orch, executor, opts.Sink)

	// The updater starts first so uplinks exist before any arrival.
	s.Kernel.Register(s.updater)
	model.Register(s.Kernel)
	s.Kernel.Register(executor)
	s.Kernel.Register(s.manager)
	return s, nil
}

// checkTasks verifies every task origin is part of the topology and can reach,
// and be reached from, a cloud node.
func checkTasks(tasks []*sim.Task, known map[int]*sim.Node, cloud *sim.Node, g *network.Graph) error {
	checked := make(map[int]bool)
	for _, t := range tasks {
		if t.Device == nil || known[t.Device.ID] != t.Device {
			return fmt.Errorf("task %d originates outside the topology", t.ID)
		}
		if t.ArrivalTime < 0 || math.IsNaN(t.ArrivalTime) {
			return fmt.Errorf("task %d has invalid arrival time %v", t.ID, t.ArrivalTime)
		}
		if checked[t.Device.ID] {
			continue
		}
		checked[t.Device.ID] = true
		if cloud == nil {
			return fmt.Errorf("task %d needs a cloud node but the topology has none", t.ID)
		}
		if _, err := g.ShortestPath(t.Device, cloud); err != nil {
			return fmt.Errorf("task %d origin cannot reach the cloud: %w", t.ID, err)
		}
		if _, err := g.ShortestPath(cloud, t.Device); err != nil {
			return fmt.Errorf("task %d origin cannot be reached from the cloud: %w", t.ID, err)
		}
	}
	return nil
}

// Run executes the simulation and returns its metrics. It returns an error if
// the run was aborted by a routing or orchestration failure.
func (s *Simulation) Run() (*Metrics, error) {
	if s.hasRun {
		return nil, fmt.Errorf("simulation already ran")
	}
	s.hasRun = true
	logrus.WithField("run", s.runID).Infof("Starting simulation: %d nodes, %d links, %d tasks, %s/%s",
		len(s.nodes), len(s.Graph.Links()), len(s.tasks), s.cfg.Orchestration.Architecture, s.cfg.Orchestration.Algorithm)

	s.Kernel.Run()
	if err := s.manager.Err(); err != nil {
		return nil, fmt.Errorf("simulation aborted at t=%.3f: %w", s.Kernel.Clock(), err)
	}

	m := NewMetrics()
	m.RunID = s.runID
	m.Architecture = s.cfg.Orchestration.Architecture
	m.Algorithm = s.cfg.Orchestration.Algorithm
	m.Deployment = s.cfg.Orchestration.Deployment
	m.SimEndedTime = s.Kernel.Clock()
	m.Generated = s.manager.Arrived()
	m.EventsDispatched = s.Kernel.Dispatched()
	m.NodeFailures = s.updater.Failures()
	m.collect(s.tasks)
	m.collectNetwork(s.Network)
	for _, kind := range []sim.NodeKind{sim.KindCloud, sim.KindEdgeDatacenter, sim.KindEdgeDevice} {
		m.ExecutedByKind[string(kind)] = s.manager.Executed(kind)
	}
	logrus.WithField("run", s.runID).Infof("Simulation complete: %d/%d tasks succeeded", m.Succeeded, m.Tasks)
	return m, nil
}

// Tasks returns the tasks of the run, in their final state after Run.
func (s *Simulation) Tasks() []*sim.Task { return s.tasks }

// Nodes returns the nodes of the run.
func (s *Simulation) Nodes() []*sim.Node { return s.nodes }
