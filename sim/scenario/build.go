package scenario

import (
	"fmt"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/network"
	"github.com/edgesim/edgesim/sim/workload"
	"github.com/sirupsen/logrus"
)

// mbit is the number of bits in one megabit, the unit of scenario bandwidths.
const mbit = 1e6

// Built is everything a run needs from a scenario. Nodes and links are fresh
// objects owned by the caller.
type Built struct {
	Config   sim.Config
	Nodes    []*sim.Node
	Links    []*network.Link
	Workload *workload.Spec
	Duration float64
}

// Tasks generates the workload over the built nodes.
func (b *Built) Tasks() ([]*sim.Task, error) {
	return workload.Generate(b.Workload, b.Nodes, b.Duration, b.Config.Seed)
}

// Build validates the scenario and creates its nodes and links.
// Nodes get ids in declaration order. Nodes without a location are placed
// uniformly in the area from the seeded placement stream, so the same seed
// always yields the same topology.
func (s *Scenario) Build() (*Built, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	cfg := s.Config()
	rng := sim.NewPartitionedRNG(cfg.Seed).ForSubsystem(sim.SubsystemPlacement)

	var nodes []*sim.Node
	byName := make(map[string]*sim.Node)
	for _, spec := range s.Nodes {
		cores := spec.Cores
		if cores == 0 {
			cores = 1
		}
		for _, name := range spec.expandedNames() {
			n := &sim.Node{
				ID:                  len(nodes),
				Name:                name,
				Kind:                sim.NodeKind(spec.Kind),
				Alive:               true,
				OrchestratorCapable: spec.Orchestrator,
				GeneratesTasks:      spec.GeneratesTasks,
				MIPS:                spec.MIPS,
				Cores:               cores,
				MTBF:                spec.MTBF,
			}
			if spec.Location != nil {
				n.Location = *spec.Location
			} else {
				n.Location = sim.Point{X: rng.Float64() * s.Area.Width, Y: rng.Float64() * s.Area.Height}
			}
			nodes = append(nodes, n)
			byName[name] = n
		}
	}

	var links []*network.Link
	if s.Network.AutoConnect {
		links = s.autoConnect(cfg, nodes)
	}
	names, err := s.nodeNames()
	if err != nil {
		return nil, err
	}
	for _, l := range s.Links {
		kind, err := s.validateLinkSpec(l, names)
		if err != nil {
			return nil, err
		}
		latency, bandwidth := s.linkParams(l, kind)
		src, dst := byName[l.From], byName[l.To]
		links = append(links, network.NewLink(src, dst, kind, latency, bandwidth*mbit))
		if !l.Directed {
			links = append(links, network.NewLink(dst, src, kind, latency, bandwidth*mbit))
		}
	}

	logrus.Infof("Built scenario: %d nodes, %d links", len(nodes), len(links))
	return &Built{
		Config:   cfg,
		Nodes:    nodes,
		Links:    links,
		Workload: s.Workload,
		Duration: s.Simulation.Duration,
	}, nil
}

// autoConnect links every pair of nodes the tier rules connect, in both
// directions and in node order:
//   - devices (including sensors) to datacenters within datacenter range, over LAN
//   - devices to devices within device range, over LAN
//   - datacenters to datacenters, over MAN
//   - datacenters and devices to the cloud, over WAN
func (s *Scenario) autoConnect(cfg sim.Config, nodes []*sim.Node) []*network.Link {
	var links []*network.Link
	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			kind, ok := autoLinkKind(cfg, a, b)
			if !ok {
				continue
			}
			d := s.linkDefaults(kind)
			links = append(links,
				network.NewLink(a, b, kind, d.Latency, d.Bandwidth*mbit),
				network.NewLink(b, a, kind, d.Latency, d.Bandwidth*mbit))
		}
	}
	return links
}

func autoLinkKind(cfg sim.Config, a, b *sim.Node) (network.LinkKind, bool) {
	tier := func(n *sim.Node) int {
		switch n.Kind {
		case sim.KindCloud:
			return 2
		case sim.KindEdgeDatacenter:
			return 1
		default:
			return 0
		}
	}
	lo, hi := a, b
	if tier(lo) > tier(hi) {
		lo, hi = hi, lo
	}
	switch {
	case tier(hi) == 2 && tier(lo) == 2:
		return 0, false
	case tier(hi) == 2:
		return network.WAN, true
	case tier(lo) == 1:
		return network.MAN, true
	case tier(hi) == 1:
		return network.LAN, lo.DistanceTo(hi) <= cfg.EdgeDatacentersRange
	default:
		return network.LAN, lo.DistanceTo(hi) <= cfg.EdgeDevicesRange
	}
}
