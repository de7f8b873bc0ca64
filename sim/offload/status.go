package offload

import (
	"fmt"
	"math"

	"github.com/edgesim/edgesim/sim"
	"github.com/iti/rngstream"
	"github.com/sirupsen/logrus"
)

// failureStream returns the failure stream of a node. The stream is seeded
// directly instead of through rngstream.New, which advances package-wide state
// shared by every run in the process.
func failureStream(rng *sim.PartitionedRNG, n *sim.Node) *rngstream.RngStream {
	stream := new(rngstream.RngStream)
	if !stream.SetSeed(rng.StreamSeed(sim.SubsystemFailure, n.ID)) {
		panic(fmt.Sprintf("node-status: invalid failure stream seed for %s", n))
	}
	return stream
}

// StatusUpdater maintains node liveness and uplinks. Every node-update interval
// it draws failures for nodes with a positive MTBF and recomputes which edge
// datacenter each device is attached to. It is the only writer of
// Node.Alive and Node.Uplink during a run.
type StatusUpdater struct {
	cfg     sim.Config
	nodes   []*sim.Node
	dcs     []*sim.Node
	streams map[int]*rngstream.RngStream

	failures int
}

// NewStatusUpdater creates an updater over nodes. Each node with a positive MTBF
// gets its own random stream, derived from cfg.Seed and the node ID.
func NewStatusUpdater(cfg sim.Config, nodes []*sim.Node) *StatusUpdater {
	rng := sim.NewPartitionedRNG(cfg.Seed)
	u := &StatusUpdater{
		cfg:     cfg,
		nodes:   nodes,
		streams: make(map[int]*rngstream.RngStream),
	}
	for _, n := range nodes {
		if n.Kind == sim.KindEdgeDatacenter {
			u.dcs = append(u.dcs, n)
		}
		if n.MTBF > 0 {
			u.streams[n.ID] = failureStream(rng, n)
		}
	}
	return u
}

// Name implements sim.Entity.
func (u *StatusUpdater) Name() string { return "node-status" }

// Start implements sim.Entity. Uplinks are computed before any task arrives.
func (u *StatusUpdater) Start(k *sim.Kernel) {
	u.UpdateUplinks()
	if u.cfg.NodeUpdateInterval > 0 {
		k.Schedule(u, u.cfg.NodeUpdateInterval, tagStatusUpdate, nil)
	}
}

// Shutdown implements sim.Entity.
func (u *StatusUpdater) Shutdown(_ *sim.Kernel) {}

// ProcessEvent implements sim.Entity.
func (u *StatusUpdater) ProcessEvent(k *sim.Kernel, ev *sim.Event) {
	if ev.Tag() != tagStatusUpdate {
		panic(fmt.Sprintf("node-status: unexpected event tag %d", ev.Tag()))
	}
	u.applyFailures(k)
	u.UpdateUplinks()
	k.Schedule(u, u.cfg.NodeUpdateInterval, tagStatusUpdate, nil)
}

// Failures returns the number of nodes that failed so far.
func (u *StatusUpdater) Failures() int { return u.failures }

// applyFailures kills each alive node with probability 1 - exp(-interval/MTBF),
// the chance that an exponential lifetime ends within one interval.
func (u *StatusUpdater) applyFailures(k *sim.Kernel) {
	for _, n := range u.nodes {
		stream, ok := u.streams[n.ID]
		if !ok || n.IsDead() {
			continue
		}
		p := 1 - math.Exp(-u.cfg.NodeUpdateInterval/n.MTBF)
		if stream.RandU01() < p {
			n.Alive = false
			u.failures++
			logrus.Infof("[t=%.3f] node-status: %s failed", k.Clock(), n)
		}
	}
}

// UpdateUplinks attaches every device and sensor to the nearest alive edge
// datacenter within range (first in node order on ties), or to none.
// Datacenters are their own uplink; cloud nodes have none.
func (u *StatusUpdater) UpdateUplinks() {
	for _, n := range u.nodes {
		switch n.Kind {
		case sim.KindCloud:
			n.Uplink = nil
		case sim.KindEdgeDatacenter:
			n.Uplink = n
		default:
			n.Uplink = u.nearestDatacenter(n)
		}
	}
}

func (u *StatusUpdater) nearestDatacenter(n *sim.Node) *sim.Node {
	var best *sim.Node
	bestDist := math.Inf(1)
	for _, dc := range u.dcs {
		if dc.IsDead() {
			continue
		}
		d := n.DistanceTo(dc)
		if d <= u.cfg.EdgeDatacentersRange && d < bestDist {
			best, bestDist = dc, d
		}
	}
	return best
}
