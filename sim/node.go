package sim

import (
	"fmt"
	"math"
)

// NodeKind is the tier a compute node belongs to.
type NodeKind string

const (
	KindCloud          NodeKind = "CLOUD"
	KindEdgeDatacenter NodeKind = "EDGE_DATACENTER"
	KindEdgeDevice     NodeKind = "EDGE_DEVICE"
	KindSensor         NodeKind = "SENSOR"
)

// validNodeKinds maps accepted node kind strings.
var validNodeKinds = map[NodeKind]bool{
	KindCloud:          true,
	KindEdgeDatacenter: true,
	KindEdgeDevice:     true,
	KindSensor:         true,
}

// IsValidNodeKind returns true if the given string is a recognized node kind.
func IsValidNodeKind(kind string) bool {
	return validNodeKinds[NodeKind(kind)]
}

// Point is a location on the simulation plane, in meters.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Node is a compute node of any tier. Kind-specific behavior is driven by Kind
// and the capability flags rather than by distinct types.
type Node struct {
	ID       int
	Name     string
	Kind     NodeKind
	Location Point

	Alive               bool
	OrchestratorCapable bool
	GeneratesTasks      bool

	MIPS  float64 // Processing capacity per core, million instructions per second
	Cores int

	// Uplink is the edge datacenter currently reachable from this node, nil if none.
	// Maintained by the node-status updater.
	Uplink *Node

	// MTBF is the mean time between failures in seconds; 0 means the node never fails.
	MTBF float64
}

// IsCloud reports whether the node is a cloud datacenter.
func (n *Node) IsCloud() bool { return n.Kind == KindCloud }

// IsSensor reports whether the node is a sensor. Sensors generate tasks but never host them.
func (n *Node) IsSensor() bool { return n.Kind == KindSensor }

// IsDead reports whether the node has failed.
func (n *Node) IsDead() bool { return !n.Alive }

// DistanceTo returns the distance between two nodes.
func (n *Node) DistanceTo(o *Node) float64 {
	return n.Location.Distance(o.Location)
}

func (n *Node) String() string {
	return fmt.Sprintf("node %d (%s)", n.ID, n.Kind)
}
