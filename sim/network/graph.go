package network

// graph.go holds the infrastructure topology and shortest-path routing.
//
// Links form a directed multigraph over compute nodes. Routing runs on a gonum
// projection of that multigraph that keeps, for each ordered node pair, the
// smallest latency among its parallel links. Latency is the only edge weight;
// bandwidth never influences routing.

import (
	"fmt"
	"math"

	"github.com/edgesim/edgesim/sim"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// RoutingError reports that no path exists between two nodes. At transfer
// creation time this is a topology-authoring bug.
type RoutingError struct {
	Src, Dst *sim.Node
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no route from node %d (%s) to node %d (%s)", e.Src.ID, e.Src.Kind, e.Dst.ID, e.Dst.Kind)
}

// Path is an ordered route: len(Links) == len(Vertices)-1 and Links[i] joins
// Vertices[i] to Vertices[i+1].
type Path struct {
	Vertices []*sim.Node
	Links    []*Link
	Latency  float64
}

// Graph is the infrastructure topology.
type Graph struct {
	nodes map[int]*sim.Node
	order []*sim.Node // vertices in insertion order
	links []*Link
	in    map[int][]*Link // incoming links per node ID, insertion order

	routing *simple.WeightedDirectedGraph

	// trees caches shortest-path trees per source; all is set by Finalize.
	trees map[int]path.Shortest
	all   *path.AllShortest
}

// NewGraph creates an empty topology.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[int]*sim.Node),
		in:      make(map[int][]*Link),
		routing: simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		trees:   make(map[int]path.Shortest),
	}
}

// AddLink inserts both endpoints as vertices if absent and the link as an edge
// weighted by its latency. Adding a link invalidates cached routes.
func (g *Graph) AddLink(l *Link) {
	g.addVertex(l.Src)
	g.addVertex(l.Dst)
	l.ID = len(g.links)
	g.links = append(g.links, l)
	g.in[l.Dst.ID] = append(g.in[l.Dst.ID], l)

	if l.Src.ID != l.Dst.ID {
		from, to := simple.Node(l.Src.ID), simple.Node(l.Dst.ID)
		if e := g.routing.WeightedEdge(from.ID(), to.ID()); e == nil || l.Latency < e.Weight() {
			g.routing.SetWeightedEdge(simple.WeightedEdge{F: from, T: to, W: l.Latency})
		}
	}
	g.trees = make(map[int]path.Shortest)
	g.all = nil
}

func (g *Graph) addVertex(n *sim.Node) {
	if _, ok := g.nodes[n.ID]; ok {
		return
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n)
	g.routing.AddNode(simple.Node(n.ID))
}

// Links returns every link in insertion order.
func (g *Graph) Links() []*Link { return g.links }

// Nodes returns every vertex in insertion order.
func (g *Graph) Nodes() []*sim.Node { return g.order }

// HasNode reports whether the node is a vertex of the graph.
func (g *Graph) HasNode(n *sim.Node) bool {
	_, ok := g.nodes[n.ID]
	return ok
}

// Finalize computes all-pairs shortest paths once the topology is complete, so
// later queries are lookups. Optional: without it trees are computed per source on demand.
func (g *Graph) Finalize() {
	all := path.DijkstraAllPaths(g.routing)
	g.all = &all
}

// dist returns the shortest latency from src to dst, +Inf if unreachable.
func (g *Graph) dist(src, dst int) float64 {
	if src == dst {
		return 0
	}
	if g.all != nil {
		return g.all.Weight(int64(src), int64(dst))
	}
	tree, ok := g.trees[src]
	if !ok {
		tree = path.DijkstraFrom(simple.Node(src), g.routing)
		g.trees[src] = tree
	}
	return tree.WeightTo(int64(dst))
}

// Delay returns the shortest-path latency from src to dst, or +Inf when no path exists.
// Never fails; meant for diagnostics and reporting.
func (g *Graph) Delay(src, dst *sim.Node) float64 {
	if src == dst {
		return 0
	}
	if !g.HasNode(src) || !g.HasNode(dst) {
		return math.Inf(1)
	}
	return g.dist(src.ID, dst.ID)
}

// ShortestPath returns the minimum-latency path from src to dst, or a
// *RoutingError when none exists. Ties are resolved by link insertion order so
// the result is reproducible.
func (g *Graph) ShortestPath(src, dst *sim.Node) (Path, error) {
	if src == dst {
		return Path{Vertices: []*sim.Node{src}}, nil
	}
	total := g.Delay(src, dst)
	if math.IsInf(total, 1) {
		return Path{}, &RoutingError{Src: src, Dst: dst}
	}

	// Breadth-first search backwards from dst over tight links, those lying on
	// some shortest path from src, visiting incoming links in insertion order.
	// Every discovered vertex keeps the link towards dst it was found through.
	next := map[int]*Link{dst.ID: nil}
	queue := []*sim.Node{dst}
	for len(queue) > 0 {
		here := queue[0]
		queue = queue[1:]
		if here.ID == src.ID {
			break
		}
		dHere := g.dist(src.ID, here.ID)
		for _, l := range g.in[here.ID] {
			if _, seen := next[l.Src.ID]; seen || l.Src.ID == here.ID {
				continue
			}
			dPrev := g.dist(src.ID, l.Src.ID)
			if math.IsInf(dPrev, 1) || !sameLatency(dPrev+l.Latency, dHere) {
				continue
			}
			next[l.Src.ID] = l
			queue = append(queue, l.Src)
		}
	}
	if _, ok := next[src.ID]; !ok {
		return Path{}, &RoutingError{Src: src, Dst: dst}
	}

	vertices := []*sim.Node{src}
	var links []*Link
	for l := next[src.ID]; l != nil; l = next[l.Dst.ID] {
		links = append(links, l)
		vertices = append(vertices, l.Dst)
	}
	return Path{Vertices: vertices, Links: links, Latency: total}, nil
}

// sameLatency compares path sums that may have been accumulated in different orders.
func sameLatency(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
