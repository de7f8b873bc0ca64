package network

import (
	"fmt"

	"github.com/edgesim/edgesim/sim"
)

// TransferKind is the pipeline stage a transfer belongs to.
type TransferKind int

const (
	TransferRequest TransferKind = iota
	TransferTaskPayload
	TransferContainer
	TransferResultToOrchestrator
	TransferResultToDevice
)

var transferKindNames = map[TransferKind]string{
	TransferRequest:              "REQUEST",
	TransferTaskPayload:          "TASK_PAYLOAD",
	TransferContainer:            "CONTAINER",
	TransferResultToOrchestrator: "RESULT_TO_ORCHESTRATOR",
	TransferResultToDevice:       "RESULT_TO_DEVICE",
}

func (k TransferKind) String() string {
	if name, ok := transferKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TransferKind(%d)", int(k))
}

// Transfer moves Size bits of one task along a path, one hop at a time.
// Every hop retransmits the full size.
type Transfer struct {
	ID   int64
	Task *sim.Task
	Kind TransferKind

	Src, Dst  *sim.Node
	Size      float64 // bits
	Remaining float64 // bits left on the current hop

	// Remaining path: vertices[0] is the vertex the transfer is leaving,
	// links[0] the link it is currently on.
	vertices []*sim.Node
	links    []*Link

	Bandwidth float64 // bits/s allocated on the last tick

	usage [numLinkKinds]float64 // seconds of transmission per link kind
	bits  [numLinkKinds]float64 // bits moved per link kind

	Hops      int
	StartTime float64
	EndTime   float64
}

func newTransfer(id int64, task *sim.Task, kind TransferKind, size float64, p Path, now float64) *Transfer {
	return &Transfer{
		ID:        id,
		Task:      task,
		Kind:      kind,
		Src:       p.Vertices[0],
		Dst:       p.Vertices[len(p.Vertices)-1],
		Size:      size,
		Remaining: size,
		vertices:  append([]*sim.Node(nil), p.Vertices...),
		links:     append([]*Link(nil), p.Links...),
		StartTime: now,
	}
}

// CurrentLink returns the link the transfer is on, nil once it has arrived.
func (t *Transfer) CurrentLink() *Link {
	if len(t.links) == 0 {
		return nil
	}
	return t.links[0]
}

// RemainingVertices returns the vertices still ahead, including the current one.
func (t *Transfer) RemainingVertices() []*sim.Node {
	return t.vertices
}

// Arrived reports whether only the destination vertex is left.
func (t *Transfer) Arrived() bool {
	return len(t.vertices) == 1
}

// advance pops the traversed vertex and link. The transfer is reset to its full
// size for the next hop.
func (t *Transfer) advance() {
	t.vertices = t.vertices[1:]
	t.links = t.links[1:]
	t.Hops++
	if !t.Arrived() {
		t.Remaining = t.Size
	}
}

// addUsage charges elapsed transmission time and bits to a link kind.
func (t *Transfer) addUsage(kind LinkKind, delay, bits float64) {
	t.usage[kind] += delay
	t.bits[kind] += bits
}

// Usage returns the transmission time accumulated on links of the given kind.
func (t *Transfer) Usage(kind LinkKind) float64 { return t.usage[kind] }

// Bits returns the bits moved on links of the given kind.
func (t *Transfer) Bits(kind LinkKind) float64 { return t.bits[kind] }

// TotalUsage returns the transmission time over every link kind.
func (t *Transfer) TotalUsage() float64 {
	total := 0.0
	for _, u := range t.usage {
		total += u
	}
	return total
}

func (t *Transfer) String() string {
	taskID := -1
	if t.Task != nil {
		taskID = t.Task.ID
	}
	return fmt.Sprintf("transfer %d (%s, task %d, %g/%g bits)", t.ID, t.Kind, taskID, t.Remaining, t.Size)
}
