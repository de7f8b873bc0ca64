package network

import (
	"fmt"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/trace"
	"github.com/sirupsen/logrus"
)

const tagTransferArrived sim.Tag = 100

// Handler receives transfers that reached their destination.
type Handler interface {
	TransferCompleted(k *sim.Kernel, tr *Transfer)
}

// Model is the pipeline-facing network façade. It turns a request to move data
// between two nodes into a routed Transfer and reports its arrival.
type Model struct {
	graph    *Graph
	interval float64
	handler  Handler
	sink     trace.Sink

	nextID    int64
	inFlight  map[int64]*Transfer
	completed int64
	usage     [numLinkKinds]float64
}

// NewModel creates a network model over graph. interval is the link tick length.
// A nil sink discards transfer records.
func NewModel(graph *Graph, interval float64, sink trace.Sink) *Model {
	if !(interval > 0) {
		panic(fmt.Sprintf("network: tick interval must be positive, got %v", interval))
	}
	if sink == nil {
		sink = trace.NopSink{}
	}
	m := &Model{
		graph:    graph,
		interval: interval,
		sink:     sink,
		inFlight: make(map[int64]*Transfer),
	}
	for _, l := range graph.Links() {
		l.model = m
		l.interval = interval
	}
	return m
}

// SetHandler sets the receiver of completed transfers.
func (m *Model) SetHandler(h Handler) { m.handler = h }

// Graph returns the topology the model routes over.
func (m *Model) Graph() *Graph { return m.graph }

// Register registers the model and every link with the kernel.
func (m *Model) Register(k *sim.Kernel) {
	k.Register(m)
	for _, l := range m.graph.Links() {
		k.Register(l)
	}
}

// Name implements sim.Entity.
func (m *Model) Name() string { return "network" }

// Start implements sim.Entity.
func (m *Model) Start(_ *sim.Kernel) {}

// Shutdown implements sim.Entity.
func (m *Model) Shutdown(k *sim.Kernel) {
	if len(m.inFlight) > 0 {
		logrus.Warnf("[t=%.3f] network: %d transfers still in flight at shutdown", k.Clock(), len(m.inFlight))
	}
}

// ProcessEvent implements sim.Entity.
func (m *Model) ProcessEvent(k *sim.Kernel, ev *sim.Event) {
	if ev.Tag() != tagTransferArrived {
		panic(fmt.Sprintf("network: unexpected event tag %d", ev.Tag()))
	}
	m.arrived(k, ev.Payload().(*Transfer))
}

// Send routes size bits of task from src to dst and starts the transfer on its first link.
// A same-node transfer arrives immediately; an empty one arrives after the last
// link's latency. Returns a *RoutingError when dst is unreachable.
func (m *Model) Send(k *sim.Kernel, task *sim.Task, kind TransferKind, src, dst *sim.Node, size float64) (*Transfer, error) {
	p, err := m.graph.ShortestPath(src, dst)
	if err != nil {
		return nil, fmt.Errorf("sending %s of task %d: %w", kind, task.ID, err)
	}
	m.nextID++
	tr := newTransfer(m.nextID, task, kind, max(size, 0), p, k.Clock())
	m.inFlight[tr.ID] = tr
	if tr.Arrived() {
		k.ScheduleNow(m, tagTransferArrived, tr)
		return tr, nil
	}
	if tr.Size == 0 {
		// Nothing to transmit; it still propagates over the last hop like any other transfer.
		last := tr.links[len(tr.links)-1]
		tr.vertices = tr.vertices[len(tr.vertices)-1:]
		tr.links = nil
		tr.Hops = len(p.Links)
		k.Schedule(m, last.Latency, tagTransferArrived, tr)
		return tr, nil
	}
	logrus.Debugf("[t=%.6f] network: %s routed over %d hops", k.Clock(), tr, len(p.Links))
	k.ScheduleNow(tr.CurrentLink(), tagLinkAdmit, tr)
	return tr, nil
}

// InFlight returns the number of transfers not yet delivered.
func (m *Model) InFlight() int { return len(m.inFlight) }

// Completed returns the number of delivered transfers.
func (m *Model) Completed() int64 { return m.completed }

// Usage returns the transmission time spent on links of the given kind by delivered transfers.
func (m *Model) Usage(kind LinkKind) float64 { return m.usage[kind] }

func (m *Model) arrived(k *sim.Kernel, tr *Transfer) {
	tr.EndTime = k.Clock()
	delete(m.inFlight, tr.ID)
	m.completed++
	for _, kind := range LinkKinds {
		m.usage[kind] += tr.usage[kind]
		if tr.Task != nil {
			tr.Task.NetworkTime[kind] += tr.usage[kind]
		}
	}
	m.record(tr)
	if m.handler != nil {
		m.handler.TransferCompleted(k, tr)
	}
}

// record forwards a transfer record to the sink. The sink is fire-and-forget:
// a panicking sink is logged and ignored.
func (m *Model) record(tr *Transfer) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("network: observability sink failed on %s: %v", tr, r)
		}
	}()
	taskID := -1
	if tr.Task != nil {
		taskID = tr.Task.ID
	}
	m.sink.RecordTransfer(trace.TransferRecord{
		TransferID: tr.ID,
		TaskID:     taskID,
		Kind:       tr.Kind.String(),
		Src:        tr.Src.ID,
		Dst:        tr.Dst.ID,
		SizeBits:   tr.Size,
		Hops:       tr.Hops,
		LANTime:    tr.usage[LAN],
		MANTime:    tr.usage[MAN],
		WANTime:    tr.usage[WAN],
		LANBits:    tr.bits[LAN],
		MANBits:    tr.bits[MAN],
		WANBits:    tr.bits[WAN],
		Start:      tr.StartTime,
		End:        tr.EndTime,
	})
}
