package network

import (
	"testing"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/internal/testutil"
	"github.com/edgesim/edgesim/sim/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_FairShare_TwoTransfersFinishTogether(t *testing.T) {
	// GIVEN one 2000 bit/s link with no latency, ticking every second
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindEdgeDatacenter, 0, 0)
	g := NewGraph()
	l := NewLink(a, b, LAN, 0, 2000)
	g.AddLink(l)
	k, m, c := newNet(g, 1, 0, nil)

	// WHEN two 1000-bit transfers start at t=0
	task := testutil.Task(1, a, 0, 0)
	_, err := m.Send(k, task, TransferRequest, a, b, 1000)
	require.NoError(t, err)
	_, err = m.Send(k, task, TransferTaskPayload, a, b, 1000)
	require.NoError(t, err)
	k.Run()

	// THEN both complete after exactly one tick at 1000 bit/s each
	require.Len(t, c.arrivals, 2)
	for _, got := range c.arrivals {
		assert.Equal(t, 1.0, got.clock)
		assert.Equal(t, 1.0, got.tr.Usage(LAN))
		assert.Equal(t, 1000.0, got.tr.Bits(LAN))
		assert.Equal(t, 1, got.tr.Hops)
	}
	assert.Equal(t, 2000.0, l.BitsTransferred())
	assert.Equal(t, 2, l.PeakActive())
	assert.Empty(t, l.Active())
	assert.Equal(t, 0, m.InFlight())
	assert.Equal(t, int64(2), m.Completed())
	assert.Equal(t, [3]float64{2, 0, 0}, task.NetworkTime)
}

func TestLink_AllocatedBandwidthNeverExceedsCapacity(t *testing.T) {
	// GIVEN three long transfers sharing a 3000 bit/s link
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindCloud, 0, 0)
	g := NewGraph()
	l := NewLink(a, b, WAN, 0.1, 3000)
	g.AddLink(l)
	k, m, _ := newNet(g, 0.5, 2, nil)
	for i := 0; i < 3; i++ {
		_, err := m.Send(k, testutil.Task(i, a, 0, 0), TransferTaskPayload, a, b, 1e6)
		require.NoError(t, err)
	}
	var observed []float64
	k.Register(&probe{at: 1.25, fn: func(_ *sim.Kernel) {
		observed = append(observed, l.AllocatedBandwidth())
		for _, tr := range l.Active() {
			observed = append(observed, tr.Bandwidth)
		}
	}})

	// WHEN the run reaches the probe
	k.Run()

	// THEN each transfer has a third of the capacity and the total fits
	require.Len(t, observed, 4)
	assert.InDelta(t, 3000, observed[0], 1e-9)
	assert.LessOrEqual(t, observed[0], l.Capacity+1e-9)
	for _, bw := range observed[1:] {
		assert.InDelta(t, 1000, bw, 1e-9)
	}
	assert.Equal(t, 3, m.InFlight())
}

func TestLink_ShareGrowsWhenPeersFinish(t *testing.T) {
	// GIVEN a small and a large transfer on one 1000 bit/s link
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindEdgeDatacenter, 0, 0)
	g := NewGraph()
	g.AddLink(NewLink(a, b, LAN, 0, 1000))
	k, m, c := newNet(g, 1, 0, nil)
	_, err := m.Send(k, testutil.Task(1, a, 0, 0), TransferRequest, a, b, 500)
	require.NoError(t, err)
	_, err = m.Send(k, testutil.Task(2, a, 0, 0), TransferRequest, a, b, 2500)
	require.NoError(t, err)

	// WHEN the link runs
	k.Run()

	// THEN the small one finishes on the first tick and the large one then gets
	// the whole capacity: 500 + 1000 + 1000 bits over ticks 1, 2 and 3
	require.Len(t, c.arrivals, 2)
	assert.Equal(t, 1, c.arrivals[0].tr.Task.ID)
	assert.Equal(t, 1.0, c.arrivals[0].clock)
	assert.Equal(t, 2, c.arrivals[1].tr.Task.ID)
	assert.Equal(t, 3.0, c.arrivals[1].clock)
	assert.InDelta(t, 3.0, c.arrivals[1].tr.Usage(LAN), 1e-12)
}

func TestTransfer_MultiHop_RetransmitsFullSizeAndAddsLatencyOnArrival(t *testing.T) {
	// GIVEN a two-hop route a→b→c with 1000 bit/s links and 0.1 s latency
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindEdgeDatacenter, 0, 0)
	c := testutil.Node(3, sim.KindCloud, 0, 0)
	g := NewGraph()
	first := NewLink(a, b, LAN, 0.1, 1000)
	second := NewLink(b, c, WAN, 0.1, 1000)
	g.AddLink(first)
	g.AddLink(second)
	k, m, col := newNet(g, 0.5, 0, nil)

	// WHEN a 500-bit transfer is sent end to end
	tr, err := m.Send(k, testutil.Task(1, a, 0, 0), TransferTaskPayload, a, c, 500)
	require.NoError(t, err)
	k.Run()

	// THEN each hop moves the full 500 bits in one tick and only the final
	// link's latency is added at completion
	require.Len(t, col.arrivals, 1)
	assert.Same(t, tr, col.arrivals[0].tr)
	assert.InDelta(t, 1.1, col.arrivals[0].clock, 1e-12)
	assert.Equal(t, 2, tr.Hops)
	assert.Equal(t, 500.0, first.BitsTransferred())
	assert.Equal(t, 500.0, second.BitsTransferred())
	assert.InDelta(t, 0.5, tr.Usage(LAN), 1e-12)
	assert.InDelta(t, 0.5, tr.Usage(WAN), 1e-12)
	assert.InDelta(t, 1.0, tr.TotalUsage(), 1e-12)
	assert.True(t, tr.Arrived())
	assert.Nil(t, tr.CurrentLink())
	assert.InDelta(t, 1.1, tr.EndTime, 1e-12)
}

func TestModel_SameNodeTransfer_ArrivesImmediately(t *testing.T) {
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	g := NewGraph()
	k, m, c := newNet(g, 0.1, 0, nil)

	tr, err := m.Send(k, testutil.Task(1, a, 0, 0), TransferResultToDevice, a, a, 1e6)
	require.NoError(t, err)
	k.Run()

	require.Len(t, c.arrivals, 1)
	assert.Equal(t, 0.0, c.arrivals[0].clock)
	assert.Equal(t, 0.0, tr.TotalUsage())
	assert.Equal(t, 0, tr.Hops)
}

func TestModel_ZeroSizeTransfer_PaysLastHopLatency(t *testing.T) {
	// GIVEN a two-hop route whose last link has 0.2 s latency
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindEdgeDatacenter, 0, 0)
	c := testutil.Node(3, sim.KindCloud, 0, 0)
	g := NewGraph()
	g.AddLink(NewLink(a, b, LAN, 0.05, 1000))
	g.AddLink(NewLink(b, c, WAN, 0.2, 1000))
	k, m, col := newNet(g, 0.1, 0, nil)

	// WHEN an empty container transfer is sent
	tr, err := m.Send(k, testutil.Task(1, a, 0, 0), TransferContainer, a, c, 0)
	require.NoError(t, err)
	assert.Equal(t, []*sim.Node{c}, tr.RemainingVertices())
	k.Run()

	// THEN it arrives after the last hop's latency without using any bandwidth
	require.Len(t, col.arrivals, 1)
	assert.InDelta(t, 0.2, col.arrivals[0].clock, 1e-12)
	assert.Equal(t, 0.0, tr.TotalUsage())
	assert.Equal(t, 2, tr.Hops)
}

func TestModel_Send_Unreachable(t *testing.T) {
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindCloud, 0, 0)
	g := NewGraph()
	g.AddLink(NewLink(b, a, WAN, 0.2, 1000))
	k, m, _ := newNet(g, 0.1, 0, nil)

	tr, err := m.Send(k, testutil.Task(1, a, 0, 0), TransferRequest, a, b, 10)

	assert.Nil(t, tr)
	var re *RoutingError
	assert.ErrorAs(t, err, &re)
	assert.Equal(t, 0, m.InFlight())
}

func TestModel_PanickingSinkIsIgnored(t *testing.T) {
	// GIVEN a sink that panics on every transfer record
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindEdgeDatacenter, 0, 0)
	g := NewGraph()
	g.AddLink(NewLink(a, b, LAN, 0, 1000))
	k, m, c := newNet(g, 1, 0, panickingSink{})

	// WHEN a transfer completes
	_, err := m.Send(k, testutil.Task(1, a, 0, 0), TransferRequest, a, b, 100)
	require.NoError(t, err)
	assert.NotPanics(t, func() { k.Run() })

	// THEN the handler is still notified
	assert.Len(t, c.arrivals, 1)
}

func TestModel_RecordsTransfersToSink(t *testing.T) {
	a := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	b := testutil.Node(2, sim.KindEdgeDatacenter, 0, 0)
	g := NewGraph()
	g.AddLink(NewLink(a, b, MAN, 0, 1000))
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelAll})
	k, m, _ := newNet(g, 1, 0, st)

	_, err := m.Send(k, testutil.Task(7, a, 0, 0), TransferResultToOrchestrator, a, b, 400)
	require.NoError(t, err)
	k.Run()

	require.Len(t, st.Transfers, 1)
	rec := st.Transfers[0]
	assert.Equal(t, 7, rec.TaskID)
	assert.Equal(t, "RESULT_TO_ORCHESTRATOR", rec.Kind)
	assert.Equal(t, 400.0, rec.MANBits)
	assert.InDelta(t, 0.4, rec.MANTime, 1e-12)
	assert.InDelta(t, 0.4, m.Usage(MAN), 1e-12)
}

func TestNewModel_RejectsNonPositiveInterval(t *testing.T) {
	assert.Panics(t, func() { NewModel(NewGraph(), 0, nil) })
}
