package offload

import (
	"math"
	"sync"
	"testing"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusUpdater_UplinkIsNearestAliveDatacenterInRange(t *testing.T) {
	// GIVEN two datacenters at different distances and a sensor out of range of both
	cloud := testutil.Node(1, sim.KindCloud, 0, 0)
	near := testutil.Node(2, sim.KindEdgeDatacenter, 50, 0)
	far := testutil.Node(3, sim.KindEdgeDatacenter, 150, 0)
	device := testutil.Node(4, sim.KindEdgeDevice, 0, 0)
	sensor := testutil.Node(5, sim.KindSensor, 1000, 0)
	u := NewStatusUpdater(sim.DefaultConfig(), []*sim.Node{cloud, near, far, device, sensor})

	// WHEN uplinks are computed
	u.UpdateUplinks()

	// THEN the device picks the nearest, the sensor none, datacenters themselves
	assert.Same(t, near, device.Uplink)
	assert.Nil(t, sensor.Uplink)
	assert.Same(t, near, near.Uplink)
	assert.Nil(t, cloud.Uplink)

	// WHEN the nearest datacenter dies
	near.Alive = false
	u.UpdateUplinks()

	// THEN the device falls back to the other one
	assert.Same(t, far, device.Uplink)
}

func TestStatusUpdater_FailsNodesByMTBF(t *testing.T) {
	// GIVEN one node that fails almost surely within an interval and one that never fails
	fragile := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	fragile.MTBF = 1e-9
	sturdy := testutil.Node(2, sim.KindEdgeDevice, 0, 0)
	cfg := sim.DefaultConfig()
	cfg.NodeUpdateInterval = 1
	u := NewStatusUpdater(cfg, []*sim.Node{fragile, sturdy})
	k := sim.NewKernel(2.5)
	k.Register(u)

	// WHEN the kernel runs two updates
	k.Run()

	// THEN only the fragile node died, once
	assert.True(t, fragile.IsDead())
	assert.False(t, sturdy.IsDead())
	assert.Equal(t, 1, u.Failures())
}

func TestStatusUpdater_NoIntervalNoUpdates(t *testing.T) {
	fragile := testutil.Node(1, sim.KindEdgeDevice, 0, 0)
	fragile.MTBF = 1e-9
	cfg := sim.DefaultConfig()
	cfg.NodeUpdateInterval = 0
	u := NewStatusUpdater(cfg, []*sim.Node{fragile})
	k := sim.NewKernel(10)
	k.Register(u)

	k.Run()

	assert.False(t, fragile.IsDead())
	assert.Equal(t, int64(0), k.Dispatched())
}

// failurePattern runs 40 devices with a 50% per-interval failure chance for
// two intervals and reports which died.
func failurePattern(seed int64) []bool {
	cfg := sim.DefaultConfig()
	cfg.Seed = seed
	cfg.NodeUpdateInterval = 1
	nodes := make([]*sim.Node, 40)
	for i := range nodes {
		nodes[i] = testutil.Node(i, sim.KindEdgeDevice, 0, 0)
		nodes[i].MTBF = 1 / math.Ln2
	}
	k := sim.NewKernel(2.5)
	k.Register(NewStatusUpdater(cfg, nodes))
	k.Run()

	dead := make([]bool, len(nodes))
	for i, n := range nodes {
		dead[i] = n.IsDead()
	}
	return dead
}

func TestStatusUpdater_FailuresFollowSeed(t *testing.T) {
	// WHEN identical runs share a seed THEN the same nodes fail
	first := failurePattern(7)
	assert.Equal(t, first, failurePattern(7))
	assert.Contains(t, first, true)
	assert.Contains(t, first, false)

	// AND another seed fails a different set
	assert.NotEqual(t, first, failurePattern(8))
}

func TestStatusUpdater_FailuresFollowSeedAcrossConcurrentRuns(t *testing.T) {
	want := failurePattern(7)
	got := make([][]bool, 8)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = failurePattern(7)
		}(i)
	}
	wg.Wait()

	for i := range got {
		assert.Equal(t, want, got[i], "run %d", i)
	}
}
