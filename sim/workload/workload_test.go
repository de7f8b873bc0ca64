package workload

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.WarnLevel)
	os.Exit(m.Run())
}

func app(name string, usage, rate float64, process string) Application {
	return Application{
		Name:            name,
		UsagePercentage: usage,
		Rate:            rate,
		Arrival:         ArrivalSpec{Process: process},
		MaxLatency:      5,
		Length:          2000,
		RequestSize:     100,
		OutputSize:      20,
		ContainerSize:   2500,
	}
}

func devices(n int) []*sim.Node {
	nodes := make([]*sim.Node, n)
	for i := range nodes {
		nodes[i] = testutil.Node(i, sim.KindEdgeDevice, float64(i), 0)
		nodes[i].GeneratesTasks = true
	}
	return nodes
}

func TestGenerate_ConstantArrivalsOrderedByTimeThenDevice(t *testing.T) {
	// GIVEN two devices emitting one task per second
	spec := &Spec{Applications: []Application{app("sensing", 100, 60, "constant")}}
	nodes := devices(2)

	// WHEN tasks are generated until t=3.5
	tasks, err := Generate(spec, nodes, 3.5, 7)

	// THEN each device emits at t=1,2,3 and ties keep device order
	require.NoError(t, err)
	require.Len(t, tasks, 6)
	for i, task := range tasks {
		assert.Equal(t, i, task.ID)
		assert.Equal(t, float64(i/2+1), task.ArrivalTime)
		assert.Same(t, nodes[i%2], task.Device)
		assert.Equal(t, sim.TaskPending, task.Status)
	}
}

func TestGenerate_ConvertsApplicationUnits(t *testing.T) {
	spec := &Spec{Applications: []Application{app("video", 100, 60, "constant")}}

	tasks, err := Generate(spec, devices(1), 1.5, 1)

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "video", task.Application)
	assert.Equal(t, 100_000.0, task.RequestSize)
	assert.Equal(t, 20_000.0, task.OutputSize)
	assert.Equal(t, 2_500_000.0, task.ContainerSize)
	assert.Equal(t, 2000.0, task.Length)
	assert.Equal(t, 5.0, task.MaxLatency)
}

func TestGenerate_OnlyTaskGeneratingNodes(t *testing.T) {
	nodes := devices(3)
	nodes[1].GeneratesTasks = false
	spec := &Spec{Applications: []Application{app("a", 100, 60, "constant")}}

	tasks, err := Generate(spec, nodes, 2.5, 1)

	require.NoError(t, err)
	for _, task := range tasks {
		assert.NotSame(t, nodes[1], task.Device)
	}
	assert.Len(t, tasks, 4)
}

func TestGenerate_SameSeedSameTasks(t *testing.T) {
	// GIVEN a Poisson workload split over two applications
	spec := &Spec{Applications: []Application{app("a", 30, 30, "poisson"), app("b", 70, 10, "poisson")}}

	// WHEN it is generated twice with one seed and once with another
	first, err := Generate(spec, devices(10), 60, 42)
	require.NoError(t, err)
	second, err := Generate(spec, devices(10), 60, 42)
	require.NoError(t, err)
	other, err := Generate(spec, devices(10), 60, 43)
	require.NoError(t, err)

	// THEN the same seed reproduces every arrival and application
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ArrivalTime, second[i].ArrivalTime)
		assert.Equal(t, first[i].Application, second[i].Application)
		assert.Equal(t, first[i].Device.ID, second[i].Device.ID)
	}
	// AND a different seed does not
	differs := len(first) != len(other)
	for i := 0; !differs && i < len(first); i++ {
		differs = first[i].ArrivalTime != other[i].ArrivalTime
	}
	assert.True(t, differs)
}

func TestGenerate_UsagePercentage(t *testing.T) {
	// GIVEN an application nobody uses
	spec := &Spec{Applications: []Application{app("unused", 0, 60, "constant"), app("used", 100, 60, "constant")}}

	tasks, err := Generate(spec, devices(20), 1.5, 3)

	// THEN every device runs the other one
	require.NoError(t, err)
	require.Len(t, tasks, 20)
	for _, task := range tasks {
		assert.Equal(t, "used", task.Application)
	}

	// GIVEN an even split over many devices
	spec = &Spec{Applications: []Application{app("a", 50, 60, "constant"), app("b", 50, 60, "constant")}}
	tasks, err = Generate(spec, devices(200), 1.5, 3)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, task := range tasks {
		counts[task.Application]++
	}
	// THEN both applications are assigned
	assert.Greater(t, counts["a"], 50)
	assert.Greater(t, counts["b"], 50)
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	good := &Spec{Applications: []Application{app("a", 100, 60, "constant")}}

	_, err := Generate(good, devices(1), 0, 1)
	assert.Error(t, err)

	_, err = Generate(&Spec{}, devices(1), 10, 1)
	assert.Error(t, err)
}

func TestSpec_Validate(t *testing.T) {
	negative := -1.0
	tests := []struct {
		name   string
		mutate func(a *Application)
	}{
		{"empty name", func(a *Application) { a.Name = "" }},
		{"zero rate", func(a *Application) { a.Rate = 0 }},
		{"negative usage", func(a *Application) { a.UsagePercentage = -5 }},
		{"unknown process", func(a *Application) { a.Arrival.Process = "bursty" }},
		{"negative cv", func(a *Application) { a.Arrival.CV = &negative }},
		{"zero length", func(a *Application) { a.Length = 0 }},
		{"negative request size", func(a *Application) { a.RequestSize = -1 }},
		{"negative max latency", func(a *Application) { a.MaxLatency = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := app("a", 100, 60, "poisson")
			tc.mutate(&a)
			spec := &Spec{Applications: []Application{a}}
			assert.Error(t, spec.Validate())
		})
	}

	dup := &Spec{Applications: []Application{app("a", 50, 1, "poisson"), app("a", 50, 1, "poisson")}}
	assert.ErrorContains(t, dup.Validate(), "duplicate")

	idle := &Spec{Applications: []Application{app("a", 0, 1, "poisson")}}
	assert.Error(t, idle.Validate())
}

func TestLoadSpec(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "apps.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
applications:
  - name: e_health
    usage_percentage: 60
    rate: 3
    arrival: {process: poisson}
    max_latency: 6
    length: 2000
    request_size: 200
    output_size: 100
    container_size: 25000
`), 0o644))
	typo := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("applications:\n  - name: a\n    rat: 3\n"), 0o644))

	spec, err := LoadSpec(good)
	require.NoError(t, err)
	require.Len(t, spec.Applications, 1)
	assert.Equal(t, "e_health", spec.Applications[0].Name)
	assert.Equal(t, 25000.0, spec.Applications[0].ContainerSize)
	assert.NoError(t, spec.Validate())

	_, err = LoadSpec(typo)
	assert.Error(t, err, "unknown keys are rejected")

	_, err = LoadSpec(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestArrivalSamplers_MeanMatchesRate(t *testing.T) {
	cv := 2.0
	tests := []struct {
		name string
		spec ArrivalSpec
	}{
		{"poisson", ArrivalSpec{Process: "poisson"}},
		{"constant", ArrivalSpec{Process: "constant"}},
		{"gamma", ArrivalSpec{Process: "gamma", CV: &cv}},
		{"weibull", ArrivalSpec{Process: "weibull", CV: &cv}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN 30 tasks per minute, a mean gap of 2 s
			sampler := NewArrivalSampler(tc.spec, 30)
			rng := rand.New(rand.NewSource(11))

			const n = 50000
			var sum float64
			for i := 0; i < n; i++ {
				iat := sampler.SampleIAT(rng)
				require.Greater(t, iat, 0.0)
				sum += iat
			}

			assert.InDelta(t, 2.0, sum/n, 0.1)
		})
	}
}

func TestWeibullShapeFromCV_ExponentialCase(t *testing.T) {
	assert.InDelta(t, 1.0, weibullShapeFromCV(1.0), 0.01)
}
