package workload

import (
	"cmp"
	"fmt"
	"math"

	"github.com/edgesim/edgesim/sim"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// kbit is the number of bits in one kilobit, the unit of application sizes.
const kbit = 1000

// Generate creates the tasks of every task-generating node for arrivals in (0, horizon).
// Each such node runs one application, drawn by usage percentage. Tasks are
// ordered by arrival time, then node order, and numbered from 0 in that order.
// The same seed always yields the same tasks.
func Generate(spec *Spec, nodes []*sim.Node, horizon float64, seed int64) ([]*sim.Task, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload: %w", err)
	}
	if !(horizon > 0) || math.IsInf(horizon, 0) {
		return nil, fmt.Errorf("workload horizon must be positive and finite, got %v", horizon)
	}

	rng := sim.NewPartitionedRNG(seed).ForSubsystem(sim.SubsystemWorkload)
	cumulative := make([]float64, len(spec.Applications))
	var total float64
	for i, a := range spec.Applications {
		total += a.UsagePercentage
		cumulative[i] = total
	}

	var tasks []*sim.Task
	perApp := make(map[string]int)
	for _, n := range nodes {
		if !n.GeneratesTasks {
			continue
		}
		u := rng.Float64() * total
		app := &spec.Applications[slices.IndexFunc(cumulative, func(c float64) bool { return u < c })]
		perApp[app.Name]++
		sampler := NewArrivalSampler(app.Arrival, app.Rate)
		for at := sampler.SampleIAT(rng); at < horizon; at += sampler.SampleIAT(rng) {
			tasks = append(tasks, newTask(app, n, at))
		}
	}

	slices.SortStableFunc(tasks, func(a, b *sim.Task) int { return cmp.Compare(a.ArrivalTime, b.ArrivalTime) })
	for i, t := range tasks {
		t.ID = i
	}
	logrus.Infof("Generated %d tasks until t=%.1f (devices per application: %v)", len(tasks), horizon, perApp)
	return tasks, nil
}

func newTask(app *Application, device *sim.Node, at float64) *sim.Task {
	t := sim.NewTask(0, device, at)
	t.Application = app.Name
	t.MaxLatency = app.MaxLatency
	t.Length = app.Length
	t.RequestSize = app.RequestSize * kbit
	t.OutputSize = app.OutputSize * kbit
	t.ContainerSize = app.ContainerSize * kbit
	return t
}
