// Package testutil provides shared test infrastructure for the edgesim simulator.
// It consolidates node/task fixtures and assertion helpers used across
// sim/ sub-package tests.
package testutil

import (
	"math"
	"strconv"
	"testing"

	"github.com/edgesim/edgesim/sim"
)

// Node returns an alive node of the given kind at (x, y) with 1000 MIPS on one core.
func Node(id int, kind sim.NodeKind, x, y float64) *sim.Node {
	return &sim.Node{
		ID:       id,
		Name:     string(kind) + "_" + strconv.Itoa(id),
		Kind:     kind,
		Location: sim.Point{X: x, Y: y},
		Alive:    true,
		MIPS:     1000,
		Cores:    1,
	}
}

// Task returns a pending task originating at device with the given arrival time and deadline.
func Task(id int, device *sim.Node, arrival, maxLatency float64) *sim.Task {
	t := sim.NewTask(id, device, arrival)
	t.MaxLatency = maxLatency
	t.Length = 1000
	t.RequestSize = 1000
	t.OutputSize = 1000
	return t
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
