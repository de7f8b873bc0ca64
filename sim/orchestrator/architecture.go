package orchestrator

import (
	"fmt"

	"github.com/edgesim/edgesim/sim"
)

// Layer is one tier an architecture may offload to.
type Layer string

const (
	LayerCloud Layer = "CLOUD"
	LayerEdge  Layer = "EDGE" // edge datacenters
	LayerMist  Layer = "MIST" // edge devices
)

var architectureLayers = map[string][]Layer{
	"CLOUD_ONLY":     {LayerCloud},
	"EDGE_ONLY":      {LayerEdge},
	"MIST_ONLY":      {LayerMist},
	"EDGE_AND_CLOUD": {LayerCloud, LayerEdge},
	"MIST_AND_CLOUD": {LayerCloud, LayerMist},
	"MIST_AND_EDGE":  {LayerEdge, LayerMist},
	"ALL":            {LayerCloud, LayerEdge, LayerMist},
}

// ParseArchitecture returns the layers of a named architecture.
// Valid names are defined in sim.ValidArchitectures.
func ParseArchitecture(name string) ([]Layer, error) {
	if !sim.ValidArchitectures[name] {
		return nil, fmt.Errorf("unknown orchestration architecture %q", name)
	}
	layers, ok := architectureLayers[name]
	if !ok {
		return nil, fmt.Errorf("unhandled orchestration architecture %q", name)
	}
	return append([]Layer(nil), layers...), nil
}

// Algorithm is an offloading destination selection algorithm.
type Algorithm string

const (
	AlgorithmRoundRobin Algorithm = "ROUND_ROBIN"
	AlgorithmTradeOff   Algorithm = "TRADE_OFF"
)

// ParseAlgorithm validates an algorithm name.
// Valid names are defined in sim.ValidAlgorithms.
func ParseAlgorithm(name string) (Algorithm, error) {
	if !sim.ValidAlgorithms[name] {
		return "", fmt.Errorf("unknown orchestration algorithm %q", name)
	}
	return Algorithm(name), nil
}
