package sim

import (
	"fmt"
	"math"
	"sort"
)

// OrchestrationConfig groups orchestration policy selection.
type OrchestrationConfig struct {
	Architecture string // "ALL" (default), "CLOUD_ONLY", "EDGE_ONLY", "MIST_ONLY", ...
	Algorithm    string // "ROUND_ROBIN" (default) or "TRADE_OFF"
	Deployment   string // where orchestration runs: "DEVICE" (default), "CLOUD", "EDGE"
}

// TradeOffWeights penalize tiers in the trade-off algorithm score.
type TradeOffWeights struct {
	Cloud          float64
	EdgeDevice     float64
	EdgeDatacenter float64
}

// DefaultTradeOffWeights favour edge datacenters, then devices, then the cloud.
func DefaultTradeOffWeights() TradeOffWeights {
	return TradeOffWeights{Cloud: 1.8, EdgeDevice: 1.2, EdgeDatacenter: 1.0}
}

// Weight returns the weight for a node kind.
func (w TradeOffWeights) Weight(kind NodeKind) float64 {
	switch kind {
	case KindCloud:
		return w.Cloud
	case KindEdgeDevice, KindSensor:
		return w.EdgeDevice
	default:
		return w.EdgeDatacenter
	}
}

// Config is the immutable run configuration. It is built once at startup and
// passed by value to every component.
type Config struct {
	Horizon               float64 // seconds; <= 0 means run until every task finishes
	NetworkUpdateInterval float64 // tick length of link updates, seconds
	NodeUpdateInterval    float64 // period of node-status updates, seconds; 0 disables periodic updates
	EdgeDevicesRange      float64 // meters
	EdgeDatacentersRange  float64 // meters
	Seed                  int64

	Orchestration   OrchestrationConfig
	RegistryEnabled bool // pull containers from the cloud registry before executing on the edge
	TradeOffWeights TradeOffWeights
}

// DefaultConfig returns a configuration with the defaults used when a scenario leaves fields unset.
func DefaultConfig() Config {
	return Config{
		NetworkUpdateInterval: 0.1,
		NodeUpdateInterval:    1,
		EdgeDevicesRange:      10,
		EdgeDatacentersRange:  200,
		Seed:                  42,
		Orchestration: OrchestrationConfig{
			Architecture: "ALL",
			Algorithm:    "ROUND_ROBIN",
			Deployment:   "DEVICE",
		},
		TradeOffWeights: DefaultTradeOffWeights(),
	}
}

// ValidArchitectures is the set of recognized orchestration architecture names.
var ValidArchitectures = map[string]bool{
	"ALL": true, "CLOUD_ONLY": true, "EDGE_ONLY": true, "MIST_ONLY": true,
	"EDGE_AND_CLOUD": true, "MIST_AND_CLOUD": true, "MIST_AND_EDGE": true,
}

// ValidAlgorithms is the set of recognized orchestration algorithm names.
var ValidAlgorithms = map[string]bool{"ROUND_ROBIN": true, "TRADE_OFF": true}

// ValidDeployments is the set of recognized orchestrator placements.
var ValidDeployments = map[string]bool{"DEVICE": true, "CLOUD": true, "EDGE": true}

// ValidNames returns the sorted keys of a name set.
func ValidNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks that intervals, ranges and policy names are usable.
func (c Config) Validate() error {
	if !(c.NetworkUpdateInterval > 0) || math.IsInf(c.NetworkUpdateInterval, 0) {
		return fmt.Errorf("network update interval must be positive, got %v", c.NetworkUpdateInterval)
	}
	if c.NodeUpdateInterval < 0 || math.IsNaN(c.NodeUpdateInterval) {
		return fmt.Errorf("node update interval must be non-negative, got %v", c.NodeUpdateInterval)
	}
	if c.EdgeDevicesRange < 0 || c.EdgeDatacentersRange < 0 {
		return fmt.Errorf("ranges must be non-negative, got edge devices %v, edge datacenters %v",
			c.EdgeDevicesRange, c.EdgeDatacentersRange)
	}
	if !ValidArchitectures[c.Orchestration.Architecture] {
		return fmt.Errorf("unknown orchestration architecture %q; valid: %v", c.Orchestration.Architecture, ValidNames(ValidArchitectures))
	}
	if !ValidAlgorithms[c.Orchestration.Algorithm] {
		return fmt.Errorf("unknown orchestration algorithm %q; valid: %v", c.Orchestration.Algorithm, ValidNames(ValidAlgorithms))
	}
	if !ValidDeployments[c.Orchestration.Deployment] {
		return fmt.Errorf("unknown orchestrator deployment %q; valid: %v", c.Orchestration.Deployment, ValidNames(ValidDeployments))
	}
	w := c.TradeOffWeights
	if w.Cloud < 0 || w.EdgeDevice < 0 || w.EdgeDatacenter < 0 {
		return fmt.Errorf("trade-off weights must be non-negative, got %+v", w)
	}
	return nil
}

// OrchestratorsEnabled reports whether orchestration runs on a node other than the origin device.
func (c Config) OrchestratorsEnabled() bool {
	return c.Orchestration.Deployment != "DEVICE"
}

// RangeFor returns the proximity range used to decide whether a node of the given
// kind can be reached from an edge device. Cloud nodes are always reachable.
func (c Config) RangeFor(kind NodeKind) float64 {
	switch kind {
	case KindCloud:
		return math.Inf(1)
	case KindEdgeDatacenter:
		return c.EdgeDatacentersRange
	default:
		return c.EdgeDevicesRange
	}
}

// InRange reports whether remote is reachable from device under the configured ranges.
func (c Config) InRange(device, remote *Node) bool {
	if device == remote || remote.IsCloud() {
		return true
	}
	return device.DistanceTo(remote) <= c.RangeFor(remote.Kind)
}
