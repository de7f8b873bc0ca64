// Package scenario loads simulation scenarios from YAML and builds the
// topology, configuration and workload of a run from them.
//
// A scenario is immutable once parsed: Build creates fresh nodes and links on
// every call, so one scenario can back many isolated runs.
package scenario

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/network"
	"github.com/edgesim/edgesim/sim/workload"
	"gopkg.in/yaml.v3"
)

// Scenario is the top-level scenario file. Unset fields keep the values of Default().
type Scenario struct {
	Simulation    SimulationSection    `yaml:"simulation"`
	Ranges        RangesSection        `yaml:"ranges"`
	Orchestration OrchestrationSection `yaml:"orchestration"`
	Registry      RegistrySection      `yaml:"registry"`
	Network       NetworkSection       `yaml:"network"`
	Area          *Area                `yaml:"area,omitempty"`
	Nodes         []NodeSpec           `yaml:"nodes"`
	Links         []LinkSpec           `yaml:"links,omitempty"`

	Workload     *workload.Spec `yaml:"workload,omitempty"`
	WorkloadFile string         `yaml:"workload_file,omitempty"` // relative to the scenario file
}

// SimulationSection holds timing parameters, in seconds.
type SimulationSection struct {
	Duration              float64 `yaml:"duration"` // tasks are generated in (0, duration)
	Horizon               float64 `yaml:"horizon"`  // 0 runs until every task finishes
	NetworkUpdateInterval float64 `yaml:"network_update_interval"`
	NodeUpdateInterval    float64 `yaml:"node_update_interval"`
	Seed                  int64   `yaml:"seed"`
}

// RangesSection holds proximity ranges, in meters.
type RangesSection struct {
	EdgeDevices     float64 `yaml:"edge_devices"`
	EdgeDatacenters float64 `yaml:"edge_datacenters"`
}

// OrchestrationSection selects the orchestration policy.
type OrchestrationSection struct {
	Architecture string         `yaml:"architecture"`
	Algorithm    string         `yaml:"algorithm"`
	Deployment   string         `yaml:"deployment"`
	Weights      WeightsSection `yaml:"weights"`
}

// WeightsSection holds the trade-off weights per tier.
type WeightsSection struct {
	Cloud          float64 `yaml:"cloud"`
	EdgeDevice     float64 `yaml:"edge_device"`
	EdgeDatacenter float64 `yaml:"edge_datacenter"`
}

// RegistrySection configures container pulls from the cloud registry.
type RegistrySection struct {
	Enabled bool `yaml:"enabled"`
}

// NetworkSection holds per-kind link defaults and the auto-connect switch.
type NetworkSection struct {
	LAN         LinkDefaults `yaml:"lan"`
	MAN         LinkDefaults `yaml:"man"`
	WAN         LinkDefaults `yaml:"wan"`
	AutoConnect bool         `yaml:"auto_connect"`
}

// LinkDefaults parameterize links of one kind.
type LinkDefaults struct {
	Latency   float64 `yaml:"latency"`   // seconds
	Bandwidth float64 `yaml:"bandwidth"` // Mbit/s
}

// Area is the rectangle nodes without a location are placed in, in meters.
type Area struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// NodeSpec declares one node, or Count identical nodes named "<name>-<i>".
type NodeSpec struct {
	Name           string     `yaml:"name"`
	Kind           string     `yaml:"kind"`
	Count          int        `yaml:"count,omitempty"` // 0 means 1
	Location       *sim.Point `yaml:"location,omitempty"`
	MIPS           float64    `yaml:"mips"`
	Cores          int        `yaml:"cores,omitempty"` // 0 means 1
	Orchestrator   bool       `yaml:"orchestrator"`
	GeneratesTasks bool       `yaml:"generates_tasks"`
	MTBF           float64    `yaml:"mtbf,omitempty"` // seconds; 0 never fails
}

// LinkSpec declares a link between two named nodes, in both directions unless Directed.
// Nil latency or bandwidth takes the network default for the kind.
type LinkSpec struct {
	From      string   `yaml:"from"`
	To        string   `yaml:"to"`
	Kind      string   `yaml:"kind"`
	Latency   *float64 `yaml:"latency,omitempty"`
	Bandwidth *float64 `yaml:"bandwidth,omitempty"`
	Directed  bool     `yaml:"directed,omitempty"`
}

// Default returns the scenario values used for fields a file leaves unset.
func Default() Scenario {
	cfg := sim.DefaultConfig()
	w := sim.DefaultTradeOffWeights()
	return Scenario{
		Simulation: SimulationSection{
			NetworkUpdateInterval: cfg.NetworkUpdateInterval,
			NodeUpdateInterval:    cfg.NodeUpdateInterval,
			Seed:                  cfg.Seed,
		},
		Ranges: RangesSection{EdgeDevices: cfg.EdgeDevicesRange, EdgeDatacenters: cfg.EdgeDatacentersRange},
		Orchestration: OrchestrationSection{
			Architecture: cfg.Orchestration.Architecture,
			Algorithm:    cfg.Orchestration.Algorithm,
			Deployment:   cfg.Orchestration.Deployment,
			Weights:      WeightsSection{Cloud: w.Cloud, EdgeDevice: w.EdgeDevice, EdgeDatacenter: w.EdgeDatacenter},
		},
		Network: NetworkSection{
			LAN:         LinkDefaults{Latency: 0.005, Bandwidth: 100},
			MAN:         LinkDefaults{Latency: 0.01, Bandwidth: 1000},
			WAN:         LinkDefaults{Latency: 0.06, Bandwidth: 100},
			AutoConnect: true,
		},
	}
}

// Load reads and parses a scenario file. A workload_file is resolved relative to it.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return parse(data, filepath.Dir(path))
}

// Parse parses scenario YAML. A workload_file is resolved relative to the working directory.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Parse(data []byte) (*Scenario, error) {
	return parse(data, ".")
}

func parse(data []byte, dir string) (*Scenario, error) {
	s := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if s.WorkloadFile != "" {
		if s.Workload != nil {
			return nil, fmt.Errorf("scenario sets both workload and workload_file")
		}
		path := s.WorkloadFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		spec, err := workload.LoadSpec(path)
		if err != nil {
			return nil, err
		}
		s.Workload = spec
	}
	return &s, nil
}

// Config returns the run configuration the scenario describes.
func (s *Scenario) Config() sim.Config {
	return sim.Config{
		Horizon:               s.Simulation.Horizon,
		NetworkUpdateInterval: s.Simulation.NetworkUpdateInterval,
		NodeUpdateInterval:    s.Simulation.NodeUpdateInterval,
		EdgeDevicesRange:      s.Ranges.EdgeDevices,
		EdgeDatacentersRange:  s.Ranges.EdgeDatacenters,
		Seed:                  s.Simulation.Seed,
		Orchestration: sim.OrchestrationConfig{
			Architecture: s.Orchestration.Architecture,
			Algorithm:    s.Orchestration.Algorithm,
			Deployment:   s.Orchestration.Deployment,
		},
		RegistryEnabled: s.Registry.Enabled,
		TradeOffWeights: sim.TradeOffWeights{
			Cloud:          s.Orchestration.Weights.Cloud,
			EdgeDevice:     s.Orchestration.Weights.EdgeDevice,
			EdgeDatacenter: s.Orchestration.Weights.EdgeDatacenter,
		},
	}
}

// Validate checks that the scenario describes a runnable simulation.
func (s *Scenario) Validate() error {
	if err := s.Config().Validate(); err != nil {
		return err
	}
	timing := s.Simulation
	if !(timing.Duration > 0) || math.IsInf(timing.Duration, 0) {
		return fmt.Errorf("simulation.duration must be positive and finite, got %v", timing.Duration)
	}
	if timing.Horizon < 0 || math.IsNaN(timing.Horizon) {
		return fmt.Errorf("simulation.horizon must be non-negative, got %v", timing.Horizon)
	}
	for _, kind := range network.LinkKinds {
		d := s.linkDefaults(kind)
		if err := validateLink(fmt.Sprintf("network.%s", kind), d.Latency, d.Bandwidth); err != nil {
			return err
		}
	}
	if s.Area != nil && (!(s.Area.Width > 0) || !(s.Area.Height > 0)) {
		return fmt.Errorf("area must have positive width and height, got %vx%v", s.Area.Width, s.Area.Height)
	}

	names, err := s.nodeNames()
	if err != nil {
		return err
	}
	for _, l := range s.Links {
		if _, err := s.validateLinkSpec(l, names); err != nil {
			return err
		}
	}

	if s.Workload == nil {
		return fmt.Errorf("scenario needs a workload section or a workload_file")
	}
	if err := s.Workload.Validate(); err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	return nil
}

// nodeNames validates the node declarations and returns the expanded node
// names mapped to their kind.
func (s *Scenario) nodeNames() (map[string]sim.NodeKind, error) {
	if len(s.Nodes) == 0 {
		return nil, fmt.Errorf("scenario declares no nodes")
	}
	names := make(map[string]sim.NodeKind)
	hasCloud := false
	for i, n := range s.Nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)
		if n.Name == "" {
			return nil, fmt.Errorf("%s: name required", prefix)
		}
		prefix = fmt.Sprintf("node %q", n.Name)
		if !sim.IsValidNodeKind(n.Kind) {
			return nil, fmt.Errorf("%s: unknown kind %q; valid: CLOUD, EDGE_DATACENTER, EDGE_DEVICE, SENSOR", prefix, n.Kind)
		}
		kind := sim.NodeKind(n.Kind)
		hasCloud = hasCloud || kind == sim.KindCloud
		if n.Count < 0 || n.Cores < 0 {
			return nil, fmt.Errorf("%s: count and cores must be non-negative, got %d and %d", prefix, n.Count, n.Cores)
		}
		if n.MIPS < 0 || math.IsNaN(n.MIPS) || math.IsInf(n.MIPS, 0) {
			return nil, fmt.Errorf("%s: mips must be finite and non-negative, got %v", prefix, n.MIPS)
		}
		if kind != sim.KindSensor && n.MIPS == 0 {
			return nil, fmt.Errorf("%s: %s nodes need positive mips", prefix, kind)
		}
		if n.MTBF < 0 || math.IsNaN(n.MTBF) {
			return nil, fmt.Errorf("%s: mtbf must be non-negative, got %v", prefix, n.MTBF)
		}
		if n.Location == nil && s.Area == nil {
			return nil, fmt.Errorf("%s: has no location and the scenario has no area to place it in", prefix)
		}
		for _, name := range n.expandedNames() {
			if _, dup := names[name]; dup {
				return nil, fmt.Errorf("%s: duplicate node name %q", prefix, name)
			}
			names[name] = kind
		}
	}
	if !hasCloud {
		return nil, fmt.Errorf("scenario needs at least one CLOUD node")
	}
	return names, nil
}

func (s *Scenario) validateLinkSpec(l LinkSpec, names map[string]sim.NodeKind) (network.LinkKind, error) {
	prefix := fmt.Sprintf("link %s->%s", l.From, l.To)
	if _, ok := names[l.From]; !ok {
		return 0, fmt.Errorf("%s: unknown node %q", prefix, l.From)
	}
	if _, ok := names[l.To]; !ok {
		return 0, fmt.Errorf("%s: unknown node %q", prefix, l.To)
	}
	if l.From == l.To {
		return 0, fmt.Errorf("%s: a link needs two distinct nodes", prefix)
	}
	kind, err := network.ParseLinkKind(l.Kind)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", prefix, err)
	}
	latency, bandwidth := s.linkParams(l, kind)
	if err := validateLink(prefix, latency, bandwidth); err != nil {
		return 0, err
	}
	return kind, nil
}

func validateLink(prefix string, latency, bandwidth float64) error {
	if latency < 0 || math.IsNaN(latency) || math.IsInf(latency, 0) {
		return fmt.Errorf("%s: latency must be finite and non-negative, got %v", prefix, latency)
	}
	if !(bandwidth > 0) || math.IsInf(bandwidth, 0) {
		return fmt.Errorf("%s: bandwidth must be positive and finite, got %v", prefix, bandwidth)
	}
	return nil
}

func (s *Scenario) linkDefaults(kind network.LinkKind) LinkDefaults {
	switch kind {
	case network.LAN:
		return s.Network.LAN
	case network.MAN:
		return s.Network.MAN
	default:
		return s.Network.WAN
	}
}

// linkParams returns the latency and bandwidth of l, in seconds and Mbit/s.
func (s *Scenario) linkParams(l LinkSpec, kind network.LinkKind) (float64, float64) {
	d := s.linkDefaults(kind)
	latency, bandwidth := d.Latency, d.Bandwidth
	if l.Latency != nil {
		latency = *l.Latency
	}
	if l.Bandwidth != nil {
		bandwidth = *l.Bandwidth
	}
	return latency, bandwidth
}

func (n NodeSpec) replicas() int {
	if n.Count == 0 {
		return 1
	}
	return n.Count
}

func (n NodeSpec) expandedNames() []string {
	if n.Count <= 1 {
		return []string{n.Name}
	}
	names := make([]string, n.replicas())
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", n.Name, i)
	}
	return names
}
