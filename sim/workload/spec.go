package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec is the workload configuration: the applications devices run.
// Loaded from YAML via LoadSpec(path) or embedded in a scenario file.
type Spec struct {
	Applications []Application `yaml:"applications"`
}

// Application describes one kind of task a device generates.
type Application struct {
	Name string `yaml:"name"`

	// UsagePercentage is the share of task-generating devices running this application.
	// Shares are normalized over all applications, so they need not sum to 100.
	UsagePercentage float64     `yaml:"usage_percentage"`
	Rate            float64     `yaml:"rate"` // tasks per minute per device
	Arrival         ArrivalSpec `yaml:"arrival"`

	MaxLatency    float64 `yaml:"max_latency"`    // seconds; 0 means no deadline
	Length        float64 `yaml:"length"`         // million instructions
	RequestSize   float64 `yaml:"request_size"`   // kbits
	OutputSize    float64 `yaml:"output_size"`    // kbits
	ContainerSize float64 `yaml:"container_size"` // kbits
}

// ArrivalSpec configures the inter-arrival time process.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	CV      *float64 `yaml:"cv,omitempty"`
}

var validArrivalProcesses = map[string]bool{
	"poisson": true, "constant": true, "gamma": true, "weibull": true,
}

// LoadSpec reads and parses a YAML workload file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are valid.
func (s *Spec) Validate() error {
	if len(s.Applications) == 0 {
		return fmt.Errorf("at least one application required")
	}
	names := make(map[string]bool, len(s.Applications))
	var usage float64
	for i := range s.Applications {
		a := &s.Applications[i]
		if err := validateApplication(a, i); err != nil {
			return err
		}
		if names[a.Name] {
			return fmt.Errorf("application[%d]: duplicate name %q", i, a.Name)
		}
		names[a.Name] = true
		usage += a.UsagePercentage
	}
	if !(usage > 0) {
		return fmt.Errorf("usage percentages must not all be zero")
	}
	return nil
}

func validateApplication(a *Application, idx int) error {
	prefix := fmt.Sprintf("application[%d]", idx)
	if a.Name == "" {
		return fmt.Errorf("%s: name required", prefix)
	}
	prefix = fmt.Sprintf("application %q", a.Name)
	if err := validateFiniteNonNegative(prefix+".usage_percentage", a.UsagePercentage); err != nil {
		return err
	}
	if err := validateFinitePositive(prefix+".rate", a.Rate); err != nil {
		return err
	}
	if !validArrivalProcesses[a.Arrival.Process] {
		return fmt.Errorf("%s: unknown arrival process %q; valid: constant, gamma, poisson, weibull", prefix, a.Arrival.Process)
	}
	if a.Arrival.CV != nil {
		if err := validateFinitePositive(prefix+".arrival.cv", *a.Arrival.CV); err != nil {
			return err
		}
		if a.Arrival.Process == "weibull" && (*a.Arrival.CV < 0.01 || *a.Arrival.CV > 10.4) {
			return fmt.Errorf("%s: weibull CV must be in [0.01, 10.4], got %f", prefix, *a.Arrival.CV)
		}
	}
	if err := validateFinitePositive(prefix+".length", a.Length); err != nil {
		return err
	}
	for name, val := range map[string]float64{
		"max_latency":    a.MaxLatency,
		"request_size":   a.RequestSize,
		"output_size":    a.OutputSize,
		"container_size": a.ContainerSize,
	} {
		if err := validateFiniteNonNegative(prefix+"."+name, val); err != nil {
			return err
		}
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

func validateFiniteNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", name, val)
	}
	return nil
}
