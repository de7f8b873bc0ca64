package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/edgesim/edgesim/sim/offload"
	"github.com/edgesim/edgesim/sim/scenario"
	"github.com/edgesim/edgesim/sim/trace"
)

var (
	// CLI flags shared by run and sweep
	scenarioPath string // Scenario YAML file
	seed         int64  // Overrides the scenario seed when set
	logLevel     string // Log verbosity level

	// CLI flags for run
	algorithm    string // Overrides the scenario orchestration algorithm
	architecture string // Overrides the scenario orchestration architecture
	resultsPath  string // File to save metrics JSON to
	traceLevel   string // Trace verbosity: none, tasks, all
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "edgesim",
	Short: "Discrete-event simulator for task offloading across cloud, edge and devices",
}

// overrides are command-line replacements for scenario settings. Zero values keep the scenario's.
type overrides struct {
	Seed         *int64
	Algorithm    string
	Architecture string
}

// apply returns a copy of sc with the overrides applied.
func (o overrides) apply(sc scenario.Scenario) scenario.Scenario {
	if o.Seed != nil {
		sc.Simulation.Seed = *o.Seed
	}
	if o.Algorithm != "" {
		sc.Orchestration.Algorithm = o.Algorithm
	}
	if o.Architecture != "" {
		sc.Orchestration.Architecture = o.Architecture
	}
	return sc
}

func seedOverride(cmd *cobra.Command) *int64 {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	s := seed
	return &s
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// simulate builds an isolated simulation from sc and runs it.
func simulate(sc scenario.Scenario, runID string, sink trace.Sink) (*offload.Metrics, error) {
	built, err := sc.Build()
	if err != nil {
		return nil, err
	}
	tasks, err := built.Tasks()
	if err != nil {
		return nil, err
	}
	s, err := offload.NewSimulation(built.Config, built.Nodes, built.Links, tasks, offload.Options{
		Sink:  sink,
		RunID: runID,
	})
	if err != nil {
		return nil, err
	}
	return s.Run()
}

// printTraceSummary writes the aggregated trace after the metrics.
func printTraceSummary(w io.Writer, st *trace.SimulationTrace) {
	summary := trace.Summarize(st)
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Tasks traced         : %d (succeeded %d, failed %d)\n", summary.TotalTasks, summary.SucceededCount, summary.FailedCount)
	fmt.Fprintf(w, "Distinct destinations: %d\n", summary.UniqueTargets)
	kinds := make([]string, 0, len(summary.TransfersByKind))
	for kind := range summary.TransfersByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %-24s : %d\n", kind, summary.TransfersByKind[kind])
	}
}

// runCmd executes one simulation of a scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (valid: none, tasks, all)", traceLevel)
		}

		base, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to load scenario; %v", err)
		}
		sc := overrides{Seed: seedOverride(cmd), Algorithm: algorithm, Architecture: architecture}.apply(*base)

		runID := uuid.NewString()
		var sink trace.Sink = trace.NopSink{}
		var st *trace.SimulationTrace
		if traceLevel != "" && trace.TraceLevel(traceLevel) != trace.TraceLevelNone {
			st = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
			sink = st
		}

		logrus.WithField("run", runID).Infof("Running %s with seed %d", scenarioPath, sc.Simulation.Seed)
		m, err := simulate(sc, runID, sink)
		if err != nil {
			logrus.Fatalf("simulation failed; %v", err)
		}

		out := cmd.OutOrStdout()
		m.Print(out)
		if st != nil {
			printTraceSummary(out, st)
		}
		if resultsPath != "" {
			if err := m.SaveResults(resultsPath); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		logrus.WithField("run", runID).Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, sweepCmd} {
		c.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for task generation and node placement (default: the scenario's)")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		_ = c.MarkFlagRequired("scenario")
	}

	runCmd.Flags().StringVar(&algorithm, "algorithm", "", "Orchestration algorithm (ROUND_ROBIN, TRADE_OFF); default: the scenario's")
	runCmd.Flags().StringVar(&architecture, "architecture", "", "Orchestration architecture (ALL, CLOUD_ONLY, EDGE_ONLY, ...); default: the scenario's")
	runCmd.Flags().StringVar(&resultsPath, "results", "", "File to save metrics JSON to")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Trace verbosity (none, tasks, all)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
}
