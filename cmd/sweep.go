package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/edgesim/edgesim/sim"
	"github.com/edgesim/edgesim/sim/offload"
	"github.com/edgesim/edgesim/sim/scenario"
	"github.com/edgesim/edgesim/sim/trace"
)

var (
	// CLI flags for sweep
	sweepAlgorithms    []string // Algorithms to compare
	sweepArchitectures []string // Architectures to compare
	sweepParallel      int      // Maximum concurrent runs
)

// sweepResult is the outcome of one architecture/algorithm combination.
type sweepResult struct {
	Architecture string
	Algorithm    string
	RunID        string
	Metrics      *offload.Metrics
	Err          error
}

// sweep runs every architecture × algorithm combination of base, at most
// parallel at a time. Each run builds its own nodes, links, kernel and RNG,
// so runs share nothing but the parsed scenario. Results come back in
// architecture-major order regardless of completion order.
func sweep(base scenario.Scenario, architectures, algorithms []string, seed *int64, parallel int) []sweepResult {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]sweepResult, 0, len(architectures)*len(algorithms))
	for _, arch := range architectures {
		for _, alg := range algorithms {
			results = append(results, sweepResult{Architecture: arch, Algorithm: alg, RunID: uuid.NewString()})
		}
	}

	slots := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(r *sweepResult) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			sc := overrides{Seed: seed, Algorithm: r.Algorithm, Architecture: r.Architecture}.apply(base)
			logrus.WithField("run", r.RunID).Infof("Sweep run %s/%s started", r.Architecture, r.Algorithm)
			r.Metrics, r.Err = simulate(sc, r.RunID, trace.NopSink{})
		}(&results[i])
	}
	wg.Wait()
	return results
}

// printSweep writes one row per combination.
func printSweep(w io.Writer, results []sweepResult) {
	fmt.Fprintln(w, "=== Sweep Results ===")
	fmt.Fprintf(w, "%-16s %-12s %8s %10s %8s %12s %12s\n",
		"architecture", "algorithm", "tasks", "succeeded", "failed", "avg_compl_s", "avg_net_s")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%-16s %-12s error: %v\n", r.Architecture, r.Algorithm, r.Err)
			continue
		}
		m := r.Metrics
		fmt.Fprintf(w, "%-16s %-12s %8d %9.2f%% %8d %12.4f %12.4f\n",
			r.Architecture, r.Algorithm, m.Tasks, 100*m.SuccessRate(), m.Failed, m.AvgCompletion, m.AvgNetworkTime)
	}
}

// sweepCmd compares orchestration policies on one scenario
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a scenario under every combination of architectures and algorithms",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		for _, a := range sweepArchitectures {
			if !sim.ValidArchitectures[a] {
				logrus.Fatalf("unknown architecture %q; valid: %v", a, sim.ValidNames(sim.ValidArchitectures))
			}
		}
		for _, a := range sweepAlgorithms {
			if !sim.ValidAlgorithms[a] {
				logrus.Fatalf("unknown algorithm %q; valid: %v", a, sim.ValidNames(sim.ValidAlgorithms))
			}
		}
		base, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to load scenario; %v", err)
		}

		results := sweep(*base, sweepArchitectures, sweepAlgorithms, seedOverride(cmd), sweepParallel)
		printSweep(cmd.OutOrStdout(), results)
		for _, r := range results {
			if r.Err != nil {
				logrus.Errorf("run %s/%s failed: %v", r.Architecture, r.Algorithm, r.Err)
			}
		}
	},
}

func init() {
	sweepCmd.Flags().StringSliceVar(&sweepAlgorithms, "algorithms", []string{"ROUND_ROBIN", "TRADE_OFF"}, "Comma-separated orchestration algorithms")
	sweepCmd.Flags().StringSliceVar(&sweepArchitectures, "architectures", []string{"ALL", "EDGE_AND_CLOUD", "CLOUD_ONLY"}, "Comma-separated orchestration architectures")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 4, "Maximum number of concurrent runs")
}
