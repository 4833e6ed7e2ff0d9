// Command handshake-bench drives paired handshakes over a selectable
// transport and reports timing and wire-size statistics as CSV, matching
// spec.md §6's stable schema for cross-run comparability.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/skybridgecompass/handshake/pkg/logging"
)

const (
	defaultIterations = 1000
	defaultWarmup     = 10
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var transportKind string
	var strategyFlag string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "handshake-bench",
		Short: "Benchmark the handshake driver over a selectable transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmd(transportKind, strategyFlag, outputDir)
		},
	}

	cmd.Flags().StringVar(&transportKind, "transport", "memory", "transport carrier: memory, ws, or quic")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "classicOnly", "crypto strategy: classicOnly, pqcOnly, or hybridPreferred")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "directory to write the CSV artifacts into")

	return cmd
}

func runCmd(transportKind, strategyFlag, outputDir string) error {
	logger, err := logging.NewLogger("handshake-bench", logging.INFO, "")
	if err != nil {
		return fmt.Errorf("new logger: %w", err)
	}

	strategy, err := strategyFromFlag(strategyFlag)
	if err != nil {
		return err
	}

	iterations := envIntOrDefault("BENCH_ITERATIONS", defaultIterations)
	warmup := envIntOrDefault("BENCH_WARMUP", defaultWarmup)

	configuration := fmt.Sprintf("%s+%s", strategyFlag, transportKind)
	logger.Info("starting benchmark run", logging.Fields{
		"configuration": configuration,
		"iterations":    iterations,
		"warmup":        warmup,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(iterations+warmup)*30*time.Second)
	defer cancel()

	result, err := runBenchmark(ctx, configuration, transportKind, strategy, warmup, iterations)
	if err != nil {
		return fmt.Errorf("benchmark run: %w", err)
	}

	results := []*benchResult{result}
	suffix := dateSuffix(time.Now())

	benchPath := filepath.Join(outputDir, fmt.Sprintf("handshake_bench_%s.csv", suffix))
	rttPath := filepath.Join(outputDir, fmt.Sprintf("handshake_rtt_%s.csv", suffix))
	wirePath := filepath.Join(outputDir, fmt.Sprintf("handshake_wire_%s.csv", suffix))

	if err := writeBenchCSV(benchPath, results); err != nil {
		return fmt.Errorf("write bench csv: %w", err)
	}
	if err := writeRTTCSV(rttPath, results); err != nil {
		return fmt.Errorf("write rtt csv: %w", err)
	}
	if err := writeWireCSV(wirePath, results); err != nil {
		return fmt.Errorf("write wire csv: %w", err)
	}

	logger.Info("benchmark run complete", logging.Fields{
		"bench_csv": benchPath,
		"rtt_csv":   rttPath,
		"wire_csv":  wirePath,
	})

	return nil
}

// envIntOrDefault parses name from the environment, silently falling back
// to def on an unset or invalid (non-positive or non-numeric) value.
func envIntOrDefault(name string, def int) int {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
