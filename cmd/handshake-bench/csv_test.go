package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestComputePercentilesSingleSample(t *testing.T) {
	stats := computePercentiles([]time.Duration{10 * time.Millisecond})
	if stats.mean != 10 || stats.p50 != 10 || stats.p95 != 10 || stats.p99 != 10 {
		t.Fatalf("stats = %+v, want all 10ms", stats)
	}
	if stats.stddev != 0 {
		t.Errorf("stddev = %v, want 0 for a single sample", stats.stddev)
	}
}

func TestComputePercentilesOrdersUnsortedInput(t *testing.T) {
	rtts := []time.Duration{
		30 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}
	stats := computePercentiles(rtts)
	if stats.mean != 25 {
		t.Errorf("mean = %v, want 25", stats.mean)
	}
	if stats.p50 < 20 || stats.p50 > 30 {
		t.Errorf("p50 = %v, want between 20 and 30", stats.p50)
	}
	if stats.p99 <= stats.p50 {
		t.Errorf("p99 = %v should exceed p50 = %v", stats.p99, stats.p50)
	}
}

func TestWriteBenchCSVSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.csv")
	results := []*benchResult{{
		configuration: "classicOnly+memory",
		rtts:          []time.Duration{5 * time.Millisecond, 7 * time.Millisecond},
	}}

	if err := writeBenchCSV(path, results); err != nil {
		t.Fatalf("writeBenchCSV: %v", err)
	}

	rows := readCSV(t, path)
	wantHeader := []string{"configuration", "iteration_count", "mean_ms", "stddev_ms", "p50_ms", "p95_ms", "p99_ms"}
	assertRow(t, rows[0], wantHeader)
	if rows[1][0] != "classicOnly+memory" {
		t.Errorf("configuration = %q", rows[1][0])
	}
	if rows[1][1] != "2" {
		t.Errorf("iteration_count = %q, want 2", rows[1][1])
	}
}

func TestWriteWireCSVComputesTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wire.csv")
	results := []*benchResult{{
		configuration: "pqcOnly+quic",
		messageABytes: 100,
		messageBBytes: 200,
		finishedBytes: 36,
	}}

	if err := writeWireCSV(path, results); err != nil {
		t.Fatalf("writeWireCSV: %v", err)
	}

	rows := readCSV(t, path)
	assertRow(t, rows[0], []string{"configuration", "messageA_bytes", "messageB_bytes", "finished_bytes", "total_bytes"})
	if rows[1][4] != "336" {
		t.Errorf("total_bytes = %q, want 336", rows[1][4])
	}
}

func TestWriteRTTCSVOneRowPerIteration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtt.csv")
	results := []*benchResult{{
		configuration: "classicOnly+memory",
		rtts:          []time.Duration{1 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond},
	}}

	if err := writeRTTCSV(path, results); err != nil {
		t.Fatalf("writeRTTCSV: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 4 { // header + 3 iterations
		t.Fatalf("got %d rows, want 4", len(rows))
	}
}

func TestEnvIntOrDefaultFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("BENCH_TEST_VAR", "not-a-number")
	if got := envIntOrDefault("BENCH_TEST_VAR", 42); got != 42 {
		t.Errorf("got %d, want fallback 42", got)
	}

	t.Setenv("BENCH_TEST_VAR", "-5")
	if got := envIntOrDefault("BENCH_TEST_VAR", 42); got != 42 {
		t.Errorf("got %d, want fallback 42 for non-positive value", got)
	}

	t.Setenv("BENCH_TEST_VAR", "77")
	if got := envIntOrDefault("BENCH_TEST_VAR", 42); got != 77 {
		t.Errorf("got %d, want 77", got)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func assertRow(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("row length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
}
