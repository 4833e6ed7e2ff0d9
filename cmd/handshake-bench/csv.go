package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"time"
)

type percentiles struct {
	mean, stddev, p50, p95, p99 float64
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// computePercentiles returns the mean, population stddev, and p50/p95/p99 of
// rtts in milliseconds. rtts must be non-empty.
func computePercentiles(rtts []time.Duration) percentiles {
	sorted := make([]time.Duration, len(rtts))
	copy(sorted, rtts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum float64
	for _, d := range sorted {
		sum += toMillis(d)
	}
	mean := sum / float64(len(sorted))

	var variance float64
	for _, d := range sorted {
		diff := toMillis(d) - mean
		variance += diff * diff
	}
	variance /= float64(len(sorted))

	return percentiles{
		mean:   mean,
		stddev: math.Sqrt(variance),
		p50:    percentile(sorted, 0.50),
		p95:    percentile(sorted, 0.95),
		p99:    percentile(sorted, 0.99),
	}
}

func percentile(sorted []time.Duration, p float64) float64 {
	if len(sorted) == 1 {
		return toMillis(sorted[0])
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return toMillis(sorted[lo])
	}
	frac := rank - float64(lo)
	return toMillis(sorted[lo])*(1-frac) + toMillis(sorted[hi])*frac
}

func dateSuffix(now time.Time) string {
	return now.Format("2006-01-02")
}

// writeBenchCSV writes the aggregate stats CSV: configuration,
// iteration_count, mean_ms, stddev_ms, p50_ms, p95_ms, p99_ms.
func writeBenchCSV(path string, results []*benchResult) error {
	return writeCSV(path, []string{"configuration", "iteration_count", "mean_ms", "stddev_ms", "p50_ms", "p95_ms", "p99_ms"}, func(w *csv.Writer) error {
		for _, r := range results {
			stats := computePercentiles(r.rtts)
			row := []string{
				r.configuration,
				fmt.Sprintf("%d", len(r.rtts)),
				formatMs(stats.mean),
				formatMs(stats.stddev),
				formatMs(stats.p50),
				formatMs(stats.p95),
				formatMs(stats.p99),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeRTTCSV writes the per-iteration raw sample CSV: configuration,
// iteration, rtt_ms.
func writeRTTCSV(path string, results []*benchResult) error {
	return writeCSV(path, []string{"configuration", "iteration", "rtt_ms"}, func(w *csv.Writer) error {
		for _, r := range results {
			for i, rtt := range r.rtts {
				row := []string{r.configuration, fmt.Sprintf("%d", i), formatMs(toMillis(rtt))}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeWireCSV writes the wire-size CSV: configuration, messageA_bytes,
// messageB_bytes, finished_bytes, total_bytes.
func writeWireCSV(path string, results []*benchResult) error {
	return writeCSV(path, []string{"configuration", "messageA_bytes", "messageB_bytes", "finished_bytes", "total_bytes"}, func(w *csv.Writer) error {
		for _, r := range results {
			total := r.messageABytes + r.messageBBytes + r.finishedBytes
			row := []string{
				r.configuration,
				fmt.Sprintf("%d", r.messageABytes),
				fmt.Sprintf("%d", r.messageBBytes),
				fmt.Sprintf("%d", r.finishedBytes),
				fmt.Sprintf("%d", total),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func formatMs(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func writeCSV(path string, header []string, writeRows func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeRows(w); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	return w.Error()
}
