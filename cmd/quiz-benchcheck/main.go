// Command quiz-benchcheck compares two `go test -bench` outputs and fails
// when a tracked engine benchmark regressed past the threshold.
//
//	go test -run '^$' -bench . -count 6 ./ > new.txt
//	quiz-benchcheck -baseline old.txt -candidate new.txt -threshold 0.25
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

var trackedMetrics = map[string][]string{
	"BenchmarkValidate":     {"ns/op", "allocs/op"},
	"BenchmarkRefresh":      {"ns/op"},
	"BenchmarkSubmitAnswer": {"ns/op", "allocs/op"},
	"BenchmarkMetricsInc":   {"ns/op"},
}

// samples maps benchmark name to unit to every observed value.
type samples map[string]map[string][]float64

type row struct {
	benchmark string
	metric    string
	baseline  float64
	candidate float64
	delta     float64
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)

	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	baseline, err := parseFile(baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	rows, failures := compare(baseline, candidate, trackedMetrics, threshold)

	fmt.Println("benchmark metric baseline candidate delta")
	for _, r := range rows {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.benchmark, r.metric, r.baseline, r.candidate, r.delta*100)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

// compare reports the median delta of every tracked metric in benchmark
// name order, plus a failure line for each regression or missing sample.
func compare(baseline, candidate samples, tracked map[string][]string, threshold float64) ([]row, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []row
		failures []string
	)
	for _, name := range names {
		for _, metric := range tracked[name] {
			base := baseline[name][metric]
			cand := candidate[name][metric]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, metric))
				continue
			}

			baseMedian := median(base)
			candMedian := median(cand)
			if baseMedian <= 0 {
				// allocs/op of zero on both sides is a steady state, not an error.
				if baseMedian == 0 && candMedian == 0 {
					rows = append(rows, row{benchmark: name, metric: metric})
					continue
				}
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", name, metric))
				continue
			}

			delta := (candMedian - baseMedian) / baseMedian
			rows = append(rows, row{benchmark: name, metric: metric, baseline: baseMedian, candidate: candMedian, delta: delta})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseFile(path string) (samples, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parse(file, trackedMetrics)
}

func parse(r io.Reader, tracked map[string][]string) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeName(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if _, ok := out[name]; !ok {
			out[name] = map[string][]float64{}
		}

		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeName strips the -GOMAXPROCS suffix go test appends.
func normalizeName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
