// Command benchmark_parser turns `go test -bench` output of the allocator
// comparison benchmarks (Benchmark<Op>/<impl>/<size>) into a markdown report
// of the pool against the Go heap.
//
//	go test ./tlsf -run '^$' -bench AllocFree -benchmem | go run ./scripts/benchmark_parser.go
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string
	Size        string
	Impl        string // "tlsf" or "goheap"
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs the two implementations of one operation and size.
type ComparisonResult struct {
	Operation    string
	Size         string
	PoolNs       float64
	HeapNs       float64
	Speedup      float64 // heap ns / pool ns
	PoolAllocs   int64
	HeapAllocs   int64
	HeapBytes    int64
	PoolOnly     bool
	PoolFullName string
}

var (
	inputFile  = flag.String("input", "", "Input file with benchmark output (stdin if not specified)")
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	comparisons := generateComparisons(results)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results, %d comparisons\n", len(results), len(comparisons))
	}

	report := generateMarkdownReport(comparisons, time.Now())
	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// Benchmark_AllocFree/tlsf/4KiB-8    1000000    25.1 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult
	for scanner.Scan() {
		line := scanner.Text()

		// go test -json wraps output lines in events
		var event struct{ Output string }
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
		}

		m := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		r := BenchmarkResult{Name: m[1]}
		r.Iterations, _ = strconv.Atoi(m[2])
		r.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(m[4], 10, 64)
		}
		if m[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(m[5], 10, 64)
		}

		// Benchmark<Op>/<impl>/<size>-<procs>; anything else is pool-only
		parts := strings.Split(m[1], "/")
		r.Operation = strings.TrimPrefix(strings.TrimPrefix(parts[0], "Benchmark"), "_")
		r.Impl = "tlsf"
		if len(parts) >= 3 {
			r.Impl = parts[1]
		}
		if len(parts) >= 2 {
			r.Size = stripProcs(parts[len(parts)-1])
		} else {
			r.Operation = stripProcs(r.Operation)
		}
		results = append(results, r)
	}
	return results
}

func stripProcs(s string) string {
	if i := strings.LastIndex(s, "-"); i > 0 {
		if _, err := strconv.Atoi(s[i+1:]); err == nil {
			return s[:i]
		}
	}
	return s
}

func generateComparisons(results []BenchmarkResult) []ComparisonResult {
	type key struct{ op, size string }
	grouped := make(map[key]map[string]BenchmarkResult)
	for _, r := range results {
		k := key{r.Operation, r.Size}
		if grouped[k] == nil {
			grouped[k] = make(map[string]BenchmarkResult)
		}
		grouped[k][r.Impl] = r
	}

	var out []ComparisonResult
	for k, impls := range grouped {
		pool, ok := impls["tlsf"]
		if !ok {
			continue
		}
		c := ComparisonResult{
			Operation:    k.op,
			Size:         k.size,
			PoolNs:       pool.NsPerOp,
			PoolAllocs:   pool.AllocsPerOp,
			PoolFullName: pool.Name,
		}
		if heap, ok := impls["goheap"]; ok && pool.NsPerOp > 0 {
			c.HeapNs = heap.NsPerOp
			c.HeapAllocs = heap.AllocsPerOp
			c.HeapBytes = heap.BytesPerOp
			c.Speedup = heap.NsPerOp / pool.NsPerOp
		} else {
			c.PoolOnly = true
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Operation != out[j].Operation {
			return out[i].Operation < out[j].Operation
		}
		return out[i].PoolFullName < out[j].PoolFullName
	})
	return out
}

func generateMarkdownReport(comparisons []ComparisonResult, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	faster, compared := 0, 0
	for _, c := range comparisons {
		if c.PoolOnly {
			continue
		}
		compared++
		if c.Speedup > 1 {
			faster++
		}
	}
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Benchmarks**: %d (%d compared with the Go heap)\n", len(comparisons), compared)
	if compared > 0 {
		fmt.Fprintf(&sb, "- **Pool faster**: %d of %d\n", faster, compared)
	}
	sb.WriteString("\n## Results\n\n")
	sb.WriteString("| Operation | Size | tlsf (ns/op) | Go heap (ns/op) | Speedup | Allocs (tlsf vs heap) | Heap B/op |\n")
	sb.WriteString("|-----------|------|--------------|-----------------|---------|-----------------------|-----------|\n")
	for _, c := range comparisons {
		if c.PoolOnly {
			fmt.Fprintf(&sb, "| %s | %s | %s | *N/A* | *pool only* | %d | |\n",
				c.Operation, c.Size, formatNumber(c.PoolNs), c.PoolAllocs)
			continue
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %.2fx | %d vs %d | %d |\n",
			c.Operation, c.Size, formatNumber(c.PoolNs), formatNumber(c.HeapNs), c.Speedup,
			c.PoolAllocs, c.HeapAllocs, c.HeapBytes)
	}
	return sb.String()
}

func formatNumber(n float64) string {
	switch {
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fK", n/1e3)
	}
	return fmt.Sprintf("%.1f", n)
}
