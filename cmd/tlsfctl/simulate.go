package main

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tlsfkit/cmd/tlsfctl/logger"
	"github.com/joshuapare/tlsfkit/region"
	"github.com/joshuapare/tlsfkit/tlsf"
)

// simConfig holds the simulate flags.
type simConfig struct {
	PoolSize string
	Areas    int
	Ops      int
	MinSize  string
	MaxSize  string
	Seed     int64
	Mmap     bool
	Lock     bool
	Populate bool
	Verify   bool
}

var simFlags = simConfig{
	PoolSize: "4MiB",
	Areas:    1,
	Ops:      100000,
	MinSize:  "16",
	MaxSize:  "4KiB",
	Seed:     1,
}

func init() {
	cmd := newSimulateCmd()
	f := cmd.Flags()
	f.StringVar(&simFlags.PoolSize, "pool-size", simFlags.PoolSize, "Total pool size, split evenly across areas")
	f.IntVar(&simFlags.Areas, "areas", simFlags.Areas, "Number of areas")
	f.IntVar(&simFlags.Ops, "ops", simFlags.Ops, "Number of operations")
	f.StringVar(&simFlags.MinSize, "min-size", simFlags.MinSize, "Smallest request")
	f.StringVar(&simFlags.MaxSize, "max-size", simFlags.MaxSize, "Largest request")
	f.Int64Var(&simFlags.Seed, "seed", simFlags.Seed, "Random seed")
	f.BoolVar(&simFlags.Mmap, "mmap", false, "Back areas with anonymous mappings instead of the Go heap")
	f.BoolVar(&simFlags.Lock, "lock", false, "mlock mapped areas (implies --mmap)")
	f.BoolVar(&simFlags.Populate, "populate", false, "Prefault mapped areas (implies --mmap)")
	f.BoolVar(&simFlags.Verify, "verify", false, "Verify pool invariants after every operation (slow)")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a randomized workload and report latency",
		Long: `The simulate command drives a pool with a seeded random mix of alloc,
free, realloc and calloc calls and reports per-operation latency, failure
counts, pool counters and fragmentation at the end of the run.

Example:
  tlsfctl simulate
  tlsfctl simulate --pool-size 64MiB --areas 4 --max-size 64KiB --ops 1000000
  tlsfctl simulate --mmap --lock --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runSimulate(simFlags)
			if err != nil {
				return err
			}
			return printSimReport(report)
		},
	}
	return cmd
}

// Latency summarizes the duration of one operation kind.
type Latency struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min"`
	P50   time.Duration `json:"p50"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
}

// SimReport is the outcome of a simulate run.
type SimReport struct {
	Seed        int64              `json:"seed"`
	PoolSize    int                `json:"poolSize"`
	Areas       int                `json:"areas"`
	Mapped      bool               `json:"mapped"`
	Locked      bool               `json:"locked"`
	Ops         int                `json:"ops"`
	Failures    int                `json:"failures"`
	Live        int                `json:"live"`
	Latency     map[string]Latency `json:"latency"`
	Stats       tlsf.Stats         `json:"stats"`
	LargestFree int                `json:"largestFree"`
	UsedSize    int                `json:"usedSize,omitempty"`
	MaxUsedSize int                `json:"maxUsedSize,omitempty"`
}

type simOp int

const (
	opAlloc simOp = iota
	opFree
	opRealloc
	opCalloc
)

var opNames = [...]string{"alloc", "free", "realloc", "calloc"}

// pickOp draws an operation: about half allocations, a third frees, the rest
// reallocs and callocs. With nothing live it always allocates.
func pickOp(rng *rand.Rand, live int) simOp {
	if live == 0 {
		return opAlloc
	}
	switch n := rng.Intn(100); {
	case n < 45:
		return opAlloc
	case n < 80:
		return opFree
	case n < 92:
		return opRealloc
	default:
		return opCalloc
	}
}

// openAreas allocates the backing regions of a simulated pool.
func openAreas(cfg simConfig, total int) ([]*region.Region, error) {
	if cfg.Areas < 1 {
		return nil, fmt.Errorf("--areas must be at least 1, got %d", cfg.Areas)
	}
	mapped := cfg.Mmap || cfg.Lock || cfg.Populate
	per := total / cfg.Areas
	var out []*region.Region
	for range cfg.Areas {
		var (
			r   *region.Region
			err error
		)
		if mapped {
			r, err = region.Anonymous(per, region.Options{Lock: cfg.Lock, Populate: cfg.Populate})
		} else {
			r, err = region.Heap(per)
		}
		if err != nil {
			closeAreas(out)
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func closeAreas(rs []*region.Region) {
	for _, r := range rs {
		if err := r.Close(); err != nil {
			logger.Warn("close region", "error", err)
		}
	}
}

func runSimulate(cfg simConfig) (*SimReport, error) {
	total, err := parseSize(cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	minSize, err := parseSize(cfg.MinSize)
	if err != nil {
		return nil, err
	}
	maxSize, err := parseSize(cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	if minSize < 1 {
		return nil, errors.New("--min-size must be at least 1 byte")
	}
	if maxSize < minSize {
		return nil, fmt.Errorf("--max-size %s below --min-size %s", cfg.MaxSize, cfg.MinSize)
	}

	areas, err := openAreas(cfg, total)
	if err != nil {
		return nil, err
	}
	defer closeAreas(areas)

	pool, err := tlsf.New(areas[0].Bytes(), &tlsf.Options{Logger: logger.L, VerifyEveryOp: cfg.Verify})
	if err != nil {
		return nil, err
	}
	defer pool.Destroy()
	for _, r := range areas[1:] {
		if err := pool.AddArea(r.Bytes()); err != nil {
			return nil, err
		}
	}
	printVerbose("Pool: %s in %d area(s), requests %s..%s, seed %d\n",
		bytesStr(total), len(areas), bytesStr(minSize), bytesStr(maxSize), cfg.Seed)

	rng := rand.New(rand.NewSource(cfg.Seed))
	size := func() int { return minSize + rng.Intn(maxSize-minSize+1) }

	var (
		live     []tlsf.Ptr
		samples  [len(opNames)][]time.Duration
		failures int
	)
	for range cfg.Ops {
		op := pickOp(rng, len(live))
		var (
			ptr   tlsf.Ptr
			opErr error
			idx   int
		)
		start := time.Now()
		switch op {
		case opAlloc:
			ptr, opErr = pool.Alloc(size())
		case opFree:
			idx = rng.Intn(len(live))
			opErr = pool.Free(live[idx])
		case opRealloc:
			idx = rng.Intn(len(live))
			ptr, opErr = pool.Realloc(live[idx], size())
		case opCalloc:
			n := 1 + rng.Intn(16)
			ptr, opErr = pool.Calloc(n, max(1, size()/n))
		}
		samples[op] = append(samples[op], time.Since(start))

		switch {
		case errors.Is(opErr, tlsf.ErrExhausted):
			failures++
		case opErr != nil:
			return nil, fmt.Errorf("%s: %w", opNames[op], opErr)
		case op == opFree:
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		case op == opRealloc:
			live[idx] = ptr
		default:
			live = append(live, ptr)
		}
	}

	report := &SimReport{
		Seed:        cfg.Seed,
		PoolSize:    total,
		Areas:       len(areas),
		Mapped:      areas[0].Mapped(),
		Locked:      areas[0].Locked(),
		Ops:         cfg.Ops,
		Failures:    failures,
		Live:        len(live),
		Latency:     make(map[string]Latency),
		Stats:       pool.Stats(),
		LargestFree: pool.LargestFree(),
	}
	if used, peak, ok := usage(pool); ok {
		report.UsedSize, report.MaxUsedSize = used, peak
	}
	for op, s := range samples {
		if len(s) > 0 {
			report.Latency[opNames[op]] = summarize(s)
		}
	}
	if err := pool.Verify(); err != nil {
		return nil, fmt.Errorf("pool corrupt after run: %w", err)
	}
	logger.Info("simulate finished", "ops", cfg.Ops, "failures", failures, "live", len(live))
	return report, nil
}

func summarize(s []time.Duration) Latency {
	slices.Sort(s)
	var sum time.Duration
	for _, d := range s {
		sum += d
	}
	pct := func(p int) time.Duration {
		return s[(len(s)-1)*p/100]
	}
	return Latency{
		Count: len(s),
		Min:   s[0],
		P50:   pct(50),
		P99:   pct(99),
		Max:   s[len(s)-1],
		Mean:  sum / time.Duration(len(s)),
	}
}

func printSimReport(r *SimReport) error {
	if jsonOut {
		return printJSON(r)
	}

	printInfo("\nWorkload:\n")
	printInfo("  Pool:      %s in %d area(s) (mapped: %v, locked: %v)\n", bytesStr(r.PoolSize), r.Areas, r.Mapped, r.Locked)
	printInfo("  Ops:       %d (seed %d)\n", r.Ops, r.Seed)
	printInfo("  Failures:  %d exhausted\n", r.Failures)
	printInfo("  Live:      %d allocations\n", r.Live)

	printInfo("\nLatency:\n")
	printInfo("  %-8s %9s %9s %9s %9s %9s %9s\n", "OP", "COUNT", "MIN", "P50", "P99", "MAX", "MEAN")
	for _, name := range opNames {
		l, ok := r.Latency[name]
		if !ok {
			continue
		}
		printInfo("  %-8s %9d %9s %9s %9s %9s %9s\n", name, l.Count, l.Min, l.P50, l.P99, l.Max, l.Mean)
	}

	s := r.Stats
	printInfo("\nPool:\n")
	printInfo("  Free:      %s in %d block(s), largest %s\n", bytesStr(s.FreeBytes), s.FreeBlocks, bytesStr(r.LargestFree))
	if r.MaxUsedSize > 0 {
		printInfo("  Used:      %s (peak %s)\n", bytesStr(r.UsedSize), bytesStr(r.MaxUsedSize))
	}
	printInfo("  Splits:    %d\n", s.SplitCount)
	printInfo("  Coalesce:  %d forward, %d backward\n", s.CoalesceForward, s.CoalesceBackward)
	printInfo("  Realloc:   %d in place, %d moved\n", s.ReallocInPlace, s.ReallocMoved)
	if s.FreeBytes > 0 {
		frag := 1 - float64(r.LargestFree)/float64(s.FreeBytes)
		printInfo("  Fragmentation: %.1f%%\n", frag*100)
	}
	return nil
}
