package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func smallSim() simConfig {
	return simConfig{
		PoolSize: "256KiB",
		Areas:    2,
		Ops:      3000,
		MinSize:  "1",
		MaxSize:  "2KiB",
		Seed:     7,
		Verify:   true,
	}
}

func TestRunSimulate(t *testing.T) {
	report, err := runSimulate(smallSim())
	require.NoError(t, err)

	require.Equal(t, 3000, report.Ops)
	require.Equal(t, 2, report.Areas)
	require.Equal(t, 2, report.Stats.Areas)
	require.False(t, report.Mapped)

	count := 0
	for _, name := range opNames {
		count += report.Latency[name].Count
	}
	require.Equal(t, 3000, count)
	require.Positive(t, report.Latency["alloc"].Count)
	require.LessOrEqual(t, report.Latency["alloc"].P50, report.Latency["alloc"].Max)
	require.Positive(t, report.LargestFree)
}

func TestRunSimulateDeterministic(t *testing.T) {
	a, err := runSimulate(smallSim())
	require.NoError(t, err)
	b, err := runSimulate(smallSim())
	require.NoError(t, err)

	require.Equal(t, a.Stats, b.Stats)
	require.Equal(t, a.Failures, b.Failures)
	require.Equal(t, a.Live, b.Live)
}

func TestRunSimulateMapped(t *testing.T) {
	cfg := smallSim()
	cfg.Mmap = true
	cfg.Verify = false
	report, err := runSimulate(cfg)
	require.NoError(t, err)
	require.Equal(t, 3000, report.Ops)
}

func TestRunSimulateBadConfig(t *testing.T) {
	for name, mutate := range map[string]func(*simConfig){
		"no areas":   func(c *simConfig) { c.Areas = 0 },
		"min > max":  func(c *simConfig) { c.MinSize, c.MaxSize = "4KiB", "1KiB" },
		"zero min":   func(c *simConfig) { c.MinSize = "0" },
		"bad size":   func(c *simConfig) { c.PoolSize = "huge" },
		"tiny areas": func(c *simConfig) { c.PoolSize, c.Areas = "128", 4 },
	} {
		cfg := smallSim()
		mutate(&cfg)
		_, err := runSimulate(cfg)
		require.Error(t, err, name)
	}
}

func TestPrintSimReport(t *testing.T) {
	report, err := runSimulate(smallSim())
	require.NoError(t, err)

	out, err := captureOutput(t, func() error { return printSimReport(report) })
	require.NoError(t, err)
	require.Contains(t, out, "Latency:")
	require.Contains(t, out, "alloc")
	require.Contains(t, out, "Coalesce:")

	withJSON(t, func() {
		out, err := captureOutput(t, func() error { return printSimReport(report) })
		require.NoError(t, err)
		var got SimReport
		decodeJSON(t, out, &got)
		require.Equal(t, report.Stats, got.Stats)
	})
}
