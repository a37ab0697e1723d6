package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tlsfkit/tlsf"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes [size...]",
		Short: "Show the size class index or how sizes map onto it",
		Long: `Without arguments, classes prints one row per first-level class: the
power-of-two range it covers and the width of its second-level subdivisions.

With sizes, it shows for each request the block size actually carved, the
class searched to serve it, and the class a free block of that size is filed
under.

Example:
  tlsfctl classes
  tlsfctl classes 100 1000 4KiB
  tlsfctl classes 1MiB --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runClassTable()
			}
			return runClassLookup(args)
		},
	}
	return cmd
}

// LevelRow describes one first-level class.
type LevelRow struct {
	FL    int    `json:"fl"`
	Min   uint64 `json:"min"`
	Max   uint64 `json:"max"`
	Step  uint64 `json:"step"`
	Lists int    `json:"lists"`
}

// Lookup describes how one request size maps onto the index.
type Lookup struct {
	Request uint64     `json:"request"`
	Carved  uint64     `json:"carved,omitempty"`
	Search  tlsf.Class `json:"search"`
	Filed   tlsf.Class `json:"filed"`
	OK      bool       `json:"ok"`
}

// smallBlock is the upper bound of first level 0; level n > 0 covers
// [smallBlock<<(n-1), smallBlock<<n).
const smallBlock = 128

func levelTable() []LevelRow {
	rows := make([]LevelRow, 0, tlsf.FirstLevels)
	for fl := range tlsf.FirstLevels {
		lo := uint64(0)
		if fl > 0 {
			lo = smallBlock << (fl - 1)
		}
		hi := uint64(smallBlock)<<fl - 1
		if fl == tlsf.FirstLevels-1 {
			hi = tlsf.MaxBlockSize
		}
		c := tlsf.ClassOf(lo)
		rows = append(rows, LevelRow{
			FL:    fl,
			Min:   lo,
			Max:   hi,
			Step:  c.Max - c.Min + 1,
			Lists: tlsf.SecondLevels,
		})
	}
	return rows
}

func runClassTable() error {
	rows := levelTable()
	if jsonOut {
		return printJSON(rows)
	}

	printInfo("%-4s %-12s %-12s %s\n", "FL", "FROM", "TO", "STEP")
	for _, r := range rows {
		printInfo("%-4d %-12s %-12s %s\n", r.FL, bytesStr(r.Min), bytesStr(r.Max), bytesStr(r.Step))
	}
	printVerbose("\n%d x %d lists, largest block %s\n",
		tlsf.FirstLevels, tlsf.SecondLevels, bytesStr(uint64(tlsf.MaxBlockSize)))
	return nil
}

func lookup(size uint64) Lookup {
	l := Lookup{Request: size, Filed: tlsf.ClassOf(size)}
	// requests are carved with Alignment granularity and a 16-byte minimum
	req := max(size, 16)
	req = (req + tlsf.Alignment - 1) &^ (tlsf.Alignment - 1)
	l.Search, l.Carved, l.OK = tlsf.SearchClass(req)
	return l
}

func runClassLookup(args []string) error {
	var out []Lookup
	for _, arg := range args {
		n, err := parseSize(arg)
		if err != nil {
			return err
		}
		out = append(out, lookup(uint64(n)))
	}
	if jsonOut {
		return printJSON(out)
	}

	printInfo("%-12s %-12s %-10s %s\n", "REQUEST", "CARVED", "SEARCH", "FILED")
	for _, l := range out {
		if !l.OK {
			printInfo("%-12d %-12s %-10s %s\n", l.Request, "-", "none", classStr(l.Filed))
			continue
		}
		printInfo("%-12d %-12d %-10s %s\n", l.Request, l.Carved, classStr(l.Search), classStr(l.Filed))
	}
	return nil
}

func classStr(c tlsf.Class) string {
	return fmt.Sprintf("(%d,%d)", c.FL, c.SL)
}
