package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tlsfkit/cmd/tlsfctl/logger"
	"github.com/joshuapare/tlsfkit/region"
	"github.com/joshuapare/tlsfkit/tlsf"
)

var (
	layoutPoolSize string
	layoutAreas    []string
)

func init() {
	cmd := newLayoutCmd()
	cmd.Flags().StringVar(&layoutPoolSize, "pool-size", "4KiB", "Size of the first area")
	cmd.Flags().StringSliceVar(&layoutAreas, "area", nil, "Size of an additional area (repeatable)")
	rootCmd.AddCommand(cmd)
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [op...]",
		Short: "Replay an allocation script and dump the block layout",
		Long: `The layout command creates a pool, applies a script of operations in
order and prints every block of every area afterwards.

Operations:
  alloc=SIZE          allocate; the allocation gets the next id (1, 2, ...)
  calloc=COUNTxSIZE   zeroed allocation; also gets the next id
  free=ID             free allocation ID
  realloc=ID:SIZE     resize allocation ID; it keeps its id if it moves

Example:
  tlsfctl layout alloc=100 alloc=100 free=1 alloc=100
  tlsfctl layout --pool-size 64KiB alloc=4KiB calloc=4x16 realloc=1:8KiB
  tlsfctl layout --area 1KiB alloc=2KiB --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseScript(args)
			if err != nil {
				return err
			}
			res, err := runLayout(layoutPoolSize, layoutAreas, ops)
			if err != nil {
				return err
			}
			return printLayout(res)
		},
	}
	return cmd
}

// scriptOp is one parsed layout operation.
type scriptOp struct {
	Kind  string `json:"op"`
	ID    int    `json:"id,omitempty"`
	Size  int    `json:"size,omitempty"`
	Count int    `json:"count,omitempty"`
}

func (o scriptOp) String() string {
	switch o.Kind {
	case "free":
		return fmt.Sprintf("free=%d", o.ID)
	case "realloc":
		return fmt.Sprintf("realloc=%d:%d", o.ID, o.Size)
	case "calloc":
		return fmt.Sprintf("calloc=%dx%d", o.Count, o.Size)
	}
	return fmt.Sprintf("alloc=%d", o.Size)
}

func parseScript(args []string) ([]scriptOp, error) {
	ops := make([]scriptOp, 0, len(args))
	for _, arg := range args {
		kind, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("operation %q: want KIND=VALUE", arg)
		}
		op := scriptOp{Kind: kind}
		var err error
		switch kind {
		case "alloc":
			op.Size, err = parseSize(val)
		case "free":
			op.ID, err = strconv.Atoi(val)
		case "realloc":
			id, size, found := strings.Cut(val, ":")
			if !found {
				return nil, fmt.Errorf("operation %q: want realloc=ID:SIZE", arg)
			}
			if op.ID, err = strconv.Atoi(id); err == nil {
				op.Size, err = parseSize(size)
			}
		case "calloc":
			count, size, found := strings.Cut(val, "x")
			if !found {
				return nil, fmt.Errorf("operation %q: want calloc=COUNTxSIZE", arg)
			}
			if op.Count, err = strconv.Atoi(count); err == nil {
				op.Size, err = parseSize(size)
			}
		default:
			return nil, fmt.Errorf("operation %q: unknown kind %q", arg, kind)
		}
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", arg, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// StepResult records the outcome of one script operation.
type StepResult struct {
	Op    string `json:"op"`
	ID    int    `json:"id,omitempty"`
	Area  int    `json:"area,omitempty"`
	Off   int    `json:"offset,omitempty"`
	Error string `json:"error,omitempty"`
}

// LayoutBlock is one block of the final layout.
type LayoutBlock struct {
	Area   int        `json:"area"`
	Offset int        `json:"offset"`
	Size   int        `json:"size"`
	Free   bool       `json:"free"`
	Class  tlsf.Class `json:"class"`
	ID     int        `json:"id,omitempty"`
}

// LayoutResult is the outcome of a layout run.
type LayoutResult struct {
	Steps  []StepResult  `json:"steps"`
	Blocks []LayoutBlock `json:"blocks"`
	Stats  tlsf.Stats    `json:"stats"`
}

func runLayout(poolSize string, extra []string, ops []scriptOp) (*LayoutResult, error) {
	sizes := []string{poolSize}
	sizes = append(sizes, extra...)

	var pool *tlsf.Pool
	for i, s := range sizes {
		n, err := parseSize(s)
		if err != nil {
			return nil, err
		}
		r, err := region.Heap(n)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			pool, err = tlsf.New(r.Bytes(), &tlsf.Options{Logger: logger.L, VerifyEveryOp: true})
		} else {
			err = pool.AddArea(r.Bytes())
		}
		if err != nil {
			return nil, fmt.Errorf("area %d (%s): %w", i, s, err)
		}
	}
	defer pool.Destroy()

	res := &LayoutResult{}
	ids := make(map[int]tlsf.Ptr)
	next := 1
	for _, op := range ops {
		step := StepResult{Op: op.String()}
		var (
			ptr tlsf.Ptr
			err error
		)
		switch op.Kind {
		case "alloc", "calloc":
			if op.Kind == "alloc" {
				ptr, err = pool.Alloc(op.Size)
			} else {
				ptr, err = pool.Calloc(op.Count, op.Size)
			}
			if err == nil {
				step.ID = next
				ids[next] = ptr
				next++
			}
		case "free", "realloc":
			cur, ok := ids[op.ID]
			if !ok {
				err = fmt.Errorf("no live allocation %d", op.ID)
				break
			}
			step.ID = op.ID
			if op.Kind == "free" {
				err = pool.Free(cur)
				if err == nil {
					delete(ids, op.ID)
				}
				break
			}
			ptr, err = pool.Realloc(cur, op.Size)
			switch {
			case err != nil:
			case ptr == tlsf.Nil:
				delete(ids, op.ID)
			default:
				ids[op.ID] = ptr
			}
		}
		if err != nil {
			step.Error = err.Error()
		} else if ptr != tlsf.Nil {
			step.Area, step.Off = ptr.Area(), ptr.Offset()
		}
		printVerbose("%-20s %s\n", step.Op, stepStr(step))
		res.Steps = append(res.Steps, step)
	}

	owner := make(map[tlsf.Ptr]int, len(ids))
	for id, ptr := range ids {
		owner[ptr] = id
	}
	pool.Walk(func(b tlsf.BlockInfo) bool {
		lb := LayoutBlock{Area: b.Area, Offset: b.Offset, Size: b.Size, Free: b.Free, Class: b.Class}
		if !b.Free {
			lb.ID = owner[b.Ptr]
		}
		res.Blocks = append(res.Blocks, lb)
		return true
	})
	res.Stats = pool.Stats()
	return res, nil
}

func stepStr(s StepResult) string {
	if s.Error != "" {
		return "error: " + s.Error
	}
	if s.Off == 0 {
		// free, or realloc to size 0
		return fmt.Sprintf("#%d released", s.ID)
	}
	return fmt.Sprintf("#%d at %d:0x%X", s.ID, s.Area, s.Off)
}

func printLayout(res *LayoutResult) error {
	if jsonOut {
		return printJSON(res)
	}

	printInfo("\nSteps:\n")
	for _, s := range res.Steps {
		printInfo("  %-20s %s\n", s.Op, stepStr(s))
	}

	printInfo("\nBlocks:\n")
	printInfo("  %-4s %-10s %-10s %-5s %-8s %s\n", "AREA", "OFFSET", "SIZE", "STATE", "CLASS", "ID")
	for _, b := range res.Blocks {
		state, id := "used", fmt.Sprintf("#%d", b.ID)
		if b.Free {
			state, id = "free", ""
		}
		printInfo("  %-4d 0x%-8X %-10d %-5s %-8s %s\n", b.Area, b.Offset, b.Size, state, classStr(b.Class), id)
	}
	printInfo("\n%d free block(s), %s free\n", res.Stats.FreeBlocks, bytesStr(res.Stats.FreeBytes))
	return nil
}
