package tlsf

// Stats holds operation counters of a pool.
type Stats struct {
	AllocCalls   int // Alloc calls, including those made by Realloc and Calloc
	FreeCalls    int // Free calls on non-nil pointers
	ReallocCalls int
	CallocCalls  int
	Failures     int // requests refused with ErrExhausted or ErrOverflow

	SplitCount       int // blocks split on allocate or in-place realloc
	CoalesceForward  int // merges with the next physical block
	CoalesceBackward int // merges with the previous physical block
	ReallocInPlace   int // reallocs resolved without moving data
	ReallocMoved     int // reallocs that allocated, copied and freed

	Areas      int // registered areas
	FreeBlocks int // blocks currently filed in the free-list index
	FreeBytes  uint64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mustLive()
	s := p.stats
	s.Areas = len(p.areas.mem)
	s.FreeBlocks = p.index.count
	s.FreeBytes = p.index.bytes
	return s
}
