package tlsf

// BlockInfo describes one block met by Walk.
type BlockInfo struct {
	Area   int    // area index
	Offset int    // payload offset inside the area
	Size   int    // payload bytes
	Free   bool   // filed in the free-list index
	Ptr    Ptr    // allocation handle; meaningful for used blocks
	Class  Class  // class the block is (or would be) filed under
	Bytes  []byte `json:"-"`
}

// Walk calls fn for every block of every area in address order, sentinels
// excluded. Iteration stops early when fn returns false.
// fn must not mutate the pool.
func (p *Pool) Walk(fn func(BlockInfo) bool) {
	p.mustLive()
	for area, mem := range p.areas.mem {
		end := uint64(len(mem)) - headerSize
		ref := makeRef(area, 0).next(0)
		for ref.offset() < end {
			h := p.areas.header(ref)
			if h.size == 0 || ref.offset()+headerSize+h.size > end {
				// corrupt block, Verify reports it
				return
			}
			info := BlockInfo{
				Area:   area,
				Offset: int(ref.offset() + headerSize),
				Size:   int(h.size),
				Free:   h.free,
				Ptr:    ref.ptr(),
				Class:  ClassOf(h.size),
				Bytes:  p.areas.payload(ref, h.size),
			}
			if !fn(info) {
				return
			}
			ref = ref.next(h.size)
		}
	}
}

// LargestFree returns the payload size of the largest free block, or 0.
// It walks every block; use it for diagnostics, not on the allocation path.
func (p *Pool) LargestFree() int {
	largest := 0
	p.Walk(func(b BlockInfo) bool {
		if b.Free && b.Size > largest {
			largest = b.Size
		}
		return true
	})
	return largest
}
