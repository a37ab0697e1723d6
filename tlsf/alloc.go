package tlsf

import (
	"math"
	"math/bits"

	"github.com/joshuapare/tlsfkit/internal/align"
)

// Allocator is the allocation surface shared by *Pool and serialized wrappers.
type Allocator interface {
	Alloc(size int) (Ptr, error)
	Free(ptr Ptr) error
	Realloc(ptr Ptr, size int) (Ptr, error)
	Calloc(count, elemSize int) (Ptr, error)
	Bytes(ptr Ptr) []byte
}

var _ Allocator = (*Pool)(nil)

// Alloc returns a block of at least size bytes. The payload is not initialized.
//
// The request is rounded up to Alignment and then to its size class floor, the
// smallest populated class at or above it is located with two bitmap scans, and
// the chosen block is split when the remainder can stand as a block of its own.
// Returns ErrExhausted when no free block is large enough; the pool never grows.
func (p *Pool) Alloc(size int) (Ptr, error) {
	p.mustLive()
	p.stats.AllocCalls++
	if size < 0 {
		return Nil, ErrInvalidSize
	}

	rounded, fl, sl, ok := mappingSearch(requestSize(uint64(size)))
	if !ok {
		return Nil, p.exhausted(size)
	}
	ref := p.index.findSuitable(fl, sl)
	if ref == nilRef {
		return Nil, p.exhausted(size)
	}

	h := p.areas.header(ref)
	p.index.remove(ref, h.size)
	h.free = false
	p.split(ref, &h, rounded)
	p.addUsed(h.size)

	p.verifyIfEnabled()
	return ref.ptr(), nil
}

// Free returns an allocation to the pool and merges it with free physical
// neighbours (at most two merges). Freeing Nil is a no-op.
//
// Returns ErrBadPointer, without touching the pool, when ptr is not a live
// allocation of this pool. The check is best effort: a pointer into the middle of
// a payload can go undetected.
func (p *Pool) Free(ptr Ptr) error {
	p.mustLive()
	if ptr == Nil {
		return nil
	}
	ref, h, err := p.usedBlock(ptr)
	if err != nil {
		return err
	}
	p.stats.FreeCalls++
	p.subUsed(h.size)
	if p.opts.Poison {
		poison(p.areas.payload(ref, h.size))
	}
	p.release(ref, h)

	p.verifyIfEnabled()
	return nil
}

// Realloc resizes an allocation, preserving the first min(old, new) payload bytes.
//
//   - Nil behaves as Alloc.
//   - size 0 behaves as Free and returns Nil.
//   - If the block, merged with a free next neighbour when needed, fits the new
//     size, it is resized in place and ptr is returned.
//   - Otherwise a new block is allocated, the payload copied and the old block
//     freed. If that allocation fails the original block is left untouched.
func (p *Pool) Realloc(ptr Ptr, size int) (Ptr, error) {
	p.mustLive()
	p.stats.ReallocCalls++
	if ptr == Nil {
		return p.Alloc(size)
	}
	if size < 0 {
		return Nil, ErrInvalidSize
	}
	if size == 0 {
		return Nil, p.Free(ptr)
	}
	ref, h, err := p.usedBlock(ptr)
	if err != nil {
		return Nil, err
	}

	want := requestSize(uint64(size))
	if want <= maxBlockSize {
		next := ref.next(h.size)
		nh := p.areas.header(next)
		avail := h.size
		if nh.free {
			avail += headerSize + nh.size
		}
		if want <= avail {
			p.subUsed(h.size)
			if nh.free {
				p.index.remove(next, nh.size)
				h.size = avail
				p.stats.CoalesceForward++
			}
			p.split(ref, &h, want)
			p.addUsed(h.size)
			p.stats.ReallocInPlace++
			p.log.Debug("tlsf: realloc in place", "ptr", ptr, "size", size, "block", h.size)

			p.verifyIfEnabled()
			return ptr, nil
		}
	}

	moved, err := p.Alloc(size)
	if err != nil {
		return Nil, err
	}
	copy(p.Bytes(moved), p.areas.payload(ref, h.size))
	if err := p.Free(ptr); err != nil {
		return Nil, err
	}
	p.stats.ReallocMoved++
	p.log.Debug("tlsf: realloc moved", "from", ptr, "to", moved, "size", size)
	return moved, nil
}

// Calloc allocates count*elemSize bytes and zero fills them. Returns ErrOverflow
// when the product does not fit; the product is checked before it is formed.
func (p *Pool) Calloc(count, elemSize int) (Ptr, error) {
	p.mustLive()
	p.stats.CallocCalls++
	if count < 0 || elemSize < 0 {
		return Nil, ErrInvalidSize
	}
	hi, lo := bits.Mul64(uint64(count), uint64(elemSize))
	if hi != 0 || lo > math.MaxInt {
		p.stats.Failures++
		p.log.Debug("tlsf: calloc overflow", "count", count, "elemSize", elemSize)
		return Nil, ErrOverflow
	}
	ptr, err := p.Alloc(int(lo))
	if err != nil {
		return Nil, err
	}
	clear(p.Bytes(ptr))
	return ptr, nil
}

// Bytes returns the payload of a live allocation: UsableSize(ptr) bytes, which is
// at least the size requested. It returns nil for Nil or an invalid pointer.
// The slice aliases pool memory and is valid until the allocation is freed or moved.
func (p *Pool) Bytes(ptr Ptr) []byte {
	p.mustLive()
	if ptr == Nil {
		return nil
	}
	ref, h, err := p.usedBlock(ptr)
	if err != nil {
		return nil
	}
	return p.areas.payload(ref, h.size)
}

// UsableSize returns the payload capacity of a live allocation, or 0.
func (p *Pool) UsableSize(ptr Ptr) int {
	return len(p.Bytes(ptr))
}

// requestSize applies the minimum block size and Alignment to a request.
func requestSize(size uint64) uint64 {
	if size < minBlockSize {
		return minBlockSize
	}
	if size > maxBlockSize {
		return size
	}
	return align.Up(size)
}

// split trims a used block to want bytes and files the tail as a free block when
// the tail can hold a header and a minimum payload. Either way the physical
// successor's boundary tag is brought up to date.
func (p *Pool) split(ref blockRef, h *header, want uint64) {
	if h.size >= want+headerSize+minBlockSize {
		rest := h.size - want - headerSize
		h.size = want
		p.areas.setHeader(ref, *h)

		tail := ref.next(want)
		p.areas.setHeader(tail, header{prevPhys: ref.offset(), size: rest, free: true})
		p.areas.setPrev(tail.next(rest), tail, true)
		p.index.insert(tail, rest)
		p.stats.SplitCount++
		return
	}
	p.areas.setHeader(ref, *h)
	p.areas.setPrev(ref.next(h.size), ref, false)
}

// release coalesces a block that just stopped being used and files the result.
func (p *Pool) release(ref blockRef, h header) {
	next := ref.next(h.size)
	if nh := p.areas.header(next); nh.free {
		p.index.remove(next, nh.size)
		h.size += headerSize + nh.size
		p.stats.CoalesceForward++
	}
	if h.prevFree {
		// the absorbed header stays behind as payload; flag it so a second Free
		// of the same pointer is refused
		p.areas.setHeader(ref, header{prevPhys: h.prevPhys, size: h.size, free: true, prevFree: true})
		prev := makeRef(ref.area(), h.prevPhys)
		ph := p.areas.header(prev)
		p.index.remove(prev, ph.size)
		ph.size += headerSize + h.size
		ref, h = prev, ph
		p.stats.CoalesceBackward++
	}
	h.free = true
	p.areas.setHeader(ref, h)
	p.areas.setPrev(ref.next(h.size), ref, true)
	p.index.insert(ref, h.size)
}

// usedBlock resolves ptr to its header and checks that it names a used block.
func (p *Pool) usedBlock(ptr Ptr) (blockRef, header, error) {
	area := ptr.Area()
	if area < 0 || area >= len(p.areas.mem) {
		return nilRef, header{}, ErrBadPointer
	}
	off := uint64(ptr.Offset())
	mem := p.areas.mem[area]
	// the first payload follows the leading sentinel and the first header
	if !align.IsAligned(off) || off < 2*headerSize || off+minBlockSize > uint64(len(mem))-headerSize {
		return nilRef, header{}, ErrBadPointer
	}
	ref := ptr.block()
	h := p.areas.header(ref)
	if h.free || h.size < minBlockSize || off+h.size > uint64(len(mem))-headerSize {
		return nilRef, header{}, ErrBadPointer
	}
	return ref, h, nil
}

func (p *Pool) exhausted(size int) error {
	p.stats.Failures++
	p.log.Debug("tlsf: pool exhausted", "size", size, "freeBlocks", p.index.count, "freeBytes", p.index.bytes)
	return ErrExhausted
}

func (p *Pool) addUsed(size uint64) {
	if !diagnostics {
		return
	}
	p.used += size + headerSize
	if p.used > p.maxUsed {
		p.maxUsed = p.used
	}
}

func (p *Pool) subUsed(size uint64) {
	if !diagnostics {
		return
	}
	p.used -= size + headerSize
}

func poison(b []byte) {
	for i := range b {
		b[i] = PoisonByte
	}
}
