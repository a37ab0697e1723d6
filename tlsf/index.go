package tlsf

import "math/bits"

const (
	// sliLog2 is log2 of the number of second-level subdivisions per power of two.
	sliLog2  = 5
	sliCount = 1 << sliLog2

	// flOffset folds every size below smallBlock into first-level class 0.
	flOffset   = 6
	smallBlock = 1 << (flOffset + 1)
	smallStep  = smallBlock / sliCount

	// flCount first-level classes cover sizes up to 2^(flCount+flOffset).
	flCount = 32

	// maxBlockSize is the largest payload the index can classify.
	maxBlockSize = 1<<(flCount+flOffset) - Alignment
)

// FirstLevels and SecondLevels are the dimensions of the class index.
const (
	FirstLevels  = flCount
	SecondLevels = sliCount
)

// MaxBlockSize is the largest block payload the index can classify.
const MaxBlockSize = maxBlockSize

// Class identifies one size class of the free-list index.
type Class struct {
	FL int // first level: power-of-two range
	SL int // second level: linear subdivision of the range

	// Min is the smallest block size stored in the class.
	Min uint64
	// Max is the largest block size stored in the class (inclusive).
	Max uint64
}

// ClassOf returns the class that a free block of the given payload size is filed
// under. Sizes above the largest classifiable block land in the last class.
func ClassOf(size uint64) Class {
	fl, sl := mappingInsert(size)
	lo, hi := classBounds(fl, sl)
	return Class{FL: fl, SL: sl, Min: lo, Max: hi}
}

// SearchClass returns the class an allocation of the given payload size is served
// from, together with the block size that is carved for it. Every block filed in
// that class or above is at least that large. ok is false if no class can serve it.
func SearchClass(size uint64) (cls Class, rounded uint64, ok bool) {
	rounded, fl, sl, ok := mappingSearch(size)
	if !ok {
		return Class{}, 0, false
	}
	lo, hi := classBounds(fl, sl)
	return Class{FL: fl, SL: sl, Min: lo, Max: hi}, rounded, true
}

// mappingInsert maps a block size to the class that files it.
func mappingInsert(size uint64) (fl, sl int) {
	if size < smallBlock {
		return 0, int(size / smallStep)
	}
	msb := bits.Len64(size) - 1
	fl = msb - flOffset
	if fl >= flCount {
		return flCount - 1, sliCount - 1
	}
	sl = int(size>>(msb-sliLog2)) - sliCount
	return fl, sl
}

// mappingSearch rounds size up to the floor of the next class so that any block in
// the returned class satisfies the request.
func mappingSearch(size uint64) (rounded uint64, fl, sl int, ok bool) {
	if size > maxBlockSize {
		return 0, 0, 0, false
	}
	if size >= smallBlock {
		round := uint64(1)<<(bits.Len64(size)-1-sliLog2) - 1
		size = (size + round) &^ round
	} else {
		size = (size + smallStep - 1) &^ (smallStep - 1)
	}
	fl, sl = mappingInsert(size)
	if fl >= flCount || size > maxBlockSize {
		return 0, 0, 0, false
	}
	return size, fl, sl, true
}

func classBounds(fl, sl int) (lo, hi uint64) {
	if fl == 0 {
		return uint64(sl) * smallStep, uint64(sl+1)*smallStep - 1
	}
	msb := fl + flOffset
	step := uint64(1) << (msb - sliLog2)
	lo = uint64(1)<<msb + uint64(sl)*step
	if fl == flCount-1 && sl == sliCount-1 {
		return lo, maxBlockSize
	}
	return lo, lo + step - 1
}

// freeIndex is the two-level segregated free-list index. A bit is set iff the
// matching list is non-empty.
type freeIndex struct {
	areas    *areaTable
	flBitmap uint32
	slBitmap [flCount]uint32
	heads    [flCount][sliCount]blockRef
	count    int    // blocks filed
	bytes    uint64 // payload bytes filed
}

// insert pushes a free block to the head of its class list.
func (x *freeIndex) insert(ref blockRef, size uint64) {
	fl, sl := mappingInsert(size)
	head := x.heads[fl][sl]
	x.areas.setLinks(ref, freeLinks{prev: nilRef, next: head})
	if head != nilRef {
		l := x.areas.links(head)
		l.prev = ref
		x.areas.setLinks(head, l)
	}
	x.heads[fl][sl] = ref
	x.slBitmap[fl] |= 1 << sl
	x.flBitmap |= 1 << fl
	x.count++
	x.bytes += size
}

// remove unlinks a free block from the list its size files it under.
func (x *freeIndex) remove(ref blockRef, size uint64) {
	fl, sl := mappingInsert(size)
	l := x.areas.links(ref)
	if l.next != nilRef {
		nl := x.areas.links(l.next)
		nl.prev = l.prev
		x.areas.setLinks(l.next, nl)
	}
	if l.prev != nilRef {
		pl := x.areas.links(l.prev)
		pl.next = l.next
		x.areas.setLinks(l.prev, pl)
	}
	if x.heads[fl][sl] == ref {
		x.heads[fl][sl] = l.next
		if l.next == nilRef {
			x.slBitmap[fl] &^= 1 << sl
			if x.slBitmap[fl] == 0 {
				x.flBitmap &^= 1 << fl
			}
		}
	}
	x.areas.setLinks(ref, freeLinks{})
	x.count--
	x.bytes -= size
}

// findSuitable returns the head of the smallest non-empty class at or above
// (fl, sl), or nilRef. The cost is a fixed number of bit operations.
func (x *freeIndex) findSuitable(fl, sl int) blockRef {
	slMap := x.slBitmap[fl] & (^uint32(0) << sl)
	if slMap == 0 {
		flMap := x.flBitmap & (^uint32(0) << (fl + 1))
		if flMap == 0 {
			return nilRef
		}
		fl = bits.TrailingZeros32(flMap)
		slMap = x.slBitmap[fl]
	}
	return x.heads[fl][bits.TrailingZeros32(slMap)]
}

func (x *freeIndex) reset() {
	areas := x.areas
	*x = freeIndex{areas: areas}
}
