package tlsf

import (
	"encoding/binary"

	"github.com/joshuapare/tlsfkit/internal/align"
)

const (
	// Alignment is the granularity of every payload offset and payload size.
	Alignment = align.Block

	// headerSize is the boundary tag stored in front of every payload:
	//
	//	0x00 prevPhys  uint64  area offset of the physically previous header
	//	0x08 sizeWord  uint64  payload size | flagFree | flagPrevFree
	headerSize = 16

	// minBlockSize is the smallest payload. A free block keeps its two list links
	// in the first 16 payload bytes.
	minBlockSize = 16

	// AreaOverhead is the number of bytes of every area consumed by the leading
	// sentinel, the first block header and the trailing sentinel.
	AreaOverhead = 3 * headerSize

	// MinAreaSize is the smallest (aligned) region accepted by New and AddArea.
	// It yields exactly one free block of MinAreaSize-AreaOverhead bytes.
	MinAreaSize = AreaOverhead + minBlockSize

	prevPhysOff = 0
	sizeWordOff = 8
	linkPrevOff = headerSize
	linkNextOff = headerSize + 8

	flagFree     = 0x1
	flagPrevFree = 0x2
	flagMask     = align.BlockMask
)

const (
	// refShift splits a reference into area index (high bits) and offset.
	refShift = 40
	offMask  = 1<<refShift - 1

	// maxAreas bounds the area table so that area+1 fits above refShift.
	maxAreas = 1<<(64-refShift) - 1
)

// blockRef names a block header: (area+1)<<refShift | headerOffset.
// The zero value is nilRef and never names a block.
type blockRef uint64

const nilRef blockRef = 0

func makeRef(area int, off uint64) blockRef {
	return blockRef(uint64(area+1)<<refShift | off&offMask)
}

func (r blockRef) area() int {
	return int(r>>refShift) - 1
}

func (r blockRef) offset() uint64 {
	return uint64(r) & offMask
}

// next returns the header that physically follows a block of the given size.
func (r blockRef) next(size uint64) blockRef {
	return r + blockRef(headerSize+size)
}

func (r blockRef) ptr() Ptr {
	return Ptr(r + headerSize)
}

// Ptr is a handle to an allocation's payload: (area+1)<<40 | payload offset.
// Pool.Bytes turns it into a byte slice.
type Ptr uint64

// Nil is the null allocation. No successful call ever returns it.
const Nil Ptr = 0

func (p Ptr) block() blockRef {
	return blockRef(p - headerSize)
}

// Area returns the index of the area the allocation lives in.
func (p Ptr) Area() int {
	return int(p>>refShift) - 1
}

// Offset returns the payload offset inside its area.
func (p Ptr) Offset() int {
	return int(uint64(p) & offMask)
}

// header is the decoded boundary tag of one block.
type header struct {
	prevPhys uint64 // area offset of the previous header, meaningful unless this is the leading sentinel
	size     uint64 // payload bytes
	free     bool
	prevFree bool
}

// freeLinks is the Free variant of a block: its position in a size-class list.
// It only exists while header.free is set; a used block's payload belongs to the caller.
type freeLinks struct {
	prev blockRef
	next blockRef
}

// areaTable owns the caller regions and reads/writes block records inside them.
type areaTable struct {
	mem [][]byte
}

func (t *areaTable) word(ref blockRef, off uint64) uint64 {
	b := t.mem[ref.area()]
	i := ref.offset() + off
	return binary.LittleEndian.Uint64(b[i : i+8])
}

func (t *areaTable) setWord(ref blockRef, off, v uint64) {
	b := t.mem[ref.area()]
	i := ref.offset() + off
	binary.LittleEndian.PutUint64(b[i:i+8], v)
}

func (t *areaTable) header(ref blockRef) header {
	w := t.word(ref, sizeWordOff)
	return header{
		prevPhys: t.word(ref, prevPhysOff),
		size:     w &^ flagMask,
		free:     w&flagFree != 0,
		prevFree: w&flagPrevFree != 0,
	}
}

func (t *areaTable) setHeader(ref blockRef, h header) {
	w := h.size
	if h.free {
		w |= flagFree
	}
	if h.prevFree {
		w |= flagPrevFree
	}
	t.setWord(ref, prevPhysOff, h.prevPhys)
	t.setWord(ref, sizeWordOff, w)
}

// setPrev updates the boundary tag a block keeps about its physical predecessor.
func (t *areaTable) setPrev(ref blockRef, prev blockRef, prevFree bool) {
	w := t.word(ref, sizeWordOff) &^ flagPrevFree
	if prevFree {
		w |= flagPrevFree
	}
	t.setWord(ref, prevPhysOff, prev.offset())
	t.setWord(ref, sizeWordOff, w)
}

func (t *areaTable) links(ref blockRef) freeLinks {
	return freeLinks{
		prev: blockRef(t.word(ref, linkPrevOff)),
		next: blockRef(t.word(ref, linkNextOff)),
	}
}

func (t *areaTable) setLinks(ref blockRef, l freeLinks) {
	t.setWord(ref, linkPrevOff, uint64(l.prev))
	t.setWord(ref, linkNextOff, uint64(l.next))
}

// payload returns the caller visible bytes of a block.
func (t *areaTable) payload(ref blockRef, size uint64) []byte {
	b := t.mem[ref.area()]
	lo := ref.offset() + headerSize
	hi := lo + size
	return b[lo:hi:hi]
}
