// Package align holds the alignment arithmetic shared by the allocator and the
// region providers. All boundaries are powers of two.
package align

import "unsafe"

const (
	// Block is the allocation granularity. Block sizes, header offsets and payload
	// offsets are multiples of Block.
	Block = 16

	// BlockMask is the bitmask used for aligning to Block boundaries (Block - 1).
	BlockMask = Block - 1

	// Page is the granularity used when sizing mapped regions.
	Page = 0x1000

	// PageMask is the bitmask used for aligning to Page boundaries (Page - 1).
	PageMask = Page - 1
)

// Up returns n aligned up to the next Block boundary.
//
// Example:
//
//	Up(1)  = 16
//	Up(16) = 16
//	Up(17) = 32
func Up(n uint64) uint64 {
	return (n + BlockMask) &^ BlockMask
}

// Down returns n aligned down to the previous Block boundary.
//
// Example:
//
//	Down(15) = 0
//	Down(16) = 16
//	Down(47) = 32
func Down(n uint64) uint64 {
	return n &^ BlockMask
}

// UpPage returns n aligned up to the next 4KB (4096-byte) boundary.
func UpPage(n int) int {
	return (n + PageMask) &^ PageMask
}

// IsAligned reports whether n sits on a Block boundary.
func IsAligned(n uint64) bool {
	return n&BlockMask == 0
}

// Skip returns how many leading bytes of b must be dropped so that the first
// remaining byte sits on a Block aligned address. It returns 0 for an empty slice.
func Skip(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return int((Block - addr&BlockMask) & BlockMask)
}

// Trim returns the largest sub-slice of b that starts on a Block aligned address
// and whose length is a multiple of Block. The result may be empty.
func Trim(b []byte) []byte {
	skip := Skip(b)
	if skip >= len(b) {
		return b[:0]
	}
	b = b[skip:]
	n := Down(uint64(len(b)))
	return b[:n:n]
}
