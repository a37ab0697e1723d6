// Package region provides the memory regions a tlsf.Pool carves into blocks:
// aligned Go heap buffers and anonymous memory mappings that can be pinned.
package region

import (
	"errors"
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/align"
)

var (
	// ErrInvalidSize indicates a non-positive region size.
	ErrInvalidSize = errors.New("region: invalid size")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("region: closed")
)

// Options configures Anonymous.
type Options struct {
	// Lock pins the mapping in RAM (mlock) so that touching pool memory never
	// takes a major fault. Subject to RLIMIT_MEMLOCK.
	// Default: false
	Lock bool

	// Populate prefaults every page at map time (MAP_POPULATE on linux, a write
	// per page elsewhere) so the first allocation pays no minor faults either.
	// Default: false
	Populate bool
}

// Region is a block of memory handed to a pool. The zero value is unusable.
type Region struct {
	mem    []byte
	mapped bool
	locked bool
	closed bool
}

// Heap returns a region of exactly size bytes from the Go heap whose first byte
// is aligned to align.Block.
func Heap(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	buf := make([]byte, size+align.BlockMask)
	skip := align.Skip(buf)
	return &Region{mem: buf[skip : skip+size : skip+size]}, nil
}

// Bytes returns the region memory, or nil after Close.
func (r *Region) Bytes() []byte {
	return r.mem
}

// Len returns the region size in bytes.
func (r *Region) Len() int {
	return len(r.mem)
}

// Mapped reports whether the region is an OS mapping rather than heap memory.
func (r *Region) Mapped() bool {
	return r.mapped
}

// Locked reports whether the region is pinned in RAM.
func (r *Region) Locked() bool {
	return r.locked
}

// Close releases the region. Any pool built on it must be destroyed first.
// Closing twice returns ErrClosed.
func (r *Region) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	mem := r.mem
	r.mem = nil
	if !r.mapped {
		return nil
	}
	return unmap(mem, r.locked)
}
