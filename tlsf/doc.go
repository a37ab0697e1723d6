// Package tlsf implements a Two-Level Segregated Fit allocator over caller
// supplied byte regions.
//
// # Overview
//
// A Pool carves one or more regions ("areas") into blocks. Every block carries a
// 16-byte boundary tag in front of its payload; free blocks are filed in a
// two-level index of size classes: a power-of-two range (first level) split
// into 32 linear subdivisions (second level). One bitmap word per level records
// which lists are non-empty, so finding a fitting block is a fixed number of
// bit scans. Alloc and Free therefore run in bounded time that does not depend
// on the number of blocks, which is what real-time callers need.
//
// # Handles
//
// Allocations are returned as Ptr values, (area+1)<<40 | payload offset, not as
// Go pointers. Pool.Bytes maps a Ptr to the payload slice:
//
//	p, err := tlsf.New(make([]byte, 1<<20), nil)
//	if err != nil {
//	    return err
//	}
//	ptr, err := p.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	copy(p.Bytes(ptr), "hello")
//	_ = p.Free(ptr)
//
// # Layout
//
// Each area is laid out as
//
//	[lead sentinel][hdr|payload][hdr|payload]...[trail sentinel]
//
// Sentinels are zero-sized used blocks, so coalescing never looks outside an
// area. Payload offsets and sizes are multiples of Alignment. A free block keeps
// its list links in the first 16 payload bytes, hence the 16-byte minimum.
//
// # Concurrency
//
// A Pool is not safe for concurrent use. The malloc package provides a mutex
// serialized wrapper and a process-wide default pool.
//
// # Build tags
//
// Builds tagged tlsf_release drop the UsedSize and MaxUsedSize bookkeeping.
package tlsf
