// Package malloc offers C-style entry points over one process-wide default
// pool, plus Locked, a mutex-serialized pool wrapper.
//
// The functions never panic and never return errors: allocation failure is
// reported as tlsf.Nil and setup failure as a zero size. Calls made before Init
// (or after Destroy) fail the same way.
//
//	if malloc.Init(make([]byte, 1<<20)) == 0 {
//	    log.Fatal("pool setup failed")
//	}
//	p := malloc.Malloc(64)
//	defer malloc.Free(p)
package malloc

import (
	"log/slog"
	"sync"

	"github.com/joshuapare/tlsfkit/internal/align"
	"github.com/joshuapare/tlsfkit/region"
	"github.com/joshuapare/tlsfkit/tlsf"
)

var (
	mu     sync.RWMutex // guards def and mapped, not the pool itself
	def    *Locked
	mapped *region.Region
)

// Init replaces the default pool with a new one over mem and returns its usable
// bytes, or 0 if mem is unusable. A previous default pool is destroyed.
func Init(mem []byte) int {
	p, err := tlsf.New(mem, nil)
	if err != nil {
		slog.Warn("malloc: init failed", "size", len(mem), "error", err)
		return 0
	}
	return install(p, nil)
}

// InitMapped is Init over an anonymous mapping of size bytes (see region.Anonymous).
// The mapping is released by Destroy.
func InitMapped(size int, opts region.Options) int {
	r, err := region.Anonymous(size, opts)
	if err != nil {
		slog.Warn("malloc: map failed", "size", size, "error", err)
		return 0
	}
	p, err := tlsf.New(r.Bytes(), nil)
	if err != nil {
		slog.Warn("malloc: init failed", "size", size, "error", err)
		_ = r.Close()
		return 0
	}
	return install(p, r)
}

func install(p *tlsf.Pool, r *region.Region) int {
	usable := int(p.Stats().FreeBytes)
	mu.Lock()
	defer mu.Unlock()
	release()
	def, mapped = NewLocked(p), r
	return usable
}

// AddArea extends the default pool with mem and returns the bytes added, or 0.
func AddArea(mem []byte) int {
	l := pool()
	if l == nil {
		return 0
	}
	if err := l.AddArea(mem); err != nil {
		return 0
	}
	return len(align.Trim(mem)) - tlsf.AreaOverhead
}

// Destroy tears down the default pool. Outstanding pointers become invalid.
func Destroy() {
	mu.Lock()
	defer mu.Unlock()
	release()
}

// release must be called with mu held.
func release() {
	if def != nil {
		def.Destroy()
		def = nil
	}
	if mapped != nil {
		if err := mapped.Close(); err != nil {
			slog.Warn("malloc: unmap failed", "error", err)
		}
		mapped = nil
	}
}

func pool() *Locked {
	mu.RLock()
	defer mu.RUnlock()
	return def
}

// Default returns the default pool, or nil before Init.
func Default() *Locked {
	return pool()
}

// Malloc allocates size bytes from the default pool, or returns tlsf.Nil.
func Malloc(size int) tlsf.Ptr {
	l := pool()
	if l == nil {
		return tlsf.Nil
	}
	ptr, err := l.Alloc(size)
	if err != nil {
		return tlsf.Nil
	}
	return ptr
}

// Free releases ptr. Nil and invalid pointers are ignored.
func Free(ptr tlsf.Ptr) {
	if l := pool(); l != nil {
		_ = l.Free(ptr)
	}
}

// Realloc resizes ptr. On failure it returns tlsf.Nil and ptr stays valid,
// except for size 0, which frees ptr.
func Realloc(ptr tlsf.Ptr, size int) tlsf.Ptr {
	l := pool()
	if l == nil {
		return tlsf.Nil
	}
	moved, err := l.Realloc(ptr, size)
	if err != nil {
		return tlsf.Nil
	}
	return moved
}

// Calloc allocates count*elemSize zeroed bytes, or returns tlsf.Nil, including
// when the product overflows.
func Calloc(count, elemSize int) tlsf.Ptr {
	l := pool()
	if l == nil {
		return tlsf.Nil
	}
	ptr, err := l.Calloc(count, elemSize)
	if err != nil {
		return tlsf.Nil
	}
	return ptr
}

// Bytes returns the payload of a default pool allocation, or nil.
func Bytes(ptr tlsf.Ptr) []byte {
	l := pool()
	if l == nil {
		return nil
	}
	return l.Bytes(ptr)
}
