package malloc

import (
	"errors"
	"sync"

	"github.com/joshuapare/tlsfkit/tlsf"
)

// ErrDestroyed is returned by a Locked whose pool has been destroyed. Unlike a
// bare tlsf.Pool, a Locked fails instead of panicking, since other goroutines
// may still hold it.
var ErrDestroyed = errors.New("malloc: pool destroyed")

// Locked serializes every call on a pool behind a mutex so that one pool can be
// shared between goroutines.
type Locked struct {
	mu   sync.Mutex
	pool *tlsf.Pool
}

var _ tlsf.Allocator = (*Locked)(nil)

// NewLocked wraps p. The caller must stop using p directly.
func NewLocked(p *tlsf.Pool) *Locked {
	return &Locked{pool: p}
}

func (l *Locked) Alloc(size int) (tlsf.Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return tlsf.Nil, ErrDestroyed
	}
	return l.pool.Alloc(size)
}

func (l *Locked) Free(ptr tlsf.Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return ErrDestroyed
	}
	return l.pool.Free(ptr)
}

func (l *Locked) Realloc(ptr tlsf.Ptr, size int) (tlsf.Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return tlsf.Nil, ErrDestroyed
	}
	return l.pool.Realloc(ptr, size)
}

func (l *Locked) Calloc(count, elemSize int) (tlsf.Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return tlsf.Nil, ErrDestroyed
	}
	return l.pool.Calloc(count, elemSize)
}

// Bytes returns the payload of ptr. The slice is not protected by the lock:
// the caller owns the allocation until it frees it.
func (l *Locked) Bytes(ptr tlsf.Ptr) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return nil
	}
	return l.pool.Bytes(ptr)
}

func (l *Locked) AddArea(region []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return ErrDestroyed
	}
	return l.pool.AddArea(region)
}

func (l *Locked) Stats() tlsf.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return tlsf.Stats{}
	}
	return l.pool.Stats()
}

// Do runs fn with the lock held, for calls Locked does not forward
// (Verify, Walk, LargestFree). fn must not retain p. Do does nothing once the
// pool is destroyed.
func (l *Locked) Do(fn func(p *tlsf.Pool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return
	}
	fn(l.pool)
}

// Destroy destroys the wrapped pool. Destroying twice is a no-op.
func (l *Locked) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return
	}
	l.pool.Destroy()
	l.pool = nil
}
