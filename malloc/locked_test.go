package malloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/region"
	"github.com/joshuapare/tlsfkit/tlsf"
)

func newLocked(t *testing.T, size int) *Locked {
	t.Helper()
	r, err := region.Heap(size)
	require.NoError(t, err)
	p, err := tlsf.New(r.Bytes(), nil)
	require.NoError(t, err)
	return NewLocked(p)
}

func TestLockedConcurrent(t *testing.T) {
	l := newLocked(t, 1<<20)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				ptr, err := l.Alloc(16 + (g*131+i*17)%700)
				if err != nil {
					t.Errorf("goroutine %d: alloc: %v", g, err)
					return
				}
				b := l.Bytes(ptr)
				for j := range b {
					b[j] = byte(g)
				}
				if i%2 == 0 {
					if ptr, err = l.Realloc(ptr, len(b)*2); err != nil {
						t.Errorf("goroutine %d: realloc: %v", g, err)
						return
					}
					b = l.Bytes(ptr)[:len(b)]
				}
				for j := range b {
					if b[j] != byte(g) {
						t.Errorf("goroutine %d: payload clobbered", g)
						return
					}
				}
				if err := l.Free(ptr); err != nil {
					t.Errorf("goroutine %d: free: %v", g, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	l.Do(func(p *tlsf.Pool) {
		require.NoError(t, p.Verify())
	})
	require.Equal(t, 1, l.Stats().FreeBlocks)
}

func TestLockedDestroy(t *testing.T) {
	l := newLocked(t, 4096)
	ptr, err := l.Calloc(4, 4)
	require.NoError(t, err)

	l.Destroy()
	l.Destroy()

	_, err = l.Alloc(16)
	require.ErrorIs(t, err, ErrDestroyed)
	require.ErrorIs(t, l.Free(ptr), ErrDestroyed)
	_, err = l.Realloc(ptr, 32)
	require.ErrorIs(t, err, ErrDestroyed)
	require.ErrorIs(t, l.AddArea(make([]byte, 128)), ErrDestroyed)
	require.Nil(t, l.Bytes(ptr))
	require.Equal(t, tlsf.Stats{}, l.Stats())

	called := false
	l.Do(func(*tlsf.Pool) { called = true })
	require.False(t, called)
}
