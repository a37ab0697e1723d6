package tlsf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockRef(t *testing.T) {
	r := makeRef(3, 0x40)
	require.Equal(t, 3, r.area())
	require.Equal(t, uint64(0x40), r.offset())
	require.NotEqual(t, nilRef, makeRef(0, 0))

	n := r.next(0x20)
	require.Equal(t, 3, n.area())
	require.Equal(t, uint64(0x40+headerSize+0x20), n.offset())

	p := r.ptr()
	require.Equal(t, 3, p.Area())
	require.Equal(t, 0x40+headerSize, p.Offset())
	require.Equal(t, r, p.block())

	require.Equal(t, -1, Nil.Area())
}

func TestHeaderRoundTrip(t *testing.T) {
	areas := &areaTable{mem: [][]byte{make([]byte, 256)}}
	ref := makeRef(0, 0x20)

	h := header{prevPhys: 0x10, size: 0x60, free: true, prevFree: true}
	areas.setHeader(ref, h)
	require.Equal(t, h, areas.header(ref))

	areas.setPrev(ref, makeRef(0, 0), false)
	got := areas.header(ref)
	require.Equal(t, uint64(0), got.prevPhys)
	require.False(t, got.prevFree)
	require.True(t, got.free, "setPrev must keep the block's own flag")
	require.Equal(t, uint64(0x60), got.size)

	l := freeLinks{prev: makeRef(0, 0x80), next: nilRef}
	areas.setLinks(ref, l)
	require.Equal(t, l, areas.links(ref))

	payload := areas.payload(ref, 0x60)
	require.Len(t, payload, 0x60)
	require.Equal(t, 0x60, cap(payload))
}
