package tlsf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMappingInsert(t *testing.T) {
	tests := []struct {
		size   uint64
		fl, sl int
	}{
		{0, 0, 0},
		{16, 0, 4},
		{127, 0, 31},
		{128, 1, 0},
		{132, 1, 1},
		{255, 1, 31},
		{256, 2, 0},
		{1 << 20, 14, 0},
		{1<<20 + 1<<15, 14, 1},
		{maxBlockSize, flCount - 1, sliCount - 1},
	}
	for _, tt := range tests {
		fl, sl := mappingInsert(tt.size)
		require.Equal(t, tt.fl, fl, "size %d", tt.size)
		require.Equal(t, tt.sl, sl, "size %d", tt.size)
	}
}

func TestMappingSearchRoundsUp(t *testing.T) {
	tests := []struct {
		size    uint64
		rounded uint64
	}{
		{16, 16},
		{17, 20},
		{128, 128},
		{129, 132},
		{144, 144},
		{1000, 1008},
		{1024, 1024},
		{1025, 1056},
	}
	for _, tt := range tests {
		rounded, fl, sl, ok := mappingSearch(tt.size)
		require.True(t, ok)
		require.Equal(t, tt.rounded, rounded, "size %d", tt.size)
		lo, _ := classBounds(fl, sl)
		require.Equal(t, rounded, lo, "size %d: rounded size must be the class floor", tt.size)
	}

	_, _, _, ok := mappingSearch(maxBlockSize + 1)
	require.False(t, ok)
}

func TestClassBoundsCoverSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 10000 {
		size := uint64(rng.Int63n(maxBlockSize + 1))
		c := ClassOf(size)
		require.LessOrEqual(t, c.Min, size)
		require.GreaterOrEqual(t, c.Max, size)

		if cls, rounded, ok := SearchClass(size); ok {
			require.GreaterOrEqual(t, rounded, size)
			require.Equal(t, cls.Min, rounded)
			require.Equal(t, cls, ClassOf(rounded))
		}
	}
}

func TestClassesAreContiguous(t *testing.T) {
	var next uint64
	for fl := range flCount {
		for sl := range sliCount {
			lo, hi := classBounds(fl, sl)
			require.Equal(t, next, lo, "class (%d,%d)", fl, sl)
			require.GreaterOrEqual(t, hi, lo)
			next = hi + 1
		}
	}
	require.Equal(t, uint64(maxBlockSize+1), next)
}

func newTestIndex(t *testing.T) (*freeIndex, *areaTable) {
	t.Helper()
	areas := &areaTable{mem: [][]byte{make([]byte, 1<<16)}}
	return &freeIndex{areas: areas}, areas
}

func TestFreeIndexFindSuitable(t *testing.T) {
	x, _ := newTestIndex(t)

	require.Equal(t, nilRef, x.findSuitable(0, 0))

	small := makeRef(0, 0x100)
	mid := makeRef(0, 0x200)
	big := makeRef(0, 0x300)
	x.insert(small, 64)
	x.insert(mid, 1024)
	x.insert(big, 8192)
	require.Equal(t, 3, x.count)
	require.Equal(t, uint64(64+1024+8192), x.bytes)

	for _, tt := range []struct {
		size uint64
		want blockRef
	}{
		{16, small},
		{64, small},
		{80, mid},
		{1024, mid},
		{1025, big},
		{8192, big},
		{8193, nilRef},
	} {
		_, fl, sl, ok := mappingSearch(tt.size)
		require.True(t, ok)
		require.Equal(t, tt.want, x.findSuitable(fl, sl), "size %d", tt.size)
	}

	x.remove(mid, 1024)
	_, fl, sl, _ := mappingSearch(80)
	require.Equal(t, big, x.findSuitable(fl, sl))

	x.remove(big, 8192)
	x.remove(small, 64)
	require.Zero(t, x.flBitmap)
	require.Zero(t, x.count)
	require.Zero(t, x.bytes)
	for fl := range flCount {
		require.Zero(t, x.slBitmap[fl])
	}
}

func TestFreeIndexListOrder(t *testing.T) {
	x, areas := newTestIndex(t)

	a, b, c := makeRef(0, 0x100), makeRef(0, 0x200), makeRef(0, 0x300)
	for _, r := range []blockRef{a, b, c} {
		x.insert(r, 48)
	}
	fl, sl := mappingInsert(48)
	require.Equal(t, c, x.heads[fl][sl], "most recently inserted block is reused first")

	// unlink from the middle
	x.remove(b, 48)
	require.Equal(t, freeLinks{prev: nilRef, next: a}, areas.links(c))
	require.Equal(t, freeLinks{prev: c, next: nilRef}, areas.links(a))
	require.NotZero(t, x.slBitmap[fl]&(1<<sl))

	x.remove(c, 48)
	require.Equal(t, a, x.heads[fl][sl])
	x.remove(a, 48)
	require.Equal(t, nilRef, x.heads[fl][sl])
	require.Zero(t, x.slBitmap[fl]&(1<<sl))
}
