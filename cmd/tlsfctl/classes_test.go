package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/tlsf"
)

func TestLevelTable(t *testing.T) {
	rows := levelTable()
	require.Len(t, rows, tlsf.FirstLevels)

	require.Equal(t, uint64(0), rows[0].Min)
	require.Equal(t, uint64(127), rows[0].Max)
	require.Equal(t, uint64(4), rows[0].Step)
	require.Equal(t, uint64(128), rows[1].Min)
	require.Equal(t, uint64(4), rows[1].Step)
	require.Equal(t, uint64(1<<10), rows[4].Min)
	require.Equal(t, uint64(32), rows[4].Step)
	require.Equal(t, uint64(tlsf.MaxBlockSize), rows[len(rows)-1].Max)

	for i := 1; i < len(rows); i++ {
		require.Equal(t, rows[i-1].Max+1, rows[i].Min, "level %d", i)
	}
}

func TestLookup(t *testing.T) {
	l := lookup(100)
	require.True(t, l.OK)
	require.Equal(t, uint64(112), l.Carved)
	require.Equal(t, tlsf.Class{FL: 0, SL: 28, Min: 112, Max: 115}, l.Search)
	require.Equal(t, 0, l.Filed.FL)
	require.Equal(t, 25, l.Filed.SL)

	l = lookup(1000)
	require.True(t, l.OK)
	require.Equal(t, uint64(1008), l.Carved)

	l = lookup(1 << 40)
	require.False(t, l.OK)
}

func TestClassesOutput(t *testing.T) {
	out, err := captureOutput(t, runClassTable)
	require.NoError(t, err)
	require.Contains(t, out, "FL")
	require.Contains(t, out, "128 B")

	out, err = captureOutput(t, func() error {
		return runClassLookup([]string{"100", "4KiB"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "(0,28)")
	require.Contains(t, out, "4096")

	require.Error(t, runClassLookup([]string{"lots"}))
}

func TestClassesJSON(t *testing.T) {
	withJSON(t, func() {
		out, err := captureOutput(t, func() error {
			return runClassLookup([]string{"1MiB"})
		})
		require.NoError(t, err)

		var got []Lookup
		decodeJSON(t, out, &got)
		require.Len(t, got, 1)
		require.Equal(t, uint64(1<<20), got[0].Carved)
		require.Equal(t, 14, got[0].Search.FL)
	})
}
