//go:build unix

package region

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/internal/align"
)

func TestAnonymous(t *testing.T) {
	r, err := Anonymous(10000, Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	mem := r.Bytes()
	require.Equal(t, align.UpPage(10000), len(mem))
	require.Zero(t, addr(mem)&align.PageMask)
	require.True(t, r.Mapped())
	require.False(t, r.Locked())

	for i := range mem {
		require.Zero(t, mem[i])
	}
	mem[0], mem[len(mem)-1] = 1, 2
	require.Equal(t, byte(2), r.Bytes()[len(mem)-1])
}

func TestAnonymousPopulate(t *testing.T) {
	r, err := Anonymous(3*align.Page, Options{Populate: true})
	require.NoError(t, err)
	require.Equal(t, 3*align.Page, r.Len())
	require.NoError(t, r.Close())
	require.ErrorIs(t, r.Close(), ErrClosed)
}

func TestAnonymousLock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mlock test in short mode")
	}
	r, err := Anonymous(align.Page, Options{Lock: true})
	if err != nil {
		// RLIMIT_MEMLOCK can be zero in containers
		t.Skipf("mlock unavailable: %v", err)
	}
	require.True(t, r.Locked())
	require.NoError(t, r.Close())
}

func TestAnonymousInvalidSize(t *testing.T) {
	_, err := Anonymous(0, Options{})
	require.ErrorIs(t, err, ErrInvalidSize)
}
