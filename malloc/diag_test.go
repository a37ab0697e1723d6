//go:build !tlsf_release

package malloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPoolUsedSize(t *testing.T) {
	t.Cleanup(Destroy)
	Destroy()
	require.Zero(t, UsedSize())

	require.NotZero(t, Init(heap(t, 4096)))
	p := Malloc(100)
	require.Equal(t, 128, UsedSize())
	Free(p)
	require.Zero(t, UsedSize())
	require.Equal(t, 128, MaxUsedSize())
}
