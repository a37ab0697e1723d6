//go:build !unix

package region

import (
	"errors"
	"fmt"
)

// Anonymous falls back to a heap region where anonymous mappings are not
// available. Locking is not supported there.
func Anonymous(size int, opts Options) (*Region, error) {
	if opts.Lock {
		return nil, fmt.Errorf("region: lock: %w", errors.ErrUnsupported)
	}
	return Heap(size)
}

func unmap([]byte, bool) error {
	return nil
}
