//go:build unix

package region

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/tlsfkit/internal/align"
)

// Anonymous maps size bytes (rounded up to a page) of private anonymous memory.
// The mapping is page aligned and zero filled.
func Anonymous(size int, opts Options) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	n := align.UpPage(size)
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	if opts.Populate {
		flags |= populateFlag
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("region: mmap %d bytes: %w", n, err)
	}
	if opts.Populate && populateFlag == 0 {
		prefault(mem)
	}

	r := &Region{mem: mem, mapped: true}
	if opts.Lock {
		if err := unix.Mlock(mem); err != nil {
			_ = unix.Munmap(mem)
			return nil, fmt.Errorf("region: mlock %d bytes: %w", n, err)
		}
		r.locked = true
	}
	return r, nil
}

func unmap(mem []byte, locked bool) error {
	var errs []error
	if locked {
		if err := unix.Munlock(mem); err != nil {
			errs = append(errs, fmt.Errorf("region: munlock: %w", err))
		}
	}
	if err := unix.Munmap(mem); err != nil {
		errs = append(errs, fmt.Errorf("region: munmap: %w", err))
	}
	return errors.Join(errs...)
}

// prefault writes one byte per page.
func prefault(mem []byte) {
	for i := 0; i < len(mem); i += align.Page {
		mem[i] = 0
	}
}
