package tlsf

import "errors"

var (
	// ErrExhausted indicates that no free block large enough exists in the pool.
	// The pool is unchanged; free something, add an area or ask for less.
	ErrExhausted = errors.New("tlsf: pool exhausted")

	// ErrInvalidArea indicates a region too small (below MinAreaSize after
	// alignment) or too large to be carved into a single block.
	ErrInvalidArea = errors.New("tlsf: invalid area")

	// ErrOverflow indicates that count*elemSize does not fit the size domain.
	ErrOverflow = errors.New("tlsf: request size overflows")

	// ErrInvalidSize indicates a negative size.
	ErrInvalidSize = errors.New("tlsf: invalid size")

	// ErrBadPointer indicates a pointer that does not reference a live allocation
	// of this pool (unknown area, misaligned, out of bounds or already free).
	ErrBadPointer = errors.New("tlsf: bad pointer")
)

const msgDestroyed = "tlsf: use of destroyed pool"
