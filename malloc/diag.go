//go:build !tlsf_release

package malloc

// UsedSize returns the bytes held by live allocations of the wrapped pool.
func (l *Locked) UsedSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return 0
	}
	return l.pool.UsedSize()
}

// MaxUsedSize returns the high-water mark of UsedSize.
func (l *Locked) MaxUsedSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return 0
	}
	return l.pool.MaxUsedSize()
}

// UsedSize reports the default pool's UsedSize, or 0 before Init.
func UsedSize() int {
	if l := pool(); l != nil {
		return l.UsedSize()
	}
	return 0
}

// MaxUsedSize reports the default pool's MaxUsedSize, or 0 before Init.
func MaxUsedSize() int {
	if l := pool(); l != nil {
		return l.MaxUsedSize()
	}
	return 0
}
