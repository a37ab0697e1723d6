//go:build !tlsf_release

package tlsf

// diagnostics enables used-size bookkeeping. Builds tagged tlsf_release drop it.
const diagnostics = true

// UsedSize returns the bytes held by live allocations, block headers included.
// It returns to 0 once every allocation has been freed.
func (p *Pool) UsedSize() int {
	p.mustLive()
	return int(p.used)
}

// MaxUsedSize returns the high-water mark of UsedSize.
func (p *Pool) MaxUsedSize() int {
	p.mustLive()
	return int(p.maxUsed)
}
