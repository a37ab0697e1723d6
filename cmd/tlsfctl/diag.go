//go:build !tlsf_release

package main

import "github.com/joshuapare/tlsfkit/tlsf"

const diagnostics = true

// usage reports a pool's used and peak bytes when diagnostics are compiled in.
func usage(p *tlsf.Pool) (used, peak int, ok bool) {
	return p.UsedSize(), p.MaxUsedSize(), true
}
