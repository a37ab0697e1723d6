//go:build tlsf_release

package main

import "github.com/joshuapare/tlsfkit/tlsf"

const diagnostics = false

func usage(*tlsf.Pool) (used, peak int, ok bool) {
	return 0, 0, false
}
