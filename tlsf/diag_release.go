//go:build tlsf_release

package tlsf

const diagnostics = false
