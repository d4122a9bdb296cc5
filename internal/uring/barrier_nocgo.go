//go:build !linux || !cgo

package uring

// Sfence and Mfence degrade to no-ops when cgo is unavailable, so the
// package still builds with cgo disabled. The minimal ring is only built
// on linux with the ringrt_minimal tag; such a build with cgo disabled
// runs the minimal ring with these no-ops in place of the fences.
func Sfence() {}

func Mfence() {}
