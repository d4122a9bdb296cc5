//go:build !linux

package uring

import "fmt"

// NewRing is the non-Linux stub: io_uring is a Linux-only kernel ABI, so
// this package's real and minimal backends are both build-tagged out here.
func NewRing(config Config) (Ring, error) {
	return nil, fmt.Errorf("io_uring is only available on linux")
}
