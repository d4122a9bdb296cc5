// Package uring provides the kernel completion-queue ring abstraction the
// I/O engine submits operations through and reaps completions from.
package uring

import (
	"errors"
	"syscall"
	"unsafe"
)

// ErrRingFull is returned when GetSQE finds no free submission slot. The
// caller must not retry synchronously — it should let the reactor run
// another quantum first.
var ErrRingFull = errors.New("submission queue full")

// SQE is a submission queue entry under construction. Exactly one Prepare*
// call configures it for a specific operation; SetUserData stores the
// opaque 64-bit slot the matching completion carries back unchanged. The
// engine places a side-table index (not a live Promise) in that slot,
// since Go cannot placement-construct a value inside a foreign 8-byte
// region the way the source language does.
type SQE interface {
	PrepareOpenAt(dirfd int32, path string, flags uint32, mode uint32)
	PrepareClose(fd int32)
	PrepareFsync(fd int32, datasync bool)
	PrepareRead(fd int32, buf []byte, offset uint64)
	PrepareWrite(fd int32, buf []byte, offset uint64)
	PrepareReadv(fd int32, iovecs []syscall.Iovec, offset uint64)
	PrepareWritev(fd int32, iovecs []syscall.Iovec, offset uint64)
	PrepareSocket(domain, typ, proto int32)
	PrepareAccept(fd int32, addr unsafe.Pointer, addrlen *uint32, flags uint32)
	PrepareConnect(fd int32, addr unsafe.Pointer, addrlen uint32)
	PrepareSend(fd int32, buf []byte, flags uint32)
	PrepareRecv(fd int32, buf []byte, flags uint32)
	PrepareTimeout(ts *syscall.Timespec, flags uint32)
	SetUserData(userData uint64)
}

// CQE is a completion queue entry: the result of exactly one previously
// submitted SQE, keyed by the same opaque user-data word.
type CQE struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// Ring is the minimal surface the ioengine package needs from a kernel
// io_uring instance. Two implementations exist: a real-ring backend
// (iouring_real.go, driving github.com/pawelgaczynski/giouring) and a
// hand-rolled fallback (minimal.go, build-tagged ringrt_minimal) that talks
// to io_uring_setup/io_uring_enter directly. On non-Linux platforms a stub
// NewRing always returns an error so the package graph still builds.
type Ring interface {
	// Close tears down the ring and unmaps its shared memory.
	Close() error

	// GetSQE reserves a free submission slot for in-place preparation.
	// Returns ErrRingFull if the submission queue has no vacancy.
	GetSQE() (SQE, error)

	// Submit pushes all prepared-but-unsubmitted SQEs to the kernel in a
	// single syscall and returns the number accepted.
	Submit() (uint32, error)

	// SubmitAndWait is like Submit but blocks until at least waitNr
	// completions are available. The engine calls this with waitNr=1 and
	// only when the single-block rule permits blocking at all.
	SubmitAndWait(waitNr uint32) (uint32, error)

	// PeekCQE non-blockingly inspects the oldest unseen completion. ok is
	// false if none is ready yet.
	PeekCQE() (cqe CQE, ok bool)

	// CQESeen advances the completion ring's head past the entry last
	// returned by PeekCQE, making its slot available to the kernel again.
	CQESeen()
}

// Config configures ring construction.
type Config struct {
	Entries uint32 // submission queue depth; completion queue is sized 2x
	Flags   uint32 // additional IORING_SETUP_* flags
}

// Features lists optional io_uring features. The engine itself only
// requires the baseline 64-byte SQE / 16-byte CQE ABI and uses none of
// them; the running kernel is not queried.
type Features struct {
	SQE128 bool
	CQE32  bool
	SQPOLL bool
}

// GetFeatures reports the feature set this engine relies on.
func GetFeatures() Features {
	return Features{SQE128: false, CQE32: false, SQPOLL: false}
}
