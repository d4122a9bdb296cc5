//go:build linux && !ringrt_minimal

// Package uring, in this file, implements Ring on top of
// github.com/pawelgaczynski/giouring, a pure-Go io_uring binding. This is
// the default linux backend; see minimal.go for the hand-rolled fallback.
package uring

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/pawelgaczynski/giouring"

	"github.com/ringrt/ringrt/internal/logging"
)

// realRing wraps a *giouring.Ring.
type realRing struct {
	ring *giouring.Ring
}

// NewRing creates the default linux Ring, backed by giouring.
func NewRing(config Config) (Ring, error) {
	return NewRealRing(config)
}

// NewRealRing creates a ring backed by giouring.
func NewRealRing(config Config) (Ring, error) {
	logger := logging.Default()
	logger.Debug("creating io_uring", "entries", config.Entries, "flags", config.Flags)

	ring, err := giouring.CreateRing(config.Entries)
	if err != nil {
		logger.Error("failed to create io_uring", "error", err)
		return nil, fmt.Errorf("giouring.CreateRing: %w", err)
	}

	logger.Info("created io_uring", "entries", config.Entries)
	return &realRing{ring: ring}, nil
}

func (r *realRing) Close() error {
	r.ring.QueueExit()
	return nil
}

// realSQE adapts a *giouring.SubmissionQueueEntry to the package's SQE
// interface.
type realSQE struct {
	sqe *giouring.SubmissionQueueEntry
}

func (r *realRing) GetSQE() (SQE, error) {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return nil, ErrRingFull
	}
	return &realSQE{sqe: sqe}, nil
}

func (s *realSQE) PrepareOpenAt(dirfd int32, path string, flags uint32, mode uint32) {
	pathBytes := append([]byte(path), 0)
	s.sqe.PrepareOpenat(dirfd, &pathBytes[0], flags, mode)
}

func (s *realSQE) PrepareClose(fd int32) {
	s.sqe.PrepareClose(fd)
}

func (s *realSQE) PrepareFsync(fd int32, datasync bool) {
	var flags uint32
	if datasync {
		flags = fsyncDataSync
	}
	s.sqe.PrepareFsync(fd, flags)
}

func (s *realSQE) PrepareRead(fd int32, buf []byte, offset uint64) {
	var p *byte
	if len(buf) > 0 {
		p = &buf[0]
	}
	s.sqe.PrepareRead(fd, p, uint32(len(buf)), offset)
}

func (s *realSQE) PrepareWrite(fd int32, buf []byte, offset uint64) {
	var p *byte
	if len(buf) > 0 {
		p = &buf[0]
	}
	s.sqe.PrepareWrite(fd, p, uint32(len(buf)), offset)
}

func (s *realSQE) PrepareReadv(fd int32, iovecs []syscall.Iovec, offset uint64) {
	var p unsafe.Pointer
	if len(iovecs) > 0 {
		p = unsafe.Pointer(&iovecs[0])
	}
	s.sqe.PrepareReadv(fd, p, uint32(len(iovecs)), offset)
}

func (s *realSQE) PrepareWritev(fd int32, iovecs []syscall.Iovec, offset uint64) {
	var p unsafe.Pointer
	if len(iovecs) > 0 {
		p = unsafe.Pointer(&iovecs[0])
	}
	s.sqe.PrepareWritev(fd, p, uint32(len(iovecs)), offset)
}

func (s *realSQE) PrepareSocket(domain, typ, proto int32) {
	s.sqe.PrepareSocket(domain, typ, proto, 0)
}

func (s *realSQE) PrepareAccept(fd int32, addr unsafe.Pointer, addrlen *uint32, flags uint32) {
	s.sqe.PrepareAccept(fd, addr, (*uint64)(nil), flags)
	s.sqe.Addr2 = uint64(uintptr(unsafe.Pointer(addrlen)))
}

func (s *realSQE) PrepareConnect(fd int32, addr unsafe.Pointer, addrlen uint32) {
	s.sqe.PrepareConnect(fd, addr, uint64(addrlen))
}

func (s *realSQE) PrepareSend(fd int32, buf []byte, flags uint32) {
	var p unsafe.Pointer
	if len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	s.sqe.PrepareSend(fd, p, uint32(len(buf)), flags)
}

func (s *realSQE) PrepareRecv(fd int32, buf []byte, flags uint32) {
	var p unsafe.Pointer
	if len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	s.sqe.PrepareRecv(fd, p, uint32(len(buf)), flags)
}

func (s *realSQE) PrepareTimeout(ts *syscall.Timespec, flags uint32) {
	kts := &giouring.Timespec{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}
	s.sqe.PrepareTimeout(kts, 1, flags|timeoutAbs)
}

func (s *realSQE) SetUserData(userData uint64) {
	s.sqe.UserData = userData
}

func (r *realRing) Submit() (uint32, error) {
	n, err := r.ring.Submit()
	if err != nil {
		return 0, fmt.Errorf("submit: %w", err)
	}
	return n, nil
}

func (r *realRing) SubmitAndWait(waitNr uint32) (uint32, error) {
	n, err := r.ring.SubmitAndWait(waitNr)
	if err != nil {
		return 0, fmt.Errorf("submit_and_wait: %w", err)
	}
	return n, nil
}

func (r *realRing) PeekCQE() (CQE, bool) {
	cqe, err := r.ring.PeekCQE()
	if err != nil || cqe == nil {
		return CQE{}, false
	}
	return CQE{UserData: cqe.UserData, Res: cqe.Res, Flags: cqe.Flags}, true
}

func (r *realRing) CQESeen() {
	r.ring.CQEAdvance(1)
}
