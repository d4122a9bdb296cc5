package ioengine

import (
	"syscall"
	"unsafe"

	"github.com/ringrt/ringrt/internal/uring"
)

// fakeSQE records exactly what Prepare* call configured it, so tests can
// assert on submitted operations without a real kernel ring.
type fakeSQE struct {
	op       string
	userData uint64
}

func (s *fakeSQE) PrepareOpenAt(int32, string, uint32, uint32)            { s.op = "openat" }
func (s *fakeSQE) PrepareClose(int32)                                     { s.op = "close" }
func (s *fakeSQE) PrepareFsync(int32, bool)                               { s.op = "fsync" }
func (s *fakeSQE) PrepareRead(int32, []byte, uint64)                      { s.op = "read" }
func (s *fakeSQE) PrepareWrite(int32, []byte, uint64)                     { s.op = "write" }
func (s *fakeSQE) PrepareReadv(int32, []syscall.Iovec, uint64)            { s.op = "readv" }
func (s *fakeSQE) PrepareWritev(int32, []syscall.Iovec, uint64)           { s.op = "writev" }
func (s *fakeSQE) PrepareSocket(int32, int32, int32)                     { s.op = "socket" }
func (s *fakeSQE) PrepareAccept(int32, unsafe.Pointer, *uint32, uint32)   { s.op = "accept" }
func (s *fakeSQE) PrepareConnect(int32, unsafe.Pointer, uint32)          { s.op = "connect" }
func (s *fakeSQE) PrepareSend(int32, []byte, uint32)                      { s.op = "send" }
func (s *fakeSQE) PrepareRecv(int32, []byte, uint32)                      { s.op = "recv" }
func (s *fakeSQE) PrepareTimeout(*syscall.Timespec, uint32)               { s.op = "timeout" }
func (s *fakeSQE) SetUserData(userData uint64)                            { s.userData = userData }

// fakeRing is a completion-controllable Ring double: Submit always
// accepts everything queued via GetSQE, and tests drive completions by
// pushing onto ready directly. Mirrors the teacher's stub-mode backend
// pattern of letting higher layers run without a real kernel.
type fakeRing struct {
	queued  []*fakeSQE
	ready   []uring.CQE
	closed  bool
	submitErr error
}

func newFakeRing() *fakeRing {
	return &fakeRing{}
}

func (r *fakeRing) Close() error {
	r.closed = true
	return nil
}

func (r *fakeRing) GetSQE() (uring.SQE, error) {
	s := &fakeSQE{}
	r.queued = append(r.queued, s)
	return s, nil
}

func (r *fakeRing) Submit() (uint32, error) {
	if r.submitErr != nil {
		return 0, r.submitErr
	}
	n := uint32(len(r.queued))
	r.queued = nil
	return n, nil
}

func (r *fakeRing) SubmitAndWait(waitNr uint32) (uint32, error) {
	return r.Submit()
}

func (r *fakeRing) PeekCQE() (uring.CQE, bool) {
	if len(r.ready) == 0 {
		return uring.CQE{}, false
	}
	return r.ready[0], true
}

func (r *fakeRing) CQESeen() {
	if len(r.ready) > 0 {
		r.ready = r.ready[1:]
	}
}

// complete injects a ready completion for the given token.
func (r *fakeRing) complete(token uint64, res int32) {
	r.ready = append(r.ready, uring.CQE{UserData: token, Res: res})
}

var _ uring.Ring = (*fakeRing)(nil)
