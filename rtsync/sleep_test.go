package rtsync

import (
	"syscall"
	"testing"
	"time"
	"unsafe"

	"github.com/ringrt/ringrt/async"
	"github.com/ringrt/ringrt/internal/rterr"
	"github.com/ringrt/ringrt/internal/uring"
	"github.com/ringrt/ringrt/ioengine"
	"github.com/ringrt/ringrt/reactor"
	"github.com/stretchr/testify/require"
)

// fakeTimeoutSQE and fakeTimeoutRing are a minimal Ring double sufficient
// to drive Sleep's single Timeout op through completion without a real
// kernel ring, mirroring the ioengine package's own fake_ring_test.go
// pattern.
type fakeTimeoutSQE struct {
	userData uint64
}

func (s *fakeTimeoutSQE) PrepareOpenAt(int32, string, uint32, uint32)          {}
func (s *fakeTimeoutSQE) PrepareClose(int32)                                  {}
func (s *fakeTimeoutSQE) PrepareFsync(int32, bool)                            {}
func (s *fakeTimeoutSQE) PrepareRead(int32, []byte, uint64)                   {}
func (s *fakeTimeoutSQE) PrepareWrite(int32, []byte, uint64)                  {}
func (s *fakeTimeoutSQE) PrepareReadv(int32, []syscall.Iovec, uint64)         {}
func (s *fakeTimeoutSQE) PrepareWritev(int32, []syscall.Iovec, uint64)        {}
func (s *fakeTimeoutSQE) PrepareSocket(int32, int32, int32)                   {}
func (s *fakeTimeoutSQE) PrepareAccept(int32, unsafe.Pointer, *uint32, uint32) {}
func (s *fakeTimeoutSQE) PrepareConnect(int32, unsafe.Pointer, uint32)        {}
func (s *fakeTimeoutSQE) PrepareSend(int32, []byte, uint32)                   {}
func (s *fakeTimeoutSQE) PrepareRecv(int32, []byte, uint32)                   {}
func (s *fakeTimeoutSQE) PrepareTimeout(*syscall.Timespec, uint32)            {}
func (s *fakeTimeoutSQE) SetUserData(userData uint64)                        { s.userData = userData }

type fakeTimeoutRing struct {
	queued []*fakeTimeoutSQE
	ready  []uring.CQE
}

func (r *fakeTimeoutRing) Close() error { return nil }

func (r *fakeTimeoutRing) GetSQE() (uring.SQE, error) {
	s := &fakeTimeoutSQE{}
	r.queued = append(r.queued, s)
	return s, nil
}

func (r *fakeTimeoutRing) Submit() (uint32, error) {
	n := uint32(len(r.queued))
	r.queued = nil
	return n, nil
}

func (r *fakeTimeoutRing) SubmitAndWait(waitNr uint32) (uint32, error) { return r.Submit() }

func (r *fakeTimeoutRing) PeekCQE() (uring.CQE, bool) {
	if len(r.ready) == 0 {
		return uring.CQE{}, false
	}
	return r.ready[0], true
}

func (r *fakeTimeoutRing) CQESeen() {
	if len(r.ready) > 0 {
		r.ready = r.ready[1:]
	}
}

func (r *fakeTimeoutRing) complete(res int32) {
	r.ready = append(r.ready, uring.CQE{UserData: 0, Res: res})
}

var _ uring.Ring = (*fakeTimeoutRing)(nil)

func TestSleepTranslatesETimeToSuccess(t *testing.T) {
	r := reactor.New(nil)
	defer r.Close()
	ring := &fakeTimeoutRing{}
	e := ioengine.New(r, ring)
	defer e.Shutdown()

	var sleepErr error
	done := make(chan struct{})
	async.Spawn(r, func(ctx *async.Ctx) (struct{}, error) {
		sleepErr = Sleep(ctx, e, 5*time.Millisecond)
		close(done)
		return struct{}{}, nil
	})

	r.Run() // submits the timeout sqe via the engine's poll routine
	ring.complete(-int32(syscall.ETIME))
	r.Run() // completeReady drains the completion, settling the future
	r.Run() // the resume task enqueued by that settlement resumes the coroutine

	<-done
	require.NoError(t, sleepErr)
}

func TestSleepRejectsNegativeDurationSynchronously(t *testing.T) {
	r := reactor.New(nil)
	defer r.Close()
	ring := &fakeTimeoutRing{}
	e := ioengine.New(r, ring)
	defer e.Shutdown()

	var sleepErr error
	done := make(chan struct{})
	async.Spawn(r, func(ctx *async.Ctx) (struct{}, error) {
		sleepErr = Sleep(ctx, e, -time.Millisecond)
		close(done)
		return struct{}{}, nil
	})

	<-done
	require.Error(t, sleepErr)
	require.True(t, rterr.IsCode(sleepErr, rterr.CodeInvalidArgument))
	require.Empty(t, ring.queued, "a negative duration must never reach the ring")
}

func TestSleepSurfacesOtherNegativeResultsAsError(t *testing.T) {
	r := reactor.New(nil)
	defer r.Close()
	ring := &fakeTimeoutRing{}
	e := ioengine.New(r, ring)
	defer e.Shutdown()

	var sleepErr error
	done := make(chan struct{})
	async.Spawn(r, func(ctx *async.Ctx) (struct{}, error) {
		sleepErr = Sleep(ctx, e, time.Millisecond)
		close(done)
		return struct{}{}, nil
	})

	r.Run()
	ring.complete(-int32(syscall.EINVAL))
	r.Run()
	r.Run()

	<-done
	require.Error(t, sleepErr)
}
