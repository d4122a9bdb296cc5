package rtsync

import (
	"errors"
	"unsafe"

	"github.com/ringrt/ringrt/async"
	"github.com/ringrt/ringrt/internal/rterr"
	"github.com/ringrt/ringrt/reactor"
	"golang.org/x/sys/unix"
)

// ErrStopDispatch is a sentinel a handler can return to end HandleSignals'
// loop without treating the stop as a failure; callers that don't need
// that distinction can just return any error, since HandleSignals returns
// whatever the handler gave it back to its own caller verbatim.
var ErrStopDispatch = errors.New("rtsync: signal dispatch stopped")

// SignalHandler processes one delivered signal number. Returning an error
// stops the dispatch loop, mirroring a handler coroutine that fails.
type SignalHandler func(signum int) error

// HandleSignals blocks signum from ordinary delivery, opens a signalfd for
// it, and registers that signalfd under EPOLLIN|EPOLLONESHOT with an epoll
// descriptor that HandleSignals creates for this purpose and closes on
// return; it is not shared with the I/O engine. A reactor routine polls
// that epoll descriptor non-blockingly (timeout 0) once per iteration, so
// the single-block rule still holds: only the I/O engine's own poll
// routine ever blocks waiting for work. Each delivered signal reads one
// siginfo record, dispatches it to handler, and rearms the oneshot
// interest. It runs until handler returns an error or an epoll, read or
// rearm call fails, and returns that error.
func HandleSignals(ctx *async.Ctx, r *reactor.Reactor, signum int, handler SignalHandler) error {
	var mask unix.Sigset_t
	sigaddset(&mask, signum)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &mask, nil); err != nil {
		return rterr.WrapError("rtsync.HandleSignals", err)
	}

	fd, err := unix.Signalfd(-1, &mask, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC)
	if err != nil {
		return rterr.WrapError("rtsync.HandleSignals", err)
	}
	defer unix.Close(fd)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return rterr.WrapError("rtsync.HandleSignals", err)
	}
	defer unix.Close(epfd)

	interest := &unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLONESHOT, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, interest); err != nil {
		return rterr.WrapError("rtsync.HandleSignals", err)
	}

	var info unix.SignalfdSiginfo
	buf := make([]byte, unsafe.Sizeof(info))

	done := make(chan error, 1)
	guardHandle := r.AddRoutine(pollSignalRoutine(epfd, fd, interest, buf, &info, handler, done))
	defer guardHandle.Release()

	select {
	case err := <-done:
		return err
	default:
	}
	for {
		ctx.Yield()
		select {
		case err := <-done:
			return err
		default:
		}
	}
}

// pollSignalRoutine returns an Executable that, once per reactor
// iteration, calls EpollWait with a zero timeout against epfd. A ready
// event means the oneshot interest fired: it reads one signalfd_siginfo
// record from fd, dispatches it to handler, then rearms the oneshot
// interest via EpollCtl before the next iteration can fire again.
func pollSignalRoutine(epfd, fd int, interest *unix.EpollEvent, buf []byte, info *unix.SignalfdSiginfo, handler SignalHandler, done chan<- error) reactor.Executable {
	var events [1]unix.EpollEvent
	return reactor.NewRoutine(func() {
		n, err := unix.EpollWait(epfd, events[:], 0)
		if err != nil {
			if err == unix.EINTR {
				return
			}
			select {
			case done <- rterr.WrapError("rtsync.HandleSignals", err):
			default:
			}
			return
		}
		if n == 0 {
			return
		}

		defer func() {
			if rearmErr := unix.EpollCtl(epfd, unix.EPOLL_CTL_MOD, fd, interest); rearmErr != nil {
				select {
				case done <- rterr.WrapError("rtsync.HandleSignals", rearmErr):
				default:
				}
			}
		}()

		m, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			select {
			case done <- rterr.WrapError("rtsync.HandleSignals", err):
			default:
			}
			return
		}
		if m < len(buf) {
			return
		}
		*info = *(*unix.SignalfdSiginfo)(unsafe.Pointer(&buf[0]))
		if herr := handler(int(info.Signo)); herr != nil {
			select {
			case done <- herr:
			default:
			}
		}
	})
}

func sigaddset(set *unix.Sigset_t, signum int) {
	// Sigset_t on linux/amd64 is an array of uint64 words; bit i%64 of
	// word i/64 corresponds to signal i+1.
	word := (signum - 1) / 64
	bit := uint((signum - 1) % 64)
	set.Val[word] |= 1 << bit
}
