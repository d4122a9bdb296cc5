package rtsync

import (
	"syscall"
	"time"

	"github.com/ringrt/ringrt/async"
	"github.com/ringrt/ringrt/ioengine"
	"github.com/ringrt/ringrt/internal/rterr"
)

// Sleep arms an absolute-deadline timeout on engine and awaits it,
// translating the kernel's normal -ETIME expiry into a nil error and any
// other negative completion into a system error. A negative duration is
// rejected synchronously with an invalid-argument error rather than
// handed to the kernel, since the source's own deadline arithmetic is
// what turns a negative duration into -EINVAL there. Must be called from
// inside a spawned coroutine, since it awaits through ctx.
func Sleep(ctx *async.Ctx, engine *ioengine.Engine, duration time.Duration) error {
	if duration < 0 {
		return rterr.NewInvalidArgument("rtsync.Sleep", "duration must not be negative")
	}

	var now syscall.Timespec
	if err := syscall.ClockGettime(syscall.CLOCK_MONOTONIC, &now); err != nil {
		return rterr.WrapError("rtsync.Sleep", err)
	}
	deadline := syscall.NsecToTimespec(now.Nano() + duration.Nanoseconds())

	result, err := async.Await(ctx, engine.Timeout(&deadline))
	if err != nil {
		return err
	}
	if result < 0 {
		if result == -int32(syscall.ETIME) {
			return nil
		}
		return rterr.NewSystemError("rtsync.Sleep", syscall.Errno(-result))
	}
	return nil
}
