package ioengine

import (
	"syscall"

	"github.com/ringrt/ringrt/future"
	"golang.org/x/sys/unix"
)

// Operations with no native completion-queue form are wrapped as
// already-ready futures carrying the negated errno, so callers uniformly
// await them alongside ring-backed operations.

// Bind binds fd to sa.
func (e *Engine) Bind(fd int32, sa unix.Sockaddr) future.Future[int32] {
	return posixResult(unix.Bind(int(fd), sa))
}

// Listen marks fd as a listening socket with the given backlog.
func (e *Engine) Listen(fd int32, backlog int) future.Future[int32] {
	return posixResult(unix.Listen(int(fd), backlog))
}

// SetSockoptInt sets an integer socket option.
func (e *Engine) SetSockoptInt(fd int32, level, name, value int) future.Future[int32] {
	return posixResult(unix.SetsockoptInt(int(fd), level, name, value))
}

func posixResult(err error) future.Future[int32] {
	if err == nil {
		return future.MakeReadyFuture[int32](0)
	}
	if errno, ok := err.(syscall.Errno); ok {
		return future.MakeReadyFuture(int32(-int32(errno)))
	}
	return future.MakeReadyFuture(int32(-int32(syscall.EIO)))
}
