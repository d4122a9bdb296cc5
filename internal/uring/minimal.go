//go:build linux && ringrt_minimal

// Package uring, in this file, implements a hand-rolled Ring by calling
// io_uring_setup/io_uring_enter directly rather than linking
// github.com/pawelgaczynski/giouring. It exists as a fallback build for
// environments where pulling in the real binding is undesirable; the
// default linux build uses iouring_real.go instead.
package uring

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ringrt/ringrt/internal/logging"
)

const (
	__NR_io_uring_setup = 425
	__NR_io_uring_enter = 426

	ioringOffSQRing uint64 = 0
	ioringOffCQRing uint64 = 0x8000000
	ioringOffSQEs   uint64 = 0x10000000
)

// sqe is the standard 64-byte kernel submission queue entry.
type sqe struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	length      uint32
	opcodeFlags uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFdIn  int32
	addr3       uint64
	_pad        uint64
}

// cqe is the standard 16-byte kernel completion queue entry.
type cqe struct {
	userData uint64
	res      int32
	flags    uint32
}

type sqRingOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

type cqRingOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	overflow    uint32
	cqes        uint32
	flags       uint32
	resv1       uint32
	userAddr    uint64
}

type ringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        sqRingOffsets
	cqOff        cqRingOffsets
}

// minimalRing drives the kernel ABI directly via mmap'd rings.
type minimalRing struct {
	fd     int
	params ringParams

	sqRing unsafe.Pointer
	sqEs   unsafe.Pointer
	cqRing unsafe.Pointer

	sqMask uint32
	cqMask uint32

	localTail uint32 // next free slot index, not yet published to the kernel
	seenCQE   bool
	lastCQE   uint32 // cq head index of the last PeekCQE result
}

// NewRing creates the ringrt_minimal-tagged Ring: raw io_uring_setup/
// io_uring_enter syscalls with manual ring memory mapping, used when the
// default giouring-backed build is undesirable.
func NewRing(config Config) (Ring, error) {
	return NewMinimalRing(config.Entries)
}

// NewMinimalRing creates a ring using raw io_uring_setup/io_uring_enter
// syscalls and manual ring memory mapping.
func NewMinimalRing(entries uint32) (Ring, error) {
	logger := logging.Default()
	logger.Debug("creating minimal io_uring", "entries", entries)

	params := ringParams{sqEntries: entries}

	fd, _, errno := syscall.Syscall(__NR_io_uring_setup, uintptr(entries), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}

	sqSize := params.sqOff.array + params.sqEntries*4
	cqSize := params.cqOff.cqes + params.cqEntries*uint32(unsafe.Sizeof(cqe{}))
	sqesSize := params.sqEntries * uint32(unsafe.Sizeof(sqe{}))

	sqMem, err := unix.Mmap(int(fd), int64(ioringOffSQRing), int(sqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		syscall.Close(int(fd))
		return nil, fmt.Errorf("mmap sq ring: %w", err)
	}

	cqMem, err := unix.Mmap(int(fd), int64(ioringOffCQRing), int(cqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqMem)
		syscall.Close(int(fd))
		return nil, fmt.Errorf("mmap cq ring: %w", err)
	}

	sqesMem, err := unix.Mmap(int(fd), int64(ioringOffSQEs), int(sqesSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqMem)
		unix.Munmap(cqMem)
		syscall.Close(int(fd))
		return nil, fmt.Errorf("mmap sqes: %w", err)
	}

	r := &minimalRing{
		fd:     int(fd),
		params: params,
		sqRing: unsafe.Pointer(&sqMem[0]),
		sqEs:   unsafe.Pointer(&sqesMem[0]),
		cqRing: unsafe.Pointer(&cqMem[0]),
		sqMask: params.sqOff.ringMask,
		cqMask: params.cqOff.ringMask,
	}
	logger.Info("created minimal io_uring", "entries", entries, "ring_fd", fd)
	return r, nil
}

func (r *minimalRing) sqTailPtr() *uint32 { return (*uint32)(unsafe.Add(r.sqRing, r.params.sqOff.tail)) }
func (r *minimalRing) sqHeadPtr() *uint32 { return (*uint32)(unsafe.Add(r.sqRing, r.params.sqOff.head)) }
func (r *minimalRing) sqArray() unsafe.Pointer {
	return unsafe.Add(r.sqRing, r.params.sqOff.array)
}
func (r *minimalRing) cqHeadPtr() *uint32 { return (*uint32)(unsafe.Add(r.cqRing, r.params.cqOff.head)) }
func (r *minimalRing) cqTailPtr() *uint32 { return (*uint32)(unsafe.Add(r.cqRing, r.params.cqOff.tail)) }

func (r *minimalRing) Close() error {
	return syscall.Close(r.fd)
}

// minimalSQE is a pointer into the mmap'd sqes array returned by GetSQE.
type minimalSQE struct{ e *sqe }

func (r *minimalRing) GetSQE() (SQE, error) {
	tail := *r.sqTailPtr()
	head := *r.sqHeadPtr()
	if tail-head >= r.params.sqEntries {
		return nil, ErrRingFull
	}
	idx := r.localTail & r.sqMask
	slot := (*sqe)(unsafe.Add(r.sqEs, uintptr(idx)*unsafe.Sizeof(sqe{})))
	*slot = sqe{}
	r.localTail++
	return &minimalSQE{e: slot}, nil
}

func (s *minimalSQE) PrepareOpenAt(dirfd int32, path string, flags uint32, mode uint32) {
	s.e.opcode = opOpenAt
	s.e.fd = dirfd
	pathBytes := append([]byte(path), 0)
	s.e.addr = uint64(uintptr(unsafe.Pointer(&pathBytes[0])))
	s.e.length = mode
	s.e.opcodeFlags = flags
}

func (s *minimalSQE) PrepareClose(fd int32) {
	s.e.opcode = opClose
	s.e.fd = fd
}

func (s *minimalSQE) PrepareFsync(fd int32, datasync bool) {
	s.e.opcode = opFsync
	s.e.fd = fd
	if datasync {
		s.e.opcodeFlags = fsyncDataSync
	}
}

func (s *minimalSQE) PrepareRead(fd int32, buf []byte, offset uint64) {
	s.e.opcode = opRead
	s.e.fd = fd
	if len(buf) > 0 {
		s.e.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	s.e.length = uint32(len(buf))
	s.e.off = offset
}

func (s *minimalSQE) PrepareWrite(fd int32, buf []byte, offset uint64) {
	s.e.opcode = opWrite
	s.e.fd = fd
	if len(buf) > 0 {
		s.e.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	s.e.length = uint32(len(buf))
	s.e.off = offset
}

func (s *minimalSQE) PrepareReadv(fd int32, iovecs []syscall.Iovec, offset uint64) {
	s.e.opcode = opReadv
	s.e.fd = fd
	if len(iovecs) > 0 {
		s.e.addr = uint64(uintptr(unsafe.Pointer(&iovecs[0])))
	}
	s.e.length = uint32(len(iovecs))
	s.e.off = offset
}

func (s *minimalSQE) PrepareWritev(fd int32, iovecs []syscall.Iovec, offset uint64) {
	s.e.opcode = opWritev
	s.e.fd = fd
	if len(iovecs) > 0 {
		s.e.addr = uint64(uintptr(unsafe.Pointer(&iovecs[0])))
	}
	s.e.length = uint32(len(iovecs))
	s.e.off = offset
}

func (s *minimalSQE) PrepareSocket(domain, typ, proto int32) {
	s.e.opcode = opSocket
	s.e.fd = domain
	s.e.off = uint64(typ)
	s.e.length = uint32(proto)
}

func (s *minimalSQE) PrepareAccept(fd int32, addr unsafe.Pointer, addrlen *uint32, flags uint32) {
	s.e.opcode = opAccept
	s.e.fd = fd
	s.e.addr = uint64(uintptr(addr))
	s.e.off = uint64(uintptr(unsafe.Pointer(addrlen)))
	s.e.opcodeFlags = flags
}

func (s *minimalSQE) PrepareConnect(fd int32, addr unsafe.Pointer, addrlen uint32) {
	s.e.opcode = opConnect
	s.e.fd = fd
	s.e.addr = uint64(uintptr(addr))
	s.e.off = uint64(addrlen)
}

func (s *minimalSQE) PrepareSend(fd int32, buf []byte, flags uint32) {
	s.e.opcode = opSend
	s.e.fd = fd
	if len(buf) > 0 {
		s.e.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	s.e.length = uint32(len(buf))
	s.e.opcodeFlags = flags
}

func (s *minimalSQE) PrepareRecv(fd int32, buf []byte, flags uint32) {
	s.e.opcode = opRecv
	s.e.fd = fd
	if len(buf) > 0 {
		s.e.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	s.e.length = uint32(len(buf))
	s.e.opcodeFlags = flags
}

func (s *minimalSQE) PrepareTimeout(ts *syscall.Timespec, flags uint32) {
	s.e.opcode = opTimeout
	s.e.addr = uint64(uintptr(unsafe.Pointer(ts)))
	s.e.length = 1
	s.e.opcodeFlags = flags | timeoutAbs
}

func (s *minimalSQE) SetUserData(userData uint64) {
	s.e.userData = userData
}

// Submit publishes every SQE prepared since the last publish and performs
// one io_uring_enter syscall, or none if nothing was prepared.
func (r *minimalRing) Submit() (uint32, error) {
	return r.enter(0)
}

func (r *minimalRing) SubmitAndWait(waitNr uint32) (uint32, error) {
	return r.enter(waitNr)
}

func (r *minimalRing) enter(waitNr uint32) (uint32, error) {
	published := *r.sqTailPtr()
	toSubmit := r.localTail - published
	if toSubmit == 0 && waitNr == 0 {
		return 0, nil
	}

	arr := r.sqArray()
	for i := uint32(0); i < toSubmit; i++ {
		idx := (published + i) & r.sqMask
		*(*uint32)(unsafe.Add(arr, uintptr(4*idx))) = idx
	}
	Sfence()
	*r.sqTailPtr() = r.localTail
	Mfence()

	var flags uint32
	if waitNr > 0 {
		flags = enterGetEvents
	}

	r1, _, errno := syscall.Syscall6(__NR_io_uring_enter, uintptr(r.fd), uintptr(toSubmit), uintptr(waitNr), uintptr(flags), 0, 0)
	if errno != 0 {
		return 0, fmt.Errorf("io_uring_enter: %w", errno)
	}
	return uint32(r1), nil
}

func (r *minimalRing) PeekCQE() (CQE, bool) {
	head := *r.cqHeadPtr()
	tail := *r.cqTailPtr()
	if head == tail {
		return CQE{}, false
	}
	idx := head & r.cqMask
	slot := (*cqe)(unsafe.Add(r.cqRing, uintptr(r.params.cqOff.cqes)+uintptr(idx)*unsafe.Sizeof(cqe{})))
	r.lastCQE = head
	r.seenCQE = true
	return CQE{UserData: slot.userData, Res: slot.res, Flags: slot.flags}, true
}

func (r *minimalRing) CQESeen() {
	if !r.seenCQE {
		return
	}
	*r.cqHeadPtr() = r.lastCQE + 1
	r.seenCQE = false
}
