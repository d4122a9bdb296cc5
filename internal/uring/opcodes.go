package uring

// Kernel io_uring opcodes this engine emits (linux/io_uring.h). Only the
// subset spec.md §4.4 needs is listed; the rest of the kernel's opcode
// space is irrelevant to this engine.
const (
	opReadv   uint8 = 1
	opWritev  uint8 = 2
	opFsync   uint8 = 3
	opTimeout uint8 = 11
	opAccept  uint8 = 13
	opConnect uint8 = 16
	opOpenAt  uint8 = 18
	opClose   uint8 = 19
	opRead    uint8 = 22
	opWrite   uint8 = 23
	opSend    uint8 = 26
	opRecv    uint8 = 27
	opSocket  uint8 = 45
)

// Opcode flag bits used by the op set above.
const (
	fsyncDataSync    uint32 = 1 << 0 // IORING_FSYNC_DATASYNC: fdatasync semantics
	timeoutAbs       uint32 = 1 << 0 // IORING_TIMEOUT_ABS
	enterGetEvents   uint32 = 1 << 0 // IORING_ENTER_GETEVENTS
	setupSQE128      uint32 = 1 << 10
	setupCQE32       uint32 = 1 << 11
	sqRingNeedWakeup uint32 = 1 << 0 // IORING_SQ_NEED_WAKEUP (SQPOLL only, unused)
)
