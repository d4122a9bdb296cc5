// Package reactor implements the single-threaded scheduler: a staged task
// queue driven to completion each iteration, an id-ordered routine map
// polled every iteration, and the has-progress flag the I/O engine
// consults to decide whether it may block.
package reactor

import (
	"container/list"
	"sort"

	"github.com/ringrt/ringrt/guard"
	"github.com/ringrt/ringrt/internal/interfaces"
	"github.com/ringrt/ringrt/internal/rterr"
)

type noopObserver struct{}

func (noopObserver) ObserveSubmit(uint32)         {}
func (noopObserver) ObserveComplete(uint64, bool) {}
func (noopObserver) ObserveBlock(uint64)          {}
func (noopObserver) ObserveTaskQueueDepth(int)    {}
func (noopObserver) ObserveRoutineCount(int)      {}

var active *Reactor

// Reactor owns the task list and routine map and drives one scheduler
// quantum per Run call. There is exactly one live Reactor per process;
// New panics if one already exists.
type Reactor struct {
	tasks    *list.List // of Executable
	newTasks []Executable

	routines      map[uint16]Executable
	hasProgress   bool
	observer      interfaces.Observer
}

// New constructs the process's single Reactor. observer may be nil, in
// which case metrics observation is a no-op.
func New(observer interfaces.Observer) *Reactor {
	if active != nil {
		rterr.Fatal("reactor.New", "a reactor instance already exists")
	}
	if observer == nil {
		observer = noopObserver{}
	}
	r := &Reactor{
		tasks:    list.New(),
		routines: make(map[uint16]Executable),
		observer: observer,
	}
	active = r
	return r
}

// Instance returns the process's active Reactor, panicking (fatal) if
// none has been constructed yet.
func Instance() *Reactor {
	if active == nil {
		rterr.Fatal("reactor.Instance", "no active reactor")
	}
	return active
}

// Close tears down the reactor. It is fatal to close a reactor that still
// holds queued tasks or registered routines — callers must drain and
// release those first, mirroring the source's destructor assertions.
func (r *Reactor) Close() {
	if r.tasks.Len() != 0 || len(r.routines) != 0 {
		rterr.Fatal("reactor.Close", "reactor destroyed with live tasks or routines")
	}
	if active == r {
		active = nil
	}
}

// AddTask stages an Executable for the next iteration's task list; tasks
// added during Run are guaranteed not to run before the following Run
// call, preventing reentrant mutation of the stable task list.
func (r *Reactor) AddTask(e Executable) {
	r.newTasks = append(r.newTasks, e)
}

// AddRoutine registers a routine under a freshly allocated id (linear
// probe starting from the current routine count, wrapping through the
// full 16-bit id space) and returns a guard that deregisters it on
// release. It is fatal to saturate the full id space.
func (r *Reactor) AddRoutine(e Executable) guard.Guard {
	id := uint16(len(r.routines))
	start := id
	for {
		if _, exists := r.routines[id]; !exists {
			break
		}
		id++
		if id == start {
			rterr.Fatal("reactor.AddRoutine", "routine id space exhausted")
		}
	}
	r.routines[id] = e
	return guard.New(func() { delete(r.routines, id) })
}

// Run executes one scheduler quantum: splice staged tasks into the stable
// list, try every task once (removing those that complete), record
// whether any task completed, then try every routine once in ascending
// id order.
func (r *Reactor) Run() {
	for _, t := range r.newTasks {
		r.tasks.PushBack(t)
	}
	r.newTasks = r.newTasks[:0]

	progress := false
	for e := r.tasks.Front(); e != nil; {
		next := e.Next()
		if e.Value.(Executable).TryExecute() {
			r.tasks.Remove(e)
			progress = true
		}
		e = next
	}
	r.hasProgress = progress
	r.observer.ObserveTaskQueueDepth(r.tasks.Len())

	if len(r.routines) > 0 {
		ids := make([]uint16, 0, len(r.routines))
		for id := range r.routines {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			r.routines[id].TryExecute()
		}
	}
	r.observer.ObserveRoutineCount(len(r.routines))
}

// HasProgress reports whether the most recent Run completed at least one
// task; the I/O engine consults this to decide whether it may block.
func (r *Reactor) HasProgress() bool {
	return r.hasProgress
}
