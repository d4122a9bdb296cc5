// Package metrics tracks reactor/engine operational statistics: submit
// and completion counters, block-wait latency, and the reactor's queue
// depths, with a logarithmic latency histogram for percentile estimates.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/ringrt/ringrt/internal/interfaces"
)

// LatencyBuckets are the histogram bucket ceilings in nanoseconds,
// logarithmically spaced from 1us to 10s.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for one runtime
// instance.
type Metrics struct {
	SubmitCount   atomic.Uint64 // total SQEs submitted to the kernel
	CompleteCount atomic.Uint64 // total CQEs reaped
	CompleteErrs  atomic.Uint64 // CQEs reaped with a negative result

	BlockCount    atomic.Uint64 // number of times complete_ready blocked
	BlockLatency  atomic.Uint64 // cumulative nanoseconds spent blocked

	TaskQueueDepthTotal atomic.Uint64
	TaskQueueDepthCount atomic.Uint64
	MaxTaskQueueDepth   atomic.Uint64

	RoutineCountTotal atomic.Uint64
	RoutineCountCount atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// New creates a fresh metrics instance, recording the current time as its
// start time.
func New() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveSubmit records a batch of SQEs accepted by the kernel.
func (m *Metrics) ObserveSubmit(count uint32) {
	m.SubmitCount.Add(uint64(count))
}

// ObserveComplete records one reaped completion and its latency.
func (m *Metrics) ObserveComplete(latencyNs uint64, success bool) {
	m.CompleteCount.Add(1)
	if !success {
		m.CompleteErrs.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveBlock records one blocking wait inside complete_ready (the
// single block rule's only blocking point).
func (m *Metrics) ObserveBlock(latencyNs uint64) {
	m.BlockCount.Add(1)
	m.BlockLatency.Add(latencyNs)
}

// ObserveTaskQueueDepth records the reactor's task list length for one
// iteration.
func (m *Metrics) ObserveTaskQueueDepth(depth int) {
	d := uint64(depth)
	m.TaskQueueDepthTotal.Add(d)
	m.TaskQueueDepthCount.Add(1)
	for {
		cur := m.MaxTaskQueueDepth.Load()
		if d <= cur || m.MaxTaskQueueDepth.CompareAndSwap(cur, d) {
			break
		}
	}
}

// ObserveRoutineCount records the reactor's routine map size for one
// iteration.
func (m *Metrics) ObserveRoutineCount(count int) {
	m.RoutineCountTotal.Add(uint64(count))
	m.RoutineCountCount.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the runtime as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// Snapshot is a point-in-time view of accumulated metrics.
type Snapshot struct {
	SubmitCount   uint64
	CompleteCount uint64
	CompleteErrs  uint64

	BlockCount       uint64
	AvgBlockLatency  uint64
	AvgTaskQueueDepth float64
	MaxTaskQueueDepth uint64
	AvgRoutineCount   float64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot computes a point-in-time snapshot, including derived averages
// and latency percentiles.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		SubmitCount:       m.SubmitCount.Load(),
		CompleteCount:     m.CompleteCount.Load(),
		CompleteErrs:      m.CompleteErrs.Load(),
		BlockCount:        m.BlockCount.Load(),
		MaxTaskQueueDepth: m.MaxTaskQueueDepth.Load(),
	}

	if blockCount := snap.BlockCount; blockCount > 0 {
		snap.AvgBlockLatency = m.BlockLatency.Load() / blockCount
	}

	if tqCount := m.TaskQueueDepthCount.Load(); tqCount > 0 {
		snap.AvgTaskQueueDepth = float64(m.TaskQueueDepthTotal.Load()) / float64(tqCount)
	}

	if rCount := m.RoutineCountCount.Load(); rCount > 0 {
		snap.AvgRoutineCount = float64(m.RoutineCountTotal.Load()) / float64(rCount)
	}

	opCount := m.OpCount.Load()
	totalLatencyNs := m.TotalLatencyNs.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.percentile(0.50)
		snap.LatencyP99Ns = m.percentile(0.99)
		snap.LatencyP999Ns = m.percentile(0.999)
	}

	return snap
}

// percentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) percentile(p float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	target := uint64(float64(totalOps) * p)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= target {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(target-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters, useful for test isolation.
func (m *Metrics) Reset() {
	m.SubmitCount.Store(0)
	m.CompleteCount.Store(0)
	m.CompleteErrs.Store(0)
	m.BlockCount.Store(0)
	m.BlockLatency.Store(0)
	m.TaskQueueDepthTotal.Store(0)
	m.TaskQueueDepthCount.Store(0)
	m.MaxTaskQueueDepth.Store(0)
	m.RoutineCountTotal.Store(0)
	m.RoutineCountCount.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOp is a no-op Observer, used when a caller doesn't want metrics.
type NoOp struct{}

func (NoOp) ObserveSubmit(uint32)         {}
func (NoOp) ObserveComplete(uint64, bool) {}
func (NoOp) ObserveBlock(uint64)          {}
func (NoOp) ObserveTaskQueueDepth(int)    {}
func (NoOp) ObserveRoutineCount(int)      {}

var _ interfaces.Observer = (*Metrics)(nil)
var _ interfaces.Observer = NoOp{}
