package stats

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const maxLatencySamples = 50000

// Snapshot represents a point-in-time view of a traffic run.
type Snapshot struct {
	Requests       uint64
	Failures       uint64
	Bursts         uint64
	Packets        uint64
	TotalBytesSent uint64
	TotalBytesRecv uint64
	Duration       time.Duration

	// Wait statistics: count, cumulative and most recent.
	Waits     uint64
	TotalWait time.Duration
	LastWait  time.Duration

	LatencyP50 time.Duration
	LatencyP99 time.Duration
	LatencyAvg time.Duration
	LatencyMax time.Duration
}

// MeanWait returns the average of all recorded waits.
func (s Snapshot) MeanWait() time.Duration {
	if s.Waits == 0 {
		return 0
	}
	return s.TotalWait / time.Duration(s.Waits)
}

// Collector aggregates run metrics in a thread-safe way.
type Collector struct {
	startTime time.Time
	metrics   *Metrics

	requests       atomic.Uint64
	failures       atomic.Uint64
	bursts         atomic.Uint64
	packets        atomic.Uint64
	totalBytesSent atomic.Uint64
	totalBytesRecv atomic.Uint64
	waits          atomic.Uint64
	totalWait      atomic.Duration
	lastWait       atomic.Duration

	mu             sync.Mutex
	latencySamples []time.Duration
}

// NewCollector creates a new Collector. metrics may be nil.
func NewCollector(metrics *Metrics) *Collector {
	return &Collector{
		startTime:      time.Now(),
		metrics:        metrics,
		latencySamples: make([]time.Duration, 0, 64),
	}
}

// RecordWait records one wait drawn from the schedule.
func (c *Collector) RecordWait(d time.Duration) {
	c.waits.Inc()
	c.totalWait.Add(d)
	c.lastWait.Store(d)
	if c.metrics != nil {
		c.metrics.waitSeconds.Observe(d.Seconds())
	}
}

// RecordRequest records a completed HTTP exchange, whatever its status code.
func (c *Collector) RecordRequest(method string, status int, latency time.Duration, bytesSent, bytesRecv uint64) {
	c.requests.Inc()
	c.totalBytesSent.Add(bytesSent)
	c.totalBytesRecv.Add(bytesRecv)
	if c.metrics != nil {
		c.metrics.observeRequest(method, status, latency)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.latencySamples) < maxLatencySamples {
		c.latencySamples = append(c.latencySamples, latency)
	}
}

// RecordFailure records a request that never produced a response.
func (c *Collector) RecordFailure(reason string) {
	c.failures.Inc()
	if c.metrics != nil {
		c.metrics.failures.WithLabelValues(reason).Inc()
	}
}

// RecordBurst records a completed burst of size packets.
func (c *Collector) RecordBurst(size int) {
	c.bursts.Inc()
	c.packets.Add(uint64(size))
	if c.metrics != nil {
		c.metrics.bursts.Inc()
		c.metrics.packets.Add(float64(size))
	}
}

func percentileDuration(s []time.Duration, p float64) time.Duration {
	if len(s) == 0 {
		return 0
	}
	idx := int(math.Round(p / 100 * float64(len(s)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s) {
		idx = len(s) - 1
	}
	return s[idx]
}

func avgDuration(s []time.Duration) time.Duration {
	if len(s) == 0 {
		return 0
	}
	var sum int64
	for _, d := range s {
		sum += d.Nanoseconds()
	}
	return time.Duration(sum / int64(len(s)))
}

// Snapshot returns the current counters and latency statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	latencySamples := make([]time.Duration, len(c.latencySamples))
	copy(latencySamples, c.latencySamples)
	c.mu.Unlock()

	snap := Snapshot{
		Requests:       c.requests.Load(),
		Failures:       c.failures.Load(),
		Bursts:         c.bursts.Load(),
		Packets:        c.packets.Load(),
		TotalBytesSent: c.totalBytesSent.Load(),
		TotalBytesRecv: c.totalBytesRecv.Load(),
		Duration:       time.Since(c.startTime),
		Waits:          c.waits.Load(),
		TotalWait:      c.totalWait.Load(),
		LastWait:       c.lastWait.Load(),
	}

	if len(latencySamples) > 0 {
		sort.Slice(latencySamples, func(i, j int) bool { return latencySamples[i] < latencySamples[j] })
		snap.LatencyP50 = percentileDuration(latencySamples, 50)
		snap.LatencyP99 = percentileDuration(latencySamples, 99)
		snap.LatencyAvg = avgDuration(latencySamples)
		snap.LatencyMax = latencySamples[len(latencySamples)-1]
	}

	return snap
}
