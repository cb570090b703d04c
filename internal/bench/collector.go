package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/logging"
)

// DefaultSampleInterval is how often the background sampler polls process
// CPU utilization.
const DefaultSampleInterval = 100 * time.Millisecond

type collectorState int

const (
	stateIdle collectorState = iota
	stateCollecting
	stateFinalized
)

// ErrNotCollecting is returned by Stop when Start was never called or the
// collector was already stopped.
var ErrNotCollecting = errors.New("bench: collector is not collecting")

// Collector owns one RunMetrics aggregate through its lifecycle:
// idle -> collecting -> finalized. Record is safe for concurrent use while
// collecting; Stop is a rendezvous with the background sampler, after which
// the aggregate is frozen.
type Collector struct {
	mu       sync.Mutex
	state    collectorState
	stopping bool
	metrics  *RunMetrics
	interval time.Duration
	proc     *process.Process
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewCollector builds a Collector for the given run kind. interval <= 0
// falls back to DefaultSampleInterval.
func NewCollector(kind RunKind, interval time.Duration, logger *zap.Logger) *Collector {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Collector{
		metrics:  &RunMetrics{Kind: kind},
		interval: interval,
		logger:   logging.OrNop(logger),
	}
}

// Metrics exposes the aggregate for owners to set run configuration and
// outcome fields (users, articles found/saved) before or during the run.
func (c *Collector) Metrics() *RunMetrics { return c.metrics }

// Start captures baseline snapshots and launches the background CPU sampler.
func (c *Collector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle {
		return fmt.Errorf("bench: collector already started")
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("open process handle: %w", err)
	}
	c.proc = proc

	c.metrics.StartedAt = time.Now()
	if mem, err := proc.MemoryInfo(); err == nil {
		c.metrics.MemoryStart = mem.RSS
		c.metrics.MemoryPeak = mem.RSS
	}
	if times, err := proc.Times(); err == nil {
		c.metrics.CPUStart = &CPUTimes{User: times.User, System: times.System}
	}
	if counters, err := gopsnet.IOCounters(false); err == nil && len(counters) > 0 {
		c.metrics.NetStart = &NetCounters{
			BytesSent: counters[0].BytesSent,
			BytesRecv: counters[0].BytesRecv,
		}
	} else if err != nil {
		// Network counters are best effort; report views omit the section.
		c.logger.Debug("network counters unavailable", zap.Error(err))
	}

	// Prime the CPU percent baseline so sampler readings are deltas.
	if _, err := proc.Percent(0); err != nil {
		c.logger.Debug("cpu percent unavailable", zap.Error(err))
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.state = stateCollecting
	go c.sample()
	return nil
}

// sample appends one CPU utilization reading per interval until stopped.
// Sample count is bounded by duration/interval plus or minus one.
func (c *Collector) sample() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			pct, err := c.proc.Percent(0)
			if err != nil {
				continue
			}
			mem, _ := c.proc.MemoryInfo()
			c.mu.Lock()
			if c.state == stateCollecting {
				c.metrics.CPUPercentSamples = append(c.metrics.CPUPercentSamples, pct)
				if mem != nil && mem.RSS > c.metrics.MemoryPeak {
					c.metrics.MemoryPeak = mem.RSS
				}
			}
			c.mu.Unlock()
		}
	}
}

// Record appends a request sample. Samples arriving outside the collecting
// phase are dropped.
func (c *Collector) Record(sample RequestSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateCollecting {
		return
	}
	c.metrics.Samples = append(c.metrics.Samples, sample)
}

// Stop signals the sampler, waits for it to exit, captures end snapshots,
// and freezes the aggregate. ctx bounds the wait for the sampler; a Stop
// that times out waiting may be retried.
func (c *Collector) Stop(ctx context.Context) (*RunMetrics, error) {
	c.mu.Lock()
	if c.state != stateCollecting {
		c.mu.Unlock()
		return nil, ErrNotCollecting
	}
	// The stop channel closes exactly once even when Stop is retried after
	// a canceled wait, or called from multiple goroutines.
	if !c.stopping {
		c.stopping = true
		close(c.stop)
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("await sampler exit: %w", err)
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, fmt.Errorf("await sampler exit: %w", ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateFinalized {
		// A concurrent Stop finished the finalization first.
		return c.metrics, nil
	}
	c.metrics.EndedAt = time.Now()
	if mem, err := c.proc.MemoryInfo(); err == nil {
		c.metrics.MemoryEnd = mem.RSS
		if mem.RSS > c.metrics.MemoryPeak {
			c.metrics.MemoryPeak = mem.RSS
		}
	}
	if times, err := c.proc.Times(); err == nil {
		c.metrics.CPUEnd = &CPUTimes{User: times.User, System: times.System}
	}
	if counters, err := gopsnet.IOCounters(false); err == nil && len(counters) > 0 {
		c.metrics.NetEnd = &NetCounters{
			BytesSent: counters[0].BytesSent,
			BytesRecv: counters[0].BytesRecv,
		}
	}
	c.state = stateFinalized
	return c.metrics, nil
}
