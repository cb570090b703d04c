// Package bench collects run-level performance metrics for scrape benchmarks
// and API load tests: per-request samples, process resource snapshots, and a
// background CPU sampler tied to the collector lifecycle.
package bench

import "time"

// RunKind distinguishes the two aggregate variants.
type RunKind string

const (
	// RunScrape is a single instrumented scrape pipeline run.
	RunScrape RunKind = "scrape"
	// RunLoadTest is a concurrent-user API load test run.
	RunLoadTest RunKind = "loadtest"
)

// RequestSample is one observed network call. Immutable once recorded.
type RequestSample struct {
	Target       string    `json:"target"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	ResponseSize int64     `json:"response_size,omitempty"`
}

// Duration is the elapsed time of the call.
func (s RequestSample) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Recorder accepts request samples. Implemented by Collector; components
// that instrument their network calls depend on this interface only.
type Recorder interface {
	Record(sample RequestSample)
}

// NopRecorder discards samples. Used when a component runs outside a
// measured context.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(RequestSample) {}

// CPUTimes is a process CPU time snapshot in seconds.
type CPUTimes struct {
	User   float64 `json:"user"`
	System float64 `json:"system"`
}

// Total is user plus system time.
func (t CPUTimes) Total() float64 { return t.User + t.System }

// NetCounters is a host network I/O snapshot in bytes.
type NetCounters struct {
	BytesSent uint64 `json:"bytes_sent"`
	BytesRecv uint64 `json:"bytes_recv"`
}
