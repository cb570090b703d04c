package bench

import (
	"sort"
	"time"
)

// RunMetrics is the aggregate for one run. While the owning Collector is
// collecting, samples and counters may only be appended; once Stop freezes
// the aggregate it is read-only and derived statistics are computed from the
// frozen sample set on each call.
type RunMetrics struct {
	Kind RunKind `json:"kind"`

	// Load test configuration echo; zero for scrape runs.
	Users           int `json:"users,omitempty"`
	RequestsPerUser int `json:"requests_per_user,omitempty"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Samples           []RequestSample `json:"samples"`
	CPUPercentSamples []float64       `json:"cpu_percent_samples"`

	// Process RSS in bytes.
	MemoryStart uint64 `json:"memory_start"`
	MemoryPeak  uint64 `json:"memory_peak"`
	MemoryEnd   uint64 `json:"memory_end"`

	CPUStart *CPUTimes `json:"cpu_start,omitempty"`
	CPUEnd   *CPUTimes `json:"cpu_end,omitempty"`

	NetStart *NetCounters `json:"net_start,omitempty"`
	NetEnd   *NetCounters `json:"net_end,omitempty"`

	// Scrape pipeline outcome; zero for load test runs.
	ArticlesFound int `json:"articles_found,omitempty"`
	ArticlesSaved int `json:"articles_saved,omitempty"`
}

// TotalDuration is the wall time between Start and Stop.
func (m *RunMetrics) TotalDuration() time.Duration {
	return m.EndedAt.Sub(m.StartedAt)
}

// TotalRequests is the number of recorded samples.
func (m *RunMetrics) TotalRequests() int { return len(m.Samples) }

// SuccessfulRequests counts samples flagged successful.
func (m *RunMetrics) SuccessfulRequests() int {
	n := 0
	for _, s := range m.Samples {
		if s.Success {
			n++
		}
	}
	return n
}

// FailedRequests counts samples flagged failed.
func (m *RunMetrics) FailedRequests() int {
	return len(m.Samples) - m.SuccessfulRequests()
}

// SuccessRate is the percentage of successful samples, 0 when empty.
func (m *RunMetrics) SuccessRate() float64 {
	if len(m.Samples) == 0 {
		return 0
	}
	return float64(m.SuccessfulRequests()) / float64(len(m.Samples)) * 100
}

// Throughput is recorded samples per second of wall time.
func (m *RunMetrics) Throughput() float64 {
	d := m.TotalDuration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(len(m.Samples)) / d
}

// AvgLatency is the mean sample duration, 0 when empty.
func (m *RunMetrics) AvgLatency() time.Duration {
	if len(m.Samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range m.Samples {
		sum += s.Duration()
	}
	return sum / time.Duration(len(m.Samples))
}

// MinLatency is the shortest sample duration, 0 when empty.
func (m *RunMetrics) MinLatency() time.Duration {
	if len(m.Samples) == 0 {
		return 0
	}
	min := m.Samples[0].Duration()
	for _, s := range m.Samples[1:] {
		if d := s.Duration(); d < min {
			min = d
		}
	}
	return min
}

// MaxLatency is the longest sample duration, 0 when empty.
func (m *RunMetrics) MaxLatency() time.Duration {
	var max time.Duration
	for _, s := range m.Samples {
		if d := s.Duration(); d > max {
			max = d
		}
	}
	return max
}

// Percentile computes a nearest-rank percentile over the sample durations:
// sort ascending, index floor(N*p), clamped to the last element. With a
// single sample every percentile equals that sample. p is a fraction in
// [0, 1), e.g. 0.95.
func (m *RunMetrics) Percentile(p float64) time.Duration {
	n := len(m.Samples)
	if n == 0 {
		return 0
	}
	durations := make([]time.Duration, n)
	for i, s := range m.Samples {
		durations[i] = s.Duration()
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return durations[idx]
}

// AvgCPUPercent averages the background sampler's CPU readings.
func (m *RunMetrics) AvgCPUPercent() float64 {
	if len(m.CPUPercentSamples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.CPUPercentSamples {
		sum += v
	}
	return sum / float64(len(m.CPUPercentSamples))
}

// CPUTimeUsed is the process CPU seconds consumed during the run, 0 when
// snapshots are missing.
func (m *RunMetrics) CPUTimeUsed() float64 {
	if m.CPUStart == nil || m.CPUEnd == nil {
		return 0
	}
	return m.CPUEnd.Total() - m.CPUStart.Total()
}

// CPUEfficiency is CPU time used as a percentage of wall time. Below 30 the
// run is I/O bound, above 70 CPU bound.
func (m *RunMetrics) CPUEfficiency() float64 {
	d := m.TotalDuration().Seconds()
	if d <= 0 {
		return 0
	}
	return m.CPUTimeUsed() / d * 100
}

// MemoryUsed is peak RSS growth over the run in bytes.
func (m *RunMetrics) MemoryUsed() uint64 {
	if m.MemoryPeak < m.MemoryStart {
		return 0
	}
	return m.MemoryPeak - m.MemoryStart
}

// NetworkSent is bytes sent during the run, 0 when counters are missing.
func (m *RunMetrics) NetworkSent() uint64 {
	if m.NetStart == nil || m.NetEnd == nil || m.NetEnd.BytesSent < m.NetStart.BytesSent {
		return 0
	}
	return m.NetEnd.BytesSent - m.NetStart.BytesSent
}

// NetworkRecv is bytes received during the run, 0 when counters are missing.
func (m *RunMetrics) NetworkRecv() uint64 {
	if m.NetStart == nil || m.NetEnd == nil || m.NetEnd.BytesRecv < m.NetStart.BytesRecv {
		return 0
	}
	return m.NetEnd.BytesRecv - m.NetStart.BytesRecv
}

// TargetStats is a per-endpoint rollup used by load test reports.
type TargetStats struct {
	Count      int           `json:"count"`
	Failures   int           `json:"failures"`
	AvgLatency time.Duration `json:"-"`
}

// ByTarget groups samples per target identifier, preserving nothing about
// order; callers sort the keys for stable output.
func (m *RunMetrics) ByTarget() map[string]TargetStats {
	out := make(map[string]TargetStats)
	sums := make(map[string]time.Duration)
	for _, s := range m.Samples {
		st := out[s.Target]
		st.Count++
		if !s.Success {
			st.Failures++
		}
		sums[s.Target] += s.Duration()
		out[s.Target] = st
	}
	for target, st := range out {
		st.AvgLatency = sums[target] / time.Duration(st.Count)
		out[target] = st
	}
	return out
}
