// Package report renders run metrics as text, JSON and Markdown documents.
// Every view is derived from a single Report value so the numbers agree
// across formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/luanbrandao/newswatch/internal/bench"
)

// Assessment band cutoffs.
const (
	// CPU efficiency below CPULowPct reads as I/O-bound, above CPUHighPct
	// as CPU-bound, balanced in between.
	CPULowPct  = 30.0
	CPUHighPct = 70.0

	LatencyExcellent  = 100 * time.Millisecond
	LatencyGood       = 300 * time.Millisecond
	LatencyAcceptable = 1000 * time.Millisecond

	SuccessExcellentPct  = 99.0
	SuccessGoodPct       = 95.0
	SuccessAcceptablePct = 90.0

	// MemoryThresholdBytes flags runs whose extra resident memory exceeds
	// the expected footprint of the service under load.
	MemoryThresholdBytes = 77 * 1024 * 1024
)

// TargetSummary is the per-endpoint rollup carried in the report.
type TargetSummary struct {
	Target       string  `json:"target"`
	Count        int     `json:"count"`
	Failures     int     `json:"failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// RequestDetail is one sample flattened for output.
type RequestDetail struct {
	Target     string  `json:"target"`
	DurationMs float64 `json:"duration_ms"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	SizeBytes  int64   `json:"size_bytes,omitempty"`
}

// Assessments holds the qualitative read of a run.
type Assessments struct {
	CPUProfile   string `json:"cpu_profile"`
	Latency      string `json:"latency"`
	SuccessRate  string `json:"success_rate"`
	MemoryWithin bool   `json:"memory_within_threshold"`
}

// Report is the flattened, format-independent view of one run.
type Report struct {
	Kind        string    `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`

	Users           int `json:"users,omitempty"`
	RequestsPerUser int `json:"requests_per_user,omitempty"`

	TotalDurationSec   float64 `json:"total_duration_sec"`
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	FailedRequests     int     `json:"failed_requests"`
	SuccessRatePct     float64 `json:"success_rate_pct"`
	ThroughputRPS      float64 `json:"throughput_rps"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MinLatencyMs float64 `json:"min_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`

	AvgCPUPercent    float64 `json:"avg_cpu_percent"`
	CPUTimeUsedSec   float64 `json:"cpu_time_used_sec"`
	CPUEfficiencyPct float64 `json:"cpu_efficiency_pct"`

	MemoryStartMB float64 `json:"memory_start_mb"`
	MemoryPeakMB  float64 `json:"memory_peak_mb"`
	MemoryEndMB   float64 `json:"memory_end_mb"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`

	NetworkSentKB float64 `json:"network_sent_kb"`
	NetworkRecvKB float64 `json:"network_recv_kb"`

	ArticlesFound int `json:"articles_found,omitempty"`
	ArticlesSaved int `json:"articles_saved,omitempty"`

	Targets  []TargetSummary `json:"targets,omitempty"`
	Requests []RequestDetail `json:"requests,omitempty"`

	Assessments Assessments `json:"assessments"`
}

// Build flattens frozen run metrics into a Report.
func Build(m *bench.RunMetrics) *Report {
	r := &Report{
		Kind:        string(m.Kind),
		GeneratedAt: time.Now(),

		Users:           m.Users,
		RequestsPerUser: m.RequestsPerUser,

		TotalDurationSec:   m.TotalDuration().Seconds(),
		TotalRequests:      m.TotalRequests(),
		SuccessfulRequests: m.SuccessfulRequests(),
		FailedRequests:     m.FailedRequests(),
		SuccessRatePct:     m.SuccessRate(),
		ThroughputRPS:      m.Throughput(),

		AvgLatencyMs: toMs(m.AvgLatency()),
		MinLatencyMs: toMs(m.MinLatency()),
		MaxLatencyMs: toMs(m.MaxLatency()),
		P50LatencyMs: toMs(m.Percentile(0.50)),
		P95LatencyMs: toMs(m.Percentile(0.95)),
		P99LatencyMs: toMs(m.Percentile(0.99)),

		AvgCPUPercent:    m.AvgCPUPercent(),
		CPUTimeUsedSec:   m.CPUTimeUsed(),
		CPUEfficiencyPct: m.CPUEfficiency(),

		MemoryStartMB: toMB(m.MemoryStart),
		MemoryPeakMB:  toMB(m.MemoryPeak),
		MemoryEndMB:   toMB(m.MemoryEnd),
		MemoryUsedMB:  toMB(m.MemoryUsed()),

		NetworkSentKB: float64(m.NetworkSent()) / 1024,
		NetworkRecvKB: float64(m.NetworkRecv()) / 1024,

		ArticlesFound: m.ArticlesFound,
		ArticlesSaved: m.ArticlesSaved,
	}

	byTarget := m.ByTarget()
	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, t := range targets {
		st := byTarget[t]
		r.Targets = append(r.Targets, TargetSummary{
			Target:       t,
			Count:        st.Count,
			Failures:     st.Failures,
			AvgLatencyMs: toMs(st.AvgLatency),
		})
	}

	for _, s := range m.Samples {
		r.Requests = append(r.Requests, RequestDetail{
			Target:     s.Target,
			DurationMs: toMs(s.Duration()),
			Success:    s.Success,
			Error:      s.Error,
			SizeBytes:  s.ResponseSize,
		})
	}

	r.Assessments = Assessments{
		CPUProfile:   CPUProfile(r.CPUEfficiencyPct),
		Latency:      LatencyBand(m.AvgLatency()),
		SuccessRate:  SuccessBand(r.SuccessRatePct),
		MemoryWithin: m.MemoryUsed() < MemoryThresholdBytes,
	}
	return r
}

// CPUProfile classifies a run by how much of its wall time was CPU time.
func CPUProfile(efficiencyPct float64) string {
	switch {
	case efficiencyPct > CPUHighPct:
		return "cpu-bound"
	case efficiencyPct >= CPULowPct:
		return "balanced"
	default:
		return "io-bound"
	}
}

// LatencyBand grades an average latency.
func LatencyBand(avg time.Duration) string {
	switch {
	case avg < LatencyExcellent:
		return "excellent"
	case avg < LatencyGood:
		return "good"
	case avg < LatencyAcceptable:
		return "acceptable"
	default:
		return "poor"
	}
}

// SuccessBand grades a success rate percentage.
func SuccessBand(pct float64) string {
	switch {
	case pct >= SuccessExcellentPct:
		return "excellent"
	case pct >= SuccessGoodPct:
		return "good"
	case pct >= SuccessAcceptablePct:
		return "acceptable"
	default:
		return "poor"
	}
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText renders a terminal-friendly summary.
func (r *Report) WriteText(w io.Writer) error {
	p := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	p("=== %s report ===", r.Kind)
	p("generated: %s", r.GeneratedAt.Format(time.RFC3339))
	if r.Users > 0 {
		p("users: %d  requests/user: %d", r.Users, r.RequestsPerUser)
	}
	p("")
	p("duration:     %.2fs", r.TotalDurationSec)
	p("requests:     %d (%d ok, %d failed)", r.TotalRequests, r.SuccessfulRequests, r.FailedRequests)
	p("success rate: %.1f%% (%s)", r.SuccessRatePct, r.Assessments.SuccessRate)
	p("throughput:   %.1f req/s", r.ThroughputRPS)
	p("")
	p("latency avg/min/max: %.1f / %.1f / %.1f ms (%s)", r.AvgLatencyMs, r.MinLatencyMs, r.MaxLatencyMs, r.Assessments.Latency)
	p("latency p50/p95/p99: %.1f / %.1f / %.1f ms", r.P50LatencyMs, r.P95LatencyMs, r.P99LatencyMs)
	p("")
	p("cpu avg: %.1f%%  cpu time: %.2fs  efficiency: %.1f%% (%s)", r.AvgCPUPercent, r.CPUTimeUsedSec, r.CPUEfficiencyPct, r.Assessments.CPUProfile)
	p("memory start/peak/end: %.1f / %.1f / %.1f MB (used %.1f MB, within threshold: %v)",
		r.MemoryStartMB, r.MemoryPeakMB, r.MemoryEndMB, r.MemoryUsedMB, r.Assessments.MemoryWithin)
	p("network sent/recv: %.1f / %.1f KB", r.NetworkSentKB, r.NetworkRecvKB)

	if r.ArticlesFound > 0 || r.ArticlesSaved > 0 {
		p("")
		p("articles found/saved: %d / %d", r.ArticlesFound, r.ArticlesSaved)
	}

	if len(r.Targets) > 0 {
		p("")
		p("per endpoint:")
		for _, t := range r.Targets {
			p("  %-30s %4d req  %3d failed  avg %.1f ms", t.Target, t.Count, t.Failures, t.AvgLatencyMs)
		}
	}
	return nil
}

// Save writes the JSON and Markdown views into dir with timestamped names
// and returns the two file paths.
func (r *Report) Save(dir string) (jsonPath, mdPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}
	stamp := r.GeneratedAt.Format("20060102_150405")
	base := fmt.Sprintf("%s_report_%s", r.Kind, stamp)

	jsonPath = filepath.Join(dir, base+".json")
	jf, err := os.Create(jsonPath)
	if err != nil {
		return "", "", fmt.Errorf("create json report: %w", err)
	}
	defer jf.Close()
	if err := r.WriteJSON(jf); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}

	mdPath = filepath.Join(dir, base+".md")
	mf, err := os.Create(mdPath)
	if err != nil {
		return "", "", fmt.Errorf("create markdown report: %w", err)
	}
	defer mf.Close()
	if err := r.WriteMarkdown(mf); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}
	return jsonPath, mdPath, nil
}

func toMs(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func toMB(b uint64) float64 { return float64(b) / (1024 * 1024) }
