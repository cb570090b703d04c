package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
)

// WriteMarkdown renders the report as a GitHub-flavored Markdown document.
func (r *Report) WriteMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)

	r.writeHeader(md)
	r.writeSummary(md)
	r.writeResources(md)
	r.writeTargets(md)
	r.writeFailures(md)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by newswatch*")
	return md.Build()
}

func (r *Report) writeHeader(md *markdown.Markdown) {
	switch r.Kind {
	case "loadtest":
		md.H1("Load Test Report")
	default:
		md.H1("Scrape Benchmark Report")
	}
	md.PlainText("")

	rows := [][]string{
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", fmt.Sprintf("%.2fs", r.TotalDurationSec)},
	}
	if r.Users > 0 {
		rows = append(rows,
			[]string{"Users", strconv.Itoa(r.Users)},
			[]string{"Requests per user", strconv.Itoa(r.RequestsPerUser)},
		)
	}
	if r.ArticlesFound > 0 || r.ArticlesSaved > 0 {
		rows = append(rows,
			[]string{"Articles found", strconv.Itoa(r.ArticlesFound)},
			[]string{"Articles saved", strconv.Itoa(r.ArticlesSaved)},
		)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (r *Report) writeSummary(md *markdown.Markdown) {
	md.H2("Results")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value", "Assessment"},
		Rows: [][]string{
			{"Requests", strconv.Itoa(r.TotalRequests), ""},
			{"Successful", strconv.Itoa(r.SuccessfulRequests), ""},
			{"Failed", strconv.Itoa(r.FailedRequests), ""},
			{"Success rate", fmt.Sprintf("%.1f%%", r.SuccessRatePct), r.Assessments.SuccessRate},
			{"Throughput", fmt.Sprintf("%.1f req/s", r.ThroughputRPS), ""},
			{"Avg latency", fmt.Sprintf("%.1f ms", r.AvgLatencyMs), r.Assessments.Latency},
			{"Min latency", fmt.Sprintf("%.1f ms", r.MinLatencyMs), ""},
			{"Max latency", fmt.Sprintf("%.1f ms", r.MaxLatencyMs), ""},
			{"p50", fmt.Sprintf("%.1f ms", r.P50LatencyMs), ""},
			{"p95", fmt.Sprintf("%.1f ms", r.P95LatencyMs), ""},
			{"p99", fmt.Sprintf("%.1f ms", r.P99LatencyMs), ""},
		},
	})
	md.PlainText("")

	switch r.Assessments.SuccessRate {
	case "poor":
		md.Cautionf("Success rate %.1f%% is below the acceptable band.", r.SuccessRatePct)
	case "acceptable":
		md.Warningf("Success rate %.1f%% is acceptable but below target.", r.SuccessRatePct)
	default:
		md.Tipf("Success rate %.1f%% meets the target band.", r.SuccessRatePct)
	}
	md.PlainText("")
}

func (r *Report) writeResources(md *markdown.Markdown) {
	md.H2("Resources")
	md.PlainText("")

	memNote := "within threshold"
	if !r.Assessments.MemoryWithin {
		memNote = fmt.Sprintf("exceeds %d MB threshold", MemoryThresholdBytes/(1024*1024))
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value", "Assessment"},
		Rows: [][]string{
			{"Avg CPU", fmt.Sprintf("%.1f%%", r.AvgCPUPercent), ""},
			{"CPU time", fmt.Sprintf("%.2fs", r.CPUTimeUsedSec), ""},
			{"CPU efficiency", fmt.Sprintf("%.1f%%", r.CPUEfficiencyPct), r.Assessments.CPUProfile},
			{"Memory start", fmt.Sprintf("%.1f MB", r.MemoryStartMB), ""},
			{"Memory peak", fmt.Sprintf("%.1f MB", r.MemoryPeakMB), ""},
			{"Memory end", fmt.Sprintf("%.1f MB", r.MemoryEndMB), ""},
			{"Memory used", fmt.Sprintf("%.1f MB", r.MemoryUsedMB), memNote},
			{"Network sent", fmt.Sprintf("%.1f KB", r.NetworkSentKB), ""},
			{"Network received", fmt.Sprintf("%.1f KB", r.NetworkRecvKB), ""},
		},
	})
	md.PlainText("")
}

func (r *Report) writeTargets(md *markdown.Markdown) {
	if len(r.Targets) == 0 {
		return
	}
	md.H2("Endpoints")
	md.PlainText("")

	rows := make([][]string, len(r.Targets))
	for i, t := range r.Targets {
		rows[i] = []string{
			t.Target,
			strconv.Itoa(t.Count),
			strconv.Itoa(t.Failures),
			fmt.Sprintf("%.1f ms", t.AvgLatencyMs),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Endpoint", "Requests", "Failures", "Avg latency"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (r *Report) writeFailures(md *markdown.Markdown) {
	var failed []RequestDetail
	for _, d := range r.Requests {
		if !d.Success {
			failed = append(failed, d)
		}
	}
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Requests")
	md.PlainText("")

	const maxListed = 20
	listed := failed
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	rows := make([][]string, len(listed))
	for i, d := range listed {
		rows[i] = []string{
			d.Target,
			(time.Duration(d.DurationMs * float64(time.Millisecond))).String(),
			truncate(d.Error, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Endpoint", "Duration", "Error"},
		Rows:   rows,
	})
	if len(failed) > maxListed {
		md.PlainTextf("... and %d more", len(failed)-maxListed)
	}
	md.PlainText("")
}

// truncate shortens s to at most maxLen runes, never splitting a
// multi-byte character. Error texts from Portuguese-language targets
// routinely carry accented runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
