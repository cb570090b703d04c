// Package loadtest simulates concurrent API users and measures the results.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/bench"
	"github.com/luanbrandao/newswatch/internal/logging"
	"github.com/luanbrandao/newswatch/internal/metrics"
)

// DefaultRequestDelay is the pause between consecutive requests of one
// simulated user.
const DefaultRequestDelay = 100 * time.Millisecond

// Endpoint is one API target a simulated user can hit.
type Endpoint struct {
	Method string
	Path   string
	Params map[string]string
}

// DefaultEndpoints covers the read surface of the news API.
var DefaultEndpoints = []Endpoint{
	{Method: http.MethodGet, Path: "/news"},
	{Method: http.MethodGet, Path: "/news", Params: map[string]string{"limit": "10"}},
	{Method: http.MethodGet, Path: "/health"},
	{Method: http.MethodGet, Path: "/"},
}

// Scenario is a named concurrency profile.
type Scenario struct {
	Users           int
	RequestsPerUser int
}

// Scenarios maps the built-in profile names.
var Scenarios = map[string]Scenario{
	"light":  {Users: 10, RequestsPerUser: 5},
	"medium": {Users: 25, RequestsPerUser: 10},
	"heavy":  {Users: 50, RequestsPerUser: 10},
	"stress": {Users: 100, RequestsPerUser: 10},
}

// Options configures a Generator run.
type Options struct {
	BaseURL         string
	Users           int
	RequestsPerUser int
	Endpoints       []Endpoint
	Delay           time.Duration
	SampleInterval  time.Duration
	Client          *http.Client
	Logger          *zap.Logger
}

func (o *Options) normalize() error {
	if strings.TrimSpace(o.BaseURL) == "" {
		return errors.New("base url is required")
	}
	if _, err := url.Parse(o.BaseURL); err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Users <= 0 {
		return errors.New("user count must be positive")
	}
	if o.RequestsPerUser <= 0 {
		return errors.New("requests per user must be positive")
	}
	if len(o.Endpoints) == 0 {
		o.Endpoints = DefaultEndpoints
	}
	if o.Delay == 0 {
		o.Delay = DefaultRequestDelay
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return nil
}

// Generator fans out simulated users against a running API.
type Generator struct {
	opt    Options
	logger *zap.Logger
}

// New validates the options and builds a Generator.
func New(opt Options) (*Generator, error) {
	if err := opt.normalize(); err != nil {
		return nil, err
	}
	return &Generator{opt: opt, logger: logging.OrNop(opt.Logger)}, nil
}

// Run executes the load profile and returns the frozen run metrics. Every
// user issues its requests sequentially; request failures are recorded as
// failed samples and never abort the run.
func (g *Generator) Run(ctx context.Context) (*bench.RunMetrics, error) {
	collector := bench.NewCollector(bench.RunLoadTest, g.opt.SampleInterval, g.logger)
	if err := collector.Start(); err != nil {
		return nil, err
	}

	g.logger.Info("load test starting",
		zap.String("base_url", g.opt.BaseURL),
		zap.Int("users", g.opt.Users),
		zap.Int("requests_per_user", g.opt.RequestsPerUser),
	)

	var wg sync.WaitGroup
	wg.Add(g.opt.Users)
	for u := 0; u < g.opt.Users; u++ {
		go func() {
			defer wg.Done()
			g.runUser(ctx, collector)
		}()
	}
	wg.Wait()

	m, err := collector.Stop(ctx)
	if err != nil {
		return nil, err
	}
	m.Users = g.opt.Users
	m.RequestsPerUser = g.opt.RequestsPerUser
	g.logger.Info("load test finished",
		zap.Int("requests", m.TotalRequests()),
		zap.Float64("success_rate", m.SuccessRate()),
	)
	return m, nil
}

func (g *Generator) runUser(ctx context.Context, rec bench.Recorder) {
	metrics.IncActiveUsers()
	defer metrics.DecActiveUsers()

	for i := 0; i < g.opt.RequestsPerUser; i++ {
		if ctx.Err() != nil {
			return
		}
		ep := g.opt.Endpoints[i%len(g.opt.Endpoints)]
		g.doRequest(ctx, ep, rec)

		if i == g.opt.RequestsPerUser-1 {
			break
		}
		select {
		case <-time.After(g.opt.Delay):
		case <-ctx.Done():
			return
		}
	}
}

func (g *Generator) doRequest(ctx context.Context, ep Endpoint, rec bench.Recorder) {
	target := ep.Method + " " + ep.Path
	sample := bench.RequestSample{Target: target, Start: time.Now()}

	req, err := http.NewRequestWithContext(ctx, ep.Method, g.buildURL(ep), nil)
	if err != nil {
		sample.End = time.Now()
		sample.Error = err.Error()
		rec.Record(sample)
		return
	}

	resp, err := g.opt.Client.Do(req)
	if err != nil {
		sample.End = time.Now()
		sample.Error = err.Error()
		rec.Record(sample)
		return
	}
	n, _ := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	sample.End = time.Now()
	sample.ResponseSize = n
	// Only 2xx counts as success; redirects and not-modified are failures
	// from the client's point of view.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		sample.Success = true
	} else {
		sample.Error = resp.Status
	}
	rec.Record(sample)
}

func (g *Generator) buildURL(ep Endpoint) string {
	full := g.opt.BaseURL + ep.Path
	if len(ep.Params) == 0 {
		return full
	}
	q := url.Values{}
	for k, v := range ep.Params {
		q.Set(k, v)
	}
	return full + "?" + q.Encode()
}

// CheckTarget verifies the API answers its health endpoint before a run.
func CheckTarget(ctx context.Context, client *http.Client, baseURL string) error {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("target unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("target unhealthy: %s", resp.Status)
	}
	return nil
}
