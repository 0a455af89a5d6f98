// Package uptime checks that the shop website answers and, when it does not,
// whether related sites are reachable.
package uptime

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	failedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopkit_uptime_failed_requests_total",
		Help: "Failed website checks by URL",
	}, []string{"url"})

	checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopkit_uptime_check_duration_seconds",
		Help:    "Website check duration in seconds by URL",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"url"})
)

// Result is the outcome of checking one URL. Status is 0 when no response
// arrived.
type Result struct {
	URL      string
	Status   int
	Err      error
	Duration time.Duration
}

// OK reports whether the site answered 200.
func (r Result) OK() bool {
	return r.Err == nil && r.Status == http.StatusOK
}

// Report is the outcome of one Check.
type Report struct {
	Primary     Result
	Secondaries []Result
	CheckedAt   time.Time
}

// Healthy reports whether the primary site is up.
func (r Report) Healthy() bool {
	return r.Primary.OK()
}

// Failures returns every failed result, primary first.
func (r Report) Failures() []Result {
	var out []Result
	if !r.Primary.OK() {
		out = append(out, r.Primary)
	}
	for _, s := range r.Secondaries {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// HTML renders the alert body: one table row per failing site. It returns
// "" for a healthy report.
func (r Report) HTML() string {
	if r.Healthy() {
		return ""
	}

	var b strings.Builder
	b.WriteString("<html><table>\n")
	fmt.Fprintf(&b, "<tr><td>%s is failing! </td><td style=\"background-color: palevioletred;\">[%d]</td></tr>\n",
		html.EscapeString(r.Primary.URL), r.Primary.Status)
	for _, s := range r.Secondaries {
		if s.OK() {
			continue
		}
		fmt.Fprintf(&b, "<tr><td style=\"font-color: red;\">%s is failing!</td><td>[%d]</td></tr>\n",
			html.EscapeString(s.URL), s.Status)
	}
	b.WriteString("</table></html>")
	return b.String()
}

// Checker performs website checks.
type Checker struct {
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewChecker creates a checker whose requests time out after timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.With().Str("component", "uptime").Logger(),
		now:        time.Now,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Checker) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Check requests primary. Only when it fails are the secondaries checked,
// sequentially and in order. Every failure is counted.
func (c *Checker) Check(ctx context.Context, primary string, secondaries []string) Report {
	report := Report{CheckedAt: c.now()}

	report.Primary = c.checkOne(ctx, primary)
	if report.Primary.OK() {
		c.logger.Info().Str("url", primary).Dur("duration", report.Primary.Duration).Msg("Success")
		return report
	}

	for _, u := range secondaries {
		res := c.checkOne(ctx, u)
		if res.OK() {
			c.logger.Info().Str("url", u).Msg("Secondary site is up")
		}
		report.Secondaries = append(report.Secondaries, res)
	}
	return report
}

func (c *Checker) checkOne(ctx context.Context, target string) (res Result) {
	res.URL = target
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		checkDuration.WithLabelValues(target).Observe(res.Duration.Seconds())
	}()

	res.Status, res.Err = c.get(ctx, target)
	if !res.OK() {
		failedRequestsTotal.WithLabelValues(target).Inc()
		c.logger.Error().
			Err(res.Err).
			Str("url", target).
			Int("status_code", res.Status).
			Msg("Site is failing")
	}
	return res
}

func (c *Checker) get(ctx context.Context, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "shopkit-uptime/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return resp.StatusCode, nil
}
