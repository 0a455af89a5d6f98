// Package metrics provides the Prometheus registry shared by shopkit and
// pushes it to a Pushgateway for short-lived runs.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, filter, labels, uptime) to maintain modularity and avoid
// circular dependencies.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by shopkit.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects what Registry holds.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Push sends every registered metric to the Pushgateway at gatewayURL under
// job, replacing the job's previous group. Labels become the grouping key.
// An empty gatewayURL is a no-op.
func Push(ctx context.Context, gatewayURL, job string, labels map[string]string) error {
	if gatewayURL == "" {
		return nil
	}
	if job == "" {
		return fmt.Errorf("push metrics: job is required")
	}

	pusher := push.New(gatewayURL, job).
		Gatherer(Gatherer).
		Client(&http.Client{Timeout: 10 * time.Second})
	for name, value := range labels {
		pusher = pusher.Grouping(name, value)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}

	log.Debug().
		Str("component", "metrics").
		Str("gateway", gatewayURL).
		Str("job", job).
		Msg("Pushed metrics")
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - shopkit_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status ("cached", "network_error")
//   - shopkit_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - shopkit_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Pagination Metrics (pkg/pagination):
//   - shopkit_pages_fetched_total (Counter): List pages fetched
//
// Rate Limit Metrics (pkg/ratelimit):
//   - shopkit_rate_limit_bucket_used (Gauge): Calls in the bucket as last reported
//   - shopkit_rate_limit_waits_total{severity} (Counter): Requests delayed (warning, critical)
//   - shopkit_rate_limit_wait_seconds_total (Counter): Time spent waiting for the bucket to drain
//
// Cache Metrics (pkg/cache):
//   - shopkit_cache_hits_total (Counter): Page cache hits
//   - shopkit_cache_misses_total (Counter): Page cache misses
//   - shopkit_cache_stored_bytes_total (Counter): Bytes written to Redis
//   - shopkit_cache_errors_total{operation} (Counter): Cache operation errors
//
// Label Metrics (pkg/filter, pkg/labels):
//   - shopkit_filter_records_total{outcome} (Counter): accepted, dropped, or a rejection reason
//   - shopkit_label_runs_total{result} (Counter): Label job runs (success, error)
//   - shopkit_labels_rendered (Gauge): Labels rendered by the last run
//
// Uptime Metrics (pkg/uptime):
//   - shopkit_uptime_failed_requests_total{url} (Counter): Failed website checks
//   - shopkit_uptime_check_duration_seconds{url} (Histogram): Check duration
//
// Example Prometheus Queries:
//
//   # Sites failing in the last hour
//   increase(shopkit_uptime_failed_requests_total[1h]) > 0
//
//   # Rejection breakdown
//   sum by (outcome) (increase(shopkit_filter_records_total[30d]))
//
//   # Cache Hit Rate
//   sum(rate(shopkit_cache_hits_total[5m])) /
//   (sum(rate(shopkit_cache_hits_total[5m])) + sum(rate(shopkit_cache_misses_total[5m])))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(shopkit_request_duration_seconds_bucket[5m]))
