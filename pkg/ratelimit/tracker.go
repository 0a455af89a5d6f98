package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	bucketUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopkit_rate_limit_bucket_used",
		Help: "Calls in the API call bucket as last reported",
	})

	rateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopkit_rate_limit_waits_total",
		Help: "Requests delayed by the call limit tracker by severity",
	}, []string{"severity"})

	rateLimitWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopkit_rate_limit_wait_seconds_total",
		Help: "Total time spent waiting for the call bucket to drain",
	})
)

// Tracker records the call bucket state and paces requests. State lives in
// Redis when a client is given, so separate runs against the same shop share
// it; otherwise it is kept in memory.
type Tracker struct {
	redis  *redis.Client
	key    string
	logger zerolog.Logger

	mu    sync.Mutex
	local BucketState

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTracker creates a tracker for shop. redisClient may be nil.
func NewTracker(redisClient *redis.Client, shop string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		key:    RedisKeyPrefix + shop,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// GetState returns the last recorded bucket state. A zero Capacity means
// nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*BucketState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	fields, err := t.redis.HGetAll(ctx, t.key).Result()
	if err != nil {
		return nil, fmt.Errorf("get bucket state: %w", err)
	}
	if len(fields) == 0 {
		t.logger.Debug().Str("key", t.key).Msg("No bucket state in Redis")
		return &BucketState{}, nil
	}

	var state BucketState
	if state.Used, err = strconv.Atoi(fields["used"]); err != nil {
		return nil, fmt.Errorf("parse used: %w", err)
	}
	if state.Capacity, err = strconv.Atoi(fields["capacity"]); err != nil {
		return nil, fmt.Errorf("parse capacity: %w", err)
	}
	nanos, err := strconv.ParseInt(fields["last_update"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}
	state.LastUpdate = time.Unix(0, nanos)

	return &state, nil
}

// ParseCallLimit parses a "used/capacity" header value.
func ParseCallLimit(value string) (used, capacity int, err error) {
	u, c, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return 0, 0, fmt.Errorf("malformed call limit %q", value)
	}
	if used, err = strconv.Atoi(strings.TrimSpace(u)); err != nil {
		return 0, 0, fmt.Errorf("parse used %q: %w", u, err)
	}
	if capacity, err = strconv.Atoi(strings.TrimSpace(c)); err != nil {
		return 0, 0, fmt.Errorf("parse capacity %q: %w", c, err)
	}
	if capacity <= 0 || used < 0 {
		return 0, 0, fmt.Errorf("invalid call limit %q", value)
	}
	return used, capacity, nil
}

// UpdateFromHeaders records the call limit reported in headers. Responses
// without the header leave the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	value := headers.Get(HeaderCallLimit)
	if value == "" {
		return nil
	}

	used, capacity, err := ParseCallLimit(value)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderCallLimit, err)
	}

	state := BucketState{Used: used, Capacity: capacity, LastUpdate: t.now()}

	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
	} else {
		pipe := t.redis.Pipeline()
		pipe.HSet(ctx, t.key,
			"used", state.Used,
			"capacity", state.Capacity,
			"last_update", state.LastUpdate.UnixNano(),
		)
		// Bucket state is meaningless once fully drained.
		pipe.Expire(ctx, t.key, time.Duration(float64(capacity)/LeakRate*float64(time.Second))+time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store bucket state in redis: %w", err)
		}
	}

	bucketUsed.Set(float64(used))

	t.logger.Debug().
		Int("used", used).
		Int("capacity", capacity).
		Msg("Call limit updated")

	return nil
}

// Wait blocks until the bucket has room for another request, or ctx ends.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}

	now := t.now()
	d := state.WaitDuration(now)
	if d <= 0 {
		return nil
	}

	severity := "warning"
	if state.NeedsCriticalWait(now) {
		severity = "critical"
	}
	t.logger.Warn().
		Int("used", state.EffectiveUsed(now)).
		Int("capacity", state.Capacity).
		Dur("wait", d).
		Str("severity", severity).
		Msg("Call limit near capacity, waiting")

	rateLimitWaitsTotal.WithLabelValues(severity).Inc()
	rateLimitWaitSeconds.Add(d.Seconds())

	return t.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
