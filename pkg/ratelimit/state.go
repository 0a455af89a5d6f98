// Package ratelimit tracks the commerce API's leaky-bucket call limit and
// paces requests before the bucket overflows. It reads the
// X-Shopify-Shop-Api-Call-Limit header ("used/capacity") from every response.
package ratelimit

import (
	"time"
)

// HeaderCallLimit carries "used/capacity" on every API response.
const HeaderCallLimit = "X-Shopify-Shop-Api-Call-Limit"

// RedisKeyPrefix prefixes the per-shop hash holding bucket state.
const RedisKeyPrefix = "shopkit:rate_limit:"

// Bucket parameters.
const (
	// LeakRate is the number of calls the bucket drains per second.
	LeakRate = 2.0

	// WarningRatio of capacity starts pacing requests at one per leak interval.
	WarningRatio = 0.8

	// CriticalHeadroom is the number of free slots below which requests wait
	// until the bucket has drained to the warning level.
	CriticalHeadroom = 2
)

// BucketState is the last observed fill level of the call bucket.
type BucketState struct {
	// Used is the number of calls in the bucket when LastUpdate was taken.
	Used int `json:"used"`

	// Capacity is the bucket size. Zero means no data has been observed yet.
	Capacity int `json:"capacity"`

	// LastUpdate is when Used was observed.
	LastUpdate time.Time `json:"last_update"`
}

// EffectiveUsed estimates the fill level at now, accounting for the calls
// that leaked since LastUpdate.
func (s *BucketState) EffectiveUsed(now time.Time) int {
	if s.Capacity == 0 {
		return 0
	}
	leaked := int(now.Sub(s.LastUpdate).Seconds() * LeakRate)
	used := s.Used - leaked
	if used < 0 {
		return 0
	}
	return used
}

func (s *BucketState) warningLevel() int {
	return int(float64(s.Capacity) * WarningRatio)
}

// NeedsCriticalWait reports whether the bucket is about to overflow.
func (s *BucketState) NeedsCriticalWait(now time.Time) bool {
	return s.Capacity > 0 && s.EffectiveUsed(now) > s.Capacity-CriticalHeadroom
}

// NeedsThrottling reports whether requests should be paced.
func (s *BucketState) NeedsThrottling(now time.Time) bool {
	return s.Capacity > 0 && s.EffectiveUsed(now) >= s.warningLevel() && !s.NeedsCriticalWait(now)
}

// WaitDuration returns how long to wait before the next request.
func (s *BucketState) WaitDuration(now time.Time) time.Duration {
	switch {
	case s.NeedsCriticalWait(now):
		excess := s.EffectiveUsed(now) - s.warningLevel()
		return time.Duration(float64(excess) / LeakRate * float64(time.Second))
	case s.NeedsThrottling(now):
		return time.Duration(float64(time.Second) / LeakRate)
	default:
		return 0
	}
}

// IsHealthy reports whether no pacing is needed.
func (s *BucketState) IsHealthy(now time.Time) bool {
	return s.WaitDuration(now) == 0
}
