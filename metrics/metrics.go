// Package metrics records counters and latencies for the rate cache, the
// outbound clients and webhook handling.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event names.
const (
	RateCacheHit      = "rate_cache_hit"
	RateCacheMiss     = "rate_cache_miss"
	OracleFetch       = "oracle_fetch"
	OracleFetchError  = "oracle_fetch_error"
	RateStaleFallback = "rate_stale_fallback"
	GatewayRequest    = "gateway_request"
	GatewayError      = "gateway_error"
	GatewayCreate     = "gateway_create"
	GatewayStatus     = "gateway_status"
	WebhookRejected   = "webhook_rejected"
	WebhookStatus     = "webhook_status_"
)

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
