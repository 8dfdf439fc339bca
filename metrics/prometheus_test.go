package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusRecorderWith(reg)
	require.NoError(t, err)

	r.IncCounter(OracleFetch, map[string]string{"source": "coingecko"})
	r.IncCounter(OracleFetch, map[string]string{"source": "coingecko"})
	r.IncCounter(RateCacheHit, nil)
	r.ObserveLatency(OracleFetch, 150*time.Millisecond, map[string]string{"source": "coingecko"})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.counters.WithLabelValues(OracleFetch, "coingecko")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.counters.WithLabelValues(RateCacheHit, "")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.histogram))
}

func TestPrometheusRecorderSharesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusRecorderWith(reg)
	require.NoError(t, err)
	second, err := NewPrometheusRecorderWith(reg)
	require.NoError(t, err)

	first.IncCounter(WebhookRejected, map[string]string{"source": "webhook"})
	second.IncCounter(WebhookRejected, map[string]string{"source": "webhook"})

	assert.Same(t, first.counters, second.counters)
	assert.Same(t, first.histogram, second.histogram)
	assert.Equal(t, 2.0, testutil.ToFloat64(first.counters.WithLabelValues(WebhookRejected, "webhook")))
}

func TestPrometheusRecorderConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xmrcheckout",
		Name:      "events_total",
		Help:      "xmrcheckout event counters",
	})))

	_, err := NewPrometheusRecorderWith(reg)
	assert.Error(t, err)
}

func TestOrNoop(t *testing.T) {
	assert.IsType(t, NoopRecorder{}, OrNoop(nil))
}
