package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(CoverRequests.WithLabelValues("cached", "false"))
	CoverRequests.WithLabelValues("cached", "false").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(CoverRequests.WithLabelValues("cached", "false")), 0.0001)

	ResolverLookups.WithLabelValues("miss").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ResolverLookups.WithLabelValues("miss")), 1.0)
}

func TestCircuitBreakerGauge(t *testing.T) {
	CircuitBreakerState.WithLabelValues("pdfium").Set(1)
	assert.InDelta(t, 1.0, testutil.ToFloat64(CircuitBreakerState.WithLabelValues("pdfium")), 0.0001)
}
