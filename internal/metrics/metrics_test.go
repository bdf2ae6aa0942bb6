package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/queue-health-probe/internal/probe"
)

func TestProbeCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Published()
	m.Published()
	m.PublishFailed()
	m.Inbound(true)
	m.Inbound(false)
	m.Inbound(false)
	m.RoundTrip(probe.StatusPartial, 20)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.published))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inbound.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inbound.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundTrips.WithLabelValues("PARTIAL")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.attempts))
}

var _ probe.Metrics = (*Probe)(nil)
