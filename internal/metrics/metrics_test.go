package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEndpointLatency("GET /donors", "200", 0.01)
	m.GeoFallbacks.WithLabelValues("timeout").Inc()
	m.Broadcasts.WithLabelValues("critical").Add(2)

	assert.Equal(t, 1, testutil.CollectAndCount(m.EndpointLatency))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GeoFallbacks.WithLabelValues("timeout")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Broadcasts.WithLabelValues("critical")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// a second set on its own registry must not collide
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
