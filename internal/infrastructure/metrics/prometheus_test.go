package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"network_controller/internal/domain/entity"
)

func TestPrometheusRecorder(t *testing.T) {
	r := NewPrometheusRecorder("test", zap.NewNop())

	r.TrackEvent(entity.MetricsEvent{Event: entity.EventCustomNetworkAdded, Category: entity.EventCategoryNetwork})
	r.IncNetworkSwitch(entity.NetworkTypeSepolia)
	r.IncNetworkSwitch(entity.NetworkTypeSepolia)
	r.SetNetworkStatus(entity.NetworkStatusBlocked)
	r.ObserveLookup(entity.NetworkStatusBlocked, 30*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues(entity.EventCustomNetworkAdded, entity.EventCategoryNetwork)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.switches.WithLabelValues("sepolia")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.status.WithLabelValues("blocked")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.status.WithLabelValues("unknown")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "test_lookup_duration_seconds_count{status=\"blocked\"} 1"), body)
	assert.True(t, strings.Contains(body, "test_network_switches_total{type=\"sepolia\"} 2"), body)

	// the recorder's collectors live only in its private registry
	n, err := testutil.GatherAndCount(r.registry, "test_network_switches_total", "test_network_status")
	require.NoError(t, err)
	assert.Equal(t, 1+len(allStatuses), n)
	n, err = testutil.GatherAndCount(prometheus.DefaultGatherer, "test_network_switches_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}
