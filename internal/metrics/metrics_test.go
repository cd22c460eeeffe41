package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncTransition("start")
	pr.IncTransition("start")
	pr.IncNotification(ResultSuccess)
	pr.IncNotification(ResultFailure)
	pr.ObserveSweep(150*time.Millisecond, 3, 1, 1, 2)
	pr.SetActive(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.transitions.WithLabelValues("start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.notifications.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.sweeps))
	assert.Equal(t, 3.0, testutil.ToFloat64(pr.sweepRecords.WithLabelValues("advanced")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.sweepRecords.WithLabelValues("send_failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(pr.active))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestHandler_ServesMetricsAndHealth(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetActive(2)
	h := NewHandler(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "days_together_active_relationships 2"))
}
