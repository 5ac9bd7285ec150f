package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Trade("Moonshot", "buy", "exactIn", true, time.Second)
	m.Approval("confirmed")
	m.Verification("Moonshot", true)
	m.GasFallback("limit")
}

func TestCounters(t *testing.T) {
	m := New("test")
	m.Trade("Moonshot", "buy", "exactIn", true, time.Second)
	m.Trade("Moonshot", "buy", "exactIn", false, 0)
	m.GasFallback("limit")
	m.GasFallback("limit")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("Moonshot", "buy", "exactIn", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("Moonshot", "buy", "exactIn", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GasFallbacksTotal.WithLabelValues("limit")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New("test")
	m.Approval("sufficient")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_approval_checks_total{outcome="sufficient"} 1`))
}
