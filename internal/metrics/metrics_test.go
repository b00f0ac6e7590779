package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrder(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOrder("internal_balance", ResultCompleted)
	c.RecordOrder("internal_balance", ResultCompleted)
	c.RecordOrder("external_wallet", ResultPending)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.orders.WithLabelValues("internal_balance", ResultCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.orders.WithLabelValues("external_wallet", ResultPending)))
}

func TestRecordSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSweep(3, 1, 5, 2)
	c.RecordSweep(1, 0, 4, 2)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.swept.WithLabelValues("code")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.swept.WithLabelValues("token")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.entries.WithLabelValues("code")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.entries.WithLabelValues("token")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordOrder("internal_balance", ResultCompleted)
	c.RecordSweep(1, 1, 1, 1)
	c.RecordHTTPStatus(http.StatusOK)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPStatus(http.StatusPaymentRequired)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `pickers_http_responses_total{status="402"} 1`))
}
