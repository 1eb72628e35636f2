package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveDispatch("create", "ok", 10*time.Millisecond)
	m.ObserveDispatch("create", "ok", 10*time.Millisecond)
	m.ObserveDispatch("", "empty_input", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("none", "empty_input")))
}

func TestObservePoll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObservePoll(3, 1, nil)
	m.ObservePoll(0, 0, errors.New("db locked"))
	m.AddSkipped(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.delivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.bulkSkipped))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.AddSkipped(1)
	second.AddSkipped(1)
	assert.Equal(t, 2.0, testutil.ToFloat64(second.bulkSkipped))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDispatch("create", "ok", time.Second)
	m.ObservePoll(1, 1, nil)
	m.AddSkipped(1)
}

func TestHandlerServesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveDispatch("count", "ok", time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `schedd_dispatch_total{intent="count",outcome="ok"} 1`))
}
