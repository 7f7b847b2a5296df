package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()

	a.Iterations.Inc()
	a.AcquireFailures.WithLabelValues("not_found").Add(3)
	a.Recycles.WithLabelValues(ReasonScheduled).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Iterations))
	assert.Equal(t, 3.0, testutil.ToFloat64(a.AcquireFailures.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Recycles.WithLabelValues(ReasonScheduled)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Iterations))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.FramesAcquired.Add(7)

	ts := httptest.NewServer(m.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "chdkcam_frames_acquired_total 7"))
}

func TestAcquireDuration_Buckets(t *testing.T) {
	m := New()
	m.AcquireDuration.Observe(0.003)
	m.AcquireDuration.Observe(0.2)
	m.AcquireDuration.Observe(5)

	var out dto.Metric
	require.NoError(t, m.AcquireDuration.Write(&out))

	h := out.GetHistogram()
	require.NotNil(t, h)
	assert.Equal(t, uint64(3), h.GetSampleCount())

	var le5ms, le250ms uint64
	for _, b := range h.GetBucket() {
		switch b.GetUpperBound() {
		case .005:
			le5ms = b.GetCumulativeCount()
		case .25:
			le250ms = b.GetCumulativeCount()
		}
	}
	assert.Equal(t, uint64(1), le5ms)
	assert.Equal(t, uint64(2), le250ms)
}
