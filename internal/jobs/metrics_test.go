package jobmetrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("notice_deliver").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("notice_deliver").End(boom), boom)

	expected := `
# HELP eventreg_jobs_total Total job executions partitioned by job name and status.
# TYPE eventreg_jobs_total counter
eventreg_jobs_total{job="notice_deliver",status="failure"} 1
eventreg_jobs_total{job="notice_deliver",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eventreg_jobs_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("notice_deliver")))
}

func TestNoticeDeliveredDefaultsCode(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.NoticeDelivered("")
	m.NoticeDelivered("switch_approved")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.delivered.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.delivered.WithLabelValues("switch_approved")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.NoticeDelivered("x")
	assert.NoError(t, m.Track("job").End(nil))
}
