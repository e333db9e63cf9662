package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndWrite(t *testing.T) {
	m := New(logrus.New())
	m.RecordAnalysis("ok")
	m.RecordAnalysis("ok")
	m.RecordAnalysis("invalid_reference")
	m.RecordNeutral("pitch")
	m.RecordDTWFallback()
	m.ObserveStage("pitch")()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NeutralFallbacks.WithLabelValues("pitch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DTWFallbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))

	path := filepath.Join(t.TempDir(), "vocal.prom")
	require.NoError(t, m.WriteTextfile(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vocal_eval_analyses_total{outcome="ok"} 2`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAnalysis("ok")
	m.RecordNeutral("breath")
	m.RecordDTWFallback()
	m.RecordCollaboratorError("advisor")
	m.ObserveStage("diction")()
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/x.prom"))
}
