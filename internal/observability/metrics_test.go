package observability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordPass(t *testing.T) {
	m := NewMetrics()

	m.RecordPass("primary", 120*time.Millisecond, nil)
	m.RecordPass("primary", 80*time.Millisecond, nil)
	m.RecordPass("secondary", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("primary", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("secondary", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("secondary", "success")))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccessTS), 0.0)
}

func TestMetrics_RecordOutput(t *testing.T) {
	m := NewMetrics()

	m.RecordOutput("primary", "es", 1024)
	m.RecordOutput("primary", "es", 512)
	m.RecordOutput("auxiliary", "iife", 10)

	assert.Equal(t, 1536.0, testutil.ToFloat64(m.outputBytes.WithLabelValues("primary", "es")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.outputsTotal.WithLabelValues("primary", "es")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.outputBytes.WithLabelValues("auxiliary", "iife")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordPass("primary", 50*time.Millisecond, nil)
	m.RecordOutput("primary", "cjs", 2048)

	path := filepath.Join(t.TempDir(), "libbuild.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `libbuild_output_bytes_total{format="cjs",pass="primary"} 2048`)
	assert.Contains(t, string(data), "libbuild_pass_duration_seconds_bucket")
}

func TestMetrics_WriteTextfile_BadPath(t *testing.T) {
	m := NewMetrics()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "libbuild.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write metrics file")
}

func TestMetrics_PrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration
	a := NewMetrics()
	b := NewMetrics()
	a.RecordPass("primary", time.Millisecond, nil)

	assert.NotSame(t, a.Registry(), b.Registry())
	assert.Equal(t, 0.0, testutil.ToFloat64(b.passesTotal.WithLabelValues("primary", "success")))
}
