package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal not initialized")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration not initialized")
	}
	if m.SessionActive == nil {
		t.Error("SessionActive not initialized")
	}
	if m.SessionTransitions == nil {
		t.Error("SessionTransitions not initialized")
	}
	if m.StorageErrors == nil {
		t.Error("StorageErrors not initialized")
	}
}

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("GET", "ok").Inc()
	if count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "ok")); count != 1 {
		t.Errorf("RequestsTotal = %v, want 1", count)
	}

	m.SessionActive.Set(1)
	var metric dto.Metric
	if err := m.SessionActive.Write(&metric); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 1 {
		t.Errorf("SessionActive = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RequestsTotal.WithLabelValues("POST", "unauthorized").Inc()

	path := filepath.Join(t.TempDir(), "authgate.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	want := `authgate_requests_total{method="POST",status="unauthorized"} 1`
	if !strings.Contains(string(data), want) {
		t.Errorf("textfile missing %q, got:\n%s", want, data)
	}
}
