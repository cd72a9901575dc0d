package prompush

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"sheetsync/internal/metrics"
)

// family finds one metric family in the backend's private registry.
func family(t *testing.T, b *Backend, name string) *dto.MetricFamily {
	t.Helper()
	fams, err := b.reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range fams {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

// labelMap flattens a sample's label pairs for comparison.
func labelMap(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("job", ""); err == nil {
		t.Error("empty gateway URL must be rejected")
	}

	b, err := NewBackend("", "http://gw:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.job != "sheetsync" {
		t.Errorf("job = %q, want the sheetsync default", b.job)
	}

	b, err = NewBackend("ecommerce", "http://gw:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.job != "ecommerce" || b.url != "http://gw:9091" {
		t.Errorf("backend = %q %q, want ecommerce http://gw:9091", b.job, b.url)
	}
}

// TestIncCounterRouting drives each metric name through IncCounter and
// checks what landed in the registry, including that the job label is
// dropped in favor of the Pushgateway grouping key.
func TestIncCounterRouting(t *testing.T) {
	t.Parallel()

	lbls := metrics.Labels{
		"job":    "ecommerce",
		"table":  "vendas",
		"status": "success",
		"kind":   "inserted",
	}
	tests := []struct {
		metric     string
		delta      float64
		wantLabels map[string]string
	}{
		{
			metric:     metrics.MetricTables,
			delta:      1,
			wantLabels: map[string]string{"table": "vendas", "status": "success"},
		},
		{
			metric:     metrics.MetricRows,
			delta:      250,
			wantLabels: map[string]string{"table": "vendas", "kind": "inserted"},
		},
		{
			metric:     metrics.MetricBatches,
			delta:      3,
			wantLabels: map[string]string{"table": "vendas"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.metric, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend("ecommerce", "http://gw:9091")
			if err != nil {
				t.Fatalf("NewBackend: %v", err)
			}
			b.IncCounter(tt.metric, tt.delta, lbls)
			b.IncCounter("unrelated_total", 99, lbls)

			fam := family(t, b, tt.metric)
			if fam == nil {
				t.Fatalf("metric %s not collected", tt.metric)
			}
			if n := len(fam.GetMetric()); n != 1 {
				t.Fatalf("got %d samples, want 1", n)
			}
			sample := fam.GetMetric()[0]
			if got := sample.GetCounter().GetValue(); got != tt.delta {
				t.Errorf("value = %v, want %v", got, tt.delta)
			}
			got := labelMap(sample)
			for k, v := range tt.wantLabels {
				if got[k] != v {
					t.Errorf("label %s = %q, want %q", k, got[k], v)
				}
			}
			if _, ok := got["job"]; ok {
				t.Error("job label leaked into the collector")
			}
			if fam := family(t, b, "unrelated_total"); fam != nil {
				t.Error("unknown metric name must not be collected")
			}
		})
	}
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("ecommerce", "http://gw:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	lbls := metrics.Labels{"table": "vendas", "status": "success"}
	b.ObserveHistogram(metrics.MetricTableDuration, 0.5, lbls)
	b.ObserveHistogram(metrics.MetricTableDuration, 1.5, lbls)
	b.ObserveHistogram("unrelated_seconds", 9, lbls)

	fam := family(t, b, metrics.MetricTableDuration)
	if fam == nil {
		t.Fatal("duration summary not collected")
	}
	sum := fam.GetMetric()[0].GetSummary()
	if sum.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", sum.GetSampleCount())
	}
	if sum.GetSampleSum() != 2.0 {
		t.Errorf("sample sum = %v, want 2.0", sum.GetSampleSum())
	}
	if fam := family(t, b, "unrelated_seconds"); fam != nil {
		t.Error("unknown histogram name must not be collected")
	}
}

func TestFlushPushesRegistry(t *testing.T) {
	t.Parallel()

	var (
		gotMethod string
		gotPath   string
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("ecommerce", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.MetricRows, 7, metrics.Labels{"table": "vendas", "kind": "inserted"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if !strings.HasSuffix(gotPath, "/metrics/job/ecommerce") {
		t.Errorf("path = %q, want the job grouping key", gotPath)
	}
	if !bytes.Contains(gotBody, []byte(metrics.MetricRows)) {
		t.Errorf("pushed body does not carry %s", metrics.MetricRows)
	}
}

func TestFlushGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "full disk", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("ecommerce", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err == nil {
		t.Error("gateway failure must surface from Flush")
	}
}

func BenchmarkIncCounter(b *testing.B) {
	back, err := NewBackend("bench", "http://gw:9091")
	if err != nil {
		b.Fatal(err)
	}
	lbls := metrics.Labels{"table": "vendas", "kind": "inserted"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		back.IncCounter(metrics.MetricRows, 1, lbls)
	}
}
