package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newMetricsTestServer builds a Server backed by a fresh isolated registry so
// tests do not pollute prometheus.DefaultRegisterer.
func newMetricsTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := newTestServer()
	s.cfg.MetricsRegistry = reg
	s.cfg.MetricsGatherer = reg
	s.metrics = newServerMetrics(reg)
	return s, reg
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	_, reg := newMetricsTestServer(t)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_UploadCounterIncremented(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	s.observeUpload("ok", time.Now())

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "docai_upload_requests_total" {
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "outcome" && lp.GetValue() == "ok" {
						if m.GetCounter().GetValue() != 1 {
							t.Errorf("want counter=1, got %v", m.GetCounter().GetValue())
						}
						found = true
					}
				}
			}
		}
	}
	if !found {
		t.Error("docai_upload_requests_total{outcome=\"ok\"} not found in gathered metrics")
	}
}

func Test_Metrics_UploadChunksCounter(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	s.metrics.uploadChunksTotal.Add(5)
	s.metrics.uploadChunksTotal.Add(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() == "docai_upload_chunks_total" {
			v := mf.GetMetric()[0].GetCounter().GetValue()
			if v != 8 {
				t.Errorf("want chunks_total=8, got %v", v)
			}
			return
		}
	}
	t.Error("docai_upload_chunks_total not found in gathered metrics")
}

func Test_Metrics_InstrumentRecordsStatus(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	h := s.instrument("task", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/task", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() != "docai_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["method"] == "POST" && labels[labelHandler] == "task" && labels["code"] == "400" {
				found = true
			}
		}
	}
	if !found {
		t.Error("docai_http_requests_total{method=\"POST\",handler=\"task\",code=\"400\"} not found")
	}
}
