package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/orbitview.v1.OrbitService/GetTrajectory"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(2 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("OrbitService", "GetTrajectory", "OK")); got != 1 {
		t.Fatalf("orbitview_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "orbitview_request_duration_seconds", map[string]string{
		"service": "OrbitService",
		"method":  "GetTrajectory",
	}); count != 1 {
		t.Fatalf("orbitview_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/orbitview.v1.OrbitService/SelectSatellite"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "no such satellite")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("OrbitService", "SelectSatellite", "NotFound")); got != 1 {
		t.Fatalf("orbitview_requests_total error label = %v, want 1", got)
	}
}

func TestDomainRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}

	collector.ObserveTrajectory("kepler", false, time.Millisecond)
	collector.ObserveTrajectory("sgp4", true, time.Millisecond)
	collector.CacheHit()
	collector.CacheMiss()
	collector.CacheMiss()
	collector.ObserveCatalogFetch(nil)
	collector.ObserveCatalogFetch(errors.New("timeout"))
	collector.SetCatalogSize(20)

	if got := testutil.ToFloat64(collector.Trajectories.WithLabelValues("kepler")); got != 1 {
		t.Fatalf("kepler trajectories = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.TrajectoryFallbacks.WithLabelValues("sgp4")); got != 1 {
		t.Fatalf("sgp4 fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.TrajectoryFallbacks.WithLabelValues("kepler")); got != 0 {
		t.Fatalf("kepler fallbacks = %v, want 0", got)
	}
	if got := testutil.ToFloat64(collector.CacheLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.CatalogFetches.WithLabelValues("error")); got != 1 {
		t.Fatalf("catalog fetch errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.CatalogSatellites); got != 20 {
		t.Fatalf("catalog gauge = %v, want 20", got)
	}
	if count := histogramSampleCount(t, reg, "orbitview_sample_duration_seconds", map[string]string{"propagator": "sgp4"}); count != 1 {
		t.Fatalf("sample duration count = %d, want 1", count)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *OrbitCollector
	c.ObserveTrajectory("kepler", true, time.Second)
	c.CacheHit()
	c.CacheMiss()
	c.ObserveCatalogFetch(nil)
	c.SetCatalogSize(3)
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("first NewOrbitCollector: %v", err)
	}
	second, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("second NewOrbitCollector: %v", err)
	}
	first.CacheHit()
	if got := testutil.ToFloat64(second.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Fatalf("shared cache hit counter = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesOrbitMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}
	collector.SetCatalogSize(7)
	collector.ObserveTrajectory("kepler", false, time.Millisecond)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"orbitview_requests_total",
		"orbitview_request_duration_seconds",
		"orbitview_trajectories_total",
		"orbitview_sample_duration_seconds",
		"orbitview_catalog_satellites 7",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in      string
		service string
		method  string
	}{
		{"/orbitview.v1.OrbitService/GetPosition", "OrbitService", "GetPosition"},
		{"OrbitService/ListSatellites", "OrbitService", "ListSatellites"},
		{"", "unknown", "unknown"},
		{"/justone", "unknown", "unknown"},
	}
	for _, tt := range tests {
		svc, m := SplitMethod(tt.in)
		if svc != tt.service || m != tt.method {
			t.Fatalf("SplitMethod(%q) = %q, %q; want %q, %q", tt.in, svc, m, tt.service, tt.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
