package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// OrbitCollector bundles Prometheus metrics for the orbit service and provides
// helpers to wire them into gRPC servers and HTTP handlers.
type OrbitCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	Trajectories        *prometheus.CounterVec
	TrajectoryFallbacks *prometheus.CounterVec
	SampleDurations     *prometheus.HistogramVec

	CacheLookups *prometheus.CounterVec

	CatalogFetches    *prometheus.CounterVec
	CatalogSatellites prometheus.Gauge
}

// NewOrbitCollector registers orbit metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewOrbitCollector(reg prometheus.Registerer) (*OrbitCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitview_requests_total",
		Help: "Total number of handled orbit RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "orbitview_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbitview_request_duration_seconds",
		Help:    "Orbit RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"service", "method"}), "orbitview_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	trajectories, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitview_trajectories_total",
		Help: "Trajectories sampled, labeled by propagator.",
	}, []string{"propagator"}), "orbitview_trajectories_total")
	if err != nil {
		return nil, err
	}

	fallbacks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitview_trajectory_fallbacks_total",
		Help: "Trajectories that degenerated to the origin fallback, labeled by propagator.",
	}, []string{"propagator"}), "orbitview_trajectory_fallbacks_total")
	if err != nil {
		return nil, err
	}

	sampleDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbitview_sample_duration_seconds",
		Help:    "Time spent sampling one trajectory.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"propagator"}), "orbitview_sample_duration_seconds")
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitview_trajectory_cache_lookups_total",
		Help: "Trajectory cache lookups, labeled by result (hit or miss).",
	}, []string{"result"}), "orbitview_trajectory_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	fetches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitview_catalog_fetches_total",
		Help: "Catalog API calls, labeled by result (ok or error).",
	}, []string{"result"}), "orbitview_catalog_fetches_total")
	if err != nil {
		return nil, err
	}

	satellites, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitview_catalog_satellites",
		Help: "Current number of satellites held in the catalog.",
	}), "orbitview_catalog_satellites")
	if err != nil {
		return nil, err
	}

	return &OrbitCollector{
		gatherer:            gatherer,
		RPCRequests:         requests,
		RPCDurations:        durations,
		Trajectories:        trajectories,
		TrajectoryFallbacks: fallbacks,
		SampleDurations:     sampleDurations,
		CacheLookups:        lookups,
		CatalogFetches:      fetches,
		CatalogSatellites:   satellites,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *OrbitCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *OrbitCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTrajectory records one sampling run.
func (c *OrbitCollector) ObserveTrajectory(propagator string, degenerate bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Trajectories.WithLabelValues(propagator).Inc()
	if degenerate {
		c.TrajectoryFallbacks.WithLabelValues(propagator).Inc()
	}
	c.SampleDurations.WithLabelValues(propagator).Observe(elapsed.Seconds())
}

// CacheHit and CacheMiss satisfy the trajectory cache's recorder interface.
func (c *OrbitCollector) CacheHit() {
	if c != nil {
		c.CacheLookups.WithLabelValues("hit").Inc()
	}
}

func (c *OrbitCollector) CacheMiss() {
	if c != nil {
		c.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveCatalogFetch counts one catalog API call.
func (c *OrbitCollector) ObserveCatalogFetch(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.CatalogFetches.WithLabelValues(result).Inc()
}

// SetCatalogSize updates the catalog gauge.
func (c *OrbitCollector) SetCatalogSize(n int) {
	if c != nil {
		c.CatalogSatellites.Set(float64(n))
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	parts := strings.Split(strings.TrimPrefix(fullMethod, "/"), "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
