package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/orbitview/internal/catalog"
	"github.com/signalsfoundry/orbitview/internal/config"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/observability"
	"github.com/signalsfoundry/orbitview/internal/orbitrpc"
	"github.com/signalsfoundry/orbitview/internal/trajcache"
	"github.com/signalsfoundry/orbitview/kb"
	"github.com/signalsfoundry/orbitview/timectrl"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgPath string

	cmd := &cobra.Command{
		Use:          "orbit-server",
		Short:        "Serve satellite catalogs and trajectories over gRPC",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgPath)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Logging())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
				return err
			}
			return run(ctx, cfg, log, lis)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "optional YAML/JSON/TOML config file")
	flags.String("grpc-addr", ":50051", "TCP address the gRPC server listens on")
	flags.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	flags.Bool("offline", false, "serve the embedded sample catalog instead of the TLE API")
	flags.String("tle-file", "", "serve a local three-line TLE file instead of the TLE API")
	_ = v.BindPFlag("grpc_addr", flags.Lookup("grpc-addr"))
	_ = v.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))
	_ = v.BindPFlag("catalog.offline", flags.Lookup("offline"))
	_ = v.BindPFlag("catalog.tle_file", flags.Lookup("tle-file"))

	return cmd
}

// run serves until ctx is cancelled or the gRPC server fails.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingSettings(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := observability.NewOrbitCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	src, err := newSource(cfg, log)
	if err != nil {
		return err
	}

	svc := orbitrpc.NewService(kb.NewCatalog(), src, orbitrpc.Config{
		Clock:           timectrl.SystemClock{},
		Cache:           trajcache.New(cfg.CacheSize, collector),
		Metrics:         collector,
		Logger:          log,
		Defaults:        cfg.SampleDefaults(),
		CacheResolution: time.Second,
	})

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			orbitrpc.RequestIDUnaryServerInterceptor(log),
			orbitrpc.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	orbitrpc.RegisterOrbitServiceServer(server, svc)
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(orbitrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthSrv)

	log.Info(ctx, "starting orbit gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Bool("offline", cfg.Catalog.Offline),
	)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error(ctx, "gRPC server exited", logging.Err(err))
		}
	}

	log.Info(ctx, "shutting down orbit server")
	healthSrv.Shutdown()
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func newSource(cfg config.Config, log logging.Logger) (catalog.Source, error) {
	if path := cfg.Catalog.TLEFile; path != "" {
		src, err := catalog.LoadTLEFile(path, cfg.Catalog.PageSize)
		if err != nil {
			return nil, err
		}
		log.Info(context.Background(), "serving TLE file", logging.String("path", path))
		return src, nil
	}
	if cfg.Catalog.Offline {
		src, err := catalog.NewSampleSource()
		if err != nil {
			return nil, fmt.Errorf("load sample catalog: %w", err)
		}
		return src, nil
	}
	return catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithPageSize(cfg.Catalog.PageSize),
		catalog.WithLogger(log),
	), nil
}

func serveMetrics(addr string, collector *observability.OrbitCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
