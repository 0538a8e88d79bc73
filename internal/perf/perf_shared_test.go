//go:build perf || perf_large

package perf

import (
	"context"
	"fmt"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/catalog"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/orbitrpc"
	"github.com/signalsfoundry/orbitview/internal/trajcache"
	"github.com/signalsfoundry/orbitview/kb"
	"github.com/signalsfoundry/orbitview/model"
	"github.com/signalsfoundry/orbitview/timectrl"
)

type perfConfig struct {
	Satellites int
	NumPoints  int
	Workers    int
}

var perfStart = time.Date(2024, time.August, 16, 0, 0, 0, 0, time.UTC)

// satellites repeats the embedded sample catalog until n entries exist.
func satellites(b *testing.B, n int) []model.Satellite {
	b.Helper()
	page, err := catalog.SamplePage()
	if err != nil {
		b.Fatalf("SamplePage: %v", err)
	}
	out := make([]model.Satellite, 0, n)
	for i := 0; len(out) < n; i++ {
		sat := page.Satellites[i%len(page.Satellites)]
		sat.ID = 100000 + i
		out = append(out, sat)
	}
	return out
}

func benchmarkBatch(b *testing.B, cfg perfConfig, kind core.PropagatorKind) {
	ctx := context.Background()
	sats := satellites(b, cfg.Satellites)
	reqs := make([]core.BatchRequest, len(sats))
	for i, sat := range sats {
		reqs[i] = core.BatchRequest{ID: fmt.Sprint(sat.ID), Line1: sat.Line1, Line2: sat.Line2}
	}
	opts := core.SampleOptions{NumPoints: cfg.NumPoints, Propagator: kind, Start: perfStart}
	sampler := core.NewBatchSampler(cfg.Workers)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sampler.SampleAll(ctx, reqs, opts); err != nil {
			b.Fatalf("SampleAll: %v", err)
		}
	}
}

func benchmarkTrajectoryRPC(b *testing.B, cfg perfConfig, cacheSize int) {
	ctx := context.Background()
	sats := satellites(b, cfg.Satellites)
	src := catalog.NewStaticSource(sats, catalog.DefaultPageSize)

	var cache *trajcache.Cache
	if cacheSize > 0 {
		cache = trajcache.New(cacheSize, nil)
	}
	svc := orbitrpc.NewService(kb.NewCatalog(), src, orbitrpc.Config{
		Clock:           timectrl.FixedClock(perfStart),
		Cache:           cache,
		Logger:          logging.Noop(),
		CacheResolution: time.Second,
	})

	reqs := make([]*structpb.Struct, len(sats))
	for i, sat := range sats {
		req, err := structpb.NewStruct(map[string]any{
			"satellite_id": sat.ID,
			"num_points":   cfg.NumPoints,
		})
		if err != nil {
			b.Fatalf("NewStruct: %v", err)
		}
		reqs[i] = req
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, req := range reqs {
			if _, err := svc.GetTrajectory(ctx, req); err != nil {
				b.Fatalf("GetTrajectory: %v", err)
			}
		}
	}
}
