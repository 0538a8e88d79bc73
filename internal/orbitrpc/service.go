package orbitrpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/catalog"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/observability"
	"github.com/signalsfoundry/orbitview/internal/trajcache"
	"github.com/signalsfoundry/orbitview/kb"
	"github.com/signalsfoundry/orbitview/model"
	"github.com/signalsfoundry/orbitview/timectrl"
)

// Config wires optional collaborators into a Service. Zero values select a
// system clock, an uncached sampler, no metrics and a no-op logger.
type Config struct {
	Clock   timectrl.Clock
	Cache   *trajcache.Cache
	Metrics *observability.OrbitCollector
	Logger  logging.Logger

	// Defaults fill sampling fields a request leaves unset. The zero value
	// selects core.DefaultSampleOptions.
	Defaults core.SampleOptions
	// CacheResolution buckets trajectory start times for cache keys.
	CacheResolution time.Duration
}

// Service implements OrbitServiceServer on top of the shared catalog state
// and an upstream catalog source.
type Service struct {
	catalog *kb.Catalog
	source  catalog.Source
	clock   timectrl.Clock
	cache   *trajcache.Cache
	metrics *observability.OrbitCollector
	log     logging.Logger

	defaults   core.SampleOptions
	resolution time.Duration
}

var _ OrbitServiceServer = (*Service)(nil)

// NewService wires a Service to the shared catalog and its upstream source.
func NewService(cat *kb.Catalog, src catalog.Source, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = timectrl.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Noop()
	}
	// A zero Defaults means none were configured. Explicit defaults are
	// kept as given, so NumPoints 0 stays the degenerate fallback.
	if cfg.Defaults == (core.SampleOptions{}) {
		cfg.Defaults = core.DefaultSampleOptions(time.Time{})
	}
	return &Service{
		catalog:    cat,
		source:     src,
		clock:      cfg.Clock,
		cache:      cfg.Cache,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		defaults:   cfg.Defaults,
		resolution: cfg.CacheResolution,
	}
}

func (s *Service) ensureReady() error {
	if s == nil || s.catalog == nil {
		return fmt.Errorf("orbit service is not initialised")
	}
	return nil
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// ListSatellites fetches a catalog page from the upstream source and stores
// it as the current page.
func (s *Service) ListSatellites(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	page, ok, err := intField(req, fieldPage)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if !ok {
		page = s.catalog.CurrentPage()
	}

	p, err := s.fetchPage(ctx, page)
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.catalog.StorePage(p)
	s.metrics.SetCatalogSize(s.catalog.Len())

	s.logger(ctx).Info(ctx, "catalog page loaded",
		logging.Int("page", p.Number),
		logging.Int("satellites", len(p.Satellites)),
	)
	resp, err := encodePage(p)
	return resp, ToStatusError(err)
}

// SelectSatellite marks a satellite as selected, fetching it from the
// upstream source when the catalog has not seen it yet.
func (s *Service) SelectSatellite(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	id, ok, err := intField(req, fieldSatelliteID)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if !ok || id <= 0 {
		return nil, ToStatusError(fmt.Errorf("%w: satellite_id is required", ErrInvalidRequest))
	}

	if _, err := s.lookup(ctx, id); err != nil {
		return nil, ToStatusError(err)
	}
	sat, err := s.catalog.Select(id)
	if err != nil {
		return nil, ToStatusError(err)
	}

	s.logger(ctx).Info(ctx, "satellite selected",
		logging.Int("satellite_id", sat.ID),
		logging.String("name", sat.Name),
	)
	resp, err := encodeSatellite(sat)
	return resp, ToStatusError(err)
}

// GetElements parses the selected TLE strictly and reports its elements.
func (s *Service) GetElements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	sat, err := s.resolve(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	el, err := core.ParseTLEStrict(sat.Line1, sat.Line2)
	if err != nil {
		return nil, ToStatusError(err)
	}

	resp, err := encodeElements(ElementsResponse{
		SatelliteID:     sat.ID,
		Elements:        el,
		SemiMajorAxisKm: core.SemiMajorAxisKm(el.MeanMotion),
		PeriodMinutes:   periodMinutes(el.MeanMotion),
	})
	return resp, ToStatusError(err)
}

// GetTrajectory samples an orbit segment. Degenerate orbits are reported in
// the response, not as an RPC error.
func (s *Service) GetTrajectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	opts, err := sampleOptionsFromRequest(req, s.defaults)
	if err != nil {
		return nil, ToStatusError(err)
	}
	start, explicit, err := requestTime(req, s.clock.Now)
	if err != nil {
		return nil, ToStatusError(err)
	}
	opts.Start = start
	// Clock-driven requests share a cache bucket; an explicit time is keyed
	// exactly so the response starts where the caller asked.
	resolution := s.resolution
	if explicit {
		resolution = 0
	}
	sat, err := s.resolve(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "Orbit/Sample", sat.ID,
		attribute.String("propagator", opts.Propagator.String()),
		attribute.Int("num_points", opts.NumPoints),
	)
	res, cached := s.sample(sat, opts, resolution)
	span.SetAttributes(
		attribute.Bool("cached", cached),
		attribute.Bool("degenerate", res.Trajectory.Degenerate),
	)
	span.End()

	out := TrajectoryResponse{
		SatelliteID: sat.ID,
		Points:      res.Trajectory.Arrays(),
		Degenerate:  res.Trajectory.Degenerate,
		Propagator:  res.Trajectory.Propagator.String(),
		Rotation:    res.Trajectory.Rotation.String(),
		Frame:       res.Trajectory.Frame.String(),
		Start:       res.Trajectory.Start,
		Span:        res.Trajectory.Span,
		Cached:      cached,
	}
	out.RadiusMin, out.RadiusMax = res.Trajectory.RadiusRange()
	if res.Err != nil {
		out.Reason = res.Err.Error()
		s.logger(ctx).Warn(ctx, "trajectory degenerated to fallback",
			logging.Int("satellite_id", sat.ID),
			logging.String("propagator", out.Propagator),
			logging.Err(res.Err),
		)
	}

	resp, err := encodeTrajectory(out)
	return resp, ToStatusError(err)
}

// GetPosition propagates the selected satellite to a single instant.
func (s *Service) GetPosition(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	rot, prop := s.defaults.Rotation, s.defaults.Propagator
	if err := rotationFromRequest(req, &rot); err != nil {
		return nil, ToStatusError(err)
	}
	if err := propagatorFromRequest(req, &prop); err != nil {
		return nil, ToStatusError(err)
	}
	at, _, err := requestTime(req, s.clock.Now)
	if err != nil {
		return nil, ToStatusError(err)
	}
	sat, err := s.resolve(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}

	p, err := core.NewPropagator(prop, sat.Line1, sat.Line2, rot, at)
	if err != nil {
		return nil, ToStatusError(err)
	}
	km, ok := p.PositionKm(at)

	out := PositionResponse{Time: at, JulianDate: core.JulianDate(at), OK: ok, Propagator: prop.String()}
	if ok {
		out.Km = km.Array()
		out.Position = km.Normalized().Array()
		out.EarthFixedKm = core.EarthFixedKm(km, at).Array()
	}
	resp, err := encodePosition(out)
	return resp, ToStatusError(err)
}

func (s *Service) sample(sat model.Satellite, opts core.SampleOptions, resolution time.Duration) (trajcache.Result, bool) {
	run := func() (core.Trajectory, error) {
		started := time.Now()
		traj, err := core.Sample(sat.Line1, sat.Line2, opts)
		s.metrics.ObserveTrajectory(opts.Propagator.String(), traj.Degenerate, time.Since(started))
		return traj, err
	}
	if s.cache == nil {
		traj, err := run()
		return trajcache.Result{Trajectory: traj, Err: err}, false
	}
	key := trajcache.KeyFor(sat.Line1, sat.Line2, opts, resolution)
	return s.cache.GetOrSample(key, run)
}

// resolve turns a request selector into a TLE pair: explicit lines win, then
// satellite_id, then the current selection.
func (s *Service) resolve(ctx context.Context, req *structpb.Struct) (model.Satellite, error) {
	sel, err := decodeSelector(req)
	if err != nil {
		return model.Satellite{}, err
	}
	switch {
	case sel.hasLines():
		return model.Satellite{
			ID:    sel.SatelliteID,
			Name:  sel.Name,
			Line1: strings.TrimRight(sel.Line1, "\r\n "),
			Line2: strings.TrimRight(sel.Line2, "\r\n "),
		}, nil
	case sel.SatelliteID != 0:
		return s.lookup(ctx, sel.SatelliteID)
	default:
		sat, ok := s.catalog.Selected()
		if !ok {
			return model.Satellite{}, fmt.Errorf("%w: satellite_id or line1/line2 required when nothing is selected", ErrInvalidRequest)
		}
		return sat, nil
	}
}

// lookup returns a satellite from the catalog, falling back to the source.
func (s *Service) lookup(ctx context.Context, id int) (model.Satellite, error) {
	sat, err := s.catalog.Get(id)
	if err == nil {
		return sat, nil
	}
	if !errors.Is(err, kb.ErrSatelliteNotFound) || s.source == nil {
		return model.Satellite{}, err
	}

	ctx, span := StartChildSpan(ctx, "Catalog/FetchSatellite", id)
	defer span.End()
	sat, err = s.source.FetchSatellite(ctx, id)
	s.metrics.ObserveCatalogFetch(err)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, catalog.ErrSatelliteNotFound) {
			return model.Satellite{}, fmt.Errorf("%w: satellite %d", ErrNotFound, id)
		}
		return model.Satellite{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if !sat.HasTLE() {
		return model.Satellite{}, fmt.Errorf("%w: satellite %d has no TLE", ErrNotFound, id)
	}
	s.catalog.Put(sat)
	s.metrics.SetCatalogSize(s.catalog.Len())
	return sat, nil
}

func (s *Service) fetchPage(ctx context.Context, page int) (model.Page, error) {
	if s.source == nil {
		return model.Page{}, fmt.Errorf("%w: no catalog source configured", ErrCatalogUnavailable)
	}
	ctx, span := StartChildSpan(ctx, "Catalog/FetchPage", 0, attribute.Int("page", page))
	defer span.End()

	p, err := s.source.FetchPage(ctx, page)
	s.metrics.ObserveCatalogFetch(err)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.Page{}, err
		}
		return model.Page{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return p, nil
}

// periodMinutes is the orbital period for a mean motion in rev/day.
func periodMinutes(meanMotion float64) float64 {
	if meanMotion == 0 || math.IsNaN(meanMotion) {
		return math.NaN()
	}
	return 24 * 60 / meanMotion
}
