package core

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultNumPoints is the sample count used when none is given.
	DefaultNumPoints = 100
	// DefaultOrbitFraction spans one full day.
	DefaultOrbitFraction = 1.0
)

// ErrDegenerateOrbit is wrapped by DegenerateOrbitError.
var ErrDegenerateOrbit = errors.New("degenerate orbit")

// DegenerateOrbitError reports that no sample produced a usable position and
// the trajectory fell back to the flat origin line.
type DegenerateOrbitError struct {
	Propagator PropagatorKind
	NumPoints  int
	Reason     string
}

func (e *DegenerateOrbitError) Error() string {
	return fmt.Sprintf("degenerate orbit (%s, %d samples): %s", e.Propagator, e.NumPoints, e.Reason)
}

func (e *DegenerateOrbitError) Unwrap() error { return ErrDegenerateOrbit }

// FallbackPoints returns the two-point line at the origin handed to renderers
// in place of an empty trajectory.
func FallbackPoints() []Vec3 {
	return []Vec3{{}, {}}
}

// SampleOptions parameterise a trajectory. Zero values pick the defaults,
// except NumPoints where only a negative value is replaced: zero asks for
// the degenerate fallback. OrbitFraction is clamped to (0, 1].
type SampleOptions struct {
	NumPoints     int
	OrbitFraction float64
	Rotation      RotationMode
	Propagator    PropagatorKind
	Frame         Frame
	// Start is the first sample instant, normally the current clock reading.
	Start time.Time
}

func (o SampleOptions) withDefaults() SampleOptions {
	if o.NumPoints < 0 {
		o.NumPoints = DefaultNumPoints
	}
	if !(o.OrbitFraction > 0) || !isFinite(o.OrbitFraction) {
		o.OrbitFraction = DefaultOrbitFraction
	}
	if o.OrbitFraction > 1 {
		o.OrbitFraction = 1
	}
	return o
}

// DefaultSampleOptions returns the standard 100-point, one-day span starting
// at start.
func DefaultSampleOptions(start time.Time) SampleOptions {
	return SampleOptions{
		NumPoints:     DefaultNumPoints,
		OrbitFraction: DefaultOrbitFraction,
		Start:         start,
	}
}

// Span returns the wall-clock duration the samples cover.
func (o SampleOptions) Span() time.Duration {
	return time.Duration(o.OrbitFraction * SecondsPerDay * float64(time.Second))
}

// Trajectory is a sampled orbit segment normalised to Earth radii.
type Trajectory struct {
	Points     []Vec3
	Times      []time.Time
	Propagator PropagatorKind
	Rotation   RotationMode
	// Frame is always resolved, never FrameAuto.
	Frame Frame
	Start time.Time
	Span  time.Duration
	// Degenerate is set when Points is the origin fallback.
	Degenerate bool
}

// Arrays returns the points in the renderer's [x, y, z] layout.
func (t Trajectory) Arrays() [][3]float64 {
	out := make([][3]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Array()
	}
	return out
}

// RadiusRange returns the smallest and largest finite sample radius in Earth
// radii. Both are zero when no sample is finite.
func (t Trajectory) RadiusRange() (lo, hi float64) {
	radii := make([]float64, 0, len(t.Points))
	for _, p := range t.Points {
		if p.IsFinite() {
			radii = append(radii, p.Norm())
		}
	}
	if len(radii) == 0 {
		return 0, 0
	}
	return floats.Min(radii), floats.Max(radii)
}

// sampleTimes returns n instants evenly spread across the span, i/n apart.
func sampleTimes(opts SampleOptions) []time.Time {
	span := opts.OrbitFraction * SecondsPerDay
	times := make([]time.Time, opts.NumPoints)
	for i := range times {
		offset := float64(i) / float64(opts.NumPoints) * span
		times[i] = opts.Start.Add(time.Duration(offset * float64(time.Second)))
	}
	return times
}

// SampleElements samples the two-body model for el. It returns exactly
// opts.NumPoints points unless every sample is non-finite or NumPoints is
// zero, in which case the origin fallback is returned together with a
// *DegenerateOrbitError. The trajectory is always usable.
func SampleElements(el OrbitalElements, opts SampleOptions) (Trajectory, error) {
	opts = opts.withDefaults()
	opts.Propagator = PropagatorKepler
	opts.Frame = opts.Frame.Resolve(PropagatorKepler)
	return sample(NewKeplerPropagator(el, opts.Rotation, opts.Start), opts, true)
}

// Sample samples a raw TLE pair with the propagator named in opts. TLE errors
// from the SGP4 path also fall back to the origin line.
func Sample(line1, line2 string, opts SampleOptions) (Trajectory, error) {
	opts = opts.withDefaults()
	if opts.Propagator != PropagatorSGP4 {
		return SampleElements(ParseTLE(line1, line2), opts)
	}
	opts.Frame = opts.Frame.Resolve(PropagatorSGP4)
	prop, err := NewSGP4Propagator(line1, line2)
	if err != nil {
		return fallback(opts), &DegenerateOrbitError{
			Propagator: opts.Propagator,
			NumPoints:  opts.NumPoints,
			Reason:     err.Error(),
		}
	}
	return sample(prop, opts, false)
}

// Points is the permissive form of Sample: it never reports an error and
// never returns an empty slice.
func Points(line1, line2 string, opts SampleOptions) []Vec3 {
	traj, _ := Sample(line1, line2, opts)
	return traj.Points
}

// sample runs p over the sample times. When keepAll is set every sample is
// kept, finite or not; otherwise unusable samples are dropped.
func sample(p Propagator, opts SampleOptions, keepAll bool) (Trajectory, error) {
	if opts.NumPoints == 0 {
		return fallback(opts), &DegenerateOrbitError{
			Propagator: opts.Propagator,
			Reason:     "no samples requested",
		}
	}

	times := sampleTimes(opts)
	traj := Trajectory{
		Points:     make([]Vec3, 0, len(times)),
		Times:      make([]time.Time, 0, len(times)),
		Propagator: opts.Propagator,
		Rotation:   opts.Rotation,
		Frame:      opts.Frame,
		Start:      opts.Start,
		Span:       opts.Span(),
	}
	usable := 0
	for _, t := range times {
		pos, ok := p.PositionKm(t)
		if ok {
			usable++
			if opts.Frame == FrameEarthFixed {
				pos = EarthFixedKm(pos, t)
			}
		} else if !keepAll {
			continue
		}
		traj.Points = append(traj.Points, pos.Normalized())
		traj.Times = append(traj.Times, t)
	}

	if usable == 0 {
		return fallback(opts), &DegenerateOrbitError{
			Propagator: opts.Propagator,
			NumPoints:  opts.NumPoints,
			Reason:     "no finite position at any sample",
		}
	}
	return traj, nil
}

func fallback(opts SampleOptions) Trajectory {
	return Trajectory{
		Points:     FallbackPoints(),
		Times:      []time.Time{opts.Start, opts.Start},
		Propagator: opts.Propagator,
		Rotation:   opts.Rotation,
		Frame:      opts.Frame,
		Start:      opts.Start,
		Span:       opts.Span(),
		Degenerate: true,
	}
}

// PositionAt returns the position of el at t in kilometres. ok is false for
// elements that cannot be propagated.
func PositionAt(el OrbitalElements, t time.Time, mode RotationMode) (Vec3, bool) {
	return NewKeplerPropagator(el, mode, t).PositionKm(t)
}

// NormalizedPositionAt is PositionAt in Earth radii.
func NormalizedPositionAt(el OrbitalElements, t time.Time, mode RotationMode) (Vec3, bool) {
	pos, ok := PositionAt(el, t, mode)
	return pos.Normalized(), ok
}
