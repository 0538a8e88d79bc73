package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// PropagatorKind selects the propagation model used by the sampler.
type PropagatorKind int

const (
	// PropagatorKepler is the two-body model with the 10-iteration Kepler solve.
	PropagatorKepler PropagatorKind = iota
	// PropagatorSGP4 delegates to go-satellite's SGP4 implementation.
	PropagatorSGP4
)

func (k PropagatorKind) String() string {
	switch k {
	case PropagatorKepler:
		return "kepler"
	case PropagatorSGP4:
		return "sgp4"
	default:
		return fmt.Sprintf("PropagatorKind(%d)", int(k))
	}
}

// ParsePropagatorKind maps "kepler"/"sgp4" (case-insensitive) to a kind. The
// empty string selects PropagatorKepler.
func ParsePropagatorKind(s string) (PropagatorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kepler", "twobody":
		return PropagatorKepler, nil
	case "sgp4":
		return PropagatorSGP4, nil
	default:
		return 0, fmt.Errorf("unknown propagator %q", s)
	}
}

// Propagator returns a satellite's inertial position in kilometres at a
// given instant. ok is false when the model has no usable position.
type Propagator interface {
	PositionKm(t time.Time) (pos Vec3, ok bool)
}

// KeplerPropagator is the two-body model. It precomputes the semi-major axis
// and rotation so repeated calls only solve Kepler's equation.
type KeplerPropagator struct {
	el  OrbitalElements
	a   float64
	rot Rotation
	ref time.Time
}

// NewKeplerPropagator builds a two-body propagator. ref stands in for the
// element epoch when the TLE carried none.
func NewKeplerPropagator(el OrbitalElements, mode RotationMode, ref time.Time) *KeplerPropagator {
	return &KeplerPropagator{
		el:  el,
		a:   SemiMajorAxisKm(el.MeanMotion),
		rot: NewRotation(el, mode),
		ref: ref,
	}
}

// SemiMajorAxisKm returns the precomputed semi-major axis.
func (p *KeplerPropagator) SemiMajorAxisKm() float64 { return p.a }

// PositionKm propagates to t. Non-finite inputs yield a non-finite position
// and ok == false; the position is still returned.
func (p *KeplerPropagator) PositionKm(t time.Time) (Vec3, bool) {
	m := MeanAnomalyAt(p.el, t, p.ref)
	E := SolveKepler(m, p.el.Eccentricity)
	pos := p.rot.Apply(PerifocalPosition(p.a, p.el.Eccentricity, E))
	return pos, pos.IsFinite()
}

// SGP4 output outside this band is treated as a failed propagation.
const (
	sgp4MinRadiusKm = EarthRadiusKm * 0.97
	sgp4MaxRadiusKm = 100000.0
)

// SGP4Propagator wraps go-satellite for the alternate high-fidelity path.
// go-satellite works in kilometres in the TEME frame.
type SGP4Propagator struct {
	sat satellite.Satellite
}

// NewSGP4Propagator validates the TLE pair before handing it to go-satellite,
// which terminates the process on some malformed input.
func NewSGP4Propagator(line1, line2 string) (*SGP4Propagator, error) {
	if _, err := ParseTLEStrict(line1, line2); err != nil {
		return nil, err
	}
	line1 = strings.TrimRight(line1, "\r\n ")
	line2 = strings.TrimRight(line2, "\r\n ")
	if err := checkSGP4Columns(line1, line2); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed: code=%d %s", sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat}, nil
}

// checkSGP4Columns reads every field go-satellite reads, sliced and cleaned
// up exactly as go-satellite does it. go-satellite exits the process on the
// first field strconv rejects. Both lines must already be TLELineLength long.
func checkSGP4Columns(line1, line2 string) error {
	// go-satellite drops at most two spaces per field.
	squeeze := func(s string) string { return strings.Replace(s, " ", "", 2) }

	for _, f := range []struct {
		name string
		raw  string
	}{
		{"satellite number", strings.TrimSpace(line1[2:7])},
		{"epoch year", line1[18:20]},
	} {
		if _, err := strconv.ParseInt(f.raw, 10, 0); err != nil {
			return fmt.Errorf("%w: %s %q", ErrMalformedTLE, f.name, f.raw)
		}
	}
	for _, f := range []struct {
		name string
		raw  string
	}{
		{"epoch day", line1[20:32]},
		{"first derivative of mean motion", squeeze(line1[33:43])},
		{"second derivative of mean motion", squeeze(line1[44:45] + "." + line1[45:50] + "e" + line1[50:52])},
		{"bstar", squeeze(line1[53:54] + "." + line1[54:59] + "e" + line1[59:61])},
		{"inclination", squeeze(line2[8:16])},
		{"right ascension", squeeze(line2[17:25])},
		{"eccentricity", "." + line2[26:33]},
		{"argument of perigee", squeeze(line2[34:42])},
		{"mean anomaly", squeeze(line2[43:51])},
		{"mean motion", squeeze(line2[52:63])},
	} {
		if _, err := strconv.ParseFloat(f.raw, 64); err != nil {
			return fmt.Errorf("%w: %s %q", ErrMalformedTLE, f.name, f.raw)
		}
	}
	return nil
}

// PositionKm propagates to t, truncated to whole seconds.
func (p *SGP4Propagator) PositionKm(t time.Time) (Vec3, bool) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	eci, _ := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)
	pos := Vec3{X: eci.X, Y: eci.Y, Z: eci.Z}
	if !pos.IsFinite() {
		return pos, false
	}
	if r := pos.Norm(); r < sgp4MinRadiusKm || r > sgp4MaxRadiusKm {
		return pos, false
	}
	return pos, true
}

// EarthFixedKm rotates a TEME position at t into an Earth-fixed frame using
// Greenwich sidereal time.
func EarthFixedKm(pos Vec3, t time.Time) Vec3 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	ecef := satellite.ECIToECEF(satellite.Vector3{X: pos.X, Y: pos.Y, Z: pos.Z}, gmst)
	return Vec3{X: ecef.X, Y: ecef.Y, Z: ecef.Z}
}

// NewPropagator picks a propagator for a TLE pair. The Kepler model never
// fails; SGP4 reports TLE validation errors.
func NewPropagator(kind PropagatorKind, line1, line2 string, mode RotationMode, ref time.Time) (Propagator, error) {
	switch kind {
	case PropagatorSGP4:
		return NewSGP4Propagator(line1, line2)
	default:
		return NewKeplerPropagator(ParseTLE(line1, line2), mode, ref), nil
	}
}
