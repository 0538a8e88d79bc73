package core

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// RotationMode selects the perifocal-to-inertial rotation.
type RotationMode int

const (
	// RotationStandard is the full 3-1-3 (Ω, i, ω) rotation matrix.
	RotationStandard RotationMode = iota
	// RotationCompat reproduces the legacy viewer matrix whose z row lacks
	// the sin(i) factor, flattening the z excursion of inclined orbits.
	RotationCompat
)

func (m RotationMode) String() string {
	switch m {
	case RotationStandard:
		return "standard"
	case RotationCompat:
		return "compat"
	default:
		return fmt.Sprintf("RotationMode(%d)", int(m))
	}
}

// ParseRotationMode maps "standard"/"compat" (case-insensitive) to a mode.
// The empty string selects RotationStandard.
func ParseRotationMode(s string) (RotationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return RotationStandard, nil
	case "compat", "legacy":
		return RotationCompat, nil
	default:
		return 0, fmt.Errorf("unknown rotation mode %q", s)
	}
}

// Rotation is a precomputed perifocal-to-inertial matrix for one element set.
type Rotation struct {
	m *mat.Dense
}

// NewRotation builds the rotation for the RAAN, inclination and argument of
// perigee of el (degrees).
func NewRotation(el OrbitalElements, mode RotationMode) Rotation {
	raan := degToRad(el.RightAscension)
	inc := degToRad(el.Inclination)
	argp := degToRad(el.ArgumentOfPerigee)

	cO, sO := math.Cos(raan), math.Sin(raan)
	ci, si := math.Cos(inc), math.Sin(inc)
	cw, sw := math.Cos(argp), math.Sin(argp)

	// Columns 0 and 1 act on the perifocal x and y. Perifocal z is always
	// zero, so column 2 only matters for completeness.
	data := []float64{
		cO*cw - sO*sw*ci, -cO*sw - sO*cw*ci, sO * si,
		sO*cw + cO*sw*ci, -sO*sw + cO*cw*ci, -cO * si,
		si * sw, si * cw, ci,
	}
	if mode == RotationCompat {
		data[6] = sO * sw
		data[7] = sO * cw
	}
	return Rotation{m: mat.NewDense(3, 3, data)}
}

// Apply rotates a perifocal vector into the inertial frame.
func (r Rotation) Apply(p Vec3) Vec3 {
	var out mat.VecDense
	out.MulVec(r.m, mat.NewVecDense(3, []float64{p.X, p.Y, p.Z}))
	return Vec3{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// PerifocalToInertial is a one-shot helper around NewRotation and Apply.
func PerifocalToInertial(el OrbitalElements, p Vec3, mode RotationMode) Vec3 {
	return NewRotation(el, mode).Apply(p)
}
