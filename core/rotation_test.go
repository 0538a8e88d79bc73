package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func vecClose(a, b Vec3, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) &&
		scalar.EqualWithinAbs(a.Y, b.Y, tol) &&
		scalar.EqualWithinAbs(a.Z, b.Z, tol)
}

func TestRotation_IdentityForZeroAngles(t *testing.T) {
	p := Vec3{X: 7000, Y: -1200, Z: 0}
	for _, mode := range []RotationMode{RotationStandard, RotationCompat} {
		got := PerifocalToInertial(OrbitalElements{}, p, mode)
		if !vecClose(got, p, 1e-9) {
			t.Fatalf("%s: rotation with zero angles = %+v, want %+v", mode, got, p)
		}
	}
}

func TestRotation_PolarOrbitZExcursion(t *testing.T) {
	el := OrbitalElements{Inclination: 90}
	p := Vec3{X: 0, Y: 7000, Z: 0}

	std := PerifocalToInertial(el, p, RotationStandard)
	if !vecClose(std, Vec3{Z: 7000}, 1e-9) {
		t.Fatalf("standard rotation = %+v, want (0, 0, 7000)", std)
	}

	// The legacy matrix has no sin(i) on the z row; with Ω = 0 the z
	// excursion collapses entirely.
	compat := PerifocalToInertial(el, p, RotationCompat)
	if compat.Z != 0 {
		t.Fatalf("compat rotation z = %v, want 0", compat.Z)
	}
}

func TestRotation_StandardPreservesNorm(t *testing.T) {
	el := ParseTLE(issLine1, issLine2)
	rot := NewRotation(el, RotationStandard)
	for k := 0; k < 36; k++ {
		nu := float64(k) * 10 * math.Pi / 180
		p := Vec3{X: 6800 * math.Cos(nu), Y: 6800 * math.Sin(nu)}
		if got := rot.Apply(p).Norm(); math.Abs(got-6800) > 1e-6 {
			t.Fatalf("norm after rotation = %v, want 6800", got)
		}
	}
}

func TestRotation_CompatMatchesLegacyFormula(t *testing.T) {
	el := ParseTLE(issLine1, issLine2)
	p := Vec3{X: 5000, Y: 4000}

	O := el.RightAscension * math.Pi / 180
	i := el.Inclination * math.Pi / 180
	w := el.ArgumentOfPerigee * math.Pi / 180
	want := Vec3{
		X: (math.Cos(O)*math.Cos(w)-math.Sin(O)*math.Sin(w)*math.Cos(i))*p.X +
			(-math.Cos(O)*math.Sin(w)-math.Sin(O)*math.Cos(w)*math.Cos(i))*p.Y,
		Y: (math.Sin(O)*math.Cos(w)+math.Cos(O)*math.Sin(w)*math.Cos(i))*p.X +
			(-math.Sin(O)*math.Sin(w)+math.Cos(O)*math.Cos(w)*math.Cos(i))*p.Y,
		Z: math.Sin(O)*math.Sin(w)*p.X + math.Sin(O)*math.Cos(w)*p.Y,
	}
	if got := PerifocalToInertial(el, p, RotationCompat); !vecClose(got, want, 1e-9) {
		t.Fatalf("compat rotation = %+v, want %+v", got, want)
	}

	std := PerifocalToInertial(el, p, RotationStandard)
	if !scalar.EqualWithinAbs(std.X, want.X, 1e-9) || !scalar.EqualWithinAbs(std.Y, want.Y, 1e-9) {
		t.Fatalf("x/y rows should agree between modes: %+v vs %+v", std, want)
	}
	wantZ := math.Sin(i)*math.Sin(w)*p.X + math.Sin(i)*math.Cos(w)*p.Y
	if !scalar.EqualWithinAbs(std.Z, wantZ, 1e-9) {
		t.Fatalf("standard z = %v, want %v", std.Z, wantZ)
	}
}

func TestParseRotationMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RotationMode
		wantErr bool
	}{
		{"", RotationStandard, false},
		{"standard", RotationStandard, false},
		{"COMPAT", RotationCompat, false},
		{"legacy", RotationCompat, false},
		{"sideways", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRotationMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseRotationMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("ParseRotationMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
