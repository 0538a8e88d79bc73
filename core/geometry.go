package core

import "math"

// EarthRadiusKm is the mean Earth radius used to normalise positions for the
// renderer (kilometres).
const EarthRadiusKm = 6371.0

// Vec3 is a position in an Earth-centred inertial-like frame. Units depend on
// the producer: kilometres from the propagators, Earth radii once normalised.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v multiplied by k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Normalized returns v expressed in Earth radii, assuming v is in kilometres.
func (v Vec3) Normalized() Vec3 {
	return Vec3{X: v.X / EarthRadiusKm, Y: v.Y / EarthRadiusKm, Z: v.Z / EarthRadiusKm}
}

// IsFinite reports whether every component is a finite number.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// Array returns the components in renderer order.
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
