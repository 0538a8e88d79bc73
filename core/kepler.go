package core

import (
	"math"
	"time"
)

const (
	// EarthMu is Earth's standard gravitational parameter in km^3/s^2.
	EarthMu = 398600.4418

	// SecondsPerDay converts mean motion from rev/day to rev/s.
	SecondsPerDay = 86400.0

	// KeplerIterations is the fixed number of fixed-point iterations used by
	// SolveKepler. Positions are only reproducible if this stays at 10.
	KeplerIterations = 10

	twoPi = 2 * math.Pi
)

// SolveKepler returns the eccentric anomaly E (radians) for mean anomaly m
// (radians) and eccentricity e, iterating E = M + e*sin(E) exactly
// KeplerIterations times from E = M. There is no convergence check.
func SolveKepler(m, e float64) float64 {
	E := m
	for i := 0; i < KeplerIterations; i++ {
		E = m + e*math.Sin(E)
	}
	return E
}

// MeanMotionRadPerSec converts a TLE mean motion (rev/day) to rad/s.
func MeanMotionRadPerSec(meanMotion float64) float64 {
	return meanMotion * twoPi / SecondsPerDay
}

// SemiMajorAxisKm derives the semi-major axis from mean motion (rev/day)
// using Kepler's third law. Non-positive mean motion gives a non-finite
// result which is passed through.
func SemiMajorAxisKm(meanMotion float64) float64 {
	n := MeanMotionRadPerSec(meanMotion)
	return math.Pow(EarthMu/(n*n), 1.0/3.0)
}

// TrueAnomaly converts eccentric anomaly to true anomaly (radians).
func TrueAnomaly(E, e float64) float64 {
	return 2 * math.Atan2(
		math.Sqrt(1+e)*math.Sin(E/2),
		math.Sqrt(1-e)*math.Cos(E/2),
	)
}

// OrbitRadiusKm returns the distance from the focus for eccentric anomaly E.
func OrbitRadiusKm(a, e, E float64) float64 {
	return a * (1 - e*math.Cos(E))
}

// PerifocalPosition returns the in-plane position for semi-major axis a,
// eccentricity e and eccentric anomaly E. Z is always zero.
func PerifocalPosition(a, e, E float64) Vec3 {
	r := OrbitRadiusKm(a, e, E)
	nu := TrueAnomaly(E, e)
	return Vec3{X: r * math.Cos(nu), Y: r * math.Sin(nu), Z: 0}
}

// MeanAnomalyAt returns the mean anomaly (radians, wrapped to [0, 2π)) of el
// at time t. When the elements carry no epoch, ref stands in for it.
func MeanAnomalyAt(el OrbitalElements, t, ref time.Time) float64 {
	epoch := el.Epoch
	if epoch.IsZero() {
		epoch = ref
	}
	dt := t.Sub(epoch).Seconds()
	return wrapAngle(degToRad(el.MeanAnomaly) + MeanMotionRadPerSec(el.MeanMotion)*dt)
}

func wrapAngle(a float64) float64 {
	w := math.Mod(a, twoPi)
	if w < 0 {
		w += twoPi
	}
	return w
}
