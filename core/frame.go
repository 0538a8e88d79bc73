package core

import (
	"fmt"
	"strings"
)

// Frame selects the coordinate frame of sampled trajectory points.
type Frame int

const (
	// FrameAuto keeps each propagator's customary frame: inertial for the
	// two-body model, Earth-fixed for SGP4.
	FrameAuto Frame = iota
	// FrameInertial leaves points in the propagator's inertial frame.
	FrameInertial
	// FrameEarthFixed rotates every point by Greenwich sidereal time at its
	// sample instant.
	FrameEarthFixed
)

func (f Frame) String() string {
	switch f {
	case FrameAuto:
		return "auto"
	case FrameInertial:
		return "inertial"
	case FrameEarthFixed:
		return "earth_fixed"
	default:
		return fmt.Sprintf("Frame(%d)", int(f))
	}
}

// ParseFrame maps "auto", "inertial" or "earth_fixed" (case-insensitive, with
// the eci/ecef aliases) to a frame. The empty string selects FrameAuto.
func ParseFrame(s string) (Frame, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FrameAuto, nil
	case "inertial", "eci", "teme":
		return FrameInertial, nil
	case "earth_fixed", "earth-fixed", "ecef", "ecf":
		return FrameEarthFixed, nil
	default:
		return 0, fmt.Errorf("unknown frame %q", s)
	}
}

// Resolve replaces FrameAuto with the customary frame for kind.
func (f Frame) Resolve(kind PropagatorKind) Frame {
	if f != FrameAuto {
		return f
	}
	if kind == PropagatorSGP4 {
		return FrameEarthFixed
	}
	return FrameInertial
}
