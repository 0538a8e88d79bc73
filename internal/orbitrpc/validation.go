package orbitrpc

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orbitview/core"
)

// MaxNumPoints bounds a single trajectory request.
const MaxNumPoints = 10000

// sampleOptionsFromRequest overlays the request's sampling fields onto the
// server defaults. Start is left for the caller.
func sampleOptionsFromRequest(req *structpb.Struct, defaults core.SampleOptions) (core.SampleOptions, error) {
	opts := defaults

	n, ok, err := intField(req, fieldNumPoints)
	if err != nil {
		return opts, err
	}
	if ok {
		if n < 0 || n > MaxNumPoints {
			return opts, fmt.Errorf("%w: num_points must be in [0, %d], got %d", ErrInvalidRequest, MaxNumPoints, n)
		}
		opts.NumPoints = n
	}

	f, ok, err := numberField(req, fieldOrbitFraction)
	if err != nil {
		return opts, err
	}
	if ok {
		if math.IsNaN(f) || f <= 0 || f > 1 {
			return opts, fmt.Errorf("%w: orbit_fraction must be in (0, 1], got %v", ErrInvalidRequest, f)
		}
		opts.OrbitFraction = f
	}

	if err := rotationFromRequest(req, &opts.Rotation); err != nil {
		return opts, err
	}
	if err := propagatorFromRequest(req, &opts.Propagator); err != nil {
		return opts, err
	}
	if err := frameFromRequest(req, &opts.Frame); err != nil {
		return opts, err
	}
	return opts, nil
}

func rotationFromRequest(req *structpb.Struct, dst *core.RotationMode) error {
	raw, ok, err := stringField(req, fieldRotation)
	if err != nil || !ok {
		return err
	}
	mode, err := core.ParseRotationMode(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	*dst = mode
	return nil
}

func propagatorFromRequest(req *structpb.Struct, dst *core.PropagatorKind) error {
	raw, ok, err := stringField(req, fieldPropagator)
	if err != nil || !ok {
		return err
	}
	kind, err := core.ParsePropagatorKind(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	*dst = kind
	return nil
}

func frameFromRequest(req *structpb.Struct, dst *core.Frame) error {
	raw, ok, err := stringField(req, fieldFrame)
	if err != nil || !ok {
		return err
	}
	frame, err := core.ParseFrame(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	*dst = frame
	return nil
}

// requestTime returns the request's time field, or now when it is unset.
// The bool reports whether the request carried the time.
func requestTime(req *structpb.Struct, now func() time.Time) (time.Time, bool, error) {
	t, ok, err := timeField(req, fieldTime)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ok {
		return now(), false, nil
	}
	return t, true, nil
}
