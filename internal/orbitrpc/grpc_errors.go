package orbitrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/catalog"
	"github.com/signalsfoundry/orbitview/kb"
)

var (
	// ErrNotFound is used when a satellite cannot be located anywhere.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest marks client-side validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCatalogUnavailable wraps failures of the upstream catalog.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// ToStatusError maps service errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, kb.ErrSatelliteNotFound),
		errors.Is(err, catalog.ErrSatelliteNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, core.ErrMalformedTLE):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, ErrCatalogUnavailable),
		errors.Is(err, catalog.ErrUnexpectedStatus):
		return status.Error(codes.Unavailable, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
