package orbitrpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/catalog"
	"github.com/signalsfoundry/orbitview/kb"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "invalid request", err: fmt.Errorf("%w: num_points", ErrInvalidRequest), code: codes.InvalidArgument},
		{name: "malformed tle", err: fmt.Errorf("parse: %w", core.ErrMalformedTLE), code: codes.InvalidArgument},
		{name: "kb not found", err: fmt.Errorf("%w: 7", kb.ErrSatelliteNotFound), code: codes.NotFound},
		{name: "catalog 404 wrapped by pkg/errors", err: pkgerrors.Wrap(catalog.ErrSatelliteNotFound, "fetch satellite 7"), code: codes.NotFound},
		{name: "not found beats unavailable", err: fmt.Errorf("%w: %w", ErrCatalogUnavailable, catalog.ErrSatelliteNotFound), code: codes.NotFound},
		{name: "upstream status", err: pkgerrors.Wrapf(catalog.ErrUnexpectedStatus, "status %d", 503), code: codes.Unavailable},
		{name: "catalog unavailable", err: ErrCatalogUnavailable, code: codes.Unavailable},
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), code: codes.DeadlineExceeded},
		{name: "canceled", err: context.Canceled, code: codes.Canceled},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}
