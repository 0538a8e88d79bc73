package orbitrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orbitview/model"
)

// Client is a typed client for the orbit service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSatellites loads a catalog page on the server. page <= 0 asks for the
// server's current page.
func (c *Client) ListSatellites(ctx context.Context, page int, opts ...grpc.CallOption) (model.Page, error) {
	m := map[string]any{}
	if page > 0 {
		m[fieldPage] = page
	}
	in, err := newStruct(m)
	if err != nil {
		return model.Page{}, err
	}
	out, err := c.invoke(ctx, ListSatellitesFullMethod, in, opts...)
	if err != nil {
		return model.Page{}, err
	}
	return decodePage(out), nil
}

// SelectSatellite makes id the server's current selection.
func (c *Client) SelectSatellite(ctx context.Context, id int, opts ...grpc.CallOption) (model.Satellite, error) {
	in, err := newStruct(map[string]any{fieldSatelliteID: id})
	if err != nil {
		return model.Satellite{}, err
	}
	out, err := c.invoke(ctx, SelectSatelliteFullMethod, in, opts...)
	if err != nil {
		return model.Satellite{}, err
	}
	return decodeSatellite(out), nil
}

// GetElements returns the parsed elements for sel.
func (c *Client) GetElements(ctx context.Context, sel Selector, opts ...grpc.CallOption) (ElementsResponse, error) {
	m := map[string]any{}
	sel.put(m)
	in, err := newStruct(m)
	if err != nil {
		return ElementsResponse{}, err
	}
	out, err := c.invoke(ctx, GetElementsFullMethod, in, opts...)
	if err != nil {
		return ElementsResponse{}, err
	}
	return decodeElements(out), nil
}

// GetTrajectory samples an orbit segment on the server.
func (c *Client) GetTrajectory(ctx context.Context, req TrajectoryRequest, opts ...grpc.CallOption) (TrajectoryResponse, error) {
	in, err := encodeTrajectoryRequest(req)
	if err != nil {
		return TrajectoryResponse{}, err
	}
	out, err := c.invoke(ctx, GetTrajectoryFullMethod, in, opts...)
	if err != nil {
		return TrajectoryResponse{}, err
	}
	return decodeTrajectory(out), nil
}

// GetPosition returns a single position.
func (c *Client) GetPosition(ctx context.Context, req PositionRequest, opts ...grpc.CallOption) (PositionResponse, error) {
	in, err := encodePositionRequest(req)
	if err != nil {
		return PositionResponse{}, err
	}
	out, err := c.invoke(ctx, GetPositionFullMethod, in, opts...)
	if err != nil {
		return PositionResponse{}, err
	}
	return decodePosition(out), nil
}
