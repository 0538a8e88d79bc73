package orbitrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "orbitview.v1.OrbitService"

const (
	ListSatellitesFullMethod  = "/" + ServiceName + "/ListSatellites"
	SelectSatelliteFullMethod = "/" + ServiceName + "/SelectSatellite"
	GetElementsFullMethod     = "/" + ServiceName + "/GetElements"
	GetTrajectoryFullMethod   = "/" + ServiceName + "/GetTrajectory"
	GetPositionFullMethod     = "/" + ServiceName + "/GetPosition"
)

// OrbitServiceServer is the server API for the orbit service. Requests and
// responses are google.protobuf.Struct messages; messages.go documents the
// field layout of each.
type OrbitServiceServer interface {
	ListSatellites(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectSatellite(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetElements(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTrajectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPosition(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(OrbitServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrbitServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(OrbitServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OrbitServiceDesc describes the service for grpc.Server.RegisterService.
var OrbitServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrbitServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListSatellites",
			Handler:    unaryHandler(ListSatellitesFullMethod, OrbitServiceServer.ListSatellites),
		},
		{
			MethodName: "SelectSatellite",
			Handler:    unaryHandler(SelectSatelliteFullMethod, OrbitServiceServer.SelectSatellite),
		},
		{
			MethodName: "GetElements",
			Handler:    unaryHandler(GetElementsFullMethod, OrbitServiceServer.GetElements),
		},
		{
			MethodName: "GetTrajectory",
			Handler:    unaryHandler(GetTrajectoryFullMethod, OrbitServiceServer.GetTrajectory),
		},
		{
			MethodName: "GetPosition",
			Handler:    unaryHandler(GetPositionFullMethod, OrbitServiceServer.GetPosition),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orbitview/v1/orbit_service.proto",
}

// RegisterOrbitServiceServer registers srv with a gRPC server.
func RegisterOrbitServiceServer(s grpc.ServiceRegistrar, srv OrbitServiceServer) {
	s.RegisterService(&OrbitServiceDesc, srv)
}
