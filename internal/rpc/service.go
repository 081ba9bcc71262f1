package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region service-interfaces
// QualityServiceServer is the server API of quality.v1.QualityService.
// Messages are protobuf well-known types so no generated package is needed.
type QualityServiceServer interface {
	GetLevel(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	GetSettings(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetLevel(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetMetrics(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ReportVisibility(context.Context, *wrapperspb.BoolValue) (*wrapperspb.StringValue, error)
	WatchTransitions(*emptypb.Empty, grpc.ServerStream) error
}

// QualityServiceClient is the client API of quality.v1.QualityService.
type QualityServiceClient interface {
	GetLevel(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	GetSettings(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetLevel(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetMetrics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ReportVisibility(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	WatchTransitions(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ClientStream, error)
}

// #endregion service-interfaces

// #region service-desc
const serviceName = "quality.v1.QualityService"

// ServiceDesc describes quality.v1.QualityService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*QualityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetLevel", Handler: getLevelHandler},
		{MethodName: "GetSettings", Handler: getSettingsHandler},
		{MethodName: "SetLevel", Handler: setLevelHandler},
		{MethodName: "GetMetrics", Handler: getMetricsHandler},
		{MethodName: "ReportVisibility", Handler: reportVisibilityHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchTransitions", Handler: watchTransitionsHandler, ServerStreams: true},
	},
	Metadata: "quality/v1/quality.proto",
}

// RegisterQualityServiceServer attaches srv to s.
func RegisterQualityServiceServer(s grpc.ServiceRegistrar, srv QualityServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// #endregion service-desc

// #region handlers
func getLevelHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QualityServiceServer).GetLevel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetLevel")}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QualityServiceServer).GetLevel(ctx, req.(*emptypb.Empty))
	})
}

func getSettingsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QualityServiceServer).GetSettings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetSettings")}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QualityServiceServer).GetSettings(ctx, req.(*emptypb.Empty))
	})
}

func setLevelHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QualityServiceServer).SetLevel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("SetLevel")}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QualityServiceServer).SetLevel(ctx, req.(*wrapperspb.StringValue))
	})
}

func getMetricsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QualityServiceServer).GetMetrics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetMetrics")}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QualityServiceServer).GetMetrics(ctx, req.(*emptypb.Empty))
	})
}

func reportVisibilityHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BoolValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QualityServiceServer).ReportVisibility(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("ReportVisibility")}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QualityServiceServer).ReportVisibility(ctx, req.(*wrapperspb.BoolValue))
	})
}

func watchTransitionsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(QualityServiceServer).WatchTransitions(in, stream)
}

// #endregion handlers

// #region client-stub
type qualityServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewQualityServiceClient wraps a connection in the raw service client.
func NewQualityServiceClient(cc grpc.ClientConnInterface) QualityServiceClient {
	return &qualityServiceClient{cc: cc}
}

func (c *qualityServiceClient) GetLevel(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("GetLevel"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *qualityServiceClient) GetSettings(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetSettings"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *qualityServiceClient) SetLevel(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("SetLevel"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *qualityServiceClient) GetMetrics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetMetrics"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *qualityServiceClient) ReportVisibility(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("ReportVisibility"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchTransitions opens the server stream; read it with RecvMsg into
// *structpb.Struct values.
func (c *qualityServiceClient) WatchTransitions(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchTransitions"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}

// #endregion client-stub
