package chatpb

import (
	"context"

	"google.golang.org/grpc"
)

// Push is the fan-out surface served by the pusher: one call here reaches
// every registered gateway instance.

const (
	PushServiceName                  = "im.push.v1.Push"
	Push_PushSingleMsg_FullMethodName = "/im.push.v1.Push/PushSingleMsg"
	Push_PushGroupMsg_FullMethodName  = "/im.push.v1.Push/PushGroupMsg"
)

type PushServer interface {
	PushSingleMsg(context.Context, *SendMsgRequest) (*SendMsgResponse, error)
	PushGroupMsg(context.Context, *SendGroupMsgRequest) (*SendMsgResponse, error)
}

type PushClient interface {
	PushSingleMsg(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error)
	PushGroupMsg(ctx context.Context, in *SendGroupMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error)
}

type pushClient struct {
	cc grpc.ClientConnInterface
}

func NewPushClient(cc grpc.ClientConnInterface) PushClient {
	return &pushClient{cc: cc}
}

func (c *pushClient) PushSingleMsg(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error) {
	out := new(SendMsgResponse)
	if err := c.cc.Invoke(ctx, Push_PushSingleMsg_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pushClient) PushGroupMsg(ctx context.Context, in *SendGroupMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error) {
	out := new(SendMsgResponse)
	if err := c.cc.Invoke(ctx, Push_PushGroupMsg_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterPushServer(s grpc.ServiceRegistrar, srv PushServer) {
	s.RegisterService(&Push_ServiceDesc, srv)
}

func _Push_PushSingleMsg_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendMsgRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PushServer).PushSingleMsg(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Push_PushSingleMsg_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PushServer).PushSingleMsg(ctx, req.(*SendMsgRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Push_PushGroupMsg_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendGroupMsgRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PushServer).PushGroupMsg(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Push_PushGroupMsg_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PushServer).PushGroupMsg(ctx, req.(*SendGroupMsgRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Push_ServiceDesc = grpc.ServiceDesc{
	ServiceName: PushServiceName,
	HandlerType: (*PushServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PushSingleMsg", Handler: _Push_PushSingleMsg_Handler},
		{MethodName: "PushGroupMsg", Handler: _Push_PushGroupMsg_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "push.go",
}
