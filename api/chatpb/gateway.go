package chatpb

import (
	"context"

	"google.golang.org/grpc"
)

// MsgService is the gateway-side surface the pusher fans out to. Every
// gateway instance serves it; each one delivers only to sessions it hosts.

const (
	MsgServiceName                        = "im.msg.v1.Msg"
	Msg_SendMessage_FullMethodName        = "/im.msg.v1.Msg/SendMessage"
	Msg_SendMsgToUser_FullMethodName      = "/im.msg.v1.Msg/SendMsgToUser"
	Msg_SendGroupMsgToUser_FullMethodName = "/im.msg.v1.Msg/SendGroupMsgToUser"
)

type SendGroupMsgRequest struct {
	Message *Msg           `json:"message"`
	MemSeqs []*GroupMemSeq `json:"mem_seqs"`
}

type SendMsgResponse struct{}

type MsgServer interface {
	// SendMessage injects server-originated traffic into the gateway's
	// broadcast pipeline.
	SendMessage(context.Context, *SendMsgRequest) (*SendMsgResponse, error)
	// SendMsgToUser delivers to every locally hosted platform session of the
	// receiver.
	SendMsgToUser(context.Context, *SendMsgRequest) (*SendMsgResponse, error)
	// SendGroupMsgToUser delivers one per-member copy, seq-stamped from the
	// carried GroupMemSeq batch, to members hosted on this node.
	SendGroupMsgToUser(context.Context, *SendGroupMsgRequest) (*SendMsgResponse, error)
}

type MsgClient interface {
	SendMessage(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error)
	SendMsgToUser(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error)
	SendGroupMsgToUser(ctx context.Context, in *SendGroupMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error)
}

type msgClient struct {
	cc grpc.ClientConnInterface
}

func NewMsgClient(cc grpc.ClientConnInterface) MsgClient {
	return &msgClient{cc: cc}
}

func (c *msgClient) SendMessage(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error) {
	out := new(SendMsgResponse)
	if err := c.cc.Invoke(ctx, Msg_SendMessage_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *msgClient) SendMsgToUser(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error) {
	out := new(SendMsgResponse)
	if err := c.cc.Invoke(ctx, Msg_SendMsgToUser_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *msgClient) SendGroupMsgToUser(ctx context.Context, in *SendGroupMsgRequest, opts ...grpc.CallOption) (*SendMsgResponse, error) {
	out := new(SendMsgResponse)
	if err := c.cc.Invoke(ctx, Msg_SendGroupMsgToUser_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterMsgServer(s grpc.ServiceRegistrar, srv MsgServer) {
	s.RegisterService(&Msg_ServiceDesc, srv)
}

func _Msg_SendMessage_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendMsgRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MsgServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Msg_SendMessage_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MsgServer).SendMessage(ctx, req.(*SendMsgRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Msg_SendMsgToUser_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendMsgRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MsgServer).SendMsgToUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Msg_SendMsgToUser_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MsgServer).SendMsgToUser(ctx, req.(*SendMsgRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Msg_SendGroupMsgToUser_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendGroupMsgRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MsgServer).SendGroupMsgToUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Msg_SendGroupMsgToUser_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MsgServer).SendGroupMsgToUser(ctx, req.(*SendGroupMsgRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Msg_ServiceDesc = grpc.ServiceDesc{
	ServiceName: MsgServiceName,
	HandlerType: (*MsgServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendMessage", Handler: _Msg_SendMessage_Handler},
		{MethodName: "SendMsgToUser", Handler: _Msg_SendMsgToUser_Handler},
		{MethodName: "SendGroupMsgToUser", Handler: _Msg_SendGroupMsgToUser_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gateway.go",
}
