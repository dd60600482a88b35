package chatpb

import (
	"context"

	"google.golang.org/grpc"
)

// Chat is the ingress surface: gateways forward client-submitted messages
// here; the service stamps and publishes them onto the durable topic.

const (
	ChatServiceName        = "im.chat.v1.Chat"
	Chat_SendMsg_FullMethodName = "/im.chat.v1.Chat/SendMsg"
)

type SendMsgRequest struct {
	Message *Msg `json:"message"`
}

// MsgResponse acknowledges an ingress submission. Err is in-band: a non-empty
// value means the publish failed and the sender may retry, while the RPC
// status stays OK.
type MsgResponse struct {
	ClientID string `json:"client_id"`
	ServerID string `json:"server_id"`
	SendTime int64  `json:"send_time"`
	SendSeq  int64  `json:"send_seq"`
	Err      string `json:"err"`
}

type ChatServer interface {
	SendMsg(context.Context, *SendMsgRequest) (*MsgResponse, error)
}

type ChatClient interface {
	SendMsg(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*MsgResponse, error)
}

type chatClient struct {
	cc grpc.ClientConnInterface
}

func NewChatClient(cc grpc.ClientConnInterface) ChatClient {
	return &chatClient{cc: cc}
}

func (c *chatClient) SendMsg(ctx context.Context, in *SendMsgRequest, opts ...grpc.CallOption) (*MsgResponse, error) {
	out := new(MsgResponse)
	if err := c.cc.Invoke(ctx, Chat_SendMsg_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&Chat_ServiceDesc, srv)
}

func _Chat_SendMsg_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendMsgRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServer).SendMsg(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Chat_SendMsg_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServer).SendMsg(ctx, req.(*SendMsgRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Chat_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendMsg",
			Handler:    _Chat_SendMsg_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat.go",
}
