package chatpb

import (
	"context"

	"google.golang.org/grpc"
)

// Db is the storage-facing surface: inbox persistence, offline catch-up
// range scans, and the group membership operations the fan-out path needs.
// User / friend CRUD lives in another service.

const (
	DbServiceName                     = "im.db.v1.DbService"
	Db_SaveMessage_FullMethodName     = "/im.db.v1.DbService/SaveMessage"
	Db_GetMessages_FullMethodName     = "/im.db.v1.DbService/GetMessages"
	Db_GetMsgs_FullMethodName         = "/im.db.v1.DbService/GetMsgs"
	Db_DeleteMessages_FullMethodName  = "/im.db.v1.DbService/DeleteMessages"
	Db_GroupCreate_FullMethodName     = "/im.db.v1.DbService/GroupCreate"
	Db_GroupUpdate_FullMethodName     = "/im.db.v1.DbService/GroupUpdate"
	Db_GroupDelete_FullMethodName     = "/im.db.v1.DbService/GroupDelete"
	Db_GroupMemberExit_FullMethodName = "/im.db.v1.DbService/GroupMemberExit"
	Db_GroupMembersId_FullMethodName  = "/im.db.v1.DbService/GroupMembersId"
)

type SaveMessageRequest struct {
	Message *Msg `json:"message"`
	// NeedToHistory also appends the message to the durable ledger.
	NeedToHistory bool `json:"need_to_history"`
}

type SaveMessageResponse struct{}

type GetMessagesRequest struct {
	UserID string `json:"user_id"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
}

// GetMsgsRequest unions the receive range with the caller's own sent range.
type GetMsgsRequest struct {
	UserID    string `json:"user_id"`
	SendStart int64  `json:"send_start"`
	SendEnd   int64  `json:"send_end"`
	RecStart  int64  `json:"rec_start"`
	RecEnd    int64  `json:"rec_end"`
}

type GetMsgsResponse struct {
	Messages []*Msg `json:"messages"`
}

type DeleteMessagesRequest struct {
	UserID string  `json:"user_id"`
	Seqs   []int64 `json:"seqs"`
}

type DeleteMessagesResponse struct{}

type GroupCreateRequest struct {
	GroupID  string   `json:"group_id"`
	AdminID  string   `json:"admin_id"`
	MemberIDs []string `json:"member_ids"`
}

type GroupUpdateRequest struct {
	GroupID   string   `json:"group_id"`
	AddMembers []string `json:"add_members"`
}

type GroupDeleteRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type GroupMemberExitRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type GroupMembersIdRequest struct {
	GroupID string `json:"group_id"`
}

type GroupMembersIdResponse struct {
	MemberIDs []string `json:"member_ids"`
}

type GroupResponse struct{}

type DbServer interface {
	SaveMessage(context.Context, *SaveMessageRequest) (*SaveMessageResponse, error)
	// GetMessages streams inbox rows with seq in [start, end], ascending.
	GetMessages(*GetMessagesRequest, Db_GetMessagesServer) error
	GetMsgs(context.Context, *GetMsgsRequest) (*GetMsgsResponse, error)
	DeleteMessages(context.Context, *DeleteMessagesRequest) (*DeleteMessagesResponse, error)
	GroupCreate(context.Context, *GroupCreateRequest) (*GroupResponse, error)
	GroupUpdate(context.Context, *GroupUpdateRequest) (*GroupResponse, error)
	GroupDelete(context.Context, *GroupDeleteRequest) (*GroupResponse, error)
	GroupMemberExit(context.Context, *GroupMemberExitRequest) (*GroupResponse, error)
	GroupMembersId(context.Context, *GroupMembersIdRequest) (*GroupMembersIdResponse, error)
}

type Db_GetMessagesServer interface {
	Send(*Msg) error
	grpc.ServerStream
}

type dbGetMessagesServer struct {
	grpc.ServerStream
}

func (x *dbGetMessagesServer) Send(m *Msg) error {
	return x.ServerStream.SendMsg(m)
}

type Db_GetMessagesClient interface {
	Recv() (*Msg, error)
	grpc.ClientStream
}

type dbGetMessagesClient struct {
	grpc.ClientStream
}

func (x *dbGetMessagesClient) Recv() (*Msg, error) {
	m := new(Msg)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type DbClient interface {
	SaveMessage(ctx context.Context, in *SaveMessageRequest, opts ...grpc.CallOption) (*SaveMessageResponse, error)
	GetMessages(ctx context.Context, in *GetMessagesRequest, opts ...grpc.CallOption) (Db_GetMessagesClient, error)
	GetMsgs(ctx context.Context, in *GetMsgsRequest, opts ...grpc.CallOption) (*GetMsgsResponse, error)
	DeleteMessages(ctx context.Context, in *DeleteMessagesRequest, opts ...grpc.CallOption) (*DeleteMessagesResponse, error)
	GroupCreate(ctx context.Context, in *GroupCreateRequest, opts ...grpc.CallOption) (*GroupResponse, error)
	GroupUpdate(ctx context.Context, in *GroupUpdateRequest, opts ...grpc.CallOption) (*GroupResponse, error)
	GroupDelete(ctx context.Context, in *GroupDeleteRequest, opts ...grpc.CallOption) (*GroupResponse, error)
	GroupMemberExit(ctx context.Context, in *GroupMemberExitRequest, opts ...grpc.CallOption) (*GroupResponse, error)
	GroupMembersId(ctx context.Context, in *GroupMembersIdRequest, opts ...grpc.CallOption) (*GroupMembersIdResponse, error)
}

type dbClient struct {
	cc grpc.ClientConnInterface
}

func NewDbClient(cc grpc.ClientConnInterface) DbClient {
	return &dbClient{cc: cc}
}

func (c *dbClient) SaveMessage(ctx context.Context, in *SaveMessageRequest, opts ...grpc.CallOption) (*SaveMessageResponse, error) {
	out := new(SaveMessageResponse)
	if err := c.cc.Invoke(ctx, Db_SaveMessage_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbClient) GetMessages(ctx context.Context, in *GetMessagesRequest, opts ...grpc.CallOption) (Db_GetMessagesClient, error) {
	stream, err := c.cc.NewStream(ctx, &Db_ServiceDesc.Streams[0], Db_GetMessages_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &dbGetMessagesClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *dbClient) GetMsgs(ctx context.Context, in *GetMsgsRequest, opts ...grpc.CallOption) (*GetMsgsResponse, error) {
	out := new(GetMsgsResponse)
	if err := c.cc.Invoke(ctx, Db_GetMsgs_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbClient) DeleteMessages(ctx context.Context, in *DeleteMessagesRequest, opts ...grpc.CallOption) (*DeleteMessagesResponse, error) {
	out := new(DeleteMessagesResponse)
	if err := c.cc.Invoke(ctx, Db_DeleteMessages_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbClient) GroupCreate(ctx context.Context, in *GroupCreateRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	out := new(GroupResponse)
	if err := c.cc.Invoke(ctx, Db_GroupCreate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbClient) GroupUpdate(ctx context.Context, in *GroupUpdateRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	out := new(GroupResponse)
	if err := c.cc.Invoke(ctx, Db_GroupUpdate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbClient) GroupDelete(ctx context.Context, in *GroupDeleteRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	out := new(GroupResponse)
	if err := c.cc.Invoke(ctx, Db_GroupDelete_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbClient) GroupMemberExit(ctx context.Context, in *GroupMemberExitRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	out := new(GroupResponse)
	if err := c.cc.Invoke(ctx, Db_GroupMemberExit_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbClient) GroupMembersId(ctx context.Context, in *GroupMembersIdRequest, opts ...grpc.CallOption) (*GroupMembersIdResponse, error) {
	out := new(GroupMembersIdResponse)
	if err := c.cc.Invoke(ctx, Db_GroupMembersId_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterDbServer(s grpc.ServiceRegistrar, srv DbServer) {
	s.RegisterService(&Db_ServiceDesc, srv)
}

func _Db_SaveMessage_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SaveMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).SaveMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_SaveMessage_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).SaveMessage(ctx, req.(*SaveMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Db_GetMessages_Handler(srv any, stream grpc.ServerStream) error {
	m := new(GetMessagesRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DbServer).GetMessages(m, &dbGetMessagesServer{stream})
}

func _Db_GetMsgs_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetMsgsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).GetMsgs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_GetMsgs_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).GetMsgs(ctx, req.(*GetMsgsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Db_DeleteMessages_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).DeleteMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_DeleteMessages_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).DeleteMessages(ctx, req.(*DeleteMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Db_GroupCreate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GroupCreateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).GroupCreate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_GroupCreate_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).GroupCreate(ctx, req.(*GroupCreateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Db_GroupUpdate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GroupUpdateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).GroupUpdate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_GroupUpdate_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).GroupUpdate(ctx, req.(*GroupUpdateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Db_GroupDelete_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GroupDeleteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).GroupDelete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_GroupDelete_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).GroupDelete(ctx, req.(*GroupDeleteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Db_GroupMemberExit_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GroupMemberExitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).GroupMemberExit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_GroupMemberExit_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).GroupMemberExit(ctx, req.(*GroupMemberExitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Db_GroupMembersId_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GroupMembersIdRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DbServer).GroupMembersId(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Db_GroupMembersId_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DbServer).GroupMembersId(ctx, req.(*GroupMembersIdRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Db_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DbServiceName,
	HandlerType: (*DbServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SaveMessage", Handler: _Db_SaveMessage_Handler},
		{MethodName: "GetMsgs", Handler: _Db_GetMsgs_Handler},
		{MethodName: "DeleteMessages", Handler: _Db_DeleteMessages_Handler},
		{MethodName: "GroupCreate", Handler: _Db_GroupCreate_Handler},
		{MethodName: "GroupUpdate", Handler: _Db_GroupUpdate_Handler},
		{MethodName: "GroupDelete", Handler: _Db_GroupDelete_Handler},
		{MethodName: "GroupMemberExit", Handler: _Db_GroupMemberExit_Handler},
		{MethodName: "GroupMembersId", Handler: _Db_GroupMembersId_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetMessages",
			Handler:       _Db_GetMessages_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "db.go",
}
