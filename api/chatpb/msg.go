// Package chatpb holds the wire contract shared by every service in the
// messaging fleet: the canonical Msg envelope, the RPC surfaces (Chat, Msg,
// Push, Db) and the codecs used on the broker topic and the WebSocket edge.
//
// All payloads travel as JSON. gRPC methods use the registered "json"
// content-subtype codec (see codec.go), the Kafka topic carries one
// JSON-encoded Msg per record, and WebSocket binary frames carry a
// length-prefixed JSON body (see frame.go).
package chatpb

// Platform identifies the class of client endpoint holding a session.
// A user may be online on several platforms at once; at most one live
// session per (user, platform) exists on a given gateway node.
type Platform int32

const (
	PlatformUnknown Platform = iota
	PlatformMobile
	PlatformDesktop
)

func (p Platform) String() string {
	switch p {
	case PlatformMobile:
		return "mobile"
	case PlatformDesktop:
		return "desktop"
	default:
		return "unknown"
	}
}

// ParsePlatform maps the path segment of the WS connect URL to a Platform.
func ParsePlatform(s string) Platform {
	switch s {
	case "mobile", "Mobile":
		return PlatformMobile
	case "desktop", "Desktop":
		return PlatformDesktop
	default:
		return PlatformUnknown
	}
}

// ContentType describes the payload carried in Msg.Content.
type ContentType int32

const (
	ContentTypeDefault ContentType = iota
	ContentTypeText
	ContentTypeImage
	ContentTypeAudio
	ContentTypeVideo
	ContentTypeFile
	ContentTypeEmoji
	ContentTypeError
)

// MsgType drives the whole delivery pipeline: classification (single vs
// group), sequence allocation, persistence routing and receipt handling all
// key off this value. The routing table lives in internal/domain/model.
type MsgType int32

const (
	MsgTypeSingleMsg MsgType = iota
	MsgTypeSingleCallInvite
	MsgTypeSingleCallInviteNotAnswer
	MsgTypeSingleCallInviteCancel
	MsgTypeSingleCallOffer
	MsgTypeHangup
	MsgTypeConnectSingleCall
	MsgTypeRejectSingleCall
	MsgTypeAgreeSingleCall
	MsgTypeCandidate

	MsgTypeGroupMsg
	MsgTypeGroupFile
	MsgTypeGroupPoll
	MsgTypeGroupAnnouncement
	MsgTypeGroupInvitation
	MsgTypeGroupInviteNew
	MsgTypeGroupMemberExit
	MsgTypeGroupRemoveMember
	MsgTypeGroupDismiss
	MsgTypeGroupUpdate
	MsgTypeGroupMute

	MsgTypeGroupDismissOrExitReceived
	MsgTypeGroupInvitationReceived
	MsgTypeFriendshipReceived

	MsgTypeFriendApplyReq
	MsgTypeFriendApplyResp
	MsgTypeFriendBlack
	MsgTypeFriendDelete

	MsgTypeRead
	MsgTypeMsgRecResp
	MsgTypeNotification
	MsgTypeService
)

// Msg is the canonical envelope. The same shape crosses the WebSocket edge,
// the ingress RPC, the Kafka topic, both stores and the push fan-out.
type Msg struct {
	// ClientID is the sender-minted idempotency key; non-empty on originals.
	ClientID string `json:"client_id" bson:"client_id"`
	// ServerID is minted by the ingress service, except for receipt-ack
	// subtypes where it references the message being acknowledged.
	ServerID   string      `json:"server_id" bson:"server_id"`
	SenderID   string      `json:"send_id" bson:"send_id"`
	ReceiverID string      `json:"receiver_id" bson:"receiver_id"`
	Platform   Platform    `json:"platform" bson:"platform"`
	MsgType    MsgType     `json:"msg_type" bson:"msg_type"`
	ContentType ContentType `json:"content_type" bson:"content_type"`
	Content    []byte      `json:"content" bson:"content"`
	// SendTime is stamped by the ingress service, milliseconds since epoch.
	SendTime int64 `json:"send_time" bson:"send_time"`
	// SendSeq is the sender's outbound counter value at publish time.
	SendSeq int64 `json:"send_seq" bson:"send_seq"`
	// Seq is the receiver's inbound counter value; 0 on sender-mirror copies
	// and on control messages outside recipient ordering.
	Seq    int64 `json:"seq" bson:"seq"`
	IsRead bool  `json:"is_read" bson:"is_read"`
	// GroupID mirrors ReceiverID for group messages.
	GroupID string `json:"group_id,omitempty" bson:"group_id,omitempty"`
	// RelatedMsgID optionally references an earlier ServerID
	// (cancel / hangup / read).
	RelatedMsgID string `json:"related_msg_id,omitempty" bson:"related_msg_id,omitempty"`
}

// Clone returns a shallow copy sharing the Content slice. Content is treated
// as immutable once a message enters the pipeline.
func (m *Msg) Clone() *Msg {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// GroupMemSeq carries one member's freshly allocated receive sequence through
// the group fan-out path. NeedUpdate flags members whose persisted max
// crossed a checkpoint step during allocation.
type GroupMemSeq struct {
	MemID      string `json:"mem_id"`
	CurSeq     int64  `json:"cur_seq"`
	NeedUpdate bool   `json:"need_update"`
}

// MsgRead is the Content payload of a MsgTypeRead message.
type MsgRead struct {
	UserID string  `json:"user_id"`
	MsgSeq []int64 `json:"msg_seq"`
}
