// Package model holds the delivery-pipeline domain rules: the message
// routing table that decides sequencing and persistence per message type,
// and the platform mirroring rule for sender echoes.
package model

import "github.com/webitel/im-chat-service/api/chatpb"

// Domain splits the pipeline into its two fan-out shapes.
type Domain int16

const (
	DomainSingle Domain = iota + 1
	DomainGroup
)

// Route describes how the consumer must treat one message type.
// The table below is the single source of truth; handlers look routes up
// instead of switching on types inline.
type Route struct {
	Domain Domain
	// NeedRecvSeq allocates the receiver's (or each group member's) inbound
	// sequence before persistence.
	NeedRecvSeq bool
	// NeedHistory appends the message to the durable ledger.
	NeedHistory bool
	// Transient skips both the ledger and the inbox (call signalling).
	Transient bool
	// ReceiptAck deletes the inbox row referenced by ServerID instead of
	// inserting a new one.
	ReceiptAck bool
}

var routes = map[chatpb.MsgType]Route{
	// Single messages that order, persist and replay.
	chatpb.MsgTypeSingleMsg:                 {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeSingleCallInviteNotAnswer: {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeSingleCallInviteCancel:    {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeHangup:                    {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeRejectSingleCall:          {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeFriendApplyReq:            {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeFriendApplyResp:           {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeFriendDelete:              {Domain: DomainSingle, NeedRecvSeq: true, NeedHistory: true},

	// Group messages with a ledger record.
	chatpb.MsgTypeGroupMsg:          {Domain: DomainGroup, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeGroupFile:         {Domain: DomainGroup, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeGroupPoll:         {Domain: DomainGroup, NeedRecvSeq: true, NeedHistory: true},
	chatpb.MsgTypeGroupAnnouncement: {Domain: DomainGroup, NeedRecvSeq: true, NeedHistory: true},

	// Group control traffic: inbox only, still per-member ordered.
	chatpb.MsgTypeGroupInvitation:   {Domain: DomainGroup, NeedRecvSeq: true},
	chatpb.MsgTypeGroupInviteNew:    {Domain: DomainGroup, NeedRecvSeq: true},
	chatpb.MsgTypeGroupMemberExit:   {Domain: DomainGroup, NeedRecvSeq: true},
	chatpb.MsgTypeGroupRemoveMember: {Domain: DomainGroup, NeedRecvSeq: true},
	chatpb.MsgTypeGroupDismiss:      {Domain: DomainGroup, NeedRecvSeq: true},
	chatpb.MsgTypeGroupUpdate:       {Domain: DomainGroup, NeedRecvSeq: true},
	chatpb.MsgTypeGroupMute:         {Domain: DomainGroup, NeedRecvSeq: true},

	// Delivery receipts: purge the referenced inbox row.
	chatpb.MsgTypeGroupDismissOrExitReceived: {Domain: DomainSingle, ReceiptAck: true},
	chatpb.MsgTypeGroupInvitationReceived:    {Domain: DomainSingle, ReceiptAck: true},
	chatpb.MsgTypeFriendshipReceived:         {Domain: DomainSingle, ReceiptAck: true},

	// Call signalling is relayed live and never stored. ConnectSingleCall
	// rides with the transient set: it carries no replayable content, and
	// allocating a receive seq for a row that is never written would only
	// punch holes in the recipient's inbox range.
	chatpb.MsgTypeSingleCallInvite: {Domain: DomainSingle, Transient: true},
	chatpb.MsgTypeAgreeSingleCall:  {Domain: DomainSingle, Transient: true},
	chatpb.MsgTypeSingleCallOffer:  {Domain: DomainSingle, Transient: true},
	chatpb.MsgTypeCandidate:        {Domain: DomainSingle, Transient: true},
	chatpb.MsgTypeConnectSingleCall: {Domain: DomainSingle, Transient: true},

	// Unordered single traffic, inbox only.
	chatpb.MsgTypeFriendBlack:  {Domain: DomainSingle},
	chatpb.MsgTypeMsgRecResp:   {Domain: DomainSingle},
	chatpb.MsgTypeNotification: {Domain: DomainSingle},
	chatpb.MsgTypeService:      {Domain: DomainSingle},
}

// Classify resolves the route for a message type. Unknown types fall back to
// unordered single delivery so that new client builds degrade instead of
// dropping traffic.
func Classify(t chatpb.MsgType) Route {
	if r, ok := routes[t]; ok {
		return r
	}
	return Route{Domain: DomainSingle}
}

// IsReadUpdate reports whether the message is an is_read bulk update rather
// than a deliverable message; its Content decodes as chatpb.MsgRead.
func IsReadUpdate(t chatpb.MsgType) bool {
	return t == chatpb.MsgTypeRead
}

// ReceiptAckTypes is exported for the ingress service: for these types the
// inbound ServerID references the message being purged and must be kept.
func IsReceiptAck(t chatpb.MsgType) bool {
	return routes[t].ReceiptAck
}

// MirrorPlatform returns the platform set that should receive the sender's
// own copy of an outbound message.
func MirrorPlatform(p chatpb.Platform) chatpb.Platform {
	switch p {
	case chatpb.PlatformMobile:
		return chatpb.PlatformDesktop
	case chatpb.PlatformDesktop:
		return chatpb.PlatformMobile
	default:
		return chatpb.PlatformUnknown
	}
}
