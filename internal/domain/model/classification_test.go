package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/webitel/im-chat-service/api/chatpb"
)

func TestClassifySingleOrdered(t *testing.T) {
	for _, mt := range []chatpb.MsgType{
		chatpb.MsgTypeSingleMsg,
		chatpb.MsgTypeSingleCallInviteNotAnswer,
		chatpb.MsgTypeSingleCallInviteCancel,
		chatpb.MsgTypeHangup,
		chatpb.MsgTypeRejectSingleCall,
		chatpb.MsgTypeFriendApplyReq,
		chatpb.MsgTypeFriendApplyResp,
		chatpb.MsgTypeFriendDelete,
	} {
		r := Classify(mt)
		assert.Equal(t, DomainSingle, r.Domain, "type %d", mt)
		assert.True(t, r.NeedRecvSeq, "type %d", mt)
		assert.True(t, r.NeedHistory, "type %d", mt)
		assert.False(t, r.Transient, "type %d", mt)
		assert.False(t, r.ReceiptAck, "type %d", mt)
	}
}

func TestClassifyGroup(t *testing.T) {
	withHistory := []chatpb.MsgType{
		chatpb.MsgTypeGroupMsg,
		chatpb.MsgTypeGroupFile,
		chatpb.MsgTypeGroupPoll,
		chatpb.MsgTypeGroupAnnouncement,
	}
	controlOnly := []chatpb.MsgType{
		chatpb.MsgTypeGroupInvitation,
		chatpb.MsgTypeGroupInviteNew,
		chatpb.MsgTypeGroupMemberExit,
		chatpb.MsgTypeGroupRemoveMember,
		chatpb.MsgTypeGroupDismiss,
		chatpb.MsgTypeGroupUpdate,
		chatpb.MsgTypeGroupMute,
	}

	for _, mt := range withHistory {
		r := Classify(mt)
		assert.Equal(t, DomainGroup, r.Domain, "type %d", mt)
		assert.True(t, r.NeedRecvSeq && r.NeedHistory, "type %d", mt)
	}
	for _, mt := range controlOnly {
		r := Classify(mt)
		assert.Equal(t, DomainGroup, r.Domain, "type %d", mt)
		assert.True(t, r.NeedRecvSeq, "type %d", mt)
		assert.False(t, r.NeedHistory, "type %d", mt)
	}
}

// Call signalling must never reach either store.
func TestClassifyTransientNeverPersisted(t *testing.T) {
	for _, mt := range []chatpb.MsgType{
		chatpb.MsgTypeSingleCallInvite,
		chatpb.MsgTypeAgreeSingleCall,
		chatpb.MsgTypeSingleCallOffer,
		chatpb.MsgTypeCandidate,
		chatpb.MsgTypeConnectSingleCall,
	} {
		r := Classify(mt)
		assert.True(t, r.Transient, "type %d", mt)
		assert.False(t, r.NeedHistory, "type %d", mt)
		assert.False(t, r.NeedRecvSeq, "type %d", mt)
	}
}

func TestClassifyReceiptAck(t *testing.T) {
	for _, mt := range []chatpb.MsgType{
		chatpb.MsgTypeGroupDismissOrExitReceived,
		chatpb.MsgTypeGroupInvitationReceived,
		chatpb.MsgTypeFriendshipReceived,
	} {
		r := Classify(mt)
		assert.True(t, r.ReceiptAck, "type %d", mt)
		assert.True(t, IsReceiptAck(mt), "type %d", mt)
		assert.False(t, r.NeedRecvSeq, "type %d", mt)
		assert.False(t, r.NeedHistory, "type %d", mt)
	}
	assert.False(t, IsReceiptAck(chatpb.MsgTypeSingleMsg))
}

func TestClassifyUnknownFallsBack(t *testing.T) {
	r := Classify(chatpb.MsgType(9999))
	assert.Equal(t, DomainSingle, r.Domain)
	assert.False(t, r.NeedRecvSeq)
	assert.False(t, r.Transient)
}

func TestIsReadUpdate(t *testing.T) {
	assert.True(t, IsReadUpdate(chatpb.MsgTypeRead))
	assert.False(t, IsReadUpdate(chatpb.MsgTypeSingleMsg))
}

func TestMirrorPlatform(t *testing.T) {
	assert.Equal(t, chatpb.PlatformDesktop, MirrorPlatform(chatpb.PlatformMobile))
	assert.Equal(t, chatpb.PlatformMobile, MirrorPlatform(chatpb.PlatformDesktop))
	assert.Equal(t, chatpb.PlatformUnknown, MirrorPlatform(chatpb.PlatformUnknown))
}
