package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-chat-service/api/chatpb"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildCleanFilter(t *testing.T) {
	filter := BuildCleanFilter(1700000000000, []int32{
		int32(chatpb.MsgTypeNotification),
		int32(chatpb.MsgTypeService),
	})

	sendTime, ok := filter["send_time"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), sendTime["$lt"])

	msgType, ok := filter["msg_type"].(bson.M)
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]chatpb.MsgType{chatpb.MsgTypeNotification, chatpb.MsgTypeService},
		msgType["$nin"])
}

func TestBuildCleanFilterNoExclusions(t *testing.T) {
	filter := BuildCleanFilter(42, nil)
	assert.NotContains(t, filter, "msg_type")
	assert.Contains(t, filter, "send_time")
}
