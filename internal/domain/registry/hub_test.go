package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-chat-service/api/chatpb"
)

const testTimeout = 50 * time.Millisecond

func newTestSession(t *testing.T, userID string, platform chatpb.Platform) *Session {
	t.Helper()
	s := NewSession(t.Context(), userID, platform, 8)
	t.Cleanup(s.Close)
	return s
}

func TestRegisterAndDeliver(t *testing.T) {
	hub := NewHub()

	mobile := newTestSession(t, "u1", chatpb.PlatformMobile)
	desktop := newTestSession(t, "u1", chatpb.PlatformDesktop)

	require.Nil(t, hub.Register(mobile))
	require.Nil(t, hub.Register(desktop))
	assert.True(t, hub.IsConnected("u1"))
	assert.Equal(t, Stats{Users: 1, Sessions: 2}, hub.Stats())

	msg := &chatpb.Msg{ServerID: "s1"}
	assert.Equal(t, 2, hub.DeliverToUser("u1", msg, testTimeout))
	assert.Equal(t, msg, <-mobile.Recv())
	assert.Equal(t, msg, <-desktop.Recv())

	assert.Equal(t, 0, hub.DeliverToUser("nobody", msg, testTimeout))
}

func TestDeliverToPlatform(t *testing.T) {
	hub := NewHub()
	mobile := newTestSession(t, "u1", chatpb.PlatformMobile)
	hub.Register(mobile)

	msg := &chatpb.Msg{ServerID: "s2"}
	assert.True(t, hub.DeliverToPlatform("u1", chatpb.PlatformMobile, msg, testTimeout))
	assert.False(t, hub.DeliverToPlatform("u1", chatpb.PlatformDesktop, msg, testTimeout))
	assert.Equal(t, msg, <-mobile.Recv())
}

// A second connect on the same slot evicts the incumbent; the incumbent's
// unregister must not remove the newcomer.
func TestKnockOff(t *testing.T) {
	hub := NewHub()

	first := newTestSession(t, "u1", chatpb.PlatformMobile)
	require.Nil(t, hub.Register(first))

	second := newTestSession(t, "u1", chatpb.PlatformMobile)
	evicted := hub.Register(second)
	require.Equal(t, first, evicted)
	evicted.Kick()

	select {
	case <-first.Kicked():
	case <-time.After(time.Second):
		t.Fatal("incumbent never saw knock-off signal")
	}

	// A kicked session no longer accepts deliveries.
	assert.False(t, first.Deliver(&chatpb.Msg{}, testTimeout))

	// The incumbent's cleanup path: compare-and-remove fails, slot intact.
	assert.False(t, hub.Unregister("u1", chatpb.PlatformMobile, first.ID()))
	assert.True(t, hub.IsConnected("u1"))
	assert.Equal(t, 1, hub.DeliverToUser("u1", &chatpb.Msg{ServerID: "s3"}, testTimeout))

	// The rightful owner can still leave.
	assert.True(t, hub.Unregister("u1", chatpb.PlatformMobile, second.ID()))
	assert.False(t, hub.IsConnected("u1"))
}

// A Register racing the last Unregister of the same user must never end up
// in a cell that empty-slot reclamation deletes out of the map: the new
// session would stay live on its socket while being invisible to delivery.
func TestRegisterSurvivesEmptyCellReclamation(t *testing.T) {
	hub := NewHub()

	for i := 0; i < 5000; i++ {
		mobile := NewSession(t.Context(), "u1", chatpb.PlatformMobile, 8)
		require.Nil(t, hub.Register(mobile))

		desktop := NewSession(t.Context(), "u1", chatpb.PlatformDesktop, 8)
		done := make(chan struct{})
		go func() {
			defer close(done)
			hub.Unregister("u1", chatpb.PlatformMobile, mobile.ID())
		}()
		hub.Register(desktop)
		<-done

		if n := hub.DeliverToUser("u1", &chatpb.Msg{ServerID: "s1"}, testTimeout); n != 1 {
			t.Fatalf("iteration %d: delivered to %d sessions, want 1", i, n)
		}
		require.True(t, hub.Unregister("u1", chatpb.PlatformDesktop, desktop.ID()))
		mobile.Close()
		desktop.Close()
	}
}

func TestDeliverBackpressure(t *testing.T) {
	sess := NewSession(t.Context(), "u1", chatpb.PlatformMobile, 1)
	defer sess.Close()

	assert.True(t, sess.Deliver(&chatpb.Msg{}, testTimeout))
	// Mailbox full and nobody draining: delivery times out.
	assert.False(t, sess.Deliver(&chatpb.Msg{}, testTimeout))
}

func TestClosedSessionRejectsDelivery(t *testing.T) {
	sess := NewSession(t.Context(), "u1", chatpb.PlatformMobile, 8)
	sess.Close()
	assert.False(t, sess.Deliver(&chatpb.Msg{}, testTimeout))
}

func TestShutdown(t *testing.T) {
	hub := NewHub()
	sess := newTestSession(t, "u1", chatpb.PlatformMobile)
	hub.Register(sess)

	hub.Shutdown()
	assert.False(t, hub.IsConnected("u1"))

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed on shutdown")
	}
}
