package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-chat-service/api/chatpb"
)

// Interface guard
var _ Sessioner = (*Session)(nil)

// Sessioner is the hub's view of one live client connection. The transport
// layer (WebSocket handler) owns the socket; the hub only needs routing,
// backpressured delivery and the knock-off signal.
type Sessioner interface {
	ID() uuid.UUID
	UserID() string
	Platform() chatpb.Platform
	// Deliver enqueues a message for the writer pump. Returns false when the
	// session is dead or its mailbox stayed full for the whole timeout.
	Deliver(msg *chatpb.Msg, timeout time.Duration) bool
	// Kick fires the knock-off signal: a newer session claimed this
	// (user, platform) slot and the incumbent must close with code 4001.
	Kick()
	Close()
}

// Session is the concrete connection state shared between the hub and the
// transport pumps.
type Session struct {
	id       uuid.UUID
	userID   string
	platform chatpb.Platform

	// [MAILBOX] Buffered channel decoupling delivery from socket writes, so
	// one slow consumer never blocks the push path.
	sendCh chan *chatpb.Msg

	// kicked fires exactly once when a newer session evicts this one.
	kicked chan struct{}

	ctx      context.Context
	cancelFn context.CancelFunc

	kickOnce  sync.Once
	closeOnce sync.Once
}

func NewSession(ctx context.Context, userID string, platform chatpb.Platform, bufferSize int) *Session {
	childCtx, cancel := context.WithCancel(ctx)
	return &Session{
		id:       uuid.New(),
		userID:   userID,
		platform: platform,
		sendCh:   make(chan *chatpb.Msg, bufferSize),
		kicked:   make(chan struct{}),
		ctx:      childCtx,
		cancelFn: cancel,
	}
}

func (s *Session) ID() uuid.UUID            { return s.id }
func (s *Session) UserID() string           { return s.userID }
func (s *Session) Platform() chatpb.Platform { return s.platform }

// Recv is consumed by the transport's writer pump.
func (s *Session) Recv() <-chan *chatpb.Msg { return s.sendCh }

// Kicked is awaited by the transport's watcher task.
func (s *Session) Kicked() <-chan struct{} { return s.kicked }

// Done fires when the session is closed for any reason.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) Deliver(msg *chatpb.Msg, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return false
	case <-s.kicked:
		return false
	case s.sendCh <- msg:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Session) Kick() {
	s.kickOnce.Do(func() {
		close(s.kicked)
	})
}

// Close cancels the session context. The mailbox channel is left open and
// garbage collected with the session: closing it would race concurrent
// Deliver calls.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancelFn()
	})
}
