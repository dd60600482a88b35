// Package pusher fans a processed message out to every live gateway. Each
// gateway delivers only to the sessions it hosts, so the pusher does not need
// to know where a user is connected; it needs the current set of gateways,
// which discovery keeps fresh.
package pusher

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/infra/client"
	"github.com/webitel/im-chat-service/infra/discovery"
)

const pushTimeout = 5 * time.Second

// peer is one gateway endpoint: its message client plus the handle to close
// the underlying channel when the peer goes away.
type peer struct {
	client chatpb.MsgClient
	closer io.Closer
}

type Service struct {
	mu    sync.RWMutex
	peers map[string]peer

	// connect is swapped in tests.
	connect func(addr string) (peer, error)
	logger  *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{
		peers:   make(map[string]peer),
		connect: dialGateway,
		logger:  logger.With(slog.String("component", "pusher")),
	}
}

func dialGateway(addr string) (peer, error) {
	conn, err := client.DialPeer(addr)
	if err != nil {
		return peer{}, err
	}
	return peer{client: chatpb.NewMsgClient(conn), closer: conn}, nil
}

// Watch applies gateway membership deltas until the channel closes.
func (s *Service) Watch(deltas <-chan discovery.Delta) {
	for d := range deltas {
		addr := d.Instance.Addr()
		switch d.Op {
		case discovery.OpInsert:
			s.addPeer(addr)
		case discovery.OpRemove:
			s.removePeer(addr)
		}
	}
}

// Run subscribes to the gateway service and keeps the peer map current. It
// blocks until ctx is cancelled, then closes every channel.
func (s *Service) Run(ctx context.Context, reg *discovery.Registry, gatewayService string) {
	s.Watch(reg.Subscribe(ctx, gatewayService))
	s.closeAll()
}

func (s *Service) addPeer(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.peers[addr]; ok {
		return
	}
	p, err := s.connect(addr)
	if err != nil {
		s.logger.Warn("GATEWAY_DIAL_FAILED", slog.String("addr", addr), slog.Any("err", err))
		return
	}
	s.peers[addr] = p
	s.logger.Info("GATEWAY_ADDED", slog.String("addr", addr))
}

func (s *Service) removePeer(addr string) {
	s.mu.Lock()
	p, ok := s.peers[addr]
	if ok {
		delete(s.peers, addr)
	}
	s.mu.Unlock()

	if ok {
		if p.closer != nil {
			p.closer.Close()
		}
		s.logger.Info("GATEWAY_REMOVED", slog.String("addr", addr))
	}
}

func (s *Service) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, p := range s.peers {
		if p.closer != nil {
			p.closer.Close()
		}
		delete(s.peers, addr)
	}
}

func (s *Service) snapshot() map[string]chatpb.MsgClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]chatpb.MsgClient, len(s.peers))
	for addr, p := range s.peers {
		out[addr] = p.client
	}
	return out
}

// PushSingle fans one message to every gateway in parallel. A failing peer is
// dropped from the map and not retried: discovery re-adds it when it comes
// back, and the message is already durable in the inbox either way.
func (s *Service) PushSingle(ctx context.Context, msg *chatpb.Msg) error {
	return s.fanOut(ctx, func(ctx context.Context, c chatpb.MsgClient) error {
		_, err := c.SendMsgToUser(ctx, &chatpb.SendMsgRequest{Message: msg})
		return err
	})
}

// PushGroup is the same fan-out carrying the per-member seq batch; each
// gateway picks out the members it hosts.
func (s *Service) PushGroup(ctx context.Context, msg *chatpb.Msg, memSeqs []*chatpb.GroupMemSeq) error {
	return s.fanOut(ctx, func(ctx context.Context, c chatpb.MsgClient) error {
		_, err := c.SendGroupMsgToUser(ctx, &chatpb.SendGroupMsgRequest{
			Message: msg,
			MemSeqs: memSeqs,
		})
		return err
	})
}

func (s *Service) fanOut(ctx context.Context, call func(context.Context, chatpb.MsgClient) error) error {
	targets := s.snapshot()
	if len(targets) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for addr, c := range targets {
		g.Go(func() error {
			if err := call(ctx, c); err != nil {
				s.logger.Warn("GATEWAY_PUSH_FAILED",
					slog.String("addr", addr), slog.Any("err", err))
				s.removePeer(addr)
			}
			// Per-peer failures never fail the overall push.
			return nil
		})
	}
	return g.Wait()
}
