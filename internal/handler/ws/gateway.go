// Package ws implements the gateway edge: the WebSocket connect endpoint,
// the per-session pumps (reader, writer, pinger, knock-off watcher) and the
// node-wide broadcast loop that forwards client submissions to the ingress
// service and echoes acknowledgements back.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/domain/model"
	"github.com/webitel/im-chat-service/internal/domain/registry"
)

// Close codes on the client-facing socket.
const (
	CloseKnockOff     = 4001
	CloseUnauthorized = 4002
)

const (
	heartbeatInterval = 30 * time.Second
	// readTimeout is reset on every Pong; missing two heartbeats kills the
	// session.
	readTimeout  = 2*heartbeatInterval + 10*time.Second
	writeTimeout = 10 * time.Second

	// broadcastCapacity bounds the node-wide submission pipe. When full, the
	// reader closes its session instead of buffering without limit.
	broadcastCapacity = 1024

	// sessionMailbox bounds one session's outbound queue.
	sessionMailbox = 64

	deliverTimeout = 3 * time.Second
)

// Gateway owns this node's live sessions and its single ingress client.
type Gateway struct {
	logger    *slog.Logger
	hub       registry.Hubber
	chat      chatpb.ChatClient
	auth      *Authenticator
	upgrader  websocket.Upgrader
	broadcast chan *chatpb.Msg
}

func NewGateway(logger *slog.Logger, hub registry.Hubber, chat chatpb.ChatClient, auth *Authenticator) *Gateway {
	return &Gateway{
		logger: logger.With(slog.String("component", "gateway")),
		hub:    hub,
		chat:   chat,
		auth:   auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		broadcast: make(chan *chatpb.Msg, broadcastCapacity),
	}
}

// Broadcast exposes the submission pipe for the gateway-side Msg RPC.
func (g *Gateway) Broadcast() chan<- *chatpb.Msg { return g.broadcast }

// Routes mounts the connect endpoint.
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws/{user_id}/conn/{platform_id}/{platform}/{token}", g.handleConnect)
	return r
}

func (g *Gateway) handleConnect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	platform := chatpb.ParsePlatform(chi.URLParam(r, "platform"))
	token := chi.URLParam(r, "token")

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("UPGRADE_FAILED", slog.String("user_id", userID), slog.Any("err", err))
		return
	}

	if err := g.auth.Validate(token, userID); err != nil {
		g.logger.Warn("TOKEN_REJECTED", slog.String("user_id", userID), slog.Any("err", err))
		writeClose(conn, CloseUnauthorized, "unauthorized")
		conn.Close()
		return
	}

	l := g.logger.With(
		slog.String("user_id", userID),
		slog.String("platform", platform.String()),
	)

	// The session outlives the request context: the socket is the lifetime.
	sess := registry.NewSession(context.Background(), userID, platform, sessionMailbox)
	if evicted := g.hub.Register(sess); evicted != nil {
		// The incumbent's watcher sees the signal and closes with 4001.
		evicted.Kick()
		l.Info("SESSION_KNOCKED_OFF", slog.String("evicted_id", evicted.ID().String()))
	}
	l.Info("SESSION_OPENED", slog.String("session_id", sess.ID().String()))

	go g.writerPump(sess, conn, l)
	go g.pinger(sess, conn)
	go g.watcher(sess, conn, l)

	g.reader(sess, conn, l)

	// A kicked session must not tear down its successor's slot; for every
	// other exit the compare-and-remove cleans up.
	select {
	case <-sess.Kicked():
	default:
		g.hub.Unregister(userID, platform, sess.ID())
	}
	sess.Close()
	conn.Close()
	l.Info("SESSION_CLOSED", slog.String("session_id", sess.ID().String()))
}

// reader consumes client frames until the socket dies. Binary frames carry a
// length-prefixed Msg; Text frames carry plain JSON for legacy clients.
func (g *Gateway) reader(sess *registry.Session, conn *websocket.Conn, l *slog.Logger) {
	conn.SetReadLimit(chatpb.MaxFramePayload + 8)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(writeTimeout))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg *chatpb.Msg
		switch mt {
		case websocket.BinaryMessage:
			msg, err = chatpb.DecodeFrame(data)
		case websocket.TextMessage:
			msg = new(chatpb.Msg)
			err = json.Unmarshal(data, msg)
		default:
			continue
		}
		if err != nil {
			l.Warn("FRAME_DECODE_FAILED", slog.Any("err", err))
			continue
		}

		// The connection, not the payload, is authoritative for identity.
		msg.SenderID = sess.UserID()
		msg.Platform = sess.Platform()

		select {
		case g.broadcast <- msg:
		default:
			l.Warn("BROADCAST_SATURATED", slog.String("session_id", sess.ID().String()))
			return
		}
	}
}

// writerPump drains the session mailbox onto the socket as binary frames.
func (g *Gateway) writerPump(sess *registry.Session, conn *websocket.Conn, l *slog.Logger) {
	for {
		select {
		case <-sess.Done():
			return
		case msg := <-sess.Recv():
			frame, err := chatpb.EncodeFrame(msg)
			if err != nil {
				l.Warn("FRAME_ENCODE_FAILED",
					slog.String("server_id", msg.ServerID), slog.Any("err", err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				sess.Close()
				return
			}
		}
	}
}

func (g *Gateway) pinger(sess *registry.Session, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				sess.Close()
				return
			}
		}
	}
}

// watcher waits for the knock-off signal and hands the socket its 4001.
func (g *Gateway) watcher(sess *registry.Session, conn *websocket.Conn, l *slog.Logger) {
	select {
	case <-sess.Done():
	case <-sess.Kicked():
		l.Info("KNOCK_OFF_DELIVERED", slog.String("session_id", sess.ID().String()))
		writeClose(conn, CloseKnockOff, "knock off")
		sess.Close()
		conn.Close()
	}
}

// Run owns the broadcast loop: forward each submission to the ingress
// service, acknowledge the sender, mirror accepted originals to the sender's
// other platform. Blocks until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	stats := time.NewTicker(time.Minute)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stats.C:
			st := g.hub.Stats()
			g.logger.Info("HUB_STATS",
				slog.Int("users", st.Users),
				slog.Int("sessions", st.Sessions))
		case msg := <-g.broadcast:
			g.forward(ctx, msg)
		}
	}
}

func (g *Gateway) forward(ctx context.Context, msg *chatpb.Msg) {
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	resp, err := g.chat.SendMsg(callCtx, &chatpb.SendMsgRequest{Message: msg})
	cancel()
	if err != nil {
		g.logger.Warn("INGRESS_CALL_FAILED",
			slog.String("client_id", msg.ClientID), slog.Any("err", err))
		resp = &chatpb.MsgResponse{ClientID: msg.ClientID, Err: err.Error()}
	}

	// Acknowledge the submitting platform in-band.
	ack := &chatpb.Msg{
		ClientID:   msg.ClientID,
		ServerID:   resp.ServerID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.SenderID,
		Platform:   msg.Platform,
		MsgType:    chatpb.MsgTypeMsgRecResp,
		SendTime:   resp.SendTime,
		SendSeq:    resp.SendSeq,
	}
	if resp.Err != "" {
		ack.ContentType = chatpb.ContentTypeError
		ack.Content = []byte(resp.Err)
	}
	g.hub.DeliverToPlatform(msg.SenderID, msg.Platform, ack, deliverTimeout)

	if resp.Err != "" || err != nil {
		return
	}

	// Mirror the accepted original to the sender's other platform so both
	// devices render the conversation identically. seq stays 0: mirror rows
	// sit outside the recipient's ordered range.
	if mirror := model.MirrorPlatform(msg.Platform); mirror != chatpb.PlatformUnknown {
		copyMsg := msg.Clone()
		copyMsg.ServerID = resp.ServerID
		copyMsg.SendTime = resp.SendTime
		copyMsg.SendSeq = resp.SendSeq
		copyMsg.Seq = 0
		g.hub.DeliverToPlatform(msg.SenderID, mirror, copyMsg, deliverTimeout)
	}
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}
