package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pairarena/game"
	"pairarena/protocol"
	"pairarena/store"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 10
	sendQueueSize  = 64
	identityWait   = 3 * time.Second
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
	}
}

// Send 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）
		return ErrSendQueueFull
	}
}

// Close 关闭发送队列；写协程发完剩余消息后关闭底层连接。可重复调用
func (c *ClientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端移动指令并投递到会话；退出即视为离开
func (c *ClientConn) readPump(reg *Registry, s *Session, role game.Role, userID string) {
	defer func() {
		reg.EndSession(s.ID, userID)
		_ = c.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Infow("read error", "session", s.ID, "user", userID, "error", err)
			}
			return
		}
		m, err := protocol.ParseMove(string(payload))
		if err != nil {
			s.metrics.IncMalformed()
			Log.Debugw("malformed command", "session", s.ID, "user", userID, "error", err)
			continue
		}
		s.Submit(role, m)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 实验环境：允许所有来源
		return true
	},
}

// Gateway WebSocket 接入：身份校验后交给 Registry 匹配
type Gateway struct {
	reg               *Registry
	ids               store.Participants
	requireRegistered bool
}

// NewGateway ids 为 nil 时不做登记校验
func NewGateway(reg *Registry, ids store.Participants, requireRegistered bool) *Gateway {
	return &Gateway{reg: reg, ids: ids, requireRegistered: requireRegistered && ids != nil}
}

// HandleWS WebSocket 接入：/ws?id=worker-1&condition=dynamic
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "error", err)
		return
	}
	client := NewClientConn(ws)
	go client.writePump()

	q := r.URL.Query()
	id, err := g.identify(r.Context(), q.Get("id"))
	if err != nil {
		Log.Infow("identity rejected", "id", q.Get("id"), "remote", r.RemoteAddr, "reason", err)
		_ = client.Send([]byte(protocol.MsgAlert))
		_ = client.Close()
		return
	}

	p := &Participant{ID: id, Conn: client}
	if raw := q.Get("condition"); raw != "" {
		cond, err := game.ParseCondition(raw)
		if err != nil {
			Log.Warnw("ignoring condition", "user", id, "error", err)
		} else {
			p.Condition = cond
		}
	}

	hello, err := protocol.EncodeConnected(id)
	if err == nil {
		_ = client.Send(hello)
	}
	s, role := g.reg.FindOrCreateSession(p)
	go client.readPump(g.reg, s, role, id)
}

var (
	errMissingID    = errors.New("missing id")
	errUnregistered = errors.New("id not registered")
)

func (g *Gateway) identify(ctx context.Context, id string) (string, error) {
	if id == "" {
		if g.requireRegistered {
			return "", errMissingID
		}
		return uuid.NewString(), nil
	}
	if !g.requireRegistered {
		return id, nil
	}
	ctx, cancel := context.WithTimeout(ctx, identityWait)
	defer cancel()
	ok, err := g.ids.ParticipantExists(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errUnregistered
	}
	return id, nil
}
