package call_sdk

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time 写入超时时间
	writeWait = 10 * time.Second

	// Time pong超时时间
	pongWait = 60 * time.Second

	// Send 对应的ping 必须小于pong
	pingPeriod = (pongWait * 9) / 10

	// Maximum 对等端允许消息大小（上行只有 live.watch 之类的小指令）
	maxMessageSize = 512

	// defaultOfflineGrace 最后一个连接断开后，等待多久才视为下线（给断线重连留窗口）
	defaultOfflineGrace = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for SDK
	},
}

// Client ws和hub的连接
// 说明：Client 代表“某个具体 websocket 连接”，同一用户可以有多个。
type Client struct {
	hub *WsServer

	// 🔗链接
	conn *websocket.Conn

	// 消息缓冲区
	send chan []byte

	// UserID 和用户关联
	UserID uint64

	// 本连接订阅的直播间：sessionID -> cancel
	watchMu sync.Mutex
	watches map[string]context.CancelFunc
}

// watch 登记直播间订阅，已存在时返回 false
func (c *Client) watch(sessionID string, cancel context.CancelFunc) bool {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watches == nil {
		c.watches = make(map[string]context.CancelFunc)
	}
	if _, ok := c.watches[sessionID]; ok {
		return false
	}
	c.watches[sessionID] = cancel
	return true
}

func (c *Client) unwatch(sessionID string) {
	c.watchMu.Lock()
	cancel := c.watches[sessionID]
	delete(c.watches, sessionID)
	c.watchMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Client) unwatchAll() {
	c.watchMu.Lock()
	ws := c.watches
	c.watches = nil
	c.watchMu.Unlock()
	for _, cancel := range ws {
		cancel()
	}
}

// trySend 连接已关闭或缓冲满时丢弃
func (c *Client) trySend(msg []byte) {
	defer func() { _ = recover() }()
	select {
	case c.send <- msg:
	default:
	}
}

// readPump 将消息从client (websocket 连接) 到hub管理。
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("ws read error", zap.Uint64("user_id", c.UserID), zap.Error(err))
			}
			break
		}
		c.hub.handleMessage(c, message)
	}
}

// writePump 将消息从hub管理写到具体的client (websocket 连接)。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 每条下行是一个独立的 JSON 帧
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WsServer 连接管理：按用户聚合连接，首个连接建立时触发 onOnline，
// 最后一个连接断开且超过 offlineGrace 仍未重连时触发 onOffline。
// 上下线判定都在 hub 主循环里做，回调由单个 goroutine 按判定顺序依次执行。
type WsServer struct {
	clients map[*Client]bool
	// 用户ID ->该用户所有活跃的Websocket连接（支持多设备）
	userClients map[uint64][]*Client

	// 用户ID -> 延迟下线的定时器
	gcTimers map[uint64]*offlineTimer

	register   chan *Client
	unregister chan *Client
	expire     chan *offlineTimer
	presence   chan presenceEvent
	stopped    chan struct{}
	mu         sync.RWMutex

	offlineGrace time.Duration
	log          *zap.Logger

	// 回调处理消息
	onMessage func(client *Client, msg []byte)
	onOnline  func(userID uint64)
	onOffline func(userID uint64)
}

type offlineTimer struct {
	uid uint64
	t   *time.Timer
}

type presenceEvent struct {
	uid    uint64
	online bool
}

func NewWsServer(log *zap.Logger) *WsServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &WsServer{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		expire:       make(chan *offlineTimer),
		presence:     make(chan presenceEvent, 256),
		stopped:      make(chan struct{}),
		clients:      make(map[*Client]bool),
		userClients:  make(map[uint64][]*Client),
		gcTimers:     make(map[uint64]*offlineTimer),
		offlineGrace: defaultOfflineGrace,
		log:          log,
	}
}

// Run hub 主循环，ctx 结束时退出
func (h *WsServer) Run(ctx context.Context) {
	defer close(h.stopped)
	go h.runPresence(ctx)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, ot := range h.gcTimers {
				ot.t.Stop()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			uid := client.UserID
			// 断线重连：取消延迟下线，不再重复触发 onOnline
			pending := false
			if ot, ok := h.gcTimers[uid]; ok {
				ot.t.Stop()
				delete(h.gcTimers, uid)
				pending = true
			}
			first := len(h.userClients[uid]) == 0 && !pending
			h.clients[client] = true
			h.userClients[uid] = append(h.userClients[uid], client)
			h.mu.Unlock()

			if first {
				h.emitPresence(ctx, presenceEvent{uid: uid, online: true})
			}

		case client := <-h.unregister:
			client.unwatchAll()
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.removeUserClientLocked(client)
			}
			uid := client.UserID
			if len(h.userClients[uid]) == 0 {
				delete(h.userClients, uid)
				h.scheduleOfflineLocked(uid)
			}
			h.mu.Unlock()

		case ot := <-h.expire:
			h.mu.Lock()
			// 定时器已被重连取消或被新的定时器替换
			current := h.gcTimers[ot.uid] == ot && len(h.userClients[ot.uid]) == 0
			if current {
				delete(h.gcTimers, ot.uid)
			}
			h.mu.Unlock()

			if current {
				h.emitPresence(ctx, presenceEvent{uid: ot.uid})
			}
		}
	}
}

func (h *WsServer) emitPresence(ctx context.Context, ev presenceEvent) {
	select {
	case h.presence <- ev:
	case <-ctx.Done():
	}
}

// runPresence 串行执行上下线回调，保证同一用户的 onOffline 不会晚于其后的 onOnline
func (h *WsServer) runPresence(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.presence:
			if ev.online {
				if h.onOnline != nil {
					h.onOnline(ev.uid)
				}
			} else if h.onOffline != nil {
				h.onOffline(ev.uid)
			}
		}
	}
}

func (h *WsServer) removeUserClientLocked(client *Client) {
	userConns := h.userClients[client.UserID]
	for i, conn := range userConns {
		if conn == client {
			h.userClients[client.UserID] = append(userConns[:i], userConns[i+1:]...)
			break
		}
	}
}

// scheduleOfflineLocked 需持有 h.mu；到期后交回主循环判定
func (h *WsServer) scheduleOfflineLocked(uid uint64) {
	if ot, ok := h.gcTimers[uid]; ok {
		ot.t.Stop()
	}
	ot := &offlineTimer{uid: uid}
	ot.t = time.AfterFunc(h.offlineGrace, func() {
		select {
		case h.expire <- ot:
		case <-h.stopped:
		}
	})
	h.gcTimers[uid] = ot
}

func (h *WsServer) handleMessage(client *Client, msg []byte) {
	if h.onMessage != nil {
		h.onMessage(client, msg)
	}
}

func (h *WsServer) SetOnMessage(fn func(client *Client, msg []byte)) {
	h.onMessage = fn
}

// SetPresenceHooks 上线/下线回调（按用户，而非按连接）
func (h *WsServer) SetPresenceHooks(onOnline, onOffline func(userID uint64)) {
	h.onOnline = onOnline
	h.onOffline = onOffline
}

// ServeWS 处理ws的请求
func (h *WsServer) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Uint64("user_id", userID), zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		UserID: userID,
	}
	client.hub.register <- client
	h.log.Debug("ws connected", zap.Uint64("user_id", userID))

	go client.writePump()
	go client.readPump()
}

// SendToUser 发送消息到用户的所有连接
func (h *WsServer) SendToUser(userID uint64, msg []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.userClients[userID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(msg)
	}
}

// Online 用户当前是否有连接
func (h *WsServer) Online(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}
