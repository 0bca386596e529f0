package call_sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/errs"
	"github.com/cydxin/call-sdk/message"
	"github.com/cydxin/call-sdk/middleware"
	"github.com/cydxin/call-sdk/models"
	"github.com/cydxin/call-sdk/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CallEngine struct {
	config *Config
	log    *zap.Logger

	NotificationService *service.NotificationService
	SignalingService    *service.SignalingService
	RtcTokenService     *service.RtcTokenService
	LiveSessionService  *service.LiveSessionService
	CleanupService      *service.CleanupService
	CallService         *service.CallService
	AuthService         *service.AuthService // 鉴权服务
	WsServer            *WsServer

	// 在线用户的呼叫状态机：首个 WS 连接建立时创建，下线时销毁
	callsMu sync.Mutex
	calls   map[uint64]*userCalls

	cancel context.CancelFunc
}

type userCalls struct {
	orch   *service.CallOrchestrator
	cancel context.CancelFunc
}

var (
	Instance *CallEngine
	once     sync.Once
)

// NewEngine 创建实例（进程内只初始化一次）
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *CallEngine {
	once.Do(func() {
		Instance = newEngine(opts...)
	})
	return Instance
}

func newEngine(opts ...Option) *CallEngine {
	c := &Config{
		TablePrefix: "im_", // Default
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	models.SetTablePrefix(c.TablePrefix)

	ctx, cancel := context.WithCancel(context.Background())
	e := &CallEngine{config: c, log: c.Logger, calls: make(map[uint64]*userCalls), cancel: cancel}

	// 初始化 WS
	e.WsServer = NewWsServer(c.Logger.Named("ws"))
	go e.WsServer.Run(ctx)

	// 初始化基础 Service，注入 WsNotifier 回调
	base := &service.Service{
		DB:          c.DB,
		RDB:         c.RDB,
		TablePrefix: c.TablePrefix,
		Log:         c.Logger,
		WsNotifier:  e.WsServer.SendToUser, // 注入 WebSocket 通知函数
	}

	e.NotificationService = service.NewNotificationService(base)
	e.SignalingService = service.NewSignalingService(e.NotificationService, c.Logger.Named("signaling"))
	e.RtcTokenService = service.NewRtcTokenService(c.RtcAppID, c.RtcAppCertificate)
	e.LiveSessionService = service.NewLiveSessionService(base)
	e.LiveSessionService.AllowMultipleLive = c.AllowMultipleLive
	e.CleanupService = service.NewCleanupService(base)
	e.CallService = service.NewCallService(base, e.NotificationService, e.RtcTokenService)
	e.CallService.OnRemote = e.onRemoteAnswer
	e.AuthService = service.NewAuthService(c.RDB)

	if !e.RtcTokenService.Configured() {
		c.Logger.Warn("rtc credentials not configured, token issuance will fail")
	}

	// 迁移表
	if !c.SkipAutoMigrate && c.DB != nil {
		if err := e.AutoMigrate(); err != nil {
			c.Logger.Error("AutoMigrate failed", zap.Error(err))
		}
	}

	e.WsServer.SetPresenceHooks(e.userOnline, e.userOffline)
	e.bindWsHandlersOnMessage()
	return e
}

func (c *CallEngine) AutoMigrate() error {
	c.log.Info("AutoMigrate...")
	return c.config.DB.AutoMigrate(
		&models.Notification{},
		&models.LiveSession{},
	)
}

// Close 停止 WS hub 并释放所有呼叫订阅
func (c *CallEngine) Close() {
	c.callsMu.Lock()
	for uid, uc := range c.calls {
		uc.cancel()
		delete(c.calls, uid)
	}
	c.callsMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// userOnline 首个连接：启动来电订阅 + 状态机
func (c *CallEngine) userOnline(userID uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	o := service.NewCallOrchestrator(userID, c.SignalingService, c.CallService,
		service.WithOrchestratorLogger(c.log.Named("call")))
	o.OnIncoming = func(inv service.Invite) {
		c.pushCall(userID, message.CallEventPush{
			Type:           cons.EventCallInvite,
			NotificationID: inv.NotificationID,
			ChannelName:    inv.ChannelName,
			CallerID:       inv.CallerID,
			CallerName:     inv.CallerName,
			CallerAvatar:   inv.CallerAvatar,
			CallType:       inv.CallType,
			StartedAt:      inv.StartedAt.UnixMilli(),
		})
	}
	o.OnCancelled = func(id uint64) {
		c.pushCall(userID, message.CallEventPush{Type: cons.EventCallCancelled, NotificationID: id})
	}

	c.callsMu.Lock()
	if old, ok := c.calls[userID]; ok {
		old.cancel()
	}
	c.calls[userID] = &userCalls{orch: o, cancel: cancel}
	c.callsMu.Unlock()

	go func() {
		if err := o.Run(ctx); err != nil {
			// 订阅失败只报告一次，客户端重连时会重新订阅
			c.log.Warn("call subscription failed", zap.Uint64("user_id", userID), zap.Error(err))
			c.pushCall(userID, message.CallEventPush{Type: "error"})
		}
	}()
}

// userOffline 最后一个连接断开：取消订阅
func (c *CallEngine) userOffline(userID uint64) {
	c.callsMu.Lock()
	uc, ok := c.calls[userID]
	delete(c.calls, userID)
	c.callsMu.Unlock()
	if ok {
		uc.cancel()
	}
}

func (c *CallEngine) orchestrator(userID uint64) *service.CallOrchestrator {
	c.callsMu.Lock()
	defer c.callsMu.Unlock()
	if uc, ok := c.calls[userID]; ok {
		return uc.orch
	}
	return nil
}

func (c *CallEngine) onRemoteAnswer(callerID uint64, event string, notificationID uint64) {
	o := c.orchestrator(callerID)
	if o == nil {
		return
	}
	switch event {
	case cons.EventCallAccepted:
		o.RemoteAnswered(notificationID)
	case cons.EventCallDeclined:
		o.RemoteDeclined(notificationID)
	}
}

func (c *CallEngine) pushCall(userID uint64, msg message.CallEventPush) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.WsServer.SendToUser(userID, b)
}

// Dial 在线用户走状态机（会启动应答超时），否则直接写邀请
func (c *CallEngine) Dial(ctx context.Context, callerID uint64, req service.DialRequest) (*service.DialResult, error) {
	if o := c.orchestrator(callerID); o != nil {
		return o.Dial(ctx, req)
	}
	return c.CallService.Dial(ctx, callerID, req)
}

// Accept 接听。状态机吞掉的“邀请已失效”在 HTTP 层仍返回 ErrStaleInvite
func (c *CallEngine) Accept(ctx context.Context, userID, notificationID uint64, uid uint32) (*service.AcceptResult, error) {
	if o := c.orchestrator(userID); o != nil {
		if inv := o.Incoming(); inv != nil && inv.NotificationID == notificationID {
			res, err := o.Accept(ctx, uid)
			if err == nil && res == nil {
				return nil, fmt.Errorf("%w: notification %d", errs.ErrStaleInvite, notificationID)
			}
			return res, err
		}
	}
	return c.CallService.Accept(ctx, userID, notificationID, uid)
}

func (c *CallEngine) Decline(ctx context.Context, userID, notificationID uint64) error {
	if o := c.orchestrator(userID); o != nil {
		if inv := o.Incoming(); inv != nil && inv.NotificationID == notificationID {
			return o.Decline(ctx)
		}
	}
	return c.CallService.Decline(ctx, userID, notificationID)
}

func (c *CallEngine) Cancel(ctx context.Context, callerID, notificationID uint64) error {
	if o := c.orchestrator(callerID); o != nil {
		if out := o.Outgoing(); out != nil && out.NotificationID == notificationID {
			return o.CancelDial(ctx)
		}
	}
	return c.CallService.Cancel(ctx, callerID, notificationID)
}

// Hangup 结束本端通话状态（媒体层的离开由客户端自行完成）
func (c *CallEngine) Hangup(ctx context.Context, userID uint64) error {
	if o := c.orchestrator(userID); o != nil {
		return o.Hangup(ctx)
	}
	return nil
}

// CallState 在线用户的当前呼叫状态，离线为 idle
func (c *CallEngine) CallState(userID uint64) service.CallState {
	if o := c.orchestrator(userID); o != nil {
		return o.State()
	}
	return service.CallIdle
}

// ServeWS 处理 WebSocket 请求（调用方已完成鉴权）
func (c *CallEngine) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) {
	c.WsServer.ServeWS(w, r, userID)
}

// RunCleanup 手动触发一次过期直播清理
func (c *CallEngine) RunCleanup(ctx context.Context) (service.CleanupResult, error) {
	start := time.Now()
	res, err := c.CleanupService.Run(ctx)
	c.log.Info("manual cleanup", zap.Duration("took", time.Since(start)), zap.Int64("deleted", res.Deleted), zap.Error(err))
	return res, err
}

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件
// 使用 CallEngine 内部的 AuthService 和 Redis 配置
//
// 使用示例:
//
//	engine := call_sdk.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil)) // 使用默认配置
func (c *CallEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(c.AuthService, opt)
}
