package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cydxin/call-sdk/errs"
	"go.uber.org/zap"
)

// CallState 单个用户的呼叫状态
type CallState int

const (
	CallIdle CallState = iota
	CallRingingIncoming
	CallJoining
	CallInCall
	CallDialing
	CallWaitingForAnswer
)

func (s CallState) String() string {
	switch s {
	case CallIdle:
		return "idle"
	case CallRingingIncoming:
		return "ringing"
	case CallJoining:
		return "joining"
	case CallInCall:
		return "in_call"
	case CallDialing:
		return "dialing"
	case CallWaitingForAnswer:
		return "waiting_for_answer"
	default:
		return fmt.Sprintf("CallState(%d)", int(s))
	}
}

// AnswerTimeout 主叫等待接听的时长，超时自动取消
const AnswerTimeout = InviteTTL

// CallEventSource 来电事件源，SignalingService 实现
type CallEventSource interface {
	Subscribe(ctx context.Context, recipientID uint64) (<-chan CallEvent, error)
}

// CallActions 呼叫的服务端操作，CallService 实现
type CallActions interface {
	Dial(ctx context.Context, callerID uint64, req DialRequest) (*DialResult, error)
	Cancel(ctx context.Context, callerID, notificationID uint64) error
	Accept(ctx context.Context, recipientID, notificationID uint64, uid uint32) (*AcceptResult, error)
	Decline(ctx context.Context, recipientID, notificationID uint64) error
}

var (
	_ CallEventSource = (*SignalingService)(nil)
	_ CallActions     = (*CallService)(nil)
)

// CallOrchestrator 一个用户的呼叫状态机
//
//	来电: Idle -> RingingIncoming -> Joining -> InCall
//	      RingingIncoming -> Idle（拒绝 / 过期 / 对方取消）
//	去电: Idle -> Dialing -> WaitingForAnswer -> InCall | Idle
//	Hangup: 任意状态 -> Idle
//
// 回调（OnStateChange / OnIncoming / OnCancelled）在锁外调用。
type CallOrchestrator struct {
	userID  uint64
	source  CallEventSource
	calls   CallActions
	log     *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	state    CallState
	incoming *Invite
	outgoing *DialResult
	channel  string
	timer    *time.Timer

	OnStateChange func(prev, next CallState)
	OnIncoming    func(inv Invite)
	OnCancelled   func(notificationID uint64)
}

type OrchestratorOption func(*CallOrchestrator)

// WithAnswerTimeout 覆盖主叫等待时长（测试用）
func WithAnswerTimeout(d time.Duration) OrchestratorOption {
	return func(o *CallOrchestrator) { o.timeout = d }
}

func WithOrchestratorLogger(log *zap.Logger) OrchestratorOption {
	return func(o *CallOrchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

func NewCallOrchestrator(userID uint64, source CallEventSource, calls CallActions, opts ...OrchestratorOption) *CallOrchestrator {
	o := &CallOrchestrator{
		userID:  userID,
		source:  source,
		calls:   calls,
		log:     zap.NewNop(),
		timeout: AnswerTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *CallOrchestrator) State() CallState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Incoming 当前响铃中的来电
func (o *CallOrchestrator) Incoming() *Invite {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.incoming == nil {
		return nil
	}
	inv := *o.incoming
	return &inv
}

// Outgoing 等待应答中的去电
func (o *CallOrchestrator) Outgoing() *DialResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outgoing == nil {
		return nil
	}
	out := *o.outgoing
	return &out
}

// ChannelName 通话中的频道名
func (o *CallOrchestrator) ChannelName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.channel
}

// Run 订阅来电事件直到 ctx 结束。订阅建立失败直接返回错误。
func (o *CallOrchestrator) Run(ctx context.Context) error {
	events, err := o.source.Subscribe(ctx, o.userID)
	if err != nil {
		return err
	}
	for ev := range events {
		o.handle(ev)
	}
	o.mu.Lock()
	o.stopTimerLocked()
	o.mu.Unlock()
	return nil
}

func (o *CallOrchestrator) handle(ev CallEvent) {
	o.mu.Lock()
	prev := o.state
	switch ev.Kind {
	case CallEventInvite:
		if ev.Invite == nil {
			o.mu.Unlock()
			return
		}
		// 忙线时忽略；响铃中有新来电则以最新为准
		if o.state != CallIdle && o.state != CallRingingIncoming {
			o.mu.Unlock()
			o.log.Info("incoming call ignored while busy",
				zap.Uint64("user_id", o.userID), zap.Uint64("notification_id", ev.Invite.NotificationID),
				zap.Stringer("state", prev))
			return
		}
		inv := *ev.Invite
		o.incoming = &inv
		o.state = CallRingingIncoming
		o.mu.Unlock()
		o.changed(prev, CallRingingIncoming)
		if o.OnIncoming != nil {
			o.OnIncoming(inv)
		}
	case CallEventCancelled:
		if o.state != CallRingingIncoming || o.incoming == nil {
			o.mu.Unlock()
			return
		}
		id := o.incoming.NotificationID
		o.incoming = nil
		o.state = CallIdle
		o.mu.Unlock()
		o.changed(prev, CallIdle)
		if o.OnCancelled != nil {
			o.OnCancelled(id)
		}
	default:
		o.mu.Unlock()
	}
}

// Accept 接听当前来电。
// 邀请已失效（过期 / 已处理 / 不存在）时静默回到 Idle，返回 (nil, nil)；
// 其他错误（如凭证未配置）回到响铃状态并返回错误。
func (o *CallOrchestrator) Accept(ctx context.Context, uid uint32) (*AcceptResult, error) {
	o.mu.Lock()
	if o.state != CallRingingIncoming || o.incoming == nil {
		st := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: no incoming call (state %s)", errs.ErrFailedPrecondition, st)
	}
	inv := *o.incoming
	o.state = CallJoining
	o.mu.Unlock()
	o.changed(CallRingingIncoming, CallJoining)

	res, err := o.calls.Accept(ctx, o.userID, inv.NotificationID, uid)

	o.mu.Lock()
	switch {
	case err == nil:
		o.incoming = nil
		o.channel = res.ChannelName
		o.state = CallInCall
	case IsStale(err):
		o.incoming = nil
		o.state = CallIdle
	default:
		o.state = CallRingingIncoming
	}
	next := o.state
	o.mu.Unlock()
	o.changed(CallJoining, next)

	if err != nil {
		if IsStale(err) {
			o.log.Info("accept on stale invite", zap.Uint64("notification_id", inv.NotificationID), zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

// Decline 拒绝当前来电
func (o *CallOrchestrator) Decline(ctx context.Context) error {
	o.mu.Lock()
	if o.state != CallRingingIncoming || o.incoming == nil {
		st := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: no incoming call (state %s)", errs.ErrFailedPrecondition, st)
	}
	id := o.incoming.NotificationID
	o.mu.Unlock()

	if err := o.calls.Decline(ctx, o.userID, id); err != nil && !IsStale(err) {
		return err
	}

	o.mu.Lock()
	prev := o.state
	if o.incoming != nil && o.incoming.NotificationID == id {
		o.incoming = nil
		o.state = CallIdle
	}
	next := o.state
	o.mu.Unlock()
	o.changed(prev, next)
	return nil
}

// Dial 发起呼叫，成功后进入 WaitingForAnswer 并启动应答计时
func (o *CallOrchestrator) Dial(ctx context.Context, req DialRequest) (*DialResult, error) {
	o.mu.Lock()
	if o.state != CallIdle {
		st := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot dial in state %s", errs.ErrFailedPrecondition, st)
	}
	o.state = CallDialing
	o.mu.Unlock()
	o.changed(CallIdle, CallDialing)

	res, err := o.calls.Dial(ctx, o.userID, req)

	o.mu.Lock()
	if err != nil {
		o.state = CallIdle
		o.mu.Unlock()
		o.changed(CallDialing, CallIdle)
		return nil, err
	}
	o.outgoing = res
	o.channel = res.ChannelName
	o.state = CallWaitingForAnswer
	id := res.NotificationID
	o.timer = time.AfterFunc(o.timeout, func() { o.answerTimedOut(id) })
	o.mu.Unlock()
	o.changed(CallDialing, CallWaitingForAnswer)
	return res, nil
}

func (o *CallOrchestrator) answerTimedOut(id uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.cancelOutgoing(ctx, id); err != nil {
		o.log.Warn("cancel unanswered call failed", zap.Uint64("notification_id", id), zap.Error(err))
	}
}

// RemoteAnswered 对方已接听
func (o *CallOrchestrator) RemoteAnswered(notificationID uint64) {
	o.mu.Lock()
	if o.state != CallWaitingForAnswer || o.outgoing == nil || o.outgoing.NotificationID != notificationID {
		o.mu.Unlock()
		return
	}
	o.stopTimerLocked()
	o.outgoing = nil
	o.state = CallInCall
	o.mu.Unlock()
	o.changed(CallWaitingForAnswer, CallInCall)
}

// RemoteDeclined 对方已拒绝
func (o *CallOrchestrator) RemoteDeclined(notificationID uint64) {
	o.mu.Lock()
	if o.state != CallWaitingForAnswer || o.outgoing == nil || o.outgoing.NotificationID != notificationID {
		o.mu.Unlock()
		return
	}
	o.stopTimerLocked()
	o.outgoing = nil
	o.channel = ""
	o.state = CallIdle
	o.mu.Unlock()
	o.changed(CallWaitingForAnswer, CallIdle)
}

// CancelDial 主叫主动取消
func (o *CallOrchestrator) CancelDial(ctx context.Context) error {
	o.mu.Lock()
	if o.state != CallWaitingForAnswer || o.outgoing == nil {
		st := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: no outgoing call (state %s)", errs.ErrFailedPrecondition, st)
	}
	id := o.outgoing.NotificationID
	o.mu.Unlock()
	return o.cancelOutgoing(ctx, id)
}

// cancelOutgoing 本地状态一定回到 Idle，服务端取消失败只返回错误
func (o *CallOrchestrator) cancelOutgoing(ctx context.Context, id uint64) error {
	o.mu.Lock()
	if o.state != CallWaitingForAnswer || o.outgoing == nil || o.outgoing.NotificationID != id {
		o.mu.Unlock()
		return nil
	}
	o.stopTimerLocked()
	o.outgoing = nil
	o.channel = ""
	o.state = CallIdle
	o.mu.Unlock()
	o.changed(CallWaitingForAnswer, CallIdle)

	if err := o.calls.Cancel(ctx, o.userID, id); err != nil && !IsStale(err) {
		return err
	}
	return nil
}

// Hangup 结束当前通话或呼叫，回到 Idle
func (o *CallOrchestrator) Hangup(ctx context.Context) error {
	switch o.State() {
	case CallWaitingForAnswer:
		return o.CancelDial(ctx)
	case CallRingingIncoming:
		return o.Decline(ctx)
	}

	o.mu.Lock()
	prev := o.state
	o.stopTimerLocked()
	o.incoming = nil
	o.outgoing = nil
	o.channel = ""
	o.state = CallIdle
	o.mu.Unlock()
	o.changed(prev, CallIdle)
	return nil
}

func (o *CallOrchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *CallOrchestrator) changed(prev, next CallState) {
	if prev == next {
		return
	}
	o.log.Debug("call state", zap.Uint64("user_id", o.userID), zap.Stringer("from", prev), zap.Stringer("to", next))
	if o.OnStateChange != nil {
		o.OnStateChange(prev, next)
	}
}
