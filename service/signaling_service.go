package service

import (
	"context"
	"time"

	"github.com/cydxin/call-sdk/models"
	"go.uber.org/zap"
)

// InviteTTL 来电有效期：超过 callStartTime+60s 的邀请视为过期，各订阅方独立判定
const InviteTTL = 60 * time.Second

// 同一次评估里最多连续处理的过期记录数，防止标记已读失败时死循环
const maxStaleSkips = 8

// CallInviteStore 信令依赖的通知存储能力，NotificationService 实现该接口
type CallInviteStore interface {
	LatestActiveCall(ctx context.Context, userID uint64) (*models.Notification, error)
	MarkRead(ctx context.Context, userID uint64, ids ...uint64) error
	Deactivate(ctx context.Context, userID, id uint64) error
	Watch(ctx context.Context, userID uint64) (<-chan struct{}, func(), error)
}

var _ CallInviteStore = (*NotificationService)(nil)

type CallEventKind string

const (
	CallEventInvite    CallEventKind = "invite"
	CallEventCancelled CallEventKind = "cancelled"
)

// Invite 来电信息，由通知 data 重建
type Invite struct {
	NotificationID uint64    `json:"notificationId"`
	CallerID       uint64    `json:"callerId"`
	CallerName     string    `json:"callerName"`
	CallerAvatar   string    `json:"callerAvatar"`
	CallType       string    `json:"callType"`
	ChannelName    string    `json:"channelName"`
	StartedAt      time.Time `json:"startedAt"`
}

// CallEvent Kind=invite 时 Invite 非空；cancelled 不携带内容
type CallEvent struct {
	Kind   CallEventKind `json:"kind"`
	Invite *Invite       `json:"invite,omitempty"`
}

// SignalingService 把接收人的通知集合变成来电事件流
type SignalingService struct {
	store CallInviteStore
	log   *zap.Logger
	now   func() time.Time
	ttl   time.Duration
}

type SignalingOption func(*SignalingService)

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) SignalingOption {
	return func(s *SignalingService) { s.now = now }
}

// WithInviteTTL 覆盖来电有效期（测试用）
func WithInviteTTL(d time.Duration) SignalingOption {
	return func(s *SignalingService) { s.ttl = d }
}

func NewSignalingService(store CallInviteStore, log *zap.Logger, opts ...SignalingOption) *SignalingService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &SignalingService{store: store, log: log, now: time.Now, ttl: InviteTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe 订阅 recipientID 的来电事件。
// 订阅建立失败直接返回错误（不自动重试，调用方自行退避重订）。
// 成功后立即按当前快照评估一次，之后每次通知变更、或已展示来电到期时重新评估。
// ctx 结束时关闭返回的 channel。
func (s *SignalingService) Subscribe(ctx context.Context, recipientID uint64) (<-chan CallEvent, error) {
	ticks, cancel, err := s.store.Watch(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	out := make(chan CallEvent, 8)
	go s.loop(ctx, recipientID, ticks, cancel, out)
	return out, nil
}

type signalingState struct {
	surfaced *Invite
	timer    *time.Timer
}

func (st *signalingState) stopTimer() {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
}

func (s *SignalingService) loop(ctx context.Context, recipientID uint64, ticks <-chan struct{}, cancel func(), out chan<- CallEvent) {
	defer close(out)
	defer cancel()

	st := &signalingState{}
	defer st.stopTimer()

	expired := make(chan struct{}, 1)
	emit := func(ev CallEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !s.evaluate(ctx, recipientID, st, expired, emit) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
		case <-expired:
		}
		if !s.evaluate(ctx, recipientID, st, expired, emit) {
			return
		}
	}
}

// evaluate 返回 false 表示 ctx 已结束
func (s *SignalingService) evaluate(ctx context.Context, recipientID uint64, st *signalingState, expired chan struct{}, emit func(CallEvent) bool) bool {
	for i := 0; i < maxStaleSkips; i++ {
		n, err := s.store.LatestActiveCall(ctx, recipientID)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			s.log.Warn("query active call failed", zap.Uint64("user_id", recipientID), zap.Error(err))
			return true
		}

		if n == nil {
			if st.surfaced != nil {
				st.surfaced = nil
				st.stopTimer()
				return emit(CallEvent{Kind: CallEventCancelled})
			}
			return true
		}

		p, ok := n.CallPayload()
		if !ok {
			s.log.Warn("call notification with bad payload", zap.Uint64("notification_id", n.ID))
			return true
		}

		age := s.now().Sub(p.StartedAt())
		if age >= s.ttl {
			s.expire(ctx, recipientID, n.ID)
			if st.surfaced != nil && st.surfaced.NotificationID == n.ID {
				st.surfaced = nil
				st.stopTimer()
				if !emit(CallEvent{Kind: CallEventCancelled}) {
					return false
				}
			}
			continue
		}

		if st.surfaced != nil && st.surfaced.NotificationID == n.ID {
			return true
		}
		inv := &Invite{
			NotificationID: n.ID,
			CallerID:       p.CallerID,
			CallerName:     p.CallerName,
			CallerAvatar:   p.CallerAvatar,
			CallType:       p.CallType,
			ChannelName:    p.ChannelName,
			StartedAt:      p.StartedAt(),
		}
		if inv.CallerID == 0 {
			inv.CallerID = n.FromUserID
		}
		st.surfaced = inv
		st.stopTimer()
		st.timer = time.AfterFunc(s.ttl-age, func() {
			select {
			case expired <- struct{}{}:
			default:
			}
		})
		return emit(CallEvent{Kind: CallEventInvite, Invite: inv})
	}
	return true
}

// expire 过期邀请：标记已读，并尽力把 callActive 置 false 让其他设备收敛
func (s *SignalingService) expire(ctx context.Context, recipientID, id uint64) {
	if err := s.store.MarkRead(ctx, recipientID, id); err != nil {
		s.log.Warn("mark stale invite read failed", zap.Uint64("notification_id", id), zap.Error(err))
	}
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.Deactivate(bg, recipientID, id); err != nil {
			s.log.Warn("deactivate stale invite failed", zap.Uint64("notification_id", id), zap.Error(err))
		}
	}()
}
