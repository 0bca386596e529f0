package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/errs"
	"github.com/cydxin/call-sdk/message"
	"github.com/cydxin/call-sdk/models"
	"go.uber.org/zap"
)

// DialRequest 发起呼叫
type DialRequest struct {
	CalleeID     uint64 `json:"calleeId"`
	CallType     string `json:"callType"`              // voice / video
	ChannelName  string `json:"channelName,omitempty"` // 复用已有会话时传入
	CallerName   string `json:"callerName,omitempty"`
	CallerAvatar string `json:"callerAvatar,omitempty"`
	UID          uint32 `json:"uid,omitempty"`           // 主叫在媒体层的 uid，默认 0
	StartTime    int64  `json:"callStartTime,omitempty"` // 客户端毫秒时间戳，0 用服务端时间
}

type DialResult struct {
	NotificationID uint64    `json:"notificationId"`
	ChannelName    string    `json:"channelName"`
	Token          *RtcToken `json:"token"`
}

type AcceptResult struct {
	NotificationID uint64    `json:"notificationId"`
	ChannelName    string    `json:"channelName"`
	CallerID       uint64    `json:"callerId"`
	CallType       string    `json:"callType"`
	Token          *RtcToken `json:"token"`
}

// CallService 呼叫的服务端操作：拨打 / 取消 / 接听 / 拒绝
// 呼叫状态全部落在通知记录上（is_read + data.callActive），这里不保存任何会话状态。
type CallService struct {
	*Service
	store  *NotificationService
	tokens *RtcTokenService

	// OnRemote 对端接听/拒绝后回调（event 为 cons.EventCallAccepted / EventCallDeclined），
	// 由 engine 转给主叫的 CallOrchestrator
	OnRemote func(callerID uint64, event string, notificationID uint64)
}

func NewCallService(s *Service, store *NotificationService, tokens *RtcTokenService) *CallService {
	return &CallService{Service: s, store: store, tokens: tokens}
}

// Dial 写入呼叫邀请并为主叫签发 publisher token。
// 先签 token：凭证未配置时不产生任何通知。
func (s *CallService) Dial(ctx context.Context, callerID uint64, req DialRequest) (*DialResult, error) {
	if callerID == 0 || req.CalleeID == 0 {
		return nil, fmt.Errorf("%w: caller and callee are required", errs.ErrInvalidArgument)
	}
	if callerID == req.CalleeID {
		return nil, fmt.Errorf("%w: cannot call yourself", errs.ErrInvalidArgument)
	}
	if cons.NotificationTypeForCall(req.CallType) == "" {
		return nil, fmt.Errorf("%w: unknown callType %q", errs.ErrInvalidArgument, req.CallType)
	}

	channel := ChannelName(req.ChannelName, callerID, req.CalleeID)
	tok, err := s.tokens.Issue(ctx, channel, req.UID, RtcRolePublisher)
	if err != nil {
		return nil, err
	}

	start := req.StartTime
	if start <= 0 {
		start = s.now().UnixMilli()
	}
	n, err := s.store.CreateCallInvite(ctx, callerID, req.CalleeID, &models.CallPayload{
		ChannelName:   channel,
		CallerID:      callerID,
		CallerName:    req.CallerName,
		CallerAvatar:  req.CallerAvatar,
		CallType:      req.CallType,
		CallActive:    true,
		CallStartTime: start,
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("call dialed",
		zap.Uint64("notification_id", n.ID), zap.Uint64("caller", callerID),
		zap.Uint64("callee", req.CalleeID), zap.String("channel", channel))
	return &DialResult{NotificationID: n.ID, ChannelName: channel, Token: tok}, nil
}

// Cancel 主叫取消：callActive=false，被叫的订阅随之发出 cancelled。
// 已取消/已被处理的邀请再次取消是 no-op。
func (s *CallService) Cancel(ctx context.Context, callerID, notificationID uint64) error {
	n, p, err := s.loadCall(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.FromUserID != callerID && p.CallerID != callerID {
		return fmt.Errorf("%w: not the caller of notification %d", errs.ErrForbidden, notificationID)
	}
	if !p.CallActive {
		return nil
	}
	if err := s.store.Deactivate(ctx, n.UserID, n.ID); err != nil {
		// 尽力而为：被叫端 60s 后也会自行判定过期
		s.logger().Warn("cancel call: deactivate failed", zap.Uint64("notification_id", n.ID), zap.Error(err))
	}
	return nil
}

// Accept 被叫接听：已读/已取消/过期返回 ErrStaleInvite。
// 先签发 token 再原子占用邀请（未读且 callActive），签发失败时邀请保持原状，可以重试；
// 占用失败（其他设备已接听 / 主叫已取消）返回 ErrStaleInvite，不通知主叫。
func (s *CallService) Accept(ctx context.Context, recipientID, notificationID uint64, uid uint32) (*AcceptResult, error) {
	n, p, err := s.loadCall(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != recipientID {
		return nil, fmt.Errorf("%w: notification %d", errs.ErrNotFound, notificationID)
	}
	if n.IsRead || !p.CallActive || s.now().Sub(p.StartedAt()) >= InviteTTL {
		return nil, fmt.Errorf("%w: notification %d", errs.ErrStaleInvite, notificationID)
	}

	tok, err := s.tokens.Issue(ctx, p.ChannelName, uid, RtcRolePublisher)
	if err != nil {
		return nil, err
	}
	if err := s.store.ClaimCall(ctx, recipientID, n.ID); err != nil {
		return nil, err
	}

	callerID := p.CallerID
	if callerID == 0 {
		callerID = n.FromUserID
	}
	s.pushToCaller(callerID, cons.EventCallAccepted, n, p, recipientID)
	return &AcceptResult{
		NotificationID: n.ID,
		ChannelName:    p.ChannelName,
		CallerID:       callerID,
		CallType:       p.CallType,
		Token:          tok,
	}, nil
}

// Decline 被叫拒绝：标记已读，尽力置 callActive=false，并通知主叫。重复拒绝是 no-op。
func (s *CallService) Decline(ctx context.Context, recipientID, notificationID uint64) error {
	n, p, err := s.loadCall(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != recipientID {
		return fmt.Errorf("%w: notification %d", errs.ErrNotFound, notificationID)
	}
	if n.IsRead && !p.CallActive {
		return nil
	}
	if err := s.store.MarkRead(ctx, recipientID, n.ID); err != nil {
		return err
	}
	if p.CallActive {
		if err := s.store.Deactivate(ctx, recipientID, n.ID); err != nil {
			s.logger().Warn("decline call: deactivate failed", zap.Uint64("notification_id", n.ID), zap.Error(err))
		}
	}

	callerID := p.CallerID
	if callerID == 0 {
		callerID = n.FromUserID
	}
	s.pushToCaller(callerID, cons.EventCallDeclined, n, p, recipientID)
	return nil
}

func (s *CallService) loadCall(ctx context.Context, id uint64) (*models.Notification, *models.CallPayload, error) {
	if id == 0 {
		return nil, nil, fmt.Errorf("%w: notificationId is required", errs.ErrInvalidArgument)
	}
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, ok := n.CallPayload()
	if !ok {
		return nil, nil, fmt.Errorf("%w: call notification %d", errs.ErrNotFound, id)
	}
	return n, p, nil
}

func (s *CallService) pushToCaller(callerID uint64, event string, n *models.Notification, p *models.CallPayload, peerID uint64) {
	if s.OnRemote != nil {
		s.OnRemote(callerID, event, n.ID)
	}
	b, err := json.Marshal(message.CallEventPush{
		Type:           event,
		NotificationID: n.ID,
		ChannelName:    p.ChannelName,
		CallType:       p.CallType,
		PeerID:         peerID,
	})
	if err != nil {
		return
	}
	s.notify(callerID, b)
}

// IsStale 接听失败是否属于“邀请已失效”（调用方应静默回到空闲）
func IsStale(err error) bool {
	return errors.Is(err, errs.ErrStaleInvite) || errors.Is(err, errs.ErrNotFound)
}
