package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/errs"
	"github.com/cydxin/call-sdk/models"
	"github.com/cydxin/call-sdk/repository"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService 通知存储：落库 + 变更广播（Redis pub/sub）
// 约定：写库成功后向 im:notify:{userId} 发布一个变更信号，订阅方收到后自行重新查询；
// 信号只表示“有变化”，不携带内容，丢失/重复都无妨。
type NotificationService struct {
	*Service
	dao *repository.NotificationDAO
}

func NewNotificationService(s *Service) *NotificationService {
	return &NotificationService{Service: s, dao: repository.NewNotificationDAO(s.DB)}
}

func notifyChannel(userID uint64) string {
	return "im:notify:" + strconv.FormatUint(userID, 10)
}

// Create 写入一条通知（created_at 由服务端赋值）
func (s *NotificationService) Create(ctx context.Context, n *models.Notification) error {
	if n == nil || n.UserID == 0 {
		return fmt.Errorf("%w: user_id is required", errs.ErrInvalidArgument)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: type is required", errs.ErrInvalidArgument)
	}
	n.CreatedAt = s.now()
	n.IsRead = false
	n.ReadAt = nil
	if err := s.dao.Create(ctx, n); err != nil {
		return fmt.Errorf("%w: create notification: %v", errs.ErrInternal, err)
	}
	s.publishChange(ctx, n.UserID)
	return nil
}

// CreateCallInvite 写入呼叫邀请；callType 决定通知类型
func (s *NotificationService) CreateCallInvite(ctx context.Context, fromUserID, toUserID uint64, p *models.CallPayload) (*models.Notification, error) {
	if p == nil || p.ChannelName == "" {
		return nil, fmt.Errorf("%w: channelName is required", errs.ErrInvalidArgument)
	}
	typ := cons.NotificationTypeForCall(p.CallType)
	if typ == "" {
		return nil, fmt.Errorf("%w: unknown callType %q", errs.ErrInvalidArgument, p.CallType)
	}
	data, err := models.EncodePayload(p)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", errs.ErrInternal, err)
	}
	n := &models.Notification{UserID: toUserID, FromUserID: fromUserID, Type: typ, Data: data}
	if err := s.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Get 不存在返回 errs.ErrNotFound
func (s *NotificationService) Get(ctx context.Context, id uint64) (*models.Notification, error) {
	n, err := s.dao.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: notification %d", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get notification: %v", errs.ErrInternal, err)
	}
	return n, nil
}

// LatestActiveCall 最近一条未读且 callActive 的呼叫邀请，没有返回 (nil, nil)
func (s *NotificationService) LatestActiveCall(ctx context.Context, userID uint64) (*models.Notification, error) {
	n, err := s.dao.LatestActiveCall(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query active call: %v", errs.ErrInternal, err)
	}
	return n, nil
}

// MarkRead 幂等：已读的行不会再被更新，也不会报错
func (s *NotificationService) MarkRead(ctx context.Context, userID uint64, ids ...uint64) error {
	if userID == 0 {
		return fmt.Errorf("%w: user_id is required", errs.ErrInvalidArgument)
	}
	if len(ids) == 0 {
		return nil
	}
	n, err := s.dao.MarkRead(ctx, userID, ids, s.now())
	if err != nil {
		return fmt.Errorf("%w: mark read: %v", errs.ErrInternal, err)
	}
	if n > 0 {
		s.publishChange(ctx, userID)
	}
	return nil
}

// ClaimCall 接听占用邀请；邀请已读或已取消时返回 ErrStaleInvite
func (s *NotificationService) ClaimCall(ctx context.Context, userID, id uint64) error {
	n, err := s.dao.ClaimCall(ctx, userID, id, s.now())
	if err != nil {
		return fmt.Errorf("%w: claim call: %v", errs.ErrInternal, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: notification %d already handled", errs.ErrStaleInvite, id)
	}
	s.publishChange(ctx, userID)
	return nil
}

// Deactivate 将呼叫邀请置为 callActive=false（不删除记录）
func (s *NotificationService) Deactivate(ctx context.Context, userID, id uint64) error {
	if _, err := s.dao.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("%w: deactivate call: %v", errs.ErrInternal, err)
	}
	s.publishChange(ctx, userID)
	return nil
}

// NotificationDTO HTTP 返回结构
type NotificationDTO struct {
	ID         uint64         `json:"id"`
	FromUserID uint64         `json:"fromUserId"`
	Type       string         `json:"type"`
	Data       datatypes.JSON `json:"data,omitempty" swaggertype:"object"`
	Read       bool           `json:"read"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// List 拉取用户通知（id 倒序，游标分页）
func (s *NotificationService) List(ctx context.Context, userID, cursor uint64, limit int, unreadOnly bool) ([]NotificationDTO, uint64, error) {
	if userID == 0 {
		return nil, 0, fmt.Errorf("%w: user_id is required", errs.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.dao.List(ctx, userID, cursor, limit, unreadOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list notifications: %v", errs.ErrInternal, err)
	}
	out := make([]NotificationDTO, 0, len(rows))
	var next uint64
	for _, r := range rows {
		out = append(out, NotificationDTO{
			ID:         r.ID,
			FromUserID: r.FromUserID,
			Type:       r.Type,
			Data:       r.Data,
			Read:       r.IsRead,
			CreatedAt:  r.CreatedAt,
		})
		next = r.ID
	}
	return out, next, nil
}

// Watch 订阅某个用户通知集合的变更信号。
// 返回的 channel 合并连续信号（缓冲 1），cancel 释放订阅；ctx 结束时也会自动释放。
// 建立订阅失败直接返回错误，不做重试。
func (s *NotificationService) Watch(ctx context.Context, userID uint64) (<-chan struct{}, func(), error) {
	if s.RDB == nil {
		return nil, nil, fmt.Errorf("%w: redis is not configured", errs.ErrFailedPrecondition)
	}
	ps := s.RDB.Subscribe(ctx, notifyChannel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("%w: subscribe notifications: %v", errs.ErrInternal, err)
	}
	return forwardTicks(ctx, ps)
}

func (s *NotificationService) publishChange(ctx context.Context, userID uint64) {
	if s.RDB == nil {
		return
	}
	if err := s.RDB.Publish(ctx, notifyChannel(userID), "1").Err(); err != nil {
		s.logger().Warn("publish notification change failed", zap.Uint64("user_id", userID), zap.Error(err))
	}
}

// forwardTicks 把 pub/sub 消息压成“有变化”信号
func forwardTicks(ctx context.Context, ps *redis.PubSub) (<-chan struct{}, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	ticks := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(ticks)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case ticks <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ticks, cancel, nil
}
