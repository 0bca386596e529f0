package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cydxin/call-sdk/errs"
	"github.com/cydxin/call-sdk/models"
	"github.com/cydxin/call-sdk/repository"
	"github.com/cydxin/call-sdk/rtctoken"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LiveSessionState 直播间状态快照（订阅推送 / HTTP 返回）
type LiveSessionState struct {
	ID          string     `json:"id"`
	UserID      uint64     `json:"userId"`
	ChannelName string     `json:"channelName"`
	Title       string     `json:"title"`
	IsActive    bool       `json:"isActive"`
	ViewerCount int64      `json:"viewerCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
}

func stateOf(s *models.LiveSession) LiveSessionState {
	return LiveSessionState{
		ID:          s.ID,
		UserID:      s.UserID,
		ChannelName: s.ChannelName,
		Title:       s.Title,
		IsActive:    s.IsActive,
		ViewerCount: s.ViewerCount,
		CreatedAt:   s.CreatedAt,
		EndedAt:     s.EndedAt,
	}
}

// LiveSessionService 直播间登记：创建 / 进出 / 结束 / 订阅
// 观看人数只用 SQL 原子表达式增减，任何状态变化后向 im:live:{id} 发布最新快照。
type LiveSessionService struct {
	*Service
	dao *repository.LiveSessionDAO

	// AllowMultipleLive 为 true 时不限制同一主播同时开多个直播
	AllowMultipleLive bool
}

func NewLiveSessionService(s *Service) *LiveSessionService {
	return &LiveSessionService{Service: s, dao: repository.NewLiveSessionDAO(s.DB)}
}

func liveChannel(id string) string {
	return "im:live:" + id
}

// Create 开播。默认策略：同一主播只能有一个进行中的直播，否则返回 ErrAlreadyLive。
// 事务内的计数只是快速路径；并发开播由 active_owner 唯一索引兜底，冲突同样映射为 ErrAlreadyLive。
func (s *LiveSessionService) Create(ctx context.Context, ownerID uint64, channelName, title string) (*models.LiveSession, error) {
	if ownerID == 0 {
		return nil, fmt.Errorf("%w: owner is required", errs.ErrInvalidArgument)
	}
	channelName = strings.TrimSpace(channelName)
	if channelName == "" {
		channelName = "live_" + strconv.FormatUint(ownerID, 10)
	}
	if len(channelName) > rtctoken.MaxChannelNameLen {
		return nil, fmt.Errorf("%w: channelName longer than %d bytes", errs.ErrInvalidArgument, rtctoken.MaxChannelNameLen)
	}
	now := s.now()
	sess := &models.LiveSession{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		ChannelName: channelName,
		Title:       strings.TrimSpace(title),
		IsActive:    true,
		ViewerCount: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !s.AllowMultipleLive {
		sess.ActiveOwner = &ownerID
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dao := s.dao.WithDB(tx)
		if !s.AllowMultipleLive {
			n, err := dao.CountActiveByOwner(ctx, ownerID)
			if err != nil {
				return err
			}
			if n > 0 {
				return errs.ErrAlreadyLive
			}
		}
		return dao.Create(ctx, sess)
	})
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyLive) {
			return nil, err
		}
		if s.isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: owner %d", errs.ErrAlreadyLive, ownerID)
		}
		return nil, fmt.Errorf("%w: create live session: %v", errs.ErrInternal, err)
	}
	s.logger().Info("live session created", zap.String("session_id", sess.ID), zap.Uint64("owner", ownerID))
	return sess, nil
}

// isDuplicateKey 调用方传入的 *gorm.DB 不一定开了 TranslateError，这里按方言再翻译一次
func (s *LiveSessionService) isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if t, ok := s.DB.Dialector.(gorm.ErrorTranslator); ok {
		return errors.Is(t.Translate(err), gorm.ErrDuplicatedKey)
	}
	return false
}

// Get 不存在返回 ErrNotFound
func (s *LiveSessionService) Get(ctx context.Context, id string) (*models.LiveSession, error) {
	sess, err := s.dao.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: live session %s", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get live session: %v", errs.ErrInternal, err)
	}
	return sess, nil
}

// ListActive 进行中的直播（最新在前）
func (s *LiveSessionService) ListActive(ctx context.Context, limit int) ([]LiveSessionState, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.dao.ListActive(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list live sessions: %v", errs.ErrInternal, err)
	}
	out := make([]LiveSessionState, 0, len(rows))
	for i := range rows {
		out = append(out, stateOf(&rows[i]))
	}
	return out, nil
}

// Join 观看人数 +1。直播已结束返回 ErrStreamEnded，不存在返回 ErrNotFound。
func (s *LiveSessionService) Join(ctx context.Context, id string) (*LiveSessionState, error) {
	n, err := s.dao.IncrViewer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: join live session: %v", errs.ErrInternal, err)
	}
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 || !sess.IsActive {
		return nil, fmt.Errorf("%w: live session %s", errs.ErrStreamEnded, id)
	}
	st := stateOf(sess)
	s.publishState(ctx, st)
	return &st, nil
}

// Leave 观看人数 -1；不存在、已结束或已为 0 时是 no-op
func (s *LiveSessionService) Leave(ctx context.Context, id string) error {
	n, err := s.dao.DecrViewer(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: leave live session: %v", errs.ErrInternal, err)
	}
	if n == 0 {
		return nil
	}
	s.publishCurrent(ctx, id)
	return nil
}

// End 结束直播：is_active=false + ended_at=now，只写一次。
// 不存在或已结束是 no-op；ownerID 非 0 时校验主播身份。
func (s *LiveSessionService) End(ctx context.Context, id string, ownerID uint64) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	if ownerID != 0 && sess.UserID != ownerID {
		return fmt.Errorf("%w: not the owner of live session %s", errs.ErrForbidden, id)
	}
	if !sess.IsActive {
		return nil
	}
	n, err := s.dao.End(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("%w: end live session: %v", errs.ErrInternal, err)
	}
	if n == 0 {
		return nil
	}
	s.logger().Info("live session ended", zap.String("session_id", id))
	s.publishCurrent(ctx, id)
	return nil
}

// Subscribe 订阅直播间状态：先推当前快照，之后每次变化推一次；
// 收到终态（isActive=false）后推送这一条并关闭 channel。
// 直播已结束时只推一条终态后关闭。
func (s *LiveSessionService) Subscribe(ctx context.Context, id string) (<-chan LiveSessionState, error) {
	if s.RDB == nil {
		return nil, fmt.Errorf("%w: redis is not configured", errs.ErrFailedPrecondition)
	}
	ps := s.RDB.Subscribe(ctx, liveChannel(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: subscribe live session: %v", errs.ErrInternal, err)
	}
	sess, err := s.Get(ctx, id)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan LiveSessionState, 16)
	go func() {
		defer close(out)
		defer ps.Close()

		send := func(st LiveSessionState) bool {
			select {
			case out <- st:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !send(stateOf(sess)) || !sess.IsActive {
			return
		}

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var st LiveSessionState
				if err := json.Unmarshal([]byte(m.Payload), &st); err != nil {
					s.logger().Warn("bad live state payload", zap.String("session_id", id), zap.Error(err))
					continue
				}
				if !send(st) || !st.IsActive {
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *LiveSessionService) publishCurrent(ctx context.Context, id string) {
	sess, err := s.dao.GetByID(ctx, id)
	if err != nil {
		s.logger().Warn("reload live session failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	s.publishState(ctx, stateOf(sess))
}

func (s *LiveSessionService) publishState(ctx context.Context, st LiveSessionState) {
	if s.RDB == nil {
		return
	}
	b, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.RDB.Publish(ctx, liveChannel(st.ID), b).Err(); err != nil {
		s.logger().Warn("publish live state failed", zap.String("session_id", st.ID), zap.Error(err))
	}
}
