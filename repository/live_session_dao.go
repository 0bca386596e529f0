package repository

import (
	"context"
	"time"

	"github.com/cydxin/call-sdk/models"
	"gorm.io/gorm"
)

// LiveSessionDAO 封装 LiveSession 的数据访问
// viewer_count 的增减全部用 SQL 表达式完成，不做“读出来 +1 再写回”。
type LiveSessionDAO struct {
	db *gorm.DB
}

func NewLiveSessionDAO(db *gorm.DB) *LiveSessionDAO {
	return &LiveSessionDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *LiveSessionDAO) WithDB(db *gorm.DB) *LiveSessionDAO {
	if db == nil {
		return dao
	}
	return &LiveSessionDAO{db: db}
}

func (dao *LiveSessionDAO) Create(ctx context.Context, s *models.LiveSession) error {
	return dao.db.WithContext(ctx).Create(s).Error
}

// GetByID 不存在时返回 gorm.ErrRecordNotFound
func (dao *LiveSessionDAO) GetByID(ctx context.Context, id string) (*models.LiveSession, error) {
	var s models.LiveSession
	if err := dao.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountActiveByOwner 主播当前进行中的直播数
func (dao *LiveSessionDAO) CountActiveByOwner(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := dao.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&n).Error
	return n, err
}

// ListActive 进行中的直播，按创建时间倒序
func (dao *LiveSessionDAO) ListActive(ctx context.Context, limit int) ([]models.LiveSession, error) {
	var rows []models.LiveSession
	err := dao.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// IncrViewer viewer_count+1，只对进行中的直播生效。返回影响行数（0 表示不存在或已结束）。
func (dao *LiveSessionDAO) IncrViewer(ctx context.Context, id string) (int64, error) {
	res := dao.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("viewer_count", gorm.Expr("viewer_count + ?", 1))
	return res.RowsAffected, res.Error
}

// DecrViewer viewer_count-1，计数为 0 或已结束时不动
func (dao *LiveSessionDAO) DecrViewer(ctx context.Context, id string) (int64, error) {
	res := dao.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("id = ? AND is_active = ? AND viewer_count > ?", id, true, 0).
		UpdateColumn("viewer_count", gorm.Expr("viewer_count - ?", 1))
	return res.RowsAffected, res.Error
}

// End is_active=false + ended_at=now，仅当仍在直播时写入，保证 ended_at 只写一次；
// 同时释放 active_owner，主播可以再次开播
func (dao *LiveSessionDAO) End(ctx context.Context, id string, now time.Time) (int64, error) {
	res := dao.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumns(map[string]any{"is_active": false, "ended_at": now, "updated_at": now, "active_owner": nil})
	return res.RowsAffected, res.Error
}

// ListExpiredIDs 已结束且 ended_at 早于 before 的直播 id（按 id 升序，最多 limit 条）
func (dao *LiveSessionDAO) ListExpiredIDs(ctx context.Context, before time.Time, limit int) ([]string, error) {
	var ids []string
	err := dao.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("is_active = ? AND ended_at < ?", false, before).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteByIDs 硬删除；调用方负责事务
func (dao *LiveSessionDAO) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dao.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.LiveSession{})
	return res.RowsAffected, res.Error
}
