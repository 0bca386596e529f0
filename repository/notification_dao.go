package repository

import (
	"context"
	"time"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationDAO 封装 Notification 的数据访问
//
// 约定同 ConversationDAO：只做 CRUD/查询封装，不做业务编排。
type NotificationDAO struct {
	db *gorm.DB
}

func NewNotificationDAO(db *gorm.DB) *NotificationDAO {
	return &NotificationDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *NotificationDAO) WithDB(db *gorm.DB) *NotificationDAO {
	if db == nil {
		return dao
	}
	return &NotificationDAO{db: db}
}

func (dao *NotificationDAO) Create(ctx context.Context, n *models.Notification) error {
	return dao.db.WithContext(ctx).Create(n).Error
}

// GetByID 不存在时返回 gorm.ErrRecordNotFound
func (dao *NotificationDAO) GetByID(ctx context.Context, id uint64) (*models.Notification, error) {
	var n models.Notification
	if err := dao.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// LatestActiveCall 接收人最近一条“未读 + callActive=true”的呼叫通知，没有时返回 (nil, nil)
func (dao *NotificationDAO) LatestActiveCall(ctx context.Context, userID uint64) (*models.Notification, error) {
	var rows []models.Notification
	err := dao.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND type IN ? AND is_read = ?", userID, cons.CallNotificationTypes, false).
		Where(datatypes.JSONQuery("data").Equals(true, "callActive")).
		Order("created_at DESC").Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// List 游标分页（id 倒序），cursor=0 从最新开始
func (dao *NotificationDAO) List(ctx context.Context, userID, cursor uint64, limit int, unreadOnly bool) ([]models.Notification, error) {
	q := dao.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var rows []models.Notification
	err := q.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// MarkRead 只更新仍未读的行，重复调用是 no-op。返回实际更新行数。
func (dao *NotificationDAO) MarkRead(ctx context.Context, userID uint64, ids []uint64, now time.Time) (int64, error) {
	res := dao.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND is_read = ?", userID, ids, false).
		Updates(map[string]any{"is_read": true, "read_at": &now})
	return res.RowsAffected, res.Error
}

// ClaimCall 接听时原子地占用邀请：仅当仍未读且 callActive=true 时置已读。
// 返回 0 表示已被其他设备接听/拒绝或已被主叫取消。
func (dao *NotificationDAO) ClaimCall(ctx context.Context, userID, id uint64, now time.Time) (int64, error) {
	res := dao.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Where(datatypes.JSONQuery("data").Equals(true, "callActive")).
		Updates(map[string]any{"is_read": true, "read_at": &now})
	return res.RowsAffected, res.Error
}

// Deactivate data.callActive=false，记录不删除
func (dao *NotificationDAO) Deactivate(ctx context.Context, id uint64) (int64, error) {
	db := dao.db.WithContext(ctx)
	res := db.Model(&models.Notification{}).
		Where("id = ?", id).
		UpdateColumn("data", callInactiveExpr(db.Dialector.Name()))
	return res.RowsAffected, res.Error
}

// callInactiveExpr data 列是 json 类型；postgres 的 jsonb_set 需要 jsonb 和 {key} 形式的路径
func callInactiveExpr(dialect string) any {
	if dialect == "postgres" {
		return gorm.Expr(`jsonb_set("data"::jsonb, '{callActive}', 'false'::jsonb)::json`)
	}
	return datatypes.JSONSet("data").Set("callActive", false)
}
