package models

import "time"

// LiveSession 直播间（一对多广播）
// viewer_count 只通过原子 SQL 表达式增减；ended_at 与 is_active=false 同时写入且只写一次。
// active_owner 在直播中等于 user_id、结束后置 NULL，唯一索引保证同一主播最多一个进行中的直播
// （NULL 不参与唯一约束，允许多开时创建即为 NULL）。
type LiveSession struct {
	ID          string     `gorm:"primarykey;size:36" json:"id"`
	UserID      uint64     `gorm:"index:idx_live_owner_active,priority:1;not null" json:"userId"` // 主播
	ChannelName string     `gorm:"size:128;not null" json:"channelName"`
	Title       string     `gorm:"size:255" json:"title"`
	IsActive    bool       `gorm:"default:true;index:idx_live_owner_active,priority:2;index:idx_live_active_ended,priority:1" json:"isActive"`
	ViewerCount int64      `gorm:"default:0;not null" json:"viewerCount"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	EndedAt     *time.Time `gorm:"index:idx_live_active_ended,priority:2" json:"endedAt,omitempty"`
	ActiveOwner *uint64    `gorm:"uniqueIndex:uk_live_active_owner" json:"-"`
}

func (LiveSession) TableName() string { return prefix + "live_session" }
