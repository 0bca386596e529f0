package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cydxin/call-sdk/cons"
	"gorm.io/datatypes"
)

// Notification 用户通知（按接收人存储，只追加；is_read 只会从 false 变为 true）
// 呼叫邀请也是一种通知：type=call_voice/call_video，data.callActive 是唯一的存活标记，
// 取消呼叫不删记录，只置 callActive=false 并标记已读。
type Notification struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	UserID     uint64         `gorm:"index:idx_notify_user_type,priority:1;not null" json:"userId"`     // 接收人
	FromUserID uint64         `gorm:"index;not null" json:"fromUserId"`                                  // 发送人
	Type       string         `gorm:"size:32;index:idx_notify_user_type,priority:2;not null" json:"type"` // call_voice / call_video / like ...
	Data       datatypes.JSON `gorm:"type:json" json:"data,omitempty"`
	IsRead     bool           `gorm:"default:false;index" json:"read"`
	ReadAt     *time.Time     `json:"readAt,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

func (Notification) TableName() string { return prefix + "notification" }

// Payload 通知 data 的和类型：呼叫类为 *CallPayload，其余为 GenericPayload
type Payload interface {
	payloadType() string
}

// CallPayload 呼叫邀请的 data 结构（字段名与客户端保持一致）
type CallPayload struct {
	ChannelName   string `json:"channelName"`
	CallerID      uint64 `json:"callerId"`
	CallerName    string `json:"callerName"`
	CallerAvatar  string `json:"callerAvatar"`
	CallType      string `json:"callType"`
	CallActive    bool   `json:"callActive"`
	CallStartTime int64  `json:"callStartTime"` // 客户端时间戳（毫秒）
}

func (*CallPayload) payloadType() string { return "call" }

// StartedAt callStartTime 转 time.Time
func (p *CallPayload) StartedAt() time.Time {
	return time.UnixMilli(p.CallStartTime)
}

// GenericPayload like/comment/follow 等与呼叫无关的通知，原样保留
type GenericPayload map[string]any

func (GenericPayload) payloadType() string { return "generic" }

// DecodePayload 按 type 解析 data
func (n *Notification) DecodePayload() (Payload, error) {
	if cons.IsCallType(n.Type) {
		var p CallPayload
		if len(n.Data) > 0 {
			if err := json.Unmarshal(n.Data, &p); err != nil {
				return nil, fmt.Errorf("decode call payload of notification %d: %w", n.ID, err)
			}
		}
		return &p, nil
	}
	g := GenericPayload{}
	if len(n.Data) > 0 {
		if err := json.Unmarshal(n.Data, &g); err != nil {
			return nil, fmt.Errorf("decode payload of notification %d: %w", n.ID, err)
		}
	}
	return g, nil
}

// CallPayload 便捷方法：非呼叫类型返回 false
func (n *Notification) CallPayload() (*CallPayload, bool) {
	p, err := n.DecodePayload()
	if err != nil {
		return nil, false
	}
	cp, ok := p.(*CallPayload)
	return cp, ok
}

// EncodePayload 序列化 payload 写入 Data
func EncodePayload(p Payload) (datatypes.JSON, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
