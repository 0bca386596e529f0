package message

// WS 上行消息类型（client -> server）
const (
	WsTypePing        = "ping"
	WsTypeLiveWatch   = "live.watch"   // 订阅直播间状态
	WsTypeLiveUnwatch = "live.unwatch" // 取消订阅
)

// LiveWatchReq live.watch / live.unwatch
type LiveWatchReq struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	PacketID  string `json:"packet_id"` // 可选：客户端匹配 ack
}

// Ack 上行消息的处理结果
type Ack struct {
	Type     string `json:"type"` // ack
	PacketID string `json:"packet_id,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// CallEventPush 呼叫相关下行：call.invite / call.cancelled / call.accepted / call.declined
type CallEventPush struct {
	Type           string `json:"type"`
	NotificationID uint64 `json:"notification_id,omitempty"`
	ChannelName    string `json:"channel_name,omitempty"`
	CallerID       uint64 `json:"caller_id,omitempty"`
	CallerName     string `json:"caller_name,omitempty"`
	CallerAvatar   string `json:"caller_avatar,omitempty"`
	CallType       string `json:"call_type,omitempty"`
	StartedAt      int64  `json:"started_at,omitempty"` // 毫秒
	PeerID         uint64 `json:"peer_id,omitempty"`    // accepted/declined：对方用户
}

// LiveStatePush 直播间状态下行：live.state，终态为 live.ended
type LiveStatePush struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	OwnerID     uint64 `json:"owner_id"`
	ChannelName string `json:"channel_name"`
	Title       string `json:"title,omitempty"`
	IsActive    bool   `json:"is_active"`
	ViewerCount int64  `json:"viewer_count"`
	EndedAt     int64  `json:"ended_at,omitempty"` // 秒
}
