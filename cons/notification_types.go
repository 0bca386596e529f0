package cons

// 通知类型（im_notification.type）
// 呼叫类通知与社交类通知共用一张表，本 SDK 只关心 call_*。
const (
	NotificationCallVoice = "call_voice" // 语音呼叫邀请
	NotificationCallVideo = "call_video" // 视频呼叫邀请

	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

// CallNotificationTypes 所有呼叫类通知类型
var CallNotificationTypes = []string{NotificationCallVoice, NotificationCallVideo}

// IsCallType 判断通知类型是否为呼叫邀请
func IsCallType(t string) bool {
	return t == NotificationCallVoice || t == NotificationCallVideo
}

// 呼叫类型（payload.callType）
const (
	CallTypeVoice = "voice"
	CallTypeVideo = "video"
)

// NotificationTypeForCall callType -> 通知类型，未知类型返回空串
func NotificationTypeForCall(callType string) string {
	switch callType {
	case CallTypeVoice:
		return NotificationCallVoice
	case CallTypeVideo:
		return NotificationCallVideo
	default:
		return ""
	}
}

// WS 下行事件类型（server -> client）
const (
	EventCallInvite    = "call.invite"    // 来电
	EventCallCancelled = "call.cancelled" // 来电取消/过期
	EventCallAccepted  = "call.accepted"  // 对方已接听（推给主叫）
	EventCallDeclined  = "call.declined"  // 对方已拒绝（推给主叫）
	EventLiveState     = "live.state"     // 直播间状态变化
	EventLiveEnded     = "live.ended"     // 直播结束（终态）
)

// asynq 任务类型
const (
	TaskLiveCleanup = "live:cleanup"
)
