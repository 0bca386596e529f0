// Package call_sdk 提供音视频呼叫信令 + 直播间状态的 SDK 能力
// @title Call Signaling & Live Session API
// @version 1.0
// @description 一对一音视频呼叫信令、RTC 入会 token、直播间登记与用户通知。
// @description 媒体流本身不经过本服务：呼叫双方凭 /rtc/token 或接听返回的 token 直接加入 RTC 频道。
// @description
// @description ## 呼叫流程
// @description 1. 主叫 POST /call/dial，被叫通过 /ws 收到 call.invite；60 秒内上线的被叫连上后也会收到
// @description 2. 被叫 POST /call/accept 或 /call/decline，主叫收到 call.accepted / call.declined
// @description 3. 主叫 POST /call/cancel 或邀请超过 60 秒未处理，被叫收到 call.cancelled
// @description
// @description 同一邀请只能被一台设备接听，后到的接听返回 20001。
// @description
// @description ## 业务状态码说明
// @description | Code | 说明 |
// @description |------|------|
// @description | 0 | 成功 |
// @description | 10001 | 参数错误（含频道名超过 64 字节） |
// @description | 10002 | 资源不存在 |
// @description | 10004 | Token 无效 |
// @description | 10005 | 权限不足 |
// @description | 20001 | 呼叫邀请已过期/已处理 |
// @description | 20002 | 直播已结束 |
// @description | 20003 | 已有进行中的直播 |
// @description | 20004 | 前置条件不满足（如未配置 RTC 凭证） |
// @description | 99999 | 内部错误 |
// @description
// @description ## 响应格式
// @description HTTP 状态码只区分认证失败（401）与其余情况，业务结果看 code：
// @description ```json
// @description {
// @description   "code": 0,
// @description   "msg": "success",
// @description   "data": {}
// @description }
// @description ```
//
// @tag.name 呼叫
// @tag.description 邀请 / 接听 / 拒绝 / 取消
// @tag.name RTC
// @tag.description 频道 token 签发，token 不落库
// @tag.name 直播
// @tag.description 开播 / 观看人数 / 结束，每个主播同时只有一个进行中的直播
// @tag.name 通知
// @tag.description 通知列表与已读
// @tag.name WebSocket
// @tag.description 下行推送：呼叫事件、通知变化、直播间状态
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 格式：Bearer <token>
//
// @securityDefinitions.apikey QueryToken
// @in query
// @name token
// @description 用于 WebSocket 等无法传 header 的场景
package call_sdk
