package call_sdk

import (
	"net/http"

	"github.com/cydxin/call-sdk/response"
	"github.com/cydxin/call-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 音视频呼叫（Call）相关接口 --------------------

// CallActionReq 针对某条呼叫邀请的操作
type CallActionReq struct {
	NotificationID uint64 `json:"notificationId" binding:"required"`
	UID            uint32 `json:"uid"` // 仅 accept 使用：媒体层 uid
}

// GinHandleDial 发起呼叫
// @Summary 发起呼叫
// @Description 写入呼叫邀请并返回主叫的频道 token；被叫 60 秒内未接听视为过期
// @Tags 呼叫
// @Accept json
// @Produce json
// @Param req body service.DialRequest true "请求参数"
// @Success 200 {object} response.Response{data=service.DialResult}
// @Security BearerAuth
// @Router /call/dial [post]
func (c *CallEngine) GinHandleDial(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req service.DialRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	res, err := c.Dial(ctx.Request.Context(), uid, req)
	if err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}

// GinHandleCancelCall 主叫取消
// @Summary 取消呼叫
// @Tags 呼叫
// @Accept json
// @Produce json
// @Param req body CallActionReq true "请求参数"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /call/cancel [post]
func (c *CallEngine) GinHandleCancelCall(ctx *gin.Context) {
	uid, req, ok := bindCallAction(ctx)
	if !ok {
		return
	}
	if err := c.Cancel(ctx.Request.Context(), uid, req.NotificationID); err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleAcceptCall 被叫接听
// @Summary 接听
// @Description 邀请已过期/已处理/已取消时返回 code=20001
// @Tags 呼叫
// @Accept json
// @Produce json
// @Param req body CallActionReq true "请求参数"
// @Success 200 {object} response.Response{data=service.AcceptResult}
// @Security BearerAuth
// @Router /call/accept [post]
func (c *CallEngine) GinHandleAcceptCall(ctx *gin.Context) {
	uid, req, ok := bindCallAction(ctx)
	if !ok {
		return
	}
	res, err := c.Accept(ctx.Request.Context(), uid, req.NotificationID, req.UID)
	if err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}

// GinHandleDeclineCall 被叫拒绝
// @Summary 拒绝
// @Tags 呼叫
// @Accept json
// @Produce json
// @Param req body CallActionReq true "请求参数"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /call/decline [post]
func (c *CallEngine) GinHandleDeclineCall(ctx *gin.Context) {
	uid, req, ok := bindCallAction(ctx)
	if !ok {
		return
	}
	if err := c.Decline(ctx.Request.Context(), uid, req.NotificationID); err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleHangup 挂断（结束本端呼叫状态）
// @Summary 挂断
// @Tags 呼叫
// @Produce json
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /call/hangup [post]
func (c *CallEngine) GinHandleHangup(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.Hangup(ctx.Request.Context(), uid); err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleCallState 当前呼叫状态
// @Summary 当前呼叫状态
// @Tags 呼叫
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.state"
// @Security BearerAuth
// @Router /call/state [get]
func (c *CallEngine) GinHandleCallState(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"state": c.CallState(uid).String(),
	}))
}

func bindCallAction(ctx *gin.Context) (uint64, CallActionReq, bool) {
	var req CallActionReq
	uid, ok := currentUser(ctx)
	if !ok {
		return 0, req, false
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return 0, req, false
	}
	return uid, req, true
}
