package call_sdk

import (
	"net/http"

	"github.com/cydxin/call-sdk/response"
	"github.com/gin-gonic/gin"
)

// RtcTokenReq 申请频道 token
type RtcTokenReq struct {
	ChannelName string `json:"channelName" binding:"required" example:"call_1001_1002"`
	UID         uint32 `json:"uid" example:"0"`              // 媒体层 uid，0 表示由媒体层分配
	Role        string `json:"role" example:"publisher"`     // publisher（默认）/ audience / subscriber
}

// GinHandleRtcToken 签发 RTC 频道 token
// @Summary 签发 RTC 频道 token
// @Description 有效期 24 小时；每次调用都会签发新 token。只校验登录，不做频道级权限控制。
// @Tags RTC
// @Accept json
// @Produce json
// @Param req body RtcTokenReq true "请求参数"
// @Success 200 {object} response.Response{data=service.RtcToken}
// @Failure 401 {object} response.Response "未登录"
// @Security BearerAuth
// @Router /rtc/token [post]
func (c *CallEngine) GinHandleRtcToken(ctx *gin.Context) {
	if _, ok := currentUser(ctx); !ok {
		return
	}

	var req RtcTokenReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	tok, err := c.RtcTokenService.Issue(ctx.Request.Context(), req.ChannelName, req.UID, req.Role)
	if err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(tok))
}
