package call_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/call-sdk/middleware"
	"github.com/cydxin/call-sdk/response"
	"github.com/gin-gonic/gin"
)

// currentUser 取鉴权中间件写入的 user_id；缺失时直接写 401
func currentUser(ctx *gin.Context) (uint64, bool) {
	uid, ok := middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return 0, false
	}
	return uid, true
}

// replyError 业务错误统一 HTTP 200 + 业务码
func replyError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusOK, response.FromError(err))
}

// -------------------- 通知（Notification）相关接口 --------------------

// GinHandleListNotifications 拉取通知
// @Summary 拉取通知
// @Tags 通知
// @Accept json
// @Produce json
// @Param cursor query uint64 false "游标(上一页最小id)"
// @Param limit query int false "条数(默认50,最大200)"
// @Param unread_only query bool false "只看未读"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.items + data.next_cursor"
// @Security BearerAuth
// @Router /notification/list [get]
func (c *CallEngine) GinHandleListNotifications(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	cursor, _ := strconv.ParseUint(ctx.DefaultQuery("cursor", "0"), 10, 64)
	unreadOnly := ctx.DefaultQuery("unread_only", "false") == "true"

	items, nextCursor, err := c.NotificationService.List(ctx.Request.Context(), uid, cursor, limit, unreadOnly)
	if err != nil {
		replyError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"items":       items,
		"next_cursor": nextCursor,
	}))
}

type MarkNotificationsReadReq struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

// GinHandleMarkNotificationsRead 标记通知已读（幂等）
// @Summary 标记通知已读
// @Tags 通知
// @Accept json
// @Produce json
// @Param req body MarkNotificationsReadReq true "请求参数"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /notification/read [post]
func (c *CallEngine) GinHandleMarkNotificationsRead(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req MarkNotificationsReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.NotificationService.MarkRead(ctx.Request.Context(), uid, req.IDs...); err != nil {
		replyError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(nil))
}
