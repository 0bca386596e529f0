package call_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/call-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 直播（Live）相关接口 --------------------

type CreateLiveReq struct {
	ChannelName string `json:"channelName"` // 为空时使用 live_{userId}
	Title       string `json:"title"`
}

// GinHandleCreateLive 开播
// @Summary 开播
// @Description 同一主播同时只能有一个进行中的直播（code=20003）
// @Tags 直播
// @Accept json
// @Produce json
// @Param req body CreateLiveReq true "请求参数"
// @Success 200 {object} response.Response{data=models.LiveSession}
// @Security BearerAuth
// @Router /live [post]
func (c *CallEngine) GinHandleCreateLive(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req CreateLiveReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	sess, err := c.LiveSessionService.Create(ctx.Request.Context(), uid, req.ChannelName, req.Title)
	if err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(sess))
}

// GinHandleListLive 进行中的直播
// @Summary 直播列表
// @Tags 直播
// @Produce json
// @Param limit query int false "条数(默认50,最大200)"
// @Success 200 {object} response.Response{data=[]service.LiveSessionState}
// @Security BearerAuth
// @Router /live [get]
func (c *CallEngine) GinHandleListLive(ctx *gin.Context) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	items, err := c.LiveSessionService.ListActive(ctx.Request.Context(), limit)
	if err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(items))
}

// GinHandleGetLive 直播详情
// @Summary 直播详情
// @Tags 直播
// @Produce json
// @Param id path string true "直播 ID"
// @Success 200 {object} response.Response{data=models.LiveSession}
// @Security BearerAuth
// @Router /live/{id} [get]
func (c *CallEngine) GinHandleGetLive(ctx *gin.Context) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	sess, err := c.LiveSessionService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(sess))
}

// GinHandleJoinLive 进入直播间（观看人数 +1）
// @Summary 进入直播间
// @Description 直播已结束返回 code=20002
// @Tags 直播
// @Produce json
// @Param id path string true "直播 ID"
// @Success 200 {object} response.Response{data=service.LiveSessionState}
// @Security BearerAuth
// @Router /live/{id}/join [post]
func (c *CallEngine) GinHandleJoinLive(ctx *gin.Context) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	st, err := c.LiveSessionService.Join(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(st))
}

// GinHandleLeaveLive 离开直播间（观看人数 -1，不会小于 0）
// @Summary 离开直播间
// @Tags 直播
// @Produce json
// @Param id path string true "直播 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /live/{id}/leave [post]
func (c *CallEngine) GinHandleLeaveLive(ctx *gin.Context) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	if err := c.LiveSessionService.Leave(ctx.Request.Context(), ctx.Param("id")); err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleEndLive 主播结束直播（幂等）
// @Summary 结束直播
// @Tags 直播
// @Produce json
// @Param id path string true "直播 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /live/{id}/end [post]
func (c *CallEngine) GinHandleEndLive(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.LiveSessionService.End(ctx.Request.Context(), ctx.Param("id"), uid); err != nil {
		replyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleWS WebSocket 入口（token 走 query）
// @Summary WebSocket
// @Description 下行：call.invite / call.cancelled / call.accepted / call.declined / live.state / live.ended；上行：live.watch / live.unwatch / ping
// @Tags WebSocket
// @Param token query string true "登录 token"
// @Success 101 {string} string "Switching Protocols"
// @Security QueryToken
// @Router /ws [get]
func (c *CallEngine) GinHandleWS(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	c.ServeWS(ctx.Writer, ctx.Request, uid)
}
