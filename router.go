package call_sdk

import (
	"github.com/cydxin/call-sdk/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部 HTTP / WS 接口（均需登录）
//
// 使用示例：
//
//	r := gin.Default()
//	engine.RegisterRoutes(r.Group("/api/v1"))
func (c *CallEngine) RegisterRoutes(g *gin.RouterGroup) {
	auth := g.Group("", c.GinAuthMiddleware(&middleware.AuthOptions{}))

	auth.POST("/rtc/token", c.GinHandleRtcToken)

	call := auth.Group("/call")
	call.POST("/dial", c.GinHandleDial)
	call.POST("/cancel", c.GinHandleCancelCall)
	call.POST("/accept", c.GinHandleAcceptCall)
	call.POST("/decline", c.GinHandleDeclineCall)
	call.POST("/hangup", c.GinHandleHangup)
	call.GET("/state", c.GinHandleCallState)

	notify := auth.Group("/notification")
	notify.GET("/list", c.GinHandleListNotifications)
	notify.POST("/read", c.GinHandleMarkNotificationsRead)

	live := auth.Group("/live")
	live.POST("", c.GinHandleCreateLive)
	live.GET("", c.GinHandleListLive)
	live.GET("/:id", c.GinHandleGetLive)
	live.POST("/:id/join", c.GinHandleJoinLive)
	live.POST("/:id/leave", c.GinHandleLeaveLive)
	live.POST("/:id/end", c.GinHandleEndLive)

	auth.GET("/ws", c.GinHandleWS)
}
