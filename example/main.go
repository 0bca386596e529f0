package main

import (
	"context"
	"log"

	call_sdk "github.com/cydxin/call-sdk"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// 把 call_sdk 嵌入到已有的 gin 服务里（独立部署请用 cmd/callserver）
func main() {
	// 1. 初始化数据库 / Redis 连接
	dsn := "root:password@tcp(127.0.0.1:3306)/call_db?charset=utf8mb4&parseTime=True&loc=UTC"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("数据库连接失败:", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis 连接失败:", err)
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// 2. 初始化 Call Engine（单例模式，全局只需调用一次）
	engine := call_sdk.NewEngine(
		call_sdk.WithDB(db),
		call_sdk.WithRDB(rdb), // token 鉴权 + 通知/直播状态 pub/sub
		call_sdk.WithTablePrefix("call_"),
		call_sdk.WithLogger(logger),
		// 不配置时 /rtc/token、/call/dial、/call/accept 返回 code=20004
		call_sdk.WithRtcCredentials("YOUR_APP_ID", "YOUR_APP_CERTIFICATE"),
	)
	defer engine.Close()

	// 3. 创建 Gin 路由
	r := gin.Default()

	// 设置 CORS（如果需要）
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// 注册 Swagger UI
	call_sdk.RegisterSwagger(r, "/swagger/*any")

	// 4. API 路由组（含 /api/v1/ws）
	engine.RegisterRoutes(r.Group("/api/v1"))

	// 5. 启动服务器
	log.Println("Call Server 启动在 :8080")
	log.Println("Swagger UI: http://localhost:8080/swagger/index.html")
	log.Println("WebSocket 地址: ws://localhost:8080/api/v1/ws?token=YOUR_TOKEN")
	if err := r.Run(":8080"); err != nil {
		log.Fatal("服务器启动失败:", err)
	}
}
