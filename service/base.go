package service

import (
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 基础服务，包含数据库/Redis/日志等公共依赖
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Log         *zap.Logger

	// WsNotifier 用于发送 WebSocket 通知的回调函数
	// 避免循环依赖，通过函数注入的方式
	WsNotifier func(userID uint64, message []byte)

	// Now 可注入的时钟，测试用；nil 时使用 time.Now
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Table 获取带前缀的表名
func (s *Service) Table(name string) *gorm.DB {
	return s.DB.Table(s.TablePrefix + name)
}

func (s *Service) notify(userID uint64, msg []byte) {
	if s.WsNotifier == nil || userID == 0 {
		return
	}
	s.WsNotifier(userID, msg)
}
