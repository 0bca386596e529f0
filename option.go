package call_sdk

import (
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Logger      *zap.Logger

	// RTC 凭证，缺失时签发 token 返回 FailedPrecondition
	RtcAppID          string
	RtcAppCertificate string

	// AllowMultipleLive 允许同一主播同时开多个直播
	AllowMultipleLive bool

	// SkipAutoMigrate 由外部迁移（如 callserver migrate）管理表结构
	SkipAutoMigrate bool
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithRDB(RDB *redis.Client) Option {
	return func(c *Config) {
		c.RDB = RDB
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithRtcCredentials 配置 RTC appId / appCertificate
func WithRtcCredentials(appID, appCertificate string) Option {
	return func(c *Config) {
		c.RtcAppID = appID
		c.RtcAppCertificate = appCertificate
	}
}

func WithAllowMultipleLive(allow bool) Option {
	return func(c *Config) {
		c.AllowMultipleLive = allow
	}
}

func WithSkipAutoMigrate(skip bool) Option {
	return func(c *Config) {
		c.SkipAutoMigrate = skip
	}
}
