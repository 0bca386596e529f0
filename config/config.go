package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 服务端配置：环境变量（.env 存在时先加载）
type Config struct {
	AppEnv   string // APP_ENV: development / production
	AppHost  string // APP_HOST
	HTTPPort string // APP_PORT 或 HTTP_PORT
	LogLevel string // LOG_LEVEL

	DB struct {
		Driver   string // mysql / postgres
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string // postgres only
	}
	TablePrefix string // TABLE_PREFIX

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// RTC 凭证启动时不校验，缺失时签发接口返回 FailedPrecondition
	RtcAppID          string
	RtcAppCertificate string

	AllowMultipleLive bool   // LIVE_ALLOW_MULTIPLE
	CleanupCron       string // CLEANUP_CRON，UTC
}

// Load 读取配置（.env 可选）
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("config: REDIS_DB: %w", err)
	}
	multi, err := strconv.ParseBool(getEnv("LIVE_ALLOW_MULTIPLE", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: LIVE_ALLOW_MULTIPLE: %w", err)
	}

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		AppHost:           getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:          firstEnv("APP_PORT", "HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TablePrefix:       getEnv("TABLE_PREFIX", "im_"),
		RtcAppID:          strings.TrimSpace(os.Getenv("RTC_APP_ID")),
		RtcAppCertificate: strings.TrimSpace(os.Getenv("RTC_APP_CERTIFICATE")),
		AllowMultipleLive: multi,
		CleanupCron:       getEnv("CLEANUP_CRON", "0 0 * * *"),
	}
	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	cfg.DB.Host = getEnv("DB_HOST", "127.0.0.1")
	cfg.DB.Port = getEnv("DB_PORT", defaultPort(cfg.DB.Driver))
	cfg.DB.User = getEnv("DB_USER", "root")
	cfg.DB.Password = os.Getenv("DB_PASSWORD")
	cfg.DB.Database = getEnv("DB_DATABASE", "call_sdk")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "127.0.0.1:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = redisDB
	return cfg, nil
}

// Validate 检查数据库/Redis 必填项
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.DB.Host == "" {
		return errors.New("config: DB_HOST is required")
	}
	if c.DB.User == "" {
		return errors.New("config: DB_USER is required")
	}
	if c.DB.Database == "" {
		return errors.New("config: DB_DATABASE is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("config: REDIS_ADDR is required")
	}
	if c.AppEnv == "production" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	return nil
}

// DSN 按驱动拼接 GORM 连接串
func (c *Config) DSN() string {
	if c.DB.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Database)
}

// Addr HTTP 监听地址
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func defaultPort(driver string) string {
	if strings.ToLower(driver) == "postgres" {
		return "5432"
	}
	return "3306"
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
