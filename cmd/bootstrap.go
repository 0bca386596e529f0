package cmd

import (
	"context"
	"fmt"

	call_sdk "github.com/cydxin/call-sdk"
	"github.com/cydxin/call-sdk/config"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// deps 各子命令共用的基础依赖
type deps struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
	rdb *redis.Client
}

func (d *deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.db != nil {
		if sqlDB, err := d.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = d.log.Sync()
}

func loadDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return &deps{cfg: cfg, log: log, db: db, rdb: rdb}, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = mysql.Open(cfg.DSN())
	}
	gcfg := &gorm.Config{}
	if cfg.IsProduction() {
		gcfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	return gorm.Open(dialector, gcfg)
}

// newEngine skipMigrate=true 时不在启动时建表
func (d *deps) newEngine(skipMigrate bool) *call_sdk.CallEngine {
	return call_sdk.NewEngine(
		call_sdk.WithDB(d.db),
		call_sdk.WithRDB(d.rdb),
		call_sdk.WithTablePrefix(d.cfg.TablePrefix),
		call_sdk.WithLogger(d.log),
		call_sdk.WithRtcCredentials(d.cfg.RtcAppID, d.cfg.RtcAppCertificate),
		call_sdk.WithAllowMultipleLive(d.cfg.AllowMultipleLive),
		call_sdk.WithSkipAutoMigrate(skipMigrate),
	)
}
