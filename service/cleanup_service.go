package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cydxin/call-sdk/errs"
	"github.com/cydxin/call-sdk/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// LiveRetention 已结束直播的保留时长
	LiveRetention = 30 * 24 * time.Hour
	// CleanupBatchSize 每个事务最多删除的行数
	CleanupBatchSize = 500
)

// CleanupResult 一次清理的统计
type CleanupResult struct {
	Batches int   `json:"batches"`
	Deleted int64 `json:"deleted"`
}

// CleanupService 删除 ended_at 超过保留期的直播记录
type CleanupService struct {
	*Service
	dao *repository.LiveSessionDAO

	Retention time.Duration
	BatchSize int
}

func NewCleanupService(s *Service) *CleanupService {
	return &CleanupService{
		Service:   s,
		dao:       repository.NewLiveSessionDAO(s.DB),
		Retention: LiveRetention,
		BatchSize: CleanupBatchSize,
	}
}

// Run 分批删除，每批一个事务；某批不满 BatchSize 即结束。
// 失败时已提交的批次保留，下次运行重新查询即可。
func (s *CleanupService) Run(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	cutoff := s.now().Add(-s.Retention)
	batch := s.BatchSize
	if batch <= 0 {
		batch = CleanupBatchSize
	}
	log := s.logger().With(zap.Time("cutoff", cutoff))

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var found int
		var deleted int64
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dao := s.dao.WithDB(tx)
			ids, err := dao.ListExpiredIDs(ctx, cutoff, batch)
			if err != nil {
				return err
			}
			found = len(ids)
			if found == 0 {
				return nil
			}
			n, err := dao.DeleteByIDs(ctx, ids)
			deleted = n
			return err
		})
		if err != nil {
			log.Error("live session cleanup failed",
				zap.Int("batches", res.Batches), zap.Int64("deleted", res.Deleted), zap.Error(err))
			return res, fmt.Errorf("%w: cleanup live sessions: %v", errs.ErrInternal, err)
		}
		if found > 0 {
			res.Batches++
			res.Deleted += deleted
		}
		if found < batch {
			break
		}
	}

	log.Info("live session cleanup done", zap.Int("batches", res.Batches), zap.Int64("deleted", res.Deleted))
	return res, nil
}
