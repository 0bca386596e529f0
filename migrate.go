package call_sdk

import (
	"fmt"
	"strings"

	"github.com/cydxin/call-sdk/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateLiveSessionIDToUUID 把早期自增整型 id 的直播表迁移为 VARCHAR(36)（uuid）
// 警告：整型 id 无法转换，会清空直播表（进行中的直播会丢失），请先确认没有主播在播
func (c *CallEngine) MigrateLiveSessionIDToUUID() error {
	db := c.config.DB
	tableName := models.LiveSession{}.TableName()
	log := c.log.With(zap.String("table", tableName))

	log.Info("checking live session id column")

	// 检查表是否存在
	if !db.Migrator().HasTable(tableName) {
		log.Info("table not found, skip")
		return nil
	}

	columnTypes, err := db.Migrator().ColumnTypes(tableName)
	if err != nil {
		return fmt.Errorf("获取列类型失败: %w", err)
	}

	needsMigration := false
	for _, col := range columnTypes {
		if col.Name() != "id" {
			continue
		}
		dbType := strings.ToUpper(col.DatabaseTypeName())
		needsMigration = isIntegerColumn(dbType)
		log.Info("live session id column", zap.String("type", dbType), zap.Bool("migrate", needsMigration))
		break
	}
	if !needsMigration {
		return nil
	}

	if !isValidTableName(tableName) {
		return fmt.Errorf("invalid table name: %s", tableName)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// 1. 清空表数据（整型 id 无法转换为 uuid）
		if err := tx.Where("1 = 1").Delete(&models.LiveSession{}).Error; err != nil {
			return fmt.Errorf("清空表失败: %w", err)
		}

		// 2. 修改列类型
		if err := tx.Exec(alterIDColumnSQL(tx.Dialector.Name(), tableName)).Error; err != nil {
			return fmt.Errorf("修改列类型失败: %w", err)
		}

		// 3. 补齐索引
		for _, idx := range []string{"idx_live_owner_active", "idx_live_active_ended", "uk_live_active_owner"} {
			if !tx.Migrator().HasIndex(&models.LiveSession{}, idx) {
				if err := tx.Migrator().CreateIndex(&models.LiveSession{}, idx); err != nil {
					log.Warn("create index failed", zap.String("index", idx), zap.Error(err))
				}
			}
		}

		log.Info("live session id migrated to uuid")
		return nil
	})
}

func isIntegerColumn(dbType string) bool {
	switch dbType {
	case "BIGINT", "INT", "INTEGER", "UNSIGNED BIGINT", "INT8", "INT4", "SERIAL", "BIGSERIAL":
		return true
	}
	return false
}

func alterIDColumnSQL(dialect, table string) string {
	if dialect == "postgres" {
		return fmt.Sprintf(`ALTER TABLE "%s" ALTER COLUMN "id" DROP DEFAULT, ALTER COLUMN "id" TYPE VARCHAR(36)`, table)
	}
	// MySQL/MariaDB
	return fmt.Sprintf("ALTER TABLE `%s` MODIFY COLUMN `id` VARCHAR(36) NOT NULL", table)
}

// isValidTableName 验证表名格式，防止 SQL 注入
func isValidTableName(name string) bool {
	// 只允许字母、数字和下划线
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return len(name) > 0 && len(name) < 64 // MySQL 表名最大 64 字符
}
