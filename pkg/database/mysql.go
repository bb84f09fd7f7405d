package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postback-platform/internal/config"
	"postback-platform/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect 进程启动时建立数据库连接。
// 依次尝试主 DSN 和备用 DSN，每个 DSN 最多尝试 ConnectAttempts 次。
func Connect(ctx context.Context, cfg config.DB, log *zap.Logger) (*gorm.DB, error) {
	dsns := []string{cfg.DSN}
	if cfg.FallbackDSN != "" && cfg.FallbackDSN != cfg.DSN {
		dsns = append(dsns, cfg.FallbackDSN)
	}
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var errs []error
	for i, dsn := range dsns {
		for attempt := 1; attempt <= attempts; attempt++ {
			db, err := Open(ctx, cfg.Driver, dsn, cfg.MaxOpenConns, cfg.MaxIdleConns)
			if err == nil {
				if i > 0 {
					log.Warn("主数据库不可用，已使用备用连接", zap.Int("attempt", attempt))
				}
				if cfg.AutoMigrate {
					if err := Migrate(db); err != nil {
						return nil, err
					}
				}
				return db, nil
			}
			errs = append(errs, err)
			log.Warn("数据库连接失败",
				zap.Bool("fallback", i > 0),
				zap.Int("attempt", attempt),
				zap.Error(err))

			if attempt < attempts {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(cfg.RetryInterval):
				}
			}
		}
	}
	return nil, fmt.Errorf("数据库连接失败: %w", errors.Join(errs...))
}

// Open 打开一个连接并检查可用性
func Open(ctx context.Context, driver, dsn string, maxOpen, maxIdle int) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate 自动迁移全部表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// OpenMemory 打开一个迁移好的内存 SQLite 库，name 区分不同的库
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := Open(context.Background(), "sqlite", dsn, 1, 1)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// IsDuplicate 判断是否为唯一约束冲突
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
