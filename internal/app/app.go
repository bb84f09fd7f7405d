// Package app 组装服务端和命令行工具共用的依赖
package app

import (
	"context"
	"errors"
	"fmt"

	"postback-platform/internal/config"
	"postback-platform/internal/events"
	"postback-platform/internal/forwarder"
	"postback-platform/internal/fraud"
	"postback-platform/internal/postback"
	"postback-platform/internal/resolver"
	"postback-platform/internal/tracking"
	"postback-platform/pkg/database"
	"postback-platform/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 已连接的依赖集合
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *goredis.Client
	Publisher events.Publisher
	Scorer    *fraud.Scorer
	Recorder  *tracking.Recorder
	Receiver  *postback.Receiver
}

// New 连接数据库和缓存并创建各组件。Redis 不可用时降级为不缓存。
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}

	rdb, err := redis.NewClient(ctx, cfg.Cache)
	if err != nil {
		logger.Warn("缓存连接失败，IP 信誉结果将不缓存", zap.Error(err))
		rdb = nil
	}

	scorer, err := fraud.NewScorer(cfg.Fraud)
	if err != nil {
		return nil, err
	}
	fwd, err := forwarder.New(db, cfg.Forwarding, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Publisher: events.New(cfg.Kafka),
		Scorer:    scorer,
	}
	a.Recorder = tracking.NewRecorder(db, scorer, fraud.NewLookupClient(cfg.IPIntel, rdb, logger), cfg.Fraud, logger)
	a.Receiver = postback.NewReceiver(db, resolver.New(db, logger), scorer, fwd, a.Publisher, logger)
	return a, nil
}

// Close 释放连接
func (a *App) Close() error {
	var errs []error
	errs = append(errs, a.Publisher.Close())
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
