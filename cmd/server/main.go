package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "postback-platform/docs"
	"postback-platform/internal/app"
	"postback-platform/internal/config"
	"postback-platform/internal/handler"
	"postback-platform/internal/middleware"
	auth "postback-platform/pkg/jwt"
	"postback-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title Postback Platform API
// @version 1.0
// @description 上游网络转化回传的接收、匹配、入账和下游转发
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	configPath := os.Getenv("POSTBACK_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(cfg.Log)
	defer func() {
		_ = logger.Logger.Sync()
	}()
	sugaredLogger := zap.S()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger.Logger)
	if err != nil {
		sugaredLogger.Fatalf("服务初始化失败: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			sugaredLogger.Errorf("关闭连接失败: %v", err)
		}
	}()
	sugaredLogger.Info("✅ 数据库连接成功")
	if a.Redis != nil {
		sugaredLogger.Info("✅ 缓存连接成功")
	}

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	postbackHandler := handler.NewPostbackHandler(a.Receiver, cfg.Forwarding.PipelineTimeout, logger.Logger)
	clickHandler := handler.NewClickHandler(a.Recorder, logger.Logger)
	adminHandler := handler.NewAdminHandler(a.DB, a.Receiver, logger.Logger)

	handler.RegisterRoutes(router, handler.Routes{
		Postback:  postbackHandler,
		Click:     clickHandler,
		Admin:     adminHandler,
		Auth:      middleware.AuthMiddleware(tokenManager),
		AdminOnly: middleware.AdminMiddleware(),
		RateLimit: middleware.RateLimit(cfg.RateLimit),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugaredLogger.Fatalf("服务启动失败: %v", err)
		}
	}()

	<-ctx.Done()
	sugaredLogger.Info("收到退出信号，开始关闭服务")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugaredLogger.Errorf("HTTP 服务关闭失败: %v", err)
	}
	if err := postbackHandler.Drain(shutdownCtx); err != nil {
		sugaredLogger.Warnf("%v", err)
	}
	sugaredLogger.Info("服务已退出")
}
