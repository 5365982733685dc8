// Package main 是历史服务的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alberto-chat-go/internal/config"
	"alberto-chat-go/internal/handler"
	"alberto-chat-go/internal/middleware"
	"alberto-chat-go/internal/repository"
	"alberto-chat-go/internal/service"
	"alberto-chat-go/pkg/database"
	"alberto-chat-go/pkg/es"
	"alberto-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化文档库，按需初始化全文索引
	database.InitMongo(cfg.Mongo)

	var index service.MessageIndex
	if cfg.Elasticsearch.Enabled {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败 %s", err)
			return
		}
		index = es.NewIndex(cfg.Elasticsearch.IndexName)
	}

	// 4. 初始化 Repository 与 Service (依赖注入)
	historyRepo := repository.NewHistoryRepository(database.HistoryCollection)
	historyService := service.NewHistoryService(historyRepo, index)
	historyHandler := handler.NewHistoryHandler(historyService)

	// 5. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.Correlator(), middleware.RequestLogger(), gin.Recovery())

	r.GET("/historicos", historyHandler.List)
	r.POST("/historicos", historyHandler.Create)
	r.DELETE("/historicos", historyHandler.Delete)
	r.GET("/historicos/search", historyHandler.Search)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.HistoryPort),
		Handler: r,
	}

	go func() {
		log.Infof("历史服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	database.CloseMongo(ctx)

	log.Info("服务已优雅关闭")
}
