// Package main 是会话服务的入口点。
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
	"alberto-chat-go/internal/service"
	"alberto-chat-go/internal/tool"
	"alberto-chat-go/pkg/history"
	"alberto-chat-go/pkg/kafka"
	"alberto-chat-go/pkg/llm"
	"alberto-chat-go/pkg/log"
	"alberto-chat-go/pkg/storage"

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

	// 3. 按需初始化对象存储和事件上报
	var diagramStore tool.DiagramStore
	if cfg.MinIO.Enabled {
		storage.InitMinIO(cfg.MinIO)
		diagramStore = storage.NewDiagramStore(cfg.MinIO)
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 注册工具。注册表在启动后只读。
	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewSumTool()); err != nil {
		log.Fatal("注册 sum_numbers 工具失败", err)
	}
	if err := registry.Register(tool.NewMermaidTool(diagramStore)); err != nil {
		log.Fatal("注册 generate_mermaid_diagram 工具失败", err)
	}

	// 5. 初始化客户端与 Service (依赖注入)
	llmClient := llm.NewClient(cfg.LLM)
	historyClient := history.NewClient(cfg.History)
	dispatcher := tool.NewDispatcher(llmClient, registry)
	chatService := service.NewChatService(historyClient, dispatcher, llmClient, cfg.History.WindowSize)
	chatHandler := handler.NewChatHandler(chatService)

	// 6. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.Correlator(), middleware.RequestLogger(), gin.Recovery())

	r.POST("/ask-question", chatHandler.AskQuestion)
	r.GET("/ask-question/ws", chatHandler.AskQuestionWS)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.ConversationPort),
		Handler: r,
	}

	go func() {
		log.Infof("会话服务启动于 %s", srv.Addr)
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
	kafka.Close()

	log.Info("服务已优雅关闭")
}
