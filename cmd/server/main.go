// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa-go/internal/bootstrap"
	"docqa-go/internal/config"
	"docqa-go/internal/handler"
	"docqa-go/internal/middleware"
	"docqa-go/internal/service"
	"docqa-go/pkg/kafka"
	"docqa-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 0. 本地开发时从 .env 读取密钥，文件不存在不报错
	_ = godotenv.Load()

	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化外部依赖并装配 Service
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := bootstrap.Build(initCtx, cfg)
	cancelInit()
	if err != nil {
		log.Fatal("服务初始化失败", err)
	}

	// 4. 启动后台 Kafka 生产者与消费者
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	var queue handler.ReloadQueue
	if cfg.Kafka.Enabled {
		kafka.InitProducer(cfg.Kafka)
		queue = kafka.Queue{}
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, service.ReloadProcessor{Chat: app.Chat})
	}

	// 5. 后台预热语料，首个请求到来时若仍未完成会等待同一次加载
	go func() {
		if err := app.Chat.EnsureCorpus(context.Background(), false); err != nil {
			log.Error("语料预热失败", err)
		}
	}()

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.Server.CORSOrigins))

	// 7. 注册路由
	handler.RegisterRoutes(r,
		handler.NewChatHandler(app.Chat),
		handler.NewCorpusHandler(app.Chat, queue),
	)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
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

	stopConsumer()
	kafka.CloseProducer()
	log.Info("服务已优雅关闭")
}
