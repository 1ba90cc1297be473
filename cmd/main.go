package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Datametry/internal/adapter"
	_ "Datametry/internal/adapter/pgstore"
	_ "Datametry/internal/adapter/redisstore"
	"Datametry/internal/api"
	"Datametry/internal/config"
	"Datametry/internal/database"
	"Datametry/internal/repository"
	"Datametry/internal/service"
	"Datametry/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// newLogger 按 log.level / log.format 构建 logrus 日志器
func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level 无效: %w", err)
	}
	l.SetLevel(level)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logrusLogger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	logrusLogger.Info("配置文件加载成功")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化 PostgreSQL 连接（库不存在则先创建再连）并迁移表结构
	db, err := database.Open(cfg.Postgres, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close(db)

	// 4. 物品观测存储后端
	var pool *redis.Pool
	if cfg.Items.Backend == config.ItemBackendRedis {
		pool, err = database.NewRedisPool(ctx, cfg.Redis)
		if err != nil {
			logrusLogger.Fatalf("连接Redis失败: %v", err)
		}
		defer pool.Close()
		logrusLogger.WithField("addr", cfg.Redis.Addr).Info("Redis连接成功")
	}
	itemStore, err := adapter.NewItemStore(adapter.Deps{
		DB:     db,
		Redis:  pool,
		Config: cfg,
		Logger: logrusLogger,
	})
	if err != nil {
		logrusLogger.Fatalf("初始化物品存储失败: %v", err)
	}

	// 5. 组装服务
	msgRepo := repository.NewMessageRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	searchService, err := service.NewSearchService(msgRepo, cfg.Search, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化搜索服务失败: %v", err)
	}
	sweeper := service.NewRetentionSweeper(msgRepo, playerRepo, itemStore, cfg.Retention, cfg.Items.Retention, logrusLogger)
	launcher := worker.NewProcessLauncher(ctx, cfg.Workers, logrusLogger)

	// 6. 注册API路由
	gin.SetMode(cfg.Server.Mode)
	logrusLogger.Infof("Gin运行模式: %s", cfg.Server.Mode)
	router := api.NewRouter(cfg.Server, api.Handlers{
		Message: api.NewMessageHandler(service.NewMessageService(msgRepo, logrusLogger), searchService, logrusLogger),
		Item: api.NewItemHandler(
			service.NewItemService(itemStore, logrusLogger),
			service.NewAggregateService(repository.NewAggregateRepository(db), logrusLogger),
			logrusLogger,
		),
		Worker: api.NewWorkerHandler(launcher, logrusLogger),
		Health: api.NewHealthHandler(db, pool, logrusLogger),
	}, logrusLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. 启动HTTP服务与消息清理任务，收到退出信号后优雅关闭
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		logrusLogger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrusLogger.WithError(err).Error("服务异常退出")
	}
	stop()
	launcher.Wait()
	logrusLogger.Info("服务已停止")
}
