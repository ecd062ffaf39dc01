package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/gherkin-gen/api"
	"github.com/fyerfyer/gherkin-gen/api/handler"
	"github.com/fyerfyer/gherkin-gen/api/middleware"
	appconfig "github.com/fyerfyer/gherkin-gen/config"
	"github.com/fyerfyer/gherkin-gen/internal/cache"
	"github.com/fyerfyer/gherkin-gen/internal/database"
	"github.com/fyerfyer/gherkin-gen/internal/render"
	"github.com/fyerfyer/gherkin-gen/internal/repository"
	"github.com/fyerfyer/gherkin-gen/internal/scenario"
	"github.com/fyerfyer/gherkin-gen/internal/services"
	"github.com/fyerfyer/gherkin-gen/pkg/storage"
	"github.com/fyerfyer/gherkin-gen/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 命令行参数，显式指定时覆盖配置文件
type flags struct {
	ConfigFile   string        // 配置文件路径
	Port         int           // 服务端口
	Mode         string        // 运行模式 (debug/release)
	LogLevel     string        // 日志级别
	ReadTimeout  time.Duration // 读取超时
	WriteTimeout time.Duration // 写入超时
}

func main() {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Failed to load .env file: %v", err)
	}

	f := parseFlags()

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, f)

	gin.SetMode(f.Mode)

	logger, closeLog := setupLogger(cfg.Log)
	defer closeLog()
	logger.Info("Starting Gherkin generation service...")

	// 初始化数据库
	dbConfig := database.DefaultConfig()
	dbConfig.Type = cfg.Database.Type
	dbConfig.DSN = cfg.Database.DSN
	if err := database.Setup(dbConfig, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	uploads, outputs, err := setupStorage(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	var cacheService cache.Cache
	if cfg.Cache.Enable {
		cacheService, err = setupCache(cfg.Cache)
		if err != nil {
			logger.Fatalf("Failed to initialize cache: %v", err)
		}
	}

	// 初始化任务队列（如果启用）
	var queue *taskqueue.RedisQueue
	if cfg.Queue.Enable {
		queue, err = setupTaskQueue(cfg.Queue, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	// 初始化业务服务
	docOpts := []services.DocumentOption{services.WithDocumentLogger(logger)}
	genOpts := []services.GenerationOption{
		services.WithLogger(logger),
		services.WithDefaults(generationDefaults(cfg.Generation)),
	}
	if cacheService != nil {
		docOpts = append(docOpts, services.WithDocumentCache(cacheService))
		genOpts = append(genOpts, services.WithCache(cacheService, time.Duration(cfg.Cache.TTL)*time.Second))
	}
	if queue != nil {
		genOpts = append(genOpts, services.WithTaskQueue(queue))
	}

	documentService := services.NewDocumentService(uploads, repository.NewDocumentRepository(), docOpts...)
	generationService := services.NewGenerationService(documentService, repository.NewJobRepository(), outputs, genOpts...)

	// 在本进程内运行worker
	if queue != nil && cfg.Queue.Worker {
		worker := taskqueue.NewRedisWorker(queue, nil)
		worker.RegisterHandler(taskqueue.TaskGenerateScenarios, generationService)
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start task worker: %v", err)
		}
		defer worker.Stop()
		logger.Info("Task worker started")
	}

	// 初始化API处理器
	docHandler := handler.NewDocumentHandler(documentService, cfg.Server.MaxUploadSize)
	genHandler := handler.NewGenerationHandler(generationService)

	r := api.SetupRouter(docHandler, genHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  f.ReadTimeout,
		WriteTimeout: f.WriteTimeout,
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}

	flag.StringVar(&f.ConfigFile, "config", "config.yaml", "Path to config file")
	flag.IntVar(&f.Port, "port", 8080, "Server port")
	flag.StringVar(&f.Mode, "mode", "debug", "Run mode (debug/release)")
	flag.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.DurationVar(&f.ReadTimeout, "read-timeout", 30*time.Second, "Read timeout")
	flag.DurationVar(&f.WriteTimeout, "write-timeout", 60*time.Second, "Write timeout")

	flag.Parse()
	return f
}

// applyFlags 只用命令行上明确设置的参数覆盖配置
func applyFlags(cfg *appconfig.Config, f flags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Server.Port = f.Port
		case "log-level":
			cfg.Log.Level = f.LogLevel
		}
	})
}

// setupLogger 设置日志系统，配置了日志文件时同时输出到标准输出和滚动文件
func setupLogger(cfg appconfig.LogConfig) (*logrus.Logger, func()) {
	logger := middleware.GetLogger()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if os.Getenv("DEBUG") == "true" {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if cfg.File == "" {
		return logger, func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return logger, func() { _ = rotator.Close() }
}

// setupStorage 创建上传文件和生成产物两个存储
func setupStorage(cfg appconfig.StorageConfig) (storage.Storage, storage.Storage, error) {
	if cfg.Type == "minio" {
		newMinio := func(prefix string) (storage.Storage, error) {
			return storage.NewMinioStorage(storage.MinioConfig{
				Endpoint:  cfg.Endpoint,
				AccessKey: cfg.AccessKey,
				SecretKey: cfg.SecretKey,
				UseSSL:    cfg.UseSSL,
				Bucket:    cfg.Bucket,
				Prefix:    prefix,
			})
		}
		uploads, err := newMinio(cfg.UploadPrefix)
		if err != nil {
			return nil, nil, err
		}
		outputs, err := newMinio(cfg.OutputPrefix)
		if err != nil {
			return nil, nil, err
		}
		return uploads, outputs, nil
	}

	uploads, err := storage.NewLocalStorage(storage.LocalConfig{Path: cfg.Path})
	if err != nil {
		return nil, nil, err
	}
	outputs, err := storage.NewLocalStorage(storage.LocalConfig{Path: cfg.OutputPath})
	if err != nil {
		return nil, nil, err
	}
	return uploads, outputs, nil
}

// setupCache 设置缓存服务
func setupCache(cfg appconfig.CacheConfig) (cache.Cache, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Type
	if cfg.TTL > 0 {
		cacheConfig.DefaultTTL = time.Duration(cfg.TTL) * time.Second
	}

	if cfg.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Address
		cacheConfig.RedisPassword = cfg.Password
		cacheConfig.RedisDB = cfg.DB
		cacheConfig.KeyPrefix = cfg.KeyPrefix
	}

	return cache.NewCache(cacheConfig)
}

// setupTaskQueue 设置任务队列
func setupTaskQueue(cfg appconfig.QueueConfig, logger *logrus.Logger) (*taskqueue.RedisQueue, error) {
	queueConfig := taskqueue.DefaultConfig()
	queueConfig.RedisAddr = cfg.RedisAddr
	queueConfig.RedisPassword = cfg.RedisPassword
	queueConfig.RedisDB = cfg.RedisDB
	queueConfig.Concurrency = cfg.Concurrency
	queueConfig.RetryLimit = cfg.RetryLimit
	queueConfig.RetryDelay = time.Duration(cfg.RetryDelay) * time.Second
	queueConfig.Logger = logger

	logger.WithFields(logrus.Fields{
		"type":        cfg.Type,
		"redis_addr":  cfg.RedisAddr,
		"concurrency": cfg.Concurrency,
		"retry_limit": cfg.RetryLimit,
	}).Info("Setting up task queue")

	return taskqueue.NewRedisQueue(queueConfig)
}

// generationDefaults 配置中的默认生成选项
func generationDefaults(cfg appconfig.GenerationConfig) services.GenerationOptions {
	return services.GenerationOptions{
		Options: render.Options{
			Mode:                     scenario.ParseMode(cfg.Mode),
			OutlineOptimization:      cfg.OutlineOptimization,
			PreserveBulletFormatting: cfg.PreserveBulletFormatting,
			StrictActorReferencing:   cfg.StrictActorReferencing,
			Guidelines:               cfg.Guidelines,
		},
		TopN: cfg.TopN,
	}
}
