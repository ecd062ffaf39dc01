package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Generation GenerationConfig `mapstructure:"generation"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port" validate:"min=1,max=65535"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"min=0"` // 上传文件大小上限（字节），0表示不限制
}

// LogConfig 日志配置，File为空时只输出到标准输出
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size" validate:"min=0"`    // 单个日志文件大小（MB）
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"` // 保留的旧日志文件数
	MaxAge     int    `mapstructure:"max_age" validate:"min=0"`     // 旧日志保留天数
	Compress   bool   `mapstructure:"compress"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type         string `mapstructure:"type" validate:"oneof=local minio"` // 存储类型：local 或 minio
	Path         string `mapstructure:"path"`                              // 本地上传文件目录
	OutputPath   string `mapstructure:"output_path"`                       // 本地生成产物目录
	Bucket       string `mapstructure:"bucket"`                            // MinIO桶名称
	UploadPrefix string `mapstructure:"upload_prefix"`                     // MinIO上传文件前缀
	OutputPrefix string `mapstructure:"output_prefix"`                     // MinIO生成产物前缀
	Endpoint     string `mapstructure:"endpoint"`                          // MinIO端点
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type" validate:"eq=sqlite"` // 数据库类型
	DSN  string `mapstructure:"dsn" validate:"required"`   // 数据源名称
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable    bool   `mapstructure:"enable"`                             // 是否启用缓存
	Type      string `mapstructure:"type" validate:"oneof=memory redis"` // 缓存类型：memory 或 redis
	Address   string `mapstructure:"address"`                            // Redis地址
	Password  string `mapstructure:"password"`                           // Redis密码
	DB        int    `mapstructure:"db" validate:"min=0"`                // Redis数据库
	KeyPrefix string `mapstructure:"key_prefix"`                         // Redis键前缀
	TTL       int    `mapstructure:"ttl" validate:"min=0"`               // 缓存TTL（秒）
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`                       // 是否启用异步生成
	Type          string `mapstructure:"type" validate:"oneof=redis"`  // 队列类型
	RedisAddr     string `mapstructure:"redis_addr"`                   // Redis地址
	RedisPassword string `mapstructure:"redis_password"`               // Redis密码
	RedisDB       int    `mapstructure:"redis_db" validate:"min=0"`    // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency" validate:"min=1"` // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit" validate:"min=0"` // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay" validate:"min=0"` // 重试延迟(秒)
	Worker        bool   `mapstructure:"worker"`                       // 是否在本进程内运行worker
}

// GenerationConfig 场景生成的默认选项，请求中未指定的字段使用这里的值
type GenerationConfig struct {
	Mode                     string `mapstructure:"mode"` // 无法识别时按optimized处理
	OutlineOptimization      bool   `mapstructure:"outline_optimization"`
	PreserveBulletFormatting bool   `mapstructure:"preserve_bullet_formatting"`
	StrictActorReferencing   bool   `mapstructure:"strict_actor_referencing"`
	Guidelines               string `mapstructure:"guidelines"`
	TopN                     int    `mapstructure:"top_n"` // 可追溯性图保留的需求数，<=0表示不截断
}

// Load 从文件和环境变量加载配置，文件不存在时使用默认值
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *fs.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Printf("Warning: Config file not found at %s, using defaults", configPath)
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 环境变量覆盖，例如 SERVER_PORT、GENERATION_MODE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Type == "minio" && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return errors.New("invalid config: minio storage requires endpoint and bucket")
	}
	return nil
}

// processEnvironmentVariables 展开形如 ${VAR} 的密钥配置
func processEnvironmentVariables(cfg *Config) {
	for _, field := range []*string{
		&cfg.Storage.AccessKey,
		&cfg.Storage.SecretKey,
		&cfg.Cache.Password,
		&cfg.Queue.RedisPassword,
	} {
		*field = expandEnv(*field)
	}
}

func expandEnv(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}
	if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
		return envVal
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_size", 20<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.output_path", "./outputs")
	v.SetDefault("storage.bucket", "gherkin")
	v.SetDefault("storage.upload_prefix", "uploads")
	v.SetDefault("storage.output_prefix", "outputs")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/gherkin.db")

	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.key_prefix", "gherkin:cache:")
	v.SetDefault("cache.ttl", 3600)

	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 1)
	v.SetDefault("queue.retry_delay", 10)
	v.SetDefault("queue.worker", true)

	v.SetDefault("generation.mode", "optimized")
	v.SetDefault("generation.outline_optimization", false)
	v.SetDefault("generation.preserve_bullet_formatting", false)
	v.SetDefault("generation.strict_actor_referencing", false)
	v.SetDefault("generation.guidelines", "")
	v.SetDefault("generation.top_n", 20)
}
