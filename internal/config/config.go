package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
	Address     string `yaml:"address"`     // HTTP 服务监听地址 (例如: ":8080")
}

// AuthConfig 用于配置认证校验相关设置。令牌的签发由外部系统负责，核心只做校验。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// OllamaConfig 定义了本地 Ollama 服务的配置。
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"` // Ollama 服务地址，为空时默认 "http://localhost:11434"
	// GenerateTimeout 是生成调用的超时时间（秒）。本地大模型可能需要分钟级的时间，
	// 与元数据类调用的短超时区分开。
	GenerateTimeout int `yaml:"generateTimeout"`
	// ListTimeout 是模型枚举等元数据调用的超时时间（秒）。
	ListTimeout int `yaml:"listTimeout"`
}

// OpenAIConfig 定义了 OpenAI 提供方的配置。
type OpenAIConfig struct {
	APIKey string `yaml:"apiKey"` // OpenAI API 密钥，为空时不启用该提供方
}

// DeepSeekConfig 定义了 DeepSeek 提供方的配置（OpenAI 兼容协议）。
type DeepSeekConfig struct {
	APIKey  string `yaml:"apiKey"`  // DeepSeek API 密钥，为空时不启用该提供方
	BaseURL string `yaml:"baseURL"` // 为空时默认 "https://api.deepseek.com/v1"
}

// ProvidersConfig 汇总了所有 LLM 提供方的配置。
type ProvidersConfig struct {
	Ollama   OllamaConfig   `yaml:"ollama"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	DeepSeek DeepSeekConfig `yaml:"deepseek"`
}

// EmbeddingConfig 定义了嵌入模型的配置。
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "ollama" 或 "openai"
	Model    string `yaml:"model"`    // 例如 "nomic-embed-text" 或 "text-embedding-3-small"
	BaseURL  string `yaml:"baseURL"`  // 仅 ollama 需要
	APIKey   string `yaml:"apiKey"`   // 仅 openai 需要
	CacheTTL int    `yaml:"cacheTTL"` // Redis 缓存的过期时间（秒），0 表示不过期
}

// RetrievalConfig 定义了检索层的参数。
type RetrievalConfig struct {
	ChunkSize         int     `yaml:"chunkSize"`         // 分块目标大小（字符数），默认 1000
	ChunkThreshold    float64 `yaml:"chunkThreshold"`    // 分块级相似度阈值，默认 0.3
	DocumentThreshold float64 `yaml:"documentThreshold"` // 文档级回退阈值，默认 0.2
	DefaultLimit      int     `yaml:"defaultLimit"`      // 默认返回条数，默认 5
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`  // 是否启用嵌入缓存
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Enabled   bool   `yaml:"enabled"`   // 是否启用原始文件存储
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Enabled  bool   `yaml:"enabled"`  // 是否启用反馈记录
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	MySQL   MySQLConfig `yaml:"mysql"`   // MySQL 数据库配置
	Redis   RedisConfig `yaml:"redis"`   // Redis 缓存配置
	MinIO   MinIOConfig `yaml:"minio"`   // MinIO 对象存储配置
	MongoDB MongoConfig `yaml:"mongodb"` // MongoDB 数据库配置
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "leakyBucket", "tokenBucket"
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	LeakyBucket LeakyBucketConfig `yaml:"leakyBucket"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// LeakyBucketConfig 定义了漏桶算法的配置。
type LeakyBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Providers  ProvidersConfig  `yaml:"providers"`  // LLM 提供方配置
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // 嵌入模型配置
	Retrieval  RetrievalConfig  `yaml:"retrieval"`  // 检索参数配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults 为未显式配置的参数填充默认值。
func (c *AppConfig) applyDefaults() {
	if c.Retrieval.ChunkSize <= 0 {
		c.Retrieval.ChunkSize = 1000
	}
	if c.Retrieval.ChunkThreshold <= 0 {
		c.Retrieval.ChunkThreshold = 0.3
	}
	if c.Retrieval.DocumentThreshold <= 0 {
		c.Retrieval.DocumentThreshold = 0.2
	}
	if c.Retrieval.DefaultLimit <= 0 {
		c.Retrieval.DefaultLimit = 5
	}
	if c.Providers.Ollama.GenerateTimeout <= 0 {
		// 本地大模型的生成可能耗时数分钟。
		c.Providers.Ollama.GenerateTimeout = 300
	}
	if c.Providers.Ollama.ListTimeout <= 0 {
		c.Providers.Ollama.ListTimeout = 10
	}
	if c.App.Address == "" {
		c.App.Address = ":8080"
	}
}
