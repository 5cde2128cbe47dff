// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// 上游数据源配置
	Upstream UpstreamConfig `mapstructure:"upstream"`
	// 代码解析配置
	Resolver ResolverConfig `mapstructure:"resolver"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Addr 返回监听地址
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用（关闭时搜索缓存只使用进程内缓存）
	Enabled bool `mapstructure:"enabled"`
	// 主机地址
	Host string `mapstructure:"host"`
	// 端口
	Port int `mapstructure:"port"`
	// 密码
	Password string `mapstructure:"password"`
	// 数据库编号
	DB int `mapstructure:"db"`
	// 连接池大小
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	// 日志级别
	Level string `mapstructure:"level"`
	// 输出格式
	Format string `mapstructure:"format"`
	// 输出目标
	Output string `mapstructure:"output"`
	// 文件路径
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩
	Compress bool `mapstructure:"compress"`
	// 是否输出调用者信息
	WithCaller bool `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// 后端：local 或 redis
	Backend string `mapstructure:"backend"`
	// 每秒请求数
	QPS int `mapstructure:"qps"`
	// 突发容量
	Burst int `mapstructure:"burst"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// 半开状态允许的请求数
	MaxRequests uint32 `mapstructure:"max_requests"`
	// 闭合状态下计数清零周期
	Interval time.Duration `mapstructure:"interval"`
	// 打开状态持续时间
	Timeout time.Duration `mapstructure:"timeout"`
	// 连续失败多少次后打开
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// UpstreamConfig 上游数据源配置
type UpstreamConfig struct {
	// 国内行情后端（Python 服务）地址
	DataBackendURL string `mapstructure:"data_backend_url"`
	// Yahoo 图表接口地址
	YahooChartURL string `mapstructure:"yahoo_chart_url"`
	// Yahoo 搜索接口地址
	YahooSearchURL string `mapstructure:"yahoo_search_url"`
	// 请求 User-Agent
	UserAgent string `mapstructure:"user_agent"`
	// 普通上游请求超时
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// 远程代码搜索的硬超时
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	// 熔断器
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// ResolverConfig 代码解析配置
type ResolverConfig struct {
	// 海外股票别名数据集路径
	DatasetPath string `mapstructure:"dataset_path"`
	// 搜索缓存存活时间
	SearchCacheTTL time.Duration `mapstructure:"search_cache_ttl"`
	// 进程内搜索缓存容量上限（MB）
	SearchCacheMaxMB int `mapstructure:"search_cache_max_mb"`
	// Redis 搜索缓存 key 前缀
	SearchCachePrefix string `mapstructure:"search_cache_prefix"`
}

// Load 从 TOML 文件加载配置，文件必须存在，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时只使用默认值
func LoadWithDefaults(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		// 配置文件不存在时忽略，语法错误等其他错误照常返回
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// 设置环境变量前缀，自动绑定环境变量（使用 _ 替代 .）
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}
	for name, raw := range map[string]string{
		"upstream.data_backend_url": c.Upstream.DataBackendURL,
		"upstream.yahoo_chart_url":  c.Upstream.YahooChartURL,
		"upstream.yahoo_search_url": c.Upstream.YahooSearchURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	if c.Upstream.SearchTimeout <= 0 {
		return fmt.Errorf("upstream.search_timeout must be positive")
	}
	if c.Resolver.SearchCacheTTL <= 0 {
		return fmt.Errorf("resolver.search_cache_ttl must be positive")
	}
	switch c.RateLimit.Backend {
	case "local":
	case "redis":
		if c.RateLimit.Enabled && !c.Redis.Enabled {
			return fmt.Errorf("rate_limit.backend redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown rate_limit.backend: %q", c.RateLimit.Backend)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "stockrouter")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/stockrouter.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.backend", "local")
	v.SetDefault("rate_limit.qps", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("upstream.data_backend_url", "http://localhost:5000")
	v.SetDefault("upstream.yahoo_chart_url", "https://query1.finance.yahoo.com")
	v.SetDefault("upstream.yahoo_search_url", "https://query1.finance.yahoo.com")
	v.SetDefault("upstream.user_agent", "Mozilla/5.0")
	v.SetDefault("upstream.request_timeout", 10*time.Second)
	v.SetDefault("upstream.search_timeout", 3*time.Second)
	v.SetDefault("upstream.breaker.enabled", true)
	v.SetDefault("upstream.breaker.max_requests", 1)
	v.SetDefault("upstream.breaker.interval", time.Minute)
	v.SetDefault("upstream.breaker.timeout", 30*time.Second)
	v.SetDefault("upstream.breaker.consecutive_failures", 5)

	v.SetDefault("resolver.dataset_path", "configs/stockrouter/stock-mapping.json")
	v.SetDefault("resolver.search_cache_ttl", 24*time.Hour)
	v.SetDefault("resolver.search_cache_max_mb", 64)
	v.SetDefault("resolver.search_cache_prefix", "stockrouter:search:")
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
