package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	App        App        `yaml:"app"`
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
	Database   DB         `yaml:"database"`
	Cache      Cache      `yaml:"cache"`
	Auth       Auth       `yaml:"auth"`
	RateLimit  Limit      `yaml:"rate_limit"`
	Fraud      Fraud      `yaml:"fraud"`
	IPIntel    IPIntel    `yaml:"ip_intel"`
	Forwarding Forwarding `yaml:"forwarding"`
	Kafka      Kafka      `yaml:"kafka"`
	Metrics    Metrics    `yaml:"metrics"`
}

// App 应用配置
type App struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
}

// Server HTTP 服务配置，超时单位为秒
type Server struct {
	Port            int `yaml:"port"`
	ReadTimeout     int `yaml:"read_timeout"`
	WriteTimeout    int `yaml:"write_timeout"`
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// Log 日志配置
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DB 数据库配置
type DB struct {
	Driver          string        `yaml:"driver"` // mysql | postgres | sqlite
	DSN             string        `yaml:"dsn"`
	FallbackDSN     string        `yaml:"fallback_dsn"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// Cache 缓存配置（Redis）
type Cache struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Auth 管理接口 JWT 配置
type Auth struct {
	Secret          string `yaml:"secret"`
	Issuer          string `yaml:"issuer"`
	ExpirationHours int    `yaml:"expiration_hours"`
}

// Limit 限流配置
type Limit struct {
	Enabled   bool     `yaml:"enabled"`
	Requests  int64    `yaml:"requests_per_second"`
	Burst     int64    `yaml:"burst"`
	SkipPaths []string `yaml:"skip_paths"`
}

// FraudWeights 每个欺诈标记的分值
type FraudWeights struct {
	DuplicateClick int `yaml:"duplicate_click"`
	FastClick      int `yaml:"fast_click"`
	FastConversion int `yaml:"fast_conversion"`
	BotLike        int `yaml:"bot_like"`
	VPN            int `yaml:"vpn"`
	Proxy          int `yaml:"proxy"`
	Tor            int `yaml:"tor"`
	Datacenter     int `yaml:"datacenter"`
}

// FraudThresholds 分数分档下限
type FraudThresholds struct {
	Low    int `yaml:"low"`
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// Fraud 欺诈评分配置
type Fraud struct {
	Weights              FraudWeights    `yaml:"weights"`
	Thresholds           FraudThresholds `yaml:"thresholds"`
	DuplicateWindow      time.Duration   `yaml:"duplicate_window"`
	FastClickWindow      time.Duration   `yaml:"fast_click_window"`
	FastConversionWindow time.Duration   `yaml:"fast_conversion_window"`
	BotKeywords          []string        `yaml:"bot_keywords"`
}

// IPIntel IP 信誉查询配置
type IPIntel struct {
	Endpoint string        `yaml:"endpoint"` // 含 {ip} 占位符
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Forwarding 下游回传配置
type Forwarding struct {
	Eligibility     string        `yaml:"eligibility"` // broadcast | placement
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	BackoffInitial  time.Duration `yaml:"backoff_initial"`
	BackoffMax      time.Duration `yaml:"backoff_max"`
	Concurrency     int           `yaml:"concurrency"`
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`
}

// Kafka 转化事件发布配置，brokers 为空时不发布
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Metrics Prometheus 配置
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

const (
	EligibilityBroadcast = "broadcast"
	EligibilityPlacement = "placement"
)

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		App:    App{Name: "postback-platform", Mode: "development"},
		Server: Server{Port: 8080, ReadTimeout: 15, WriteTimeout: 15, ShutdownTimeout: 30},
		Log:    Log{Level: "info", File: "./logs/app.log", MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30},
		Database: DB{
			Driver:          "mysql",
			ConnectAttempts: 3,
			RetryInterval:   2 * time.Second,
			MaxOpenConns:    20,
			MaxIdleConns:    10,
			AutoMigrate:     true,
		},
		Auth:      Auth{Issuer: "postback-platform", ExpirationHours: 24},
		RateLimit: Limit{Requests: 200, Burst: 400},
		Fraud: Fraud{
			Weights: FraudWeights{
				DuplicateClick: 15,
				FastClick:      20,
				FastConversion: 20,
				BotLike:        30,
				VPN:            15,
				Proxy:          15,
				Tor:            25,
				Datacenter:     10,
			},
			Thresholds:           FraudThresholds{Low: 15, Medium: 30, High: 50},
			DuplicateWindow:      time.Minute,
			FastClickWindow:      3 * time.Second,
			FastConversionWindow: 10 * time.Second,
			BotKeywords:          []string{"bot", "crawler", "spider", "scraper", "curl", "wget", "python", "java"},
		},
		IPIntel: IPIntel{Timeout: 3 * time.Second, CacheTTL: 6 * time.Hour},
		Forwarding: Forwarding{
			Eligibility:     EligibilityBroadcast,
			Timeout:         10 * time.Second,
			MaxAttempts:     3,
			BackoffInitial:  500 * time.Millisecond,
			BackoffMax:      5 * time.Second,
			Concurrency:     10,
			PipelineTimeout: time.Minute,
		},
		Kafka:   Kafka{Topic: "postback.conversions"},
		Metrics: Metrics{Enabled: true, Path: "/metrics"},
	}
}

// Load 加载配置，未填写的字段保留默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn 不能为空")
	}
	switch c.Forwarding.Eligibility {
	case EligibilityBroadcast, EligibilityPlacement:
	default:
		return fmt.Errorf("forwarding.eligibility 取值无效: %q", c.Forwarding.Eligibility)
	}
	if c.Forwarding.MaxAttempts < 1 {
		return fmt.Errorf("forwarding.max_attempts 必须 >= 1")
	}
	if c.Forwarding.Concurrency < 1 {
		return fmt.Errorf("forwarding.concurrency 必须 >= 1")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic 不能为空")
	}
	return nil
}
