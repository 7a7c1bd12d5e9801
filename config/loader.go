// =============================================================================
// 📦 Anything World 客户端配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("awctl.yaml").
//	    WithEnvPrefix("AW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the environment prefix, e.g. AW_API_KEY.
const DefaultEnvPrefix = "AW"

// Modes accepted in Config.Mode.
const (
	ModeProduction = "production"
	ModeStaging    = "staging"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是客户端的完整配置结构
type Config struct {
	// Mode: production 或 staging；staging 会在请求中附加 staging=true
	Mode string `yaml:"mode" env:"MODE"`

	// API 服务端点与密钥
	API APIConfig `yaml:"api" env:"API"`

	// Polling 轮询端点与默认轮询参数
	Polling PollingConfig `yaml:"polling" env:"POLLING"`

	// HTTP 传输层配置
	HTTP HTTPConfig `yaml:"http" env:"HTTP"`

	// Store 任务记录存储
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Redis 配置（store.backend=redis 时使用）
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 配置（store.backend=sql 时使用）
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics Prometheus 指标
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// APIConfig 服务端配置
type APIConfig struct {
	// API Key，所有请求都需要
	Key string `yaml:"key" env:"KEY"`
	// 提交与搜索端点的基础 URL
	URL string `yaml:"url" env:"URL"`
	// 上报给服务端的平台标识
	Platform string `yaml:"platform" env:"PLATFORM"`
}

// PollingConfig 轮询配置
type PollingConfig struct {
	// 动画任务状态端点
	URL string `yaml:"url" env:"URL"`
	// 生成任务状态端点
	GeneratedURL string `yaml:"generated_url" env:"GENERATED_URL"`
	// 轮询间隔
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// 首次轮询前的等待
	Warmup time.Duration `yaml:"warmup" env:"WARMUP"`
	// 是否输出每次尝试的诊断日志
	Verbose bool `yaml:"verbose" env:"VERBOSE"`
	// 最大尝试次数，0 表示不限
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 整体超时，0 表示不限
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 缺少 stage 字段时的策略: not_ready, done
	MissingStage string `yaml:"missing_stage" env:"MISSING_STAGE"`
}

// HTTPConfig 传输层配置
type HTTPConfig struct {
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒请求数上限，0 表示不限
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 令牌桶容量
	Burst int `yaml:"burst" env:"BURST"`
	// User-Agent 头
	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`
	// 下载最大尝试次数
	DownloadAttempts uint `yaml:"download_attempts" env:"DOWNLOAD_ATTEMPTS"`
	// 下载重试初始间隔
	DownloadDelay time.Duration `yaml:"download_delay" env:"DOWNLOAD_DELAY"`
}

// StoreConfig 任务记录存储配置
type StoreConfig struct {
	// 后端: none, memory, redis, sql
	Backend string `yaml:"backend" env:"BACKEND"`
	// Redis 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 记录保留时长，0 表示永久
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 是否使用明文 gRPC
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithEnvLookup 替换环境变量读取函数，便于测试
func (l *Loader) WithEnvLookup(fn func(string) (string, bool)) *Loader {
	l.lookupEnv = fn
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// setFieldsFromEnv 递归设置结构体字段，键名为 PREFIX_SECTION_FIELD
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := envTag
		if prefix != "" {
			envKey = prefix + "_" + envTag
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		value, ok := l.lookupEnv(envKey)
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue 按字段类型解析字符串
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := parseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// parseDuration accepts Go durations ("5s") and bare seconds ("5", "0.5").
func parseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// IsStaging reports whether requests carry staging=true.
func (c *Config) IsStaging() bool {
	return strings.EqualFold(c.Mode, ModeStaging)
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.API.Key == "" {
		errs = append(errs, "api.key is required")
	}
	if c.API.URL == "" {
		errs = append(errs, "api.url is required")
	}
	if c.Polling.URL == "" || c.Polling.GeneratedURL == "" {
		errs = append(errs, "polling.url and polling.generated_url are required")
	}
	switch strings.ToLower(c.Mode) {
	case "", ModeProduction, ModeStaging:
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if c.Polling.Interval < 0 || c.Polling.Warmup < 0 || c.Polling.Timeout < 0 {
		errs = append(errs, "polling durations must be >= 0")
	}
	if c.Polling.MaxAttempts < 0 {
		errs = append(errs, "polling.max_attempts must be >= 0")
	}
	switch c.Polling.MissingStage {
	case "", "not_ready", "done":
	default:
		errs = append(errs, fmt.Sprintf("unknown polling.missing_stage %q", c.Polling.MissingStage))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, "http.rate_limit must be >= 0")
	}
	switch c.Store.Backend {
	case "", "none", "memory", "redis", "sql":
	default:
		errs = append(errs, fmt.Sprintf("unknown store.backend %q", c.Store.Backend))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
