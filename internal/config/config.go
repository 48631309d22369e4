package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"` // 同步下行请求等待终端应答的时间
	AuthEnabled    bool          `mapstructure:"authEnabled"`
	APIKeys        []string      `mapstructure:"apiKeys"`
}

// TCPConfig TCP 网关配置
type TCPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	MaxConnections int           `mapstructure:"maxConnections"`
	AcquireTimeout time.Duration `mapstructure:"acquireTimeout"`
	AcceptRate     int           `mapstructure:"acceptRate"`  // 每秒新建连接数
	AcceptBurst    int           `mapstructure:"acceptBurst"` // 突发新建连接数
	WriteQueue     int           `mapstructure:"writeQueue"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// SessionConfig 终端会话配置
type SessionConfig struct {
	HeartbeatTimeout time.Duration `mapstructure:"heartbeatTimeout"`
	ServerID         string        `mapstructure:"serverID"` // 为空时自动生成
}

// JT808Config 协议相关配置
type JT808Config struct {
	Version           string        `mapstructure:"version"` // auto | 2013 | 2019
	ReassemblyTimeout time.Duration `mapstructure:"reassemblyTimeout"`
	EvictInterval     time.Duration `mapstructure:"evictInterval"`
	FragmentSize      int           `mapstructure:"fragmentSize"` // 下行分包时单包消息体字节数
	DownlinkTTL       time.Duration `mapstructure:"downlinkTTL"`  // 离线下行指令保留时长
	MaxRetry          int           `mapstructure:"maxRetry"`     // 离线下行指令最大重试次数
	BreakerThreshold  int           `mapstructure:"breakerThreshold"`
	BreakerTimeout    time.Duration `mapstructure:"breakerTimeout"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	TCP     TCPConfig     `mapstructure:"tcp"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	JT808   JT808Config   `mapstructure:"jt808"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 JT808_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("JT808_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 JT808_，点号替换为下划线，如 JT808_TCP_ADDR
	v.SetEnvPrefix("JT808")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.JT808.Version {
	case "", "auto", "2011", "2013", "2019":
	default:
		return fmt.Errorf("config: jt808.version %q not supported", c.JT808.Version)
	}
	if c.JT808.FragmentSize <= 0 || c.JT808.FragmentSize > 1023 {
		return fmt.Errorf("config: jt808.fragmentSize %d out of range 1..1023", c.JT808.FragmentSize)
	}
	if c.JT808.MaxRetry < 0 {
		return fmt.Errorf("config: jt808.maxRetry must not be negative")
	}
	if c.TCP.MaxConnections <= 0 {
		return fmt.Errorf("config: tcp.maxConnections must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "jt808-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "15s")
	v.SetDefault("http.requestTimeout", "10s")
	v.SetDefault("http.authEnabled", false)

	v.SetDefault("tcp.addr", ":6808")
	v.SetDefault("tcp.readTimeout", "5m")
	v.SetDefault("tcp.writeTimeout", "10s")
	v.SetDefault("tcp.maxConnections", 10000)
	v.SetDefault("tcp.acquireTimeout", "3s")
	v.SetDefault("tcp.acceptRate", 200)
	v.SetDefault("tcp.acceptBurst", 400)
	v.SetDefault("tcp.writeQueue", 128)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/jt808-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "3s")
	v.SetDefault("redis.readTimeout", "2s")
	v.SetDefault("redis.writeTimeout", "2s")

	v.SetDefault("session.heartbeatTimeout", "3m")
	v.SetDefault("session.serverID", "")

	v.SetDefault("jt808.version", "auto")
	v.SetDefault("jt808.reassemblyTimeout", "60s")
	v.SetDefault("jt808.evictInterval", "10s")
	v.SetDefault("jt808.fragmentSize", 1000)
	v.SetDefault("jt808.downlinkTTL", "24h")
	v.SetDefault("jt808.maxRetry", 3)
	v.SetDefault("jt808.breakerThreshold", 5)
	v.SetDefault("jt808.breakerTimeout", "30s")
}
