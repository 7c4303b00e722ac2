package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Annotate AnnotateConfig `mapstructure:"annotate"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	LogLevel     string        `mapstructure:"log_level"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// APIConfig 远程检测服务配置
type APIConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	IoUThreshold float64 `mapstructure:"iou_threshold"`
	RateLimit    float64 `mapstructure:"rate_limit"` // 每秒请求数，0 表示不限制
	RateBurst    int     `mapstructure:"rate_burst"`
}

type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	CookieName    string        `mapstructure:"cookie_name"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AnnotateConfig 标注图渲染配置
type AnnotateConfig struct {
	Thickness     int `mapstructure:"thickness"`
	MaxSize       int `mapstructure:"max_size"`
	MaxConcurrent int `mapstructure:"max_concurrent"`
	QueueTimeout  int `mapstructure:"queue_timeout"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// New 使用默认配置路径加载配置，文件不存在时仅使用默认值和环境变量
func New() *Config {
	cfg, err := Load("config.yaml")
	if err == nil {
		return cfg
	}

	cfg, err = unmarshal(newViper())
	if err != nil {
		return getDefaultConfig()
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// LEAFSCAN_API_BASE_URL -> api.base_url
	v.SetEnvPrefix("leafscan")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}

	// time.NewTicker 不接受非正数
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = DefaultSweepInterval
	}

	return &cfg, nil
}

const (
	DefaultBaseURL       = "http://127.0.0.1:8000"
	DefaultSweepInterval = time.Minute
)

func setDefaults(v *viper.Viper) {
	d := getDefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.iou_threshold", d.API.IoUThreshold)
	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.rate_burst", d.API.RateBurst)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("session.cookie_name", d.Session.CookieName)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.sweep_interval", d.Session.SweepInterval)

	v.SetDefault("annotate.thickness", d.Annotate.Thickness)
	v.SetDefault("annotate.max_size", d.Annotate.MaxSize)
	v.SetDefault("annotate.max_concurrent", d.Annotate.MaxConcurrent)
	v.SetDefault("annotate.queue_timeout", d.Annotate.QueueTimeout)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		API: APIConfig{
			BaseURL:      DefaultBaseURL,
			IoUThreshold: 0.45,
			RateLimit:    0,
			RateBurst:    1,
		},
		Upload: UploadConfig{
			MaxSize: 8 * 1024 * 1024,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Session: SessionConfig{
			CookieName:    "leafscan_session",
			TTL:           30 * time.Minute,
			SweepInterval: DefaultSweepInterval,
		},
		Annotate: AnnotateConfig{
			Thickness:     3,
			MaxSize:       1600,
			MaxConcurrent: 3,
			QueueTimeout:  30,
		},
	}
}
