package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`      // 服务器配置
	Postgres   PostgresConfig   `mapstructure:"postgres"`    // PostgreSQL配置
	TLSCapture TLSCaptureConfig `mapstructure:"tls_capture"` // 伴生TLS指纹服务配置
	IPInfo     IPInfoConfig     `mapstructure:"ip_info"`     // IP信息查询配置
	Collect    CollectConfig    `mapstructure:"collect"`     // 指纹采集配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port       int    `mapstructure:"port"`        // 服务端口
	Mode       string `mapstructure:"mode"`        // Gin运行模式：debug/release/test
	PublicHost string `mapstructure:"public_host"` // 对前端展示的服务器地址
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// TLSCaptureConfig 伴生TLS握手采集服务配置。
// 该服务独立进程运行（生命周期由外部托管），本服务仅通过HTTP消费其输出。
type TLSCaptureConfig struct {
	Port    int    `mapstructure:"port"`    // TLS服务监听端口
	Timeout int    `mapstructure:"timeout"` // 请求超时（秒）
	Proxy   string `mapstructure:"proxy"`   // 代理地址（一般留空）
}

// IPInfoConfig 第三方IP信息查询配置
type IPInfoConfig struct {
	BaseURL string `mapstructure:"base_url"` // 查询API基础地址（ip-api.com）
	Timeout int    `mapstructure:"timeout"`  // 请求超时（秒）
	Proxy   string `mapstructure:"proxy"`    // 代理地址
}

// CollectConfig 指纹采集配置
type CollectConfig struct {
	ListLimit int `mapstructure:"list_limit"` // 指纹列表默认返回条数
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感/部署相关配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.PublicHost = v
	}
	if v := os.Getenv("TLS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.TLSCapture.Port = port
		}
	}
	if v := os.Getenv("IP_INFO_PROXY"); v != "" {
		cfg.IPInfo.Proxy = v
	}
}

// ApplyDefaults 填充缺省值，保证零配置也能本地启动
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.PublicHost == "" {
		cfg.Server.PublicHost = "127.0.0.1"
	}
	if cfg.TLSCapture.Port == 0 {
		cfg.TLSCapture.Port = 8443
	}
	if cfg.TLSCapture.Timeout == 0 {
		cfg.TLSCapture.Timeout = 5
	}
	if cfg.IPInfo.BaseURL == "" {
		cfg.IPInfo.BaseURL = "http://ip-api.com/json"
	}
	if cfg.IPInfo.Timeout == 0 {
		cfg.IPInfo.Timeout = 5
	}
	if cfg.Collect.ListLimit == 0 {
		cfg.Collect.ListLimit = 100
	}
}

// TLSCaptureLocalURL 本机访问TLS服务的地址（指纹查询走本机回环）
func (c *TLSCaptureConfig) TLSCaptureLocalURL() string {
	return fmt.Sprintf("https://127.0.0.1:%d", c.Port)
}

// TLSCapturePublicURL 对前端展示的TLS服务地址
func (c *Config) TLSCapturePublicURL() string {
	return fmt.Sprintf("https://%s:%d", c.Server.PublicHost, c.TLSCapture.Port)
}
