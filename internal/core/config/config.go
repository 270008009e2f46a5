package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int `mapstructure:"idle_timeout_sec"`
}

type App struct {
	Name       string
	Env        string
	ForceHTTPS bool `mapstructure:"force_https"`
	HTTP       HTTP

	// TrustedProxies 反向代理的 IP/CIDR；为空时不读 X-Forwarded-For
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

// Session 会话签名密钥为空时启动期随机生成（重启后旧会话全部失效）
type Session struct {
	Secret     string
	Issuer     string
	TTLSec     int    `mapstructure:"ttl_sec"`
	CookieName string `mapstructure:"cookie_name"`
}

// Admin.Password 非空时启动会轮换 admin 口令
type Admin struct {
	Password string
}

type Login struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	WindowSec   int `mapstructure:"window_sec"`
}

type Search struct {
	PublicLimit int `mapstructure:"public_limit"`
	AdminLimit  int `mapstructure:"admin_limit"`
}

type Config struct {
	App     App
	Log     Log
	DB      DB
	Session Session
	Admin   Admin
	Login   Login
	Search  Search
}

// DefaultAdminPassword 首次启动无 ADMIN_PASSWORD 时使用
const DefaultAdminPassword = "admin123"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gp-directory")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.force_https", false)
	v.SetDefault("app.trusted_proxies", []string{})
	v.SetDefault("app.http.host", "127.0.0.1")
	v.SetDefault("app.http.port", 5000)
	v.SetDefault("app.http.read_timeout_sec", 5)
	v.SetDefault("app.http.write_timeout_sec", 10)
	v.SetDefault("app.http.idle_timeout_sec", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.max_size_mb", 50)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 14)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "gp.db")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("session.issuer", "gp-directory")
	v.SetDefault("session.ttl_sec", 3600)
	v.SetDefault("session.cookie_name", "gp_session")

	v.SetDefault("login.max_attempts", 10)
	v.SetDefault("login.window_sec", 60)

	v.SetDefault("search.public_limit", 100)
	v.SetDefault("search.admin_limit", 200)

	// 兼容旧部署的环境变量名
	_ = v.BindEnv("session.secret", "APP_SESSION_SECRET", "SECRET_KEY")
	_ = v.BindEnv("admin.password", "APP_ADMIN_PASSWORD", "ADMIN_PASSWORD")
	_ = v.BindEnv("app.force_https", "APP_APP_FORCE_HTTPS", "FORCE_HTTPS")
}

// Load 读取 YAML（文件不存在则只用默认值 + 环境变量）
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToBoolHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&c, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Truthy 环境变量开关：1 / true / yes（不区分大小写），其余一律 false
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// stringToBoolHook 环境变量里的布尔值按 Truthy 解析，避免 FORCE_HTTPS=yes 启动失败
func stringToBoolHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	return Truthy(reflect.ValueOf(data).String()), nil
}
