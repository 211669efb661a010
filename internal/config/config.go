package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Export   ExportConfig   `mapstructure:"export"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// AllowedOrigins 是允许建立 WebSocket 连接的来源，逗号分隔。
	// 为空时退化为同源校验。
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins 返回解析后的来源列表。
func (a APIConfig) Origins() []string {
	if strings.TrimSpace(a.AllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(a.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的 Redis 地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// GeminiConfig 配置文本生成协作方（Gemini）。
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AdminConfig 配置管理员 PIN 门禁。PINHash 为 bcrypt 哈希，
// TokenSecret 用于签发受保护操作的一次性令牌。
type AdminConfig struct {
	PINHash     string        `mapstructure:"pin_hash"`
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// SyncConfig 配置九宫格的保存节奏：编辑后的防抖窗口与打开看板后的静默期。
type SyncConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Settle   time.Duration `mapstructure:"settle"`
}

// ExportConfig 配置看板导出流水线。
type ExportConfig struct {
	FrontendBaseURL    string `mapstructure:"frontend_base_url"`
	InternalAPIBaseURL string `mapstructure:"internal_api_base_url"`
	InternalSecret     string `mapstructure:"internal_secret"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mandala")
	v.SetDefault("database.user", "mandala")
	v.SetDefault("database.password", "mandala")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "mandala-exports")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout", 15*time.Second)
	v.SetDefault("admin.token_ttl", 2*time.Minute)
	v.SetDefault("sync.debounce", time.Second)
	v.SetDefault("sync.settle", 500*time.Millisecond)
	v.SetDefault("export.frontend_base_url", "http://localhost:3000")
	v.SetDefault("export.internal_api_base_url", "http://localhost:8080")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                     "API_PORT",
		"api.allowed_origins":          "WS_ALLOWED_ORIGINS",
		"database.host":                "DATABASE_HOST",
		"database.port":                "DATABASE_PORT",
		"database.name":                "POSTGRES_DB",
		"database.user":                "POSTGRES_USER",
		"database.password":            "POSTGRES_PASSWORD",
		"database.sslmode":             "DATABASE_SSLMODE",
		"redis.host":                   "REDIS_HOST",
		"redis.port":                   "REDIS_PORT",
		"minio.endpoint":               "MINIO_ENDPOINT",
		"minio.access_key_id":          "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":      "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                "MINIO_USE_SSL",
		"minio.bucket":                 "MINIO_BUCKET",
		"gemini.api_key":               "GEMINI_API_KEY",
		"gemini.model":                 "GEMINI_MODEL",
		"gemini.timeout":               "GEMINI_TIMEOUT",
		"admin.pin_hash":               "ADMIN_PIN_HASH",
		"admin.token_secret":           "ADMIN_TOKEN_SECRET",
		"admin.token_ttl":              "ADMIN_TOKEN_TTL",
		"sync.debounce":                "SYNC_DEBOUNCE",
		"sync.settle":                  "SYNC_SETTLE",
		"export.frontend_base_url":     "EXPORT_FRONTEND_BASE_URL",
		"export.internal_api_base_url": "INTERNAL_API_BASE_URL",
		"export.internal_secret":       "INTERNAL_API_SECRET",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Gemini.Model == "" {
		return errors.New("gemini model is required")
	}
	if cfg.Gemini.Timeout <= 0 {
		return errors.New("gemini timeout must be positive")
	}
	if cfg.Admin.PINHash == "" {
		return errors.New("admin pin hash is required")
	}
	if cfg.Admin.TokenSecret == "" {
		return errors.New("admin token secret is required")
	}
	if cfg.Admin.TokenTTL <= 0 {
		return errors.New("admin token ttl must be positive")
	}
	if cfg.Sync.Debounce <= 0 {
		return errors.New("sync debounce must be positive")
	}
	if cfg.Sync.Settle < 0 {
		return errors.New("sync settle must not be negative")
	}
	return nil
}
