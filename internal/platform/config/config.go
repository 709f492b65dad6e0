package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// 限流儲存後端.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config 應用程式配置結構.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Site     SiteConfig     `mapstructure:"site"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Limits   LimitsConfig   `mapstructure:"limits"`
}

// AppConfig 應用程式基本配置.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Debug   bool   `mapstructure:"debug"`
}

// ServerConfig 伺服器配置.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Timeout  int    `mapstructure:"timeout"`
	UseHTTPS bool   `mapstructure:"use_https"`
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
}

// SiteConfig 網站配置.
type SiteConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig 資料庫配置.
type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
	Mongo MongoConfig `mapstructure:"mongo"`
}

// RedisConfig Redis 配置.
type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	DialTimeout int    `mapstructure:"dial_timeout"`
}

// MongoConfig MongoDB 配置.
type MongoConfig struct {
	URL                    string `mapstructure:"url"`
	Database               string `mapstructure:"database"`
	Username               string `mapstructure:"username"`
	Password               string `mapstructure:"password"`
	MaxPoolSize            uint64 `mapstructure:"max_pool_size"`
	MinPoolSize            uint64 `mapstructure:"min_pool_size"`
	MaxConnIdleTime        int    `mapstructure:"max_conn_idle_time"`
	ConnectTimeout         int    `mapstructure:"connect_timeout"`
	ServerSelectionTimeout int    `mapstructure:"server_selection_timeout"`
	TLSEnabled             bool   `mapstructure:"tls_enabled"`
	TLSCAFile              string `mapstructure:"tls_ca_file"`
	TLSCertFile            string `mapstructure:"tls_cert_file"`
	TLSKeyFile             string `mapstructure:"tls_key_file"`
	TLSInsecureSkipVerify  bool   `mapstructure:"tls_insecure_skip_verify"`
}

// LogConfig 日誌配置.
type LogConfig struct {
	RotationTimeHours int `mapstructure:"rotation_time_hours"` // 日誌輪轉時間 (小時).
	MaxAgeDays        int `mapstructure:"max_age_days"`        // 日誌保留天數.
	MaxSizeMB         int `mapstructure:"max_size_mb"`         // 單個日誌檔案最大大小 (MB).
}

// SecurityConfig 安全配置.
type SecurityConfig struct {
	Audit AuditConfig `mapstructure:"audit"`
}

// AuditConfig 審計配置.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LimitsConfig 限制配置.
type LimitsConfig struct {
	Request      RequestLimitsConfig `mapstructure:"request"`
	RateLimiting RateLimitingConfig  `mapstructure:"rate_limiting"`
	Contact      ContactLimitsConfig `mapstructure:"contact"`
}

// RequestLimitsConfig 請求限制配置.
type RequestLimitsConfig struct {
	MaxBodySize int64 `mapstructure:"max_body_size"`
}

// RateLimitingConfig Rate Limiting 配置.
type RateLimitingConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Backend         string `mapstructure:"backend"`
	WindowSeconds   int    `mapstructure:"window_seconds"`
	MaxRequests     int    `mapstructure:"max_requests"`
	CleanupInterval int    `mapstructure:"cleanup_interval_minutes"`
	KeyPrefix       string `mapstructure:"key_prefix"`
}

// ContactLimitsConfig 聯絡表單配置.
type ContactLimitsConfig struct {
	DeliveryDelayMS int `mapstructure:"delivery_delay_ms"`
}

var (
	config *Config
	// ENV 當前環境變數.
	ENV string = "local"
)

// Load 載入設定檔.
func Load(testCfg ...*Config) error {
	// 如果直接傳入配置（主要用於測試），設定並驗證
	if len(testCfg) > 0 && testCfg[0] != nil {
		if err := validateConfig(testCfg[0]); err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}
		config = testCfg[0]
		return nil
	}

	v := viper.New()
	setDefaults(v)

	// 檢查是否有 CONFIG_PATH 環境變數
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
		// 從檔案名稱推斷環境
		baseName := filepath.Base(configPath)
		ENV = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	} else {
		v.SetConfigName(ENV)
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}

	// 允許以 CYBORG_LIMITS_RATE_LIMITING_BACKEND 之類的環境變數覆蓋
	v.SetEnvPrefix("CYBORG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("讀取配置檔案失敗: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("解析配置失敗: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("配置驗證失敗: %w", err)
	}

	config = cfg
	return nil
}

// setDefaults 設定預設值.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30)
	v.SetDefault("site.base_url", "https://cyborg-vpn.com")
	v.SetDefault("log.rotation_time_hours", 24)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("security.audit.enabled", true)
	v.SetDefault("limits.request.max_body_size", 64<<10)
	v.SetDefault("limits.rate_limiting.enabled", true)
	v.SetDefault("limits.rate_limiting.backend", BackendMemory)
	v.SetDefault("limits.rate_limiting.window_seconds", 60)
	v.SetDefault("limits.rate_limiting.max_requests", 5)
	v.SetDefault("limits.rate_limiting.cleanup_interval_minutes", 5)
	v.SetDefault("limits.rate_limiting.key_prefix", "contact")
	v.SetDefault("limits.contact.delivery_delay_ms", 500)
}

// Get 取得設定.
func Get() *Config {
	return config
}

// SetEnv 設定環境.
func SetEnv(env string) {
	ENV = env
}

// GetEnv 取得當前環境.
func GetEnv() string {
	return ENV
}

// validateConfig 驗證配置的有效性
func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("應用程式名稱不能為空")
	}
	if cfg.App.Version == "" {
		return fmt.Errorf("應用程式版本不能為空")
	}

	if cfg.Server.Host == "" {
		return fmt.Errorf("伺服器主機不能為空")
	}
	if cfg.Server.Port == "" {
		return fmt.Errorf("伺服器端口不能為空")
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("伺服器超時時間必須大於 0")
	}
	if cfg.Server.UseHTTPS && (cfg.Server.CertPath == "" || cfg.Server.KeyPath == "") {
		return fmt.Errorf("啟用 HTTPS 時必須提供憑證與私鑰路徑")
	}

	rl := cfg.Limits.RateLimiting
	if rl.WindowSeconds < 0 || rl.MaxRequests < 0 || rl.CleanupInterval < 0 {
		return fmt.Errorf("限流參數不能為負數")
	}

	switch rl.Backend {
	case "", BackendMemory:
	case BackendRedis:
		if cfg.Database.Redis.Addr == "" {
			return fmt.Errorf("使用 redis 限流後端時 Redis 位址不能為空")
		}
	case BackendMongo:
		if cfg.Database.Mongo.URL == "" {
			return fmt.Errorf("MongoDB URL 不能為空")
		}
		if cfg.Database.Mongo.Database == "" {
			return fmt.Errorf("MongoDB 資料庫名稱不能為空")
		}
		if cfg.Database.Mongo.MinPoolSize > cfg.Database.Mongo.MaxPoolSize && cfg.Database.Mongo.MaxPoolSize > 0 {
			return fmt.Errorf("MongoDB 最小連接池大小不能大於最大連接池大小")
		}
	default:
		return fmt.Errorf("不支援的限流後端: %s", rl.Backend)
	}

	if cfg.Log.RotationTimeHours < 0 || cfg.Log.MaxAgeDays < 0 || cfg.Log.MaxSizeMB < 0 {
		return fmt.Errorf("日誌參數不能為負數")
	}

	return nil
}

// IsDebug 檢查是否為除錯模式
func IsDebug() bool {
	if config != nil {
		return config.App.Debug
	}
	return false
}

// GetServerAddr 取得伺服器地址
func GetServerAddr() string {
	if config != nil {
		return fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)
	}
	return "localhost:8080"
}

// RateLimitBackend 取得限流後端名稱，未設定時為 memory
func (c *Config) RateLimitBackend() string {
	if c.Limits.RateLimiting.Backend == "" {
		return BackendMemory
	}
	return c.Limits.RateLimiting.Backend
}
