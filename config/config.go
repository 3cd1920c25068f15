package config

import (
	"log"

	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	// TrustProxyHeaders enables X-Forwarded-For/X-Forwarded-Proto handling
	// when the server sits behind a reverse proxy.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `mapstructure:"level"`
	// Pretty switches between human-readable console output and plain JSON.
	Pretty bool `mapstructure:"pretty"`
}

type RedisConfig struct {
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type GeoIPConfig struct {
	// DatabasePath points at a MaxMind country-level .mmdb snapshot. An empty
	// or unreadable path degrades to null countries, never an error.
	DatabasePath string `mapstructure:"database_path"`
}

type VisitsConfig struct {
	QueueKey   string `mapstructure:"queue_key"`
	Workers    int    `mapstructure:"workers"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type FeaturesConfig struct {
	MinSlugLength int `mapstructure:"min_slug_length"`
	MaxSlugLength int `mapstructure:"max_slug_length"`
	// Password challenge throttling: attempts allowed per window per
	// (link, requester) pair.
	PasswordAttempts             int `mapstructure:"password_attempts"`
	PasswordAttemptWindowMinutes int `mapstructure:"password_attempt_window_minutes"`
}

type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
	// SuperAdminKey bypasses all finer-grained permission checks.
	SuperAdminKey string `mapstructure:"super_admin_key"`
	AuthEnabled   bool   `mapstructure:"auth_enabled"`
}

type Config struct {
	WebServer WebServerConfig `mapstructure:"webserver"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	Visits    VisitsConfig    `mapstructure:"visits"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("LINANOK")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
		// Missing file is fine, defaults and env cover everything.
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

func setDefaults() {
	// WebServer defaults
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.ip", "127.0.0.1")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 15)
	viper.SetDefault("webserver.shutdown_timeout", 30)
	viper.SetDefault("webserver.trust_proxy_headers", false)

	// Database defaults
	viper.SetDefault("database.path", "linanok.db")

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", true)

	// Redis defaults
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.operation_timeout", 5)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size_mb", 100)
	viper.SetDefault("cache.ttl_seconds", 300)      // 5 minutes
	viper.SetDefault("cache.counter_size", 1000000) // 1M keys

	// RateLimit defaults
	viper.SetDefault("ratelimit.requests_per_second", 10.0)
	viper.SetDefault("ratelimit.burst", 20)

	// GeoIP defaults
	viper.SetDefault("geoip.database_path", "GeoLite2-Country.mmdb")

	// Visits defaults
	viper.SetDefault("visits.queue_key", "visit_jobs")
	viper.SetDefault("visits.workers", 2)
	viper.SetDefault("visits.max_retries", 3)

	// Features defaults
	viper.SetDefault("features.min_slug_length", 3)
	viper.SetDefault("features.max_slug_length", 64)
	viper.SetDefault("features.password_attempts", 5)
	viper.SetDefault("features.password_attempt_window_minutes", 15)

	// Admin defaults
	viper.SetDefault("admin.api_key", "")
	viper.SetDefault("admin.super_admin_key", "")
	viper.SetDefault("admin.auth_enabled", true)
}
