package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Fraud    FraudConfig    `mapstructure:"fraud"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
// When Enabled is false the engine runs on in-memory stores.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis configuration for the velocity window
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig holds the signal alerts producer configuration.
// No brokers means alerts are not published.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	AlertsTopic  string        `mapstructure:"alerts_topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig holds the reviewer API credentials
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// FraudConfig holds scoring and ledger configuration
type FraudConfig struct {
	// Decision thresholds on the 0-100 scale
	ReviewThreshold int `mapstructure:"review_threshold"`
	BlockThreshold  int `mapstructure:"block_threshold"`

	// Latency budget for a synchronous assessment
	ScoringTimeout time.Duration `mapstructure:"scoring_timeout"`

	// Sessions
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// Rules are re-read from the store at most this often
	RuleCacheTTL time.Duration `mapstructure:"rule_cache_ttl"`

	// Orders above this amount are rejected
	MaxOrderAmount string `mapstructure:"max_order_amount"` // String for YAML compatibility

	// Background audit writes
	AuditTimeout     time.Duration `mapstructure:"audit_timeout"`
	AuditConcurrency int           `mapstructure:"audit_concurrency"`
}

// GetMaxOrderAmount returns the max order amount as decimal
func (c *FraudConfig) GetMaxOrderAmount() decimal.Decimal {
	d, err := decimal.NewFromString(c.MaxOrderAmount)
	if err != nil {
		return decimal.NewFromInt(1000000)
	}
	return d
}

// BreakerConfig tunes the circuit breaker around the velocity cache
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ConsecutiveFails uint32        `mapstructure:"consecutive_fails"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			User:            "fraud_user",
			Password:        "",
			Name:            "checkout_fraud",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         6379,
			Password:     "",
			DB:           0,
			PoolSize:     10,
			ReadTimeout:  50 * time.Millisecond,
			WriteTimeout: 50 * time.Millisecond,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{},
			AlertsTopic:  "fraud-signals",
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			Issuer: "checkout-fraud-engine",
		},
		Fraud: FraudConfig{
			ReviewThreshold:  30,
			BlockThreshold:   70,
			ScoringTimeout:   150 * time.Millisecond,
			SessionTTL:       30 * time.Minute,
			SweepInterval:    time.Minute,
			RuleCacheTTL:     30 * time.Second,
			MaxOrderAmount:   "1000000",
			AuditTimeout:     5 * time.Second,
			AuditConcurrency: 64,
		},
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          10 * time.Second,
			ConsecutiveFails: 5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
