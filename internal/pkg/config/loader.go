package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables.
// Environment variables use the FRAUD_ prefix, e.g. FRAUD_FRAUD_BLOCK_THRESHOLD.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	// Set defaults from DefaultConfig so that every key is bound to env
	setDefaults(v, cfg)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("FRAUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	// Server defaults
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	// Database defaults
	v.SetDefault("database.enabled", cfg.Database.Enabled)
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.name", cfg.Database.Name)
	v.SetDefault("database.ssl_mode", cfg.Database.SSLMode)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", cfg.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", cfg.Database.ConnMaxLifetime)
	v.SetDefault("database.auto_migrate", cfg.Database.AutoMigrate)

	// Redis defaults
	v.SetDefault("redis.enabled", cfg.Redis.Enabled)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.host", cfg.Redis.Host)
	v.SetDefault("redis.port", cfg.Redis.Port)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.pool_size", cfg.Redis.PoolSize)
	v.SetDefault("redis.read_timeout", cfg.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", cfg.Redis.WriteTimeout)

	// Kafka defaults
	v.SetDefault("kafka.brokers", cfg.Kafka.Brokers)
	v.SetDefault("kafka.alerts_topic", cfg.Kafka.AlertsTopic)
	v.SetDefault("kafka.batch_timeout", cfg.Kafka.BatchTimeout)
	v.SetDefault("kafka.write_timeout", cfg.Kafka.WriteTimeout)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", cfg.Auth.JWTSecret)
	v.SetDefault("auth.issuer", cfg.Auth.Issuer)

	// Fraud defaults
	v.SetDefault("fraud.review_threshold", cfg.Fraud.ReviewThreshold)
	v.SetDefault("fraud.block_threshold", cfg.Fraud.BlockThreshold)
	v.SetDefault("fraud.scoring_timeout", cfg.Fraud.ScoringTimeout)
	v.SetDefault("fraud.session_ttl", cfg.Fraud.SessionTTL)
	v.SetDefault("fraud.sweep_interval", cfg.Fraud.SweepInterval)
	v.SetDefault("fraud.rule_cache_ttl", cfg.Fraud.RuleCacheTTL)
	v.SetDefault("fraud.max_order_amount", cfg.Fraud.MaxOrderAmount)
	v.SetDefault("fraud.audit_timeout", cfg.Fraud.AuditTimeout)
	v.SetDefault("fraud.audit_concurrency", cfg.Fraud.AuditConcurrency)

	// Breaker defaults
	v.SetDefault("breaker.max_requests", cfg.Breaker.MaxRequests)
	v.SetDefault("breaker.interval", cfg.Breaker.Interval)
	v.SetDefault("breaker.timeout", cfg.Breaker.Timeout)
	v.SetDefault("breaker.consecutive_fails", cfg.Breaker.ConsecutiveFails)

	// Metrics and logging
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}
