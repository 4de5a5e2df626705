package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Fraud.ReviewThreshold)
	assert.Equal(t, 70, cfg.Fraud.BlockThreshold)
	assert.Equal(t, 150*time.Millisecond, cfg.Fraud.ScoringTimeout)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "fraud-signals", cfg.Kafka.AlertsTopic)
	assert.True(t, cfg.Fraud.GetMaxOrderAmount().Equal(decimal.NewFromInt(1000000)))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FRAUD_FRAUD_BLOCK_THRESHOLD", "80")
	t.Setenv("FRAUD_FRAUD_SCORING_TIMEOUT", "250ms")
	t.Setenv("FRAUD_REDIS_ENABLED", "true")
	t.Setenv("FRAUD_REDIS_ADDR", "cache:6379")
	t.Setenv("FRAUD_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Fraud.BlockThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Fraud.ScoringTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
fraud:
  review_threshold: 25
  block_threshold: 60
  max_order_amount: "5000.00"
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
log:
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Fraud.ReviewThreshold)
	assert.Equal(t, 60, cfg.Fraud.BlockThreshold)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Fraud.GetMaxOrderAmount().Equal(decimal.NewFromInt(5000)))
	// untouched keys keep defaults
	assert.Equal(t, 30*time.Minute, cfg.Fraud.SessionTTL)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [port"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "port"},
		{name: "review range", mutate: func(c *Config) { c.Fraud.ReviewThreshold = -1 }, wantErr: "review_threshold"},
		{name: "block range", mutate: func(c *Config) { c.Fraud.BlockThreshold = 101 }, wantErr: "block_threshold"},
		{name: "threshold order", mutate: func(c *Config) { c.Fraud.ReviewThreshold = 70 }, wantErr: "less than"},
		{name: "scoring timeout", mutate: func(c *Config) { c.Fraud.ScoringTimeout = 0 }, wantErr: "scoring_timeout"},
		{name: "session ttl", mutate: func(c *Config) { c.Fraud.SessionTTL = 0 }, wantErr: "session_ttl"},
		{name: "sweep interval", mutate: func(c *Config) { c.Fraud.SweepInterval = -time.Second }, wantErr: "sweep_interval"},
		{name: "max order amount", mutate: func(c *Config) { c.Fraud.MaxOrderAmount = "lots" }, wantErr: "max_order_amount"},
		{name: "zero max order amount", mutate: func(c *Config) { c.Fraud.MaxOrderAmount = "0" }, wantErr: "max_order_amount"},
		{
			name: "topic with brokers",
			mutate: func(c *Config) {
				c.Kafka.Brokers = []string{"kafka:9092"}
				c.Kafka.AlertsTopic = ""
			},
			wantErr: "alerts_topic",
		},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetMaxOrderAmount_Fallback(t *testing.T) {
	f := FraudConfig{MaxOrderAmount: "not-a-number"}
	assert.True(t, f.GetMaxOrderAmount().Equal(decimal.NewFromInt(1000000)))
}
