package config

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	if c.Fraud.ReviewThreshold < 0 || c.Fraud.ReviewThreshold > 100 {
		return errors.New("review_threshold must be between 0 and 100")
	}

	if c.Fraud.BlockThreshold < 0 || c.Fraud.BlockThreshold > 100 {
		return errors.New("block_threshold must be between 0 and 100")
	}

	// Thresholds should be in order: review < block
	if c.Fraud.ReviewThreshold >= c.Fraud.BlockThreshold {
		return errors.New("review_threshold should be less than block_threshold")
	}

	if c.Fraud.ScoringTimeout <= 0 {
		return errors.New("scoring_timeout must be positive")
	}

	if c.Fraud.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}

	if c.Fraud.SweepInterval <= 0 {
		return errors.New("sweep_interval must be positive")
	}

	if d, err := decimal.NewFromString(c.Fraud.MaxOrderAmount); err != nil || !d.IsPositive() {
		return errors.New("max_order_amount must be a positive decimal")
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.AlertsTopic == "" {
		return errors.New("alerts_topic is required when brokers are set")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.New("log format must be json or console")
	}

	return nil
}
