package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"checkout-fraud-engine/internal/domain/fraud"
)

// Engine serves detection rules to scoring from an in-memory snapshot and
// evaluates a session against them
type Engine struct {
	ruleRepo fraud.RuleRepository
	logger   *zap.Logger

	// In-memory rule cache
	rulesCache  fraud.RuleSet
	rulesMu     sync.RWMutex
	lastRefresh time.Time
	cacheTTL    time.Duration
}

// NewEngine creates a new rule engine
func NewEngine(ruleRepo fraud.RuleRepository, cacheTTL time.Duration, logger *zap.Logger) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Engine{
		ruleRepo: ruleRepo,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Rules returns the current rule snapshot, refreshing it after the cache TTL
func (e *Engine) Rules(ctx context.Context) (fraud.RuleSet, error) {
	e.rulesMu.RLock()
	if e.rulesCache != nil && time.Since(e.lastRefresh) < e.cacheTTL {
		rules := e.rulesCache
		e.rulesMu.RUnlock()
		return rules, nil
	}
	e.rulesMu.RUnlock()

	e.rulesMu.Lock()
	defer e.rulesMu.Unlock()

	// Double-check after acquiring write lock
	if e.rulesCache != nil && time.Since(e.lastRefresh) < e.cacheTTL {
		return e.rulesCache, nil
	}

	list, err := e.ruleRepo.List(ctx)
	if err != nil {
		if e.rulesCache != nil {
			e.logger.Warn("rule refresh failed, serving stale snapshot", zap.Error(err))
			return e.rulesCache, nil
		}
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	e.rulesCache = fraud.NewRuleSet(list)
	e.lastRefresh = time.Now()
	return e.rulesCache, nil
}

// ListRules returns all rules straight from the store
func (e *Engine) ListRules(ctx context.Context) ([]fraud.DetectionRule, error) {
	return e.ruleRepo.List(ctx)
}

// GetRule returns one rule straight from the store
func (e *Engine) GetRule(ctx context.Context, key string) (*fraud.DetectionRule, error) {
	return e.ruleRepo.GetByKey(ctx, key)
}

// UpdateRule stores an administrator's change and drops the snapshot
func (e *Engine) UpdateRule(ctx context.Context, rule *fraud.DetectionRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := e.ruleRepo.Upsert(ctx, rule); err != nil {
		return err
	}
	e.invalidateCache()
	e.logger.Info("detection rule updated",
		zap.String("rule_key", rule.Key),
		zap.String("threshold", rule.ThresholdValue.String()),
		zap.Int("weight", rule.Weight),
		zap.Bool("active", rule.IsActive),
		zap.Int("version", rule.Version))
	return nil
}

func (e *Engine) invalidateCache() {
	e.rulesMu.Lock()
	e.rulesCache = nil
	e.rulesMu.Unlock()
}
