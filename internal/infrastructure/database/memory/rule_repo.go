package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"checkout-fraud-engine/internal/domain/fraud"
)

// RuleRepository implements fraud.RuleRepository, seeded with the default rule set
type RuleRepository struct {
	mu    sync.RWMutex
	rules map[string]fraud.DetectionRule
}

func NewRuleRepository() *RuleRepository {
	repo := &RuleRepository{rules: make(map[string]fraud.DetectionRule)}
	for _, r := range fraud.DefaultRules() {
		repo.rules[r.Key] = r
	}
	return repo
}

func (r *RuleRepository) List(ctx context.Context) ([]fraud.DetectionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]fraud.DetectionRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *RuleRepository) GetByKey(ctx context.Context, key string) (*fraud.DetectionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[key]
	if !ok {
		return nil, fraud.ErrRuleNotFound
	}
	return &rule, nil
}

func (r *RuleRepository) Upsert(ctx context.Context, rule *fraud.DetectionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.Version = r.rules[rule.Key].Version + 1
	rule.UpdatedAt = time.Now().UTC()
	r.rules[rule.Key] = *rule
	return nil
}
