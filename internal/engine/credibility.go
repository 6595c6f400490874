package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

// CredibilityRules overrides source credibility tiers via a YAML rule pack,
// so operators can down-rank known-unreliable outlets without redeploying.
type CredibilityRules struct {
	rules  []CredibilityRule
	logger *slog.Logger
}

// CredibilityRule maps matching sources onto a credibility tier.
type CredibilityRule struct {
	ID    string                 `yaml:"id"`
	Match CredibilityMatch       `yaml:"match"`
	Tier  models.CredibilityTier `yaml:"tier"`
}

// CredibilityMatch defines optional attributes for rule matching.
type CredibilityMatch struct {
	Source         string   `yaml:"source"`
	SourceContains []string `yaml:"source_contains"`
}

type credibilityRuleFile struct {
	Rules []CredibilityRule `yaml:"rules"`
}

// LoadCredibilityRules loads a rule pack from the provided path. An empty or
// missing path returns a nil ruleset, which every caller treats as a no-op.
func LoadCredibilityRules(path string, logger *slog.Logger) (*CredibilityRules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg credibilityRuleFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredibilityRules{rules: cfg.Rules, logger: logger}, nil
}

// TierFor returns the overriding tier for a signal's source, if any rule
// matches. The first matching rule wins.
func (r *CredibilityRules) TierFor(sig models.Signal) (models.CredibilityTier, bool) {
	if r == nil {
		return "", false
	}
	for _, rule := range r.rules {
		if rule.Tier == "" {
			continue
		}
		if rule.Match.Source != "" && strings.EqualFold(rule.Match.Source, sig.Source) {
			return rule.Tier, true
		}
		for _, fragment := range rule.Match.SourceContains {
			if fragment != "" && strings.Contains(strings.ToLower(sig.Source), strings.ToLower(fragment)) {
				return rule.Tier, true
			}
		}
	}
	return "", false
}
