package proxy

import (
	"strings"

	"github.com/iTrooz/fetch-cache/internal/config"
)

// Rule matches requests against caching rules
type Rule interface {
	Match(targetURL, method string) bool
}

// ConfigRule implements Rule for config-based rules
type ConfigRule struct {
	config.CacheRule
}

// Match checks if a request matches this rule. A rule without methods matches every method.
func (r *ConfigRule) Match(targetURL, method string) bool {
	// Check if URL starts with base URI
	if !strings.HasPrefix(targetURL, r.BaseURI) {
		return false
	}

	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func buildRules(cfg config.RulesConfig) []Rule {
	rules := make([]Rule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rules = append(rules, &ConfigRule{CacheRule: rule})
	}
	return rules
}
