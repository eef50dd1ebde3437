// Package matching resolves inbound requests to configured rules.
//
// Resolution is deliberately rigid: exact path equality, case-sensitive
// method comparison, first match in declaration order wins. There is no
// wildcard or prefix matching and no path normalization. A miss is not an
// error; the caller falls back to a generic acknowledgment.
package matching

import (
	"github.com/hooksink/hooksink/pkg/config"
)

// RuleSet is an immutable snapshot of the loaded configuration. It is
// built once per load and shared lock-free across all request handlers;
// reloads swap in a whole new RuleSet rather than mutating this one.
type RuleSet struct {
	rules    []*config.Rule
	settings map[string]any
}

// NewRuleSet builds a RuleSet from a loaded configuration.
func NewRuleSet(cfg *config.Config) *RuleSet {
	return &RuleSet{
		rules:    cfg.Endpoints,
		settings: cfg.Settings,
	}
}

// Resolve returns the first rule whose path equals the request path and
// whose method (default GET) equals the request method. The second return
// is false when no rule matches.
func (rs *RuleSet) Resolve(path, method string) (*config.Rule, bool) {
	for _, rule := range rs.rules {
		if rule.Path == path && rule.EffectiveMethod() == method {
			return rule, true
		}
	}
	return nil, false
}

// Rules returns the configured rules in declaration order.
func (rs *RuleSet) Rules() []*config.Rule {
	return rs.rules
}

// Settings returns the global config block exposed to templates.
func (rs *RuleSet) Settings() map[string]any {
	return rs.settings
}

// ManualRules returns the rules tagged for the manual-calling UI,
// in declaration order.
func (rs *RuleSet) ManualRules() []*config.Rule {
	var out []*config.Rule
	for _, rule := range rs.rules {
		if rule.Type == "manual_calling" {
			out = append(out, rule)
		}
	}
	return out
}
