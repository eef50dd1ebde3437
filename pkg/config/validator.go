package config

import (
	"errors"
	"fmt"
	"strings"
)

// Methods the listener accepts. Matching itself is a plain string
// comparison; this set only bounds what a rule may declare.
var knownMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
}

// Validate checks the configuration for structural problems. A config that
// fails validation must not be served: the process refuses to start rather
// than running with no usable rules.
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("no endpoints configured")
	}

	seen := make(map[string]bool)
	for _, rule := range c.Endpoints {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("endpoint %q: %w", rule.Path, err)
		}
		key := rule.Path + " " + rule.EffectiveMethod()
		if seen[key] {
			return fmt.Errorf("duplicate endpoint %s %s", rule.EffectiveMethod(), rule.Path)
		}
		seen[key] = true
	}
	return nil
}

func (r *Rule) validate() error {
	if !strings.HasPrefix(r.Path, "/") {
		return errors.New("path must start with /")
	}
	if r.Method != "" && !knownMethods[r.Method] {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	if r.InitialResponse != nil && r.InitialResponse.Status != 0 {
		if r.InitialResponse.Status < 100 || r.InitialResponse.Status > 599 {
			return fmt.Errorf("initial_response status %d out of range", r.InitialResponse.Status)
		}
	}
	for i, step := range r.Sequence {
		if err := step.validate(); err != nil {
			return fmt.Errorf("sequence step %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Step) validate() error {
	if s.Delay != nil {
		d := s.Delay
		if d.Range {
			if d.Min < 0 || d.Max < 0 {
				return errors.New("delay range must be non-negative")
			}
			if d.Min > d.Max {
				return fmt.Errorf("delay range min %g exceeds max %g", d.Min, d.Max)
			}
		} else if d.Seconds < 0 {
			return errors.New("delay must be non-negative")
		}
	}
	if s.Webhook != nil {
		if s.Webhook.URL == "" {
			return errors.New("webhook url is required")
		}
		if s.Webhook.Method == "" {
			return errors.New("webhook method is required")
		}
	}
	return nil
}
