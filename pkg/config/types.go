// Package config provides configuration types and loading for the endpoint simulator.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
//
// The YAML shape is:
//
//	config:            # free-form global settings, exposed to templates as {{config.*}}
//	  callback_server: http://localhost:9000
//	endpoints:         # path -> rule, declaration order significant (first match wins)
//	  /payment:
//	    method: POST
//	    ...
type Config struct {
	// Settings is the free-form `config:` block, merged into every request
	// context under the `config` key.
	Settings map[string]any

	// Endpoints holds the configured rules in declaration order.
	Endpoints []*Rule
}

// Rule is a configured path+method match with its response and sequence behavior.
type Rule struct {
	// Path is the exact request path this rule matches (the endpoints map key).
	Path string `yaml:"-" json:"path"`

	// Method is the HTTP method to match, compared case-sensitively.
	// Empty means GET.
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// Description is free text shown in logs and the manual-calling UI.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Type tags the rule; "manual_calling" rules are listed by the web UI.
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// InitialResponse is rendered and written synchronously before any
	// sequence work starts.
	InitialResponse *InitialResponse `yaml:"initial_response,omitempty" json:"initial_response,omitempty"`

	// Sequence is an ordered list of delayed outbound actions run after the
	// initial response has been sent.
	Sequence []*Step `yaml:"sequence,omitempty" json:"sequence,omitempty"`

	// Form describes the manual-calling UI form for this rule. Ignored by
	// request handling.
	Form *Form `yaml:"form,omitempty" json:"form,omitempty"`
}

// EffectiveMethod returns the configured method, defaulting to GET.
func (r *Rule) EffectiveMethod() string {
	if r.Method == "" {
		return "GET"
	}
	return r.Method
}

// InitialResponse is the immediate response for a matched rule.
// Body is a template tree: strings may contain {{expr}} placeholders,
// maps and sequences are rendered recursively.
type InitialResponse struct {
	Status int `yaml:"status,omitempty" json:"status,omitempty"`
	Body   any `yaml:"body,omitempty" json:"body,omitempty"`
}

// EffectiveStatus returns the configured status, defaulting to 200.
func (ir *InitialResponse) EffectiveStatus() int {
	if ir == nil || ir.Status == 0 {
		return 200
	}
	return ir.Status
}

// Step is one entry of a sequence. A step may have a delay, a webhook,
// both, or neither; absence means skip that action.
type Step struct {
	Delay   *Delay   `yaml:"delay,omitempty" json:"delay,omitempty"`
	Webhook *Webhook `yaml:"webhook,omitempty" json:"webhook,omitempty"`
}

// Delay is either a fixed number of seconds or a {min,max} range the
// scheduler samples uniformly. Fractional seconds are allowed.
type Delay struct {
	Seconds float64
	Min     float64
	Max     float64
	Range   bool
}

// UnmarshalYAML accepts `delay: 1.5` and `delay: {min: 1, max: 3}`.
func (d *Delay) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var secs float64
		if err := value.Decode(&secs); err != nil {
			return fmt.Errorf("delay must be a number of seconds: %w", err)
		}
		d.Seconds = secs
		return nil
	case yaml.MappingNode:
		var bounds struct {
			Min float64 `yaml:"min"`
			Max float64 `yaml:"max"`
		}
		if err := value.Decode(&bounds); err != nil {
			return fmt.Errorf("delay range must have numeric min/max: %w", err)
		}
		d.Min = bounds.Min
		d.Max = bounds.Max
		d.Range = true
		return nil
	default:
		return fmt.Errorf("delay must be a number or a {min, max} mapping")
	}
}

// Webhook is an outbound HTTP call description. Method, URL, header values
// and the body tree are all template trees rendered per request.
type Webhook struct {
	Method  string            `yaml:"method" json:"method"`
	URL     string            `yaml:"url" json:"url"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body    any               `yaml:"body,omitempty" json:"body,omitempty"`
}

// Form is the manual-calling UI metadata attached to a rule.
type Form struct {
	Title  string      `yaml:"title,omitempty" json:"title,omitempty"`
	Fields []FormField `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// FormField is a single input on a manual-calling form.
type FormField struct {
	Name     string       `yaml:"name" json:"name"`
	Label    string       `yaml:"label,omitempty" json:"label,omitempty"`
	Type     string       `yaml:"type,omitempty" json:"type,omitempty"` // text, number, select, textarea...
	Default  string       `yaml:"default,omitempty" json:"default,omitempty"`
	Pattern  string       `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Required bool         `yaml:"required,omitempty" json:"required,omitempty"`
	Options  []FormOption `yaml:"options,omitempty" json:"options,omitempty"`
}

// FormOption is one choice of a select field.
type FormOption struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// UnmarshalYAML decodes the top-level document, preserving the declaration
// order of the endpoints mapping. Mapping iteration order is what gives
// first-match-wins its meaning, so the endpoints node is walked manually.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("configuration must be a mapping, got %s", nodeKind(value.Kind))
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		switch keyNode.Value {
		case "config":
			if err := valNode.Decode(&c.Settings); err != nil {
				return fmt.Errorf("invalid config block: %w", err)
			}
		case "endpoints":
			if valNode.Kind != yaml.MappingNode {
				return fmt.Errorf("endpoints must be a mapping of path to rule")
			}
			for j := 0; j+1 < len(valNode.Content); j += 2 {
				pathNode := valNode.Content[j]
				ruleNode := valNode.Content[j+1]

				rule := &Rule{}
				if err := ruleNode.Decode(rule); err != nil {
					return fmt.Errorf("invalid rule for endpoint %q: %w", pathNode.Value, err)
				}
				rule.Path = pathNode.Value
				c.Endpoints = append(c.Endpoints, rule)
			}
		}
	}

	if c.Settings == nil {
		c.Settings = make(map[string]any)
	}
	return nil
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// Rule lookup by path, used by the manual-calling UI.
func (c *Config) FindByPath(path string) *Rule {
	for _, r := range c.Endpoints {
		if r.Path == path {
			return r
		}
	}
	return nil
}

// SetCallbackServer overwrites the callback_server setting. Used by the
// --callback-url flag as a one-time mutation before the listener starts.
func (c *Config) SetCallbackServer(url string) {
	if c.Settings == nil {
		c.Settings = make(map[string]any)
	}
	c.Settings["callback_server"] = url
}
