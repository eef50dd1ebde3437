package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no endpoints", "config: {}\n"},
		{"path without slash", "endpoints:\n  nope: {}\n"},
		{"unknown method", "endpoints:\n  /x: {method: BREW}\n"},
		{"status out of range", "endpoints:\n  /x: {initial_response: {status: 42}}\n"},
		{"negative delay", "endpoints:\n  /x: {sequence: [{delay: -1}]}\n"},
		{"inverted range", "endpoints:\n  /x: {sequence: [{delay: {min: 5, max: 1}}]}\n"},
		{"webhook without url", "endpoints:\n  /x: {sequence: [{webhook: {method: POST}}]}\n"},
		{"webhook without method", "endpoints:\n  /x: {sequence: [{webhook: {url: http://h}}]}\n"},
		{"duplicate endpoint", "endpoints:\n  /x: {method: GET}\n  /x: {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	doc := `
endpoints:
  /a: {}
  /b:
    method: POST
    sequence:
      - delay: 0
      - {}
      - webhook: {method: PUT, url: http://callback}
`
	_, err := Parse([]byte(doc))
	assert.NoError(t, err)
}

func TestSamePathDifferentMethodAllowed(t *testing.T) {
	doc := `
endpoints:
  /a: {method: GET}
`
	cfg, err := Parse([]byte(doc))
	assert.NoError(t, err)
	assert.Equal(t, "GET", cfg.Endpoints[0].EffectiveMethod())
}
