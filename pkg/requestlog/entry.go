// Package requestlog keeps a bounded in-memory history of inbound requests
// and the webhook deliveries their sequences produced, for inspection via
// the engine's introspection endpoint.
package requestlog

import "time"

// Entry captures one inbound request and its outcome.
type Entry struct {
	// ID is the request correlation id, shared with sequence log lines.
	ID string `json:"id"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// Method and Path identify the inbound call.
	Method string `json:"method"`
	Path   string `json:"path"`

	// QueryString is the raw query string.
	QueryString string `json:"queryString,omitempty"`

	// Headers are the request headers (multi-value).
	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the request body content, truncated by the handler if large.
	Body string `json:"body,omitempty"`

	// RemoteAddr is the transport peer address.
	RemoteAddr string `json:"remoteAddr"`

	// MatchedRule is the path of the rule that matched (empty if none).
	MatchedRule string `json:"matchedRule,omitempty"`

	// ResponseStatus is the status code written for the initial response.
	ResponseStatus int `json:"responseStatus"`

	// Error holds a per-request failure, e.g. a malformed JSON body.
	Error string `json:"error,omitempty"`

	// Deliveries records the webhook calls made by this request's sequence,
	// appended as the sequence progresses.
	Deliveries []Delivery `json:"deliveries,omitempty"`
}

// Delivery is the outcome of one webhook step.
type Delivery struct {
	// Step is the 1-based index within the sequence.
	Step int `json:"step"`

	Method string `json:"method"`
	URL    string `json:"url"`

	// Status is the response status code, 0 when the call failed.
	Status int `json:"status,omitempty"`

	// Error holds the network or protocol failure, if any.
	Error string `json:"error,omitempty"`

	Timestamp  time.Time `json:"timestamp"`
	DurationMs int       `json:"durationMs"`
}

// clone returns a deep enough copy for readers: the Deliveries slice is
// the only part of a stored entry mutated after Log.
func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if len(e.Deliveries) > 0 {
		c.Deliveries = append([]Delivery(nil), e.Deliveries...)
	}
	return &c
}
