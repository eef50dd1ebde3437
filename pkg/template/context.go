package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
)

// ErrInvalidJSONBody is returned when a non-empty request body cannot be
// parsed as JSON. The failure is contained to the single request; the
// handler answers 400 and the listener keeps serving.
var ErrInvalidJSONBody = errors.New("request body is not valid JSON")

// NewRequestContext assembles the per-request template context from an
// inbound request. The context is a plain JSON-like value tree:
//
//	request.base_url
//	request.body             parsed JSON body ({} when the body is empty)
//	request.headers.<Name>   first value per header, canonical names
//	request.query_params.<k> ordered list of values
//	request.origin.{ip, port, forwarded_for, real_ip, host}
//	config.<key>             global settings block
//
// origin.ip/port come from the transport peer address; forwarded_for and
// real_ip are copied verbatim from headers and are spoofable. Each request
// gets its own context; nothing here is shared or reused.
func NewRequestContext(r *http.Request, body []byte, settings map[string]any) (map[string]any, error) {
	parsedBody := any(map[string]any{})
	if len(body) > 0 {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSONBody, err)
		}
		parsedBody = v
	}

	headers := make(map[string]any, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	query := make(map[string]any)
	for key, values := range r.URL.Query() {
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		query[key] = list
	}

	host := r.Host
	if host == "" {
		host = "localhost"
	}

	ip, port := peerAddr(r.RemoteAddr)

	if settings == nil {
		settings = map[string]any{}
	}

	return map[string]any{
		"request": map[string]any{
			"base_url":     "http://" + host,
			"body":         parsedBody,
			"headers":      headers,
			"query_params": query,
			"origin": map[string]any{
				"ip":            ip,
				"port":          port,
				"forwarded_for": r.Header.Get("X-Forwarded-For"),
				"real_ip":       r.Header.Get("X-Real-IP"),
				"host":          host,
			},
		},
		"config": settings,
	}, nil
}

// peerAddr splits a transport remote address into IP and numeric port.
func peerAddr(remoteAddr string) (string, int) {
	host, portStr, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr, 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// SetInitialResponse records the already-rendered initial response body in
// the context so later sequence steps can reference it as
// {{initial_response.body...}}.
func SetInitialResponse(ctx map[string]any, renderedBody any) {
	ctx["initial_response"] = map[string]any{"body": renderedBody}
}
