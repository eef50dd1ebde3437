// Package sequence executes the scripted webhook sequences attached to
// rules. Each scheduled sequence is one detached goroutine that outlives
// the request that spawned it and reports nothing back. Outcomes go to
// the log and the request history only.
package sequence

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	mathrand "math/rand/v2"
	"net/http"
	"time"

	"github.com/hooksink/hooksink/pkg/config"
	"github.com/hooksink/hooksink/pkg/logging"
	"github.com/hooksink/hooksink/pkg/requestlog"
	"github.com/hooksink/hooksink/pkg/template"
)

// DefaultTimeout bounds a single outbound webhook call so one hung
// callback cannot occupy its goroutine forever.
const DefaultTimeout = 30 * time.Second

// maxLoggedBody caps how much of a webhook response body is logged.
const maxLoggedBody = 64 << 10

// Runner schedules and executes sequences.
type Runner struct {
	engine   *template.Engine
	client   *http.Client
	log      *slog.Logger
	recorder requestlog.Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the outbound webhook call timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithRecorder sets the delivery recorder for request history.
func WithRecorder(rec requestlog.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithHTTPClient replaces the outbound HTTP client entirely.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) {
		if c != nil {
			r.client = c
		}
	}
}

// NewRunner creates a sequence runner using the given template engine.
func NewRunner(engine *template.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:   engine,
		client:   &http.Client{Timeout: DefaultTimeout},
		log:      logging.Nop(),
		recorder: requestlog.Nop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schedule launches the sequence in a detached goroutine and returns
// immediately. There is no join and no result propagation; the context
// must be owned exclusively by this sequence from here on.
func (r *Runner) Schedule(steps []*config.Step, ctx map[string]any, requestID string) {
	go r.run(steps, ctx, requestID)
}

func (r *Runner) run(steps []*config.Step, ctx map[string]any, requestID string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("sequence aborted", "requestId", requestID, "panic", rec)
		}
	}()

	r.log.Info("starting sequence", "requestId", requestID, "steps", len(steps))

	for i, step := range steps {
		stepNum := i + 1
		r.log.Debug("executing step", "requestId", requestID, "step", stepNum, "of", len(steps))

		if step.Delay != nil {
			d := pickDelay(step.Delay)
			r.log.Debug("sleeping", "requestId", requestID, "step", stepNum, "delay", d)
			time.Sleep(d)
		}

		if step.Webhook != nil {
			// Step failures are contained: log, record, move on.
			r.send(stepNum, step.Webhook, ctx, requestID)
		}
	}

	r.log.Info("sequence completed", "requestId", requestID)
}

// pickDelay converts a configured delay into a concrete duration,
// sampling uniformly for ranges.
func pickDelay(d *config.Delay) time.Duration {
	secs := d.Seconds
	if d.Range {
		secs = d.Min + mathrand.Float64()*(d.Max-d.Min)
	}
	return time.Duration(secs * float64(time.Second))
}

// send renders the webhook definition against the sequence context and
// issues the HTTP call. Errors never propagate past this function.
func (r *Runner) send(step int, wh *config.Webhook, ctx map[string]any, requestID string) {
	method := r.engine.Render(wh.Method, ctx)
	url := r.engine.Render(wh.URL, ctx)

	bodyTree := wh.Body
	if bodyTree == nil {
		bodyTree = map[string]any{}
	}
	rendered := r.engine.RenderTree(bodyTree, ctx)

	payload, err := json.Marshal(rendered)
	if err != nil {
		r.log.Error("webhook body marshal failed", "requestId", requestID, "step", step, "error", err)
		r.recorder.AddDelivery(requestID, requestlog.Delivery{
			Step: step, Method: method, URL: url,
			Error: err.Error(), Timestamp: time.Now(),
		})
		return
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		r.log.Error("webhook request invalid", "requestId", requestID, "step", step, "url", url, "error", err)
		r.recorder.AddDelivery(requestID, requestlog.Delivery{
			Step: step, Method: method, URL: url,
			Error: err.Error(), Timestamp: time.Now(),
		})
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for name, value := range wh.Headers {
		req.Header.Set(name, r.engine.Render(value, ctx))
	}

	r.log.Info("sending webhook", "requestId", requestID, "step", step, "method", method, "url", url)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Error("webhook failed", "requestId", requestID, "step", step, "url", url, "error", err)
		r.recorder.AddDelivery(requestID, requestlog.Delivery{
			Step: step, Method: method, URL: url,
			Error: err.Error(), Timestamp: start,
			DurationMs: int(time.Since(start).Milliseconds()),
		})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	r.log.Info("webhook response",
		"requestId", requestID, "step", step,
		"status", resp.StatusCode, "body", string(respBody))

	r.recorder.AddDelivery(requestID, requestlog.Delivery{
		Step: step, Method: method, URL: url,
		Status: resp.StatusCode, Timestamp: start,
		DurationMs: int(time.Since(start).Milliseconds()),
	})
}
