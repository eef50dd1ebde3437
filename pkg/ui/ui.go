// Package ui serves the manual-calling web interface: a page per rule
// tagged `type: manual_calling`, rendering its configured form and
// submitting the values to the sink endpoint as JSON.
package ui

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hooksink/hooksink/pkg/config"
	"github.com/hooksink/hooksink/pkg/logging"
)

// MountPath is the prefix the UI is served under.
const MountPath = "/manual_calling"

// Handler serves the manual-calling pages. Rules are fetched per
// request so a hot reload is reflected immediately.
type Handler struct {
	rules func() []*config.Rule
	log   *slog.Logger
}

// New creates a Handler. The rules function must return the current
// manual-calling rules on every call.
func New(rules func() []*config.Rule) *Handler {
	return &Handler{rules: rules, log: logging.Nop()}
}

// SetLogger sets the operational logger.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, MountPath)
	rest = strings.Trim(rest, "/")

	if rest == "" {
		h.serveIndex(w)
		return
	}
	h.serveForm(w, "/"+rest)
}

func (h *Handler) serveIndex(w http.ResponseWriter) {
	rules := h.rules()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexData{Rules: rules}); err != nil {
		h.log.Error("failed to render index page", "error", err)
	}
}

func (h *Handler) serveForm(w http.ResponseWriter, path string) {
	var rule *config.Rule
	for _, r := range h.rules() {
		if r.Path == path {
			rule = r
			break
		}
	}
	if rule == nil {
		http.Error(w, "endpoint not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTemplate.Execute(w, formData{
		Rule:  rule,
		Title: formTitle(rule),
	}); err != nil {
		h.log.Error("failed to render form page", "path", path, "error", err)
	}
}

func formTitle(rule *config.Rule) string {
	if rule.Form != nil && rule.Form.Title != "" {
		return rule.Form.Title
	}
	return rule.Path
}

type indexData struct {
	Rules []*config.Rule
}

type formData struct {
	Rule  *config.Rule
	Title string
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Manual Calling Interface</title>
    <link href="https://cdn.jsdelivr.net/npm/bootstrap@5.1.3/dist/css/bootstrap.min.css" rel="stylesheet">
</head>
<body>
    <div class="container mt-5">
        <h1>Manual Calling Endpoints</h1>
        <div class="list-group mt-4">
            {{- range .Rules }}
            <a href="/manual_calling{{ .Path }}" class="list-group-item list-group-item-action">
                <h5 class="mb-1">{{ .Path }}</h5>
                <p class="mb-1">{{ .Description }}</p>
            </a>
            {{- else }}
            <p>No manual-calling endpoints configured.</p>
            {{- end }}
        </div>
    </div>
</body>
</html>
`))

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{ .Title }}</title>
    <link href="https://cdn.jsdelivr.net/npm/bootstrap@5.1.3/dist/css/bootstrap.min.css" rel="stylesheet">
</head>
<body>
    <div class="container mt-5">
        <a href="/manual_calling" class="btn btn-secondary mb-3">&larr; Back to Endpoints</a>
        <h1>{{ .Title }}</h1>
        <p>{{ .Rule.Description }}</p>

        <form id="endpointForm" class="mt-4" data-path="{{ .Rule.Path }}" data-method="{{ .Rule.EffectiveMethod }}">
            {{- if .Rule.Form }}
            {{- range .Rule.Form.Fields }}
            <div class="mb-3">
                <label for="{{ .Name }}" class="form-label">{{ .Label }}</label>
                {{- if eq .Type "select" }}
                <select name="{{ .Name }}" id="{{ .Name }}" class="form-select" {{ if .Required }}required{{ end }}>
                    {{- $default := .Default }}
                    {{- range .Options }}
                    <option value="{{ .Value }}" {{ if eq .Value $default }}selected{{ end }}>{{ .Label }}</option>
                    {{- end }}
                </select>
                {{- else if eq .Type "textarea" }}
                <textarea name="{{ .Name }}" id="{{ .Name }}" class="form-control" rows="3" {{ if .Required }}required{{ end }}>{{ .Default }}</textarea>
                {{- else }}
                <input type="{{ or .Type "text" }}" name="{{ .Name }}" id="{{ .Name }}" class="form-control" value="{{ .Default }}" {{ if .Required }}required{{ end }} {{ if .Pattern }}pattern="{{ .Pattern }}"{{ end }}>
                {{- end }}
            </div>
            {{- end }}
            {{- end }}
            <button type="submit" class="btn btn-primary">Submit</button>
        </form>

        <div id="response" class="mt-4" style="display: none;">
            <h3>Response:</h3>
            <pre id="responseContent" class="bg-light p-3 rounded"></pre>
        </div>
    </div>

    <script>
        document.getElementById('endpointForm').addEventListener('submit', function (e) {
            e.preventDefault();
            var form = e.target;
            var payload = {};
            new FormData(form).forEach(function (value, name) {
                payload[name] = value;
            });
            fetch(form.dataset.path, {
                method: form.dataset.method,
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(payload)
            }).then(function (resp) {
                return resp.text().then(function (text) {
                    var pretty = text;
                    try { pretty = JSON.stringify(JSON.parse(text), null, 2); } catch (_) {}
                    document.getElementById('responseContent').textContent = pretty;
                    document.getElementById('response').style.display = 'block';
                });
            }).catch(function (err) {
                document.getElementById('responseContent').textContent = String(err);
                document.getElementById('response').style.display = 'block';
            });
        });
    </script>
</body>
</html>
`))
