package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooksink/hooksink/pkg/config"
)

func manualRules() []*config.Rule {
	return []*config.Rule{
		{
			Path:        "/trigger-payment",
			Method:      "POST",
			Type:        "manual_calling",
			Description: "Simulate an inbound payment",
			Form: &config.Form{
				Title: "Trigger Payment",
				Fields: []config.FormField{
					{Name: "amount", Label: "Amount", Type: "number", Default: "100", Required: true},
					{Name: "currency", Label: "Currency", Type: "select", Default: "EUR", Options: []config.FormOption{
						{Value: "EUR", Label: "Euro"},
						{Value: "USD", Label: "US Dollar"},
					}},
					{Name: "note", Label: "Note", Type: "textarea"},
				},
			},
		},
		{
			Path: "/trigger-refund",
			Type: "manual_calling",
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndexListsManualEndpoints(t *testing.T) {
	h := New(manualRules)
	rec := get(t, h, "/manual_calling")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, `href="/manual_calling/trigger-payment"`)
	assert.Contains(t, body, "Simulate an inbound payment")
	assert.Contains(t, body, `href="/manual_calling/trigger-refund"`)
}

func TestIndexEmpty(t *testing.T) {
	h := New(func() []*config.Rule { return nil })
	rec := get(t, h, "/manual_calling")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No manual-calling endpoints configured")
}

func TestFormPage(t *testing.T) {
	h := New(manualRules)
	rec := get(t, h, "/manual_calling/trigger-payment")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Trigger Payment")
	assert.Contains(t, body, `data-path="/trigger-payment"`)
	assert.Contains(t, body, `data-method="POST"`)
	assert.Contains(t, body, `name="amount"`)
	assert.Contains(t, body, `value="100"`)
	assert.Contains(t, body, "required")

	// Select renders its options with the default preselected.
	assert.Contains(t, body, `<option value="EUR" selected>Euro</option>`)
	assert.Contains(t, body, `<option value="USD" >US Dollar</option>`)

	// Textarea field.
	assert.Contains(t, body, `<textarea name="note"`)
}

func TestFormPageDefaultsTitleToPath(t *testing.T) {
	h := New(manualRules)
	rec := get(t, h, "/manual_calling/trigger-refund")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/trigger-refund")
	// Method defaults to GET when the rule does not set one.
	assert.Contains(t, rec.Body.String(), `data-method="GET"`)
}

func TestFormPageUnknownEndpoint(t *testing.T) {
	h := New(manualRules)
	rec := get(t, h, "/manual_calling/no-such-thing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNonGETRejected(t *testing.T) {
	rec := httptest.NewRecorder()
	New(manualRules).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/manual_calling", strings.NewReader("{}")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFieldValuesAreEscaped(t *testing.T) {
	h := New(func() []*config.Rule {
		return []*config.Rule{{
			Path:        "/evil",
			Type:        "manual_calling",
			Description: `<script>alert(1)</script>`,
		}}
	})
	rec := get(t, h, "/manual_calling/evil")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
}
