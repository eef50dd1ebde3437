// Package template implements the {{expr}} placeholder language used in
// rule responses and webhook definitions.
//
// Supported expression forms:
//
//	random_int(min, max)       inclusive random integer
//	uuid                       random v4 UUID, hyphenated lowercase
//	uuid_hex                   random v4 UUID, 32 hex chars, no hyphens
//	random_choice(a, 'b', c)   uniform pick, trimmed, one quote layer stripped
//	a.b.c                      dot-path lookup into the request context
//	a.b|c.d                    fallback: right side used when the left is
//	                           absent or falsy, chains right-associatively
//
// Every placeholder stringifies into its surrounding text; a string that is
// exactly one placeholder still renders to a string.
package template

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	mathrand "math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Engine renders template strings and trees against a per-request context.
// It is stateless and safe for concurrent use.
type Engine struct{}

// New creates a template engine.
func New() *Engine {
	return &Engine{}
}

// Render substitutes every {{expr}} placeholder in s. Text outside
// placeholders is passed through untouched. Unterminated placeholders are
// left as-is.
func (e *Engine) Render(s string, ctx map[string]any) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	var b strings.Builder
	for {
		open := strings.Index(s, "{{")
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[open+2:], "}}")
		if end < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:open])
		expr := strings.TrimSpace(s[open+2 : open+2+end])
		b.WriteString(e.evaluate(expr, ctx))
		s = s[open+2+end+2:]
	}
	return b.String()
}

// RenderTree recursively rewrites a template tree: strings are rendered,
// maps and slices are rebuilt with rendered values, all other scalars pass
// through unchanged. The input tree is never mutated; a fresh structure is
// returned so rules stay reusable across concurrent requests.
func (e *Engine) RenderTree(data any, ctx map[string]any) any {
	switch v := data.(type) {
	case string:
		return e.Render(v, ctx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = e.RenderTree(val, ctx)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = e.RenderTree(val, ctx)
		}
		return out
	default:
		return data
	}
}

// evaluate resolves a single placeholder expression to its textual value.
// Unknown or unresolvable expressions degrade to the empty string; template
// evaluation never fails a request.
func (e *Engine) evaluate(expr string, ctx map[string]any) string {
	switch expr {
	case "uuid":
		return uuid.New().String()
	case "uuid_hex":
		u := uuid.New()
		return hex.EncodeToString(u[:])
	}

	if strings.HasPrefix(expr, "random_int") {
		return evalRandomInt(expr)
	}
	if strings.HasPrefix(expr, "random_choice") {
		return evalRandomChoice(expr)
	}

	v, _ := e.resolveExpr(expr, ctx)
	return Stringify(v)
}

// evalRandomInt renders random_int(min, max). The bounds are the first two
// integers appearing in the expression text; a directly attached minus sign
// is part of the number.
func evalRandomInt(expr string) string {
	bounds := scanInts(expr, 2)
	if len(bounds) < 2 {
		return ""
	}
	lo, hi := bounds[0], bounds[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return strconv.FormatInt(lo+mathrand.Int64N(hi-lo+1), 10)
}

// scanInts extracts up to max signed integers from s, left to right.
func scanInts(s string, max int) []int64 {
	var out []int64
	i := 0
	for i < len(s) && len(out) < max {
		if s[i] < '0' || s[i] > '9' {
			i++
			continue
		}
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		text := s[start:i]
		if start > 0 && s[start-1] == '-' {
			text = "-" + text
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// evalRandomChoice renders random_choice(a, b, ...): the argument list sits
// between the first '(' and the last ')'; each choice is trimmed and loses
// one layer of matching surrounding quotes.
func evalRandomChoice(expr string) string {
	open := strings.Index(expr, "(")
	end := strings.LastIndex(expr, ")")
	if open < 0 || end < open {
		return ""
	}
	choices := splitArgs(expr[open+1 : end])
	if len(choices) == 0 {
		return ""
	}
	return unquote(strings.TrimSpace(choices[mathrand.IntN(len(choices))]))
}

// splitArgs splits a comma-separated argument list, keeping commas inside
// quoted strings intact.
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote:
			current.WriteByte(ch)
			if ch == quoteChar {
				inQuote = false
			}
		case ch == '"' || ch == '\'':
			inQuote = true
			quoteChar = ch
			current.WriteByte(ch)
		case ch == ',':
			args = append(args, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// unquote strips a single layer of matching surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// resolveExpr evaluates a path expression with optional | fallback. The
// left operand is always tried first; the fallback chain is evaluated
// right-associatively.
func (e *Engine) resolveExpr(expr string, ctx map[string]any) (any, bool) {
	if i := strings.Index(expr, "|"); i >= 0 {
		primary := strings.TrimSpace(expr[:i])
		fallback := strings.TrimSpace(expr[i+1:])
		if v, ok := lookupPath(primary, ctx); ok && Truthy(v) {
			return v, true
		}
		return e.resolveExpr(fallback, ctx)
	}
	return lookupPath(strings.TrimSpace(expr), ctx)
}

// lookupPath walks the context tree by successive key lookup. Resolution
// stops and yields no value as soon as any segment is absent.
func lookupPath(path string, ctx map[string]any) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = ctx
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			val, ok := node[part]
			if !ok || val == nil {
				return nil, false
			}
			current = val
		case map[string]string:
			val, ok := node[part]
			if !ok {
				return nil, false
			}
			current = val
		default:
			return nil, false
		}
	}
	return current, true
}

// Truthy reports whether a resolved value counts as present for fallback
// purposes: absent, empty string, zero, false, and empty collections are
// all falsy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	default:
		return true
	}
}

// Stringify converts a resolved value to its canonical text form.
// Collections render as compact JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", x)
	}
}
