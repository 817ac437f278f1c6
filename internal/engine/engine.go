// Package engine adapts text/template for generation: it builds the function
// map that exposes query expressions, case conversion, markdown conversion
// and string helpers inside templates, and classifies template failures.
//
// Whitespace control is text/template's native trim syntax: `{{-` and `-}}`
// swallow adjacent whitespace per construct.
package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/MadVikingGod/weaver/api"
	"github.com/MadVikingGod/weaver/internal/query"
)

// ErrorKind classifies a render failure.
type ErrorKind int

const (
	// SyntaxError means the template source did not parse. Detected at load
	// time, before any data is supplied.
	SyntaxError ErrorKind = iota
	// FilterError means a query expression inside the template failed; Err
	// unwraps to the query.EvalError.
	FilterError
	// ExecError covers all other runtime failures. text/template does not
	// distinguish undefined variables or failing sub-templates in its error
	// values, so those classify here rather than as separate kinds.
	ExecError
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxError:
		return "syntax error"
	case FilterError:
		return "filter error"
	case ExecError:
		return "exec error"
	default:
		return "unknown"
	}
}

// RenderError is a classified template failure with source position when
// text/template reports one.
type RenderError struct {
	Kind     ErrorKind
	Template string
	Line     int
	Err      error
}

func (e *RenderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s in %s:%d: %v", e.Kind, e.Template, e.Line, e.Err)
	}
	return fmt.Sprintf("%s in %s: %v", e.Kind, e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Options configures an Engine.
type Options struct {
	// TargetFormat selects the markdown conversion target.
	TargetFormat api.TargetFormat
	// CommentPrefix is the per-line prefix for comment-formatted markdown
	// and the comment template function, e.g. "// " or "# ".
	CommentPrefix string
}

// Engine renders templates with the generation function map. It is immutable
// after New and safe for concurrent use; parsed queries are cached across
// renders.
type Engine struct {
	opts    Options
	funcs   template.FuncMap
	queries sync.Map // expression string -> *query.Query
}

// New builds an engine. Zero options mean plain-text markdown and "// "
// comment prefixes.
func New(opts Options) *Engine {
	if opts.TargetFormat == "" {
		opts.TargetFormat = api.FormatText
	}
	if opts.CommentPrefix == "" {
		opts.CommentPrefix = "// "
	}
	e := &Engine{opts: opts}
	e.funcs = e.buildFuncs()
	return e
}

// Template is a loaded, reusable template. Loading catches syntax errors;
// Execute catches the rest.
type Template struct {
	name string
	tmpl *template.Template
}

// Load parses template source. name is the template's path relative to the
// template root; it appears in error messages.
func (e *Engine) Load(name, source string) (*Template, error) {
	t, err := template.New(name).Funcs(e.funcs).Parse(source)
	if err != nil {
		return nil, &RenderError{Kind: SyntaxError, Template: name, Line: errorLine(err), Err: err}
	}
	return &Template{name: name, tmpl: t}, nil
}

// Execute renders the template with the given context. The context is a
// plain name→value map; it is never shared between concurrent renders.
func (t *Template) Execute(data map[string]any) (string, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		kind := ExecError
		line := errorLine(err)
		var ee *query.EvalError
		if errors.As(err, &ee) {
			kind = FilterError
			err = ee
		}
		return "", &RenderError{Kind: kind, Template: t.name, Line: line, Err: err}
	}
	return b.String(), nil
}

// Render is the one-shot load-and-execute path, used for output-path
// templates.
func (e *Engine) Render(name, source string, data map[string]any) (string, error) {
	t, err := e.Load(name, source)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}

// compileQuery parses an expression, caching the result. Templates tend to
// reuse the same handful of expressions across many fan-out items.
func (e *Engine) compileQuery(expr string) (*query.Query, error) {
	if q, ok := e.queries.Load(expr); ok {
		return q.(*query.Query), nil
	}
	q, err := query.Parse(expr)
	if err != nil {
		return nil, err
	}
	e.queries.Store(expr, q)
	return q, nil
}

// errorLine extracts the line number from a text/template error message of
// the form `template: name:LINE: ...` or `template: name:LINE:COL: ...`.
func errorLine(err error) int {
	msg := err.Error()
	const prefix = "template: "
	idx := strings.Index(msg, prefix)
	if idx < 0 {
		return 0
	}
	rest := msg[idx+len(prefix):]
	// name may contain colons only if the author put them in the path; take
	// the first all-digit segment after the name.
	parts := strings.Split(rest, ":")
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if n, convErr := strconv.Atoi(p); convErr == nil {
			return n
		}
	}
	return 0
}
