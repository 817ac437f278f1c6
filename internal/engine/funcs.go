package engine

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/MadVikingGod/weaver/api"
)

// buildFuncs assembles the template function map. Everything here is pure:
// the same arguments always produce the same text.
func (e *Engine) buildFuncs() template.FuncMap {
	return template.FuncMap{
		// Query evaluation. Pipe-friendly: the piped value arrives as the
		// final argument, so `{{ .ctx | query ".groups[]" }}` reads the way
		// the expression runs.
		"query":  e.runQuery,
		"query1": e.runQueryOne,

		// Identifier case conversion.
		"snake":     strcase.ToSnake,
		"camel":     strcase.ToLowerCamel,
		"pascal":    strcase.ToCamel,
		"kebab":     strcase.ToKebab,
		"screaming": strcase.ToScreamingSnake,

		// Markdown conversion per the configured target format.
		"markdown": func(s string) (string, error) {
			return renderMarkdown(s, e.opts.TargetFormat, e.opts.CommentPrefix)
		},
		// comment prefixes every line, for embedding prose in generated
		// source regardless of the configured markdown target.
		"comment": func(s string) string {
			return prefixLines(s, e.opts.CommentPrefix)
		},

		// Serialization.
		"to_json": func(v any) string {
			return oj.JSON(v, &oj.Options{Sort: true})
		},
		"to_yaml": func(v any) (string, error) {
			b, err := yaml.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("to_yaml: %w", err)
			}
			return strings.TrimRight(string(b), "\n"), nil
		},

		// String helpers.
		"trim":  strings.TrimSpace,
		"quote": strconv.Quote,
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"indent": func(n int, s string) string {
			return prefixLines(s, strings.Repeat(" ", n))
		},

		// last reports whether index i is the final element of coll, for
		// comma placement inside range blocks over slices.
		"last": func(i int, coll any) (bool, error) {
			c, ok := coll.([]any)
			if !ok {
				return false, fmt.Errorf("last: cannot measure %T", coll)
			}
			return i == len(c)-1, nil
		},
	}
}

// runQuery evaluates expr against v and returns all results. Template data
// crosses the boundary as plain Go maps, which carry no key order; map
// results and the keys builtin therefore come back in sorted key order here,
// while the same expression used as a fan-out selector sees document order.
func (e *Engine) runQuery(expr string, v any) ([]any, error) {
	q, err := e.compileQuery(expr)
	if err != nil {
		return nil, err
	}
	results, err := q.All(api.FromAny(v), nil)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = r.AsAny()
	}
	return out, nil
}

// runQueryOne evaluates expr and requires exactly one result.
func (e *Engine) runQueryOne(expr string, v any) (any, error) {
	q, err := e.compileQuery(expr)
	if err != nil {
		return nil, err
	}
	results, err := q.All(api.FromAny(v), nil)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("query1 %q: expected exactly one result, got %d", expr, len(results))
	}
	return results[0].AsAny(), nil
}

// prefixLines prefixes every line of s, leaving trailing newlines alone.
func prefixLines(s, prefix string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" && i == len(lines)-1 {
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
