package forge

import (
	"fmt"
	"path"
	"strings"

	"github.com/MadVikingGod/weaver/api"
	"github.com/MadVikingGod/weaver/internal/engine"
	"github.com/MadVikingGod/weaver/internal/query"
)

// Reserved render-context binding names.
const (
	bindSchema = "ctx"
	bindParams = "params"
	bindItem   = "item"
	bindIndex  = "index"
)

// renderJob is one pending body render: a context plus the output path it
// lands at. Ordinal is -1 for single-mode templates.
type renderJob struct {
	desc    *TemplateDescriptor
	ordinal int
	data    map[string]any
	outPath string
}

// shadowWarning reports a global parameter hidden by a reserved fan-out
// binding, per the documented shadowing contract.
type shadowWarning struct {
	name string
}

func (w *shadowWarning) Error() string {
	return fmt.Sprintf("global parameter %q is shadowed by the fan-out binding of the same name", w.name)
}

// buildContext assembles a fresh render context. The full schema is bound
// under "ctx", globals under "params" and at the top level; fan-out adds
// "item" and "index", shadowing any global of the same name.
func buildContext(schema api.Value, params map[string]string) map[string]any {
	p := make(map[string]any, len(params))
	data := map[string]any{
		bindSchema: schema.AsAny(),
	}
	for k, v := range params {
		p[k] = v
		// ctx and params always belong to the engine; expand reports the
		// shadowing as a warning.
		if k != bindSchema && k != bindParams {
			data[k] = v
		}
	}
	data[bindParams] = p
	return data
}

// expand turns one descriptor into its render jobs. A selector or
// path-template failure fails only this descriptor; the caller records it
// and the other templates carry on.
func expand(eng *engine.Engine, desc *TemplateDescriptor, schema api.Value, params map[string]string) (jobs []renderJob, warnings []error, failure error) {
	for _, reserved := range []string{bindSchema, bindParams} {
		if _, ok := params[reserved]; ok {
			warnings = append(warnings, &shadowWarning{name: reserved})
		}
	}

	if desc.Mode == ModeSingle {
		return []renderJob{{
			desc:    desc,
			ordinal: -1,
			data:    buildContext(schema, params),
			outPath: desc.MirroredPath(),
		}}, warnings, nil
	}

	q, err := query.Parse(desc.Selector)
	if err != nil {
		return nil, nil, fmt.Errorf("selector: %w", err)
	}
	items, err := q.All(schema, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("selector: %w", err)
	}

	for _, reserved := range []string{bindItem, bindIndex} {
		if _, ok := params[reserved]; ok && len(items) > 0 {
			warnings = append(warnings, &shadowWarning{name: reserved})
		}
	}

	for i, item := range items {
		data := buildContext(schema, params)
		data[bindItem] = item.AsAny()
		data[bindIndex] = i

		rendered, err := eng.Render(desc.RelPath+"#file_name", desc.FileName, data)
		if err != nil {
			return nil, warnings, fmt.Errorf("output path for item %d: %w", i, err)
		}
		outPath, err := normalizeOutputPath(rendered)
		if err != nil {
			return nil, warnings, fmt.Errorf("output path for item %d: %w", i, err)
		}
		jobs = append(jobs, renderJob{desc: desc, ordinal: i, data: data, outPath: outPath})
	}
	return jobs, warnings, nil
}

// normalizeOutputPath cleans a computed path and rejects anything that would
// land outside the output root.
func normalizeOutputPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty output path")
	}
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("output path %q escapes the output root", p)
	}
	return cleaned, nil
}
