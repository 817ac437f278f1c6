// Package forge is the generation pipeline: it discovers templates under a
// template root, expands fan-out templates into per-item render jobs, renders
// them through the template engine, and materializes the results under the
// output root idempotently.
package forge

import "strings"

// Mode says how a template maps to outputs.
type Mode int

const (
	// ModeSingle renders the template once; the output path mirrors the
	// template's own relative path with the template suffix stripped.
	ModeSingle Mode = iota
	// ModeEach renders the template once per item selected by the fan-out
	// query; each item's output path comes from the path template.
	ModeEach
)

func (m Mode) String() string {
	if m == ModeEach {
		return "each"
	}
	return "single"
}

// templateSuffix is stripped when mirroring a single-mode template path into
// the output tree.
const templateSuffix = ".tmpl"

// TemplateDescriptor identifies one discovered template file. Immutable once
// built; handed by reference through the pipeline.
type TemplateDescriptor struct {
	// RelPath is the template's path relative to the template root,
	// slash-separated.
	RelPath string
	// Mode is the render-once / fan-out variant tag.
	Mode Mode
	// Selector is the fan-out query, set only for ModeEach.
	Selector string
	// FileName is the output-path template evaluated per item, set only for
	// ModeEach.
	FileName string
	// SkipFormat disables the Go formatting pass for this template's
	// outputs.
	SkipFormat bool
}

// MirroredPath is the single-mode output path: the template's own relative
// path with the template suffix stripped.
func (d *TemplateDescriptor) MirroredPath() string {
	return strings.TrimSuffix(d.RelPath, templateSuffix)
}
