// Package api holds the public surface of the weaver generation engine:
// the configuration consumed by a run, the report returned by one, and the
// interfaces of external collaborators (schema resolver, diff reporter).
package api

// TargetFormat selects how markdown embedded in the schema is converted
// when templates call the markdown function.
type TargetFormat string

const (
	// FormatText renders markdown as plain text.
	FormatText TargetFormat = "text"
	// FormatHTML renders markdown as HTML.
	FormatHTML TargetFormat = "html"
	// FormatComment renders markdown as plain text with every line prefixed
	// by Config.CommentPrefix, so it can be embedded in generated source.
	FormatComment TargetFormat = "comment"
)

// Config describes one generation run.
type Config struct {
	// TemplateRoot is the directory holding the authored templates and the
	// weaver.yaml manifest.
	TemplateRoot string
	// OutputRoot is the directory the generated tree is written under.
	OutputRoot string
	// IncludePatterns are doublestar globs, relative to TemplateRoot. A file
	// must match at least one. Empty means "**/*".
	IncludePatterns []string
	// ExcludePatterns are doublestar globs; a match excludes the file even if
	// it is included. Exclusion wins.
	ExcludePatterns []string
	// Params are caller-supplied global parameters, bound in every render
	// context under "params" and at the top level.
	Params map[string]string
	// TargetFormat configures the markdown template function.
	TargetFormat TargetFormat
	// CommentPrefix is the line prefix used by FormatComment, e.g. "// ".
	CommentPrefix string
	// Workers bounds the render/write worker pool. Zero means NumCPU.
	Workers int
}
