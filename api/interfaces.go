package api

import "context"

// Resolver turns raw schema sources into the resolved schema value the
// engine consumes. Resolution and validation are outside the engine; this
// interface is how the result arrives.
type Resolver interface {
	// Resolve loads and resolves the given sources into a single schema
	// value. The returned value must not be mutated afterwards.
	Resolve(ctx context.Context, sources []string) (Value, error)
}

// DiffReporter renders a human-facing diff when materialization overwrites an
// existing file. It is advisory only; generation is correct without it.
type DiffReporter interface {
	Report(path string, oldContent, newContent []byte) string
}
