package api

// Action records what materialization did for one output unit.
type Action int

const (
	// ActionSkipped means the target already held identical bytes; nothing
	// was written.
	ActionSkipped Action = iota
	// ActionCreated means the file did not exist and was written.
	ActionCreated
	// ActionOverwritten means the file existed with different bytes and was
	// replaced.
	ActionOverwritten
)

func (a Action) String() string {
	switch a {
	case ActionSkipped:
		return "skipped"
	case ActionCreated:
		return "created"
	case ActionOverwritten:
		return "overwritten"
	default:
		return "unknown"
	}
}

// UnitResult is the outcome for one rendered output file.
type UnitResult struct {
	// Path is the output path relative to OutputRoot, slash-separated.
	Path string
	// Template is the originating template path relative to TemplateRoot.
	Template string
	// Ordinal is the fan-out item index, or -1 for single-mode templates.
	Ordinal int
	// Action is what materialization did.
	Action Action
	// Diff is a human-facing diff of an overwrite, populated only when a
	// DiffReporter is configured.
	Diff string
}

// Severity classifies a diagnostic.
type Severity int

const (
	// SeverityWarning does not fail the run (e.g. a shadowed binding).
	SeverityWarning Severity = iota
	// SeverityError fails the run.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one problem encountered during a run, carrying enough
// context to point the author at the failing template construct.
type Diagnostic struct {
	Severity Severity
	// Template is the template path relative to TemplateRoot, or "" for
	// run-level problems.
	Template string
	// Ordinal is the fan-out item index the problem occurred on, or -1.
	Ordinal int
	// Err is the underlying cause chain.
	Err error
}

func (d Diagnostic) Error() string {
	if d.Err == nil {
		return d.Severity.String()
	}
	return d.Err.Error()
}

func (d Diagnostic) Unwrap() error { return d.Err }

// Report is the complete outcome of a generation run. It is built up during
// the run and returned whole; partial reports are never exposed.
type Report struct {
	// Units are the per-output outcomes, sorted by (Template, Ordinal, Path).
	Units []UnitResult
	// Diagnostics are all problems, sorted by (Template, Ordinal).
	Diagnostics []Diagnostic
}

// Created returns the number of files newly written.
func (r *Report) Created() int { return r.count(ActionCreated) }

// Overwritten returns the number of files replaced.
func (r *Report) Overwritten() int { return r.count(ActionOverwritten) }

// Skipped returns the number of idempotent no-ops.
func (r *Report) Skipped() int { return r.count(ActionSkipped) }

func (r *Report) count(a Action) int {
	n := 0
	for _, u := range r.Units {
		if u.Action == a {
			n++
		}
	}
	return n
}

// HasFatal reports whether the run failed overall. Warnings alone do not
// fail a run; skipped units never do.
func (r *Report) HasFatal() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}
