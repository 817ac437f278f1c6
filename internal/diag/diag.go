// Package diag collects and renders generation diagnostics. Each failing
// template invocation contributes one diagnostic; the run keeps going so a
// single invocation surfaces every real problem at once.
package diag

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"

	"github.com/MadVikingGod/weaver/api"
)

// Collector accumulates diagnostics from concurrent workers.
type Collector struct {
	mu    sync.Mutex
	diags []api.Diagnostic
}

// Error records a run-failing diagnostic. ordinal is the fan-out item index,
// or -1 when the problem is not tied to an item.
func (c *Collector) Error(template string, ordinal int, err error) {
	c.add(api.Diagnostic{Severity: api.SeverityError, Template: template, Ordinal: ordinal, Err: err})
}

// Warn records a non-fatal diagnostic.
func (c *Collector) Warn(template string, ordinal int, err error) {
	c.add(api.Diagnostic{Severity: api.SeverityWarning, Template: template, Ordinal: ordinal, Err: err})
}

func (c *Collector) add(d api.Diagnostic) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()
}

// Drain returns all diagnostics sorted by (template, ordinal, message),
// independent of the completion order of the workers that reported them.
func (c *Collector) Drain() []api.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Diagnostic, len(c.diags))
	copy(out, c.diags)
	Sort(out)
	return out
}

// HasFatal reports whether any collected diagnostic fails the run.
func (c *Collector) HasFatal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.diags {
		if d.Severity >= api.SeverityError {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by (template, ordinal, message).
func Sort(diags []api.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Template != b.Template {
			return a.Template < b.Template
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.Error() < b.Error()
	})
}

// Render writes a human-readable report. Colors are applied only when
// colored is true (the CLI passes the TTY check result).
func Render(w io.Writer, diags []api.Diagnostic, colored bool) {
	warnTag := color.New(color.FgYellow, color.Bold).SprintFunc()
	errTag := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	if !colored {
		plain := fmt.Sprint
		warnTag, errTag, dim = plain, plain, plain
	}

	for _, d := range diags {
		tag := errTag("error")
		if d.Severity == api.SeverityWarning {
			tag = warnTag("warning")
		}
		loc := d.Template
		if loc == "" {
			loc = "<run>"
		}
		if d.Ordinal >= 0 {
			loc = fmt.Sprintf("%s%s", loc, dim(fmt.Sprintf(" (item %d)", d.Ordinal)))
		}
		fmt.Fprintf(w, "%s: %s: %v\n", tag, loc, d.Err)
	}
}
