package forge

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"mvdan.cc/gofumpt/format"

	"github.com/MadVikingGod/weaver/api"
)

// outputUnit is one rendered result awaiting materialization.
type outputUnit struct {
	desc       *TemplateDescriptor
	ordinal    int
	outPath    string
	content    []byte
	skipFormat bool
}

// Materializer writes rendered units under an output filesystem. Writes are
// idempotent (byte-identical content is skipped) and atomic (full content to
// a temp file, then rename). Failures are isolated per unit.
type Materializer struct {
	// FS is rooted at the output directory.
	FS billy.Filesystem
	// Diff, when set, renders a human-facing diff for overwrites.
	Diff api.DiffReporter
	// FormatGo runs gofumpt over .go outputs before comparing and writing.
	FormatGo bool
}

// Write materializes one unit. The returned diff is non-empty only for
// overwrites observed by a configured reporter.
func (m *Materializer) Write(u outputUnit) (api.Action, string, error) {
	content := u.content
	if m.FormatGo && !u.skipFormat && strings.HasSuffix(u.outPath, ".go") {
		// On formatter error the raw output is written unchanged.
		if formatted, err := format.Source(content, format.Options{}); err == nil {
			content = formatted
		}
	}

	old, readErr := util.ReadFile(m.FS, u.outPath)
	exists := readErr == nil
	if exists && bytes.Equal(old, content) {
		return api.ActionSkipped, "", nil
	}

	if dir := path.Dir(u.outPath); dir != "." {
		if err := m.FS.MkdirAll(dir, 0o755); err != nil {
			return 0, "", fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err := m.writeAtomic(u.outPath, content); err != nil {
		return 0, "", err
	}

	if exists {
		var diff string
		if m.Diff != nil {
			diff = m.Diff.Report(u.outPath, old, content)
		}
		return api.ActionOverwritten, diff, nil
	}
	return api.ActionCreated, "", nil
}

// writeAtomic writes content to a temp file in the target directory and
// renames it into place, so a failed run never leaves a half-written file.
func (m *Materializer) writeAtomic(outPath string, content []byte) error {
	dir := path.Dir(outPath)
	if dir == "." {
		dir = ""
	}
	tmp, err := m.FS.TempFile(dir, ".weaver-")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", outPath, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = m.FS.Remove(tmpName)
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = m.FS.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", outPath, err)
	}
	if err := m.FS.Rename(tmpName, outPath); err != nil {
		_ = m.FS.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", outPath, err)
	}
	return nil
}
