package forge

import (
	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders overwrite diffs in unified format. It satisfies
// api.DiffReporter.
type UnifiedDiff struct {
	// Context is the number of context lines; zero means 3.
	Context int
}

func (d UnifiedDiff) Report(path string, oldContent, newContent []byte) string {
	ctxLines := d.Context
	if ctxLines == 0 {
		ctxLines = 3
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldContent)),
		B:        difflib.SplitLines(string(newContent)),
		FromFile: path,
		ToFile:   path,
		FromDate: "previous",
		ToDate:   "generated",
		Context:  ctxLines,
	})
	if err != nil {
		return ""
	}
	return text
}
