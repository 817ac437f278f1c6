package forge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(tmpl string, ordinal int, outPath string) outputUnit {
	return outputUnit{
		desc:    &TemplateDescriptor{RelPath: tmpl},
		ordinal: ordinal,
		outPath: outPath,
		content: []byte("x"),
	}
}

func TestDetectConflicts_None(t *testing.T) {
	units := []outputUnit{unit("a.tmpl", 0, "a.out"), unit("a.tmpl", 1, "b.out")}
	writable, conflicts := detectConflicts(units)
	assert.Len(t, writable, 2)
	assert.Empty(t, conflicts)
}

func TestDetectConflicts_WithinOneTemplate(t *testing.T) {
	units := []outputUnit{
		unit("a.tmpl", 0, "same.out"),
		unit("a.tmpl", 1, "other.out"),
		unit("a.tmpl", 2, "same.out"),
	}
	writable, conflicts := detectConflicts(units)

	// Neither conflicting unit is writable; the clean one is.
	require.Len(t, writable, 1)
	assert.Equal(t, "other.out", writable[0].outPath)

	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, "same.out", c.Path)
	assert.Equal(t, 0, c.First.Ordinal)
	assert.Equal(t, 2, c.Second.Ordinal)
	assert.Contains(t, c.Error(), "item 0")
	assert.Contains(t, c.Error(), "item 2")
}

func TestDetectConflicts_AcrossTemplates(t *testing.T) {
	units := []outputUnit{
		unit("a.tmpl", -1, "shared.out"),
		unit("b.tmpl", -1, "shared.out"),
	}
	writable, conflicts := detectConflicts(units)
	assert.Empty(t, writable)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "a.tmpl", conflicts[0].First.Template)
	assert.Equal(t, "b.tmpl", conflicts[0].Second.Template)
}
