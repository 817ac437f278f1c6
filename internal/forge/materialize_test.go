package forge

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MadVikingGod/weaver/api"
)

func contentUnit(outPath, content string) outputUnit {
	return outputUnit{
		desc:    &TemplateDescriptor{RelPath: outPath + ".tmpl"},
		ordinal: -1,
		outPath: outPath,
		content: []byte(content),
	}
}

func TestWrite_CreatesWithParents(t *testing.T) {
	fs := memfs.New()
	m := &Materializer{FS: fs}

	action, diff, err := m.Write(contentUnit("deep/nested/file.txt", "hello\n"))
	require.NoError(t, err)
	assert.Equal(t, api.ActionCreated, action)
	assert.Empty(t, diff)

	got, err := util.ReadFile(fs, "deep/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestWrite_IdenticalContentIsSkipped(t *testing.T) {
	fs := memfs.New()
	m := &Materializer{FS: fs}

	u := contentUnit("file.txt", "same\n")
	_, _, err := m.Write(u)
	require.NoError(t, err)

	action, _, err := m.Write(u)
	require.NoError(t, err)
	assert.Equal(t, api.ActionSkipped, action)
}

func TestWrite_OverwriteReportsDiff(t *testing.T) {
	fs := memfs.New()
	m := &Materializer{FS: fs, Diff: UnifiedDiff{}}

	_, _, err := m.Write(contentUnit("file.txt", "old line\n"))
	require.NoError(t, err)

	action, diff, err := m.Write(contentUnit("file.txt", "new line\n"))
	require.NoError(t, err)
	assert.Equal(t, api.ActionOverwritten, action)
	assert.Contains(t, diff, "-old line")
	assert.Contains(t, diff, "+new line")
}

func TestWrite_FormatsGoOutput(t *testing.T) {
	fs := memfs.New()
	m := &Materializer{FS: fs, FormatGo: true}

	_, _, err := m.Write(contentUnit("pkg.go", "package   demo\nvar    X   =   1\n"))
	require.NoError(t, err)

	got, err := util.ReadFile(fs, "pkg.go")
	require.NoError(t, err)
	assert.Equal(t, "package demo\n\nvar X = 1\n", string(got))
}

func TestWrite_SkipFormatLeavesOutputAlone(t *testing.T) {
	fs := memfs.New()
	m := &Materializer{FS: fs, FormatGo: true}

	u := contentUnit("pkg.go", "package   demo\n")
	u.skipFormat = true
	_, _, err := m.Write(u)
	require.NoError(t, err)

	got, err := util.ReadFile(fs, "pkg.go")
	require.NoError(t, err)
	assert.Equal(t, "package   demo\n", string(got))
}

func TestWrite_InvalidGoStillWritten(t *testing.T) {
	fs := memfs.New()
	m := &Materializer{FS: fs, FormatGo: true}

	broken := "package demo\nfunc oops( {\n"
	_, _, err := m.Write(contentUnit("broken.go", broken))
	require.NoError(t, err)

	got, err := util.ReadFile(fs, "broken.go")
	require.NoError(t, err)
	assert.Equal(t, broken, string(got))
}
