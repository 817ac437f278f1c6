package tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MadVikingGod/weaver/api"
	"github.com/MadVikingGod/weaver/internal/forge"
)

// testFixture bundles the shared state for integration tests: a template
// root on disk, an output root, and the schema documents to resolve.
type testFixture struct {
	templates string
	output    string
	schema    string
}

const testSchema = `
groups:
  - id: a
    attrs: [x, y]
  - id: b
    attrs: []
`

// setup creates temp template and output roots and writes the schema file.
func setup(t *testing.T, files map[string]string) *testFixture {
	t.Helper()

	f := &testFixture{
		templates: t.TempDir(),
		output:    t.TempDir(),
	}
	for rel, content := range files {
		p := filepath.Join(f.templates, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	f.schema = filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(f.schema, []byte(testSchema), 0o644))
	return f
}

func (f *testFixture) generate(t *testing.T, cfg api.Config) *api.Report {
	t.Helper()

	cfg.TemplateRoot = f.templates
	cfg.OutputRoot = f.output
	schema, err := forge.DocumentResolver{}.Resolve(context.Background(), []string{f.schema})
	require.NoError(t, err)
	report, err := forge.New(cfg).Generate(context.Background(), schema)
	require.NoError(t, err)
	return report
}

func (f *testFixture) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.output, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func TestGenerate_FanOutAndMirror(t *testing.T) {
	f := setup(t, map[string]string{
		"group.out.tmpl": "group {{ .item.id }} has {{ .item.attrs | len }} attrs\n",
		"summary.md.tmpl": "{{ range .ctx | query \".groups[].id\" }}- {{ . }}\n{{ end }}",
		"weaver.yaml": `templates:
  - template: "group.out.tmpl"
    mode: each
    selector: ".groups[] | select(.attrs | length > 0)"
    file_name: "{{ .item.id }}.out"
`,
	})

	report := f.generate(t, api.Config{})
	assert.False(t, report.HasFatal())
	assert.Empty(t, report.Diagnostics)
	require.Len(t, report.Units, 2)

	// Fan-out produced only the group with attributes.
	assert.Equal(t, "group a has 2 attrs\n", f.read(t, "a.out"))
	_, err := os.Stat(filepath.Join(f.output, "b.out"))
	assert.True(t, os.IsNotExist(err))

	// The plain template mirrors its path with the suffix stripped.
	assert.Equal(t, "- a\n- b\n", f.read(t, "summary.md"))
	assert.Equal(t, 2, report.Created())
}

func TestGenerate_SecondRunIsIdempotent(t *testing.T) {
	f := setup(t, map[string]string{
		"doc.txt.tmpl": "{{ .ctx | query1 \".groups[0].id\" }}\n",
	})

	first := f.generate(t, api.Config{})
	require.Equal(t, 1, first.Created())

	second := f.generate(t, api.Config{})
	assert.Equal(t, 0, second.Created())
	assert.Equal(t, 0, second.Overwritten())
	assert.Equal(t, 1, second.Skipped())
}

func TestGenerate_OverwriteOnChangedParams(t *testing.T) {
	f := setup(t, map[string]string{
		"v.txt.tmpl": "version {{ index .params \"version\" }}\n",
	})

	first := f.generate(t, api.Config{Params: map[string]string{"version": "1"}})
	require.Equal(t, 1, first.Created())

	second := f.generate(t, api.Config{Params: map[string]string{"version": "2"}})
	assert.Equal(t, 1, second.Overwritten())
	assert.Equal(t, "version 2\n", f.read(t, "v.txt"))
}

func TestGenerate_FailuresAreIsolated(t *testing.T) {
	f := setup(t, map[string]string{
		"bad.txt.tmpl":  `{{ .ctx | query ".groups | frobnicate(.)" }}`,
		"good.txt.tmpl": "fine\n",
	})

	report := f.generate(t, api.Config{})
	assert.True(t, report.HasFatal())

	// The failing template is reported; the independent one still lands.
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, api.SeverityError, report.Diagnostics[0].Severity)
	assert.Equal(t, "bad.txt.tmpl", report.Diagnostics[0].Template)
	assert.Equal(t, "fine\n", f.read(t, "good.txt"))

	_, err := os.Stat(filepath.Join(f.output, "bad.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerate_WriteFailureIsIsolated(t *testing.T) {
	f := setup(t, map[string]string{
		"blocked.txt.tmpl": "never lands\n",
		"good.txt.tmpl":    "fine\n",
	})
	// A directory squatting on the output path makes the final rename fail
	// for that unit only.
	require.NoError(t, os.MkdirAll(filepath.Join(f.output, "blocked.txt"), 0o755))

	report := f.generate(t, api.Config{})
	assert.True(t, report.HasFatal())

	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, api.SeverityError, report.Diagnostics[0].Severity)
	assert.Equal(t, "blocked.txt.tmpl", report.Diagnostics[0].Template)
	assert.Contains(t, report.Diagnostics[0].Error(), "blocked.txt")

	// The healthy unit still lands and is the only reported result.
	assert.Equal(t, "fine\n", f.read(t, "good.txt"))
	require.Len(t, report.Units, 1)
	assert.Equal(t, "good.txt", report.Units[0].Path)
	assert.Equal(t, api.ActionCreated, report.Units[0].Action)
}

func TestGenerate_DuplicatePathsBlockWrites(t *testing.T) {
	f := setup(t, map[string]string{
		"dup.tmpl": "{{ .item.id }}\n",
		"weaver.yaml": `templates:
  - template: "dup.tmpl"
    mode: each
    selector: ".groups[]"
    file_name: "always-same.out"
`,
	})

	report := f.generate(t, api.Config{})
	assert.True(t, report.HasFatal())
	assert.Empty(t, report.Units)

	_, err := os.Stat(filepath.Join(f.output, "always-same.out"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerate_DeterministicAcrossRuns(t *testing.T) {
	f := setup(t, map[string]string{
		"sorted.json.tmpl": `{{ to_json (.ctx | query1 ".groups[0]") }}`,
	})

	f.generate(t, api.Config{})
	first := f.read(t, "sorted.json")

	require.NoError(t, os.RemoveAll(f.output))
	require.NoError(t, os.MkdirAll(f.output, 0o755))
	f.generate(t, api.Config{})

	assert.Equal(t, first, f.read(t, "sorted.json"))
	assert.JSONEq(t, `{"id":"a","attrs":["x","y"]}`, first)
}

func TestGenerate_FormatsGoOutput(t *testing.T) {
	f := setup(t, map[string]string{
		"gen.go.tmpl": `package   demo
const Name   = "{{ .ctx | query1 ".groups[0].id" }}"
`,
	})

	report := f.generate(t, api.Config{})
	require.False(t, report.HasFatal())
	assert.Equal(t, "package demo\n\nconst Name = \"a\"\n", f.read(t, "gen.go"))
}
