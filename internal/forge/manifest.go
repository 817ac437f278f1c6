package forge

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ManifestName is the reserved file at the template root declaring fan-out
// directives. It is never treated as a template itself.
const ManifestName = "weaver.yaml"

// ManifestEntry declares how templates matching a glob map to outputs.
type ManifestEntry struct {
	// Template is a doublestar glob matched against template-root-relative
	// paths.
	Template string `yaml:"template"`
	// Mode is "single" (default) or "each".
	Mode string `yaml:"mode"`
	// Selector is the fan-out query, required for mode each.
	Selector string `yaml:"selector"`
	// FileName is the output-path template, required for mode each.
	FileName string `yaml:"file_name"`
	// SkipFormat disables the Go formatting pass for matching templates.
	SkipFormat bool `yaml:"skip_format"`
}

// Manifest is the parsed weaver.yaml.
type Manifest struct {
	Templates []ManifestEntry `yaml:"templates"`
}

// LoadManifest reads the manifest at path. A missing manifest is not an
// error; every template then renders in single mode.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	for i, e := range m.Templates {
		switch e.Mode {
		case "", "single":
			// file_name may still override the mirrored path later; not
			// supported today, so reject it to avoid silent surprises.
			if e.Selector != "" || e.FileName != "" {
				return nil, fmt.Errorf("manifest entry %d (%s): selector/file_name require mode: each", i, e.Template)
			}
		case "each":
			if e.Selector == "" || e.FileName == "" {
				return nil, fmt.Errorf("manifest entry %d (%s): mode each requires selector and file_name", i, e.Template)
			}
		default:
			return nil, fmt.Errorf("manifest entry %d (%s): unknown mode %q", i, e.Template, e.Mode)
		}
		if _, err := doublestar.Match(e.Template, "probe"); err != nil {
			return nil, fmt.Errorf("manifest entry %d: bad glob %q: %w", i, e.Template, err)
		}
	}
	return &m, nil
}

// Match returns the first entry whose glob matches rel, or nil.
func (m *Manifest) Match(rel string) *ManifestEntry {
	for i := range m.Templates {
		if ok, _ := doublestar.Match(m.Templates[i].Template, rel); ok {
			return &m.Templates[i]
		}
	}
	return nil
}
