package forge

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover walks the template root and returns one descriptor per matching
// file, in lexicographic order of relative path. A file matches when it
// satisfies at least one include glob and no exclude glob; exclusion wins.
// The manifest file and dotfiles never match.
func Discover(templateRoot string, include, exclude []string) ([]TemplateDescriptor, error) {
	manifest, err := LoadManifest(filepath.Join(templateRoot, ManifestName))
	if err != nil {
		return nil, err
	}
	if len(include) == 0 {
		include = []string{"**"}
	}
	for _, pat := range append(append([]string{}, include...), exclude...) {
		if _, err := doublestar.Match(pat, "probe"); err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pat, err)
		}
	}

	var descs []TemplateDescriptor
	err = filepath.WalkDir(templateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != templateRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || name == ManifestName {
			return nil
		}
		rel, err := filepath.Rel(templateRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matches(rel, include) || matches(rel, exclude) {
			return nil
		}
		descs = append(descs, describe(rel, manifest))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk template root %s: %w", templateRoot, err)
	}

	// Lexicographic order keeps repeated runs, and therefore reports and
	// conflict detection, deterministic.
	sort.Slice(descs, func(i, j int) bool { return descs[i].RelPath < descs[j].RelPath })
	return descs, nil
}

func matches(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func describe(rel string, manifest *Manifest) TemplateDescriptor {
	d := TemplateDescriptor{RelPath: rel}
	if e := manifest.Match(rel); e != nil {
		d.SkipFormat = e.SkipFormat
		if e.Mode == "each" {
			d.Mode = ModeEach
			d.Selector = e.Selector
			d.FileName = e.FileName
		}
	}
	return d
}
