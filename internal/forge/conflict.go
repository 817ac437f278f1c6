package forge

import (
	"fmt"
	"sort"
)

// origin identifies where an output unit came from.
type origin struct {
	Template string
	Ordinal  int
}

func (o origin) String() string {
	if o.Ordinal < 0 {
		return o.Template
	}
	return fmt.Sprintf("%s (item %d)", o.Template, o.Ordinal)
}

// PathConflictError reports two rendered units targeting the same output
// path, whether from two items of one fan-out or from two different
// templates. Nothing is written for a conflicting path.
type PathConflictError struct {
	Path          string
	First, Second origin
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("output path %q produced by both %s and %s", e.Path, e.First, e.Second)
}

// detectConflicts partitions units into writable ones and conflict errors.
// It runs as a barrier after all rendering and before any write, so two
// workers can never both write conflicting content. Units arrive sorted, so
// "first" and "second" are stable across runs.
func detectConflicts(units []outputUnit) (writable []outputUnit, conflicts []*PathConflictError) {
	byPath := make(map[string][]int, len(units))
	for i, u := range units {
		byPath[u.outPath] = append(byPath[u.outPath], i)
	}
	bad := make(map[string]bool)
	for p, idx := range byPath {
		if len(idx) > 1 {
			bad[p] = true
		}
	}
	for _, u := range units {
		if !bad[u.outPath] {
			writable = append(writable, u)
		}
	}
	paths := make([]string, 0, len(bad))
	for p := range bad {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		idx := byPath[p]
		first := units[idx[0]]
		for _, j := range idx[1:] {
			u := units[j]
			conflicts = append(conflicts, &PathConflictError{
				Path:   p,
				First:  origin{Template: first.desc.RelPath, Ordinal: first.ordinal},
				Second: origin{Template: u.desc.RelPath, Ordinal: u.ordinal},
			})
		}
	}
	return writable, conflicts
}
