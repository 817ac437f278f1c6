package forge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/errgroup"

	"github.com/MadVikingGod/weaver/api"
	"github.com/MadVikingGod/weaver/internal/diag"
	"github.com/MadVikingGod/weaver/internal/engine"
)

// Generator runs the full pipeline for one configuration. Build one with New
// and reuse it across schemas if needed; it holds no per-run state.
type Generator struct {
	cfg  api.Config
	eng  *engine.Engine
	fs   billy.Filesystem
	diff api.DiffReporter
}

// Option customizes a Generator.
type Option func(*Generator)

// WithFilesystem overrides the output filesystem, rooted at the output
// directory. Tests use an in-memory filesystem here.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(g *Generator) { g.fs = fs }
}

// WithDiffReporter enables diff reporting on overwrites.
func WithDiffReporter(r api.DiffReporter) Option {
	return func(g *Generator) { g.diff = r }
}

// New builds a Generator. By default output goes to the real filesystem
// chrooted at cfg.OutputRoot, which also guarantees no write escapes it.
func New(cfg api.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg: cfg,
		eng: engine.New(engine.Options{
			TargetFormat:  cfg.TargetFormat,
			CommentPrefix: cfg.CommentPrefix,
		}),
	}
	for _, o := range opts {
		o(g)
	}
	if g.fs == nil {
		g.fs = osfs.New(cfg.OutputRoot)
	}
	return g
}

// Generate runs discovery, expansion, rendering and materialization against
// the resolved schema. The returned error is non-nil only for environment
// failures (unreadable template root, bad manifest or globs); everything
// else lands in the report, which is always complete: one run surfaces every
// failing template, not just the first.
func (g *Generator) Generate(ctx context.Context, schema api.Value) (*api.Report, error) {
	descs, err := Discover(g.cfg.TemplateRoot, g.cfg.IncludePatterns, g.cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	workers := g.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	collector := &diag.Collector{}

	// Phase 1: load and expand every descriptor into render jobs. Parallel
	// across templates; failures isolate to their template.
	type loaded struct {
		tmpl *engine.Template
		jobs []renderJob
	}
	loadedByDesc := make([]loaded, len(descs))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i := range descs {
		i := i
		grp.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			desc := &descs[i]
			src, err := os.ReadFile(filepath.Join(g.cfg.TemplateRoot, filepath.FromSlash(desc.RelPath)))
			if err != nil {
				collector.Error(desc.RelPath, -1, fmt.Errorf("read template: %w", err))
				return nil
			}
			tmpl, err := g.eng.Load(desc.RelPath, string(src))
			if err != nil {
				collector.Error(desc.RelPath, -1, err)
				return nil
			}
			jobs, warnings, err := expand(g.eng, desc, schema, g.cfg.Params)
			for _, w := range warnings {
				collector.Warn(desc.RelPath, -1, w)
			}
			if err != nil {
				collector.Error(desc.RelPath, -1, err)
				return nil
			}
			loadedByDesc[i] = loaded{tmpl: tmpl, jobs: jobs}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	// Phase 2: render every job. Parallel across templates and across the
	// items of a single fan-out; each render context is private to its job.
	var mu sync.Mutex
	var units []outputUnit
	grp, gctx = errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i := range loadedByDesc {
		l := loadedByDesc[i]
		if l.tmpl == nil {
			continue
		}
		for j := range l.jobs {
			job := l.jobs[j]
			grp.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				text, err := l.tmpl.Execute(job.data)
				if err != nil {
					collector.Error(job.desc.RelPath, job.ordinal, err)
					return nil
				}
				mu.Lock()
				units = append(units, outputUnit{
					desc:       job.desc,
					ordinal:    job.ordinal,
					outPath:    job.outPath,
					content:    []byte(text),
					skipFormat: job.desc.SkipFormat,
				})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	// Barrier: deterministic order, then conflict detection before any
	// write. Conflicting paths are excluded from materialization entirely.
	sortUnits(units)
	writable, conflicts := detectConflicts(units)
	for _, c := range conflicts {
		collector.Error(c.First.Template, c.First.Ordinal, c)
	}

	// Phase 3: materialize. Parallel across distinct paths; failures
	// isolate to their unit.
	mat := &Materializer{FS: g.fs, Diff: g.diff, FormatGo: true}
	results := make([]api.UnitResult, len(writable))
	ok := make([]bool, len(writable))
	grp, gctx = errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i := range writable {
		i := i
		grp.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			u := writable[i]
			action, diffText, err := mat.Write(u)
			if err != nil {
				collector.Error(u.desc.RelPath, u.ordinal, err)
				return nil
			}
			results[i] = api.UnitResult{
				Path:     u.outPath,
				Template: u.desc.RelPath,
				Ordinal:  u.ordinal,
				Action:   action,
				Diff:     diffText,
			}
			ok[i] = true
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	report := &api.Report{Diagnostics: collector.Drain()}
	for i, r := range results {
		if ok[i] {
			report.Units = append(report.Units, r)
		}
	}
	sortResults(report.Units)
	return report, nil
}

func sortUnits(units []outputUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].desc.RelPath != units[j].desc.RelPath {
			return units[i].desc.RelPath < units[j].desc.RelPath
		}
		return units[i].ordinal < units[j].ordinal
	})
}

func sortResults(units []api.UnitResult) {
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Template != units[j].Template {
			return units[i].Template < units[j].Template
		}
		if units[i].Ordinal != units[j].Ordinal {
			return units[i].Ordinal < units[j].Ordinal
		}
		return units[i].Path < units[j].Path
	})
}
