package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MadVikingGod/weaver/api"
	"github.com/MadVikingGod/weaver/internal/diag"
	"github.com/MadVikingGod/weaver/internal/forge"
)

var (
	templateRoot  string
	outputRoot    string
	params        []string
	includeGlobs  []string
	excludeGlobs  []string
	targetFormat  string
	commentPrefix string
	workers       int
	showDiff      bool
)

func init() {
	generateCmd.Flags().StringVarP(&templateRoot, "templates", "t", "templates", "Template root directory")
	generateCmd.Flags().StringVarP(&outputRoot, "output", "o", ".", "Output root directory")
	generateCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Global parameter key=value (repeatable)")
	generateCmd.Flags().StringArrayVar(&includeGlobs, "include", nil, "Include glob, relative to template root (repeatable)")
	generateCmd.Flags().StringArrayVar(&excludeGlobs, "exclude", nil, "Exclude glob; exclusion wins (repeatable)")
	generateCmd.Flags().StringVar(&targetFormat, "format", "text", "Markdown target format: text, html or comment")
	generateCmd.Flags().StringVar(&commentPrefix, "comment-prefix", "// ", "Line prefix for comment-formatted output")
	generateCmd.Flags().IntVar(&workers, "workers", 0, "Render worker count (0 = number of CPUs)")
	generateCmd.Flags().BoolVar(&showDiff, "diff", false, "Print a unified diff for every overwritten file")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [schema.yaml...]",
	Short: "Render the template directory against a resolved schema",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := api.Config{
			TemplateRoot:    templateRoot,
			OutputRoot:      outputRoot,
			IncludePatterns: includeGlobs,
			ExcludePatterns: excludeGlobs,
			Params:          map[string]string{},
			TargetFormat:    api.TargetFormat(targetFormat),
			CommentPrefix:   commentPrefix,
			Workers:         workers,
		}
		for _, p := range params {
			k, v, ok := strings.Cut(p, "=")
			if !ok {
				return fmt.Errorf("bad --param %q, want key=value", p)
			}
			cfg.Params[k] = v
		}

		if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
			return fmt.Errorf("create output root: %w", err)
		}

		schema, err := forge.DocumentResolver{}.Resolve(cmd.Context(), args)
		if err != nil {
			return err
		}

		var opts []forge.Option
		if showDiff {
			opts = append(opts, forge.WithDiffReporter(forge.UnifiedDiff{}))
		}

		start := time.Now()
		report, err := forge.New(cfg, opts...).Generate(cmd.Context(), schema)
		if err != nil {
			return err
		}

		if showDiff {
			for _, u := range report.Units {
				if u.Diff != "" {
					fmt.Print(u.Diff)
				}
			}
		}

		// color.NoColor already folds in TTY detection and NO_COLOR.
		diag.Render(os.Stderr, report.Diagnostics, !color.NoColor)

		fmt.Printf("%d created, %d overwritten, %d unchanged in %v\n",
			report.Created(), report.Overwritten(), report.Skipped(), time.Since(start).Round(time.Millisecond))

		if report.HasFatal() {
			return fmt.Errorf("generation failed with %d error(s)", countErrors(report))
		}
		return nil
	},
}

func countErrors(r *api.Report) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity >= api.SeverityError {
			n++
		}
	}
	return n
}
