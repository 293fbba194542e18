package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tbroadley/sandpaper/internal/datasource/file"
	"github.com/tbroadley/sandpaper/internal/logging"
	"github.com/tbroadley/sandpaper/internal/ruleset"
	"github.com/tbroadley/sandpaper/pkg/sandpaper"
)

type applyOptions struct {
	rules     string
	sheet     string
	table     string
	reader    map[string]string
	outDir    string
	filesFrom string
}

func newApplyCommand() *cobra.Command {
	opts := &applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply -r RULES SOURCE DEST | apply -r RULES --out-dir DIR SOURCE...",
		Short: "Apply a rule-set to one or more tables",
		Long: `Read every record of SOURCE, run the rule-set over it and write the result
to DEST, replacing it. SOURCE and DEST may be the same file.

With --out-dir, every SOURCE (and every line of --files-from) is written to
DIR under its own base name; --jobs bounds how many run at once.`,
		Example: `  # Normalize one file in place
  sandpaper apply -r people.yaml people.csv people.csv

  # CSV to a SQLite table
  sandpaper apply -r people.yaml people.csv /tmp/out.db --table people
  sandpaper apply -r people.yaml people.csv 'sqlite:///tmp/out.db?table=people'

  # Batch mode
  sandpaper apply -r people.yaml --out-dir clean/ --jobs 4 raw/*.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.rules, "rules", "r", "", "rule-set file (YAML or JSON)")
	f.StringVar(&opts.sheet, "sheet", "", "sheet or table to read from multi-table sources")
	f.StringVar(&opts.table, "table", "", "table written to SQL destinations")
	f.StringToStringVar(&opts.reader, "reader", nil, "reader option as key=value (repeatable), e.g. auto_detect_datetime=true")
	f.StringVar(&opts.outDir, "out-dir", "", "batch mode: write each source into this directory")
	f.StringVar(&opts.filesFrom, "files-from", "", "batch mode: read additional sources from this list file")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

type job struct {
	src, dst string
	err      error
}

func runApply(cmd *cobra.Command, args []string, opts *applyOptions) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	log := logging.FromContext(ctx)

	jobs, err := planJobs(ctx, args, opts)
	if err != nil {
		return err
	}

	sp, err := ruleset.Load(opts.rules)
	if err != nil {
		return err
	}

	term, err := cfg.Terminator()
	if err != nil {
		return err
	}

	reader := make(map[string]any, len(cfg.Reader)+len(opts.reader))
	for k, v := range cfg.Reader {
		reader[k] = v
	}
	for k, v := range opts.reader {
		reader[k] = v
	}
	applyOpts := []sandpaper.ApplyOption{
		sandpaper.WithLineTerminator(term),
		sandpaper.WithReaderOptions(reader),
		sandpaper.WithLogger(log),
		sandpaper.WithJob(cfg.Metrics.Job),
	}
	if opts.sheet != "" {
		applyOpts = append(applyOpts, sandpaper.WithSheet(opts.sheet))
	}
	if opts.table != "" {
		applyOpts = append(applyOpts, sandpaper.WithTable(opts.table))
	}

	flush := setupMetrics(cfg.Metrics, log)
	defer flush()

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(cfg.Jobs)
	for i := range jobs {
		j := &jobs[i]
		g.Go(func() error {
			_, j.err = sp.Apply(ctx, j.src, j.dst, applyOpts...)
			if j.err == nil {
				mu.Lock()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", j.src, j.dst)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, j := range jobs {
		if j.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", j.src, j.err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(jobs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("%d of %d files failed: %w", len(errs), len(jobs), errors.Join(errs...))
}

// planJobs pairs every source with its destination.
func planJobs(ctx context.Context, args []string, opts *applyOptions) ([]job, error) {
	if opts.outDir == "" {
		if opts.filesFrom != "" {
			return nil, errors.New("--files-from requires --out-dir")
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("expected SOURCE and DEST, got %d argument(s)", len(args))
		}
		return []job{{src: args[0], dst: args[1]}}, nil
	}

	srcs := append([]string(nil), args...)
	if opts.filesFrom != "" {
		listed, err := file.ReadList(ctx, opts.filesFrom)
		if err != nil {
			return nil, fmt.Errorf("read --files-from: %w", err)
		}
		srcs = append(srcs, listed...)
	}
	if len(srcs) == 0 {
		return nil, errors.New("no sources given")
	}

	jobs := make([]job, 0, len(srcs))
	seen := make(map[string]string, len(srcs))
	for _, src := range srcs {
		dst := filepath.Join(opts.outDir, filepath.Base(src))
		if prev, ok := seen[dst]; ok {
			return nil, fmt.Errorf("%s and %s both write %s", prev, src, dst)
		}
		seen[dst] = src
		jobs = append(jobs, job{src: src, dst: dst})
	}
	return jobs, nil
}
