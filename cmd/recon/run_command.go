package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/reconcile/service"
)

type runFlags struct {
	sourceFlags
	out           string
	format        string
	exports       string
	batch         bool
	exactAction   string
	defaultAction string
	unmatched     string
	exclude       []string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean both sources, match them and write the consolidated table",
		Long: `Walks the duplicate and near-match candidates of A, then B, then across
both, and writes one table shaped like the template source.

When stdin is a terminal every candidate is put to the operator. Otherwise, or
with --batch, exact duplicates get --exact-action and near matches get
--default-action.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(ctx, cmd, &f)
		},
	}
	f.bind(cmd)
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "Write the consolidated table here (.csv or .xlsx); default prints it")
	fl.StringVar(&f.format, "format", "", "csv or xlsx for --out and --exports (default from --out extension)")
	fl.StringVar(&f.exports, "exports", "", "Also write every intermediate table into this directory")
	fl.BoolVar(&f.batch, "batch", false, "Never prompt, even on a terminal")
	fl.StringVar(&f.exactAction, "exact-action", "merge", "Batch answer for exact duplicate groups")
	fl.StringVar(&f.defaultAction, "default-action", "keep", "Batch answer for near matches")
	fl.StringVar(&f.unmatched, "unmatched", "", "Unmatched rows in the output: all or none")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "Leave these unmatched SKUs out of the output")
	return cmd
}

func runReconcile(ctx *commandContext, cmd *cobra.Command, f *runFlags) error {
	exact, err := model.ParseAction(f.exactAction)
	if err != nil {
		return err
	}
	near, err := model.ParseAction(f.defaultAction)
	if err != nil {
		return err
	}
	if _, err := ctx.ensureConfig(); err != nil {
		return err
	}
	if cmd.Flags().Changed("unmatched") {
		ctx.cfg.Reconcile.UnmatchedPolicy = f.unmatched
	}
	if len(f.exclude) > 0 {
		ctx.cfg.Reconcile.ExcludeSKUs = f.exclude
	}

	s, err := f.open(ctx, cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderWarnings(s.Warnings()))

	var res model.Consolidated
	if !f.batch && stdinIsTerminal(cmd.InOrStdin()) {
		if err := interact(s, cmd.InOrStdin(), out); err != nil {
			return err
		}
		if res, err = s.Consolidate(); err != nil {
			return err
		}
	} else {
		policy := service.AutoPolicy{Exact: exact, IntraFuzzy: near, Cross: near}
		if res, err = service.Run(s, policy); err != nil {
			return err
		}
	}
	fmt.Fprint(out, renderWarnings(res.Warnings))

	format := f.format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(f.out)), ".")
	}
	if f.exports != "" {
		if err := writeExports(s, f.exports, format); err != nil {
			return err
		}
	}

	header, rows := res.Columns, make([][]string, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = r.Values
	}
	if f.out == "" {
		fmt.Fprintln(out, renderTable(header, rows, nil))
	} else if err := writeFile(f.out, format, "Consolidated", header, rows); err != nil {
		return err
	}
	fmt.Fprintln(out, renderSummary(s.Summary()))
	return nil
}

func writeExports(s *service.Session, dir, format string) error {
	if format == "" {
		format = fileio.FormatCSV
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create exports dir")
	}
	for _, kind := range service.ExportKinds {
		header, rows, err := s.Export(kind)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, kind+"."+format), format, kind, header, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path, format, sheet string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output")
	}
	if err := fileio.WriteTable(f, format, sheet, header, rows); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func stdinIsTerminal(in io.Reader) bool {
	file, ok := in.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
