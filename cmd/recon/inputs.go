package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"inventory-recon/internal/config"
	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/reconcile/service"
)

// sourceFlags are the per-run overrides shared by run and inspect.
type sourceFlags struct {
	a, b             string
	aSku, bSku       string
	aQty, bQty       string
	aHeader, bHeader int

	template       string
	intraThreshold float64
	crossLow       float64
	crossHigh      float64
	crossInclusive bool
	normalize      string
	metric         string
	emptyMarker    string
}

func (f *sourceFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.a, "a", "", "Source A file (csv, xlsx, xls)")
	fl.StringVar(&f.b, "b", "", "Source B file (csv, xlsx, xls)")
	fl.StringVar(&f.aSku, "a-sku", "", "SKU column in A (alternatives with |)")
	fl.StringVar(&f.bSku, "b-sku", "", "SKU column in B")
	fl.StringVar(&f.aQty, "a-qty", "", "Quantity column in A")
	fl.StringVar(&f.bQty, "b-qty", "", "Quantity column in B")
	fl.IntVar(&f.aHeader, "a-header-row", 0, "Header row in A (1-based)")
	fl.IntVar(&f.bHeader, "b-header-row", 0, "Header row in B (1-based)")
	fl.StringVar(&f.template, "template", "", "Source whose layout shapes the output (A or B)")
	fl.Float64Var(&f.intraThreshold, "intra-threshold", 0, "Near-duplicate threshold within a source (0..1)")
	fl.Float64Var(&f.crossLow, "cross-low", 0, "Lower bound of the cross-source window (percent)")
	fl.Float64Var(&f.crossHigh, "cross-high", 0, "Upper bound of the cross-source window (percent)")
	fl.BoolVar(&f.crossInclusive, "cross-inclusive", false, "Include the window bounds")
	fl.StringVar(&f.normalize, "normalize", "", "SKU normalization: canonical, alnum, trim-upper")
	fl.StringVar(&f.metric, "metric", "", "Similarity metric: ratio, damerau")
	fl.StringVar(&f.emptyMarker, "empty-marker", "", "Text for cells with no value")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
}

// apply layers the flags the user actually set over cfg.
func (f *sourceFlags) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	fl := cmd.Flags()
	rc := &cfg.Reconcile
	if fl.Changed("template") {
		rc.TemplateSource = f.template
	}
	if fl.Changed("intra-threshold") {
		rc.IntraThreshold = f.intraThreshold
	}
	if fl.Changed("cross-low") {
		rc.CrossLow = f.crossLow
	}
	if fl.Changed("cross-high") {
		rc.CrossHigh = f.crossHigh
	}
	if fl.Changed("cross-inclusive") {
		rc.CrossInclusive = f.crossInclusive
	}
	if fl.Changed("normalize") {
		rc.NormalizePolicy = f.normalize
	}
	if fl.Changed("metric") {
		rc.SimilarityMetric = f.metric
	}
	if fl.Changed("empty-marker") {
		rc.EmptyMarker = f.emptyMarker
	}
	return cfg
}

func (f *sourceFlags) open(ctx *commandContext, cmd *cobra.Command) (*service.Session, error) {
	base, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	cfg := f.apply(cmd, base)
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	inA, err := readInput(f.a, side(cfg, f.aSku, f.aQty, f.aHeader), cfg)
	if err != nil {
		return nil, err
	}
	inB, err := readInput(f.b, side(cfg, f.bSku, f.bQty, f.bHeader), cfg)
	if err != nil {
		return nil, err
	}
	return service.OpenSession(inA, inB, opts, ctx.logger)
}

func side(cfg config.Config, sku, qty string, header int) model.Mapping {
	m := cfg.Mapping()
	if sku != "" {
		m.SkuColumn = sku
	}
	if qty != "" {
		m.QtyColumn = qty
	}
	if header > 0 {
		m.HeaderRow = header
	}
	return m
}

func readInput(path string, m model.Mapping, cfg config.Config) (service.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return service.Input{}, eris.Wrap(err, "open input")
	}
	defer f.Close()

	ro := cfg.ReadOptions()
	ro.HeaderRow = m.HeaderRow
	tbl, err := fileio.ReadAnyTable(f, path, ro)
	if err != nil {
		return service.Input{}, eris.Wrapf(err, "read %s", path)
	}
	return service.Input{Name: filepath.Base(path), Table: tbl, Mapping: m}, nil
}
