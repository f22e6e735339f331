package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rotisserie/eris"

	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
)

type Config struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	AllowOrigins []string `toml:"allow_origins"`
	LogLevel     string   `toml:"log_level"`
	MaxUploadMB  int      `toml:"max_upload_mb"`
	LogFile      string   `toml:"log_file"`
	Pprof        bool     `toml:"pprof"` // mount /debug/pprof

	Reconcile Reconcile `toml:"reconcile"`
}

// Reconcile holds the engine settings shared by the server and the CLI.
type Reconcile struct {
	IntraThreshold     float64  `toml:"intra_threshold"`
	CrossLow           float64  `toml:"cross_threshold_low"`
	CrossHigh          float64  `toml:"cross_threshold_high"`
	CrossInclusive     bool     `toml:"cross_inclusive"`
	TemplateSource     string   `toml:"template_source"`
	NormalizePolicy    string   `toml:"normalize_policy"`
	SimilarityMetric   string   `toml:"similarity_metric"`
	QuantityPreference string   `toml:"quantity_preference"`
	EmptyMarker        string   `toml:"empty_marker"`
	UnmatchedPolicy    string   `toml:"unmatched_policy"`
	ExcludeSKUs        []string `toml:"exclude_skus"`

	SkuColumn    string `toml:"sku_column"`
	QtyColumn    string `toml:"qty_column"`
	HeaderRow    int    `toml:"header_row"`
	CSVDelimiter string `toml:"csv_delimiter"` // "" = sniff
}

func Default() Config {
	o := model.DefaultOptions()
	return Config{
		Host:         "127.0.0.1",
		Port:         8082,
		AllowOrigins: []string{"*"},
		LogLevel:     "info",
		MaxUploadMB:  256,
		LogFile:      "logs/inventory-recon.log",
		Reconcile: Reconcile{
			IntraThreshold:     o.IntraThreshold,
			CrossLow:           o.CrossLow,
			CrossHigh:          o.CrossHigh,
			CrossInclusive:     o.CrossInclusive,
			TemplateSource:     string(o.Template),
			NormalizePolicy:    o.NormalizePolicy,
			SimilarityMetric:   o.SimilarityMetric,
			QuantityPreference: o.QuantityPreference,
			EmptyMarker:        o.EmptyMarker,
			UnmatchedPolicy:    o.UnmatchedPolicy,
			SkuColumn:          "SKU",
			QtyColumn:          "Quantity on Hand|Quantity|Qty|On Hand",
			HeaderRow:          1,
		},
	}
}

// Load собирает конфиг: defaults, затем TOML (path или RECON_CONFIG), затем
// переменные окружения. A .env in the working directory is read first and
// never overrides variables already set.
func Load(path string) (Config, error) {
	return LoadOver(Default(), path)
}

// LoadOver is Load with base in place of Default, for callers whose
// defaults differ from the server's.
func LoadOver(base Config, path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, eris.Wrap(err, "read .env")
	}

	cfg := base
	if path == "" {
		path = os.Getenv("RECON_CONFIG")
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Options(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrap(err, "open config")
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(c); err != nil {
		return eris.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	e := envReader{}
	c.Host = e.str("HOST", c.Host)
	c.Port = e.integer("PORT", c.Port)
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		c.AllowOrigins = splitList(v)
	}
	c.LogLevel = e.str("LOG_LEVEL", c.LogLevel)
	c.LogFile = e.str("LOG_FILE", c.LogFile)
	c.MaxUploadMB = e.integer("MAX_UPLOAD_MB", c.MaxUploadMB)
	c.Pprof = e.boolean("PPROF", c.Pprof)

	r := &c.Reconcile
	r.IntraThreshold = e.float("INTRA_THRESHOLD", r.IntraThreshold)
	r.CrossLow = e.float("CROSS_THRESHOLD_LOW", r.CrossLow)
	r.CrossHigh = e.float("CROSS_THRESHOLD_HIGH", r.CrossHigh)
	r.CrossInclusive = e.boolean("CROSS_INCLUSIVE", r.CrossInclusive)
	r.TemplateSource = e.str("TEMPLATE_SOURCE", r.TemplateSource)
	r.NormalizePolicy = e.str("NORMALIZE_POLICY", r.NormalizePolicy)
	r.SimilarityMetric = e.str("SIMILARITY_METRIC", r.SimilarityMetric)
	r.QuantityPreference = e.str("QUANTITY_PREFERENCE", r.QuantityPreference)
	if v, ok := os.LookupEnv("EMPTY_MARKER"); ok {
		r.EmptyMarker = v
	}
	r.UnmatchedPolicy = e.str("UNMATCHED_POLICY", r.UnmatchedPolicy)
	if v := os.Getenv("EXCLUDE_SKUS"); v != "" {
		r.ExcludeSKUs = splitList(v)
	}
	r.SkuColumn = e.str("SKU_COLUMN", r.SkuColumn)
	r.QtyColumn = e.str("QTY_COLUMN", r.QtyColumn)
	r.HeaderRow = e.integer("HEADER_ROW", r.HeaderRow)
	r.CSVDelimiter = e.str("CSV_DELIMITER", r.CSVDelimiter)
	return e.err
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Options projects the engine settings into validated run options.
func (c Config) Options() (model.Options, error) {
	r := c.Reconcile
	tmpl, err := model.ParseSource(r.TemplateSource)
	if err != nil {
		return model.Options{}, eris.Wrap(model.ErrInvalidOptions, err.Error())
	}
	o := model.Options{
		IntraThreshold:     r.IntraThreshold,
		CrossLow:           r.CrossLow,
		CrossHigh:          r.CrossHigh,
		CrossInclusive:     r.CrossInclusive,
		Template:           tmpl,
		NormalizePolicy:    strings.ToLower(r.NormalizePolicy),
		SimilarityMetric:   strings.ToLower(r.SimilarityMetric),
		QuantityPreference: strings.ToLower(r.QuantityPreference),
		EmptyMarker:        r.EmptyMarker,
		UnmatchedPolicy:    strings.ToLower(r.UnmatchedPolicy),
		ExcludeSKUs:        append([]string(nil), r.ExcludeSKUs...),
	}
	if err := o.Validate(); err != nil {
		return model.Options{}, err
	}
	return o, nil
}

func (c Config) Mapping() model.Mapping {
	return model.Mapping{
		SkuColumn: c.Reconcile.SkuColumn,
		QtyColumn: c.Reconcile.QtyColumn,
		HeaderRow: c.Reconcile.HeaderRow,
	}
}

func (c Config) ReadOptions() fileio.ReadOptions {
	return fileio.ReadOptions{
		HeaderRow: c.Reconcile.HeaderRow,
		Delimiter: ParseDelimiter(c.Reconcile.CSVDelimiter),
	}
}

// ParseDelimiter понимает ";", ",", "tab", "\t"; пусто = автоопределение.
func ParseDelimiter(s string) rune {
	switch strings.ToLower(s) {
	case "":
		return 0
	case "tab", `\t`:
		return '\t'
	}
	for _, r := range s {
		return r
	}
	return 0
}

type envReader struct{ err error }

func (e *envReader) str(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v)
		return def
	}
	return n
}

func (e *envReader) float(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", ".")), 64)
	if err != nil {
		e.fail(k, v)
		return def
	}
	return f
}

func (e *envReader) boolean(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v)
		return def
	}
	return b
}

func (e *envReader) fail(k, v string) {
	if e.err == nil {
		e.err = eris.Errorf("env %s: bad value %q", k, v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
