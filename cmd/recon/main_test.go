package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-recon/internal/config"
	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/reconcile/service"
)

const (
	csvA = "SKU;Description;Quantity on Hand\nab-100;Widget;5\nAB100;Widget;3\nWDGT-01;Gadget;4\nX-500;Cable;2\n"
	csvB = "SKU;Description;Quantity on Hand\nAB100;Widget large;\nWDGT-1;Gadget;6\nZ-9;Remote;1\n"
)

func writeInputs(t *testing.T) (string, string, string) {
	t.Helper()
	t.Setenv("RECON_CONFIG", "")
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte(csvA), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(csvB), 0o644))
	return dir, a, b
}

func execute(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readCSV(t *testing.T, path string) *fileio.Table {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	tbl, err := fileio.ReadAnyTable(f, path, fileio.ReadOptions{})
	require.NoError(t, err)
	return tbl
}

func TestRunBatchWritesOutputAndExports(t *testing.T) {
	dir, a, b := writeInputs(t)
	outPath := filepath.Join(dir, "out.csv")
	exports := filepath.Join(dir, "exports")

	out, err := execute(t, "", "run", "--a", a, "--b", b, "--out", outPath, "--exports", exports, "--default-action", "merge")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Done")

	tbl := readCSV(t, outPath)
	assert.Equal(t, []string{"SKU", "Description", "Quantity on Hand", "Match Type"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"AB100", "Widget large", "8", "Exact"},
		{"Z-9", "Remote", "1", "Unmatched B"},
		{"WDGT-01", "Gadget", "10", "Fuzzy Merged"},
		{"X-500", "Cable", "2", "Unmatched A"},
	}, tbl.Rows)

	for _, kind := range service.ExportKinds {
		_, err := os.Stat(filepath.Join(exports, kind+".csv"))
		assert.NoError(t, err, kind)
	}
	log := readCSV(t, filepath.Join(exports, "log.csv"))
	assert.Len(t, log.Rows, 2)
}

func TestRunBatchKeepsNearMatchesApart(t *testing.T) {
	_, a, b := writeInputs(t)
	out, err := execute(t, "", "run", "--a", a, "--b", b, "--template", "A", "--unmatched", "none")
	require.NoError(t, err, out)
	assert.Contains(t, out, "AB100")
	assert.NotContains(t, out, "Z-9")
	assert.NotContains(t, out, "WDGT")
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, a, b := writeInputs(t)

	_, err := execute(t, "", "run", "--a", a, "--b", b, "--default-action", "maybe")
	assert.True(t, eris.Is(err, model.ErrInvalidAction))

	_, err = execute(t, "", "run", "--a", a, "--b", b, "--cross-low", "100")
	assert.True(t, eris.Is(err, model.ErrInvalidOptions))

	_, err = execute(t, "", "run", "--a", a, "--b", b, "--a-sku", "Item")
	assert.True(t, eris.Is(err, model.ErrMissingColumn))

	_, err = execute(t, "", "run", "--a", a)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	_, a, b := writeInputs(t)
	out, err := execute(t, "", "inspect", "--a", a, "--b", b)
	require.NoError(t, err, out)
	assert.Contains(t, out, "ab-100, AB100")
	assert.Contains(t, out, "WDGT-01 ~ WDGT-1")
	assert.Contains(t, out, "92.31")
}

func newTestSession(t *testing.T) *service.Session {
	t.Helper()
	m := model.Mapping{SkuColumn: "SKU", QtyColumn: "Quantity on Hand"}
	load := func(name, body string) service.Input {
		tbl, err := fileio.ReadAnyTable(strings.NewReader(body), name, fileio.ReadOptions{})
		require.NoError(t, err)
		return service.Input{Name: name, Table: tbl, Mapping: m}
	}
	s, err := service.OpenSession(load("a.csv", csvA), load("b.csv", csvB), model.DefaultOptions(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestInteract(t *testing.T) {
	s := newTestSession(t)
	in := strings.Join([]string{
		"?",
		"x",        // not an action
		"m AB100",  // the duplicate group in A
		"r IntraB", // B has nothing to clean, so this lands on Cross again
		"d WDGT-1", // keep the B side of the pair
	}, "\n") + "\n"
	var out bytes.Buffer
	require.NoError(t, interact(s, strings.NewReader(in), &out))

	text := out.String()
	assert.Contains(t, text, "merge, optionally under a new sku")
	assert.Contains(t, text, "error:")
	assert.Contains(t, text, "-> AB100 qty 8")
	assert.Equal(t, model.StateDone, s.State())
	assert.Empty(t, s.A().ByRaw("WDGT-01"))
}

func TestInteractRetriesUnknownSurvivor(t *testing.T) {
	s := newTestSession(t)
	in := strings.Join([]string{
		"d AB-10O", // typo: names no member
		"d AB100",
		"k",
	}, "\n") + "\n"
	var out bytes.Buffer
	require.NoError(t, interact(s, strings.NewReader(in), &out))

	assert.Contains(t, out.String(), "error:")
	assert.Equal(t, "AB100", skuList(s.A().ByKey("AB100")))
	assert.Len(t, s.A().ByRaw("WDGT-01"), 1)
	assert.Equal(t, model.StateDone, s.State())
}

func TestInteractQuit(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	err := interact(s, strings.NewReader("q\n"), &out)
	assert.True(t, eris.Is(err, errAborted))

	err = interact(s, strings.NewReader(""), &out)
	assert.True(t, eris.Is(err, errAborted), "EOF before done is an abort")
}

func TestDecisionFor(t *testing.T) {
	g := model.DuplicateGroup{Members: []*model.InventoryRecord{{SkuRaw: "ab-100"}, {SkuRaw: "AB100"}}}
	assert.Equal(t, model.Decision{Action: model.ActionDelete, Survivor: 1}, decisionFor(g, model.ActionDelete, "2"))
	assert.Equal(t, model.Decision{Action: model.ActionDelete, Survivor: 1}, decisionFor(g, model.ActionDelete, "AB100"))
	assert.Equal(t, model.Decision{Action: model.ActionDelete, DeleteAll: true}, decisionFor(g, model.ActionDelete, "ALL"))
	assert.Equal(t, model.Decision{Action: model.ActionDelete, Survivor: 0}, decisionFor(g, model.ActionDelete, ""))
	assert.Equal(t, model.Decision{Action: model.ActionDelete, Survivor: -1}, decisionFor(g, model.ActionDelete, "AB-10O"))

	p := model.FuzzyCandidate{Left: "WDGT-01", Right: "WDGT-1", Scope: model.ScopeCross}
	assert.Equal(t, model.Decision{Action: model.ActionDelete, Target: "WDGT-1"}, decisionFor(p, model.ActionDelete, "WDGT-1"))
	assert.Equal(t, model.Decision{Action: model.ActionMerge, Target: "W"}, decisionFor(p, model.ActionMerge, "W"))
	assert.Equal(t, model.Decision{Action: model.ActionKeep}, decisionFor(p, model.ActionKeep, "ignored"))
}

func TestLogLevelPrecedence(t *testing.T) {
	t.Setenv("RECON_CONFIG", "")
	t.Setenv("LOG_FILE", "")
	load := func(args ...string) config.Config {
		t.Helper()
		var cfgPath, level, file string
		fs := pflag.NewFlagSet("recon", pflag.ContinueOnError)
		fs.StringVar(&level, "log-level", "warn", "")
		fs.StringVar(&file, "log-file", "", "")
		require.NoError(t, fs.Parse(args))
		ctx := &commandContext{flags: fs, configFlag: &cfgPath, logLevelFlag: &level, logFileFlag: &file}
		cfg, err := ctx.ensureConfig()
		require.NoError(t, err)
		return cfg
	}

	t.Setenv("LOG_LEVEL", "")
	cfg := load()
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)

	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, "debug", load().LogLevel)
	assert.Equal(t, "error", load("--log-level", "error").LogLevel)
}
