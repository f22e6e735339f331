package handler

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"inventory-recon/internal/config"
	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
)

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func toFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func toStr(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// formSettings накладывает поля формы на настройки из конфига.
// Unset fields keep the configured value.
func formSettings(r *http.Request, cfg config.Config) (config.Config, error) {
	rc := &cfg.Reconcile
	rc.IntraThreshold = toFloat(r.FormValue("intra_threshold"), rc.IntraThreshold)
	rc.CrossLow = toFloat(r.FormValue("cross_low"), rc.CrossLow)
	rc.CrossHigh = toFloat(r.FormValue("cross_high"), rc.CrossHigh)
	rc.CrossInclusive = toBool(r.FormValue("cross_inclusive"), rc.CrossInclusive)
	rc.TemplateSource = toStr(r.FormValue("template"), rc.TemplateSource)
	rc.NormalizePolicy = toStr(r.FormValue("normalize_policy"), rc.NormalizePolicy)
	rc.SimilarityMetric = toStr(r.FormValue("similarity_metric"), rc.SimilarityMetric)
	rc.QuantityPreference = toStr(r.FormValue("quantity_preference"), rc.QuantityPreference)
	if _, ok := r.Form["empty_marker"]; ok {
		rc.EmptyMarker = r.FormValue("empty_marker")
	}
	rc.UnmatchedPolicy = toStr(r.FormValue("unmatched_policy"), rc.UnmatchedPolicy)
	if v := r.FormValue("exclude_skus"); v != "" {
		rc.ExcludeSKUs = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				rc.ExcludeSKUs = append(rc.ExcludeSKUs, s)
			}
		}
	}
	rc.CSVDelimiter = toStr(r.FormValue("csv_delimiter"), rc.CSVDelimiter)
	if _, err := cfg.Options(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// sideMapping reads a_sku / a_qty / a_header_row style fields for one source.
func sideMapping(r *http.Request, prefix string, cfg config.Config) (model.Mapping, fileio.ReadOptions) {
	m := cfg.Mapping()
	m.SkuColumn = toStr(r.FormValue(prefix+"_sku"), m.SkuColumn)
	m.QtyColumn = toStr(r.FormValue(prefix+"_qty"), m.QtyColumn)
	m.HeaderRow = atoi(r.FormValue(prefix+"_header_row"), m.HeaderRow)
	ro := cfg.ReadOptions()
	ro.HeaderRow = m.HeaderRow
	return m, ro
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("write json")
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusOf maps the error taxonomy onto HTTP.
func statusOf(err error) (int, string) {
	switch {
	case eris.Is(err, model.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, "invalid_quantity"
	case eris.Is(err, model.ErrStaleCandidate):
		return http.StatusUnprocessableEntity, "stale_candidate"
	case eris.Is(err, model.ErrInvalidAction):
		return http.StatusUnprocessableEntity, "invalid_action"
	case eris.Is(err, model.ErrInvalidRecord):
		return http.StatusUnprocessableEntity, "invalid_record"
	case eris.Is(err, model.ErrQueueEmpty):
		return http.StatusConflict, "queue_empty"
	case eris.Is(err, model.ErrNotDone):
		return http.StatusConflict, "not_done"
	case eris.Is(err, model.ErrBadTransition):
		return http.StatusConflict, "bad_transition"
	case eris.Is(err, model.ErrUnknownState):
		return http.StatusBadRequest, "unknown_state"
	case eris.Is(err, model.ErrInvalidOptions):
		return http.StatusBadRequest, "invalid_options"
	case eris.Is(err, model.ErrMissingColumn):
		return http.StatusBadRequest, "missing_column"
	}
	return http.StatusBadRequest, ""
}

func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, code := statusOf(err)
	writeJSON(w, log, status, errorBody{Error: err.Error(), Code: code})
}

func writeStatus(w http.ResponseWriter, log zerolog.Logger, status int, msg string) {
	writeJSON(w, log, status, errorBody{Error: msg})
}
