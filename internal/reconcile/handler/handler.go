package handler

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"inventory-recon/internal/config"
	"inventory-recon/internal/fileio"
	"inventory-recon/internal/middleware"
	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/reconcile/service"
)

// Handler serves reconciliation sessions over HTTP.
type Handler struct {
	cfg    config.Config
	store  *Store
	logger zerolog.Logger
}

func New(cfg config.Config, store *Store, logger zerolog.Logger) *Handler {
	return &Handler{cfg: cfg, store: store, logger: logger}
}

// Health отвечает 200, пока процесс жив.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) log(r *http.Request) zerolog.Logger {
	if rid := middleware.GetRequestID(r); rid != "" {
		return h.logger.With().Str("rid", rid).Logger()
	}
	return h.logger
}

type candidateView struct {
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Stale       bool            `json:"stale,omitempty"`
	Candidate   model.Candidate `json:"candidate"`
}

type sessionView struct {
	ID       string          `json:"id"`
	Created  time.Time       `json:"created"`
	Files    [2]string       `json:"files"`
	Options  model.Options   `json:"options"`
	Summary  model.Summary   `json:"summary"`
	Current  *candidateView  `json:"current,omitempty"`
	Warnings []model.Warning `json:"warnings,omitempty"`
}

type resolveResponse struct {
	Resolution model.Resolution `json:"resolution"`
	Session    sessionView      `json:"session"`
}

func viewOf(s *service.Session) sessionView {
	v := sessionView{
		ID:       s.ID,
		Created:  s.Created,
		Files:    [2]string{s.A().Name, s.B().Name},
		Options:  s.Options(),
		Summary:  s.Summary(),
		Warnings: s.Warnings(),
	}
	if c, ok := s.Current(); ok {
		v.Current = &candidateView{Kind: c.Kind(), Description: c.Describe(), Stale: s.Stale(c), Candidate: c}
	}
	return v
}

// CreateSession принимает multipart с fileA и fileB и открывает сессию.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.log(r)

	if err := r.ParseMultipartForm(int64(h.cfg.MaxUploadMB) << 20); err != nil {
		writeStatus(w, log, http.StatusBadRequest, "bad multipart form: "+err.Error())
		return
	}
	cfg, err := formSettings(r, h.cfg)
	if err != nil {
		writeError(w, log, err)
		return
	}
	opts, _ := cfg.Options()

	inA, err := readInput(r, "fileA", "a", cfg)
	if err != nil {
		writeError(w, log, err)
		return
	}
	inB, err := readInput(r, "fileB", "b", cfg)
	if err != nil {
		writeError(w, log, err)
		return
	}

	s, err := service.OpenSession(inA, inB, opts, log)
	if err != nil {
		writeError(w, log, err)
		return
	}
	h.store.Put(s)

	log.Info().
		Str("session", s.ID).
		Dur("elapsed", time.Since(start)).
		Msg("session created")
	writeJSON(w, log, http.StatusCreated, viewOf(s))
}

func readInput(r *http.Request, field, prefix string, cfg config.Config) (service.Input, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return service.Input{}, eris.Wrapf(err, "missing %s", field)
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	m, ro := sideMapping(r, prefix, cfg)
	tbl, err := fileio.ReadAnyTable(f, hdr.Filename, ro)
	if err != nil {
		return service.Input{}, eris.Wrapf(err, "read %s", field)
	}
	return service.Input{Name: hdr.Filename, Table: tbl, Mapping: m}, nil
}

// session runs fn on the session named in the URL, or answers 404.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, fn func(*service.Session)) {
	id := chi.URLParam(r, "id")
	if !h.store.With(id, fn) {
		writeStatus(w, h.log(r), http.StatusNotFound, fmt.Sprintf("session %q not found", id))
	}
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, func(s *service.Session) {
		writeJSON(w, h.log(r), http.StatusOK, viewOf(s))
	})
}

type resolveRequest struct {
	Action    string `json:"action"`
	Target    string `json:"target"`
	Survivor  int    `json:"survivor"`
	DeleteAll bool   `json:"deleteAll"`
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, log, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	act, err := model.ParseAction(req.Action)
	if err != nil {
		writeError(w, log, err)
		return
	}
	d := model.Decision{Action: act, Target: req.Target, Survivor: req.Survivor, DeleteAll: req.DeleteAll}

	h.session(w, r, func(s *service.Session) {
		res, err := s.Resolve(d)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, log, http.StatusOK, resolveResponse{Resolution: res, Session: viewOf(s)})
	})
}

func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, func(s *service.Session) {
		if s.State() == model.StateDone {
			writeError(w, h.log(r), eris.Wrap(model.ErrQueueEmpty, "nothing left to skip"))
			return
		}
		s.Skip()
		writeJSON(w, h.log(r), http.StatusOK, viewOf(s))
	})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, log, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	st, err := model.ParseState(req.State)
	if err != nil {
		writeError(w, log, err)
		return
	}
	h.session(w, r, func(s *service.Session) {
		if err := s.Reset(st); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, log, http.StatusOK, viewOf(s))
	})
}

func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, func(s *service.Session) {
		writeJSON(w, h.log(r), http.StatusOK, s.Log())
	})
}

// Export отдаёт одну из выгрузок сессии как CSV или XLSX.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	kind := chi.URLParam(r, "kind")
	known := false
	for _, k := range service.ExportKinds {
		known = known || k == kind
	}
	if !known {
		writeStatus(w, log, http.StatusNotFound, fmt.Sprintf("unknown export %q", kind))
		return
	}
	format := toStr(r.URL.Query().Get("format"), fileio.FormatCSV)
	if format != fileio.FormatCSV && format != fileio.FormatXLSX {
		writeStatus(w, log, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	h.session(w, r, func(s *service.Session) {
		header, rows, err := s.Export(kind)
		if err != nil {
			writeError(w, log, err)
			return
		}
		w.Header().Set("Content-Type", fileio.ContentType(format))
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, kind, format))
		if err := fileio.WriteTable(w, format, kind, header, rows); err != nil {
			log.Error().Err(err).Str("kind", kind).Msg("write export")
		}
	})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	log := h.log(r)
	if !h.store.Delete(id) {
		writeStatus(w, log, http.StatusNotFound, fmt.Sprintf("session %q not found", id))
		return
	}
	log.Info().Str("session", id).Msg("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Routes монтирует эндпоинты сессий.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.CreateSession)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/resolve", h.Resolve)
		r.Post("/skip", h.Skip)
		r.Post("/reset", h.Reset)
		r.Get("/log", h.Log)
		r.Get("/export/{kind}", h.Export)
	})
}
