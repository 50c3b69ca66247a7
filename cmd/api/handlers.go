package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/storefront/catalog/engine/catalog"
	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/engine/export"
	"github.com/storefront/catalog/engine/view"
	"github.com/storefront/catalog/pkg/metrics"
	"github.com/storefront/catalog/pkg/mid"
)

const (
	maxBodyBytes = 1 << 20
	maxPageSize  = 100
)

type server struct {
	svc      *catalog.Service
	pageSize int
	log      *slog.Logger
	now      func() time.Time
}

func (s *server) routes(reg *metrics.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/products", s.handleList)
	mux.HandleFunc("GET /api/products/export", s.handleExport)
	mux.HandleFunc("GET /api/products/{id}", s.handleGet)
	mux.HandleFunc("POST /api/products", s.handleCreate)
	mux.HandleFunc("PUT /api/products/{id}", s.handleUpdate)
	mux.Handle("GET /metrics", reg.Handler())
	return mux
}

// --- Handlers ---

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.Ready(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	state, err := s.stateFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.svc.View(r.Context(), state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Find(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// createRequest is the POST body. Price is a pointer so that a missing price
// is rejected instead of decoding to 0.
type createRequest struct {
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	CategoryID  int      `json:"categoryId"`
	Images      []string `json:"images"`
}

func (c createRequest) draft() (domain.Draft, error) {
	if c.Price == nil {
		return domain.Draft{}, domain.NewValidationError("price", "", domain.ErrInvalidPrice)
	}
	return domain.Draft{
		Title:       c.Title,
		Price:       *c.Price,
		Description: c.Description,
		CategoryID:  c.CategoryID,
		Images:      c.Images,
	}, nil
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := req.draft()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Create(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p domain.Patch
	if !decodeBody(w, r, &p) {
		return
	}
	updated, err := s.svc.Update(r.Context(), id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := s.stateFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if _, err := s.svc.Export(&buf, state); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// --- Request decoding ---

func (s *server) stateFrom(r *http.Request) (view.State, error) {
	q := r.URL.Query()
	state := view.NewState(s.pageSize).WithSearch(q.Get("q"))

	key, err := view.ParseSortKey(q.Get("sort"))
	if err != nil {
		return view.State{}, err
	}
	state = state.WithSort(key)

	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return view.State{}, domain.NewValidationError("page_size", v, domain.ErrInvalidPage)
		}
		state = state.WithPageSize(n)
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return view.State{}, domain.NewValidationError("page", v, domain.ErrInvalidPage)
		}
		state = state.WithPage(n)
	}
	return state, nil
}

func pathID(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", raw, domain.ErrNotFound)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

// --- Responses ---

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps catalog errors onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error(), RequestID: mid.RequestIDFrom(r.Context())}
	status := http.StatusInternalServerError

	var (
		ve *domain.ValidationError
		fe *domain.FetchError
		pe *domain.ParseError
	)
	switch {
	case errors.Is(err, domain.ErrNotLoaded):
		status = http.StatusServiceUnavailable
	case errors.As(err, &ve) && errors.Is(err, domain.ErrNotFound):
		status, body.Error = http.StatusNotFound, "product not found"
	case errors.As(err, &ve):
		status, body.Field = http.StatusBadRequest, ve.Field
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, export.ErrNothingToExport):
		status = http.StatusNotFound
	case errors.As(err, &fe) && fe.NotFound():
		status = http.StatusNotFound
	case errors.As(err, &fe), errors.As(err, &pe):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, body)
}
