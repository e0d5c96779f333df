package numbering

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/factora-erp/factora/internal/platform/httpx"
	"github.com/factora-erp/factora/internal/shared"
)

// Handler wires configuration endpoints for series and journals. Minting is
// not exposed over HTTP: numbers are consumed only inside document and
// posting transactions.
type Handler struct {
	service  *Service
	admin    *Admin
	validate *validator.Validate
}

// NewHandler constructs the numbering handler.
func NewHandler(service *Service, admin *Admin, validate *validator.Validate) *Handler {
	return &Handler{service: service, admin: admin, validate: validate}
}

// MountRoutes registers numbering routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/series", h.handleCreateSeries)
	r.Get("/series/{id}", h.handleGetSeries)
	r.Post("/series/{id}/deactivate", h.handleDeactivate)
	r.Post("/journals", h.handleCreateJournal)
}

type seriesRequest struct {
	DocKind string `json:"doc_kind" validate:"required"`
	Prefix  string `json:"prefix" validate:"required"`
	Counter int64  `json:"counter" validate:"gte=0"`
}

func (h *Handler) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	series, err := h.admin.CreateSeries(r.Context(), Series{
		TenantID: shared.TenantFromContext(r.Context()),
		DocKind:  req.DocKind,
		Prefix:   req.Prefix,
		Counter:  req.Counter,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, series)
}

func (h *Handler) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.seriesID(w, r)
	if !ok {
		return
	}
	series, err := h.service.Describe(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, series)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.seriesID(w, r)
	if !ok {
		return
	}
	if err := h.admin.SetSeriesActive(r.Context(), shared.TenantFromContext(r.Context()), id, false); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type journalRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *Handler) handleCreateJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	journal, err := h.admin.CreateJournal(r.Context(), Journal{
		TenantID: shared.TenantFromContext(r.Context()),
		Code:     req.Code,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, journal)
}

func (h *Handler) seriesID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid series id")
		return 0, false
	}
	return id, true
}
