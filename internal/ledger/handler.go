package ledger

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/factora-erp/factora/internal/platform/httpx"
	"github.com/factora-erp/factora/internal/shared"
)

// Handler wires HTTP endpoints for manual journal entries.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/entries", h.handlePost)
	r.Get("/entries", h.handleList)
	r.Post("/entries/{id}/void", h.handleVoid)
}

type postRequest struct {
	JournalID int64             `json:"journal_id" validate:"required,gt=0"`
	Date      time.Time         `json:"date"`
	Memo      string            `json:"memo"`
	Lines     []postLineRequest `json:"lines" validate:"required,min=2,dive"`
}

type postLineRequest struct {
	AccountID int64   `json:"account_id" validate:"required,gt=0"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	lines := make([]PostingLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, PostingLineInput{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	entry, err := h.service.PostEntry(r.Context(), PostingInput{
		TenantID:     shared.TenantFromContext(r.Context()),
		JournalID:    req.JournalID,
		Date:         date,
		Memo:         req.Memo,
		SourceModule: "MANUAL",
		PostedBy:     actorID(r),
		Lines:        lines,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}
	entries, err := h.service.List(r.Context(), shared.TenantFromContext(r.Context()), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) handleVoid(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.VoidEntry(r.Context(), VoidInput{
		TenantID: shared.TenantFromContext(r.Context()),
		EntryID:  id,
		ActorID:  actorID(r),
		Reason:   req.Reason,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewLines):
		httpx.Unprocessable(w, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
