package documents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/factora-erp/factora/internal/ledger"
	"github.com/factora-erp/factora/internal/platform/httpx"
	"github.com/factora-erp/factora/internal/shared"
	"github.com/factora-erp/factora/internal/stock"
)

// Handler wires HTTP endpoints for the document lifecycle. It validates and
// shapes input; every business decision lives in the engine.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	validate *validator.Validate
	idem     *shared.IdempotencyStore
}

// NewHandler constructs the documents handler.
func NewHandler(logger *slog.Logger, engine *Engine, validate *validator.Validate, idem *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, engine: engine, validate: validate, idem: idem}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/emit", h.handleEmit)
	r.Post("/{id}/void", h.handleVoid)
	r.Post("/{id}/apply", h.handleApply)
	r.Post("/{id}/authority-result", h.handleAuthorityResult)
	r.Post("/adjustments", h.handleAdjustment)
	r.Post("/transfers", h.handleTransfer)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req, &req.TenantID, &req.ActorID) {
		return
	}
	key, ok := h.claimIdempotency(w, r)
	if !ok {
		return
	}
	var (
		doc Document
		err error
	)
	if r.URL.Query().Get("emit") == "true" {
		doc, err = h.engine.CreateAndEmit(r.Context(), req)
	} else {
		doc, err = h.engine.CreateDraft(r.Context(), req)
	}
	if err != nil {
		h.releaseIdempotency(r, key)
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

// claimIdempotency reserves the request's Idempotency-Key, if one was sent.
// A duplicate key means the client retried a request that already went
// through; the conflict response tells it to fetch the result instead.
func (h *Handler) claimIdempotency(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idem == nil {
		return "", true
	}
	if err := h.idem.CheckAndInsert(r.Context(), key, "documents"); err != nil {
		httpx.RespondError(w, err)
		return "", false
	}
	return key, true
}

// releaseIdempotency frees the key after a failed attempt so the client can
// retry with the same key.
func (h *Handler) releaseIdempotency(r *http.Request, key string) {
	if key == "" || h.idem == nil {
		return
	}
	if err := h.idem.Delete(r.Context(), key); err != nil {
		h.logger.WarnContext(r.Context(), "idempotency key release failed", "key", key, "error", err)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		TenantID: shared.TenantFromContext(r.Context()),
		Kind:     Kind(r.URL.Query().Get("kind")),
		Status:   Status(r.URL.Query().Get("status")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.ParseInt(limitStr, 10, 32); err == nil {
			filter.Limit = int32(limit)
		}
	}
	if filter.TenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "tenant required")
		return
	}
	docs, err := h.engine.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.engine.Get(r.Context(), tenantID, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleEmit(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.engine.Emit(r.Context(), tenantID, id, actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleVoid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req VoidRequest
	if !h.decode(w, r, &req, &req.TenantID, &req.ActorID) {
		return
	}
	doc, err := h.engine.Void(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.engine.Apply(r.Context(), tenantID, id, actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleAuthorityResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req AuthorityResultRequest
	if !h.decode(w, r, &req, &req.TenantID, &req.ActorID) {
		return
	}
	doc, err := h.engine.RecordAuthorityResult(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if !h.decode(w, r, &req, &req.TenantID, &req.ActorID) {
		return
	}
	doc, err := h.engine.CreateAdjustment(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decode(w, r, &req, &req.TenantID, &req.ActorID) {
		return
	}
	doc, err := h.engine.CreateTransfer(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

// decode reads the body, injects the tenant and actor resolved by the
// middleware, and validates the request.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any, tenantID, actor *int64) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	*tenantID = shared.TenantFromContext(r.Context())
	*actor = actorID(r)
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) docID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, stock.ErrInsufficientStock):
		httpx.Unprocessable(w, "insufficient stock for requested quantity")
	case errors.Is(err, ledger.ErrUnbalanced):
		h.logger.ErrorContext(r.Context(), "unbalanced automatic entry", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	case errors.Is(err, ErrNoLines), errors.Is(err, ErrVoidReasonRequired), errors.Is(err, ErrLineDirectionRequired):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
