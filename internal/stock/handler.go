package stock

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/factora-erp/factora/internal/platform/httpx"
	"github.com/factora-erp/factora/internal/shared"
)

// Handler wires read-only stock endpoints. Writes happen through the
// document lifecycle, never directly against the ledger.
type Handler struct {
	service *Service
}

// NewHandler constructs the stock handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance", h.handleBalance)
	r.Get("/movements", h.handleMovements)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID, ok := h.pair(w, r)
	if !ok {
		return
	}
	qty, err := h.service.CurrentStock(r.Context(), shared.TenantFromContext(r.Context()), warehouseID, productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"warehouse_id": warehouseID,
		"product_id":   productID,
		"qty":          qty,
	})
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID, ok := h.pair(w, r)
	if !ok {
		return
	}
	filter := MovementFilter{WarehouseID: warehouseID, ProductID: productID}
	if from := r.URL.Query().Get("from"); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = ts
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = ts
		}
	}
	movements, err := h.service.Movements(r.Context(), shared.TenantFromContext(r.Context()), filter)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, err)
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) pair(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	warehouseID, err1 := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	productID, err2 := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err1 != nil || err2 != nil || warehouseID <= 0 || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "warehouse_id and product_id required")
		return 0, 0, false
	}
	return warehouseID, productID, true
}
