package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"stockroom/m/domain"
	"stockroom/m/internal/inventory"
)

// Supplier handlers

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req inventory.SupplierInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := h.svc.CreateSupplier(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, supplier)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	supplier, err := h.svc.FindSupplier(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if supplier == nil {
		respondError(w, http.StatusNotFound, "supplier not found")
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var req inventory.SupplierInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := h.svc.UpdateSupplier(r.Context(), id, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

// Garment handlers

func (h *Handler) listGarments(w http.ResponseWriter, r *http.Request) {
	filter := domain.GarmentFilter{
		Type:  strings.TrimSpace(r.URL.Query().Get("type")),
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	garments, err := h.svc.ListGarments(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, garments)
}

func (h *Handler) registerGarment(w http.ResponseWriter, r *http.Request) {
	var req inventory.GarmentRegistration
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reg, err := h.svc.RegisterGarment(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, reg)
}

func (h *Handler) garmentTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.GarmentTypes())
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "threshold must be a positive integer")
			return
		}
		threshold = n
	}
	garments, err := h.svc.LowStock(r.Context(), threshold)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, garments)
}

func (h *Handler) getGarment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid garment id")
		return
	}
	garment, err := h.svc.FindGarment(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if garment == nil {
		respondError(w, http.StatusNotFound, "garment not found")
		return
	}
	respondJSON(w, http.StatusOK, garment)
}

func (h *Handler) updateGarment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid garment id")
		return
	}
	var req inventory.GarmentUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	garment, err := h.svc.UpdateGarment(r.Context(), id, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, garment)
}

func (h *Handler) deleteGarment(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleOwner) {
		return
	}
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid garment id")
		return
	}
	removed, err := h.svc.DeleteGarment(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "deleted", "removed_sales": removed})
}

// Sales handlers

// saleLineRequest leaves Price out to sell at the garment's current sale
// price.
type saleLineRequest struct {
	GarmentID int64            `json:"garment_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type saleRequest struct {
	Items []saleLineRequest `json:"items"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := make([]domain.SaleItem, len(req.Items))
	for i, item := range req.Items {
		lines[i] = domain.SaleItem{GarmentID: item.GarmentID, Quantity: item.Quantity}
		if item.Price != nil {
			lines[i].Price = *item.Price
			continue
		}
		garment, err := h.svc.FindGarment(r.Context(), item.GarmentID)
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		if garment != nil {
			lines[i].Price = garment.SalePrice
		}
	}

	sale, err := h.svc.RegisterSale(r.Context(), lines, strings.TrimSpace(r.Header.Get(IdempotencyHeader)))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	sales, err := h.svc.ListSales(r.Context(), from, to)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	detail, err := h.svc.SaleDetail(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "sale not found")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Reports

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) stockByType(w http.ResponseWriter, r *http.Request) {
	stock, err := h.svc.StockByType(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.DailyReport(r.Context(), strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) lastSevenDays(w http.ResponseWriter, r *http.Request) {
	series, err := h.svc.SalesByDayLast7(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}
