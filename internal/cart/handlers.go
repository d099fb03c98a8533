package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type lineView struct {
	LineID       string  `json:"lineId"`
	ProductRef   string  `json:"productRef"`
	VariationRef string  `json:"variationRef,omitempty"`
	Title        string  `json:"title,omitempty"`
	Quantity     int     `json:"quantity"`
	StockLimit   *int    `json:"stockLimit"`
	UnitPrice    *string `json:"unitPrice"`
	LineTotal    string  `json:"lineTotal"`
}

type cartView struct {
	ID       string     `json:"id"`
	Items    []lineView `json:"items"`
	Subtotal string     `json:"subtotal"`
}

func render(p Priced) cartView {
	items := make([]lineView, 0, len(p.Lines))
	for i, line := range p.Lines {
		view := lineView{
			LineID:       line.LineID,
			ProductRef:   line.ProductRef,
			VariationRef: line.VariationRef,
			Title:        line.Title,
			Quantity:     pricing.NormalizeQuantity(line.Quantity, line.StockLimit),
			LineTotal:    pricing.Format(p.LineTotals[i]),
		}
		if line.StockLimit >= 1 {
			stock := line.StockLimit
			view.StockLimit = &stock
		}
		if line.UnitPrice.Valid {
			unit := pricing.Format(pricing.NormalizeMoney(line.UnitPrice.Decimal))
			view.UnitPrice = &unit
		}
		items = append(items, view)
	}
	return cartView{ID: p.ID, Items: items, Subtotal: pricing.Format(p.Subtotal)}
}

// Get handles GET /cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	priced, err := h.Svc.Get(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, render(priced))
}

type addRequest struct {
	Product     string          `json:"product" validate:"required,max=64"`
	VariationID string          `json:"variationId" validate:"omitempty,max=64"`
	Quantity    json.RawMessage `json:"quantity"`
}

// AddItem handles POST /cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Svc.Add(r.Context(), req.Product, req.VariationID, rawNumber(req.Quantity)); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

type updateRequest struct {
	Quantity json.RawMessage `json:"quantity" validate:"required"`
}

// UpdateItem handles PATCH /cart/items/{lineId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Svc.Update(r.Context(), chi.URLParam(r, "lineId"), rawNumber(req.Quantity)); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// RemoveItem handles DELETE /cart/items/{lineId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Remove(r.Context(), chi.URLParam(r, "lineId")); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "payload failed validation", nil)
			return false
		}
	}
	return true
}

// rawNumber keeps the client's quantity loose (number or string) for the
// normaliser.
func rawNumber(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrLineRequired) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "cart request failed", nil)
}
