package shipping

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// QuoteResolver resolves postal codes into quotes.
type QuoteResolver interface {
	Resolve(ctx context.Context, postalCode string) (pricing.Quote, error)
}

// Handler exposes the delivery rate lookup endpoint.
type Handler struct {
	Resolver QuoteResolver
}

// GetQuote handles GET /delivery/{postalCode}.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	if h.Resolver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery resolver not configured", nil)
		return
	}
	q, err := h.Resolver.Resolve(r.Context(), chi.URLParam(r, "postalCode"))
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, NewQuoteView(q))
}

// WriteError maps resolver errors onto the API error envelope.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPostalCode):
		common.JSONError(w, http.StatusBadRequest, "INVALID_POSTAL_CODE", "postal code must have at least 3 characters", nil)
	case errors.Is(err, ErrDeliveryUnavailable):
		common.JSONError(w, http.StatusBadGateway, "DELIVERY_UNAVAILABLE", "delivery rates are unavailable, please try again", map[string]any{"retryable": true})
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery lookup failed", nil)
	}
}

// MethodView describes one delivery method in API responses.
type MethodView struct {
	Available bool    `json:"available"`
	Price     *string `json:"price"`
}

// QuoteView is the JSON rendering of a quote.
type QuoteView struct {
	PostalCode    string                `json:"postalCode"`
	Methods       map[string]MethodView `json:"methods"`
	DefaultMethod pricing.Method        `json:"defaultMethod"`
	FetchedAt     string                `json:"fetchedAt"`
}

// NewQuoteView renders q with two-place price strings.
func NewQuoteView(q pricing.Quote) QuoteView {
	methods := make(map[string]MethodView, 2)
	for _, m := range []pricing.Method{pricing.MethodEconomy, pricing.MethodPremium} {
		view := MethodView{}
		if price, ok := q.Price(m); ok {
			s := pricing.Format(price)
			view = MethodView{Available: true, Price: &s}
		}
		methods[string(m)] = view
	}
	return QuoteView{
		PostalCode:    q.PostalCode,
		Methods:       methods,
		DefaultMethod: q.DefaultMethod(),
		FetchedAt:     q.FetchedAt.Format(time.RFC3339),
	}
}
