package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// CookieConfig controls the checkout session cookie.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}

// Handler exposes the checkout session endpoints.
type Handler struct {
	Svc      *Service
	Cookie   CookieConfig
	Validate *validator.Validate
}

// SessionMiddleware copies the session id from the cookie onto the request
// context so handlers, logs and traces can see it.
func SessionMiddleware(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(cookieName); err == nil {
				if id := strings.TrimSpace(c.Value); id != "" {
					r = r.WithContext(common.WithSessionID(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type sessionView struct {
	ID        string              `json:"id"`
	State     State               `json:"state"`
	Address   *Address            `json:"address"`
	Selection pricing.Selection   `json:"selection"`
	Quote     *shipping.QuoteView `json:"quote"`
	LastError string              `json:"lastError,omitempty"`
	Receipt   *Receipt            `json:"receipt,omitempty"`
	Totals    *pricing.Totals     `json:"totals,omitempty"`
	ExpiresAt string              `json:"expiresAt"`
}

func (h *Handler) render(sess Session, totals *pricing.Totals) sessionView {
	view := sessionView{
		ID:        sess.ID,
		State:     sess.State,
		Address:   sess.Address,
		Selection: pricing.Selection{Method: sess.Selection.Chosen(), TailLift: sess.Selection.TailLift},
		LastError: sess.LastError,
		Receipt:   sess.Receipt,
		Totals:    totals,
		ExpiresAt: sess.UpdatedAt.Add(h.Svc.Store.ttl()).Format(time.RFC3339),
	}
	if sess.Quote != nil {
		q := shipping.NewQuoteView(*sess.Quote)
		view.Quote = &q
	}
	return view
}

// Create handles POST /checkout/session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.SetCookie(w, h.cookie(sess.ID))
	common.Data(w, http.StatusCreated, h.render(sess, nil))
}

// Get handles GET /checkout/session.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(r.Context())
	if !ok {
		h.writeError(w, ErrSessionNotFound)
		return
	}
	view, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.render(view.Session, &view.Totals))
}

// PutAddress handles PUT /checkout/session/address.
func (h *Handler) PutAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(r.Context())
	if !ok {
		h.writeError(w, ErrSessionNotFound)
		return
	}
	var addr Address
	if !h.decode(w, r, &addr) {
		return
	}
	sess, err := h.Svc.EnterAddress(r.Context(), id, addr)
	h.respond(w, sess, err)
}

// RefreshQuote handles POST /checkout/session/quote.
func (h *Handler) RefreshQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(r.Context())
	if !ok {
		h.writeError(w, ErrSessionNotFound)
		return
	}
	sess, err := h.Svc.RefreshQuote(r.Context(), id)
	h.respond(w, sess, err)
}

type selectionRequest struct {
	Method   string `json:"method" validate:"omitempty,oneof=none economy premium"`
	TailLift bool   `json:"tailLift"`
}

// PutSelection handles PUT /checkout/session/selection.
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(r.Context())
	if !ok {
		h.writeError(w, ErrSessionNotFound)
		return
	}
	var req selectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	method, _ := pricing.ParseMethod(req.Method)
	sess, err := h.Svc.Select(r.Context(), id, method, req.TailLift)
	h.respond(w, sess, err)
}

// Submit handles POST /checkout/session/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(r.Context())
	if !ok {
		h.writeError(w, ErrSessionNotFound)
		return
	}
	receipt, err := h.Svc.Submit(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, receipt)
}

func (h *Handler) respond(w http.ResponseWriter, sess Session, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.render(sess, nil))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "payload failed validation", validationDetails(err))
			return false
		}
	}
	return true
}

func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func (h *Handler) cookie(id string) *http.Cookie {
	name := h.Cookie.Name
	if name == "" {
		name = "checkout_sid"
	}
	ttl := h.Cookie.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	sameSite := h.Cookie.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		Domain:   h.Cookie.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   h.Cookie.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shipping.ErrInvalidPostalCode), errors.Is(err, shipping.ErrDeliveryUnavailable):
		shipping.WriteError(w, err)
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "checkout session not found or expired", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "the cart has no items", nil)
	case errors.Is(err, ErrIncompleteSelection):
		common.JSONError(w, http.StatusConflict, "INCOMPLETE_SELECTION", "choose a delivery method before placing the order", nil)
	case errors.Is(err, ErrAlreadySubmitted):
		common.JSONError(w, http.StatusConflict, "ALREADY_SUBMITTED", "this order has already been submitted", nil)
	case errors.Is(err, ErrMethodUnavailable):
		common.JSONError(w, http.StatusConflict, "METHOD_UNAVAILABLE", "the delivery method is not available for this address", nil)
	case errors.Is(err, ErrNoQuote):
		common.JSONError(w, http.StatusConflict, "NO_QUOTE", "request a delivery quote first", nil)
	case errors.Is(err, ErrNoAddress):
		common.JSONError(w, http.StatusConflict, "NO_ADDRESS", "enter a shipping address first", nil)
	default:
		if common.WriteAppError(w, err) {
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
