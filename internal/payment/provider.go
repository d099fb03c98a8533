package payment

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidRedirect is returned when the provider hands back an unusable URL.
var ErrInvalidRedirect = errors.New("payment: provider returned an invalid redirect url")

// Session is a hosted checkout the browser is redirected to.
type Session struct {
	Provider    string
	OrderID     string
	RedirectURL string
}

// Provider opens hosted payment sessions. Payment state itself is owned by
// the provider and upstream.
type Provider interface {
	CreateSession(ctx context.Context, orderID string) (Session, error)
}

type sessionCreator interface {
	CreatePaymentSession(ctx context.Context, orderID string) (string, error)
}

// Hosted asks upstream to open a session with the configured payment
// gateway. upstream.Client satisfies the creator.
type Hosted struct {
	Upstream sessionCreator
}

// CreateSession implements Provider.
func (h Hosted) CreateSession(ctx context.Context, orderID string) (Session, error) {
	if h.Upstream == nil {
		return Session{}, errors.New("payment: upstream not configured")
	}
	if strings.TrimSpace(orderID) == "" {
		return Session{}, errors.New("payment: order id is required")
	}
	raw, err := h.Upstream.CreatePaymentSession(ctx, orderID)
	if err != nil {
		return Session{}, err
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return Session{}, ErrInvalidRedirect
	}
	return Session{Provider: "hosted", OrderID: orderID, RedirectURL: u.String()}, nil
}

// Disabled is used when hosted payment is switched off; orders are created
// without a redirect.
type Disabled struct{}

// CreateSession implements Provider.
func (Disabled) CreateSession(_ context.Context, orderID string) (Session, error) {
	return Session{Provider: "none", OrderID: orderID}, nil
}
