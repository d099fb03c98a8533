package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/payment"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/shipping"
	"github.com/noah-isme/toko-storefront/internal/upstream"
)

const (
	submitGuardPrefix     = "checkout:submitted:"
	DefaultSubmitGuardTTL = 24 * time.Hour
)

// CartSource loads the shopper's current cart.
type CartSource interface {
	GetCart(ctx context.Context) (upstream.Cart, error)
}

// QuoteResolver resolves postal codes into delivery quotes.
type QuoteResolver interface {
	Resolve(ctx context.Context, postalCode string) (pricing.Quote, error)
}

// OrderPlacer creates upstream orders.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, payload any) (string, error)
}

// Service drives checkout sessions.
type Service struct {
	Store    *Store
	Carts    CartSource
	Resolver QuoteResolver
	Inflight *shipping.Inflight
	Orders   OrderPlacer
	Payments payment.Provider
	Guard    *redis.Client
	GuardTTL time.Duration
	Engine   pricing.Engine
	Currency string
	Logger   zerolog.Logger
	Now      func() time.Time
}

// View is a session together with totals priced against the current cart.
type View struct {
	Session Session            `json:"session"`
	Lines   []pricing.CartLine `json:"-"`
	Totals  pricing.Totals     `json:"totals"`
}

// Create starts a new session.
func (s *Service) Create(ctx context.Context) (Session, error) {
	sess := NewSession(uuid.NewString(), s.now())
	if err := s.Store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get returns the session priced against the shopper's current cart.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	cart, err := s.Carts.GetCart(ctx)
	if err != nil {
		return View{}, err
	}
	return View{Session: sess, Lines: cart.Lines, Totals: sess.Totals(s.Engine, cart.Lines)}, nil
}

// EnterAddress stores the shipping address and resolves a quote for it.
// Postal code validation happens before the session changes.
func (s *Service) EnterAddress(ctx context.Context, id string, addr Address) (Session, error) {
	code, err := shipping.ParsePostalCode(addr.PostalCode)
	if err != nil {
		return Session{}, err
	}
	addr.PostalCode = code.Display

	var gen uint64
	if _, err := s.Store.Update(ctx, id, func(sess *Session) error {
		if err := sess.EnterAddress(addr); err != nil {
			return err
		}
		gen, err = sess.BeginQuote()
		return err
	}); err != nil {
		return Session{}, err
	}
	return s.resolve(ctx, id, gen, addr.PostalCode)
}

// RefreshQuote re-runs the delivery lookup for the stored address. It is the
// explicit retry after DeliveryUnavailable and also recovers a failed session.
func (s *Service) RefreshQuote(ctx context.Context, id string) (Session, error) {
	var (
		gen    uint64
		postal string
	)
	if _, err := s.Store.Update(ctx, id, func(sess *Session) error {
		var err error
		gen, err = sess.BeginQuote()
		if err != nil {
			return err
		}
		postal = sess.Address.PostalCode
		return nil
	}); err != nil {
		return Session{}, err
	}
	return s.resolve(ctx, id, gen, postal)
}

// resolve runs the lookup outside the session lock. A newer lookup on the
// same session cancels this one, and a superseded result is never applied.
func (s *Service) resolve(ctx context.Context, id string, gen uint64, postal string) (Session, error) {
	lookupCtx, done := ctx, func() {}
	if s.Inflight != nil {
		lookupCtx, done = s.Inflight.Begin(ctx, id, gen)
	}
	q, resolveErr := s.Resolver.Resolve(lookupCtx, postal)
	done()

	sess, err := s.Store.Update(ctx, id, func(sess *Session) error {
		if resolveErr != nil {
			code := "DELIVERY_UNAVAILABLE"
			if errors.Is(resolveErr, shipping.ErrInvalidPostalCode) {
				code = "INVALID_POSTAL_CODE"
			}
			return sess.QuoteFailed(gen, code)
		}
		return sess.ApplyQuote(gen, q)
	})
	if errors.Is(err, ErrStaleQuote) {
		s.Logger.Debug().Str("session_id", id).Uint64("generation", gen).Msg("stale_quote_discarded")
		return sess, nil
	}
	if err != nil {
		return sess, err
	}
	if resolveErr != nil {
		return sess, resolveErr
	}
	return sess, nil
}

// Select applies the shopper's delivery method and tail-lift choice.
func (s *Service) Select(ctx context.Context, id string, method pricing.Method, tailLift bool) (Session, error) {
	return s.Store.Update(ctx, id, func(sess *Session) error {
		if err := sess.SelectMethod(method); err != nil {
			return err
		}
		return sess.SetTailLift(tailLift)
	})
}

// Submit places the order for the session's cart. The snapshot is built
// under the session lock; upstream calls run outside it. Replays are rejected
// by the session state and by a guard on the order contents shared across
// sessions.
func (s *Service) Submit(ctx context.Context, id string) (Receipt, error) {
	cart, err := s.Carts.GetCart(ctx)
	if err != nil {
		return Receipt{}, err
	}
	warnings := pricing.Audit(cart.Lines)
	logger := s.Logger.With().Str("session_id", id).Str("cart_id", cart.ID).Logger()
	pricing.LogWarnings(&logger, warnings)
	for _, w := range warnings {
		obs.CountDataQualityWarning(w.Reason)
	}

	var snap Snapshot
	_, err = s.Store.Update(ctx, id, func(sess *Session) error {
		var err error
		snap, err = sess.Prepare(func() (Snapshot, error) {
			return BuildSnapshot(SnapshotInput{
				CartID:    cart.ID,
				Lines:     cart.Lines,
				Address:   sess.Address,
				Selection: sess.Selection,
				Quote:     sess.Quote,
				Engine:    s.Engine,
				Currency:  s.Currency,
				Now:       s.now(),
			})
		})
		return err
	})
	var receipt Receipt
	if err == nil {
		receipt, err = s.place(ctx, id, snap)
	}
	obs.CountCheckoutSubmission(submissionResult(err))
	if err != nil {
		logger.Info().Err(err).Msg("checkout_submit_rejected")
		return Receipt{}, err
	}

	if _, err := s.Store.Update(context.WithoutCancel(ctx), id, func(sess *Session) error {
		return sess.Complete(receipt)
	}); err != nil {
		// the order exists upstream and the guard blocks replays
		logger.Error().Err(err).Str("order_id", receipt.OrderID).Msg("checkout_complete_failed")
	}
	logger.Info().Str("order_id", receipt.OrderID).Msg("checkout_submitted")
	return receipt, nil
}

func (s *Service) place(ctx context.Context, sessionID string, snap Snapshot) (Receipt, error) {
	guardKey := ""
	if s.Guard != nil {
		guardKey = guardKeyFor(sessionID, snap)
		ok, err := s.Guard.SetNX(ctx, guardKey, snap.CreatedAt().Unix(), s.guardTTL()).Result()
		if err != nil {
			return Receipt{}, err
		}
		if !ok {
			return Receipt{}, ErrAlreadySubmitted
		}
	}
	orderID, err := s.Orders.CreateOrder(ctx, snap.Payload())
	if err != nil {
		if guardKey != "" {
			_ = s.Guard.Del(context.WithoutCancel(ctx), guardKey).Err()
		}
		return Receipt{}, err
	}
	receipt := Receipt{OrderID: orderID, SubmittedAt: snap.CreatedAt()}
	if s.Payments != nil {
		session, err := s.Payments.CreateSession(ctx, orderID)
		if err != nil {
			// the order exists upstream; the shopper pays from the order page
			s.Logger.Warn().Err(err).Str("order_id", orderID).Msg("payment_session_failed")
		} else {
			receipt.PaymentURL = session.RedirectURL
		}
	}
	return receipt, nil
}

// guardKeyFor scopes the replay guard to the cart and its contents, so a
// reused cart id with a new order is not mistaken for a replay.
func guardKeyFor(sessionID string, snap Snapshot) string {
	owner := snap.CartID()
	if owner == "" {
		owner = "session:" + sessionID
	}
	return submitGuardPrefix + owner + ":" + snap.Fingerprint()
}

func submissionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadySubmitted):
		return "replay"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrIncompleteSelection):
		return "incomplete_selection"
	default:
		return "error"
	}
}

func (s *Service) guardTTL() time.Duration {
	if s.GuardTTL <= 0 {
		return DefaultSubmitGuardTTL
	}
	return s.GuardTTL
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
