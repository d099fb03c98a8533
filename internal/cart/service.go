package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/upstream"
)

// ErrLineRequired is returned when a line id is missing.
var ErrLineRequired = errors.New("cart: line id is required")

// Upstream is the subset of the commerce API the cart proxies.
type Upstream interface {
	GetCart(ctx context.Context) (upstream.Cart, error)
	AddItem(ctx context.Context, in upstream.AddItemInput) error
	UpdateItem(ctx context.Context, lineID string, quantity int) error
	RemoveItem(ctx context.Context, lineID string) error
}

// Service prices the upstream cart and forwards mutations.
type Service struct {
	Upstream Upstream
	Logger   zerolog.Logger
}

// Priced is a cart with its computed line totals and subtotal.
type Priced struct {
	ID         string
	Lines      []pricing.CartLine
	LineTotals []pricing.Money
	Subtotal   pricing.Money
	Warnings   []pricing.DataQualityWarning
}

// Get loads and prices the cart. Lines with defective data are logged and
// priced anyway.
func (s *Service) Get(ctx context.Context) (Priced, error) {
	c, err := s.Upstream.GetCart(ctx)
	if err != nil {
		return Priced{}, err
	}
	out := Priced{
		ID:         c.ID,
		Lines:      c.Lines,
		LineTotals: make([]pricing.Money, len(c.Lines)),
		Subtotal:   pricing.PriceCart(c.Lines),
		Warnings:   pricing.Audit(c.Lines),
	}
	for i, line := range c.Lines {
		out.LineTotals[i] = pricing.PriceLine(line)
	}
	if len(out.Warnings) > 0 {
		logger := s.Logger.With().Str("cart_id", c.ID).Logger()
		pricing.LogWarnings(&logger, out.Warnings)
		for _, w := range out.Warnings {
			obs.CountDataQualityWarning(w.Reason)
		}
	}
	return out, nil
}

// Add forwards a new line with its quantity normalised.
func (s *Service) Add(ctx context.Context, productRef, variationRef string, rawQuantity any) error {
	return s.Upstream.AddItem(ctx, upstream.AddItemInput{
		ProductRef:   strings.TrimSpace(productRef),
		VariationRef: strings.TrimSpace(variationRef),
		Quantity:     pricing.NormalizeQuantity(rawQuantity, 0),
	})
}

// Update changes a line's quantity, clamped to the known stock.
func (s *Service) Update(ctx context.Context, lineID string, rawQuantity any) error {
	lineID = strings.TrimSpace(lineID)
	if lineID == "" {
		return ErrLineRequired
	}
	stock := 0
	if c, err := s.Upstream.GetCart(ctx); err == nil {
		for _, line := range c.Lines {
			if line.LineID == lineID {
				stock = line.StockLimit
				break
			}
		}
	}
	return s.Upstream.UpdateItem(ctx, lineID, pricing.NormalizeQuantity(rawQuantity, stock))
}

// Remove deletes a line.
func (s *Service) Remove(ctx context.Context, lineID string) error {
	lineID = strings.TrimSpace(lineID)
	if lineID == "" {
		return ErrLineRequired
	}
	return s.Upstream.RemoveItem(ctx, lineID)
}
