package wishlist

import (
	"context"

	"github.com/rs/zerolog"
)

// Upstream is the server-side wishlist API.
type Upstream interface {
	GetWishlist(ctx context.Context) ([]string, error)
	AddWishlistItem(ctx context.Context, productRef string) error
}

// Service merges guest wishlists into the signed-in shopper's list.
type Service struct {
	Upstream Upstream
	Logger   zerolog.Logger
}

// Merge pushes guest-only items upstream and returns the merged list. It
// stops at the first push failure; items already pushed stay pushed.
func (s *Service) Merge(ctx context.Context, guest []Item) ([]Item, error) {
	refs, err := s.Upstream.GetWishlist(ctx)
	if err != nil {
		return nil, err
	}
	server := make([]Item, 0, len(refs))
	for _, ref := range refs {
		server = append(server, Item{ProductRef: ref})
	}
	merged, toPush := Merge(guest, server)
	for _, it := range toPush {
		if err := s.Upstream.AddWishlistItem(ctx, it.ProductRef); err != nil {
			s.Logger.Warn().Err(err).Str("product_ref", it.ProductRef).Msg("wishlist_push_failed")
			return nil, err
		}
	}
	if merged == nil {
		merged = []Item{}
	}
	return merged, nil
}
