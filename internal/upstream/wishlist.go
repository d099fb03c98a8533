package upstream

import (
	"context"
	"net/http"
)

// GetWishlist returns the product refs on the caller's server-side wishlist,
// in upstream order.
func (c *Client) GetWishlist(ctx context.Context) ([]string, error) {
	var out struct {
		Items []map[string]any `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "wishlist", nil, &out); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		ref := stringField(item["product"])
		if product, ok := item["product"].(map[string]any); ok {
			ref = stringField(product["id"])
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// AddWishlistItem pushes a product ref onto the server-side wishlist.
func (c *Client) AddWishlistItem(ctx context.Context, productRef string) error {
	return c.doJSON(ctx, http.MethodPost, "wishlist/items", map[string]string{"product": productRef}, nil)
}
