package wishlist

import "strings"

// Item is one wishlist entry keyed by product ref.
type Item struct {
	ProductRef string `json:"product" validate:"max=64"`
}

// Merge unions a guest wishlist into the server wishlist. Server order is
// kept, guest-only items follow in guest order, blank refs and duplicates
// are dropped. toPush lists the guest items the server does not have yet.
func Merge(guest, server []Item) (merged []Item, toPush []Item) {
	seen := make(map[string]struct{}, len(guest)+len(server))
	add := func(it Item) bool {
		ref := strings.TrimSpace(it.ProductRef)
		if ref == "" {
			return false
		}
		if _, dup := seen[ref]; dup {
			return false
		}
		seen[ref] = struct{}{}
		merged = append(merged, Item{ProductRef: ref})
		return true
	}
	for _, it := range server {
		add(it)
	}
	for _, it := range guest {
		if add(it) {
			toPush = append(toPush, merged[len(merged)-1])
		}
	}
	return merged, toPush
}
