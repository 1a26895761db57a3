package domain

// WishlistState is the full client-side wishlist. Products holds at most one
// snapshot per product id; there is no quantity concept.
type WishlistState struct {
	Products []ProductSnapshot `json:"products"`
}

// EmptyWishlist returns the canonical empty wishlist state.
func EmptyWishlist() WishlistState {
	return WishlistState{Products: []ProductSnapshot{}}
}

// IsEmpty reports whether the wishlist holds no products.
func (s WishlistState) IsEmpty() bool {
	return len(s.Products) == 0
}

// Clone deep-copies the state.
func (s WishlistState) Clone() WishlistState {
	out := s
	out.Products = make([]ProductSnapshot, len(s.Products))
	copy(out.Products, s.Products)
	return out
}

// Contains reports whether the wishlist holds the given product id.
func (s WishlistState) Contains(productID string) bool {
	for i := range s.Products {
		if s.Products[i].ID == productID {
			return true
		}
	}
	return false
}
