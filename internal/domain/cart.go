package domain

// CartLine is one product in the cart. At most one line exists per product id.
type CartLine struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// CartState is the full client-side cart. TotalItems and TotalPrice are
// derived fields: they are recomputed from Items on every load and mutation
// and never trusted from a persisted blob or a wire payload.
type CartState struct {
	Items      []CartLine `json:"items"`
	TotalItems int        `json:"totalItems"`
	TotalPrice float64    `json:"totalPrice"`
}

// EmptyCart returns the canonical empty cart state.
func EmptyCart() CartState {
	return CartState{Items: []CartLine{}}
}

// IsEmpty reports whether the cart holds no lines.
func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// Clone deep-copies the state so callers never hold a reference into engine
// internals.
func (s CartState) Clone() CartState {
	out := s
	out.Items = make([]CartLine, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

// Find returns the line for the given product id, or nil.
func (s CartState) Find(productID string) *CartLine {
	for i := range s.Items {
		if s.Items[i].Product.ID == productID {
			return &s.Items[i]
		}
	}
	return nil
}
