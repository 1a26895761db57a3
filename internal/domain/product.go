package domain

// ProductSnapshot is the copy of a catalog product embedded into cart and
// wishlist entries. It is not live-linked to the catalog: price and stock are
// whatever they were when the entry was created.
type ProductSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Currency string  `json:"currency,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
}
