package remote

import "storefront-state/internal/domain"

// The storefront service answers in two shapes, discriminated by the wire
// field isGuest. They are decoded into a sealed pair of variants so the
// engines reconcile with a type switch instead of probing field presence.

// CartReply is either GuestCart or AuthoritativeCart.
type CartReply interface {
	cartReply()
}

// GuestCart means the server holds no durable cart for this caller; only the
// echoed operation result came back and the local state stays authoritative.
type GuestCart struct {
	Product *domain.ProductSnapshot
	Message string
}

func (GuestCart) cartReply() {}

// AuthoritativeCart carries the server's full cart state, which supersedes
// local state.
type AuthoritativeCart struct {
	Cart    domain.CartState
	Message string
}

func (AuthoritativeCart) cartReply() {}

// WishlistReply is either GuestWishlist or AuthoritativeWishlist.
type WishlistReply interface {
	wishlistReply()
}

type GuestWishlist struct {
	Product    *domain.ProductSnapshot
	Wishlisted bool
	Message    string
}

func (GuestWishlist) wishlistReply() {}

type AuthoritativeWishlist struct {
	Wishlist domain.WishlistState
	Message  string
}

func (AuthoritativeWishlist) wishlistReply() {}
