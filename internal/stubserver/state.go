package stubserver

import (
	"sync"

	"github.com/google/uuid"

	"storefront-state/internal/domain"
	"storefront-state/internal/validate"
)

// backend holds the fake storefront's in-memory data: the product catalog,
// issued tokens and one cart/wishlist pair per authenticated account. Guests
// get nothing durable, which is exactly the duality the sync engines must
// reconcile.
type backend struct {
	mu       sync.Mutex
	catalog  map[string]domain.ProductSnapshot
	tokens   map[string]string // token -> account id
	accounts map[string]*account
}

type account struct {
	cart     domain.CartState
	wishlist domain.WishlistState
}

func newBackend(catalog []domain.ProductSnapshot) *backend {
	b := &backend{
		catalog:  make(map[string]domain.ProductSnapshot, len(catalog)),
		tokens:   make(map[string]string),
		accounts: make(map[string]*account),
	}
	for _, p := range catalog {
		b.catalog[p.ID] = p
	}
	return b
}

func (b *backend) product(id string) (domain.ProductSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.catalog[id]
	return p, ok
}

// login issues a bearer token for the given account id, creating the account
// on first use.
func (b *backend) login(accountID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[accountID]; !ok {
		b.accounts[accountID] = &account{
			cart:     domain.EmptyCart(),
			wishlist: domain.EmptyWishlist(),
		}
	}
	token := uuid.NewString()
	b.tokens[token] = accountID
	return token
}

// accountForToken resolves a bearer token, returning nil for guests.
func (b *backend) accountForToken(token string) *account {
	if token == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.tokens[token]
	if !ok {
		return nil
	}
	return b.accounts[id]
}

// withCart mutates an account's cart under the backend lock and returns the
// normalized result.
func (b *backend) withCart(acc *account, mutate func(*domain.CartState)) domain.CartState {
	b.mu.Lock()
	defer b.mu.Unlock()
	mutate(&acc.cart)
	acc.cart = validate.CartState(acc.cart, nil)
	return acc.cart.Clone()
}

// withWishlist mutates an account's wishlist under the backend lock.
func (b *backend) withWishlist(acc *account, mutate func(*domain.WishlistState)) domain.WishlistState {
	b.mu.Lock()
	defer b.mu.Unlock()
	mutate(&acc.wishlist)
	acc.wishlist = validate.WishlistState(acc.wishlist, nil)
	return acc.wishlist.Clone()
}
