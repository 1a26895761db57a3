// Package cart is the cart state-synchronization engine. It owns the
// in-memory cart, keeps it consistent between the local blob store and the
// remote storefront service, and broadcasts every change to subscribers.
package cart

import (
	"context"
	"errors"
	"log"
	"sync"

	"storefront-state/internal/domain"
	"storefront-state/internal/pubsub"
	"storefront-state/internal/remote"
	"storefront-state/internal/validate"
)

type remoteClient interface {
	FetchCart(ctx context.Context) (remote.CartReply, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (remote.CartReply, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) (remote.CartReply, error)
	RemoveCartItem(ctx context.Context, productID string) (remote.CartReply, error)
	ClearCart(ctx context.Context) (remote.CartReply, error)
}

type productResolver interface {
	GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
}

type blobStore interface {
	LoadCart(ctx context.Context) domain.CartState
	SaveCart(ctx context.Context, state domain.CartState)
	ClearCart(ctx context.Context)
}

// Change is what subscribers receive on every notification.
type Change struct {
	State   domain.CartState
	Loading bool
	Err     error
}

// Result is the outcome of a successful mutation.
type Result struct {
	State   domain.CartState
	Message string
}

// Engine orchestrates validator, adapters and reconciliation for the cart.
// Mutations are serialized: the engine mutex is held across the remote call,
// so two in-flight operations cannot resolve out of order and drop one
// another's writes.
type Engine struct {
	mu       sync.Mutex
	state    domain.CartState
	lastErr  error
	remote   remoteClient
	products productResolver
	store    blobStore
	bus      *pubsub.Bus[Change]
	logger   *log.Logger
}

// New builds an engine hydrated from the local blob store.
func New(ctx context.Context, rc remoteClient, products productResolver, store blobStore, logger *log.Logger) *Engine {
	e := &Engine{
		remote:   rc,
		products: products,
		store:    store,
		bus:      pubsub.New[Change](logger),
		logger:   logger,
	}
	e.state = validate.CartState(store.LoadCart(ctx), logger)
	return e
}

// Subscribe registers fn for change notifications and returns its
// unsubscribe func. Callbacks run synchronously on the mutating goroutine
// and must not call back into the engine.
func (e *Engine) Subscribe(fn func(Change)) func() {
	return e.bus.Subscribe(fn)
}

// State returns a copy of the current cart.
func (e *Engine) State() domain.CartState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Fetch refreshes the cart from the server. A non-empty local cart is never
// downgraded to empty by the server view: before authentication the server
// has not seen the guest's accumulated cart yet. On a remote failure the
// engine falls back to the last persisted local state and re-raises the
// error.
func (e *Engine) Fetch(ctx context.Context) (domain.CartState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.beginPending()
	reply, err := e.remote.FetchCart(ctx)
	if err != nil {
		e.state = validate.CartState(e.store.LoadCart(ctx), e.logger)
		e.failPending(err)
		return domain.CartState{}, err
	}

	switch r := reply.(type) {
	case remote.AuthoritativeCart:
		// An empty server cart never overwrites a non-empty local one: the
		// server may not have seen the guest's accumulated cart yet.
		if !r.Cart.IsEmpty() || e.state.IsEmpty() {
			e.state = r.Cart
		}
	case remote.GuestCart:
		// Server has no durable cart; local state stands.
	}

	e.commit(ctx)
	return e.state.Clone(), nil
}

// Add puts quantity of a product into the cart. The full snapshot is
// resolved from the catalog and stock is enforced before any remote call.
func (e *Engine) Add(ctx context.Context, productID string, quantity int) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := validate.ProductID(productID)
	if err != nil {
		return Result{}, err
	}
	if err := validate.Quantity(quantity); err != nil {
		return Result{}, err
	}
	snap, err := e.resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}

	existing := 0
	if line := e.state.Find(id); line != nil {
		existing = line.Quantity
	}
	if snap.Stock == 0 {
		return Result{}, domain.Validation(domain.CodeInsufficientStock, "product %s is out of stock", id)
	}
	if existing+quantity > snap.Stock {
		return Result{}, domain.Validation(domain.CodeInsufficientStock,
			"only %d of product %s in stock", snap.Stock, id)
	}
	if existing+quantity > validate.MaxQuantity {
		return Result{}, domain.Validation(domain.CodeInvalidQuantity,
			"quantity must be between 1 and %d", validate.MaxQuantity)
	}

	e.beginPending()
	reply, err := e.remote.AddCartItem(ctx, id, quantity)
	if err != nil {
		e.failPending(err)
		return Result{}, err
	}

	msg := e.applyCartReply(reply, func(state *domain.CartState, echoed *domain.ProductSnapshot) {
		product := *snap
		if echoed != nil {
			product = *echoed
		}
		if line := state.Find(id); line != nil {
			line.Quantity += quantity
		} else {
			state.Items = append(state.Items, domain.CartLine{Product: product, Quantity: quantity})
		}
	})
	e.commit(ctx)
	if msg == "" {
		msg = "added to cart"
	}
	return Result{State: e.state.Clone(), Message: msg}, nil
}

// Update replaces the quantity of a cart line. A zero quantity is a remove.
func (e *Engine) Update(ctx context.Context, productID string, quantity int) (Result, error) {
	if quantity == 0 {
		return e.Remove(ctx, productID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := validate.ProductID(productID)
	if err != nil {
		return Result{}, err
	}
	if err := validate.Quantity(quantity); err != nil {
		return Result{}, err
	}
	snap, err := e.resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if quantity > snap.Stock {
		return Result{}, domain.Validation(domain.CodeInsufficientStock,
			"only %d of product %s in stock", snap.Stock, id)
	}

	e.beginPending()
	reply, err := e.remote.UpdateCartItem(ctx, id, quantity)
	if err != nil {
		e.failPending(err)
		return Result{}, err
	}

	msg := e.applyCartReply(reply, func(state *domain.CartState, echoed *domain.ProductSnapshot) {
		if line := state.Find(id); line != nil {
			line.Quantity = quantity
			return
		}
		product := *snap
		if echoed != nil {
			product = *echoed
		}
		state.Items = append(state.Items, domain.CartLine{Product: product, Quantity: quantity})
	})
	e.commit(ctx)
	if msg == "" {
		msg = "cart updated"
	}
	return Result{State: e.state.Clone(), Message: msg}, nil
}

// Remove drops a cart line. Removing an id that is not in the cart succeeds
// without a remote call or a state change.
func (e *Engine) Remove(ctx context.Context, productID string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := validate.ProductID(productID)
	if err != nil {
		return Result{}, err
	}
	if e.state.Find(id) == nil {
		return Result{State: e.state.Clone(), Message: "not in cart"}, nil
	}

	e.beginPending()
	reply, err := e.remote.RemoveCartItem(ctx, id)
	if err != nil {
		e.failPending(err)
		return Result{}, err
	}

	msg := e.applyCartReply(reply, func(state *domain.CartState, _ *domain.ProductSnapshot) {
		kept := state.Items[:0]
		for _, line := range state.Items {
			if line.Product.ID != id {
				kept = append(kept, line)
			}
		}
		state.Items = kept
	})
	e.commit(ctx)
	if msg == "" {
		msg = "removed from cart"
	}
	return Result{State: e.state.Clone(), Message: msg}, nil
}

// Clear empties the cart locally and remotely.
func (e *Engine) Clear(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.beginPending()
	reply, err := e.remote.ClearCart(ctx)
	if err != nil {
		e.failPending(err)
		return Result{}, err
	}

	msg := e.applyCartReply(reply, func(state *domain.CartState, _ *domain.ProductSnapshot) {
		*state = domain.EmptyCart()
	})
	e.commit(ctx)
	if msg == "" {
		msg = "cart cleared"
	}
	return Result{State: e.state.Clone(), Message: msg}, nil
}

// Reset clears the in-memory state and the persisted blob without touching
// the remote service. Used on logout.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = domain.EmptyCart()
	e.lastErr = nil
	e.store.ClearCart(ctx)
	e.notify(false)
}

// applyCartReply runs the reconciliation policy: a guest reply mutates the
// local state directly via mutate, an authoritative reply replaces it
// wholesale. Returns the server message, if any.
func (e *Engine) applyCartReply(reply remote.CartReply, mutate func(*domain.CartState, *domain.ProductSnapshot)) string {
	switch r := reply.(type) {
	case remote.AuthoritativeCart:
		e.state = r.Cart
		return r.Message
	case remote.GuestCart:
		mutate(&e.state, r.Product)
		return r.Message
	default:
		return ""
	}
}

func (e *Engine) resolve(ctx context.Context, id string) (*domain.ProductSnapshot, error) {
	if e.products == nil {
		return nil, errors.New("product resolver unavailable")
	}
	snap, err := e.products.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validation(domain.CodeInvalidProduct, "product %s not found", id)
		}
		return nil, err
	}
	if err := validate.Snapshot(*snap, true); err != nil {
		return nil, err
	}
	return snap, nil
}

func (e *Engine) beginPending() {
	e.lastErr = nil
	e.notify(true)
}

func (e *Engine) failPending(err error) {
	e.lastErr = err
	e.notify(false)
}

// commit re-validates the whole state, persists it and notifies success.
func (e *Engine) commit(ctx context.Context) {
	e.state = validate.CartState(e.state, e.logger)
	e.store.SaveCart(ctx, e.state)
	e.lastErr = nil
	e.notify(false)
}

func (e *Engine) notify(loading bool) {
	e.bus.Publish(Change{State: e.state.Clone(), Loading: loading, Err: e.lastErr})
}
