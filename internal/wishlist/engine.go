// Package wishlist is the wishlist state-synchronization engine. Same
// orchestration pattern as the cart engine, without quantities, plus an
// id->membership index for O(1) Contains lookups.
package wishlist

import (
	"context"
	"log"
	"sync"

	"storefront-state/internal/domain"
	"storefront-state/internal/pubsub"
	"storefront-state/internal/remote"
	"storefront-state/internal/validate"
)

type remoteClient interface {
	FetchWishlist(ctx context.Context) (remote.WishlistReply, error)
	AddWishlistItem(ctx context.Context, productID string) (remote.WishlistReply, error)
	RemoveWishlistItem(ctx context.Context, productID string) (remote.WishlistReply, error)
}

type blobStore interface {
	LoadWishlist(ctx context.Context) domain.WishlistState
	SaveWishlist(ctx context.Context, state domain.WishlistState)
	ClearWishlist(ctx context.Context)
}

// Change is what subscribers receive on every notification.
type Change struct {
	State   domain.WishlistState
	Loading bool
	Err     error
}

// Result is the outcome of a successful mutation.
type Result struct {
	State   domain.WishlistState
	Message string
}

// Engine owns the in-memory wishlist. Mutations are serialized under the
// engine mutex, held across the remote call.
type Engine struct {
	mu      sync.Mutex
	state   domain.WishlistState
	index   map[string]bool
	lastErr error
	remote  remoteClient
	store   blobStore
	bus     *pubsub.Bus[Change]
	logger  *log.Logger
}

// New builds an engine hydrated from the local blob store.
func New(ctx context.Context, rc remoteClient, store blobStore, logger *log.Logger) *Engine {
	e := &Engine{
		remote: rc,
		store:  store,
		bus:    pubsub.New[Change](logger),
		logger: logger,
	}
	e.state = validate.WishlistState(store.LoadWishlist(ctx), logger)
	e.rebuildIndex()
	return e
}

// Subscribe registers fn for change notifications and returns its
// unsubscribe func.
func (e *Engine) Subscribe(fn func(Change)) func() {
	return e.bus.Subscribe(fn)
}

// State returns a copy of the current wishlist.
func (e *Engine) State() domain.WishlistState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Contains reports membership from the index, not by scanning Products.
// Display collaborators call this per rendered item.
func (e *Engine) Contains(productID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index[productID]
}

// Fetch refreshes the wishlist from the server. Like the cart, a non-empty
// local wishlist is never downgraded to empty by the server view.
func (e *Engine) Fetch(ctx context.Context) (domain.WishlistState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.beginPending()
	reply, err := e.remote.FetchWishlist(ctx)
	if err != nil {
		e.state = validate.WishlistState(e.store.LoadWishlist(ctx), e.logger)
		e.rebuildIndex()
		e.failPending(err)
		return domain.WishlistState{}, err
	}

	switch r := reply.(type) {
	case remote.AuthoritativeWishlist:
		// Same asymmetry as the cart: an empty server wishlist never
		// overwrites a non-empty local one.
		if !r.Wishlist.IsEmpty() || e.state.IsEmpty() {
			e.state = r.Wishlist
		}
	case remote.GuestWishlist:
		// Server has no durable wishlist; local state stands.
	}

	e.commit(ctx)
	return e.state.Clone(), nil
}

// Add puts a product snapshot on the wishlist. Adding a product that is
// already listed succeeds without a remote call.
func (e *Engine) Add(ctx context.Context, product domain.ProductSnapshot) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addLocked(ctx, product)
}

// Remove drops a product. Removing an absent id succeeds without a remote
// call or a state change.
func (e *Engine) Remove(ctx context.Context, productID string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(ctx, productID)
}

// Toggle adds the product when it is not on the wishlist and removes it when
// it is. Membership is re-derived from engine state, never taken from the
// caller: a stale caller-side flag would dispatch the wrong operation.
func (e *Engine) Toggle(ctx context.Context, product domain.ProductSnapshot) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index[product.ID] {
		return e.removeLocked(ctx, product.ID)
	}
	return e.addLocked(ctx, product)
}

// Reset clears the in-memory state and the persisted blob without touching
// the remote service.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = domain.EmptyWishlist()
	e.rebuildIndex()
	e.lastErr = nil
	e.store.ClearWishlist(ctx)
	e.notify(false)
}

func (e *Engine) addLocked(ctx context.Context, product domain.ProductSnapshot) (Result, error) {
	id, err := validate.ProductID(product.ID)
	if err != nil {
		return Result{}, err
	}
	product.ID = id
	if err := validate.WishlistEntry(product); err != nil {
		return Result{}, err
	}
	if e.index[id] {
		return Result{State: e.state.Clone(), Message: "already on wishlist"}, nil
	}

	e.beginPending()
	reply, err := e.remote.AddWishlistItem(ctx, id)
	if err != nil {
		e.failPending(err)
		return Result{}, err
	}

	msg := e.applyReply(reply, func(state *domain.WishlistState, echoed *domain.ProductSnapshot) {
		entry := product
		if echoed != nil {
			entry = *echoed
		}
		state.Products = append(state.Products, entry)
	})
	e.commit(ctx)
	if msg == "" {
		msg = "added to wishlist"
	}
	return Result{State: e.state.Clone(), Message: msg}, nil
}

func (e *Engine) removeLocked(ctx context.Context, productID string) (Result, error) {
	id, err := validate.ProductID(productID)
	if err != nil {
		return Result{}, err
	}
	if !e.index[id] {
		return Result{State: e.state.Clone(), Message: "not on wishlist"}, nil
	}

	e.beginPending()
	reply, err := e.remote.RemoveWishlistItem(ctx, id)
	if err != nil {
		e.failPending(err)
		return Result{}, err
	}

	msg := e.applyReply(reply, func(state *domain.WishlistState, _ *domain.ProductSnapshot) {
		kept := state.Products[:0]
		for _, p := range state.Products {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		state.Products = kept
	})
	e.commit(ctx)
	if msg == "" {
		msg = "removed from wishlist"
	}
	return Result{State: e.state.Clone(), Message: msg}, nil
}

func (e *Engine) applyReply(reply remote.WishlistReply, mutate func(*domain.WishlistState, *domain.ProductSnapshot)) string {
	switch r := reply.(type) {
	case remote.AuthoritativeWishlist:
		e.state = r.Wishlist
		return r.Message
	case remote.GuestWishlist:
		mutate(&e.state, r.Product)
		return r.Message
	default:
		return ""
	}
}

func (e *Engine) beginPending() {
	e.lastErr = nil
	e.notify(true)
}

func (e *Engine) failPending(err error) {
	e.lastErr = err
	e.notify(false)
}

// commit re-validates the state, rebuilds the membership index, persists and
// notifies. The index is rebuilt on every state replacement: an index that
// drifts from Products is a correctness bug.
func (e *Engine) commit(ctx context.Context) {
	e.state = validate.WishlistState(e.state, e.logger)
	e.rebuildIndex()
	e.store.SaveWishlist(ctx, e.state)
	e.lastErr = nil
	e.notify(false)
}

func (e *Engine) rebuildIndex() {
	e.index = make(map[string]bool, len(e.state.Products))
	for _, p := range e.state.Products {
		e.index[p.ID] = true
	}
}

func (e *Engine) notify(loading bool) {
	e.bus.Publish(Change{State: e.state.Clone(), Loading: loading, Err: e.lastErr})
}
