// Package store is the local persistence adapter: one serialized blob per
// entity, written whole. Corruption and write failures are contained here and
// never reach the engines as errors.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"storefront-state/internal/domain"
	"storefront-state/internal/storage"
)

const (
	cartKey     = "cart"
	wishlistKey = "wishlist"
)

// Store reads and writes validated state blobs through a storage Backend.
// In-memory state stays authoritative for the session, so durability is
// best-effort: failures are logged and swallowed.
type Store struct {
	backend storage.Backend
	logger  *log.Logger
}

func New(backend storage.Backend, logger *log.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// LoadCart returns the persisted cart, the canonical empty cart when the key
// is missing, and self-heals to empty on a corrupted blob. It never fails.
func (s *Store) LoadCart(ctx context.Context) domain.CartState {
	var state domain.CartState
	if !s.load(ctx, cartKey, &state) {
		return domain.EmptyCart()
	}
	return state
}

// SaveCart persists an already-validated cart state.
func (s *Store) SaveCart(ctx context.Context, state domain.CartState) {
	s.save(ctx, cartKey, state)
}

// ClearCart erases the persisted cart blob.
func (s *Store) ClearCart(ctx context.Context) {
	s.clear(ctx, cartKey)
}

// LoadWishlist mirrors LoadCart for the wishlist blob.
func (s *Store) LoadWishlist(ctx context.Context) domain.WishlistState {
	var state domain.WishlistState
	if !s.load(ctx, wishlistKey, &state) {
		return domain.EmptyWishlist()
	}
	return state
}

// SaveWishlist persists an already-validated wishlist state.
func (s *Store) SaveWishlist(ctx context.Context, state domain.WishlistState) {
	s.save(ctx, wishlistKey, state)
}

// ClearWishlist erases the persisted wishlist blob.
func (s *Store) ClearWishlist(ctx context.Context) {
	s.clear(ctx, wishlistKey)
}

// load reports whether out now holds a fully decoded blob. On any failure the
// caller must discard out: json.Unmarshal fills fields it decoded before the
// error, and a half-decoded state must never surface.
func (s *Store) load(ctx context.Context, key string, out interface{}) bool {
	blob, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logf("load %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(blob, out); err != nil {
		// A corrupted blob has no recovery path; drop it.
		s.logf("load %s: corrupt blob, resetting: %v", key, err)
		if delErr := s.backend.Delete(ctx, key); delErr != nil {
			s.logf("delete corrupt %s: %v", key, delErr)
		}
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, key string, state interface{}) {
	blob, err := json.Marshal(state)
	if err != nil {
		s.logf("marshal %s: %v", key, err)
		return
	}
	if err := s.backend.Set(ctx, key, blob); err != nil {
		s.logf("save %s: %v", key, err)
	}
}

func (s *Store) clear(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logf("clear %s: %v", key, err)
	}
}

func (s *Store) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
