// Package validate holds the pure input checks and the self-healing
// whole-state normalization run after every load and mutation. Nothing in
// here mutates its arguments or talks to the network.
package validate

import (
	"log"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-state/internal/domain"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 10000

// ProductID checks and normalizes a product identifier, returning the trimmed
// form.
func ProductID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", domain.Validation(domain.CodeInvalidIdentifier, "product id required")
	}
	return trimmed, nil
}

// Quantity checks a cart quantity. Zero is rejected here: a zero request is a
// remove and is redirected by the engine before validation.
func Quantity(q int) error {
	if q < 1 || q > MaxQuantity {
		return domain.Validation(domain.CodeInvalidQuantity, "quantity must be between 1 and %d", MaxQuantity)
	}
	return nil
}

// Snapshot checks a product snapshot. Stock is required for cart entries and
// optional for wishlist entries.
func Snapshot(p domain.ProductSnapshot, needStock bool) error {
	if strings.TrimSpace(p.ID) == "" {
		return domain.Validation(domain.CodeInvalidProduct, "product snapshot missing id")
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return domain.Validation(domain.CodeInvalidProduct, "product %s has invalid price", p.ID)
	}
	if needStock && p.Stock < 0 {
		return domain.Validation(domain.CodeInvalidProduct, "product %s has invalid stock", p.ID)
	}
	return nil
}

// CartLine checks a whole cart line.
func CartLine(line domain.CartLine) error {
	if err := Snapshot(line.Product, true); err != nil {
		return err
	}
	return Quantity(line.Quantity)
}

// WishlistEntry checks a wishlist product snapshot.
func WishlistEntry(p domain.ProductSnapshot) error {
	return Snapshot(p, false)
}

// CartState normalizes an untrusted cart state: entries that fail validation
// are dropped (logged, never raised), duplicate product ids collapse to the
// last occurrence, and the derived totals are recomputed. Every state the
// engine persists or hands to a subscriber has passed through here.
func CartState(state domain.CartState, logger *log.Logger) domain.CartState {
	out := domain.EmptyCart()
	index := make(map[string]int, len(state.Items))
	for _, line := range state.Items {
		if err := CartLine(line); err != nil {
			logf(logger, "dropping invalid cart line %q: %v", line.Product.ID, err)
			continue
		}
		line.Product.ID = strings.TrimSpace(line.Product.ID)
		if at, ok := index[line.Product.ID]; ok {
			// Last write per id wins.
			out.Items[at] = line
			continue
		}
		index[line.Product.ID] = len(out.Items)
		out.Items = append(out.Items, line)
	}

	total := decimal.Zero
	for _, line := range out.Items {
		out.TotalItems += line.Quantity
		price := decimal.NewFromFloat(line.Product.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	out.TotalPrice = total.Round(2).InexactFloat64()
	return out
}

// WishlistState normalizes an untrusted wishlist state: invalid entries are
// dropped and duplicate ids collapse to the first occurrence.
func WishlistState(state domain.WishlistState, logger *log.Logger) domain.WishlistState {
	out := domain.EmptyWishlist()
	seen := make(map[string]struct{}, len(state.Products))
	for _, p := range state.Products {
		if err := WishlistEntry(p); err != nil {
			logf(logger, "dropping invalid wishlist entry %q: %v", p.ID, err)
			continue
		}
		p.ID = strings.TrimSpace(p.ID)
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out.Products = append(out.Products, p)
	}
	return out
}

func logf(logger *log.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
