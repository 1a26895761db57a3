// Package remote is the thin call wrapper around the storefront service. It
// performs the HTTP round trips and decodes the guest/authoritative response
// duality; it holds no state beyond the session identity.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-state/internal/domain"
)

// Client issues the cart and wishlist mutation calls. Every request carries a
// generated session id; an access token, once set, switches the server to
// authoritative responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessionID  string

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		sessionID:  uuid.NewString(),
	}
}

// SessionID returns the generated session identifier.
func (c *Client) SessionID() string {
	return c.sessionID
}

// SetToken installs (or clears, with "") the bearer token for authenticated
// calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type cartPayload struct {
	IsGuest bool                    `json:"isGuest"`
	Cart    *domain.CartState       `json:"cart"`
	Product *domain.ProductSnapshot `json:"product"`
	Message string                  `json:"message"`
}

type wishlistPayload struct {
	IsGuest    bool                    `json:"isGuest"`
	Wishlist   *domain.WishlistState   `json:"wishlist"`
	Product    *domain.ProductSnapshot `json:"product"`
	Wishlisted bool                    `json:"isWishlisted"`
	Message    string                  `json:"message"`
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
}

// Login authenticates against the storefront and installs the returned
// bearer token, switching subsequent calls to authoritative responses.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &payload); err != nil {
		return err
	}
	c.SetToken(payload.AccessToken)
	return nil
}

// FetchCart pulls the server's cart view.
func (c *Client) FetchCart(ctx context.Context) (CartReply, error) {
	return c.cartCall(ctx, http.MethodGet, "/api/cart", nil)
}

// AddCartItem adds quantity of a product.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) (CartReply, error) {
	return c.cartCall(ctx, http.MethodPost, "/api/cart/items", itemRequest{ProductID: productID, Quantity: quantity})
}

// UpdateCartItem replaces the quantity of an existing line.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) (CartReply, error) {
	return c.cartCall(ctx, http.MethodPut, "/api/cart/items", itemRequest{ProductID: productID, Quantity: quantity})
}

// RemoveCartItem drops a line.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) (CartReply, error) {
	return c.cartCall(ctx, http.MethodDelete, "/api/cart/items/"+url.PathEscape(productID), nil)
}

// ClearCart empties the server-side cart.
func (c *Client) ClearCart(ctx context.Context) (CartReply, error) {
	return c.cartCall(ctx, http.MethodDelete, "/api/cart", nil)
}

// FetchWishlist pulls the server's wishlist view.
func (c *Client) FetchWishlist(ctx context.Context) (WishlistReply, error) {
	return c.wishlistCall(ctx, http.MethodGet, "/api/wishlist", nil)
}

// AddWishlistItem adds a product to the wishlist.
func (c *Client) AddWishlistItem(ctx context.Context, productID string) (WishlistReply, error) {
	return c.wishlistCall(ctx, http.MethodPost, "/api/wishlist", itemRequest{ProductID: productID})
}

// RemoveWishlistItem drops a product from the wishlist.
func (c *Client) RemoveWishlistItem(ctx context.Context, productID string) (WishlistReply, error) {
	return c.wishlistCall(ctx, http.MethodDelete, "/api/wishlist/"+url.PathEscape(productID), nil)
}

// WishlistStatus asks whether the server considers a product wishlisted.
func (c *Client) WishlistStatus(ctx context.Context, productID string) (bool, error) {
	var payload wishlistPayload
	if err := c.do(ctx, http.MethodGet, "/api/wishlist/"+url.PathEscape(productID)+"/status", nil, &payload); err != nil {
		return false, err
	}
	return payload.Wishlisted, nil
}

// GetProduct resolves a full catalog snapshot for a product id. Returns
// domain.ErrNotFound for an unknown id.
func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	var snap domain.ProductSnapshot
	err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID), nil, &snap)
	if err != nil {
		var re *domain.RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (c *Client) cartCall(ctx context.Context, method, path string, body interface{}) (CartReply, error) {
	var payload cartPayload
	if err := c.do(ctx, method, path, body, &payload); err != nil {
		return nil, err
	}
	if payload.IsGuest {
		return GuestCart{Product: payload.Product, Message: payload.Message}, nil
	}
	if payload.Cart == nil {
		return nil, &domain.RemoteError{Message: "authoritative cart response without cart"}
	}
	return AuthoritativeCart{Cart: *payload.Cart, Message: payload.Message}, nil
}

func (c *Client) wishlistCall(ctx context.Context, method, path string, body interface{}) (WishlistReply, error) {
	var payload wishlistPayload
	if err := c.do(ctx, method, path, body, &payload); err != nil {
		return nil, err
	}
	if payload.IsGuest {
		return GuestWishlist{Product: payload.Product, Wishlisted: payload.Wishlisted, Message: payload.Message}, nil
	}
	if payload.Wishlist == nil {
		return nil, &domain.RemoteError{Message: "authoritative wishlist response without wishlist"}
	}
	return AuthoritativeWishlist{Wishlist: *payload.Wishlist, Message: payload.Message}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Session-Id", c.sessionID)
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.RemoteError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.RemoteError{Status: resp.StatusCode, Message: errorMessage(blob)}
	}
	if out != nil {
		if err := json.Unmarshal(blob, out); err != nil {
			return &domain.RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

// errorMessage extracts the message field from an error body, falling back to
// a generic text.
func errorMessage(blob []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(blob, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return "request failed"
}
