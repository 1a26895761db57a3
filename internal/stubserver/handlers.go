package stubserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-state/internal/domain"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func loginHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "username and password required"})
			return
		}
		token := b.login(req.Username)
		c.JSON(http.StatusOK, gin.H{"accessToken": token})
	}
}

func productHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := b.product(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func fetchCartHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true})
			return
		}
		state := b.withCart(acc, func(*domain.CartState) {})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "cart": state})
	}
}

func addCartItemHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req itemRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "productId required"})
			return
		}
		if req.Quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "quantity must be positive"})
			return
		}
		product, ok := b.product(req.ProductID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
			return
		}

		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true, "product": product, "message": "added to cart"})
			return
		}
		state := b.withCart(acc, func(cart *domain.CartState) {
			if line := cart.Find(product.ID); line != nil {
				line.Quantity += req.Quantity
				return
			}
			cart.Items = append(cart.Items, domain.CartLine{Product: product, Quantity: req.Quantity})
		})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "cart": state, "message": "added to cart"})
	}
}

func updateCartItemHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req itemRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "productId required"})
			return
		}
		if req.Quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "quantity must be positive"})
			return
		}
		product, ok := b.product(req.ProductID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
			return
		}

		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true, "product": product, "message": "cart updated"})
			return
		}
		state := b.withCart(acc, func(cart *domain.CartState) {
			if line := cart.Find(product.ID); line != nil {
				line.Quantity = req.Quantity
				return
			}
			cart.Items = append(cart.Items, domain.CartLine{Product: product, Quantity: req.Quantity})
		})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "cart": state, "message": "cart updated"})
	}
}

func removeCartItemHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("productId")
		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true, "message": "removed from cart"})
			return
		}
		state := b.withCart(acc, func(cart *domain.CartState) {
			kept := cart.Items[:0]
			for _, line := range cart.Items {
				if line.Product.ID != productID {
					kept = append(kept, line)
				}
			}
			cart.Items = kept
		})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "cart": state, "message": "removed from cart"})
	}
}

func clearCartHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true, "message": "cart cleared"})
			return
		}
		state := b.withCart(acc, func(cart *domain.CartState) {
			*cart = domain.EmptyCart()
		})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "cart": state, "message": "cart cleared"})
	}
}

func fetchWishlistHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true})
			return
		}
		state := b.withWishlist(acc, func(*domain.WishlistState) {})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "wishlist": state})
	}
}

func addWishlistItemHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req itemRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "productId required"})
			return
		}
		product, ok := b.product(req.ProductID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
			return
		}

		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true, "product": product, "isWishlisted": true})
			return
		}
		state := b.withWishlist(acc, func(wl *domain.WishlistState) {
			if !wl.Contains(product.ID) {
				wl.Products = append(wl.Products, product)
			}
		})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "wishlist": state, "isWishlisted": true})
	}
}

func removeWishlistItemHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("productId")
		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true, "isWishlisted": false})
			return
		}
		state := b.withWishlist(acc, func(wl *domain.WishlistState) {
			kept := wl.Products[:0]
			for _, p := range wl.Products {
				if p.ID != productID {
					kept = append(kept, p)
				}
			}
			wl.Products = kept
		})
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "wishlist": state, "isWishlisted": false})
	}
}

func wishlistStatusHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("productId")
		acc := b.accountForToken(bearerToken(c))
		if acc == nil {
			c.JSON(http.StatusOK, gin.H{"isGuest": true, "isWishlisted": false})
			return
		}
		b.mu.Lock()
		listed := acc.wishlist.Contains(productID)
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"isGuest": false, "isWishlisted": listed})
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
