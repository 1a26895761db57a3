package stubserver

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront-state/internal/domain"
)

// NewRouter builds the fake storefront API. The consumer is a browser
// storefront, so CORS is open and the auth/session headers are allowed
// through.
func NewRouter(logger *log.Logger, catalog []domain.ProductSnapshot) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:    []string{"Content-Type", "Authorization", "X-Session-Id"},
	}))

	b := newBackend(catalog)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/login", loginHandler(b))
	api.GET("/products/:id", productHandler(b))

	api.GET("/cart", fetchCartHandler(b))
	api.POST("/cart/items", addCartItemHandler(b))
	api.PUT("/cart/items", updateCartItemHandler(b))
	api.DELETE("/cart/items/:productId", removeCartItemHandler(b))
	api.DELETE("/cart", clearCartHandler(b))

	api.GET("/wishlist", fetchWishlistHandler(b))
	api.POST("/wishlist", addWishlistItemHandler(b))
	api.DELETE("/wishlist/:productId", removeWishlistItemHandler(b))
	api.GET("/wishlist/:productId/status", wishlistStatusHandler(b))

	return router
}
