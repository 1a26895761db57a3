package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"storefront-state/internal/cart"
	"storefront-state/internal/config"
	"storefront-state/internal/domain"
	"storefront-state/internal/remote"
	"storefront-state/internal/storage"
	"storefront-state/internal/store"
	"storefront-state/internal/stubserver"
	"storefront-state/internal/wishlist"
)

var demoCatalog = []domain.ProductSnapshot{
	{ID: "p1", Name: "Espresso Cup", Slug: "espresso-cup", Price: 9.90, Stock: 5, Currency: "EUR"},
	{ID: "p2", Name: "Moka Pot", Slug: "moka-pot", Price: 34.50, Stock: 12, Currency: "EUR"},
	{ID: "p3", Name: "Hand Grinder", Slug: "hand-grinder", Price: 59.00, Stock: 0, Currency: "EUR"},
}

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[demo] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	srv := stubserver.New(cfg.HTTPAddr, logger, demoCatalog)
	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting stub storefront on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	waitForServer(cfg.RemoteBaseURL, logger)

	backend, closeBackend, err := newStorageBackend(cfg)
	if err != nil {
		logger.Fatalf("init storage backend: %v", err)
	}
	defer closeBackend()

	ctx := context.Background()
	blobs := store.New(backend, logger)
	client := remote.NewClient(cfg.RemoteBaseURL, cfg.RequestTimeout)
	cartEngine := cart.New(ctx, client, client, blobs, logger)
	wishlistEngine := wishlist.New(ctx, client, blobs, logger)

	unsubCart := cartEngine.Subscribe(func(ch cart.Change) {
		logger.Printf("cart: items=%d total=%.2f loading=%t err=%v",
			ch.State.TotalItems, ch.State.TotalPrice, ch.Loading, ch.Err)
	})
	defer unsubCart()
	unsubWishlist := wishlistEngine.Subscribe(func(ch wishlist.Change) {
		logger.Printf("wishlist: products=%d loading=%t err=%v",
			len(ch.State.Products), ch.Loading, ch.Err)
	})
	defer unsubWishlist()

	if err := runScript(ctx, logger, cartEngine, wishlistEngine); err != nil {
		logger.Printf("demo script: %v", err)
	}

	select {
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	default:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

func runScript(ctx context.Context, logger *log.Logger, carts *cart.Engine, wishlists *wishlist.Engine) error {
	if _, err := carts.Fetch(ctx); err != nil {
		return fmt.Errorf("fetch cart: %w", err)
	}
	if _, err := carts.Add(ctx, "p1", 2); err != nil {
		return fmt.Errorf("add p1: %w", err)
	}
	if _, err := carts.Add(ctx, "p2", 1); err != nil {
		return fmt.Errorf("add p2: %w", err)
	}
	if _, err := carts.Add(ctx, "p3", 1); err != nil {
		logger.Printf("adding out-of-stock product rejected: %v", err)
	}
	if _, err := carts.Update(ctx, "p1", 3); err != nil {
		return fmt.Errorf("update p1: %w", err)
	}
	if _, err := carts.Remove(ctx, "p2"); err != nil {
		return fmt.Errorf("remove p2: %w", err)
	}
	if _, err := wishlists.Toggle(ctx, demoCatalog[1]); err != nil {
		return fmt.Errorf("toggle p2: %w", err)
	}
	logger.Printf("p2 wishlisted: %t", wishlists.Contains("p2"))
	if _, err := carts.Clear(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func newStorageBackend(cfg config.Config) (storage.Backend, func(), error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemory(), func() {}, nil
	case "file":
		backend, err := storage.NewFile(cfg.StateDir)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() {}, nil
	case "sqlite":
		backend, err := storage.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	case "redis":
		backend := storage.NewRedis(cfg.RedisAddr, "storefront")
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := backend.Ping(ctx); err != nil {
			backend.Close()
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func waitForServer(baseURL string, logger *log.Logger) {
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Printf("stub storefront not reachable at %s", baseURL)
}
