package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mercato/admin"
	"mercato/auth"
	"mercato/cart"
	"mercato/catalog"
	"mercato/coupons"
	"mercato/db"
	"mercato/globals"
	"mercato/ledger"
	"mercato/orders"
	"mercato/profile"
	"mercato/ratelim"
	"mercato/rdx"
	"mercato/reviews"
	"mercato/routes"
	"mercato/stockwatch"
	"mercato/wishlist"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		globals.JwtSecret = []byte(secret)
	} else {
		log.Println("JWT_SECRET not set; using insecure development secret")
	}

	port := envOr("PORT", ":8080")
	if port[0] != ':' {
		port = ":" + port
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := db.Connect(ctx, envOr("MONGODB_URI", "mongodb://localhost:27017"))
	cancel()
	if err != nil {
		log.Fatalf("mongodb connect: %v", err)
	}
	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Printf("index setup: %v", err)
	}
	cancel()

	cache := rdx.New(envOr("REDIS_ADDR", "localhost:6379"))

	hub := stockwatch.NewHub()
	go hub.Run()

	led := ledger.New(store)
	engine := &orders.Engine{
		Carts:     orders.NewCartStore(store),
		Products:  orders.NewProductStore(store),
		Addresses: orders.NewAddressStore(store),
		Orders:    orders.NewOrderStore(store),
		Coupons:   orders.NewCouponStore(store),
		Ledger:    led,
		Watch:     hub,
	}

	rateLimiter := ratelim.NewRateLimiter()

	router := httprouter.New()
	router.GET("/health", Index)
	routes.AddStaticRoutes(router)
	routes.AddAuthRoutes(router, auth.NewHandler(store, cache), rateLimiter)
	routes.AddProfileRoutes(router, profile.NewHandler(store))
	routes.AddCatalogRoutes(router, catalog.NewHandler(store, cache))
	routes.AddCartRoutes(router, cart.NewHandler(store))
	routes.AddOrderRoutes(router, orders.NewHandler(engine), rateLimiter)
	routes.AddCouponRoutes(router, coupons.NewHandler(store), rateLimiter)
	reviewHandler := reviews.NewHandler(store, led)
	routes.AddReviewRoutes(router, reviewHandler, rateLimiter)
	routes.AddWishlistRoutes(router, wishlist.NewHandler(store))
	routes.AddStockWatchRoutes(router, hub)
	routes.AddAdminRoutes(router, admin.NewHandler(store, engine, hub), reviewHandler)

	// middleware chain: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		hub.Stop()
	})

	go func() {
		log.Printf("Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received; shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Graceful shutdown failed: %v", err)
	}

	if err := cache.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
	disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer disconnectCancel()
	if err := store.Disconnect(disconnectCtx); err != nil {
		log.Printf("mongodb disconnect: %v", err)
	}

	log.Println("Server stopped cleanly")
}
