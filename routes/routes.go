package routes

import (
	"net/http"

	"mercato/admin"
	"mercato/auth"
	"mercato/cart"
	"mercato/catalog"
	"mercato/coupons"
	"mercato/middleware"
	"mercato/orders"
	"mercato/profile"
	"mercato/ratelim"
	"mercato/reviews"
	"mercato/stockwatch"
	"mercato/wishlist"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir("static/uploads"))
}

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(h.Register))
	router.POST("/api/auth/login", rl.Limit(h.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(h.Logout))
	router.PUT("/api/auth/password", rl.Limit(middleware.Authenticate(h.UpdatePassword)))
}

func AddProfileRoutes(router *httprouter.Router, h *profile.Handler) {
	router.GET("/api/profile", middleware.Authenticate(h.GetProfile))
	router.POST("/api/profile/addresses", middleware.Authenticate(h.AddAddress))
	router.PUT("/api/profile/addresses/:id", middleware.Authenticate(h.UpdateAddress))
	router.DELETE("/api/profile/addresses/:id", middleware.Authenticate(h.DeleteAddress))
}

func AddCatalogRoutes(router *httprouter.Router, h *catalog.Handler) {
	router.GET("/api/categories", h.GetCategories)
	router.GET("/api/categories/:name/products", h.GetProductsByCategory)
	router.GET("/api/search", h.SearchProducts)
	router.GET("/api/recommendations", h.GetRecommendations)
	router.GET("/api/products/:id", h.GetProduct)
}

func AddCartRoutes(router *httprouter.Router, h *cart.Handler) {
	router.GET("/api/cart", middleware.Authenticate(h.GetCart))
	router.PUT("/api/cart", middleware.Authenticate(h.UpdateCart))
}

func AddOrderRoutes(router *httprouter.Router, h *orders.Handler, rl *ratelim.RateLimiter) {
	router.POST("/api/orders", rl.Limit(middleware.Authenticate(h.PlaceOrder)))
	router.GET("/api/orders", middleware.Authenticate(h.GetOrders))
	router.PUT("/api/orders/:id/cancel", middleware.Authenticate(h.CancelOrder))
	router.GET("/api/orders/:id/invoice", middleware.Authenticate(h.PrintInvoice))
}

func AddCouponRoutes(router *httprouter.Router, h *coupons.Handler, rl *ratelim.RateLimiter) {
	router.POST("/api/coupons/apply", rl.Limit(middleware.Authenticate(h.Apply)))
}

func AddReviewRoutes(router *httprouter.Router, h *reviews.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/products/:id/reviews", h.GetReviews)
	router.POST("/api/products/:id/reviews", rl.Limit(middleware.Authenticate(h.AddReview)))
}

func AddWishlistRoutes(router *httprouter.Router, h *wishlist.Handler) {
	router.GET("/api/wishlist", middleware.Authenticate(h.GetWishlist))
	router.POST("/api/wishlist/:id", middleware.Authenticate(h.Toggle))
	router.DELETE("/api/wishlist/:id", middleware.Authenticate(h.Remove))
}

func AddStockWatchRoutes(router *httprouter.Router, hub *stockwatch.Hub) {
	router.GET("/ws/stock", middleware.AdminOnly(stockwatch.ServeWS(hub)))
}

func AddAdminRoutes(router *httprouter.Router, h *admin.Handler, rh *reviews.Handler) {
	router.GET("/api/admin/users", middleware.AdminOnly(h.ListUsers))
	router.PUT("/api/admin/users/:id/admin", middleware.AdminOnly(h.SetUserAdmin))
	router.DELETE("/api/admin/users/:id", middleware.AdminOnly(h.DeleteUser))

	router.POST("/api/admin/categories", middleware.AdminOnly(h.CreateCategory))
	router.PUT("/api/admin/categories/:id", middleware.AdminOnly(h.UpdateCategory))
	router.DELETE("/api/admin/categories/:id", middleware.AdminOnly(h.DeleteCategory))

	router.POST("/api/admin/products", middleware.AdminOnly(h.CreateProduct))
	router.PUT("/api/admin/products/:id", middleware.AdminOnly(h.UpdateProduct))
	router.DELETE("/api/admin/products/:id", middleware.AdminOnly(h.DeleteProduct))
	router.POST("/api/admin/products/:id/image", middleware.AdminOnly(h.UploadProductImage))

	router.GET("/api/admin/orders", middleware.AdminOnly(h.ListOrders))
	router.PUT("/api/admin/orders/:id", middleware.AdminOnly(h.UpdateOrder))
	router.DELETE("/api/admin/orders/:id", middleware.AdminOnly(h.DeleteOrder))

	router.GET("/api/admin/coupons", middleware.AdminOnly(h.ListCoupons))
	router.POST("/api/admin/coupons", middleware.AdminOnly(h.CreateCoupon))
	router.PUT("/api/admin/coupons/:code", middleware.AdminOnly(h.UpdateCoupon))
	router.DELETE("/api/admin/coupons/:code", middleware.AdminOnly(h.DeleteCoupon))

	router.DELETE("/api/admin/reviews/:id", middleware.AdminOnly(rh.DeleteReview))
}
