package routes

import (
	"slices"
	"time"

	"miam_back_end/internal/handlers"
	"miam_back_end/internal/middleware"
	"miam_back_end/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	Limiter     *middleware.RateLimiter
	Auditor     *middleware.Auditor
}

func init() {
	// Les champs JSON inconnus sont refusés
	binding.EnableDecoderDisallowUnknownFields = true
}

// NewRouter construit le moteur Gin avec CORS et toutes les routes de l'API
func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	RegisterRoutes(r, h, opts)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, opts Options) {
	auth := middleware.AuthRequired(opts.JWTSecret)
	vendorOnly := middleware.RequireRole(models.RoleVendor)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	limit := func(prefix string, max int, window time.Duration) gin.HandlerFunc {
		if opts.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return opts.Limiter.Limit(prefix, max, window)
	}
	audit := func(action, resource string) gin.HandlerFunc {
		if opts.Auditor == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return opts.Auditor.Critical(action, resource)
	}
	auditPrice := func(c *gin.Context) { c.Next() }
	if opts.Auditor != nil {
		auditPrice = opts.Auditor.PriceChanges()
	}

	r.GET("/health", h.Health)

	// Le webhook n'est pas authentifié: la signature Stripe fait foi
	r.POST("/payments/webhook", h.StripeWebhook)

	api := r.Group("/")
	if opts.Limiter != nil {
		api.Use(opts.Limiter.API())
	}

	authGroup := api.Group("/auth")
	{
		if opts.Limiter != nil {
			authGroup.POST("/register", opts.Limiter.Register(), h.Register)
			authGroup.POST("/login", opts.Limiter.Login(), h.Login)
		} else {
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
		}
		authGroup.POST("/verify", limit("verify", 10, 10*time.Minute), h.Verify)
		authGroup.GET("/me", auth, h.Me)
	}

	menu := api.Group("/menu")
	{
		menu.GET("", h.ListMenu)
		menu.GET("/search", limit("search", 30, time.Minute), h.SearchMenu)
		menu.GET("/:id", h.GetMenuItem)
	}

	orders := api.Group("/orders", auth)
	{
		orders.POST("", limit("orders_create", 10, time.Minute), h.CreateOrder)
		orders.GET("/my-orders", h.ListMyOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/cancel", h.CancelOrder)
		orders.POST("/:id/rate", h.RateOrder)
	}

	payments := api.Group("/payments", auth)
	{
		payments.POST("/create-payment-intent/:orderId", h.CreatePaymentIntent)
		payments.POST("/refund/:orderId",
			middleware.RequireRole(models.RoleAdmin, models.RoleVendor),
			audit(models.ActionOrderRefund, models.ResourceOrder),
			h.RefundOrder)
	}

	vendor := api.Group("/vendor", auth, vendorOnly)
	{
		vendor.GET("/menu", h.ListVendorMenu)
		vendor.POST("/menu", h.CreateMenuItem)
		vendor.PUT("/menu/:id", auditPrice, h.UpdateMenuItem)
		vendor.PATCH("/menu/:id/availability", h.SetMenuAvailability)
		vendor.POST("/menu/:id/image", h.UploadMenuImage)
		vendor.GET("/orders", h.ListVendorOrders)
		vendor.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		vendor.GET("/analytics", h.VendorAnalytics)
	}

	api.POST("/promos/validate", auth, limit("promo_validate", 20, time.Minute), h.ValidatePromo)

	admin := api.Group("/admin", auth, adminOnly)
	{
		admin.GET("/promos", h.ListPromos)
		admin.POST("/promos", audit(models.ActionPromoCreate, models.ResourcePromo), h.CreatePromo)
		admin.PATCH("/promos/:code", audit(models.ActionPromoUpdate, models.ResourcePromo), h.UpdatePromo)
		admin.DELETE("/promos/:code", audit(models.ActionPromoDelete, models.ResourcePromo), h.DeletePromo)
	}

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.PATCH("/read-all", h.MarkAllNotificationsRead)
		notifications.PATCH("/:id/read", h.MarkNotificationRead)
		notifications.DELETE("/:id", h.DeleteNotification)
		notifications.GET("/ws", h.NotificationsWebSocket)
	}

	favorites := api.Group("/favorites", auth)
	{
		favorites.GET("", h.ListFavorites)
		favorites.POST("", h.AddFavorite)
		favorites.DELETE("/:menuItemId", h.RemoveFavorite)
	}
}
