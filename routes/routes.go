package routes

import (
	"time"

	"localserve/config"
	"localserve/handlers"
	"localserve/middleware"
	"localserve/models"
	"localserve/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterBookingRoutes sets up the booking store endpoints.
func RegisterBookingRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	bookingGroup := api.Group("/bookings")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware())
		bookingGroup.GET("", hb.ListBookingsHandler)
		bookingGroup.POST("", middleware.RequireRole(models.RoleUser), hb.CreateBookingHandler)

		// Provider transitions.
		provider := bookingGroup.Group("")
		provider.Use(middleware.RequireRole(models.RoleProvider))
		provider.PATCH("/:id", hb.UpdateBookingHandler)
		provider.POST("/:id/note-form", hb.NoteFormHandler)
		provider.POST("/:id/accept", hb.AcceptBookingHandler)

		// User payments.
		payer := bookingGroup.Group("")
		payer.Use(middleware.RequireRole(models.RoleUser))
		payer.GET("/:id/order", hb.GetPaymentOrderHandler)
		payer.POST("/:id/verify", hb.VerifyPaymentHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	adminGroup := api.Group("/admin")
	{
		adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleAdmin))
		adminGroup.GET("/bookings", hb.AdminListBookingsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	origins := config.AllowedOrigins()
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(utils.ErrorHandler(), middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !anyOrigin(origins),
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	api := r.Group("/api")
	RegisterBookingRoutes(api, hb)
	RegisterAdminRoutes(api, hb)
	RegisterHealthRoute(r, hb)
	api.GET("/health", hb.HealthHandler)
}

// Browsers refuse credentials combined with a wildcard origin.
func anyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
