package routes

import (
	"time"

	"folio/handlers"
	"folio/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSectionRoutes registers section read, edit and stream endpoints.
func RegisterSectionRoutes(r gin.IRouter, hb *handlers.HandlerBundle) {
	api := r.Group("/api/sections")
	{
		api.GET("", hb.ListSectionsHandler)
		api.GET("/stream", hb.StreamHandler)
		api.GET("/:type", hb.GetSectionHandler)

		// Protected routes (Require Authentication)
		api.PATCH("/:type", middleware.RequireAuth(), hb.WriteFieldHandler)
		api.DELETE("/:type", middleware.RequireAuth(), hb.DeleteFieldHandler)
	}
}

// RegisterLayoutRoutes registers the reorder and visibility endpoints.
func RegisterLayoutRoutes(r gin.IRouter, hb *handlers.HandlerBundle) {
	api := r.Group("/api/layout")
	{
		api.GET("", hb.GetLayoutHandler)

		protected := api.Group("")
		protected.Use(middleware.RequireAuth())
		protected.POST("/move", hb.MoveHandler)
		protected.POST("/toggle", hb.ToggleHandler)
		protected.POST("/save", hb.SaveHandler)
	}
}

// RegisterUploadRoutes registers media upload endpoints.
func RegisterUploadRoutes(r gin.IRouter, hb *handlers.HandlerBundle) {
	api := r.Group("/api/uploads")
	{
		api.Use(middleware.RequireAuth())
		api.POST("/:category", hb.UploadFilesHandler)
		api.GET("/status/:key", hb.UploadStatusHandler)
		api.POST("/retry/:key", hb.RetryUploadHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r gin.IRouter, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.RequireAuth())
		adminGroup.POST("/migrate", hb.MigrateHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(hb.RatePerMin))

	RegisterHealthRoute(r)

	// Every API route resolves the caller first; anonymous callers read as the default user.
	api := r.Group("")
	api.Use(middleware.IdentityMiddleware(hb.Verifier, hb.DefaultUserID))
	RegisterSectionRoutes(api, hb)
	RegisterLayoutRoutes(api, hb)
	RegisterUploadRoutes(api, hb)
	RegisterAdminRoutes(api, hb)
}
