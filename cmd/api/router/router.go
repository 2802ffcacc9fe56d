package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"redgen/cmd/api/handlers"
	"redgen/cmd/api/middleware"
	"redgen/services"
)

func New(svc *services.ListingService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(), middleware.RequestLoggingMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.GET("/listings", handlers.ListListingsHandler(svc))
		api.POST("/listings", handlers.CreateListingHandler(svc))
		api.POST("/listings/from-page", handlers.CreateFromPageHandler(svc))
		api.GET("/listings/:id", handlers.GetListingHandler(svc))
		api.DELETE("/listings/:id", handlers.DeleteListingHandler(svc))
		api.PATCH("/listings/:id/fields", handlers.EditFieldHandler(svc))
		api.PATCH("/listings/:id/expanded", handlers.SetExpandedHandler(svc))
		api.POST("/listings/:id/tags", handlers.UpdateTagsHandler(svc))
		api.POST("/listings/:id/scrape", handlers.ScrapeListingHandler(svc))
		api.POST("/listings/:id/optimize", handlers.OptimizeListingHandler(svc))
		api.POST("/listings/:id/autofill", handlers.AutofillListingHandler(svc))

		api.GET("/settings", handlers.GetSettingsHandler(svc))
		api.PUT("/settings", handlers.SaveSettingsHandler(svc))
	}

	return r
}
