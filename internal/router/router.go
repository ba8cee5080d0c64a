package router

import (
	"net/http"

	"storefront-service/internal/handlers"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Services struct {
	Carts    service.CartService
	Orders   service.OrderService
	Settings service.SettingsProvider
	Stock    service.InventoryService
}

func Router(svc Services, verifier middleware.TokenVerifier, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Metrics())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	cartHandler := handlers.NewCartHandler(svc.Carts, log)
	orderHandler := handlers.NewOrderHandler(svc.Orders, log)
	adminHandler := handlers.NewAdminHandler(svc.Settings, svc.Orders, svc.Stock, log)

	api := r.Group("/api/v1", middleware.AuthRequired(verifier, log))
	{
		api.GET("/cart", cartHandler.GetCart)
		api.DELETE("/cart", cartHandler.ClearCart)
		api.POST("/cart/items", cartHandler.AddItem)
		api.PUT("/cart/items/:id", cartHandler.UpdateItem)
		api.DELETE("/cart/items/:id", cartHandler.RemoveItem)
		api.PUT("/cart/delivery", cartHandler.SetDelivery)

		api.POST("/orders", orderHandler.CreateOrder)
		api.GET("/orders", orderHandler.ListOrders)
		api.GET("/orders/:id", orderHandler.GetOrder)
		api.POST("/orders/:id/cancel", orderHandler.CancelOrder)
		api.GET("/checkout-sessions/:reference", orderHandler.GetCheckoutSession)
	}

	admin := api.Group("/admin", middleware.AdminOnly())
	{
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSettings)
		admin.PUT("/orders/:id/status", adminHandler.UpdateOrderStatus)
		admin.POST("/products/:id/stock", adminHandler.AdjustStock)
		admin.GET("/products/:id/movements", adminHandler.ListMovements)
	}

	return r
}
