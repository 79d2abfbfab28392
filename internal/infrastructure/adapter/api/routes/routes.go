package routes

import (
	"net/http"

	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/handler"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	creditHandler *handler.CreditHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	catalogHandler *handler.CatalogHandler,
) {
	// Payment routes
	paymentRoutes := router.Group("/payments")
	{
		paymentRoutes.POST("", paymentHandler.InitiatePayment)
		paymentRoutes.GET("/:transactionId", paymentHandler.GetTransaction)
	}

	// Per-user routes
	userRoutes := router.Group("/users/:userId")
	{
		userRoutes.GET("/credits/balance", creditHandler.GetBalance)
		userRoutes.GET("/credits/history", creditHandler.GetHistory)
		userRoutes.POST("/credits/debit", creditHandler.Debit)
		userRoutes.GET("/subscription", subscriptionHandler.GetForUser)
	}

	// Subscription lifecycle routes
	subscriptionRoutes := router.Group("/subscriptions")
	{
		subscriptionRoutes.POST("", subscriptionHandler.Create)
		subscriptionRoutes.POST("/:id/cancel", subscriptionHandler.Cancel)
		subscriptionRoutes.POST("/:id/renew", subscriptionHandler.Renew)
		subscriptionRoutes.POST("/:id/change-plan", subscriptionHandler.ChangePlan)
	}

	// Catalog routes
	catalogRoutes := router.Group("/catalog")
	{
		catalogRoutes.GET("/packages", catalogHandler.ListPackages)
		catalogRoutes.GET("/plans", catalogHandler.ListPlans)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
}
