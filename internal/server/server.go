package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/config"
	"github.com/safar/go-marketplace/internal/handler"
	"github.com/safar/go-marketplace/internal/logger"
	"github.com/safar/go-marketplace/internal/middleware"
	"github.com/safar/go-marketplace/internal/models"
	"go.uber.org/zap"
)

// NewRouter wires every route of the marketplace API.
func NewRouter(cfg config.ServerConfig, h *handler.Handler, tokens middleware.TokenValidator, log *zap.Logger) *gin.Engine {
	middleware.SetupValidator()

	r := gin.New()
	r.Use(logger.Recovery(log))
	r.Use(logger.GinMiddleware(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)

	authed := r.Group("/")
	authed.Use(middleware.Auth(tokens))
	{
		orders := authed.Group("/orders")
		orders.GET("/:id", h.GetOrder)

		buyer := orders.Group("")
		buyer.Use(middleware.RequireRole(models.Role.CanPlaceOrders))
		{
			buyer.POST("", h.CreateOrder)
			buyer.GET("/my-orders", h.MyOrders)
		}

		vendors := authed.Group("/vendors")
		vendors.Use(middleware.RequireRole(models.Role.CanPlaceOrders))
		{
			vendors.POST("/apply", h.ApplyVendor)
			vendors.GET("/me", h.MyVendorProfile)
			vendors.PUT("/me", h.UpdateMyVendorProfile)
		}

		seller := authed.Group("/")
		seller.Use(middleware.RequireRole(models.Role.CanSell), middleware.RequireApprovedVendor(h.Vendors()))
		{
			seller.GET("/seller-orders", h.ListSellerOrders)
			seller.GET("/seller-orders/stats", h.SellerStats)
			seller.GET("/seller-orders/:id", h.GetSellerOrder)
			seller.PUT("/seller-orders/:id/status", h.UpdateSellerOrderStatus)
			seller.POST("/products", h.CreateProduct)
			seller.PUT("/products/:id", h.UpdateProduct)
		}

		moderation := authed.Group("/products")
		moderation.Use(middleware.RequireRole(models.Role.CanModerate))
		{
			moderation.POST("/:id/suspend", h.SuspendProduct)
			moderation.POST("/:id/unsuspend", h.UnsuspendProduct)
		}
	}

	return r
}

func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
