package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"circlo/internal/infra/config"
	"circlo/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Transition(c *gin.Context)
	ListByItem(c *gin.Context)
}

type PaymentHTTP interface {
	Quote(c *gin.Context)
	CreateOrder(c *gin.Context)
	Verify(c *gin.Context)
	Webhook(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	Payment        PaymentHTTP
	AuthMiddleware gin.HandlerFunc
	Metrics        http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	// the webhook authenticates with its signature, not a bearer token
	if h.Payment != nil {
		api.POST("/payments/webhook", h.Payment.Webhook)
	}

	authed := api.Group("")
	if h.AuthMiddleware != nil {
		authed.Use(h.AuthMiddleware)
	}
	if h.Booking != nil {
		authed.POST("/bookings", h.Booking.Create)
		authed.GET("/bookings/:id", h.Booking.Get)
		authed.POST("/bookings/:id/status", h.Booking.Transition)
		authed.GET("/items/:id/bookings", h.Booking.ListByItem)
	}
	if h.Payment != nil {
		authed.GET("/bookings/:id/quote", h.Payment.Quote)
		authed.POST("/bookings/:id/payment-orders", h.Payment.CreateOrder)
		authed.POST("/payments/verify", h.Payment.Verify)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
