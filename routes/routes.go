package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry-api/handlers"
	"laundry-api/metrics"
	"laundry-api/middleware"
	"laundry-api/models"
)

type Options struct {
	Handler     *handlers.Handler
	Auth        *middleware.Auth
	Metrics     *metrics.Recorder
	Log         logrus.FieldLogger
	CORSOrigins []string
}

// NewEngine builds the gin engine with the ambient middleware stack and
// every API route.
func NewEngine(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(opts.Log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", opts.Metrics.Handler())
	}
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/health", opts.Handler.Health)
	SetupRoutes(r, opts.Handler, opts.Auth)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Auth) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes (scoped by role inside core) ──────────
	api := r.Group("/api")
	api.Use(auth.AuthRequired())
	{
		api.GET("/profile", h.GetProfile)
		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.GET("/shops", h.ListShops)
		api.GET("/shops/:id", h.GetShop)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := api.Group("", middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", h.PlaceOrder)
	}

	// ── Shop owner routes ──────────────────────────────────────────
	owner := api.Group("", middleware.RoleRequired(models.RoleShopOwner))
	{
		owner.PATCH("/orders/:id", h.UpdateOrderStatus)
		owner.POST("/shops", h.CreateShop)
		owner.POST("/shops/services", h.AddService)
		owner.GET("/shops/services", h.ListServices)
		owner.PATCH("/shops/services/:id", h.UpdateService)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := api.Group("", middleware.RoleRequired(models.RoleAdmin))
	{
		admin.PATCH("/shops/:id", h.ApproveShop)
		admin.GET("/users", h.AdminGetAllUsers)
	}
}
