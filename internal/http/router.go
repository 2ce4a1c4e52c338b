package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/tourhub/internal/auth"
	"github.com/geocoder89/tourhub/internal/cache"
	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/http/handlers"
	"github.com/geocoder89/tourhub/internal/http/middlewares"
	"github.com/geocoder89/tourhub/internal/notifications"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "tourhub-api"

// Deps is everything the router needs. Cache, Queue, AdminJobs, Prom and
// Gatherer are optional.
type Deps struct {
	Cfg       config.Config
	Log       *slog.Logger
	Stores    handlers.Stores
	Tokens    *auth.Manager
	Hasher    user.Hasher
	Mailer    notifications.Mailer
	Cache     cache.Cache
	Queue     handlers.Enqueuer
	AdminJobs handlers.AdminJobsQueue
	RateStore middlewares.RateStore
	Pings     map[string]handlers.PingFunc
	Prom      *observability.Prom
	Gatherer  prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Hasher == nil {
		d.Hasher = security.NewHasher(d.Cfg.BcryptCost)
	}
	if d.RateStore == nil {
		d.RateStore = middlewares.NewMemoryRateStore(d.Cfg.RateLimitMax, d.Cfg.RateLimitWindow)
	}
	handlers.RegisterValidators()

	r := gin.New()
	_ = r.SetTrustedProxies(nil)

	// The logger and metrics sit outside the error handler so they see the
	// final status.
	if d.Cfg.OTelEnabled {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.ErrorHandler(d.Cfg.Env, d.Log))
	r.Use(middlewares.Recovery())
	r.Use(middlewares.SecurityHeaders(!d.Cfg.IsDevelopment()))
	r.Use(middlewares.CORS(d.Cfg.CORSOrigins))

	// ops
	health := handlers.NewHealthHandler(d.Pings)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	if d.Cfg.RateLimitMax > 0 {
		api.Use(middlewares.RateLimit(d.RateStore, middlewares.KeyByIP))
	}
	if d.Cfg.BodyLimitBytes > 0 {
		api.Use(middlewares.BodyLimit(d.Cfg.BodyLimitBytes))
	}
	api.Use(middlewares.SanitizeJSON())
	api.Use(middlewares.HPP(middlewares.DefaultHPPWhitelist))
	api.Use(middlewares.RequireJSON())

	v1 := api.Group("/v1")

	authMW := middlewares.NewAuthMiddleware(d.Tokens, d.Stores.Users)
	protect := authMW.Protect()
	adminOnly := middlewares.RestrictTo(user.RoleAdmin)

	authH := handlers.NewAuthHandler(handlers.AuthDeps{
		Users:  d.Stores.Users,
		Tokens: d.Tokens,
		Hooks:  user.SaveHooks(d.Hasher, time.Now),
		Mailer: d.Mailer,
		Queue:  d.Queue,
		Cfg:    d.Cfg,
		Log:    d.Log,
	})
	usersH := handlers.NewUsersHandler(d.Stores.Users)
	toursH := handlers.NewToursHandler(d.Stores, d.Cache, d.Log)
	reviewsH := handlers.NewReviewsHandler(d.Stores, d.Cache, d.Log)

	users := v1.Group("/users")
	{
		users.POST("/signup", authH.SignUp)
		users.POST("/login", authH.Login)
		users.GET("/logout", authH.Logout)
		users.POST("/forgotPassword", authH.ForgotPassword)
		users.PATCH("/resetPassword/:token", authH.ResetPassword)

		me := users.Group("", protect)
		me.PATCH("/updateMyPassword", authH.UpdatePassword)
		me.GET("/me", usersH.GetMe)
		me.PATCH("/updateMe", usersH.UpdateMe)
		me.DELETE("/deleteMe", usersH.DeleteMe)

		admin := users.Group("", protect, adminOnly)
		admin.GET("", usersH.List)
		admin.POST("", usersH.Create)
		admin.GET("/:id", usersH.Get)
		admin.PATCH("/:id", usersH.Update)
		admin.DELETE("/:id", usersH.Delete)
	}

	tours := v1.Group("/tours")
	{
		tours.GET("/top-5-cheap", toursH.AliasTopTours, toursH.List)
		tours.GET("/tour-stats", toursH.Stats)
		tours.GET("/monthly-plan/:year", protect,
			middlewares.RestrictTo(user.RoleAdmin, user.RoleLeadGuide, user.RoleGuide), toursH.MonthlyPlan)

		tours.GET("", toursH.List)
		tours.GET("/:id", toursH.Get)

		staff := middlewares.RestrictTo(user.RoleAdmin, user.RoleLeadGuide)
		tours.POST("", protect, staff, toursH.Create)
		tours.PATCH("/:id", protect, staff, toursH.Update)
		tours.DELETE("/:id", protect, staff, toursH.Delete)

		tours.GET("/:id/reviews", protect, reviewsH.ListForTour)
		tours.POST("/:id/reviews", protect, middlewares.RestrictTo(user.RoleUser), reviewsH.CreateForTour)
	}

	reviews := v1.Group("/reviews", protect)
	{
		reviews.GET("", reviewsH.List)
		reviews.POST("", middlewares.RestrictTo(user.RoleUser), reviewsH.Create)
		reviews.GET("/:id", reviewsH.Get)

		owners := middlewares.RestrictTo(user.RoleUser, user.RoleAdmin)
		reviews.PATCH("/:id", owners, reviewsH.Update)
		reviews.DELETE("/:id", owners, reviewsH.Delete)
	}

	if d.AdminJobs != nil {
		jobsH := handlers.NewAdminJobsHandler(d.AdminJobs)
		adminJobs := v1.Group("/admin/jobs", protect, adminOnly)
		adminJobs.GET("/stats", jobsH.Stats)
		adminJobs.GET("/dead", jobsH.ListDead)
		adminJobs.POST("/dead/requeue", jobsH.RequeueDead)
	}

	r.NoRoute(middlewares.NotFound())

	return r
}
