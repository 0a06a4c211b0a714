package router

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/config"
	"github.com/stemsi/enroll-web/internal/handler"
	"github.com/stemsi/enroll-web/internal/middleware"
	"github.com/stemsi/enroll-web/internal/response"
	"github.com/stemsi/enroll-web/internal/service"
	"github.com/stemsi/enroll-web/internal/validator"
	"github.com/stemsi/enroll-web/internal/web"
)

// staticMaxAge is the Cache-Control max-age for embedded assets.
const staticMaxAge = 24 * time.Hour

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Class      *handler.ClassHandler
	Major      *handler.MajorHandler
	Enrollment *handler.EnrollmentHandler
	System     *handler.SystemHandler
}

// SetupRouter configures the HTML pages and the JSON API with their middlewares.
// Background work started here stops when ctx is done.
func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	authService *service.AuthService,
	studentService *service.StudentService,
	handlers *Handlers,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	validator.Setup()

	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	router.SetHTMLTemplate(template.Must(web.Templates()))

	// Embedded stylesheet with a one day cache.
	staticGroup := router.Group("/static")
	staticGroup.Use(middleware.CacheControl(staticMaxAge))
	{
		staticGroup.StaticFS("/", http.FS(web.Static()))
	}

	router.GET("/health", handlers.System.Health)

	// Flash messages ride in their own signed cookie.
	router.Use(middleware.FlashSessions(cfg.SessionSecret, cfg.CookieSecure))

	// Every page and API route sees the current session, if any.
	router.Use(middleware.LoadSession(authService, studentService, cfg.SessionCookie, log))

	authLimiter := middleware.NewRateLimiter(ctx, cfg.AuthRateLimit, time.Minute)

	// ─── 1. Public Pages ───────────────────────────────────────────────
	router.GET("/register", handlers.Auth.RegisterPage)
	router.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
	router.GET("/login", handlers.Auth.LoginPage)
	router.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
	router.GET("/logout", handlers.Auth.Logout)

	// ─── 2. Student Pages (Login Required) ─────────────────────────────
	pages := router.Group("/")
	pages.Use(middleware.RequireLogin())
	{
		pages.GET("/", handlers.Class.Index)
		pages.GET("/index", handlers.Class.Index)
		pages.GET("/createclass", handlers.Class.CreateClassPage)
		pages.POST("/createclass", handlers.Class.CreateClass)
		pages.POST("/enroll/:classid", handlers.Enrollment.Enroll)
		pages.POST("/unenroll/:classid", handlers.Enrollment.Unenroll)
		pages.GET("/roster/:classid", handlers.Class.Roster)
		pages.GET("/roster/:classid/export", handlers.Class.ExportRoster)
	}

	// ─── 3. JSON API ───────────────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", authLimiter.Middleware(), handlers.Auth.APILogin)
		api.GET("/majors", handlers.Major.ListMajors)
		api.GET("/classes", handlers.Class.ListClasses)
	}

	authed := api.Group("")
	authed.Use(middleware.RequireAPIAuth())
	{
		authed.GET("/me", handlers.Auth.GetProfile)
		authed.POST("/me/password", handlers.Auth.ChangePassword)
		authed.GET("/me/classes", handlers.Enrollment.MyClasses)
		authed.POST("/classes", handlers.Class.APICreateClass)
		authed.GET("/classes/:id/roster", handlers.Class.GetRoster)
		authed.POST("/classes/:id/enrollment", handlers.Enrollment.APIEnroll)
		authed.DELETE("/classes/:id/enrollment", handlers.Enrollment.APIUnenroll)
	}

	return router
}
