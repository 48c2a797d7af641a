package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"rota-claims/internal/domain/staff"
	"rota-claims/internal/handler/api"
	"rota-claims/internal/handler/middleware"
	"rota-claims/internal/infra/telemetry"
	"rota-claims/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	offerHandler *api.OfferHandler,
	shiftHandler *api.ShiftHandler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, offerHandler, shiftHandler, authMiddleware, rateLimiter)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	offerHandler *api.OfferHandler,
	shiftHandler *api.ShiftHandler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
) {
	engine.GET("/health", healthCheck)
	engine.GET("/metrics", gin.WrapH(telemetry.Handler()))

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		sites := apiGroup.Group("/sites")
		sites.Use(authMiddleware.RequireAuth())
		{
			addRoutes(sites, []route{
				{Method: http.MethodGet, Path: "/:id/shifts", Handler: shiftHandler.ListBySite},
				{Method: http.MethodPost, Path: "/:id/shifts", Handler: shiftHandler.Upsert,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(staff.RoleManager)}},
			})
		}

		shifts := apiGroup.Group("/shifts")
		shifts.Use(authMiddleware.RequireAuth())
		{
			addRoutes(shifts, []route{
				{Method: http.MethodGet, Path: "/:id/eligibility", Handler: shiftHandler.Eligibility},
				{Method: http.MethodPost, Path: "/:id/sickness", Handler: shiftHandler.ReportSickness},
				{Method: http.MethodPost, Path: "/:id/offers/batch", Handler: offerHandler.IssueBatch,
					Mw: []gin.HandlerFunc{
						authMiddleware.RequireRoleAtLeast(staff.RoleManager),
						rateLimiter.Limit(),
					}},
			})
		}

		// Accept links travel over messaging channels; recipients may hold
		// no session, so auth is optional and identity falls back to the
		// offer's recorded recipient.
		offers := apiGroup.Group("/offers")
		offers.Use(authMiddleware.OptionalAuth())
		{
			addRoutes(offers, []route{
				{Method: http.MethodPost, Path: "/:id/accept", Handler: offerHandler.Accept,
					Mw: []gin.HandlerFunc{rateLimiter.Limit()}},
				{Method: http.MethodPost, Path: "/:id/close", Handler: offerHandler.Close},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
