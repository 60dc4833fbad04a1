package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"printshop-backend/internal/printjobs"
	"printshop-backend/internal/services/health"
	"printshop-backend/internal/shared/config"
	"printshop-backend/internal/shared/metrics"
	"printshop-backend/internal/shared/server/middleware"
	"printshop-backend/internal/shared/server/respond"
)

const analyzeRateGroup = "ANALYZE"

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config    config.Config
	PrintJobs *printjobs.Handler
	Health    *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(
		middleware.RequestID(),
		middleware.ClientID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: func(c *gin.Context) string {
				if c.FullPath() == "/api/v1/print/analyze" {
					return analyzeRateGroup
				}
				return ""
			},
			Rules: map[string]middleware.RateLimitRule{
				analyzeRateGroup: {Rate: deps.Config.AnalyzeRateRPS, Burst: deps.Config.AnalyzeRateBurst},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status()
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	if deps.PrintJobs != nil {
		deps.PrintJobs.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
