package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/catalog-metrics/internal/http/handlers"
	httpMW "github.com/yungbote/catalog-metrics/internal/http/middleware"
	"github.com/yungbote/catalog-metrics/internal/observability"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string

	HealthHandler  *httpH.HealthHandler
	RunHandler     *httpH.RunHandler
	RankingHandler *httpH.RankingHandler
}

// NewRouter builds the ops listener. Everything on it is read-only.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName(cfg.ServiceName)))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	if cfg.RunHandler != nil {
		r.GET("/runs/:job_type/latest", cfg.RunHandler.Latest)
	}

	if cfg.RankingHandler != nil {
		r.GET("/ranking/options", cfg.RankingHandler.Options)
		r.GET("/ranking/:key", cfg.RankingHandler.Rank)
	}

	return r
}

func serviceName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "catalog-metrics"
}
