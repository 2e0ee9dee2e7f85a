package bootstrap

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/api"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/metrics"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/server"
)

// HTTPDeps are the collaborators the HTTP surface serves from.
type HTTPDeps struct {
	Mentions api.MentionStore
	Runs     api.CrawlRunLister
	Crawler  api.Crawler
	DB       server.Pinger
	Metrics  *metrics.Metrics
}

// SetupHTTPServer creates the HTTP server with API, health and, when
// enabled, metrics routes.
func SetupHTTPServer(cfg *config.Config, deps HTTPDeps, log logger.Logger) *server.Server {
	handler := api.NewHandler(deps.Mentions, deps.Runs, deps.Crawler, log)
	handler.SetCrawlTimeout(cfg.Crawl.Timeout)
	return server.New(cfg.Server, cfg.Debug, log, func(router *gin.Engine) {
		server.RegisterHealthRoutes(router, ServiceName, Version, deps.DB)
		handler.RegisterRoutes(router)
		if cfg.Metrics.Enabled && deps.Metrics != nil {
			router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
		}
	})
}
