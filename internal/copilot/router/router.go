// Package router provides copilot service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/adas-copilot/internal/copilot/handler"
	"github.com/kart-io/adas-copilot/internal/copilot/metrics"
)

// Register registers the copilot service routes.
func Register(engine *gin.Engine, search *handler.SearchHandler, graph *handler.GraphHandler, document *handler.DocumentHandler) {
	logger.Info("Registering copilot routes...")

	engine.GET("/healthz", search.Health)
	engine.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, metrics.GetSearchMetrics().Export("copilot"))
	})

	v1 := engine.Group("/api/v1")
	{
		s := v1.Group("/search")
		{
			s.POST("", search.Search)
			s.POST("/lexical", search.LexicalSearch)
			s.POST("/vector", search.VectorSearch)
		}

		g := v1.Group("/graph")
		{
			g.GET("/related", graph.Related)
			g.GET("/dependencies", graph.Dependencies)
			g.GET("/system-components", graph.SystemComponents)
			g.GET("/entities", graph.Entities)
			g.GET("/stats", graph.Stats)
		}

		v1.GET("/documents", document.List)
		v1.GET("/stats", search.Stats)
		v1.DELETE("/cache", search.ClearCache)
	}

	logger.Info("HTTP routes registered")
}
