// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/cache"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/catalog"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/handlers"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/middleware"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/observability"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/router"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

// Deps carries the wired pipeline components the routes need.
type Deps struct {
	Classifier   router.Classifier
	Router       *router.Router
	Gate         taxonomy.Gate
	Catalog      *catalog.Catalog // nil in static gate mode
	RoutingCache *cache.RoutingCache
	AskLimiter   *middleware.RateLimiter
	Metrics      *observability.RoutingMetrics
}

// SetupRoutes registers the service surface on the engine.
func SetupRoutes(engine *gin.Engine, deps Deps) {
	engine.GET("/health", handlers.HealthCheck(deps.Gate))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	{
		ask := v1.Group("")
		if deps.AskLimiter != nil {
			ask.Use(middleware.RateLimit(deps.AskLimiter))
		}
		ask.POST("/ask", handlers.HandleAsk(deps.Classifier, deps.Router, deps.Metrics))

		v1.GET("/gate/candidates", handlers.HandleCandidates(deps.Gate))

		admin := v1.Group("/admin")
		{
			admin.GET("/routing/stats", handlers.HandleStats(deps.Gate, deps.RoutingCache))
			admin.POST("/routing/cache/clear", handlers.HandleCacheClear(deps.RoutingCache))
			if deps.Catalog != nil {
				admin.POST("/catalog/reload", handlers.HandleReload(deps.Catalog, deps.RoutingCache))
			}
		}
	}
}
