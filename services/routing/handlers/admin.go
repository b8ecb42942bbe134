// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/cache"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/catalog"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

// HandleStats reports gate and cache statistics.
func HandleStats(gate taxonomy.Gate, routingCache *cache.RoutingCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := datatypes.RoutingStatsResponse{Gate: gate.Stats()}
		if routingCache != nil {
			resp.Cache = routingCache.Stats()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleReload swaps the catalog to a new artifact version and clears the
// routing cache.
//
// The version query parameter selects an explicit artifact version; omitted
// or zero means the latest on disk. Reload is the only way a running service
// picks up new artifacts. There is no file watching, so a request is never
// split across two snapshots.
func HandleReload(cat *catalog.Catalog, routingCache *cache.RoutingCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := handlersTracer.Start(c.Request.Context(), "HandleReload")
		defer span.End()

		version := 0
		if raw := c.Query("version"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "version must be a non-negative integer"})
				return
			}
			version = parsed
		}

		if err := cat.Load(version); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reload failed")
			slog.Error("Catalog reload failed", "version", version, "error", err)
			status := http.StatusInternalServerError
			if errors.Is(err, catalog.ErrSnapshotNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if routingCache != nil {
			if err := routingCache.InvalidateAll(); err != nil {
				slog.Warn("Cache invalidation after reload failed", "error", err)
			}
		}

		slog.Info("Catalog reloaded", "version", cat.Version(), "taxonomy_version", cat.TaxonomyVersion())
		c.JSON(http.StatusOK, gin.H{
			"status":           "reloaded",
			"artifact_version": cat.Version(),
			"taxonomy_version": cat.TaxonomyVersion(),
		})
	}
}

// HandleCacheClear drops every cached routing result.
func HandleCacheClear(routingCache *cache.RoutingCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if routingCache == nil {
			c.JSON(http.StatusOK, gin.H{"status": "cache disabled"})
			return
		}
		if err := routingCache.InvalidateAll(); err != nil {
			slog.Error("Cache clear failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cache clear failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}
