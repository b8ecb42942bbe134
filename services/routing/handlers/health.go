// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

// HealthCheck reports liveness plus the versions currently being served, so
// a probe can tell which artifact a replica is on.
func HealthCheck(gate taxonomy.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"artifact_version": gate.ArtifactVersion(),
			"taxonomy_version": gate.TaxonomyVersion(),
		})
	}
}
