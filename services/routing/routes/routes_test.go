// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/cache"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/middleware"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/router"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gate, err := taxonomy.NewGate(taxonomy.Config{Mode: taxonomy.ModeStatic}, nil)
	require.NoError(t, err)

	routingCache := cache.New(cache.NewMemoryStore(), time.Hour, gate)
	rtr := router.New(gate, &router.MockProposer{}, routingCache, nil, router.Config{})

	engine := gin.New()
	SetupRoutes(engine, Deps{
		Classifier:   &router.MockClassifier{},
		Router:       rtr,
		Gate:         gate,
		Catalog:      nil, // static mode has no catalog to reload
		RoutingCache: routingCache,
		AskLimiter:   middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 100}),
	})
	return engine
}

func do(engine *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRoutesRegistered(t *testing.T) {
	engine := newTestEngine(t)

	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/v1/gate/candidates?domain=Philosophy", nil).Code)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/v1/admin/routing/stats", nil).Code)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodPost, "/v1/admin/routing/cache/clear", nil).Code)
}

func TestRoutesAsk(t *testing.T) {
	engine := newTestEngine(t)

	w := do(engine, http.MethodPost, "/v1/ask", []byte(`{"question": "What did Sun Tzu teach about war?"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	require.True(t, resp.Routing.IsValid, "static mode must route a mapped question: %s", resp.Routing.RefusalReason)
	require.NotEmpty(t, resp.Routing.Paths)
	assert.Equal(t, "book_e500fb226315", resp.Routing.Paths[0].Recommendations[0].BookID)
}

func TestRoutesNoReloadWithoutCatalog(t *testing.T) {
	engine := newTestEngine(t)

	w := do(engine, http.MethodPost, "/v1/admin/catalog/reload", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
