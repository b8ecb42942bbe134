// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/cache"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/catalog"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

func writeArtifacts(t *testing.T, dir string, version int) {
	t.Helper()
	write := func(name string, v any) {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}

	write("taxonomy.v1.json", datatypes.TaxonomyFile{
		Version: 1,
		Domains: map[string]datatypes.DomainDef{
			"philosophy": {Name: "Philosophy"},
		},
	})
	write(fmt.Sprintf("book_index.v%d.json", version), datatypes.BookIndexFile{
		Version: version,
		Books: []datatypes.BookRecord{
			{BookID: "book_med", Title: "Meditations", Author: "Marcus Aurelius", DomainIDs: []string{"philosophy"}},
		},
	})
	write(fmt.Sprintf("chapter_index.v%d.json", version), datatypes.ChapterIndexFile{
		Version: version,
		Chapters: []datatypes.ChapterRecord{
			{ChapterID: "ch_med_1", BookID: "book_med", Number: 1, Title: "Book One", StartOffset: 0, EndOffset: 1000},
		},
	})
}

func validRouting() datatypes.RoutingResult {
	return datatypes.RoutingResult{
		IsValid: true,
		Paths: []datatypes.ReadingPath{
			{Angle: "A", Recommendations: []datatypes.ReadingRecommendation{
				{BookID: "book_med", BookTitle: "Meditations", BookAuthor: "Marcus Aurelius",
					ChapterID: "ch_med_1", ChapterNumber: 1, ChapterTitle: "Book One",
					Rationale: "r"},
			}},
		},
	}
}

func TestHandleStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	routingCache := cache.New(cache.NewMemoryStore(), time.Hour, &stubGate{})

	engine := gin.New()
	engine.GET("/admin/routing/stats", HandleStats(&stubGate{}, routingCache))

	req := httptest.NewRequest(http.MethodGet, "/admin/routing/stats", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp datatypes.RoutingStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "stub", resp.Gate["mode"])
	assert.Equal(t, float64(2), resp.Cache["artifact_version"])
}

func TestHandleReload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	writeArtifacts(t, dir, 1)

	cat := catalog.New(dir)
	require.NoError(t, cat.Load(1))

	routingCache := cache.New(cache.NewMemoryStore(), time.Hour, taxonomy.NewArtifactGate(cat))
	routingCache.Put("q", "philosophy", "", validRouting())

	engine := gin.New()
	engine.POST("/admin/catalog/reload", HandleReload(cat, routingCache))

	// A newer artifact set appears on disk; reload picks it up.
	writeArtifacts(t, dir, 2)
	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "reloaded", body["status"])
	assert.Equal(t, float64(2), body["artifact_version"])
	assert.Equal(t, 2, cat.Version())

	// The reload flushed the cache.
	assert.Equal(t, 0, routingCache.Stats()["total_entries"])
}

func TestHandleReloadMissingVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	writeArtifacts(t, dir, 1)

	cat := catalog.New(dir)
	require.NoError(t, cat.Load(1))

	engine := gin.New()
	engine.POST("/admin/catalog/reload", HandleReload(cat, nil))

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/reload?version=9", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	// The serving snapshot is untouched by the failed reload.
	assert.Equal(t, 1, cat.Version())
}

func TestHandleReloadRejectsBadVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cat := catalog.New(t.TempDir())

	engine := gin.New()
	engine.POST("/admin/catalog/reload", HandleReload(cat, nil))

	for _, raw := range []string{"abc", "-1"} {
		req := httptest.NewRequest(http.MethodPost, "/admin/catalog/reload?version="+raw, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "version %q", raw)
	}
}

func TestHandleCacheClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	routingCache := cache.New(cache.NewMemoryStore(), time.Hour, &stubGate{})
	routingCache.Put("q", "philosophy", "", validRouting())

	engine := gin.New()
	engine.POST("/admin/routing/cache/clear", HandleCacheClear(routingCache))

	req := httptest.NewRequest(http.MethodPost, "/admin/routing/cache/clear", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, routingCache.Stats()["total_entries"])
}

func TestHandleCacheClearDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/admin/routing/cache/clear", HandleCacheClear(nil))

	req := httptest.NewRequest(http.MethodPost, "/admin/routing/cache/clear", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
