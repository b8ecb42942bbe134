// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
)

// DefaultTTL is how long a cached routing result stays servable.
const DefaultTTL = time.Hour

// questionPunctuation is stripped during normalization so trivial rephrasings
// ("why do people lie?" vs "Why do people lie") share a cache entry.
const questionPunctuation = "?!.,;:"

// VersionSource reports the live taxonomy-definition and artifact versions.
// Every gate satisfies it.
type VersionSource interface {
	TaxonomyVersion() int
	ArtifactVersion() int
}

// RoutingCache caches valid routing results keyed on the normalized question,
// the classified domain pair, and both live versions. Either version moving
// must make every prior entry a miss, before TTL: the taxonomy-definition
// version changes what domain tags mean, the artifact version changes which
// books and chapters exist, and a result computed under either old view is
// unservable.
//
// Invalidation happens three ways: the TTL lapses, a version moves (which
// both changes future keys and fails the stored-version check on old
// entries), or an operator clears the cache. Refusals are never cached; a
// refusal caused by a thin catalog should not outlive the next reload.
type RoutingCache struct {
	store    Store
	ttl      time.Duration
	versions VersionSource

	// now is swappable for expiry tests.
	now func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// New builds a RoutingCache on top of a store. versions is consulted on every
// access, so the cache always compares against the live catalog rather than a
// snapshot taken at startup. A non-positive ttl falls back to DefaultTTL.
func New(store Store, ttl time.Duration, versions VersionSource) *RoutingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RoutingCache{
		store:    store,
		ttl:      ttl,
		versions: versions,
		now:      time.Now,
	}
}

// NormalizeQuestion lowercases the question, strips common punctuation, and
// collapses runs of whitespace to single spaces.
func NormalizeQuestion(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	normalized = strings.Map(func(r rune) rune {
		if strings.ContainsRune(questionPunctuation, r) {
			return -1
		}
		return r
	}, normalized)
	return strings.Join(strings.Fields(normalized), " ")
}

// Key derives the cache key for a question under a domain pair and the
// version pair. The key is the first 16 hex characters of a sha256 digest,
// which is plenty for a cache (collisions only cost a wrong hit within
// identical versions, and 64 bits makes that vanishingly unlikely).
func Key(question, domainID, subdomainID string, taxonomyVersion, artifactVersion int) string {
	components := fmt.Sprintf("%s::%s::%s::%d::%d",
		NormalizeQuestion(question), domainID, subdomainID, taxonomyVersion, artifactVersion)
	digest := sha256.Sum256([]byte(components))
	return hex.EncodeToString(digest[:])[:16]
}

// Get returns the cached result for a question, if one exists and is still
// servable. Stale and version-mismatched entries are evicted on the spot.
func (c *RoutingCache) Get(question, domainID, subdomainID string) (datatypes.RoutingResult, bool) {
	taxonomyVersion := c.versions.TaxonomyVersion()
	artifactVersion := c.versions.ArtifactVersion()
	key := Key(question, domainID, subdomainID, taxonomyVersion, artifactVersion)

	entry, ok, err := c.store.Get(key)
	if err != nil {
		slog.Warn("Cache read failed, treating as miss", "key", key, "error", err)
		c.misses.Add(1)
		return datatypes.RoutingResult{}, false
	}
	if !ok {
		c.misses.Add(1)
		return datatypes.RoutingResult{}, false
	}

	if c.now().Sub(entry.CachedAt) > c.ttl {
		if err := c.store.Delete(key); err != nil {
			slog.Warn("Failed to evict expired cache entry", "key", key, "error", err)
		}
		c.misses.Add(1)
		return datatypes.RoutingResult{}, false
	}

	// The versions are baked into the key, but the stored copies are still
	// checked: a store shared across deploys may hold an entry written
	// under a colliding key scheme from an older build.
	if entry.TaxonomyVersion != taxonomyVersion || entry.ArtifactVersion != artifactVersion {
		if err := c.store.Delete(key); err != nil {
			slog.Warn("Failed to evict version-mismatched cache entry", "key", key, "error", err)
		}
		c.misses.Add(1)
		return datatypes.RoutingResult{}, false
	}

	c.hits.Add(1)
	return entry.Result, true
}

// Put caches a routing result. Refusals (IsValid=false) are dropped
// silently.
func (c *RoutingCache) Put(question, domainID, subdomainID string, result datatypes.RoutingResult) {
	if !result.IsValid {
		return
	}
	taxonomyVersion := c.versions.TaxonomyVersion()
	artifactVersion := c.versions.ArtifactVersion()
	key := Key(question, domainID, subdomainID, taxonomyVersion, artifactVersion)
	entry := Entry{
		Result:          result,
		CachedAt:        c.now(),
		TaxonomyVersion: taxonomyVersion,
		ArtifactVersion: artifactVersion,
	}
	if err := c.store.Set(key, entry, c.ttl); err != nil {
		slog.Warn("Failed to cache routing result", "key", key, "error", err)
	}
}

// InvalidateAll drops every cached entry. Called after a catalog reload.
func (c *RoutingCache) InvalidateAll() error {
	return c.store.Clear()
}

// Close releases the underlying store.
func (c *RoutingCache) Close() error {
	return c.store.Close()
}

// Stats summarizes cache effectiveness for the admin surface.
func (c *RoutingCache) Stats() map[string]any {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	size, err := c.store.Len()
	if err != nil {
		slog.Warn("Failed to count cache entries", "error", err)
		size = -1
	}

	return map[string]any{
		"total_entries":    size,
		"hits":             hits,
		"misses":           misses,
		"hit_rate_percent": hitRate,
		"ttl_seconds":      int(c.ttl.Seconds()),
		"taxonomy_version": c.versions.TaxonomyVersion(),
		"artifact_version": c.versions.ArtifactVersion(),
	}
}
