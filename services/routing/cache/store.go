// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache implements the routing result cache.
//
// The cache sits in front of the proposer so a repeated question never pays a
// second LLM call while the answer is still current. Entries are keyed on the
// normalized question plus the domain pair plus both the taxonomy-definition
// and artifact versions, so a catalog reload or a taxonomy revision naturally
// orphans every stale key. Eviction is lazy: stale and version-mismatched
// entries are deleted when read.
package cache

import (
	"time"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
)

// Entry is one cached routing result together with the metadata the cache
// needs to decide whether it is still servable.
type Entry struct {
	Result          datatypes.RoutingResult `json:"result"`
	CachedAt        time.Time               `json:"cached_at"`
	TaxonomyVersion int                     `json:"taxonomy_version"`
	ArtifactVersion int                     `json:"artifact_version"`
}

// Store is the persistence layer beneath RoutingCache. Implementations must
// be safe for concurrent use.
//
// The ttl passed to Set is advisory: stores that support native expiry (the
// badger store) use it to bound disk growth, while RoutingCache performs the
// authoritative freshness check on read so expiry behavior is identical
// across stores.
type Store interface {
	Get(key string) (Entry, bool, error)
	Set(key string, entry Entry, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Len() (int, error)
	Close() error
}
