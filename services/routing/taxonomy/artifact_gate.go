// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taxonomy

import (
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/catalog"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
)

// ArtifactGate answers gate queries from the loaded catalog snapshot.
//
// Candidate ordering is deterministic: subdomain-tagged books first, then
// domain-tagged books, each group sorted by book id by the catalog indexes,
// duplicates removed in first-seen position. Two calls against the same
// snapshot return the identical list.
type ArtifactGate struct {
	catalog *catalog.Catalog
}

var _ Gate = (*ArtifactGate)(nil)

// NewArtifactGate wraps a catalog. The catalog's snapshot lifecycle (Load,
// Reset) stays with the caller; the gate only reads.
func NewArtifactGate(cat *catalog.Catalog) *ArtifactGate {
	return &ArtifactGate{catalog: cat}
}

// CandidateBooks implements Gate.
func (g *ArtifactGate) CandidateBooks(domainID, subdomainID string, maxBooks int) []string {
	if maxBooks <= 0 {
		maxBooks = DefaultMaxBooks
	}

	seen := make(map[string]bool)
	candidates := make([]string, 0, maxBooks)

	appendIDs := func(ids []string) {
		for _, id := range ids {
			if len(candidates) >= maxBooks {
				return
			}
			if !seen[id] {
				seen[id] = true
				candidates = append(candidates, id)
			}
		}
	}

	if subdomainID != "" {
		appendIDs(g.catalog.BooksBySubdomain(subdomainID))
	}
	appendIDs(g.catalog.BooksByDomain(domainID))

	return candidates
}

// CandidateChapters implements Gate.
func (g *ArtifactGate) CandidateChapters(bookIDs []string, maxPerBook int) map[string][]datatypes.ChapterRecord {
	if maxPerBook <= 0 {
		maxPerBook = DefaultMaxChaptersPerBook
	}
	result := make(map[string][]datatypes.ChapterRecord, len(bookIDs))
	for _, id := range bookIDs {
		chapters := g.catalog.Chapters(id)
		if len(chapters) > maxPerBook {
			chapters = chapters[:maxPerBook]
		}
		result[id] = chapters
	}
	return result
}

// BookMetadata implements Gate.
func (g *ArtifactGate) BookMetadata(id string) (datatypes.BookRecord, bool) {
	return g.catalog.Book(id)
}

// ValidateBookID implements Gate.
func (g *ArtifactGate) ValidateBookID(id string) bool {
	return g.catalog.ValidateBookID(id)
}

// ValidateChapterID implements Gate.
func (g *ArtifactGate) ValidateChapterID(chapterID, bookID string) bool {
	return g.catalog.ValidateChapterID(chapterID, bookID)
}

// TaxonomyVersion implements Gate.
func (g *ArtifactGate) TaxonomyVersion() int {
	return g.catalog.TaxonomyVersion()
}

// ArtifactVersion implements Gate.
func (g *ArtifactGate) ArtifactVersion() int {
	return g.catalog.Version()
}

// Stats implements Gate.
func (g *ArtifactGate) Stats() map[string]any {
	stats := g.catalog.Stats()
	stats["mode"] = ModeArtifact
	return stats
}
