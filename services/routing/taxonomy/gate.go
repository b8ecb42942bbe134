// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package taxonomy implements the gate that bounds which books and chapters
// a routing request may reference.
//
// The gate is the constraint that keeps the router grounded: downstream
// proposers receive only the candidate listing it computes, and the validator
// uses its existence checks as the final authority on legality. A proposer
// can therefore never smuggle an out-of-taxonomy book into a result.
//
// Two implementations exist behind the Gate interface and are selected by
// explicit configuration at startup, never by runtime fallback:
//
//   - ModeArtifact: backed by the versioned catalog snapshot (production).
//   - ModeStatic: backed by a mapping table embedded in the binary, for
//     development and environments without artifact builds.
package taxonomy

import (
	"fmt"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/catalog"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
)

// Gate modes selectable via configuration.
const (
	ModeArtifact = "artifact"
	ModeStatic   = "static"
)

// Default bounds on candidate sets. Callers may pass their own caps; these
// are what the service surface uses.
const (
	DefaultMaxBooks           = 12
	DefaultMaxChaptersPerBook = 8
)

// Gate computes candidate sets and answers existence checks for a loaded
// taxonomy. Implementations must be safe for concurrent use and must return
// deterministic candidate orderings for an unchanged catalog.
type Gate interface {
	// CandidateBooks returns the candidate book ids for a domain/subdomain
	// pair: the union of subdomain-tagged and domain-tagged books,
	// deduplicated and truncated to maxBooks. An unmapped domain yields an
	// empty slice, which is a distinct outcome from a gate failure.
	CandidateBooks(domainID, subdomainID string, maxBooks int) []string

	// CandidateChapters returns up to maxPerBook chapters per book,
	// ordered by chapter number.
	CandidateChapters(bookIDs []string, maxPerBook int) map[string][]datatypes.ChapterRecord

	// BookMetadata returns the book record for an id known to the gate.
	BookMetadata(id string) (datatypes.BookRecord, bool)

	// ValidateBookID reports whether the book exists.
	ValidateBookID(id string) bool

	// ValidateChapterID reports whether the chapter exists under the book.
	ValidateChapterID(chapterID, bookID string) bool

	// TaxonomyVersion is the taxonomy-definition version. It changes when
	// domain/subdomain tag meanings change.
	TaxonomyVersion() int

	// ArtifactVersion is the book/chapter snapshot version. It changes
	// when documents or chapters change. Both versions feed cache keys.
	ArtifactVersion() int

	// Stats summarizes the gate for the admin surface.
	Stats() map[string]any
}

// Config selects and parameterizes a gate implementation.
type Config struct {
	// Mode is ModeArtifact or ModeStatic.
	Mode string
}

// NewGate constructs the configured gate implementation. ModeArtifact
// requires a catalog with a loaded snapshot.
func NewGate(cfg Config, cat *catalog.Catalog) (Gate, error) {
	switch cfg.Mode {
	case ModeArtifact:
		if cat == nil {
			return nil, fmt.Errorf("taxonomy: artifact mode requires a catalog")
		}
		return NewArtifactGate(cat), nil
	case ModeStatic:
		return NewStaticGate()
	default:
		return nil, fmt.Errorf("taxonomy: unknown gate mode %q", cfg.Mode)
	}
}
