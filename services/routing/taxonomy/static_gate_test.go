// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStaticGate(t *testing.T) *StaticGate {
	t.Helper()
	gate, err := NewStaticGate()
	require.NoError(t, err)
	return gate
}

func TestStaticGateParsesEmbeddedTable(t *testing.T) {
	gate := newStaticGate(t)
	assert.Equal(t, 2, gate.TaxonomyVersion())
	assert.Equal(t, 2, gate.ArtifactVersion())
	assert.True(t, gate.ValidateBookID("book_d9d95145167f"))
	assert.False(t, gate.ValidateBookID("book_unknown"))
}

func TestStaticGateSubdomainLookup(t *testing.T) {
	gate := newStaticGate(t)

	books := gate.CandidateBooks("strategy", "military", DefaultMaxBooks)
	require.NotEmpty(t, books)
	// The subdomain-specific entry comes first.
	assert.Equal(t, "book_e500fb226315", books[0])
}

func TestStaticGateWildcardFallback(t *testing.T) {
	gate := newStaticGate(t)

	// No subdomain: the domain wildcard entry serves the request.
	books := gate.CandidateBooks("philosophy", "", DefaultMaxBooks)
	assert.Equal(t, []string{"book_d9d95145167f"}, books)

	// Unmapped subdomain still falls back to the wildcard entry.
	books = gate.CandidateBooks("strategy", "alchemy", DefaultMaxBooks)
	assert.Contains(t, books, "book_e500fb226315")
	assert.Contains(t, books, "book_062ae004ce4a")
}

func TestStaticGateDeduplicates(t *testing.T) {
	gate := newStaticGate(t)

	// The military book appears in both the subdomain entry and the domain
	// wildcard; it must show up exactly once.
	books := gate.CandidateBooks("strategy", "military", DefaultMaxBooks)
	counts := make(map[string]int)
	for _, id := range books {
		counts[id]++
	}
	for id, n := range counts {
		assert.Equal(t, 1, n, "book %s duplicated", id)
	}
}

func TestStaticGateMaxBooksCap(t *testing.T) {
	gate := newStaticGate(t)

	books := gate.CandidateBooks("strategy", "", 1)
	assert.Len(t, books, 1)
}

func TestStaticGateUnknownDomain(t *testing.T) {
	gate := newStaticGate(t)
	assert.Empty(t, gate.CandidateBooks("astronomy", "", DefaultMaxBooks))
}

func TestStaticGateDeterministicOrdering(t *testing.T) {
	gate := newStaticGate(t)

	first := gate.CandidateBooks("strategy", "military", DefaultMaxBooks)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, gate.CandidateBooks("strategy", "military", DefaultMaxBooks))
	}
}

func TestStaticGateChapters(t *testing.T) {
	gate := newStaticGate(t)

	chapters := gate.CandidateChapters([]string{"book_d9d95145167f"}, DefaultMaxChaptersPerBook)
	require.Contains(t, chapters, "book_d9d95145167f")
	listing := chapters["book_d9d95145167f"]
	require.NotEmpty(t, listing)
	assert.Equal(t, "ch_d9d95145167f_1", listing[0].ChapterID)
	assert.Equal(t, 1, listing[0].Number)
	assert.Equal(t, "Book One", listing[0].Title)

	// Every mapped book carries chapters; an all-chapterless candidate set
	// would make the whole mode unroutable.
	for id := range gate.books {
		assert.NotEmpty(t, gate.CandidateChapters([]string{id}, 0)[id], "book %s has no chapters", id)
	}
}

func TestStaticGateChaptersCap(t *testing.T) {
	gate := newStaticGate(t)

	chapters := gate.CandidateChapters([]string{"book_e500fb226315"}, 1)
	require.Len(t, chapters["book_e500fb226315"], 1)
	assert.Equal(t, 1, chapters["book_e500fb226315"][0].Number)
}

func TestStaticGateValidateChapterID(t *testing.T) {
	gate := newStaticGate(t)

	assert.True(t, gate.ValidateChapterID("ch_d9d95145167f_1", "book_d9d95145167f"))
	assert.False(t, gate.ValidateChapterID("ch_invented", "book_d9d95145167f"))
	// A real chapter under the wrong book is still invalid.
	assert.False(t, gate.ValidateChapterID("ch_d9d95145167f_1", "book_e500fb226315"))
}

func TestStaticGateStats(t *testing.T) {
	gate := newStaticGate(t)

	stats := gate.Stats()
	assert.Equal(t, ModeStatic, stats["mode"])
	assert.Equal(t, 2, stats["taxonomy_version"])
	assert.Equal(t, 5, stats["total_books"])
	assert.Equal(t, 15, stats["total_chapters"])
}

func TestNewGateModeSelection(t *testing.T) {
	gate, err := NewGate(Config{Mode: ModeStatic}, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticGate{}, gate)

	_, err = NewGate(Config{Mode: ModeArtifact}, nil)
	assert.Error(t, err)

	_, err = NewGate(Config{Mode: "dynamic"}, nil)
	assert.Error(t, err)
}
