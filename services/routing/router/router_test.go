// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/cache"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

// spyProposer records calls and returns a fixed proposal or error.
type spyProposer struct {
	proposal *Proposal
	err      error
	calls    int
	lastReq  ProposeRequest
}

func (p *spyProposer) Propose(ctx context.Context, req ProposeRequest) (*Proposal, error) {
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return p.proposal, nil
}

func goodProposal() *Proposal {
	return &Proposal{Paths: []ProposedPath{
		{Angle: "Stoic practice", Recommendations: []ProposedRecommendation{
			{BookID: "book_med", ChapterNumber: 1, Rationale: "Start here"},
		}},
	}}
}

func TestRouteValidResult(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{proposal: goodProposal()}
	r := New(gate, proposer, nil, nil, Config{})

	result := r.Route(context.Background(), "How do I stay calm?", "Philosophy", "Stoicism", nil, nil)

	require.True(t, result.IsValid)
	require.Len(t, result.Paths, 1)
	assert.Equal(t, "book_med", result.Paths[0].Recommendations[0].BookID)
	assert.Equal(t, 1, proposer.calls)

	// The proposer saw only the gated candidate listing.
	assert.Len(t, proposer.lastReq.Books, 3)
	assert.Equal(t, "book_med", proposer.lastReq.Books[0].BookID)
}

func TestRouteStaticGatePipeline(t *testing.T) {
	gate, err := taxonomy.NewGate(taxonomy.Config{Mode: taxonomy.ModeStatic}, nil)
	require.NoError(t, err)
	r := New(gate, &MockProposer{}, nil, nil, Config{})

	// The embedded table must carry enough chapter data for a mapped
	// question to route end to end, not just produce candidates.
	result := r.Route(context.Background(), "How should a stoic face adversity?", "Philosophy", "Stoicism", nil, nil)

	require.True(t, result.IsValid, "static mode refused a mapped question: %s", result.RefusalReason)
	require.NotEmpty(t, result.Paths)
	rec := result.Paths[0].Recommendations[0]
	assert.Equal(t, "book_d9d95145167f", rec.BookID)
	assert.Equal(t, "Meditations", rec.BookTitle)
	assert.NotEmpty(t, rec.ChapterID)
	assert.True(t, gate.ValidateChapterID(rec.ChapterID, rec.BookID))
}

func TestRouteUnmappedDomainRefusesWithoutProposer(t *testing.T) {
	gate := &fakeGate{} // no candidates at all
	proposer := &spyProposer{proposal: goodProposal()}
	r := New(gate, proposer, nil, nil, Config{})

	result := r.Route(context.Background(), "q", "History", "", nil, nil)

	assert.False(t, result.IsValid)
	assert.Equal(t, "No books mapped to history/general in taxonomy", result.RefusalReason)
	assert.Equal(t, 0, proposer.calls, "proposer must not run without candidates")
}

func TestRouteRefusalNamesSubdomain(t *testing.T) {
	gate := &fakeGate{}
	r := New(gate, &spyProposer{}, nil, nil, Config{})

	result := r.Route(context.Background(), "q", "Strategy", "Military Strategy", nil, nil)

	assert.False(t, result.IsValid)
	assert.Equal(t, "No books mapped to strategy/military in taxonomy", result.RefusalReason)
}

func TestRouteEmptyIntersectionRefuses(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{proposal: goodProposal()}
	r := New(gate, proposer, nil, nil, Config{})

	// Caller restricts routing to a book the gate never proposed.
	available := []datatypes.BookRecord{{BookID: "book_other", Title: "Other", Author: "X"}}
	result := r.Route(context.Background(), "q", "Philosophy", "", available, nil)

	assert.False(t, result.IsValid)
	assert.Equal(t, "No candidate books available", result.RefusalReason)
	assert.Equal(t, 0, proposer.calls)
}

func TestRouteIntersectionKeepsCallerOrder(t *testing.T) {
	gate, books, _ := testFixtures()
	proposer := &spyProposer{proposal: goodProposal()}
	r := New(gate, proposer, nil, nil, Config{})

	available := []datatypes.BookRecord{books["book_aow"], books["book_med"]}
	result := r.Route(context.Background(), "q", "Philosophy", "", available, nil)

	require.True(t, result.IsValid)
	require.Len(t, proposer.lastReq.Books, 2)
	assert.Equal(t, "book_aow", proposer.lastReq.Books[0].BookID)
	assert.Equal(t, "book_med", proposer.lastReq.Books[1].BookID)
}

func TestRouteCallerChaptersWin(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{proposal: goodProposal()}
	r := New(gate, proposer, nil, nil, Config{})

	callerChapters := map[string][]datatypes.ChapterRecord{
		"book_med": {
			{ChapterID: "ch_med_override", BookID: "book_med", Number: 1, Title: "Override"},
		},
	}
	result := r.Route(context.Background(), "q", "Philosophy", "", nil, callerChapters)

	require.True(t, result.IsValid)
	assert.Equal(t, "ch_med_override", proposer.lastReq.ChaptersByBook["book_med"][0].ChapterID)
}

func TestRouteProposerFailureServesFallback(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{err: ErrProposerInternal}
	r := New(gate, proposer, nil, nil, Config{})

	result := r.Route(context.Background(), "q", "Philosophy", "", nil, nil)

	require.True(t, result.IsValid)
	require.Len(t, result.Paths, 2)
	assert.Equal(t, "Foundational understanding", result.Paths[0].Angle)
	assert.Equal(t, "book_med", result.Paths[0].Recommendations[0].BookID)
}

func TestRouteAllDroppedRefuses(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{proposal: &Proposal{Paths: []ProposedPath{
		{Angle: "A", Recommendations: []ProposedRecommendation{
			{BookID: "book_ghost", ChapterNumber: 1, Rationale: "r"},
		}},
	}}}
	r := New(gate, proposer, nil, nil, Config{})

	result := r.Route(context.Background(), "q", "Philosophy", "", nil, nil)

	assert.False(t, result.IsValid)
	assert.Equal(t, RefusalNoRelevantReading, result.RefusalReason)
}

func TestRouteCacheHitSkipsProposer(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{proposal: goodProposal()}
	routingCache := cache.New(cache.NewMemoryStore(), 0, gate)
	r := New(gate, proposer, routingCache, nil, Config{})

	first := r.Route(context.Background(), "How do I stay calm?", "Philosophy", "Stoicism", nil, nil)
	require.True(t, first.IsValid)
	require.Equal(t, 1, proposer.calls)

	second := r.Route(context.Background(), "How do I stay calm?", "Philosophy", "Stoicism", nil, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, proposer.calls, "second request must be served from cache")

	// Normalization folds trivial question variants onto the same entry.
	third := r.Route(context.Background(), "  how do I stay CALM? ", "Philosophy", "Stoicism", nil, nil)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, proposer.calls)
}

func TestRouteRefusalsNotCached(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{proposal: &Proposal{Paths: []ProposedPath{
		{Angle: "A", Recommendations: []ProposedRecommendation{
			{BookID: "book_ghost", ChapterNumber: 1, Rationale: "r"},
		}},
	}}}
	routingCache := cache.New(cache.NewMemoryStore(), 0, gate)
	r := New(gate, proposer, routingCache, nil, Config{})

	r.Route(context.Background(), "q", "Philosophy", "", nil, nil)
	r.Route(context.Background(), "q", "Philosophy", "", nil, nil)

	assert.Equal(t, 2, proposer.calls, "refusals must be recomputed, not cached")
}

func TestRouteFallbackIsCached(t *testing.T) {
	gate, _, _ := testFixtures()
	proposer := &spyProposer{err: ErrProposerTimeout}
	routingCache := cache.New(cache.NewMemoryStore(), 0, gate)
	r := New(gate, proposer, routingCache, nil, Config{})

	first := r.Route(context.Background(), "q", "Philosophy", "", nil, nil)
	require.True(t, first.IsValid)

	second := r.Route(context.Background(), "q", "Philosophy", "", nil, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, proposer.calls)
}

func TestFallbackReason(t *testing.T) {
	assert.Equal(t, "timeout", fallbackReason(ErrProposerTimeout))
	assert.Equal(t, "malformed", fallbackReason(ErrMalformedProposal))
	assert.Equal(t, "internal", fallbackReason(ErrProposerInternal))
	assert.Equal(t, "internal", fallbackReason(context.Canceled))
}
