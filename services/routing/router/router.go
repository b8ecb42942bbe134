// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package router implements the reading router: the pipeline stage that
// turns a classified question into parallel reading paths.
//
// The pipeline is cache, gate, proposer, validator, in that order. The
// proposer is the only nondeterministic stage and the only one that is
// allowed to fail; every failure mode downstream of the gate degrades to
// either a refusal or a deterministic fallback, never an error. Paths are
// parallel angles on the question, not ranked alternatives, and the result
// names places to read. It never summarizes them.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/cache"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/observability"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

// routerTracer is the OpenTelemetry tracer for routing operations.
var routerTracer = otel.Tracer("alexandria.routing.router")

// Routing outcomes used as metric labels.
const (
	outcomeValid    = "valid"
	outcomeRefusal  = "refusal"
	outcomeFallback = "fallback"
)

// Config parameterizes a Router.
type Config struct {
	// MaxBooks caps the gate candidate set. Zero means the gate default.
	MaxBooks int

	// MaxChaptersPerBook caps chapters fetched per candidate book. Zero
	// means the gate default.
	MaxChaptersPerBook int
}

// Router routes a classified question to reading locations.
//
// Stateless between calls: every request reads one gate snapshot and writes
// at most one cache entry. Safe for concurrent use as long as its
// collaborators are.
type Router struct {
	gate      taxonomy.Gate
	proposer  Proposer
	validator *Validator
	cache     *cache.RoutingCache
	metrics   *observability.RoutingMetrics
	cfg       Config
}

// New builds a Router. cache and metrics may be nil, which disables caching
// and metric recording respectively.
func New(gate taxonomy.Gate, proposer Proposer, routingCache *cache.RoutingCache, metrics *observability.RoutingMetrics, cfg Config) *Router {
	return &Router{
		gate:      gate,
		proposer:  proposer,
		validator: NewValidator(gate, metrics),
		cache:     routingCache,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Route answers WHERE to read for a classified question.
//
// domain and subdomain are the classifier's display names. availableBooks
// optionally restricts routing to a caller-known subset; nil means every
// book the gate knows. chaptersByBook optionally supplies chapter listings
// that take precedence over the gate's.
//
// The returned result is always well-formed: a refusal when the taxonomy has
// nothing to offer, a sanitized proposal when the proposer cooperates, and a
// deterministic fallback when it does not.
func (r *Router) Route(
	ctx context.Context,
	question, domain, subdomain string,
	availableBooks []datatypes.BookRecord,
	chaptersByBook map[string][]datatypes.ChapterRecord,
) datatypes.RoutingResult {
	ctx, span := routerTracer.Start(ctx, "router.route")
	defer span.End()
	start := time.Now()

	domainID, subdomainID := taxonomy.MapToIDs(domain, subdomain)
	span.SetAttributes(
		attribute.String("routing.domain_id", domainID),
		attribute.String("routing.subdomain_id", subdomainID),
	)

	if r.cache != nil {
		if result, ok := r.cache.Get(question, domainID, subdomainID); ok {
			r.countCache("hit")
			span.SetAttributes(attribute.Bool("routing.cache_hit", true))
			return result
		}
		r.countCache("miss")
	}

	candidateIDs := r.gate.CandidateBooks(domainID, subdomainID, r.cfg.MaxBooks)
	if r.metrics != nil {
		r.metrics.CandidateBooks.Observe(float64(len(candidateIDs)))
	}
	if len(candidateIDs) == 0 {
		sub := subdomainID
		if sub == "" {
			sub = "general"
		}
		r.finish(span, start, outcomeRefusal, "gate")
		return datatypes.Refusal(fmt.Sprintf("No books mapped to %s/%s in taxonomy", domainID, sub))
	}

	books, booksByID := r.resolveCandidates(candidateIDs, availableBooks)
	if len(books) == 0 {
		r.finish(span, start, outcomeRefusal, "gate")
		return datatypes.Refusal("No candidate books available")
	}

	merged := r.mergeChapters(books, chaptersByBook)

	proposal, err := r.proposer.Propose(ctx, ProposeRequest{
		Question:       question,
		Domain:         domain,
		Subdomain:      subdomain,
		Books:          books,
		ChaptersByBook: merged,
	})
	if err != nil {
		slog.Warn("Proposer failed, serving fallback routing",
			"domain", domainID, "reason", fallbackReason(err), "error", err)
		span.RecordError(err)
		if r.metrics != nil {
			r.metrics.ProposerFallbacksTotal.WithLabelValues(fallbackReason(err)).Inc()
		}
		result := r.validator.Fallback(books, merged)
		r.cachePut(question, domainID, subdomainID, result)
		r.finish(span, start, outcomeFallback, "")
		return result
	}

	result := r.validator.Sanitize(proposal, booksByID, merged)
	if !result.IsValid {
		r.finish(span, start, outcomeRefusal, "validator")
		return result
	}

	r.cachePut(question, domainID, subdomainID, result)
	span.SetAttributes(
		attribute.Int("routing.paths", len(result.Paths)),
		attribute.Int("routing.recommendations", result.TotalRecommendations()),
	)
	r.finish(span, start, outcomeValid, "")
	return result
}

// resolveCandidates turns candidate ids into ordered book records. When the
// caller supplied availableBooks the routing set is the intersection in
// caller order; otherwise gate metadata in gate order.
func (r *Router) resolveCandidates(candidateIDs []string, availableBooks []datatypes.BookRecord) ([]datatypes.BookRecord, map[string]datatypes.BookRecord) {
	inCandidates := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		inCandidates[id] = true
	}

	var books []datatypes.BookRecord
	if availableBooks == nil {
		for _, id := range candidateIDs {
			if book, ok := r.gate.BookMetadata(id); ok {
				books = append(books, book)
			}
		}
	} else {
		for _, book := range availableBooks {
			if inCandidates[book.BookID] {
				books = append(books, book)
			}
		}
	}

	booksByID := make(map[string]datatypes.BookRecord, len(books))
	for _, book := range books {
		booksByID[book.BookID] = book
	}
	return books, booksByID
}

// mergeChapters combines gate chapter listings with caller-supplied ones.
// Caller listings win when non-empty.
func (r *Router) mergeChapters(books []datatypes.BookRecord, callerChapters map[string][]datatypes.ChapterRecord) map[string][]datatypes.ChapterRecord {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.BookID
	}
	merged := r.gate.CandidateChapters(ids, r.cfg.MaxChaptersPerBook)
	for bookID, chapters := range callerChapters {
		if len(chapters) > 0 {
			merged[bookID] = chapters
		}
	}
	return merged
}

func (r *Router) cachePut(question, domainID, subdomainID string, result datatypes.RoutingResult) {
	if r.cache != nil {
		r.cache.Put(question, domainID, subdomainID, result)
	}
}

func (r *Router) countCache(result string) {
	if r.metrics != nil {
		r.metrics.CacheRequestsTotal.WithLabelValues(result).Inc()
	}
}

func (r *Router) finish(span trace.Span, start time.Time, outcome, refusalStage string) {
	span.SetAttributes(attribute.String("routing.outcome", outcome))
	if r.metrics == nil {
		return
	}
	r.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	r.metrics.RouteDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if refusalStage != "" {
		r.metrics.RefusalsTotal.WithLabelValues(refusalStage).Inc()
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrProposerTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedProposal):
		return "malformed"
	default:
		return "internal"
	}
}
