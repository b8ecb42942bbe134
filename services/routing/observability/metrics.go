// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the routing service.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "alexandria"

// Subsystem for routing metrics.
const routingSubsystem = "routing"

// RoutingMetrics holds all Prometheus metrics for the routing pipeline.
type RoutingMetrics struct {
	// RequestsTotal counts routing requests by outcome.
	// Labels: outcome (valid, refusal, fallback)
	RequestsTotal *prometheus.CounterVec

	// RefusalsTotal counts refusals by stage.
	// Labels: stage (classifier, gate, validator)
	RefusalsTotal *prometheus.CounterVec

	// CacheRequestsTotal counts cache lookups by result.
	// Labels: result (hit, miss)
	CacheRequestsTotal *prometheus.CounterVec

	// ProposerFallbacksTotal counts proposer failures that degraded to
	// the deterministic fallback result.
	// Labels: reason (timeout, malformed, internal)
	ProposerFallbacksTotal *prometheus.CounterVec

	// RecommendationsDroppedTotal counts proposed recommendations the
	// validator discarded.
	// Labels: reason (unknown_book, unknown_chapter, no_chapters)
	RecommendationsDroppedTotal *prometheus.CounterVec

	// RouteDurationSeconds measures end-to-end routing latency.
	// Labels: outcome (valid, refusal, fallback)
	RouteDurationSeconds *prometheus.HistogramVec

	// CandidateBooks observes gate candidate set sizes.
	CandidateBooks prometheus.Histogram
}

// DefaultMetrics is the singleton instance. Initialized by InitMetrics().
var DefaultMetrics *RoutingMetrics

// NewMetrics creates and registers routing metrics against reg. Use a fresh
// registry in tests to avoid duplicate registration panics.
func NewMetrics(reg prometheus.Registerer) *RoutingMetrics {
	factory := promauto.With(reg)
	return &RoutingMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: routingSubsystem,
				Name:      "requests_total",
				Help:      "Total routing requests by outcome",
			},
			[]string{"outcome"},
		),

		RefusalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: routingSubsystem,
				Name:      "refusals_total",
				Help:      "Total refusals by pipeline stage",
			},
			[]string{"stage"},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: routingSubsystem,
				Name:      "cache_requests_total",
				Help:      "Total routing cache lookups by result",
			},
			[]string{"result"},
		),

		ProposerFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: routingSubsystem,
				Name:      "proposer_fallbacks_total",
				Help:      "Proposer failures degraded to the fallback result",
			},
			[]string{"reason"},
		),

		RecommendationsDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: routingSubsystem,
				Name:      "recommendations_dropped_total",
				Help:      "Proposed recommendations discarded by the validator",
			},
			[]string{"reason"},
		),

		RouteDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: routingSubsystem,
				Name:      "route_duration_seconds",
				Help:      "End-to-end routing latency in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"outcome"},
		),

		CandidateBooks: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: routingSubsystem,
				Name:      "candidate_books",
				Help:      "Gate candidate set sizes",
				Buckets:   []float64{0, 1, 2, 4, 8, 12},
			},
		),
	}
}

// InitMetrics initializes the default metrics instance against the default
// Prometheus registry. Call once at startup; a second call panics on
// duplicate registration.
func InitMetrics() *RoutingMetrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}
