// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("valid").Inc()
	m.RequestsTotal.WithLabelValues("refusal").Add(2)
	m.RefusalsTotal.WithLabelValues("gate").Inc()
	m.CacheRequestsTotal.WithLabelValues("hit").Inc()
	m.ProposerFallbacksTotal.WithLabelValues("timeout").Inc()
	m.RecommendationsDroppedTotal.WithLabelValues("unknown_book").Inc()
	m.RouteDurationSeconds.WithLabelValues("valid").Observe(0.05)
	m.CandidateBooks.Observe(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("refusal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefusalsTotal.WithLabelValues("gate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProposerFallbacksTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecommendationsDroppedTotal.WithLabelValues("unknown_book")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"alexandria_routing_requests_total",
		"alexandria_routing_refusals_total",
		"alexandria_routing_cache_requests_total",
		"alexandria_routing_proposer_fallbacks_total",
		"alexandria_routing_recommendations_dropped_total",
		"alexandria_routing_route_duration_seconds",
		"alexandria_routing_candidate_books",
	} {
		assert.True(t, names[want], "metric %s not registered", want)
	}
}

func TestNewMetricsIndependentRegistries(t *testing.T) {
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.RequestsTotal.WithLabelValues("valid").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RequestsTotal.WithLabelValues("valid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RequestsTotal.WithLabelValues("valid")))
}
