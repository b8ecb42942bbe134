// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the routing service.
//
// Handlers stay thin: bind, delegate to the pipeline, translate the result
// to HTTP. Refusals are successful responses with IsValid=false, not errors;
// a 5xx means the service itself broke, never that the question was
// unroutable.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/observability"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/router"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

var handlersTracer = otel.Tracer("alexandria.routing.handlers")

// HandleAsk routes a question through the full pipeline: classify, gate,
// propose, validate. The response always carries a request id so a routing
// outcome can be matched to its trace. metrics may be nil.
func HandleAsk(classifier router.Classifier, rtr *router.Router, metrics *observability.RoutingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlersTracer.Start(c.Request.Context(), "HandleAsk")
		defer span.End()

		requestID := uuid.NewString()
		span.SetAttributes(attribute.String("routing.request_id", requestID))

		var req datatypes.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
			return
		}

		intent, err := classifier.Classify(ctx, req.Question)
		if err != nil {
			// Only context cancellation reaches here; classification
			// trouble degrades inside the result.
			span.RecordError(err)
			span.SetStatus(codes.Error, "classification canceled")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request canceled"})
			return
		}

		if !intent.IsValid {
			slog.Info("Classifier refused question", "request_id", requestID, "reason", intent.RefusalReason)
			span.SetAttributes(attribute.Bool("routing.classifier_refused", true))
			if metrics != nil {
				metrics.RefusalsTotal.WithLabelValues("classifier").Inc()
			}
			c.JSON(http.StatusOK, datatypes.AskResponse{
				RequestID: requestID,
				Routing:   datatypes.Refusal(intent.RefusalReason),
			})
			return
		}

		result := rtr.Route(ctx, req.Question, intent.Domain, intent.Subdomain, nil, nil)

		slog.Info("Routed question",
			"request_id", requestID,
			"domain", intent.Domain,
			"subdomain", intent.Subdomain,
			"valid", result.IsValid,
			"paths", len(result.Paths),
		)

		c.JSON(http.StatusOK, datatypes.AskResponse{
			RequestID: requestID,
			Domain:    intent.Domain,
			Subdomain: intent.Subdomain,
			Routing:   result,
		})
	}
}

// HandleCandidates exposes the gate directly: which books and chapters a
// domain/subdomain pair may route to. Domain and subdomain are passed as
// query parameters using display names.
func HandleCandidates(gate taxonomy.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := handlersTracer.Start(c.Request.Context(), "HandleCandidates")
		defer span.End()

		domain := c.Query("domain")
		if domain == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "domain query parameter is required"})
			return
		}
		subdomain := c.Query("subdomain")

		domainID, subdomainID := taxonomy.MapToIDs(domain, subdomain)
		bookIDs := gate.CandidateBooks(domainID, subdomainID, taxonomy.DefaultMaxBooks)
		chapters := gate.CandidateChapters(bookIDs, taxonomy.DefaultMaxChaptersPerBook)

		span.SetAttributes(
			attribute.String("routing.domain_id", domainID),
			attribute.Int("routing.candidate_books", len(bookIDs)),
		)

		c.JSON(http.StatusOK, datatypes.CandidatesResponse{
			Domain:         domain,
			Subdomain:      subdomain,
			BookIDs:        bookIDs,
			ChaptersByBook: chapters,
		})
	}
}
