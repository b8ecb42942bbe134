// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/llm"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
)

// Classifier maps a question to a conceptual domain.
//
// It names WHERE to look, never WHAT to read: book selection belongs to the
// router. An unroutable question comes back as IsValid=false with a reason.
// The returned error is reserved for context cancellation; classification
// trouble (backend down, malformed reply) degrades inside the result instead
// of propagating, so a flaky model never takes the ask endpoint down.
type Classifier interface {
	Classify(ctx context.Context, question string) (datatypes.IntentResult, error)
}

// mockRule is one keyword bucket for the development classifier.
type mockRule struct {
	keywords   []string
	domain     string
	subdomain  string
	confidence float64
}

// mockRules are checked in order, first match wins. Keyword buckets mirror
// the catalog's strongest domains.
var mockRules = []mockRule{
	{
		keywords:   []string{"stoic", "marcus aurelius", "meditations", "virtue", "ethics", "philosophy", "meaning", "death", "suffering"},
		domain:     "Philosophy",
		subdomain:  "Stoicism",
		confidence: 0.85,
	},
	{
		keywords:   []string{"war", "strategy", "sun tzu", "conflict", "battle", "military", "enemy", "tactics"},
		domain:     "Strategy",
		subdomain:  "Military Strategy",
		confidence: 0.85,
	},
	{
		keywords:   []string{"power", "machiavelli", "prince", "politics", "leadership", "influence", "manipulation"},
		domain:     "Strategy",
		subdomain:  "Political Philosophy",
		confidence: 0.80,
	},
	{
		keywords:   []string{"code", "software", "programming", "system", "architecture", "engineering", "database"},
		domain:     "Technology",
		subdomain:  "Software Engineering",
		confidence: 0.85,
	},
	{
		keywords:   []string{"security", "hacking", "cryptography", "vulnerability", "threat"},
		domain:     "Technology",
		subdomain:  "Security",
		confidence: 0.85,
	},
	{
		keywords:   []string{"mind", "psychology", "bias", "decision", "thinking", "cognitive", "behavior"},
		domain:     "Psychology",
		subdomain:  "Cognitive Science",
		confidence: 0.80,
	},
	{
		keywords:   []string{"business", "management", "startup", "company", "entrepreneur"},
		domain:     "Business",
		subdomain:  "Management",
		confidence: 0.75,
	},
	{
		keywords:   []string{"economics", "market", "money", "capitalism", "trade"},
		domain:     "Economics",
		confidence: 0.75,
	},
}

// MockClassifier classifies by keyword matching. Deterministic, no model
// call, used in development and tests.
type MockClassifier struct{}

var _ Classifier = (*MockClassifier)(nil)

// Classify implements Classifier.
func (c *MockClassifier) Classify(ctx context.Context, question string) (datatypes.IntentResult, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.IntentResult{}, err
	}

	lower := strings.ToLower(question)
	for _, rule := range mockRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return datatypes.IntentResult{
					Domain:     rule.domain,
					Subdomain:  rule.subdomain,
					Confidence: rule.confidence,
					IsValid:    true,
				}, nil
			}
		}
	}

	// Philosophy is the broadest domain, so unmatched questions land there
	// with low confidence.
	return datatypes.IntentResult{
		Domain:     "Philosophy",
		Confidence: 0.50,
		IsValid:    true,
	}, nil
}

// LLMClassifier asks a model to classify the question, then repairs whatever
// comes back against the domain whitelist.
type LLMClassifier struct {
	client llm.LLMClient
}

var _ Classifier = (*LLMClassifier)(nil)

// NewLLMClassifier builds a classifier over a model backend.
func NewLLMClassifier(client llm.LLMClient) *LLMClassifier {
	return &LLMClassifier{client: client}
}

// classifierReply is the JSON shape the model is asked to produce.
type classifierReply struct {
	Domain        string  `json:"domain"`
	Subdomain     string  `json:"subdomain"`
	Confidence    float64 `json:"confidence"`
	IsValid       *bool   `json:"is_valid"`
	RefusalReason string  `json:"refusal_reason"`
}

func classifierSystemPrompt() string {
	return fmt.Sprintf(`You are a librarian who classifies questions into knowledge domains.

Available domains: %s

Analyze the user's question and determine which domain it belongs to.

RESPOND WITH ONLY VALID JSON:
{
  "domain": "...",
  "subdomain": "...",
  "confidence": 0.0-1.0
}

OR if the question is inappropriate, spam, or unanswerable:
{
  "is_valid": false,
  "refusal_reason": "..."
}

RULES:
- Pick the MOST relevant domain from the list above
- Subdomain is optional (can be null or omitted)
- Confidence should reflect certainty (0.0 to 1.0)
- For questions about power/influence -> Strategy
- For questions about thinking/mind/behavior -> Psychology
- For questions about systems/complexity -> Technology or Economics
- For questions about meaning/ethics/life -> Philosophy
- If multiple domains fit, pick the primary one
- If question is off-topic, refuse with clear reason`,
		strings.Join(datatypes.ValidDomains, ", "))
}

// Classify implements Classifier.
//
// Repair rules for untrusted model output: a hallucinated domain falls back
// to Philosophy with its confidence penalized, confidence is clamped to
// [0,1], and a backend or parse failure degrades to a low-confidence
// Philosophy result rather than an error. The whole catalog is at least
// adjacent to Philosophy, so the degraded result is still useful.
func (c *LLMClassifier) Classify(ctx context.Context, question string) (datatypes.IntentResult, error) {
	ctx, span := routerTracer.Start(ctx, "classifier.classify")
	defer span.End()

	reply, err := c.client.Generate(ctx, question, llm.GenerationParams{
		System:      classifierSystemPrompt(),
		Temperature: llm.Float32Ptr(0.3),
		MaxTokens:   llm.IntPtr(150),
		JSONOnly:    true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.RecordError(ctxErr)
			span.SetStatus(codes.Error, "classification canceled")
			return datatypes.IntentResult{}, ctxErr
		}
		slog.Warn("Classifier backend failed, degrading to Philosophy", "error", err)
		span.RecordError(err)
		return degradedIntent(), nil
	}

	var parsed classifierReply
	if err := json.Unmarshal(extractJSON(reply), &parsed); err != nil {
		slog.Warn("Classifier returned malformed JSON, degrading to Philosophy", "error", err)
		span.RecordError(err)
		return degradedIntent(), nil
	}

	if parsed.IsValid != nil && !*parsed.IsValid {
		reason := parsed.RefusalReason
		if reason == "" {
			reason = "Unable to classify query"
		}
		span.SetAttributes(attribute.Bool("classifier.refused", true))
		return datatypes.IntentResult{
			Domain:        "Philosophy",
			Confidence:    0,
			IsValid:       false,
			RefusalReason: reason,
		}, nil
	}

	domain := parsed.Domain
	confidence := parsed.Confidence
	if domain == "" {
		domain = "Philosophy"
	}
	if confidence == 0 {
		confidence = 0.5
	}

	if !datatypes.ValidateDomain(domain) {
		slog.Warn("Classifier hallucinated a domain, repairing", "domain", domain)
		domain = "Philosophy"
		confidence = max(0.3, confidence*0.7)
	}
	confidence = max(0.0, min(1.0, confidence))

	span.SetAttributes(
		attribute.String("classifier.domain", domain),
		attribute.Float64("classifier.confidence", confidence),
	)

	return datatypes.IntentResult{
		Domain:     domain,
		Subdomain:  parsed.Subdomain,
		Confidence: confidence,
		IsValid:    true,
	}, nil
}

func degradedIntent() datatypes.IntentResult {
	return datatypes.IntentResult{
		Domain:     "Philosophy",
		Confidence: 0.3,
		IsValid:    true,
	}
}
