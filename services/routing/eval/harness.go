// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package eval runs canned questions through the routing pipeline and checks
// the structural guarantees on every answer.
//
// The harness exists to inspect routing quality before unmocking: run it
// against the mock agents to verify the plumbing, then against the real
// model to eyeball proposal quality. Domain mismatches are reported, not
// failed; the expected domains are judgment calls. Structural violations are
// hard failures because the validator is supposed to make them impossible.
package eval

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/router"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

// TestQuery is one canned question with its expected classification.
type TestQuery struct {
	Query          string
	ExpectedDomain string
	Notes          string
}

// TestQueries covers every domain in the canon plus vague and out-of-scope
// questions. ExpectedDomain "N/A" marks questions that should refuse.
var TestQueries = []TestQuery{
	// Philosophy / Stoicism
	{Query: "How do I deal with things I can't control?", ExpectedDomain: "Philosophy", Notes: "Should route to Meditations"},
	{Query: "Why does suffering happen?", ExpectedDomain: "Philosophy", Notes: "Stoic perspective"},
	{Query: "What is virtue?", ExpectedDomain: "Philosophy", Notes: "Core philosophy question"},
	{Query: "How do I find meaning in life?", ExpectedDomain: "Philosophy", Notes: "Existential"},

	// Strategy / Power
	{Query: "Why does my boss act like that?", ExpectedDomain: "Strategy", Notes: "Should consider 48 Laws of Power"},
	{Query: "How do I gain influence at work?", ExpectedDomain: "Strategy", Notes: "Power dynamics"},
	{Query: "Why do people manipulate others?", ExpectedDomain: "Strategy", Notes: "Political psychology"},
	{Query: "What makes a good leader?", ExpectedDomain: "Strategy", Notes: "Leadership principles"},

	// Strategy / War
	{Query: "How do I handle conflict with someone?", ExpectedDomain: "Strategy", Notes: "Should route to Art of War"},
	{Query: "What is strategic thinking?", ExpectedDomain: "Strategy", Notes: "Core strategy question"},
	{Query: "How do I win an argument?", ExpectedDomain: "Strategy", Notes: "Tactical approach"},

	// Psychology / Mindfulness
	{Query: "How do I stop overthinking?", ExpectedDomain: "Psychology", Notes: "Should route to mindfulness"},
	{Query: "Why am I always anxious?", ExpectedDomain: "Psychology", Notes: "Mental state"},
	{Query: "How do I focus better?", ExpectedDomain: "Psychology", Notes: "Attention and presence"},
	{Query: "What is mindfulness?", ExpectedDomain: "Psychology", Notes: "Core concept"},

	// Psychology / Cognition
	{Query: "Why do I make bad decisions?", ExpectedDomain: "Psychology", Notes: "Decision making, cognitive bias"},
	{Query: "How does bias affect thinking?", ExpectedDomain: "Psychology", Notes: "Cognitive science"},
	{Query: "Why do people believe what they believe?", ExpectedDomain: "Psychology", Notes: "Belief formation"},

	// Technology / Systems
	{Query: "Why are systems so complex?", ExpectedDomain: "Technology", Notes: "Should route to Thinking in Systems"},
	{Query: "How do feedback loops work?", ExpectedDomain: "Technology", Notes: "Systems thinking"},
	{Query: "Why do organizations fail?", ExpectedDomain: "Technology", Notes: "Could be systems or strategy"},
	{Query: "What causes unintended consequences?", ExpectedDomain: "Technology", Notes: "Systems behavior"},

	// Business / Economics
	{Query: "Why do markets crash?", ExpectedDomain: "Economics", Notes: "Economic systems"},
	{Query: "How does capitalism work?", ExpectedDomain: "Economics", Notes: "Economic systems"},
	{Query: "Why do companies fail?", ExpectedDomain: "Business", Notes: "Business strategy"},

	// Edge cases / Multi-domain
	{Query: "Why do power dynamics ruin relationships?", ExpectedDomain: "Strategy", Notes: "Could be Strategy or Psychology"},
	{Query: "How do I stop caring what people think?", ExpectedDomain: "Philosophy", Notes: "Could be Philosophy or Psychology"},
	{Query: "Why do smart people believe stupid things?", ExpectedDomain: "Psychology", Notes: "Cognitive bias / social psychology"},
	{Query: "Frustrated at work", ExpectedDomain: "Strategy", Notes: "Vague but work-related"},
	{Query: "Confused about money", ExpectedDomain: "Economics", Notes: "Vague but economic"},

	// Should refuse or struggle
	{Query: "What's the weather today?", ExpectedDomain: "N/A", Notes: "Should refuse - not in scope"},
}

// QueryResult is the outcome of one query run.
type QueryResult struct {
	Query         TestQuery
	Intent        datatypes.IntentResult
	Routing       datatypes.RoutingResult
	DomainMatched bool
	Violations    []string
}

// Report aggregates a harness run.
type Report struct {
	Results       []QueryResult
	Total         int
	Completed     int
	ValidIntent   int
	Routed        int
	DomainMatches int
	Violations    int
}

// Harness drives queries through a classifier and router concurrently.
type Harness struct {
	classifier  router.Classifier
	router      *router.Router
	gate        taxonomy.Gate
	queries     []TestQuery
	concurrency int
}

// New builds a harness. concurrency bounds parallel queries; zero or
// negative means 4.
func New(classifier router.Classifier, rtr *router.Router, gate taxonomy.Gate, concurrency int) *Harness {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Harness{
		classifier:  classifier,
		router:      rtr,
		gate:        gate,
		queries:     TestQueries,
		concurrency: concurrency,
	}
}

// WithQueries replaces the canned query set, for focused runs.
func (h *Harness) WithQueries(queries []TestQuery) *Harness {
	h.queries = queries
	return h
}

// Run executes every query and aggregates the report. Context cancellation
// aborts the run; routing trouble shows up as refusals in the results, not
// as errors.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	results := make([]QueryResult, len(h.queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i, query := range h.queries {
		i, query := i, query
		g.Go(func() error {
			result, err := h.runQuery(ctx, query)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("eval run aborted: %w", err)
	}

	report := &Report{Results: results, Total: len(results)}
	for _, r := range results {
		report.Completed++
		if r.Intent.IsValid {
			report.ValidIntent++
		}
		if r.Routing.IsValid {
			report.Routed++
		}
		if r.DomainMatched {
			report.DomainMatches++
		}
		report.Violations += len(r.Violations)
	}
	return report, nil
}

func (h *Harness) runQuery(ctx context.Context, query TestQuery) (QueryResult, error) {
	result := QueryResult{Query: query}

	intent, err := h.classifier.Classify(ctx, query.Query)
	if err != nil {
		return result, err
	}
	result.Intent = intent
	result.DomainMatched = query.ExpectedDomain == "N/A" || intent.Domain == query.ExpectedDomain

	if !intent.IsValid {
		result.Routing = datatypes.Refusal(intent.RefusalReason)
		result.Violations = checkResult(result.Routing, h.gate)
		return result, nil
	}

	result.Routing = h.router.Route(ctx, query.Query, intent.Domain, intent.Subdomain, nil, nil)
	result.Violations = checkResult(result.Routing, h.gate)
	return result, nil
}

// checkResult verifies the structural guarantees every routing result must
// hold, valid or refused.
func checkResult(result datatypes.RoutingResult, gate taxonomy.Gate) []string {
	var violations []string

	if !result.IsValid {
		if result.RefusalReason == "" {
			violations = append(violations, "refusal without a reason")
		}
		if len(result.Paths) != 0 {
			violations = append(violations, "refusal carries paths")
		}
		return violations
	}

	if len(result.Paths) == 0 {
		violations = append(violations, "valid result with no paths")
	}
	if len(result.Paths) > datatypes.MaxPaths {
		violations = append(violations, fmt.Sprintf("%d paths exceeds cap", len(result.Paths)))
	}
	if result.TotalRecommendations() > datatypes.MaxTotalRecommendations {
		violations = append(violations, fmt.Sprintf("%d total recommendations exceeds cap", result.TotalRecommendations()))
	}

	for i, path := range result.Paths {
		if path.Angle == "" {
			violations = append(violations, fmt.Sprintf("path %d has no angle", i))
		}
		if utf8.RuneCountInString(path.Angle) > datatypes.MaxAngleLen {
			violations = append(violations, fmt.Sprintf("path %d angle exceeds length cap", i))
		}
		if len(path.Recommendations) == 0 {
			violations = append(violations, fmt.Sprintf("path %d is empty", i))
		}
		if len(path.Recommendations) > datatypes.MaxRecommendationsPerPath {
			violations = append(violations, fmt.Sprintf("path %d exceeds per-path cap", i))
		}
		for j, rec := range path.Recommendations {
			if !gate.ValidateBookID(rec.BookID) {
				violations = append(violations, fmt.Sprintf("path %d rec %d references unknown book %s", i, j, rec.BookID))
			}
			if !gate.ValidateChapterID(rec.ChapterID, rec.BookID) {
				violations = append(violations, fmt.Sprintf("path %d rec %d references unknown chapter %s", i, j, rec.ChapterID))
			}
			if rec.Rationale == "" {
				violations = append(violations, fmt.Sprintf("path %d rec %d has no rationale", i, j))
			}
			if utf8.RuneCountInString(rec.Rationale) > datatypes.MaxRationaleLen {
				violations = append(violations, fmt.Sprintf("path %d rec %d rationale exceeds length cap", i, j))
			}
		}
	}
	return violations
}

// WriteText renders the report for terminal review.
func (r *Report) WriteText(w io.Writer) {
	for i, res := range r.Results {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, r.Total, res.Query.Query)
		fmt.Fprintf(w, "Intent: %s/%s (confidence %.2f)\n", res.Intent.Domain, orGeneral(res.Intent.Subdomain), res.Intent.Confidence)

		if !res.Routing.IsValid {
			fmt.Fprintf(w, "REFUSED: %s\n", res.Routing.RefusalReason)
		} else {
			fmt.Fprintf(w, "Paths: %d\n", len(res.Routing.Paths))
			for _, path := range res.Routing.Paths {
				fmt.Fprintf(w, "  Angle: %s\n", path.Angle)
				for _, rec := range path.Recommendations {
					fmt.Fprintf(w, "    %s (Ch%d: %s)\n", rec.BookTitle, rec.ChapterNumber, rec.ChapterTitle)
					fmt.Fprintf(w, "      Rationale: %s\n", rec.Rationale)
				}
			}
		}

		if !res.DomainMatched {
			fmt.Fprintf(w, "NOTE: expected %s, got %s\n", res.Query.ExpectedDomain, res.Intent.Domain)
		}
		for _, v := range res.Violations {
			fmt.Fprintf(w, "VIOLATION: %s\n", v)
		}
	}

	fmt.Fprintf(w, "\nSUMMARY\n")
	fmt.Fprintf(w, "Total queries: %d\n", r.Total)
	fmt.Fprintf(w, "Valid intent: %d\n", r.ValidIntent)
	fmt.Fprintf(w, "Successfully routed: %d\n", r.Routed)
	fmt.Fprintf(w, "Domain matches: %d\n", r.DomainMatches)
	fmt.Fprintf(w, "Structural violations: %d\n", r.Violations)
	if r.Total > 0 {
		fmt.Fprintf(w, "Success rate: %.1f%%\n", float64(r.Routed)/float64(r.Total)*100)
	}
}

func orGeneral(subdomain string) string {
	if subdomain == "" {
		return "General"
	}
	return subdomain
}
