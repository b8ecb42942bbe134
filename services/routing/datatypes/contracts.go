// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the agent contracts and artifact wire types for
// the routing service.
//
// Every agent in the pipeline returns a structured result and every agent may
// refuse (IsValid=false with a refusal reason). No contract carries free-form
// answer text: the classifier names a domain, the router names reading
// locations, and that is all. If a contract is wrong, fix it here rather than
// working around it in a handler.
package datatypes

// Hard caps on routing output. The validator enforces these regardless of
// what the proposer returns.
const (
	// MaxPaths is the maximum number of reading paths in a valid result.
	MaxPaths = 4

	// MaxRecommendationsPerPath caps how many recommendations a single
	// path may keep.
	MaxRecommendationsPerPath = 2

	// MaxTotalRecommendations caps recommendations across all paths.
	MaxTotalRecommendations = 6

	// MaxRationaleLen caps the rationale string so it cannot become a
	// de facto summary of the text.
	MaxRationaleLen = 200

	// MaxAngleLen caps the angle label on a path.
	MaxAngleLen = 100
)

// PlaceholderRationale is substituted when the proposer supplies no rationale.
// It makes no claim about the content of the text.
const PlaceholderRationale = "Relevant to your question"

// IntentResult is the output of the intent classifier.
//
// It maps a question to a conceptual domain. It does NOT select books; that
// is the router's job. A refusal carries IsValid=false and a reason.
type IntentResult struct {
	Domain        string  `json:"domain"`
	Subdomain     string  `json:"subdomain,omitempty"`
	Confidence    float64 `json:"confidence"`
	IsValid       bool    `json:"is_valid"`
	RefusalReason string  `json:"refusal_reason,omitempty"`
}

// ReadingRecommendation points at exactly one place to read: a chapter of a
// book, plus a short reason to start there. It never carries a summary, key
// points, or a relevance score.
type ReadingRecommendation struct {
	BookID        string `json:"book_id"`
	BookTitle     string `json:"book_title"`
	BookAuthor    string `json:"book_author"`
	ChapterID     string `json:"chapter_id"`
	ChapterNumber int    `json:"chapter_number"`
	ChapterTitle  string `json:"chapter_title"`
	Rationale     string `json:"rationale"`
}

// ReadingPath is one conceptual angle of approach to a question.
//
// Paths are parallel, not ranked: for "why does my boss act like that?" one
// path may approach through power dynamics and another through systems
// thinking. The reader chooses which angle resonates. There is deliberately
// no priority field.
type ReadingPath struct {
	Angle           string                  `json:"angle"`
	Recommendations []ReadingRecommendation `json:"recommendations"`
}

// RoutingResult is the output of the reading router: either 1-4 parallel
// reading paths (IsValid=true) or a refusal with a reason.
type RoutingResult struct {
	Paths         []ReadingPath `json:"paths"`
	IsValid       bool          `json:"is_valid"`
	RefusalReason string        `json:"refusal_reason,omitempty"`
}

// Recommendations flattens all paths into a single list.
func (r RoutingResult) Recommendations() []ReadingRecommendation {
	var recs []ReadingRecommendation
	for _, p := range r.Paths {
		recs = append(recs, p.Recommendations...)
	}
	return recs
}

// TotalRecommendations returns the recommendation count across all paths.
func (r RoutingResult) TotalRecommendations() int {
	n := 0
	for _, p := range r.Paths {
		n += len(p.Recommendations)
	}
	return n
}

// Refusal builds an invalid RoutingResult with the given reason.
func Refusal(reason string) RoutingResult {
	return RoutingResult{Paths: []ReadingPath{}, IsValid: false, RefusalReason: reason}
}

// ValidDomains is the whitelist of display-level domains the classifier may
// return. Anything else is treated as a hallucination and repaired.
var ValidDomains = []string{
	"Philosophy",
	"Strategy",
	"Technology",
	"Psychology",
	"Economics",
	"History",
	"Literature",
	"Science",
	"Security",
	"Business",
	"Self-Improvement",
}

// ValidSubdomains lists the known subdomains per domain. Domains without an
// entry accept any subdomain.
var ValidSubdomains = map[string][]string{
	"Philosophy":       {"Stoicism", "Ethics", "Metaphysics", "Epistemology", "Political Philosophy"},
	"Strategy":         {"Military Strategy", "Game Theory", "Negotiation", "Decision Making", "Political Philosophy"},
	"Technology":       {"Software Engineering", "Systems Design", "Security", "Databases"},
	"Psychology":       {"Cognitive Science", "Behavioral Economics", "Social Psychology", "Mindfulness"},
	"Economics":        {"Microeconomics", "Macroeconomics", "Political Economy"},
	"Business":         {"Management", "Leadership", "Entrepreneurship"},
	"Self-Improvement": {"Productivity", "Mindfulness", "Habits"},
}

// ValidateDomain reports whether domain is on the whitelist.
func ValidateDomain(domain string) bool {
	for _, d := range ValidDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// ValidateSubdomain reports whether subdomain is acceptable for domain.
// Domains with no defined subdomain list accept anything.
func ValidateSubdomain(domain, subdomain string) bool {
	subs, ok := ValidSubdomains[domain]
	if !ok {
		return true
	}
	for _, s := range subs {
		if s == subdomain {
			return true
		}
	}
	return false
}
