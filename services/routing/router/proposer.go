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
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/llm"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
)

// Prompt size caps. More candidates than this stop improving proposals and
// start bloating the context window.
const (
	maxBooksInPrompt           = 10
	maxChaptersPerBookInPrompt = 8
)

// ProposedRecommendation is one raw recommendation from the proposer. Only
// the fields the proposer is trusted to pick: which book, which chapter
// number, and why. Titles, authors, and chapter ids are resolved by the
// validator from gate data, never taken from the model.
type ProposedRecommendation struct {
	BookID        string `json:"book_id"`
	ChapterNumber int    `json:"chapter_number"`
	Rationale     string `json:"rationale"`
}

// ProposedPath is one raw path from the proposer.
type ProposedPath struct {
	Angle           string                   `json:"angle"`
	Recommendations []ProposedRecommendation `json:"recommendations"`
}

// Proposal is the proposer's full raw output. It is untrusted until the
// validator has sanitized it.
type Proposal struct {
	Paths []ProposedPath `json:"paths"`
}

// ProposeRequest carries everything a proposer may see: the question and the
// gated candidate listing. A proposer has no other view of the catalog.
type ProposeRequest struct {
	Question       string
	Domain         string
	Subdomain      string
	Books          []datatypes.BookRecord
	ChaptersByBook map[string][]datatypes.ChapterRecord
}

// Proposer suggests reading paths for a question. Errors are mapped to the
// package sentinels so the router can pick its failure mode.
type Proposer interface {
	Propose(ctx context.Context, req ProposeRequest) (*Proposal, error)
}

// LLMProposer asks a model to propose reading paths as JSON.
type LLMProposer struct {
	client llm.LLMClient
}

var _ Proposer = (*LLMProposer)(nil)

// NewLLMProposer builds a proposer over a model backend.
func NewLLMProposer(client llm.LLMClient) *LLMProposer {
	return &LLMProposer{client: client}
}

// buildCandidateListing formats the gated candidates for the prompt. Books
// without chapters are omitted entirely: the validator discards any
// recommendation pointing at them, so offering one to the model only invites
// proposals that cannot survive sanitation.
func buildCandidateListing(books []datatypes.BookRecord, chaptersByBook map[string][]datatypes.ChapterRecord) string {
	var blocks []string
	for _, b := range books {
		if len(blocks) >= maxBooksInPrompt {
			break
		}
		chapters := chaptersByBook[b.BookID]
		if len(chapters) == 0 {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "  %s:\n    %q by %s\n    Chapters:\n", b.BookID, b.Title, b.Author)
		var lines []string
		for j, c := range chapters {
			if j >= maxChaptersPerBookInPrompt {
				break
			}
			lines = append(lines, fmt.Sprintf("Ch%d: %s", c.Number, c.Title))
		}
		sb.WriteString("    " + strings.Join(lines, "\n    "))
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

func proposerSystemPrompt(req ProposeRequest) string {
	subdomain := req.Subdomain
	if subdomain == "" {
		subdomain = "General"
	}
	return fmt.Sprintf(`You are a reading advisor. Given a question and candidate books, suggest PARALLEL reading paths.

Each path represents a DIFFERENT ANGLE on the question - not ranked alternatives, but genuinely different conceptual approaches.

Domain: %s
Subdomain: %s

CANDIDATE BOOKS (you MUST choose from this list):
%s

RESPOND WITH ONLY VALID JSON:
{
  "paths": [
    {
      "angle": "Power dynamics",
      "recommendations": [
        {
          "book_id": "book_xxx",
          "chapter_number": 1,
          "rationale": "Why read this for THIS angle"
        }
      ]
    }
  ]
}

RULES:
- Return 2-4 PARALLEL paths
- Each path has 1-2 recommendations MAX
- Total max 6 recommendations across all paths
- Paths are DIFFERENT angles, not ranked alternatives
- Rationale explains WHY this angle, not WHAT the text says
- NO summaries, NO conclusions, NO ideology
- ONLY use book_ids from the candidate list above
- ONLY use chapter numbers that exist for each book
- If no relevant chapters found, return empty paths array`,
		req.Domain, subdomain, buildCandidateListing(req.Books, req.ChaptersByBook))
}

// Propose implements Proposer.
func (p *LLMProposer) Propose(ctx context.Context, req ProposeRequest) (*Proposal, error) {
	ctx, span := routerTracer.Start(ctx, "proposer.propose")
	defer span.End()
	span.SetAttributes(
		attribute.String("routing.domain", req.Domain),
		attribute.Int("routing.candidate_books", len(req.Books)),
	)

	reply, err := p.client.Generate(ctx, req.Question, llm.GenerationParams{
		System:      proposerSystemPrompt(req),
		Temperature: llm.Float32Ptr(0.3),
		MaxTokens:   llm.IntPtr(600),
		JSONOnly:    true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrProposerTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProposerInternal, err)
	}

	var proposal Proposal
	if err := json.Unmarshal(extractJSON(reply), &proposal); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable proposal")
		return nil, fmt.Errorf("%w: %v", ErrMalformedProposal, err)
	}

	span.SetAttributes(attribute.Int("routing.proposed_paths", len(proposal.Paths)))
	return &proposal, nil
}

// extractJSON trims markdown code fences and any prose around the outermost
// JSON object. Models wrap JSON in fences often enough that parsing the raw
// reply directly would fail on well-formed answers.
func extractJSON(reply string) []byte {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return []byte(s)
}

// MockProposer returns a deterministic proposal from the first candidates.
// One foundational path, plus an alternative when a second book exists.
type MockProposer struct{}

var _ Proposer = (*MockProposer)(nil)

// Propose implements Proposer.
func (p *MockProposer) Propose(ctx context.Context, req ProposeRequest) (*Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Books) == 0 {
		return nil, ErrNoCandidates
	}

	firstChapterNumber := func(bookID string) int {
		if chapters := req.ChaptersByBook[bookID]; len(chapters) > 0 {
			return chapters[0].Number
		}
		return 1
	}

	proposal := &Proposal{
		Paths: []ProposedPath{
			{
				Angle: "Foundational understanding",
				Recommendations: []ProposedRecommendation{
					{
						BookID:        req.Books[0].BookID,
						ChapterNumber: firstChapterNumber(req.Books[0].BookID),
						Rationale:     "This text addresses the core concepts related to your question.",
					},
				},
			},
		},
	}

	if len(req.Books) > 1 {
		proposal.Paths = append(proposal.Paths, ProposedPath{
			Angle: "Alternative perspective",
			Recommendations: []ProposedRecommendation{
				{
					BookID:        req.Books[1].BookID,
					ChapterNumber: firstChapterNumber(req.Books[1].BookID),
					Rationale:     "A different approach to the same question.",
				},
			},
		})
	}

	return proposal, nil
}
