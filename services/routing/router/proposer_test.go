// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/llm"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
)

func proposeRequest() ProposeRequest {
	return ProposeRequest{
		Question:  "How do I stay calm under pressure?",
		Domain:    "Philosophy",
		Subdomain: "Stoicism",
		Books: []datatypes.BookRecord{
			{BookID: "book_med", Title: "Meditations", Author: "Marcus Aurelius"},
			{BookID: "book_raw", Title: "Unchaptered Text", Author: "Anon"},
		},
		ChaptersByBook: map[string][]datatypes.ChapterRecord{
			"book_med": {
				{ChapterID: "ch_med_1", BookID: "book_med", Number: 1, Title: "Book One"},
				{ChapterID: "ch_med_2", BookID: "book_med", Number: 2, Title: "Book Two"},
			},
		},
	}
}

func TestBuildCandidateListing(t *testing.T) {
	req := proposeRequest()
	listing := buildCandidateListing(req.Books, req.ChaptersByBook)

	assert.Contains(t, listing, "book_med")
	assert.Contains(t, listing, `"Meditations" by Marcus Aurelius`)
	assert.Contains(t, listing, "Ch1: Book One")
	assert.Contains(t, listing, "Ch2: Book Two")
	// A chapterless book never reaches the prompt; the validator would
	// discard anything proposed from it.
	assert.NotContains(t, listing, "book_raw")
}

func TestBuildCandidateListingCaps(t *testing.T) {
	var books []datatypes.BookRecord
	chaptersByBook := make(map[string][]datatypes.ChapterRecord)
	for i := 0; i < maxBooksInPrompt+5; i++ {
		id := fmt.Sprintf("book_%02d", i)
		books = append(books, datatypes.BookRecord{BookID: id, Title: id, Author: "A"})
		for j := 1; j <= maxChaptersPerBookInPrompt+4; j++ {
			chaptersByBook[id] = append(chaptersByBook[id], datatypes.ChapterRecord{
				ChapterID: fmt.Sprintf("ch_%s_%d", id, j), BookID: id, Number: j, Title: fmt.Sprintf("T%d", j),
			})
		}
	}

	listing := buildCandidateListing(books, chaptersByBook)

	assert.Contains(t, listing, fmt.Sprintf("book_%02d", maxBooksInPrompt-1))
	assert.NotContains(t, listing, fmt.Sprintf("book_%02d", maxBooksInPrompt))
	assert.Contains(t, listing, fmt.Sprintf("Ch%d:", maxChaptersPerBookInPrompt))
	assert.NotContains(t, listing, fmt.Sprintf("Ch%d:", maxChaptersPerBookInPrompt+1))
}

func TestLLMProposerParsesReply(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		`{"paths": [{"angle": "Stoic practice", "recommendations": [{"book_id": "book_med", "chapter_number": 2, "rationale": "Discipline"}]}]}`,
	}}
	p := NewLLMProposer(client)

	proposal, err := p.Propose(context.Background(), proposeRequest())
	require.NoError(t, err)
	require.Len(t, proposal.Paths, 1)
	assert.Equal(t, "Stoic practice", proposal.Paths[0].Angle)
	assert.Equal(t, "book_med", proposal.Paths[0].Recommendations[0].BookID)

	require.Len(t, client.Params, 1)
	assert.True(t, client.Params[0].JSONOnly)
	assert.Contains(t, client.Params[0].System, "book_med")
}

func TestLLMProposerMalformedReply(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"Start with Meditations, book two."}}
	p := NewLLMProposer(client)

	_, err := p.Propose(context.Background(), proposeRequest())
	assert.ErrorIs(t, err, ErrMalformedProposal)
}

func TestLLMProposerTimeout(t *testing.T) {
	client := &llm.MockClient{Err: context.DeadlineExceeded}
	p := NewLLMProposer(client)

	_, err := p.Propose(context.Background(), proposeRequest())
	assert.ErrorIs(t, err, ErrProposerTimeout)
}

func TestLLMProposerInternalError(t *testing.T) {
	client := &llm.MockClient{Err: errors.New("boom")}
	p := NewLLMProposer(client)

	_, err := p.Propose(context.Background(), proposeRequest())
	assert.ErrorIs(t, err, ErrProposerInternal)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no lang", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", `Sure! Here it is: {"a": 1} Hope that helps.`, `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strings.TrimSpace(string(extractJSON(tt.reply))))
		})
	}
}

func TestMockProposerShape(t *testing.T) {
	p := &MockProposer{}

	proposal, err := p.Propose(context.Background(), proposeRequest())
	require.NoError(t, err)
	require.Len(t, proposal.Paths, 2)
	assert.Equal(t, "Foundational understanding", proposal.Paths[0].Angle)
	assert.Equal(t, "book_med", proposal.Paths[0].Recommendations[0].BookID)
	assert.Equal(t, 1, proposal.Paths[0].Recommendations[0].ChapterNumber)
	assert.Equal(t, "Alternative perspective", proposal.Paths[1].Angle)
	assert.Equal(t, "book_raw", proposal.Paths[1].Recommendations[0].BookID)
}

func TestMockProposerNoCandidates(t *testing.T) {
	p := &MockProposer{}

	req := proposeRequest()
	req.Books = nil
	_, err := p.Propose(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoCandidates)
}
