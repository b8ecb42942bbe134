// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse wraps a routing result with the classified intent and the
// request id assigned by the handler.
type AskResponse struct {
	RequestID string        `json:"request_id"`
	Domain    string        `json:"domain,omitempty"`
	Subdomain string        `json:"subdomain,omitempty"`
	Routing   RoutingResult `json:"routing"`
}

// CandidatesResponse is the gate query surface: the candidate book ids for a
// domain/subdomain pair and the bounded chapter listing per book.
type CandidatesResponse struct {
	Domain         string                     `json:"domain"`
	Subdomain      string                     `json:"subdomain,omitempty"`
	BookIDs        []string                   `json:"book_ids"`
	ChaptersByBook map[string][]ChapterRecord `json:"chapters_by_book"`
}

// RoutingStatsResponse aggregates gate and cache statistics for the admin
// surface.
type RoutingStatsResponse struct {
	Gate  map[string]any `json:"gate"`
	Cache map[string]any `json:"cache"`
}
