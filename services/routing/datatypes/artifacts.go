// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Artifact wire types. A catalog snapshot is two JSON documents per version
// (book index, chapter index) plus one taxonomy definition document shared
// across versions until revised. These structs are validated with struct tags
// at load time so malformed artifacts fail at the boundary, not deep inside
// the routing logic.

// BookRecord is one entry in the book index artifact. Books are canon:
// ingested once, never mutated by the routing core.
type BookRecord struct {
	BookID       string   `json:"book_id" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Author       string   `json:"author" validate:"required"`
	DomainIDs    []string `json:"domain_ids"`
	SubdomainIDs []string `json:"subdomain_ids"`
	IsPublic     bool     `json:"is_public"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// ChapterRecord is one entry in the chapter index artifact.
//
// Chapters do not store text. StartOffset/EndOffset reference the book's full
// text, which is the only linkage and avoids duplicating canon.
type ChapterRecord struct {
	ChapterID   string `json:"chapter_id" validate:"required"`
	BookID      string `json:"book_id" validate:"required"`
	Number      int    `json:"number" validate:"gte=1"`
	Title       string `json:"title" validate:"required"`
	StartOffset int    `json:"start_offset" validate:"gte=0"`
	EndOffset   int    `json:"end_offset" validate:"gtefield=StartOffset"`
	WordCount   int    `json:"word_count"`
}

// Length returns the character length of the chapter's text span.
func (c ChapterRecord) Length() int {
	return c.EndOffset - c.StartOffset
}

// BookIndexFile is the on-disk shape of book_index.v{N}.json.
type BookIndexFile struct {
	Version     int          `json:"version"`
	GeneratedAt string       `json:"generated_at,omitempty"`
	Books       []BookRecord `json:"books"`
}

// ChapterIndexFile is the on-disk shape of chapter_index.v{N}.json.
type ChapterIndexFile struct {
	Version     int             `json:"version"`
	GeneratedAt string          `json:"generated_at,omitempty"`
	Chapters    []ChapterRecord `json:"chapters"`
}

// SubdomainDef describes one subdomain inside the taxonomy definition.
type SubdomainDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DomainDef describes one domain inside the taxonomy definition.
type DomainDef struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Subdomains  map[string]SubdomainDef `json:"subdomains,omitempty"`
}

// TaxonomyFile is the on-disk shape of taxonomy.v1.json. Its Version field is
// the taxonomy-definition version: it changes when tag meanings change, which
// is a distinct signal from the book/chapter artifact version.
type TaxonomyFile struct {
	Version int                  `json:"version"`
	Domains map[string]DomainDef `json:"domains"`
}
