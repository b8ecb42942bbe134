// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taxonomy

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"gopkg.in/yaml.v3"
)

//go:embed static_taxonomy.yaml
var staticTaxonomyYAML []byte

// staticMapping is one row of the embedded mapping table. An empty Subdomain
// acts as the wildcard entry for the domain.
type staticMapping struct {
	Domain    string   `yaml:"domain"`
	Subdomain string   `yaml:"subdomain"`
	BookIDs   []string `yaml:"book_ids"`
}

type staticBook struct {
	BookID       string          `yaml:"book_id"`
	Title        string          `yaml:"title"`
	Author       string          `yaml:"author"`
	DomainIDs    []string        `yaml:"domain_ids"`
	SubdomainIDs []string        `yaml:"subdomain_ids"`
	Chapters     []staticChapter `yaml:"chapters"`
}

type staticChapter struct {
	ChapterID string `yaml:"chapter_id"`
	Number    int    `yaml:"number"`
	Title     string `yaml:"title"`
}

type staticTaxonomyFile struct {
	Version  int             `yaml:"version"`
	Mappings []staticMapping `yaml:"mappings"`
	Books    []staticBook    `yaml:"books"`
}

// StaticGate answers gate queries from a mapping table embedded in the
// binary. The table carries its own chapter listings (without text offsets,
// which only artifact builds have), so the full pipeline including chapter
// validation works without artifacts on disk.
type StaticGate struct {
	version     int
	index       map[string][]string // "domain::subdomain" or "domain::*" -> book ids
	books       map[string]datatypes.BookRecord
	chapters    map[string][]datatypes.ChapterRecord
	chapterBook map[string]string // chapter id -> owning book id
	mappings    int
}

var _ Gate = (*StaticGate)(nil)

// NewStaticGate parses the embedded mapping table and builds the lookup
// indexes. Fails only if the embedded YAML is malformed, references a book
// missing from its own metadata section, or carries an inconsistent chapter
// listing.
func NewStaticGate() (*StaticGate, error) {
	var file staticTaxonomyFile
	if err := yaml.Unmarshal(staticTaxonomyYAML, &file); err != nil {
		return nil, fmt.Errorf("taxonomy: parsing embedded static table: %w", err)
	}
	if file.Version <= 0 {
		return nil, fmt.Errorf("taxonomy: embedded static table has no version")
	}

	g := &StaticGate{
		version:     file.Version,
		index:       make(map[string][]string),
		books:       make(map[string]datatypes.BookRecord, len(file.Books)),
		chapters:    make(map[string][]datatypes.ChapterRecord, len(file.Books)),
		chapterBook: make(map[string]string),
		mappings:    len(file.Mappings),
	}

	for _, b := range file.Books {
		g.books[b.BookID] = datatypes.BookRecord{
			BookID:       b.BookID,
			Title:        b.Title,
			Author:       b.Author,
			DomainIDs:    b.DomainIDs,
			SubdomainIDs: b.SubdomainIDs,
			IsPublic:     true,
		}

		numbers := make(map[int]bool, len(b.Chapters))
		for _, ch := range b.Chapters {
			chapterID := ch.ChapterID
			if chapterID == "" {
				chapterID = fmt.Sprintf("ch_%s_%d", b.BookID, ch.Number)
			}
			if ch.Number <= 0 {
				return nil, fmt.Errorf("taxonomy: static book %s chapter %s has invalid number %d", b.BookID, chapterID, ch.Number)
			}
			if numbers[ch.Number] {
				return nil, fmt.Errorf("taxonomy: static book %s has duplicate chapter number %d", b.BookID, ch.Number)
			}
			numbers[ch.Number] = true
			if owner, ok := g.chapterBook[chapterID]; ok {
				return nil, fmt.Errorf("taxonomy: static chapter id %s claimed by both %s and %s", chapterID, owner, b.BookID)
			}
			g.chapterBook[chapterID] = b.BookID
			g.chapters[b.BookID] = append(g.chapters[b.BookID], datatypes.ChapterRecord{
				ChapterID: chapterID,
				BookID:    b.BookID,
				Number:    ch.Number,
				Title:     ch.Title,
			})
		}
		sort.Slice(g.chapters[b.BookID], func(i, j int) bool {
			return g.chapters[b.BookID][i].Number < g.chapters[b.BookID][j].Number
		})
	}

	for _, m := range file.Mappings {
		key := staticKey(m.Domain, m.Subdomain)
		for _, id := range m.BookIDs {
			if _, ok := g.books[id]; !ok {
				return nil, fmt.Errorf("taxonomy: static mapping %s references unknown book %s", key, id)
			}
		}
		g.index[key] = append(g.index[key], m.BookIDs...)
	}

	return g, nil
}

func staticKey(domain, subdomain string) string {
	if subdomain == "" {
		subdomain = "*"
	}
	return domain + "::" + subdomain
}

// CandidateBooks implements Gate. Lookup strategy: exact domain+subdomain
// match first, then the domain wildcard entry, deduplicated in table order
// and capped at maxBooks.
func (g *StaticGate) CandidateBooks(domainID, subdomainID string, maxBooks int) []string {
	if maxBooks <= 0 {
		maxBooks = DefaultMaxBooks
	}

	seen := make(map[string]bool)
	candidates := make([]string, 0, maxBooks)

	appendIDs := func(ids []string) {
		for _, id := range ids {
			if len(candidates) >= maxBooks {
				return
			}
			if !seen[id] {
				seen[id] = true
				candidates = append(candidates, id)
			}
		}
	}

	if subdomainID != "" {
		appendIDs(g.index[staticKey(domainID, subdomainID)])
	}
	appendIDs(g.index[staticKey(domainID, "")])

	return candidates
}

// CandidateChapters implements Gate.
func (g *StaticGate) CandidateChapters(bookIDs []string, maxPerBook int) map[string][]datatypes.ChapterRecord {
	if maxPerBook <= 0 {
		maxPerBook = DefaultMaxChaptersPerBook
	}
	result := make(map[string][]datatypes.ChapterRecord, len(bookIDs))
	for _, id := range bookIDs {
		chapters := g.chapters[id]
		if len(chapters) > maxPerBook {
			chapters = chapters[:maxPerBook]
		}
		result[id] = chapters
	}
	return result
}

// BookMetadata implements Gate.
func (g *StaticGate) BookMetadata(id string) (datatypes.BookRecord, bool) {
	b, ok := g.books[id]
	return b, ok
}

// ValidateBookID implements Gate.
func (g *StaticGate) ValidateBookID(id string) bool {
	_, ok := g.books[id]
	return ok
}

// ValidateChapterID implements Gate.
func (g *StaticGate) ValidateChapterID(chapterID, bookID string) bool {
	return g.chapterBook[chapterID] == bookID
}

// TaxonomyVersion implements Gate.
func (g *StaticGate) TaxonomyVersion() int {
	return g.version
}

// ArtifactVersion implements Gate. The static table is its own artifact, so
// both versions move together.
func (g *StaticGate) ArtifactVersion() int {
	return g.version
}

// Stats implements Gate.
func (g *StaticGate) Stats() map[string]any {
	return map[string]any{
		"mode":             ModeStatic,
		"taxonomy_version": g.version,
		"total_mappings":   g.mappings,
		"total_books":      len(g.books),
		"total_chapters":   len(g.chapterBook),
	}
}
