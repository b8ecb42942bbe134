// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog loads versioned snapshot artifacts and exposes exact-id
// lookups over them.
//
// A snapshot is immutable once loaded: requests read against the in-memory
// indexes and never trigger I/O. Reload is an explicit administrative action
// (Reset + Load), never automatic, so a request in flight always observes one
// consistent snapshot even while a newer artifact version is being built.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/go-playground/validator/v10"
)

// ErrSnapshotNotFound indicates that no snapshot artifacts exist for the
// requested version (or at all). This is fatal at startup/reload time, never
// per request.
var ErrSnapshotNotFound = errors.New("catalog: snapshot not found")

const (
	bookIndexPrefix     = "book_index.v"
	chapterIndexPattern = "chapter_index.v%d.json"
	taxonomyFileName    = "taxonomy.v1.json"
)

// Snapshot is one fully-indexed, immutable catalog version.
type Snapshot struct {
	Version         int
	TaxonomyVersion int
	Taxonomy        datatypes.TaxonomyFile

	booksByID        map[string]datatypes.BookRecord
	chaptersByBook   map[string][]datatypes.ChapterRecord
	booksByDomain    map[string][]string
	booksBySubdomain map[string][]string
}

// Catalog owns the artifacts directory and the currently loaded snapshot.
//
// All read methods are safe for concurrent use. Load and Reset take the write
// lock; everything else reads under the read lock.
type Catalog struct {
	dir      string
	validate *validator.Validate

	mu   sync.RWMutex
	snap *Snapshot
}

// New creates a Catalog rooted at the given artifacts directory. Nothing is
// loaded until Load is called.
func New(dir string) *Catalog {
	return &Catalog{
		dir:      dir,
		validate: validator.New(),
	}
}

// Load reads the snapshot artifacts for the given version into memory and
// builds the lookup indexes. Version 0 selects the highest version found in
// the artifacts directory.
//
// Returns ErrSnapshotNotFound when no artifacts exist for the version, and a
// descriptive error when an artifact is malformed or violates an invariant
// (chapter referencing a missing book, overlapping offsets, and so on).
func (c *Catalog) Load(version int) error {
	if version == 0 {
		latest, err := c.latestVersion()
		if err != nil {
			return err
		}
		version = latest
	}

	snap, err := c.buildSnapshot(version)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	slog.Info("catalog snapshot loaded",
		"artifact_version", snap.Version,
		"taxonomy_version", snap.TaxonomyVersion,
		"books", len(snap.booksByID),
		"chapters", c.chapterCount(snap),
	)
	return nil
}

// Reset discards the loaded snapshot. The next Load starts fresh. Used by the
// explicit admin reload path and by tests that need isolated instances.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// Loaded reports whether a snapshot is currently in memory.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil
}

// latestVersion scans the artifacts directory for book_index.v{N}.json files
// and returns the highest N.
func (c *Catalog) latestVersion() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: reading artifacts dir %s: %v", ErrSnapshotNotFound, c.dir, err)
	}

	best := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, bookIndexPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		verStr := strings.TrimSuffix(strings.TrimPrefix(name, bookIndexPrefix), ".json")
		ver, err := strconv.Atoi(verStr)
		if err != nil || ver <= 0 {
			continue
		}
		if ver > best {
			best = ver
		}
	}

	if best == 0 {
		return 0, fmt.Errorf("%w: no book_index artifacts in %s", ErrSnapshotNotFound, c.dir)
	}
	return best, nil
}

func (c *Catalog) buildSnapshot(version int) (*Snapshot, error) {
	var taxonomy datatypes.TaxonomyFile
	if err := c.readArtifact(taxonomyFileName, &taxonomy); err != nil {
		return nil, err
	}

	var bookIndex datatypes.BookIndexFile
	if err := c.readArtifact(fmt.Sprintf("%s%d.json", bookIndexPrefix, version), &bookIndex); err != nil {
		return nil, err
	}

	var chapterIndex datatypes.ChapterIndexFile
	if err := c.readArtifact(fmt.Sprintf(chapterIndexPattern, version), &chapterIndex); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:          version,
		TaxonomyVersion:  taxonomy.Version,
		Taxonomy:         taxonomy,
		booksByID:        make(map[string]datatypes.BookRecord, len(bookIndex.Books)),
		chaptersByBook:   make(map[string][]datatypes.ChapterRecord),
		booksByDomain:    make(map[string][]string),
		booksBySubdomain: make(map[string][]string),
	}

	for i, book := range bookIndex.Books {
		if err := c.validate.Struct(book); err != nil {
			return nil, fmt.Errorf("catalog: invalid book record %d in v%d: %w", i, version, err)
		}
		if _, dup := snap.booksByID[book.BookID]; dup {
			return nil, fmt.Errorf("catalog: duplicate book id %s in v%d", book.BookID, version)
		}
		snap.booksByID[book.BookID] = book
		for _, d := range book.DomainIDs {
			snap.booksByDomain[d] = append(snap.booksByDomain[d], book.BookID)
		}
		for _, s := range book.SubdomainIDs {
			snap.booksBySubdomain[s] = append(snap.booksBySubdomain[s], book.BookID)
		}
	}

	for i, ch := range chapterIndex.Chapters {
		if err := c.validate.Struct(ch); err != nil {
			return nil, fmt.Errorf("catalog: invalid chapter record %d in v%d: %w", i, version, err)
		}
		if ch.EndOffset <= ch.StartOffset {
			return nil, fmt.Errorf("catalog: chapter %s has empty offset range", ch.ChapterID)
		}
		if _, ok := snap.booksByID[ch.BookID]; !ok {
			return nil, fmt.Errorf("catalog: chapter %s references unknown book %s", ch.ChapterID, ch.BookID)
		}
		if ch.WordCount == 0 {
			// Rough estimate from the offset span; the artifact builder
			// normally fills this in.
			ch.WordCount = ch.Length() / 5
		}
		snap.chaptersByBook[ch.BookID] = append(snap.chaptersByBook[ch.BookID], ch)
	}

	// Chapters of one book must be ordered by number, unique, and
	// non-overlapping.
	for bookID, chapters := range snap.chaptersByBook {
		sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
		for i := 1; i < len(chapters); i++ {
			if chapters[i].Number == chapters[i-1].Number {
				return nil, fmt.Errorf("catalog: book %s has duplicate chapter number %d", bookID, chapters[i].Number)
			}
			if chapters[i].StartOffset < chapters[i-1].EndOffset {
				return nil, fmt.Errorf("catalog: book %s chapters %d and %d overlap",
					bookID, chapters[i-1].Number, chapters[i].Number)
			}
		}
		snap.chaptersByBook[bookID] = chapters
	}

	// Sort the tag indexes so candidate ordering is deterministic across
	// loads of the same artifacts.
	for d := range snap.booksByDomain {
		sort.Strings(snap.booksByDomain[d])
	}
	for s := range snap.booksBySubdomain {
		sort.Strings(snap.booksBySubdomain[s])
	}

	return snap, nil
}

func (c *Catalog) readArtifact(name string, out any) error {
	path := filepath.Join(c.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("catalog: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Catalog) chapterCount(snap *Snapshot) int {
	n := 0
	for _, chs := range snap.chaptersByBook {
		n += len(chs)
	}
	return n
}

// snapshot returns the current snapshot or nil. Callers must treat the
// returned value as read-only.
func (c *Catalog) snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Book returns the book record for id from the loaded snapshot.
func (c *Catalog) Book(id string) (datatypes.BookRecord, bool) {
	snap := c.snapshot()
	if snap == nil {
		return datatypes.BookRecord{}, false
	}
	b, ok := snap.booksByID[id]
	return b, ok
}

// Chapters returns the chapters of a book ordered by number. The returned
// slice is shared; callers must not modify it.
func (c *Catalog) Chapters(bookID string) []datatypes.ChapterRecord {
	snap := c.snapshot()
	if snap == nil {
		return nil
	}
	return snap.chaptersByBook[bookID]
}

// BooksByDomain returns the sorted book ids tagged with the domain id.
func (c *Catalog) BooksByDomain(domainID string) []string {
	snap := c.snapshot()
	if snap == nil {
		return nil
	}
	return snap.booksByDomain[domainID]
}

// BooksBySubdomain returns the sorted book ids tagged with the subdomain id.
func (c *Catalog) BooksBySubdomain(subdomainID string) []string {
	snap := c.snapshot()
	if snap == nil {
		return nil
	}
	return snap.booksBySubdomain[subdomainID]
}

// ValidateBookID reports whether the book exists in the loaded snapshot.
func (c *Catalog) ValidateBookID(id string) bool {
	_, ok := c.Book(id)
	return ok
}

// ValidateChapterID reports whether the chapter exists under the given book.
func (c *Catalog) ValidateChapterID(chapterID, bookID string) bool {
	for _, ch := range c.Chapters(bookID) {
		if ch.ChapterID == chapterID {
			return true
		}
	}
	return false
}

// Version returns the loaded artifact version, or 0 when nothing is loaded.
func (c *Catalog) Version() int {
	snap := c.snapshot()
	if snap == nil {
		return 0
	}
	return snap.Version
}

// TaxonomyVersion returns the taxonomy-definition version, or 0 when nothing
// is loaded.
func (c *Catalog) TaxonomyVersion() int {
	snap := c.snapshot()
	if snap == nil {
		return 0
	}
	return snap.TaxonomyVersion
}

// DomainIDs returns the sorted domain ids defined in the taxonomy.
func (c *Catalog) DomainIDs() []string {
	snap := c.snapshot()
	if snap == nil {
		return nil
	}
	ids := make([]string, 0, len(snap.Taxonomy.Domains))
	for id := range snap.Taxonomy.Domains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats summarizes the loaded snapshot for the admin surface.
func (c *Catalog) Stats() map[string]any {
	snap := c.snapshot()
	if snap == nil {
		return map[string]any{"loaded": false}
	}
	byDomain := make(map[string]int, len(snap.booksByDomain))
	for d, ids := range snap.booksByDomain {
		byDomain[d] = len(ids)
	}
	return map[string]any{
		"loaded":           true,
		"artifact_version": snap.Version,
		"taxonomy_version": snap.TaxonomyVersion,
		"total_domains":    len(snap.Taxonomy.Domains),
		"total_books":      len(snap.booksByID),
		"total_chapters":   c.chapterCount(snap),
		"books_by_domain":  byDomain,
	}
}
