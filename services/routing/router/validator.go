// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"fmt"
	"strings"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/datatypes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/observability"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

// DefaultAngle labels a path whose proposer gave no angle.
const DefaultAngle = "Reading path"

// RefusalNoRelevantReading is returned when sanitation drops every proposed
// recommendation.
const RefusalNoRelevantReading = "Could not identify relevant reading for this question"

// Validator turns an untrusted proposal into a RoutingResult that only
// references catalog reality.
//
// Everything in a proposal is suspect: book ids may be hallucinated, chapter
// numbers may not exist, rationales may be essays. Sanitation keeps what can
// be verified against the candidate set and the gate, repairs what has a safe
// repair, and drops the rest. Dropping everything is a refusal, never an
// error; the proposer being wrong is an expected outcome.
type Validator struct {
	gate    taxonomy.Gate
	metrics *observability.RoutingMetrics
}

// NewValidator builds a validator over a gate. The gate is the final
// authority on book and chapter existence, independent of whatever candidate
// listing the proposer saw. metrics may be nil.
func NewValidator(gate taxonomy.Gate, metrics *observability.RoutingMetrics) *Validator {
	return &Validator{gate: gate, metrics: metrics}
}

func (v *Validator) dropped(reason string) {
	if v.metrics != nil {
		v.metrics.RecommendationsDroppedTotal.WithLabelValues(reason).Inc()
	}
}

// Sanitize applies the output caps and existence checks to a proposal.
//
// Paths are examined in proposer order until datatypes.MaxPaths survive.
// Within a path, recommendations are kept in order until the per-path or
// total cap is reached. A recommendation survives only if its book is in the
// candidate set AND known to the gate; a nonexistent chapter number is
// repaired to the book's first chapter when the book has chapters and
// discarded when it has none. Paths left empty by sanitation are dropped
// without counting against the path cap.
func (v *Validator) Sanitize(
	proposal *Proposal,
	booksByID map[string]datatypes.BookRecord,
	chaptersByBook map[string][]datatypes.ChapterRecord,
) datatypes.RoutingResult {
	if proposal == nil {
		return datatypes.Refusal(RefusalNoRelevantReading)
	}

	var kept []datatypes.ReadingPath
	totalRecs := 0

	for _, path := range proposal.Paths {
		if len(kept) >= datatypes.MaxPaths {
			break
		}

		var recs []datatypes.ReadingRecommendation
		for _, proposed := range path.Recommendations {
			if len(recs) >= datatypes.MaxRecommendationsPerPath {
				break
			}
			if totalRecs >= datatypes.MaxTotalRecommendations {
				break
			}
			rec, ok := v.sanitizeRecommendation(proposed, booksByID, chaptersByBook)
			if !ok {
				continue
			}
			recs = append(recs, rec)
			totalRecs++
		}

		if len(recs) == 0 {
			continue
		}
		kept = append(kept, datatypes.ReadingPath{
			Angle:           angleOrDefault(path.Angle),
			Recommendations: recs,
		})
	}

	if len(kept) == 0 {
		return datatypes.Refusal(RefusalNoRelevantReading)
	}
	return datatypes.RoutingResult{Paths: kept, IsValid: true}
}

// sanitizeRecommendation verifies one proposed recommendation against the
// candidate set and the gate. The returned recommendation carries titles and
// authors from catalog data only.
func (v *Validator) sanitizeRecommendation(
	proposed ProposedRecommendation,
	booksByID map[string]datatypes.BookRecord,
	chaptersByBook map[string][]datatypes.ChapterRecord,
) (datatypes.ReadingRecommendation, bool) {
	book, inCandidates := booksByID[proposed.BookID]
	if proposed.BookID == "" || !inCandidates {
		v.dropped("unknown_book")
		return datatypes.ReadingRecommendation{}, false
	}
	if !v.gate.ValidateBookID(proposed.BookID) {
		v.dropped("unknown_book")
		return datatypes.ReadingRecommendation{}, false
	}

	chapters := chaptersByBook[proposed.BookID]
	number := proposed.ChapterNumber
	if number == 0 {
		number = 1
	}

	var chapter *datatypes.ChapterRecord
	for i := range chapters {
		if chapters[i].Number == number {
			chapter = &chapters[i]
			break
		}
	}
	if chapter == nil {
		if len(chapters) == 0 {
			// No chapters to repair toward; fabricating one is
			// exactly what sanitation exists to prevent.
			v.dropped("no_chapters")
			return datatypes.ReadingRecommendation{}, false
		}
		chapter = &chapters[0]
		number = chapter.Number
	}

	chapterID := chapter.ChapterID
	if chapterID == "" {
		chapterID = fmt.Sprintf("ch_%s_%d", proposed.BookID, number)
	}
	if !v.gate.ValidateChapterID(chapterID, proposed.BookID) {
		v.dropped("unknown_chapter")
		return datatypes.ReadingRecommendation{}, false
	}

	chapterTitle := chapter.Title
	if chapterTitle == "" {
		chapterTitle = fmt.Sprintf("Chapter %d", number)
	}

	return datatypes.ReadingRecommendation{
		BookID:        proposed.BookID,
		BookTitle:     book.Title,
		BookAuthor:    book.Author,
		ChapterID:     chapterID,
		ChapterNumber: number,
		ChapterTitle:  chapterTitle,
		Rationale:     rationaleOrPlaceholder(proposed.Rationale),
	}, true
}

// Fallback builds a deterministic valid result straight from the candidate
// set, bypassing the proposer. Used when the proposer fails outright but the
// gate produced candidates: a plain pointer at the canon beats an error page.
func (v *Validator) Fallback(
	books []datatypes.BookRecord,
	chaptersByBook map[string][]datatypes.ChapterRecord,
) datatypes.RoutingResult {
	if len(books) == 0 {
		return datatypes.Refusal(RefusalNoRelevantReading)
	}

	angles := []string{"Foundational understanding", "Alternative perspective"}
	var paths []datatypes.ReadingPath
	for i, book := range books {
		if i >= len(angles) {
			break
		}
		rec := fallbackRecommendation(book, chaptersByBook[book.BookID])
		paths = append(paths, datatypes.ReadingPath{
			Angle:           angles[i],
			Recommendations: []datatypes.ReadingRecommendation{rec},
		})
	}
	return datatypes.RoutingResult{Paths: paths, IsValid: true}
}

func fallbackRecommendation(book datatypes.BookRecord, chapters []datatypes.ChapterRecord) datatypes.ReadingRecommendation {
	rec := datatypes.ReadingRecommendation{
		BookID:        book.BookID,
		BookTitle:     book.Title,
		BookAuthor:    book.Author,
		ChapterID:     fmt.Sprintf("ch_%s_1", book.BookID),
		ChapterNumber: 1,
		ChapterTitle:  "Chapter 1",
		Rationale:     "This text addresses the core concepts related to your question.",
	}
	if len(chapters) > 0 {
		first := chapters[0]
		rec.ChapterID = first.ChapterID
		rec.ChapterNumber = first.Number
		rec.ChapterTitle = first.Title
	}
	return rec
}

func angleOrDefault(angle string) string {
	angle = strings.TrimSpace(angle)
	if angle == "" {
		return DefaultAngle
	}
	return truncateRunes(angle, datatypes.MaxAngleLen)
}

func rationaleOrPlaceholder(rationale string) string {
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return datatypes.PlaceholderRationale
	}
	return truncateRunes(rationale, datatypes.MaxRationaleLen)
}

// truncateRunes caps s at n runes, not bytes, so multibyte text is never
// split mid-character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
