// Package search serves phrase queries against a loaded index snapshot.
package search

import (
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"docindex/index"
)

// ErrInvalidQuery rejects empty (or whitespace-only) queries before any
// matching work happens.
var ErrInvalidQuery = errors.New("empty query")

// PageHit is one matching page. Field names are a compatibility
// contract with the front-end consuming the search API.
type PageHit struct {
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
	Page       int    `json:"page"`
	Context    string `json:"context"`
	MatchCount int    `json:"match_count"`
}

// Result is one page of ranked search results plus aggregate stats
// computed over every matching page, not just the returned slice.
type Result struct {
	Query        string    `json:"query"`
	TotalMatches int       `json:"total_matches"`
	Documents    int       `json:"documents"`
	Results      []PageHit `json:"results"`
	Page         int       `json:"page"`
	HasMore      bool      `json:"has_more"`
}

// Stats describes the loaded snapshot for the stats endpoint.
type Stats struct {
	DocumentCount   int    `json:"document_count"`
	PageCount       int    `json:"page_count"`
	LastExtractedAt string `json:"last_extracted_at,omitempty"`
}

// Engine answers queries against an immutable snapshot. It holds no
// mutable state, so one Engine may serve any number of concurrent
// callers.
//
// Matching semantics: the query is whitespace-normalized and matched as
// a contiguous, case-insensitive substring of page text (phrase
// containment). MatchCount is the number of non-overlapping phrase
// occurrences on the page.
type Engine struct {
	snap     *index.Snapshot
	pageSize int
	logger   *zap.Logger
}

// NewEngine creates an engine over a snapshot with the configured
// result page size.
func NewEngine(snap *index.Snapshot, pageSize int, logger *zap.Logger) *Engine {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Engine{snap: snap, pageSize: pageSize, logger: logger}
}

// Search runs one query and returns the requested result page
// (1-based). Identical queries always return identical pages in
// identical order.
func (e *Engine) Search(query string, page int) (*Result, error) {
	phrase := strings.Join(strings.Fields(query), " ")
	if phrase == "" {
		return nil, ErrInvalidQuery
	}
	if page < 1 {
		page = 1
	}

	start := time.Now()
	needle := strings.ToLower(phrase)

	var hits []PageHit
	docsMatched := make(map[string]bool)
	totalMatches := 0

	for di := range e.snap.Documents {
		doc := &e.snap.Documents[di]
		for pi := range doc.Pages {
			pg := &doc.Pages[pi]
			if pg.Text == "" {
				continue
			}
			lower := strings.ToLower(pg.Text)
			count := strings.Count(lower, needle)
			if count == 0 {
				continue
			}
			hits = append(hits, PageHit{
				Filename:   doc.Filename,
				Filepath:   doc.Filepath,
				Page:       pg.Number,
				Context:    buildSnippet(pg.Text, lower, needle),
				MatchCount: count,
			})
			docsMatched[doc.Filepath] = true
			totalMatches += count
		}
	}

	// Deterministic order: most matches first, ties broken by path then
	// page so repeated queries paginate identically.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].MatchCount != hits[j].MatchCount {
			return hits[i].MatchCount > hits[j].MatchCount
		}
		if hits[i].Filepath != hits[j].Filepath {
			return hits[i].Filepath < hits[j].Filepath
		}
		return hits[i].Page < hits[j].Page
	})

	startIdx := (page - 1) * e.pageSize
	endIdx := startIdx + e.pageSize
	if startIdx > len(hits) {
		startIdx = len(hits)
	}
	if endIdx > len(hits) {
		endIdx = len(hits)
	}

	result := &Result{
		Query:        phrase,
		TotalMatches: totalMatches,
		Documents:    len(docsMatched),
		Results:      hits[startIdx:endIdx],
		Page:         page,
		HasMore:      endIdx < len(hits),
	}

	e.logger.Debug("search served",
		zap.String("query", phrase),
		zap.Int("matching_pages", len(hits)),
		zap.Int("total_matches", totalMatches),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Stats returns snapshot-level statistics.
func (e *Engine) Stats() Stats {
	s := Stats{
		DocumentCount: len(e.snap.Documents),
		PageCount:     e.snap.PageTotal,
	}
	if !e.snap.LastExtractedAt.IsZero() {
		s.LastExtractedAt = e.snap.LastExtractedAt.Format(time.RFC3339)
	}
	return s
}
