// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketindex

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

// Okapi BM25 parameters.
const (
	bm25K1      = 1.2
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// Field weights: a field's tokens are repeated this many times in the
// ticket's composite document.
const (
	weightTitle       = 5
	weightDescription = 2
	weightDesign      = 1
	weightAcceptance  = 1
	weightNotes       = 1
)

// boostExactID lifts a ticket whose id appears verbatim in the query
// above any text score.
const boostExactID = 1e6

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// idPattern matches ticket ids ("tk-4f2a9c1") in a query.
var idPattern = regexp.MustCompile(`\b[a-z]+-[0-9a-f]{4,}\b`)

// Scored pairs a ticket with its relevance to a query.
type Scored struct {
	Ticket ticket.Ticket `json:"ticket"`
	Score  float64       `json:"score"`
}

// Rank returns the tickets relevant to query, most relevant first,
// at most limit of them (0 for no limit). Ties fall back to urgency
// order. The ranking structure is rebuilt lazily after any Put or
// Remove.
func (idx *Index) Rank(query string, limit int) []Scored {
	if idx.ranking == nil {
		idx.ranking = newBM25Index(idx.tickets)
	}

	scores := idx.ranking.score(tokenize(query))
	for _, ticketID := range idPattern.FindAllString(strings.ToLower(query), -1) {
		if _, exists := idx.tickets[ticketID]; exists {
			scores[ticketID] += boostExactID
		}
	}

	results := make([]Scored, 0, len(scores))
	for ticketID, score := range scores {
		results = append(results, Scored{Ticket: idx.tickets[ticketID], Score: score})
	}
	slices.SortFunc(results, func(a, b Scored) int {
		if order := cmp.Compare(b.Score, a.Score); order != 0 {
			return order
		}
		if order := cmp.Compare(a.Ticket.Priority, b.Ticket.Priority); order != 0 {
			return order
		}
		if order := a.Ticket.Created.Compare(b.Ticket.Created); order != 0 {
			return order
		}
		return cmp.Compare(idx.sequence[a.Ticket.ID], idx.sequence[b.Ticket.ID])
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// bm25Index holds per-ticket term frequencies and corpus-wide inverse
// document frequencies. Immutable once built.
type bm25Index struct {
	documents     map[string]bm25Document
	averageLength float64
	idf           map[string]float64
}

type bm25Document struct {
	termFrequency map[string]int
	length        int
}

func newBM25Index(tickets map[string]ticket.Ticket) *bm25Index {
	index := &bm25Index{
		documents: make(map[string]bm25Document, len(tickets)),
		idf:       make(map[string]float64),
	}
	documentFrequency := make(map[string]int)
	totalLength := 0

	for ticketID, entry := range tickets {
		tokens := compositeTokens(&entry)
		document := bm25Document{termFrequency: make(map[string]int), length: len(tokens)}
		for _, token := range tokens {
			if document.termFrequency[token] == 0 {
				documentFrequency[token]++
			}
			document.termFrequency[token]++
		}
		index.documents[ticketID] = document
		totalLength += len(tokens)
	}
	if len(tickets) > 0 {
		index.averageLength = float64(totalLength) / float64(len(tickets))
	}

	count := float64(len(tickets))
	for term, frequency := range documentFrequency {
		idf := math.Log(1 + (count-float64(frequency)+0.5)/(float64(frequency)+0.5))
		if idf < 0 {
			idf = bm25Epsilon
		}
		index.idf[term] = idf
	}
	return index
}

// score returns the positive BM25 scores of every document against
// the query tokens, keyed by ticket id.
func (index *bm25Index) score(queryTokens []string) map[string]float64 {
	scores := make(map[string]float64)
	if len(queryTokens) == 0 || index.averageLength == 0 {
		return scores
	}
	for ticketID, document := range index.documents {
		var total float64
		for _, token := range queryTokens {
			frequency := float64(document.termFrequency[token])
			if frequency == 0 {
				continue
			}
			numerator := frequency * (bm25K1 + 1)
			denominator := frequency + bm25K1*(1-bm25B+bm25B*float64(document.length)/index.averageLength)
			total += index.idf[token] * numerator / denominator
		}
		if total > 0 {
			scores[ticketID] = total
		}
	}
	return scores
}

func compositeTokens(entry *ticket.Ticket) []string {
	var notes strings.Builder
	for i := range entry.Notes {
		notes.WriteString(entry.Notes[i].Content)
		notes.WriteByte(' ')
	}
	fields := []struct {
		text   string
		weight int
	}{
		{entry.Title, weightTitle},
		{entry.Description, weightDescription},
		{entry.Design, weightDesign},
		{entry.Acceptance, weightAcceptance},
		{notes.String(), weightNotes},
	}

	var tokens []string
	for _, field := range fields {
		fieldTokens := tokenize(field.text)
		for range field.weight {
			tokens = append(tokens, fieldTokens...)
		}
	}
	return tokens
}

// tokenize lowercases text and splits it into alphanumeric runs of at
// least two characters.
func tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := matches[:0]
	for _, match := range matches {
		if len(match) >= 2 {
			tokens = append(tokens, match)
		}
	}
	return tokens
}
