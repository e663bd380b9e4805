package executor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
)

const (
	DefaultMaxSnippets     = 3
	DefaultSnippetMaxChars = 150
	snippetEllipsis        = "..."
)

// PerDocCount is one document's contribution to a WordResult.
type PerDocCount struct {
	DocID    index.DocID `json:"doc_id"`
	DocName  string      `json:"doc_name"`
	Count    int         `json:"count"`
	Snippets []string    `json:"snippets"`
}

// WordResult is the corpus-wide outcome for one query word. PerDoc follows
// store order and only lists documents with a non-zero count.
type WordResult struct {
	Word       string        `json:"word"`
	TotalCount int           `json:"total_count"`
	PerDoc     []PerDocCount `json:"per_doc"`
}

// DocumentMatch is a document containing every query word.
type DocumentMatch struct {
	DocID        index.DocID `json:"doc_id"`
	DocName      string      `json:"doc_name"`
	MatchedWords int         `json:"matched_words"`
}

// Options controls snippet extraction.
type Options struct {
	Snippets        bool
	MaxSnippets     int
	SnippetMaxChars int
}

// DefaultOptions enables snippets with the default limits.
func DefaultOptions() Options {
	return Options{
		Snippets:        true,
		MaxSnippets:     DefaultMaxSnippets,
		SnippetMaxChars: DefaultSnippetMaxChars,
	}
}

// CleanWords trims every word and drops the empty ones, keeping order.
func CleanWords(raw []string) []string {
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// SearchOne counts rawWord, after normalisation, in every document.
func SearchOne(docs []index.Document, rawWord string, opts Options) WordResult {
	word := tokenizer.Normalize(rawWord)
	result := WordResult{
		Word:   word,
		PerDoc: make([]PerDocCount, 0),
	}
	for _, doc := range docs {
		count := doc.WordCounts[word]
		if count == 0 {
			continue
		}
		pd := PerDocCount{
			DocID:    doc.ID,
			DocName:  doc.Name,
			Count:    count,
			Snippets: []string{},
		}
		if opts.Snippets {
			pd.Snippets = ExtractSnippets(doc.Content, word, opts.MaxSnippets, opts.SnippetMaxChars)
		}
		result.PerDoc = append(result.PerDoc, pd)
	}
	for _, pd := range result.PerDoc {
		result.TotalCount += pd.Count
	}
	index.VerifyTotal(docs, word, result.TotalCount)
	return result
}

// SearchMany runs SearchOne for every cleaned word through strategy. The
// output has one entry per cleaned word, in query order.
func SearchMany(ctx context.Context, docs []index.Document, rawWords []string, strategy Strategy, opts Options) ([]WordResult, error) {
	words := CleanWords(rawWords)
	results := make([]WordResult, len(words))
	err := strategy.Run(ctx, len(words), func(i int) {
		results[i] = SearchOne(docs, words[i], opts)
	})
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", strategy.Mode(), err)
	}
	return results, nil
}

// FindDocsWithAllWords returns every document containing all distinct
// normalised query words. Words that normalise to nothing are ignored; an
// empty query matches nothing.
func FindDocsWithAllWords(docs []index.Document, rawWords []string) []DocumentMatch {
	wanted := tokenizer.WordSet(rawWords)
	matches := make([]DocumentMatch, 0)
	if len(wanted) == 0 {
		return matches
	}
	for _, doc := range docs {
		matched := 0
		for word := range wanted {
			if doc.WordCounts[word] == 0 {
				break
			}
			matched++
		}
		if matched == len(wanted) {
			matches = append(matches, DocumentMatch{
				DocID:        doc.ID,
				DocName:      doc.Name,
				MatchedWords: matched,
			})
		}
	}
	return matches
}

// ExtractSnippets returns up to limit sentences of content that contain word
// as a token. Sentences end at '.', '!' or '?'; internal whitespace is
// collapsed and sentences longer than maxChars runes are cut and suffixed
// with "...".
func ExtractSnippets(content, word string, limit, maxChars int) []string {
	if limit <= 0 || word == "" {
		return []string{}
	}
	snippets := make([]string, 0, limit)
	sentences := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	for _, sentence := range sentences {
		if !containsToken(sentence, word) {
			continue
		}
		snippets = append(snippets, truncate(strings.Join(strings.Fields(sentence), " "), maxChars))
		if len(snippets) == limit {
			break
		}
	}
	return snippets
}

func containsToken(sentence, word string) bool {
	for _, token := range tokenizer.Tokenize(sentence) {
		if token == word {
			return true
		}
	}
	return false
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + snippetEllipsis
}
