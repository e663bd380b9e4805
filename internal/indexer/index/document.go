// Package index holds the per-document word-count index and the Document
// type that owns it.
package index

import (
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
)

// DocID identifies a document. IDs are assigned monotonically by the store.
type DocID uint64

// Document is an indexed document. WordCounts is always BuildIndex(Content);
// a Document is never mutated after it has been stored.
type Document struct {
	ID         DocID
	Name       string
	Content    string
	WordCounts map[string]int
}

// DocumentInfo is the (id, name) pair returned by listings.
type DocumentInfo struct {
	ID   DocID  `json:"id"`
	Name string `json:"name"`
}

// Info returns the listing view of d.
func (d Document) Info() DocumentInfo {
	return DocumentInfo{ID: d.ID, Name: d.Name}
}

// WordCount returns the number of tokens in the document.
func (d Document) WordCount() int {
	return TotalWords(d.WordCounts)
}

// BuildIndex tokenizes text and folds the tokens into a frequency map.
// Accumulation is commutative, so the result does not depend on token order.
func BuildIndex(text string) map[string]int {
	tokens := tokenizer.Tokenize(text)
	counts := make(map[string]int, len(tokens)/2+1)
	for _, token := range tokens {
		counts[token]++
	}
	return counts
}

// TotalWords sums the values of a word-count map.
func TotalWords(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// New builds a Document with its word-count index. The ID is left zero for
// the store to assign.
func New(name, content string) Document {
	return Document{
		Name:       name,
		Content:    content,
		WordCounts: BuildIndex(content),
	}
}
