package index

import (
	"fmt"
	"sync/atomic"
)

var consistencyChecks atomic.Bool

func init() {
	consistencyChecks.Store(consistencyDefault)
}

// ConsistencyChecks reports whether internal cross-checks are active. They
// are on in builds tagged "debug" and whenever a test enables them.
func ConsistencyChecks() bool {
	return consistencyChecks.Load()
}

// EnableConsistencyChecks switches the internal cross-checks on or off and
// returns the previous setting.
func EnableConsistencyChecks(on bool) bool {
	return consistencyChecks.Swap(on)
}

// CountRecursive sums the count of word over docs with a recursive fold.
// It is deliberately independent of the iterative per-document scan so the
// two can be compared.
func CountRecursive(docs []Document, word string) int {
	return countFrom(docs, word, 0, 0)
}

func countFrom(docs []Document, word string, i, acc int) int {
	if i >= len(docs) {
		return acc
	}
	return countFrom(docs, word, i+1, acc+docs[i].WordCounts[word])
}

// VerifyTotal panics when total differs from the recursive recount of word
// over docs. It is a no-op unless consistency checks are enabled.
func VerifyTotal(docs []Document, word string, total int) {
	if !ConsistencyChecks() {
		return
	}
	if recount := CountRecursive(docs, word); recount != total {
		panic(fmt.Sprintf("index: total mismatch for %q: iterative=%d recursive=%d", word, total, recount))
	}
}

// VerifyDocument panics when d.WordCounts is not what BuildIndex produces
// for d.Content. It is a no-op unless consistency checks are enabled.
func VerifyDocument(d Document) {
	if !ConsistencyChecks() {
		return
	}
	want := BuildIndex(d.Content)
	if len(want) != len(d.WordCounts) {
		panic(fmt.Sprintf("index: document %d has %d distinct words, content yields %d", d.ID, len(d.WordCounts), len(want)))
	}
	for word, c := range want {
		if d.WordCounts[word] != c {
			panic(fmt.Sprintf("index: document %d count for %q is %d, content yields %d", d.ID, word, d.WordCounts[word], c))
		}
	}
}
