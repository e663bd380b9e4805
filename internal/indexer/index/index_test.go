package index

import (
	"os"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
)

func TestMain(m *testing.M) {
	EnableConsistencyChecks(true)
	os.Exit(m.Run())
}

func TestBuildIndex(t *testing.T) {
	counts := BuildIndex("The cat sat. The cat ran.")
	want := map[string]int{"the": 2, "cat": 2, "sat": 1, "ran": 1}
	if len(counts) != len(want) {
		t.Fatalf("got %v, want %v", counts, want)
	}
	for w, c := range want {
		if counts[w] != c {
			t.Fatalf("count[%q] = %d, want %d", w, counts[w], c)
		}
	}
}

func TestBuildIndexSumMatchesTokenCount(t *testing.T) {
	texts := []string{
		"",
		"   ",
		"one",
		"Alpha beta, GAMMA! alpha? beta... 42 42 42",
		"punctuation -- only ... ,,, tokens between",
		"line one.\nline two!\n\tline three?",
	}
	for _, text := range texts {
		counts := BuildIndex(text)
		if got, want := TotalWords(counts), len(tokenizer.Tokenize(text)); got != want {
			t.Fatalf("TotalWords(BuildIndex(%q)) = %d, token count = %d", text, got, want)
		}
	}
}

func TestBuildIndexOrderIndependent(t *testing.T) {
	a := BuildIndex("x y z x y x")
	b := BuildIndex("x x x y y z")
	if len(a) != len(b) {
		t.Fatalf("maps differ: %v vs %v", a, b)
	}
	for k, v := range a {
		if b[k] != v {
			t.Fatalf("count[%q]: %d vs %d", k, v, b[k])
		}
	}
}

func TestNewAndInfo(t *testing.T) {
	d := New("a.txt", "apple banana apple")
	d.ID = 4
	if d.WordCount() != 3 {
		t.Fatalf("WordCount = %d", d.WordCount())
	}
	if info := d.Info(); info.ID != 4 || info.Name != "a.txt" {
		t.Fatalf("Info = %+v", info)
	}
	VerifyDocument(d)
}

func TestCountRecursive(t *testing.T) {
	docs := []Document{
		New("a", "cat cat dog"),
		New("b", "dog"),
		New("c", "cat"),
	}
	if got := CountRecursive(docs, "cat"); got != 3 {
		t.Fatalf("cat = %d", got)
	}
	if got := CountRecursive(docs, "bird"); got != 0 {
		t.Fatalf("bird = %d", got)
	}
	if got := CountRecursive(nil, "cat"); got != 0 {
		t.Fatalf("empty = %d", got)
	}
}

func TestVerifyTotalPanicsOnMismatch(t *testing.T) {
	docs := []Document{New("a", "cat cat")}
	VerifyTotal(docs, "cat", 2)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mismatched total")
		}
	}()
	VerifyTotal(docs, "cat", 3)
}

func TestVerifyDocumentPanicsOnTamperedIndex(t *testing.T) {
	d := New("a", "cat dog")
	d.WordCounts["cat"] = 5
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on tampered index")
		}
	}()
	VerifyDocument(d)
}

func TestChecksDisabledAreNoOps(t *testing.T) {
	prev := EnableConsistencyChecks(false)
	defer EnableConsistencyChecks(prev)
	VerifyTotal([]Document{New("a", "cat")}, "cat", 100)
}
