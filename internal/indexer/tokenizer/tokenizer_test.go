package tokenizer

import (
	"reflect"
	"strings"
	"testing"
	"unicode"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cat.", "cat"},
		{"HELLO,", "hello"},
		{"don't", "dont"},
		{"e-mail", "email"},
		{"R2D2!", "r2d2"},
		{"...", ""},
		{"", ""},
		{"Über", "über"},
		{"x²", "x²"},
		{"Ⅻ", "ⅻ"},
		{"½cup", "½cup"},
		{"नमस्ते", "नमसते"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The cat sat. The cat ran.")
	want := []string{"the", "cat", "sat", "the", "cat", "ran"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeDiscardsEmptyFragments(t *testing.T) {
	got := Tokenize("  --  ,,  hello \n\t ??? world  ")
	want := []string{"hello", "world"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	if got := Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens for empty text, got %v", got)
	}
}

func TestTokenizeOnlyLowerAlphanumeric(t *testing.T) {
	inputs := []string{
		"Mixed CASE input, with: punctuation; and 123 numbers!",
		"tabs\tand\nnewlines\r\nEVERYWHERE",
		"ÀÉÎ õü ß — em dashes – and “quotes”",
		"a.b.c d_e_f g/h/i",
		"x² + ½cup of Ⅻ, नमस्ते!",
	}
	for _, in := range inputs {
		for _, tok := range Tokenize(in) {
			if tok == "" {
				t.Fatalf("empty token from %q", in)
			}
			if tok != strings.ToLower(tok) {
				t.Fatalf("token %q from %q is not lower-case", tok, in)
			}
			for _, r := range tok {
				if !IsAlphanumeric(r) {
					t.Fatalf("token %q from %q contains %q", tok, in, r)
				}
			}
		}
	}
}

func TestIsAlphanumeric(t *testing.T) {
	for _, r := range "aZ9²Ⅻ½éे" {
		if !IsAlphanumeric(r) {
			t.Errorf("IsAlphanumeric(%q) = false, want true", r)
		}
	}
	for _, r := range " .,-_'\u094d\u2014" {
		if IsAlphanumeric(r) {
			t.Errorf("IsAlphanumeric(%q) = true, want false", r)
		}
	}
	if !unicode.IsNumber('²') {
		t.Fatal("superscript two should be a number")
	}
}

func TestWordSet(t *testing.T) {
	set := WordSet([]string{"apple", "Apple!", "e-mail", "...", ""})
	if len(set) != 2 {
		t.Fatalf("expected 2 distinct words, got %v", set)
	}
	for _, w := range []string{"apple", "email"} {
		if _, ok := set[w]; !ok {
			t.Fatalf("missing %q in %v", w, set)
		}
	}
	if got := WordSet(nil); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}
