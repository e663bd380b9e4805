package parser

import (
	"strings"
)

// QueryPlan is a parsed search request. Words are raw (trimmed, non-empty)
// query words; normalisation happens in the executor so results echo the
// normalised form.
type QueryPlan struct {
	Words    []string
	RawQuery string
	Snippets bool
	MatchAll bool
}

// Parse splits a whitespace-delimited query string into words.
func Parse(query string) *QueryPlan {
	return &QueryPlan{
		Words:    strings.Fields(query),
		RawQuery: query,
		Snippets: true,
		MatchAll: true,
	}
}

// FromWords builds a plan from an explicit word list. Each entry is trimmed
// and empty entries are dropped.
func FromWords(words []string) *QueryPlan {
	plan := &QueryPlan{
		Words:    make([]string, 0, len(words)),
		Snippets: true,
		MatchAll: true,
	}
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			plan.Words = append(plan.Words, w)
		}
	}
	plan.RawQuery = strings.Join(plan.Words, " ")
	return plan
}

// CacheKey is a canonical representation of the plan for result caching.
// Word order is kept because results are reported in query order.
func (p *QueryPlan) CacheKey() string {
	var b strings.Builder
	b.WriteString(strings.Join(p.Words, "\x1f"))
	if p.Snippets {
		b.WriteString("|snippets")
	}
	if p.MatchAll {
		b.WriteString("|all")
	}
	return b.String()
}
