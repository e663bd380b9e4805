package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/benchmark"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
)

type SearchResult struct {
	Results          []WordResult     `json:"results"`
	Benchmark        benchmark.Timing `json:"benchmark"`
	DocsWithAllWords []DocumentMatch  `json:"docs_with_all_words"`
}

type Executor struct {
	store    *store.Store
	harness  *benchmark.Harness
	parallel Parallel
	opts     Options
	logger   *slog.Logger
}

func New(s *store.Store, cfg config.SearchConfig) *Executor {
	opts := DefaultOptions()
	if cfg.MaxSnippets >= 0 {
		opts.MaxSnippets = cfg.MaxSnippets
	}
	if cfg.SnippetMaxChars > 0 {
		opts.SnippetMaxChars = cfg.SnippetMaxChars
	}
	return &Executor{
		store:    s,
		harness:  benchmark.New(),
		parallel: Parallel{Limit: cfg.Parallelism},
		opts:     opts,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Execute answers plan against a single read-locked view of the store: the
// primary run (parallel for two or more words), the sequential benchmark
// re-run, and the all-words match all see the same documents.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan) (*SearchResult, error) {
	opts := e.opts
	opts.Snippets = plan.Snippets

	result := &SearchResult{
		Results:          []WordResult{},
		DocsWithAllWords: []DocumentMatch{},
	}
	err := e.store.View(func(docs []index.Document) error {
		primary := ChooseStrategy(len(plan.Words), e.parallel)
		results, timing, err := benchmark.Compare(ctx, e.harness, primary.Mode(),
			func(ctx context.Context, mode benchmark.Mode) ([]WordResult, error) {
				return SearchMany(ctx, docs, plan.Words, e.strategyFor(mode), opts)
			})
		if err != nil {
			return err
		}
		result.Results = results
		result.Benchmark = timing
		if plan.MatchAll {
			result.DocsWithAllWords = FindDocsWithAllWords(docs, plan.Words)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("executing query %q: %w", plan.RawQuery, err)
	}
	e.logger.Debug("query executed",
		"words", plan.Words,
		"results", len(result.Results),
		"all_words_matches", len(result.DocsWithAllWords),
		"speedup", result.Benchmark.Speedup,
	)
	return result, nil
}

func (e *Executor) strategyFor(mode benchmark.Mode) Strategy {
	if mode == benchmark.Parallel {
		return e.parallel
	}
	return Sequential{}
}
