// Package store owns the collection of indexed documents. Reads (search,
// list, stats) share a read lock; writes (ingest, delete, delete-all) take
// the write lock. Index building for a batch happens before the write lock
// is acquired so the lock only covers the final append.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// ParallelIngestThreshold is the smallest batch whose documents are indexed
// concurrently.
const ParallelIngestThreshold = 2

// Item is one document handed to the store for ingestion.
type Item struct {
	Name    string
	Content string
}

// Stats is the corpus-wide aggregate returned by Stats.
type Stats struct {
	TotalDocuments     int     `json:"total_documents"`
	TotalWords         int     `json:"total_words"`
	TotalBytes         int     `json:"total_bytes"`
	AverageWordsPerDoc float64 `json:"average_words_per_doc"`
}

// Observer is notified after successful mutations, outside the lock.
type Observer interface {
	DocumentsIngested(docs []index.Document)
	DocumentsDeleted(docs []index.Document)
}

// Store is the in-memory document collection. The zero value is not usable;
// construct one with New.
//
// A panic raised while a write holds the lock poisons the store: every later
// call fails with ErrStorePoisoned until the process is restarted.
type Store struct {
	mu        sync.RWMutex
	docs      []index.Document
	nextID    index.DocID
	gen       atomic.Uint64
	poisoned  atomic.Bool
	observers []Observer
	logger    *slog.Logger
}

// New creates an empty Store.
func New(observers ...Observer) *Store {
	return &Store{
		docs:      make([]index.Document, 0),
		observers: observers,
		logger:    slog.Default().With("component", "document-store"),
	}
}

// Ingest indexes a single document and returns its id.
func (s *Store) Ingest(name, content string) (index.DocID, error) {
	ids, _, err := s.IngestBatch(context.Background(), []Item{{Name: name, Content: content}})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// IngestBatch indexes items and appends them in input order. It returns the
// assigned ids and the total number of documents after the insert. Batches
// of ParallelIngestThreshold or more are indexed concurrently.
func (s *Store) IngestBatch(ctx context.Context, items []Item) ([]index.DocID, int, error) {
	if s.poisoned.Load() {
		return nil, 0, apperrors.ErrStorePoisoned
	}
	prepared, err := buildDocuments(ctx, items)
	if err != nil {
		return nil, 0, fmt.Errorf("building document indexes: %w", err)
	}

	ids := make([]index.DocID, len(prepared))
	var total int
	err = s.write("ingest", func() {
		for i := range prepared {
			prepared[i].ID = s.nextID
			s.nextID++
			ids[i] = prepared[i].ID
			s.docs = append(s.docs, prepared[i])
		}
		total = len(s.docs)
	})
	if err != nil {
		return nil, 0, err
	}
	s.logger.Debug("documents ingested", "count", len(prepared), "total", total)
	for _, o := range s.observers {
		o.DocumentsIngested(prepared)
	}
	return ids, total, nil
}

func buildDocuments(ctx context.Context, items []Item) ([]index.Document, error) {
	prepared := make([]index.Document, len(items))
	if len(items) < ParallelIngestThreshold {
		for i, it := range items {
			prepared[i] = index.New(it.Name, it.Content)
			index.VerifyDocument(prepared[i])
		}
		return prepared, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prepared[i] = index.New(it.Name, it.Content)
			index.VerifyDocument(prepared[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prepared, nil
}

// List returns the (id, name) pairs of all documents in insertion order.
func (s *Store) List() ([]index.DocumentInfo, error) {
	var infos []index.DocumentInfo
	err := s.View(func(docs []index.Document) error {
		infos = make([]index.DocumentInfo, len(docs))
		for i, d := range docs {
			infos[i] = d.Info()
		}
		return nil
	})
	return infos, err
}

// Get returns a copy of the document with the given id.
func (s *Store) Get(id index.DocID) (index.Document, error) {
	var doc index.Document
	err := s.View(func(docs []index.Document) error {
		i, ok := find(docs, id)
		if !ok {
			return fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
		}
		doc = docs[i]
		doc.WordCounts = maps.Clone(doc.WordCounts)
		return nil
	})
	return doc, err
}

// Delete removes the document with the given id and returns how many
// documents remain. The store is left unchanged when id is absent.
func (s *Store) Delete(id index.DocID) (int, error) {
	if s.poisoned.Load() {
		return 0, apperrors.ErrStorePoisoned
	}
	var (
		remaining int
		removed   []index.Document
	)
	err := s.write("delete", func() {
		i, ok := find(s.docs, id)
		if !ok {
			remaining = len(s.docs)
			return
		}
		removed = []index.Document{s.docs[i]}
		s.docs = slices.Delete(s.docs, i, i+1)
		remaining = len(s.docs)
	})
	if err != nil {
		return 0, err
	}
	if removed == nil {
		return remaining, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	s.logger.Debug("document deleted", "doc_id", id, "remaining", remaining)
	for _, o := range s.observers {
		o.DocumentsDeleted(removed)
	}
	return remaining, nil
}

// DeleteAll removes every document and resets the id counter to zero.
func (s *Store) DeleteAll() error {
	if s.poisoned.Load() {
		return apperrors.ErrStorePoisoned
	}
	var removed []index.Document
	err := s.write("delete-all", func() {
		removed = s.docs
		s.docs = make([]index.Document, 0)
		s.nextID = 0
	})
	if err != nil {
		return err
	}
	s.logger.Info("all documents deleted", "removed", len(removed))
	for _, o := range s.observers {
		o.DocumentsDeleted(removed)
	}
	return nil
}

// Stats aggregates document count, word count and byte size over the
// current documents. AverageWordsPerDoc is 0 for an empty store.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.View(func(docs []index.Document) error {
		st = Aggregate(docs)
		return nil
	})
	return st, err
}

// Aggregate computes Stats over docs without touching them.
func Aggregate(docs []index.Document) Stats {
	st := Stats{TotalDocuments: len(docs)}
	for _, d := range docs {
		st.TotalWords += index.TotalWords(d.WordCounts)
		st.TotalBytes += len(d.Content)
	}
	if st.TotalDocuments > 0 {
		st.AverageWordsPerDoc = float64(st.TotalWords) / float64(st.TotalDocuments)
	}
	return st
}

// View runs fn with the current documents under the read lock. fn must not
// modify docs or retain the slice after it returns.
func (s *Store) View(fn func(docs []index.Document) error) error {
	if s.poisoned.Load() {
		return apperrors.ErrStorePoisoned
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.docs)
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Generation changes after every successful mutation. Callers caching
// derived results key them on it.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// Poisoned reports whether an earlier write panicked.
func (s *Store) Poisoned() bool {
	return s.poisoned.Load()
}

func (s *Store) write(op string, fn func()) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned.Load() {
		return apperrors.ErrStorePoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			s.poisoned.Store(true)
			s.logger.Error("panic while holding write lock, store poisoned",
				"op", op,
				"panic", r,
			)
			err = fmt.Errorf("%s: %v: %w", op, r, apperrors.ErrStorePoisoned)
		}
	}()
	fn()
	s.gen.Add(1)
	return nil
}

// find locates id in docs. Documents are appended with increasing ids, so
// the slice is always sorted by id.
func find(docs []index.Document, id index.DocID) (int, bool) {
	return slices.BinarySearchFunc(docs, id, func(d index.Document, target index.DocID) int {
		switch {
		case d.ID < target:
			return -1
		case d.ID > target:
			return 1
		default:
			return 0
		}
	})
}
