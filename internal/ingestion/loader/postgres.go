package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// Postgres loads (name, content) rows from a table, ordered by id. The
// table needs at least:
//
//	CREATE TABLE documents (
//	    id      BIGSERIAL PRIMARY KEY,
//	    name    TEXT NOT NULL,
//	    content TEXT NOT NULL
//	);
type Postgres struct {
	DB    *sql.DB
	Table string
	Retry resilience.RetryConfig
}

func (p Postgres) Name() string { return "postgres" }

func (p Postgres) Load(ctx context.Context) ([]ingestion.RawDocument, error) {
	cfg := p.Retry
	if cfg.Retryable == nil {
		cfg.Retryable = transient
	}
	var docs []ingestion.RawDocument
	err := resilience.Retry(ctx, "postgres document load", cfg, func() error {
		var err error
		docs, err = p.query(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (p Postgres) query(ctx context.Context) ([]ingestion.RawDocument, error) {
	rows, err := p.DB.QueryContext(ctx, selectQuery(p.Table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", p.Table, err)
	}
	defer rows.Close()

	docs := make([]ingestion.RawDocument, 0)
	for rows.Next() {
		var name, content string
		if err := rows.Scan(&name, &content); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", p.Table, err)
		}
		docs = append(docs, ingestion.RawDocument{Name: name, Data: []byte(content), Kind: ingestion.KindText})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", p.Table, err)
	}
	return docs, nil
}

// transient reports whether a load failure might succeed on retry. Syntax
// and access-rule errors (class 42, e.g. an undefined table) will not.
func transient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() != "42"
	}
	return true
}

func selectQuery(table string) string {
	return fmt.Sprintf("SELECT name, content FROM %s ORDER BY id", pq.QuoteIdentifier(table))
}
