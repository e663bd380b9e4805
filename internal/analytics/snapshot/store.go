// Package snapshot periodically saves aggregated search analytics to
// PostgreSQL so the history survives restarts of the in-memory aggregator.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
)

// Snapshot is one saved copy of the aggregate.
type Snapshot struct {
	CapturedAt time.Time                 `json:"captured_at"`
	Stats      analytics.AggregatedStats `json:"stats"`
}

// Store writes snapshots to a single table with a JSONB payload:
//
//	CREATE TABLE <table> (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *sql.DB
	table  string
	now    func() time.Time
	logger *slog.Logger
}

func New(db *sql.DB, table string) *Store {
	return &Store{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		now:    time.Now,
		logger: slog.Default().With("component", "analytics-snapshot", "table", table),
	}
}

// EnsureTable creates the snapshot table when it does not exist yet.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("creating snapshot table: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (data, captured_at) VALUES ($1, $2)`,
		data, s.now().UTC(),
	); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_searches", stats.TotalSearches)
	return nil
}

// List returns up to limit snapshots, newest first. Rows whose payload no
// longer decodes are skipped.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data, captured_at FROM `+s.table+` ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		var data []byte
		var snap Snapshot
		if err := rows.Scan(&data, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "captured_at", snap.CapturedAt, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Latest returns the newest snapshot, or nil when the table is empty.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	var data []byte
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT data, captured_at FROM `+s.table+` ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data, &snap.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap.Stats); err != nil {
		return nil, fmt.Errorf("decoding latest snapshot: %w", err)
	}
	return &snap, nil
}

// Run saves agg's stats every interval until ctx ends, then takes one final
// snapshot with a short deadline of its own.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshots started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := s.Save(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Save(finalCtx, agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return
		}
	}
}
