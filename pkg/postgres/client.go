// Package postgres opens the optional database through lib/pq. It backs
// the startup document source and the analytics snapshot history.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

const pingTimeout = 5 * time.Second

// Client owns the connection pool. DB is exported for the loaders and
// stores that issue their own queries.
type Client struct {
	DB       *sql.DB
	database string
}

// New opens a pool sized from cfg and verifies it with a ping.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c := &Client{DB: db, database: cfg.Database}
	if err := c.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return c, nil
}

// Connect calls New under retry so a database that is still starting does
// not fail the service.
func Connect(ctx context.Context, cfg config.PostgresConfig, retry resilience.RetryConfig) (*Client, error) {
	var c *Client
	err := resilience.Retry(ctx, "postgres connect", retry, func() error {
		var err error
		c, err = New(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("postgres connected", "host", cfg.Host, "database", cfg.Database)
	return c, nil
}

// RegisterMetrics exports the pool's sql.DBStats.
func (c *Client) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(collectors.NewDBStatsCollector(c.DB, c.database))
}

// Ping bounds the round trip so a hung server reads as unhealthy.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}
