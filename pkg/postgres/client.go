// Package postgres opens the lib/pq connection pool backing the message
// store and owns its schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/resilience"
)

// Schema creates the tables used by the message resolver. Statements are
// idempotent so Migrate can run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	name          TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL DEFAULT '',
	participants  TEXT[] NOT NULL DEFAULT '{}',
	platform      TEXT NOT NULL DEFAULT '',
	language      TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	indexed_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	conversation TEXT NOT NULL REFERENCES conversations(name) ON DELETE CASCADE,
	doc_id       TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	sent_at      TEXT NOT NULL DEFAULT '',
	sender       TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	is_reply     BOOLEAN NOT NULL DEFAULT false,
	reply_to     TEXT NOT NULL DEFAULT '',
	has_reactions BOOLEAN NOT NULL DEFAULT false,
	reactions    TEXT NOT NULL DEFAULT '',
	translated   TEXT NOT NULL DEFAULT '',
	is_media     BOOLEAN NOT NULL DEFAULT false,
	is_ocr       BOOLEAN NOT NULL DEFAULT false,
	local_uri    TEXT NOT NULL DEFAULT '',
	remote_url   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (conversation, doc_id)
);

CREATE INDEX IF NOT EXISTS messages_conversation_seq ON messages (conversation, seq);
`

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

// New opens the pool and waits until the server answers a ping.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = resilience.Retry(ctx, "postgres-ping", resilience.ConnectRetry, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// Migrate applies Schema.
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// InTx runs fn inside a transaction, committing on success and rolling back
// when fn returns an error.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
