// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver for database/sql
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// Supported SQL dialects.
const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// DBConfig holds database configuration options.
type DBConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
}

// DefaultDBConfig returns defaults suited to a single migration process.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// SQLStore keeps documents as JSON rows in a single documents table.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// OpenSQL opens a SQLite or MySQL database and runs pending migrations.
func OpenSQL(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	return OpenSQLWithConfig(ctx, dialect, dsn, DefaultDBConfig())
}

// OpenSQLWithConfig opens a database with custom pool settings.
func OpenSQLWithConfig(ctx context.Context, dialect, dsn string, cfg DBConfig) (*SQLStore, error) {
	if dialect != DialectSQLite && dialect != DialectMySQL {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if dialect == DialectSQLite {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
			"PRAGMA busy_timeout=5000",  // Wait 5s when database is locked
			"PRAGMA synchronous=NORMAL", // Good balance of safety and speed
			"PRAGMA foreign_keys=ON",
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// Migrate runs all pending migrations for the dialect.
func Migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	gooseDialect := "sqlite3"
	if dialect == DialectMySQL {
		gooseDialect = "mysql"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db, "migrations/"+dialect); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (s *SQLStore) upsertQuery() string {
	if s.dialect == DialectMySQL {
		return `INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`
	}
	return `INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
}

// fieldExpr extracts a top-level or dotted JSON field as a comparable scalar.
func (s *SQLStore) fieldExpr() string {
	if s.dialect == DialectMySQL {
		return "JSON_UNQUOTE(JSON_EXTRACT(data, ?))"
	}
	return "json_extract(data, ?)"
}

func (s *SQLStore) orderExpr() string {
	if s.dialect == DialectMySQL {
		return "JSON_EXTRACT(data, ?)"
	}
	return "json_extract(data, ?)"
}

// Get returns a single document.
func (s *SQLStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	return Record{ID: id, Data: json.RawMessage(data)}, nil
}

// Set upserts a single document.
func (s *SQLStore) Set(ctx context.Context, collection, id string, data any) error {
	w := Write{Collection: collection, ID: id, Data: data}
	if err := validateWrite(w); err != nil {
		return err
	}
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.ExecContext(ctx, s.upsertQuery(), collection, id, string(body), time.Now().UTC()); err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}
	return nil
}

// BatchWrite upserts all writes in one transaction, in order.
func (s *SQLStore) BatchWrite(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}

	bodies := make([]string, len(writes))
	for i, w := range writes {
		if err := validateWrite(w); err != nil {
			return newBatchError(writes, err)
		}
		body, err := json.Marshal(w.Data)
		if err != nil {
			return newBatchError(writes, fmt.Errorf("encoding %s/%s: %w", w.Collection, w.ID, err))
		}
		bodies[i] = string(body)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newBatchError(writes, fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
	if err != nil {
		return newBatchError(writes, fmt.Errorf("preparing upsert: %w", err))
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for i, w := range writes {
		if _, err := stmt.ExecContext(ctx, w.Collection, w.ID, bodies[i], now); err != nil {
			return newBatchError(writes, fmt.Errorf("writing %s/%s: %w", w.Collection, w.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return newBatchError(writes, fmt.Errorf("committing: %w", err))
	}
	return nil
}

// Query returns documents whose field equals value, sorted by orderBy
// (document id when empty).
func (s *SQLStore) Query(ctx context.Context, collection, field string, value any, orderBy string) ([]Record, error) {
	if err := validateField(field); err != nil {
		return nil, err
	}

	query := `SELECT id, data FROM documents WHERE collection = ? AND ` + s.fieldExpr() + ` = ?`
	args := []any{collection, "$." + field, value}
	if orderBy != "" {
		if err := validateField(orderBy); err != nil {
			return nil, err
		}
		query += ` ORDER BY ` + s.orderExpr() + `, id`
		args = append(args, "$."+orderBy)
	} else {
		query += ` ORDER BY id`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}
		records = append(records, Record{ID: id, Data: json.RawMessage(data)})
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ DocumentStore = (*SQLStore)(nil)
