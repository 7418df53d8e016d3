package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of a pgx pool used by the postgres store.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresRepository stores each marker collection as a single JSONB document keyed by filename.
type PostgresRepository struct {
	db  Database
	log *slog.Logger
}

const (
	createSchemaQuery = `
		CREATE TABLE IF NOT EXISTS marker_documents (
			filename   TEXT PRIMARY KEY,
			document   JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	selectDocumentQuery = `
		SELECT document
		FROM marker_documents
		WHERE filename = $1;
	`
	selectDocumentForUpdateQuery = `
		SELECT document
		FROM marker_documents
		WHERE filename = $1
		FOR UPDATE;
	`
	insertEmptyDocumentQuery = `
		INSERT INTO marker_documents (filename, document)
		VALUES ($1, '[]'::jsonb)
		ON CONFLICT (filename) DO NOTHING;
	`
	upsertDocumentQuery = `
		INSERT INTO marker_documents (filename, document, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (filename)
		DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at;
	`
)

// NewDatabase opens a pgx pool and verifies the connection.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     name,
		RawQuery: "sslmode=disable",
	}

	pool, err := pgxpool.New(ctx, dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresRepository creates a new instance of PostgresRepository with the provided Database.
func NewPostgresRepository(db Database, log *slog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: log}
}

// EnsureSchema creates the documents table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createSchemaQuery); err != nil {
		return fmt.Errorf("failed to create marker documents table: %w", err)
	}

	return nil
}

// Read returns the collection stored under filename. A missing document is
// created as an empty array, matching the flat-file store.
func (r *PostgresRepository) Read(ctx context.Context, filename string) (models.Collection, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	var document []byte
	err := r.db.QueryRow(ctx, selectDocumentQuery, filename).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		r.log.InfoContext(ctx, "Marker document does not exist, creating an empty one", "filename", filename)
		if _, err = r.db.Exec(ctx, insertEmptyDocumentQuery, filename); err != nil {
			return nil, fmt.Errorf("failed to create empty marker document: %w", err)
		}
		return models.Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query marker document: %w", err)
	}

	var markers models.Collection
	if err = json.Unmarshal(document, &markers); err != nil {
		return nil, fmt.Errorf("failed to decode marker document %s: %w", filename, err)
	}
	if markers == nil {
		markers = models.Collection{}
	}

	return markers, nil
}

// Write replaces the document stored under filename.
func (r *PostgresRepository) Write(ctx context.Context, filename string, markers models.Collection) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}

	document, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("failed to encode markers: %w", err)
	}

	if _, err = r.db.Exec(ctx, upsertDocumentQuery, filename, string(document)); err != nil {
		return fmt.Errorf("failed to save marker document: %w", err)
	}

	r.log.DebugContext(ctx, "Marker document saved", "filename", filename, "count", len(markers))

	return nil
}

// Update reads the document, applies fn and writes the result inside one
// transaction. The row stays locked until the transaction ends.
func (r *PostgresRepository) Update(ctx context.Context, filename string, fn UpdateFunc) (err error) {
	if err = ValidateFilename(filename); err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.log.ErrorContext(ctx, "Failed to roll back marker update", "filename", filename, "error", rbErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, insertEmptyDocumentQuery, filename); err != nil {
		return fmt.Errorf("failed to create empty marker document: %w", err)
	}

	var document []byte
	if err = tx.QueryRow(ctx, selectDocumentForUpdateQuery, filename).Scan(&document); err != nil {
		return fmt.Errorf("failed to lock marker document: %w", err)
	}

	var markers models.Collection
	if err = json.Unmarshal(document, &markers); err != nil {
		return fmt.Errorf("failed to decode marker document %s: %w", filename, err)
	}
	if markers == nil {
		markers = models.Collection{}
	}

	if updated, changed := fn(markers); changed {
		var payload []byte
		if payload, err = json.Marshal(updated); err != nil {
			return fmt.Errorf("failed to encode markers: %w", err)
		}
		if _, err = tx.Exec(ctx, upsertDocumentQuery, filename, string(payload)); err != nil {
			return fmt.Errorf("failed to save marker document: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit marker update: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close releases the database pool.
func (r *PostgresRepository) Close() {
	r.db.Close()
}
