package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table PGStore writes to.
const Schema = `CREATE TABLE IF NOT EXISTS classes (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	digest     TEXT NOT NULL,
	size       INTEGER NOT NULL,
	data       BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertClass = `INSERT INTO classes (id, name, digest, size, data) VALUES ($1, $2, $3, $4, $5)`

// Execer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PGStore inserts class files as rows of the classes table.
type PGStore struct {
	db   Execer
	opts *options
}

// NewPGStore returns a store writing through db.
func NewPGStore(db Execer, opts ...Option) *PGStore {
	return &PGStore{db: db, opts: collectOptions(opts...)}
}

// EnsureSchema creates the classes table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	return nil
}

// Put inserts one row. Every Put creates a new row, so a class may be
// published several times.
func (s *PGStore) Put(ctx context.Context, name string, data []byte) (Receipt, error) {
	if err := ValidateName(name); err != nil {
		return Receipt{}, err
	}
	r, err := s.opts.receipt(name, data)
	if err != nil {
		return Receipt{}, err
	}
	tag, err := s.db.Exec(ctx, insertClass, r.ID.String(), r.Name, r.Digest, r.Size, data)
	if err != nil {
		return Receipt{}, fmt.Errorf("store: inserting %s: %w", name, err)
	}
	if tag.RowsAffected() != 1 {
		return Receipt{}, fmt.Errorf("store: inserting %s affected %d rows", name, tag.RowsAffected())
	}
	r.Location = "postgres:classes/" + r.ID.String()
	s.opts.logStored(r)
	return r, nil
}
