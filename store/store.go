// Package store publishes assembled class files to a directory, an S3 bucket
// or a PostgreSQL table. Every Put returns a Receipt identifying the stored
// artifact by a fresh UUID and the SHA-256 digest of its bytes.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

// ClassExtension is appended to class names to form file names and keys.
const ClassExtension = ".class"

// Store saves class file bytes under a class name such as "com/example/Hello".
type Store interface {
	Put(ctx context.Context, name string, data []byte) (Receipt, error)
}

// Receipt describes one stored artifact.
type Receipt struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Digest   string    `json:"digest"`
	Size     int       `json:"size"`
	Location string    `json:"location"`
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	newID  func() (uuid.UUID, error)
}

func collectOptions(opts ...Option) *options {
	o := &options{logger: zerolog.Nop(), newID: uuid.NewV4}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithLogger sets the logger used to report stored artifacts.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIDGenerator replaces the UUID v4 generator used for receipts.
func WithIDGenerator(fn func() (uuid.UUID, error)) Option {
	return func(o *options) {
		o.newID = fn
	}
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (o *options) receipt(name string, data []byte) (Receipt, error) {
	id, err := o.newID()
	if err != nil {
		return Receipt{}, fmt.Errorf("store: generating id: %w", err)
	}
	return Receipt{ID: id, Name: name, Digest: Digest(data), Size: len(data)}, nil
}

func (o *options) logStored(r Receipt) {
	o.logger.Debug().
		Str("id", r.ID.String()).
		Str("name", r.Name).
		Str("digest", r.Digest).
		Int("size", r.Size).
		Str("location", r.Location).
		Msg("class stored")
}

// ValidateName checks that name is a relative, slash-separated internal class
// name that stays inside its store.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("store: class name is empty")
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("store: invalid class name %q", name)
	}
	if path.Clean(name) != name {
		return fmt.Errorf("store: invalid class name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "." || part == ".." {
			return fmt.Errorf("store: invalid class name %q", name)
		}
	}
	return nil
}
