package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes class files below a root directory, one directory level
// per package segment of the class name.
type FileStore struct {
	root string
	opts *options
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Put.
func NewFileStore(dir string, opts ...Option) *FileStore {
	return &FileStore{root: dir, opts: collectOptions(opts...)}
}

// Path returns the file a class name is written to.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name)+ClassExtension)
}

// Put writes data to Path(name), replacing any previous file.
func (s *FileStore) Put(ctx context.Context, name string, data []byte) (Receipt, error) {
	if err := ValidateName(name); err != nil {
		return Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	r, err := s.opts.receipt(name, data)
	if err != nil {
		return Receipt{}, err
	}
	p := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Receipt{}, fmt.Errorf("store: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return Receipt{}, fmt.Errorf("store: %w", err)
	}
	r.Location = p
	s.opts.logStored(r)
	return r, nil
}
