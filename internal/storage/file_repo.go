package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository stores all records as one JSON object in a single file.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates the parent directory of path if needed.
func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) LoadAll() (map[string]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make(map[string]Record)
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return records, nil
		}
		return records, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return make(map[string]Record), nil
		}
		// malformed -> caller starts fresh
		return make(map[string]Record), fmt.Errorf("decode %s: %w", r.path, err)
	}
	return records, nil
}

// SaveAll writes into a temp file next to the target and renames it over,
// so a crash mid-write leaves the previous state intact.
func (r *FileRepository) SaveAll(records map[string]Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (r *FileRepository) Close() error { return nil }
