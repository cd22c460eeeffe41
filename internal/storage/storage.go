package storage

import (
	"errors"
	"fmt"
)

// Record is the persisted form of one identity's relationship counter.
type Record struct {
	Day    int  `json:"day"`
	Active bool `json:"active"`
}

// Repository persists the whole identity -> Record mapping.
// LoadAll returns an empty map when nothing was saved yet.
// SaveAll replaces the stored mapping with the given one.
// Implementations must be safe for concurrent use.
type Repository interface {
	LoadAll() (map[string]Record, error)
	SaveAll(records map[string]Record) error
	Close() error
}

// ErrUnknownDriver is returned by Open for a driver other than file or sqlite.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Open returns the repository for driver ("file" or "sqlite") rooted at path.
func Open(driver, path string) (Repository, error) {
	var (
		repo Repository
		err  error
	)
	switch driver {
	case "file":
		repo, err = NewFileRepository(path)
	case "sqlite":
		repo, err = NewSQLiteRepository(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}
