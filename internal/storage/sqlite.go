package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps one row per identity in the relationships table.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRepository opens the database at path and creates the table.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	r := &SQLiteRepository{db: db}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepository) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS relationships (
		identity TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		active INTEGER NOT NULL
	);`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadAll() (map[string]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make(map[string]Record)
	rows, err := r.db.Query(`SELECT identity, day, active FROM relationships`)
	if err != nil {
		return records, fmt.Errorf("query relationships: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)
	for rows.Next() {
		var (
			id     string
			rec    Record
			active int
		)
		if err := rows.Scan(&id, &rec.Day, &active); err != nil {
			return make(map[string]Record), fmt.Errorf("scan relationship row: %w", err)
		}
		rec.Active = active != 0
		records[id] = rec
	}
	if err := rows.Err(); err != nil {
		return make(map[string]Record), fmt.Errorf("iterate relationships: %w", err)
	}
	return records, nil
}

// SaveAll rewrites the table in a single transaction.
func (r *SQLiteRepository) SaveAll(records map[string]Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.Exec(`DELETE FROM relationships`); err != nil {
		return fmt.Errorf("clear relationships: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO relationships (identity, day, active) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmt)
	for id, rec := range records {
		active := 0
		if rec.Active {
			active = 1
		}
		if _, err := stmt.Exec(id, rec.Day, active); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
