package checksum

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentic-research/syncgen/api"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the snapshot in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS checksums (
		path TEXT PRIMARY KEY,
		checksum TEXT NOT NULL
	) WITHOUT ROWID;
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) ([]api.ChecksumRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, checksum FROM checksums ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("query checksums: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	records := []api.ChecksumRecord{}
	for rows.Next() {
		var r api.ChecksumRecord
		if err := rows.Scan(&r.Path, &r.Checksum); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Save implements Store. The previous snapshot is replaced in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []api.ChecksumRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM checksums"); err != nil {
		return fmt.Errorf("clear checksums: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO checksums (path, checksum) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Path, r.Checksum); err != nil {
			return fmt.Errorf("insert %s: %w", r.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checksums: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
