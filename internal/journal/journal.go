package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ggonzalez94/clob-bridge/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Store is an append-only log of order and cancel requests.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS order_journal (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL,
			command TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_order_journal_run ON order_journal(run_id, seq DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath), now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends entry, filling RecordID and CreatedAt when empty, and returns
// the stored form.
func (s *Store) Record(entry model.JournalEntry) (model.JournalEntry, error) {
	if strings.TrimSpace(entry.Command) == "" {
		return entry, fmt.Errorf("record journal entry: missing command")
	}
	if entry.RecordID == "" {
		entry.RecordID = "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	created := s.now().UTC()
	if entry.CreatedAt == "" {
		entry.CreatedAt = created.Format(time.RFC3339)
	}

	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return entry, fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return entry, fmt.Errorf("lock journal: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(entry)
	if err != nil {
		return entry, fmt.Errorf("marshal journal entry: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO order_journal (record_id, run_id, command, status, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.RecordID, entry.RunID, entry.Command, entry.Status, created.Unix(), payload)
	if err != nil {
		return entry, fmt.Errorf("record journal entry: %w", err)
	}
	return entry, nil
}

// List returns the most recent entries first. limit is clamped to
// [1, MaxListLimit]; zero or negative means DefaultListLimit.
func (s *Store) List(limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := s.db.Query("SELECT payload FROM order_journal ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	entries := make([]model.JournalEntry, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		var entry model.JournalEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode journal row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}
