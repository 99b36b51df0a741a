package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store is a small TTL cache for public exchange listings. Writes take a file
// lock so several bridge processes can share one database.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

type Entry struct {
	Value []byte
	Age   time.Duration
	Fresh bool
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache lock directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"CREATE TABLE IF NOT EXISTS listings (key TEXT PRIMARY KEY, value BLOB NOT NULL, stored_at INTEGER NOT NULL, expires_at INTEGER NOT NULL);",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init cache schema: %w", err)
		}
	}

	store := &Store{db: db, lock: flock.New(lockPath), now: time.Now}
	_ = store.Prune()
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Prune drops expired listings.
func (s *Store) Prune() error {
	if s == nil || s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("DELETE FROM listings WHERE expires_at <= ?", s.now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	return nil
}

// Get returns the stored value for key. ok is false when nothing is stored;
// an expired value is still returned with Fresh set to false.
func (s *Store) Get(key string) (Entry, bool, error) {
	var (
		value     []byte
		storedAt  int64
		expiresAt int64
	)
	err := s.db.QueryRow("SELECT value, stored_at, expires_at FROM listings WHERE key = ?", key).Scan(&value, &storedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("cache read: %w", err)
	}
	nowMs := s.now().UTC().UnixMilli()
	age := time.Duration(nowMs-storedAt) * time.Millisecond
	if age < 0 {
		age = 0
	}
	return Entry{Value: value, Age: age, Fresh: nowMs < expiresAt}, true, nil
}

func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	storedAt := s.now().UTC()
	_, err = s.db.Exec(`
		INSERT INTO listings (key, value, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			stored_at=excluded.stored_at,
			expires_at=excluded.expires_at
	`, key, value, storedAt.UnixMilli(), storedAt.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}
