// Package cache persists synthesized chapter drafts across runs. Keys are
// derived from the chapter title and the content fingerprints of its file
// set, so the cache is safe to share between runs and between chapters with
// overlapping files. Entries are never deleted: newer writes overwrite the
// same key, everything else is retained for history.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Entry is one cached synthesis result. Needs is kept alongside the content
// so a rerun can replay the whole resolution loop from cache without issuing
// a single synthesis call.
type Entry struct {
	Content   string    `json:"content"`
	Needs     []string  `json:"needs,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// KeyFile is one (path, fingerprint) pair contributing to a cache key.
type KeyFile struct {
	Path        string
	Fingerprint string
}

// Key derives the cache key for a chapter and its file set. File ordering is
// normalized by sorting before hashing, so the key is invariant to irrelevant
// ordering changes and sensitive to any content change.
func Key(title string, files []KeyFile) string {
	sorted := append([]KeyFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(title))
	for _, f := range sorted {
		sb.WriteString("|")
		sb.WriteString(f.Path)
		sb.WriteString(":")
		sb.WriteString(f.Fingerprint)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return "chapter-v1-" + hex.EncodeToString(sum[:])
}

// Store is a badger-backed cache with an explicit open/close lifecycle. It is
// constructed once and passed by reference into the orchestrator; there is no
// implicit singleton.
type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (or creates) the cache at dir.
func Open(dir string, log *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", dir, err)
	}
	return &Store{db: db, log: log}, nil
}

// OpenInMemory opens an ephemeral cache. Used in tests and by --no-cache.
func OpenInMemory(log *zap.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory cache: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Lookup returns the entry for key, if present.
func (s *Store) Lookup(key string) (*Entry, bool, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	return &entry, true, nil
}

// Store writes an entry, overwriting any prior value at the same key.
func (s *Store) Store(key string, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("cache store failed: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}
