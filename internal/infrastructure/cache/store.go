package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"MaterialHarvester/internal/domain"
)

// Store is a content-addressed, filesystem-backed payload cache. Payload
// bytes live in one file per key; entry metadata lives in a leveldb index
// next to them. Get consults only the index, so a crash between payload
// write and index commit never exposes a partial entry.
type Store struct {
	dir    string
	db     *leveldb.DB
	logger *slog.Logger

	// Serializes the check-then-commit in Put so concurrent fetches of the
	// same key resolve to a single stored entry.
	mu sync.Mutex
}

type entryRecord struct {
	ContentType string    `json:"content_type"`
	RetrievedAt time.Time `json:"retrieved_at"`
	Size        int64     `json:"size"`
}

// Open prepares the cache directory and its metadata index.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := leveldb.OpenFile(filepath.Join(dir, "index"), nil)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	return &Store{dir: dir, db: db, logger: logger}, nil
}

// Close releases the metadata index.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached entry for a key, or ok=false when absent.
func (s *Store) Get(key domain.CacheKey) (*domain.CacheEntry, bool, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache index: %w", err)
	}

	var rec entryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("decode cache record %s: %w", key, err)
	}

	return s.entryFromRecord(key, rec), true, nil
}

// Put stores a payload under its key and commits the index record. It is
// idempotent: when the key is already cached, the existing entry is returned
// untouched. The payload file is written to a temp name, synced, and renamed
// before the index commit, so a returned entry is always durable.
func (s *Store) Put(key domain.CacheKey, payload []byte, contentType domain.ContentType) (*domain.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok, err := s.Get(key); err != nil {
		return nil, err
	} else if ok {
		if s.logger != nil {
			s.logger.Debug("cache put skipped, entry exists", "key", string(key))
		}
		return existing, nil
	}

	target := s.payloadPath(key)
	tmp, err := os.CreateTemp(s.dir, string(key)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp payload: %w", err)
	}

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("sync payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close payload: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("commit payload: %w", err)
	}

	rec := entryRecord{
		ContentType: string(contentType),
		RetrievedAt: time.Now().UTC(),
		Size:        int64(len(payload)),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode cache record: %w", err)
	}
	if err := s.db.Put([]byte(key), raw, &opt.WriteOptions{Sync: true}); err != nil {
		return nil, fmt.Errorf("commit cache index: %w", err)
	}

	return s.entryFromRecord(key, rec), nil
}

// ReadPayload loads the cached bytes for an entry.
func (s *Store) ReadPayload(entry *domain.CacheEntry) ([]byte, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("read cached payload %s: %w", entry.Key, err)
	}
	return data, nil
}

func (s *Store) entryFromRecord(key domain.CacheKey, rec entryRecord) *domain.CacheEntry {
	return &domain.CacheEntry{
		Key:         key,
		ContentType: domain.ContentType(rec.ContentType),
		Path:        s.payloadPath(key),
		RetrievedAt: rec.RetrievedAt,
		Size:        rec.Size,
	}
}

func (s *Store) payloadPath(key domain.CacheKey) string {
	return filepath.Join(s.dir, string(key)+".bin")
}
