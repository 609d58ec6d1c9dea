// Package cache persists loaded sessions as JSON in a BoltDB file, with a
// small in-memory LRU in front.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"go.etcd.io/bbolt"

	"podium/internal/session"
)

const (
	sessionsBucket = "sessions"
	fileName       = "sessions.db"
	// DefaultEntries bounds the in-memory front.
	DefaultEntries = 32
)

// Store is a session cache backed by BoltDB.
type Store struct {
	mu     sync.Mutex
	db     *bbolt.DB
	memory *lru.Cache
}

// Open creates the cache directory if needed and opens the database in it.
func Open(directory string, entries int) (*Store, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	dbPath := filepath.Join(directory, fileName)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	if entries <= 0 {
		entries = DefaultEntries
	}
	return &Store{
		db:     db,
		memory: lru.New(entries),
	}, nil
}

// Close is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get returns the cached session for key. A miss is (nil, false, nil).
func (s *Store) Get(key session.Key) (*session.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.memory.Get(key.String()); ok {
		return value.(*session.Session), true, nil
	}
	if s.db == nil {
		return nil, false, fmt.Errorf("cache is closed")
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucket))
		if v := b.Get([]byte(key.String())); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	cached := new(session.Session)
	if err := json.Unmarshal(data, cached); err != nil {
		return nil, false, fmt.Errorf("decode cached session %s: %w", key, err)
	}
	s.memory.Add(key.String(), cached)
	return cached, true, nil
}

func (s *Store) Put(cached *session.Session) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("cache is closed")
	}
	key := cached.Key.String()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Put([]byte(key), data)
	})
	if err != nil {
		return err
	}
	s.memory.Add(key, cached)
	return nil
}

// Len returns the number of sessions on disk.
func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("cache is closed")
	}
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(sessionsBucket)).Stats().KeyN
		return nil
	})
	return count, err
}
