/*
Package dict provides the on-device dictionary stores backing the keyboard:
word-to-definition lookups and packed Unihan metadata records, both held in
LevelDB databases built offline and opened read-mostly at runtime.

A Store wraps exactly one LevelDB handle. Word stores and Unihan stores are
separate databases on disk; the same Store type serves both, callers simply
open the path that holds the kind of data they need. LevelDB itself guarantees
safe concurrent reads, so a Store can be shared across goroutines without
extra locking once opened.
*/
package dict

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/keylex/keylex/pkg/unihan"
)

var (
	// ErrClosed reports an operation on a store whose handle was released.
	ErrClosed = errors.New("dict: store closed")
	// ErrEmptyWord reports an attempt to write an entry with an empty key.
	ErrEmptyWord = errors.New("dict: empty word")
)

// Store is a handle to one dictionary database. The zero value is unusable;
// obtain one through Open.
type Store struct {
	db   *leveldb.DB
	path string

	mu     sync.RWMutex
	closed bool
}

// Open acquires the database at path. With createIfMissing false a missing
// database is an error; with true one is created on first use.
func Open(path string, createIfMissing bool) (*Store, error) {
	if !createIfMissing {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("dict: open %s: %w", path, err)
		}
	}

	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: !createIfMissing})
	if err != nil {
		return nil, fmt.Errorf("dict: open %s: %w", path, err)
	}

	log.Debugf("Opened dictionary store at %s", path)
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle. Further calls are no-ops, so the handle
// is released exactly once on every shutdown path.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("dict: close %s: %w", s.path, err)
	}
	log.Debugf("Closed dictionary store at %s", s.path)
	return nil
}

// Path returns the on-disk location this store was opened from.
func (s *Store) Path() string {
	return s.path
}

// Get looks up the definition for word. A missing word is not an error:
// it returns ("", false, nil).
func (s *Store) Get(word string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, fmt.Errorf("dict: get %q: %w", word, ErrClosed)
	}
	if word == "" {
		return "", false, nil
	}

	raw, err := s.db.Get([]byte(word), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("dict: get %q: %w", word, err)
	}
	return string(raw), true, nil
}

// Put upserts the definition for word, overwriting any previous value.
func (s *Store) Put(word, definition string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("dict: put %q: %w", word, ErrClosed)
	}
	if word == "" {
		return ErrEmptyWord
	}

	if err := s.db.Put([]byte(word), []byte(definition), nil); err != nil {
		return fmt.Errorf("dict: put %q: %w", word, err)
	}
	return nil
}

// Delete removes word if present. Deleting an absent word is a no-op.
func (s *Store) Delete(word string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("dict: delete %q: %w", word, ErrClosed)
	}
	if word == "" {
		return nil
	}

	if err := s.db.Delete([]byte(word), nil); err != nil {
		return fmt.Errorf("dict: delete %q: %w", word, err)
	}
	return nil
}

// UnihanEntry looks up the packed metadata record for a code point. An
// unassigned code point returns (Entry{}, false, nil). A stored record of the
// wrong width surfaces the codec error: that is data corruption, never
// silently coerced into a partial entry.
func (s *Store) UnihanEntry(cp uint32) (unihan.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return unihan.Entry{}, false, fmt.Errorf("dict: unihan %#x: %w", cp, ErrClosed)
	}

	raw, err := s.db.Get(unihan.Key(cp), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return unihan.Entry{}, false, nil
	}
	if err != nil {
		return unihan.Entry{}, false, fmt.Errorf("dict: unihan %#x: %w", cp, err)
	}

	entry, err := unihan.Decode(raw)
	if err != nil {
		return unihan.Entry{}, false, fmt.Errorf("dict: unihan %#x: %w", cp, err)
	}
	return entry, true, nil
}

// VisitPrefix walks every entry whose key starts with prefix, in key order,
// calling visit for each. Returning an error from visit stops the walk and
// surfaces that error. An empty prefix walks the whole store.
func (s *Store) VisitPrefix(prefix string, visit func(word, definition string) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("dict: visit: %w", ErrClosed)
	}

	var rng *util.Range
	if prefix != "" {
		rng = util.BytesPrefix([]byte(prefix))
	}

	iter := s.db.NewIterator(rng, nil)
	defer iter.Release()

	for iter.Next() {
		if err := visit(string(iter.Key()), string(iter.Value())); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("dict: visit: %w", err)
	}
	return nil
}

// Visit walks every entry in the store. See VisitPrefix.
func (s *Store) Visit(visit func(word, definition string) error) error {
	return s.VisitPrefix("", visit)
}
