package metastore

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Store is an in-memory Path -> value mapping with a single JSON
// snapshot file. Values are kept as raw JSON so this package stays
// agnostic to FileMeta's shape, the way the original metadata store
// only ever dealt in JSON-serializable dicts.
type Store struct {
	path string
	meta map[string]json.RawMessage
}

// New returns a Store that will load from and save to path, starting
// empty until Load is called.
func New(path string) *Store {
	return &Store{
		path: path,
		meta: make(map[string]json.RawMessage),
	}
}

// Load replaces the in-memory mapping with the contents of the
// snapshot file. A missing file loads as empty; it is not an error.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.meta = make(map[string]json.RawMessage)
			return nil
		}
		return fmt.Errorf("metastore: failed to read snapshot %s: %w", s.path, err)
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("metastore: failed to parse snapshot %s: %w", s.path, err)
	}
	s.meta = meta
	return nil
}

// Save serializes the entire mapping to the snapshot file. It is
// best-effort: the journal is the durability authority, so a crash
// mid-write here is recovered from the journal on next startup, not
// from this file.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("metastore: failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0640); err != nil {
		return fmt.Errorf("metastore: failed to write snapshot %s: %w", s.path, err)
	}
	return nil
}

// Get returns the raw value for key and whether it was present.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	v, ok := s.meta[key]
	return v, ok
}

// Put sets key to value, marshaling it to JSON first.
func (s *Store) Put(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("metastore: failed to encode value for %s: %w", key, err)
	}
	s.meta[key] = raw
	return nil
}

// PutRaw sets key directly to an already-encoded JSON value.
func (s *Store) PutRaw(key string, value json.RawMessage) {
	s.meta[key] = value
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(key string) {
	delete(s.meta, key)
}

// Keys returns every currently stored key, sorted for deterministic
// listing.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.meta))
	for k := range s.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear empties the in-memory mapping without touching the snapshot
// file on disk; used by recovery, which rebuilds state from the
// journal rather than trusting a possibly stale snapshot.
func (s *Store) Clear() {
	s.meta = make(map[string]json.RawMessage)
}
