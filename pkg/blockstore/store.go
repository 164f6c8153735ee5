package blockstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a local, file-per-block store rooted at a data directory.
type Store struct {
	dataDir string

	// writeMu serializes WriteBlock, since every write of a given id
	// goes through the same .blk.tmp path.
	writeMu sync.Mutex
}

// New creates the data directory if needed and returns a Store rooted
// there.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("blockstore: failed to create data dir %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) blockPath(id string) string {
	return filepath.Join(s.dataDir, id+".blk")
}

func (s *Store) tmpPath(id string) string {
	return filepath.Join(s.dataDir, id+".blk.tmp")
}

// WriteBlock durably stores data under id, replacing any previous
// contents atomically: the write lands in a .blk.tmp sibling, is
// flushed and fsynced, then renamed over the final path. A reader
// racing this call observes either the previous contents or the new
// ones, never a partial file. Concurrent writes are serialized, so
// the last one to finish wins with its full contents.
func (s *Store) WriteBlock(id string, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tmp := s.tmpPath(id)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("blockstore: failed to create %s: %w", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("blockstore: failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("blockstore: failed to fsync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("blockstore: failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, s.blockPath(id)); err != nil {
		return fmt.Errorf("blockstore: failed to replace block %s: %w", id, err)
	}
	return nil
}

// ReadBlock returns the full contents of block id and true, or nil and
// false if no such block exists.
func (s *Store) ReadBlock(id string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.blockPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blockstore: failed to read block %s: %w", id, err)
	}
	return data, true, nil
}

// DeleteBlock removes block id. A missing block is not an error.
func (s *Store) DeleteBlock(id string) error {
	if err := os.Remove(s.blockPath(id)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("blockstore: failed to delete block %s: %w", id, err)
	}
	return nil
}
