package mds

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aegisfs/aegisfs/pkg/journal"
	"github.com/aegisfs/aegisfs/pkg/log"
	"github.com/aegisfs/aegisfs/pkg/metastore"
	"github.com/aegisfs/aegisfs/pkg/metrics"
	"github.com/aegisfs/aegisfs/pkg/types"
)

// State combines the journal and metadata store into the MDS's single
// durable source of truth, serializing every mutation behind one lock.
type State struct {
	mu      sync.Mutex
	journal *journal.Journal
	store   *metastore.Store
}

// Open builds the journal and metadata store rooted at journalPath and
// metadataPath, runs recovery, and persists the rebuilt snapshot before
// returning. This is the only valid way to obtain a State: recovery
// must run before any mutation is accepted.
func Open(journalPath, metadataPath string) (*State, error) {
	j, err := journal.Open(journalPath)
	if err != nil {
		return nil, fmt.Errorf("mds: failed to open journal: %w", err)
	}

	s := &State{
		journal: j,
		store:   metastore.New(metadataPath),
	}

	if err := s.recover(); err != nil {
		return nil, fmt.Errorf("mds: recovery failed: %w", err)
	}
	return s, nil
}

// recover rebuilds the metadata store from scratch by replaying every
// APPLY belonging to a committed, non-aborted transaction, in txid
// order, then persists the result. Transactions with no COMMIT —
// including one cut off by a crash after some of its APPLY records —
// are silently dropped. An ABORT makes a transaction ineligible even if
// a COMMIT for the same txid is also present. A record line that was
// only partly written is not skipped: it fails recovery as corrupt.
func (s *State) recover() error {
	start := time.Now()

	applies := make(map[uint64][]types.Action)
	committed := make(map[uint64]bool)
	aborted := make(map[uint64]bool)

	err := s.journal.ForEachRecord(func(rec types.JournalRecord) error {
		switch rec.Op {
		case types.OpApply:
			var action types.Action
			if err := json.Unmarshal(rec.Data, &action); err != nil {
				return fmt.Errorf("malformed APPLY record for txid %d: %w", rec.TxID, err)
			}
			applies[rec.TxID] = append(applies[rec.TxID], action)
		case types.OpCommit:
			committed[rec.TxID] = true
		case types.OpAbort:
			aborted[rec.TxID] = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.store.Clear()

	var txids []uint64
	for txid := range committed {
		if !aborted[txid] {
			txids = append(txids, txid)
		}
	}
	sort.Slice(txids, func(i, j int) bool { return txids[i] < txids[j] })

	for _, txid := range txids {
		for _, action := range applies[txid] {
			switch action.Action {
			case types.ActionPut:
				if action.Value != nil {
					s.store.PutRaw(action.Key, *action.Value)
				}
			case types.ActionDelete:
				s.store.Delete(action.Key)
			}
		}
	}

	if err := s.store.Save(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	metrics.RecoveryDuration(elapsed.Seconds())
	log.WithComponent("mds").Info().
		Int("transactions_replayed", len(txids)).
		Dur("elapsed", elapsed).
		Msg("recovery complete")
	return nil
}

// PutMetadata journals and applies a create-or-update of path's
// metadata. The APPLY record lands on disk before the in-memory store
// or the snapshot are touched; COMMIT is the last thing written, so a
// crash before it leaves the mutation invisible after recovery.
func (s *State) PutMetadata(path string, value types.FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txid, err := s.journal.Begin("put", path)
	if err != nil {
		return err
	}
	logger := log.WithTxID(txid)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("mds: failed to encode metadata for %s: %w", path, err)
	}
	rawMsg := json.RawMessage(raw)

	if err := s.journal.Apply(txid, types.Action{Action: types.ActionPut, Key: path, Value: &rawMsg}); err != nil {
		return err
	}
	logger.Debug().Str("path", path).Msg("applied put")

	s.store.PutRaw(path, rawMsg)
	if err := s.store.Save(); err != nil {
		return err
	}

	if err := s.journal.Commit(txid); err != nil {
		return err
	}
	logger.Debug().Str("path", path).Msg("committed")
	return nil
}

// DeleteMetadata journals and applies the removal of path's metadata.
func (s *State) DeleteMetadata(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txid, err := s.journal.Begin("delete", path)
	if err != nil {
		return err
	}
	logger := log.WithTxID(txid)

	if err := s.journal.Apply(txid, types.Action{Action: types.ActionDelete, Key: path}); err != nil {
		return err
	}
	logger.Debug().Str("path", path).Msg("applied delete")

	s.store.Delete(path)
	if err := s.store.Save(); err != nil {
		return err
	}

	if err := s.journal.Commit(txid); err != nil {
		return err
	}
	logger.Debug().Str("path", path).Msg("committed")
	return nil
}

// GetMetadata returns the metadata for path, or false if absent.
func (s *State) GetMetadata(path string) (types.FileMeta, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.store.Get(path)
	if !ok {
		return types.FileMeta{}, false, nil
	}

	var meta types.FileMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return types.FileMeta{}, false, fmt.Errorf("mds: failed to decode metadata for %s: %w", path, err)
	}
	return meta, true, nil
}

// ListMetadata returns every currently known path, sorted.
func (s *State) ListMetadata() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Keys()
}
