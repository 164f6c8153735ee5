package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aegisfs/aegisfs/pkg/metrics"
	"github.com/aegisfs/aegisfs/pkg/types"
)

// Journal is an append-only JSONL write-ahead log of transactional
// records. It is safe for concurrent Append calls, though the MDS
// serializes mutations with its own lock (see pkg/mds) since appending
// is only one step of a larger critical section.
type Journal struct {
	path string

	mu       sync.Mutex
	nextTxID uint64
}

// Open scans path (if it exists) to recover the next unused txid, then
// returns a Journal ready to append to. An empty or missing file starts
// numbering at 1.
func Open(path string) (*Journal, error) {
	j := &Journal{path: path, nextTxID: 1}

	var maxSeen uint64
	err := j.forEachRecord(func(rec types.JournalRecord) error {
		if rec.TxID > maxSeen {
			maxSeen = rec.TxID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if maxSeen > 0 {
		j.nextTxID = maxSeen + 1
	}
	return j, nil
}

// NewTxID returns the next unused txid and reserves it. Txids increase
// strictly within a process and across restarts.
func (j *Journal) NewTxID() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	txid := j.nextTxID
	j.nextTxID++
	return txid
}

// Append durably writes rec to the journal: the line is flushed and
// fsynced before this call returns, so any record observed by a
// subsequent read has already survived a crash.
func (j *Journal) Append(rec types.JournalRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: failed to encode record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(j.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("journal: failed to open %s: %w", j.path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("journal: failed to append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("journal: failed to fsync %s: %w", j.path, err)
	}

	metrics.JournalAppend(string(rec.Op))
	switch rec.Op {
	case types.OpCommit:
		metrics.JournalCommit()
	case types.OpAbort:
		metrics.JournalAbort()
	}
	return nil
}

// Begin starts a new transaction for a high-level metadata op and
// journals its BEGIN record. Returns the txid the caller must pass to
// Apply/Commit/Abort.
func (j *Journal) Begin(op string, path string) (uint64, error) {
	txid := j.NewTxID()
	data, err := json.Marshal(types.BeginData{Op: op, Path: path})
	if err != nil {
		return 0, fmt.Errorf("journal: failed to encode BEGIN payload: %w", err)
	}
	rec := types.JournalRecord{TxID: txid, Op: types.OpBegin, Data: data}
	if err := j.Append(rec); err != nil {
		return 0, err
	}
	return txid, nil
}

// Apply logs a state change associated with an existing transaction.
// It does not mutate the metadata store itself; the caller is
// responsible for applying the same change in memory.
func (j *Journal) Apply(txid uint64, action types.Action) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("journal: failed to encode APPLY payload: %w", err)
	}
	return j.Append(types.JournalRecord{TxID: txid, Op: types.OpApply, Data: data})
}

// Commit marks txid as durably committed.
func (j *Journal) Commit(txid uint64) error {
	return j.Append(types.JournalRecord{TxID: txid, Op: types.OpCommit})
}

// Abort marks txid as aborted; it will never take effect even if a
// COMMIT for the same txid also appears.
func (j *Journal) Abort(txid uint64) error {
	return j.Append(types.JournalRecord{TxID: txid, Op: types.OpAbort})
}

// ForEachRecord yields each record in file order, skipping blank
// lines. A malformed line is a fatal corruption signal and aborts
// iteration with an error.
func (j *Journal) ForEachRecord(fn func(types.JournalRecord) error) error {
	return j.forEachRecord(fn)
}

func (j *Journal) forEachRecord(fn func(types.JournalRecord) error) error {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("journal: failed to open %s: %w", j.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec types.JournalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("journal: corrupt record in %s: %w", j.path, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("journal: failed to read %s: %w", j.path, err)
	}
	return nil
}
