/*
Package mds implements the Metadata Server's durable state: a journal
(pkg/journal) and metadata store (pkg/metastore) combined behind one
mutex, plus the crash recovery procedure that rebuilds the metadata
snapshot from committed transactions alone.

	┌───────────────────────── MDS STATE ─────────────────────────┐
	│                                                               │
	│   PutMetadata(path, meta)         DeleteMetadata(path)        │
	│        │                                 │                    │
	│        ▼                                 ▼                    │
	│   ┌─────────────────────────────────────────────┐            │
	│   │  mu.Lock()                                    │            │
	│   │    txid := journal.Begin(...)                 │            │
	│   │    journal.Apply(txid, action)                │            │
	│   │    store.Put/Delete(...)                      │            │
	│   │    store.Save()                               │            │
	│   │    journal.Commit(txid)                       │            │
	│   │  mu.Unlock()                                  │            │
	│   └─────────────────────────────────────────────┘            │
	│                                                               │
	│   On startup: recover() replays every committed,             │
	│   non-aborted transaction in txid order into a fresh         │
	│   in-memory store, then persists the rebuilt snapshot.        │
	└───────────────────────────────────────────────────────────────┘

The APPLY record is journaled before the in-memory mutation so the log
always describes at least as much as memory does; COMMIT follows the
snapshot save, so a crash between APPLY and COMMIT leaves an
uncommitted transaction that recovery discards on the next start.

A single sync.Mutex guards the whole state, including get/list reads:
mutations here are I/O-heavy (two fsyncs plus a snapshot rewrite), so a
finer-grained scheme buys little and a reader must never observe a
torn write between journal and snapshot.
*/
package mds
