/*
Package journal implements the MDS's append-only write-ahead log: a
JSONL file of (txid, op, data) records where op is one of BEGIN, APPLY,
COMMIT, or ABORT.

The journal is the sole source of truth for metadata durability — the
metadata snapshot (pkg/metastore) is a best-effort cache rebuilt from
it. A transaction is a run of records sharing one txid: BEGIN, one or
more APPLY, then exactly one COMMIT or ABORT. Only transactions that
reach COMMIT without an intervening ABORT are durable; anything else —
including a transaction cut off by a crash before its COMMIT — is
dropped by recovery (see pkg/mds). A partly written record line is not
skipped: ForEachRecord reports it as corrupt.

	┌─────────────── JOURNAL (mds_journal.log) ────────────────┐
	│ {"txid":1,"op":"BEGIN","data":{"op":"put","path":"/a"}}   │
	│ {"txid":1,"op":"APPLY","data":{"action":"put", ... }}     │
	│ {"txid":1,"op":"COMMIT","data":{}}                        │
	│ {"txid":2,"op":"BEGIN","data":{"op":"delete","path":"/a"}}│
	│ {"txid":2,"op":"APPLY","data":{"action":"delete", ...}}   │
	│                                    (no terminator: dropped)│
	└────────────────────────────────────────────────────────┘

Every Append call flushes and fsyncs before returning, so a record
observed on disk survives a crash immediately after. Txids are assigned
by scanning the existing file on construction and continuing from
max(observed)+1, so they remain strictly increasing across restarts.
*/
package journal
