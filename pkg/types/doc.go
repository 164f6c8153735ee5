/*
Package types defines the data model shared by every AegisFS package:
metadata records, journal records, and the transactional actions the MDS
journals and replays.

# Core Types

  - FileMeta: a path's ordered block list, total size, and optional
    mime/filename.
  - JournalOp: the four record kinds a transaction can contain — BEGIN,
    APPLY, COMMIT, ABORT.
  - JournalRecord: one (txid, op, data) line of the on-disk journal.
  - Action: the "put" or "delete" payload an APPLY record carries.

These types are deliberately light: FileMeta and Action are plain structs
serialized with encoding/json, not a generated schema, matching the
single opaque JSON payload the wire protocol and the journal both use.
*/
package types
