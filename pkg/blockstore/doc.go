/*
Package blockstore implements the DataNode's local, file-per-block
storage: one file per BlockId under a configured data directory, written
with a tmp-write + fsync + atomic-rename sequence so a concurrent reader
never observes a partially written block.

	┌──────────────────── BLOCK STORE ─────────────────────┐
	│  WriteBlock(id, data)                                  │
	│    write  data_dir/<id>.blk.tmp                        │
	│    flush + fsync                                       │
	│    rename  <id>.blk.tmp -> <id>.blk   (atomic replace)  │
	│                                                          │
	│  ReadBlock(id)    -> bytes, found                       │
	│  DeleteBlock(id)  -> idempotent remove                 │
	└──────────────────────────────────────────────────────┘

There are no checksums and no size limits beyond the OS; this package
only deals in bytes on disk. It is invoked exclusively by the DataNode
RPC server.
*/
package blockstore
