// Package metastore holds the MDS's in-memory Path -> FileMeta mapping
// and its single-file JSON snapshot.
//
// Save serializes the whole mapping and is best-effort: the journal,
// not the snapshot, is the durability authority. A snapshot that is
// lost or torn is reconstructed in full by replaying the journal (see
// pkg/mds), so this package provides no partial-write protection of
// its own.
package metastore
