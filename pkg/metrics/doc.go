/*
Package metrics exposes AegisFS's Prometheus instruments, grounded on
the teacher's collector-style metrics package: package-level counters
registered once with the default registry and updated from the RPC
servers and the MDS state machine as requests are handled.

Mount Handler() on an HTTP listener (cmd/aegisfs does this on a side
address) to scrape:

  - aegisfs_journal_appends_total{op}
  - aegisfs_journal_commits_total / aegisfs_journal_aborts_total
  - aegisfs_rpc_requests_total{server,op,ok}
  - aegisfs_block_bytes_total{op}
  - aegisfs_recovery_duration_seconds
*/
package metrics
