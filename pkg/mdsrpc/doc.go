/*
Package mdsrpc exposes an mds.State over the line-delimited JSON-RPC
protocol (pkg/rpc): ping, put_meta, get_meta, delete_meta, list_meta.

Structurally this mirrors pkg/datanode's server — an accept loop
spawning one goroutine per connection, each handling exactly one
request/response exchange — but every handler that mutates state
delegates to mds.State, which owns its own lock; this package adds no
locking of its own.
*/
package mdsrpc
