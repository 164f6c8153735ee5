/*
Package datanode exposes a blockstore.Store over the line-delimited
JSON-RPC protocol (pkg/rpc).

The server is stateless beyond the block files on disk: it accepts TCP
connections in an unbounded loop and spawns one goroutine per
connection, each of which reads exactly one request, dispatches it
through a fixed op-to-handler table, writes exactly one response, and
closes.

Supported ops: ping, store_block, read_block, delete_block. Block bytes
travel base64-encoded inside store_block/read_block's JSON payload so
the line-delimited framing stays text-safe for arbitrary binary
content.
*/
package datanode
