/*
Package rpc implements the line-delimited JSON-RPC transport shared by
the MDS server, the DataNode server, and the client pipeline.

A connection is a bidirectional byte stream carrying one JSON object per
newline-terminated line. Every request has shape {op, args}; every
response has shape {ok, ...}. One request begets exactly one response,
after which either side closes the connection — there is no persistent
session, no pipelining, and no multiplexing.

Conn wraps a net.Conn with a buffered reader so partial reads are
accumulated until a full line is available; an EOF before a newline is
surfaced as a transport error rather than a truncated message.
*/
package rpc
