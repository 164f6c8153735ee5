/*
Package client implements the file-level operations of spec §4.8 on top
of pkg/rpc: a caller writes or reads whole files, and Client handles
splitting them into pkg/types.BlockSize chunks, storing each block with
a DataNode, and recording the resulting block list with the MDS.

Every call opens a fresh TCP connection to the relevant server and
closes it before returning — there is no persistent connection pool or
retry logic. A single DataNode endpoint is assumed; sharding a file's
blocks across multiple DataNodes is out of scope.
*/
package client
