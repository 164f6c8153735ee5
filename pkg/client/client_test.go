package client

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/aegisfs/aegisfs/pkg/blockstore"
	"github.com/aegisfs/aegisfs/pkg/datanode"
	"github.com/aegisfs/aegisfs/pkg/mds"
	"github.com/aegisfs/aegisfs/pkg/mdsrpc"
	"github.com/aegisfs/aegisfs/pkg/types"
	"github.com/stretchr/testify/assert"
)

func startCluster(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()

	store, err := blockstore.New(filepath.Join(dir, "blocks"))
	if err != nil {
		t.Fatalf("blockstore.New failed: %v", err)
	}
	dnLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	dnSrv := datanode.NewServer(store)
	go func() { _ = dnSrv.Serve(ctx, dnLn) }()

	state, err := mds.Open(filepath.Join(dir, "journal.jsonl"), filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("mds.Open failed: %v", err)
	}
	mdsLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	mdsSrv := mdsrpc.NewServer(state)
	go func() { _ = mdsSrv.Serve(ctx, mdsLn) }()

	return New(mdsLn.Addr().String(), dnLn.Addr().String())
}

func TestWriteReadSmallTextFile(t *testing.T) {
	c := startCluster(t)

	err := c.WriteText("/hello.txt", "hello, aegisfs", "hello.txt")
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	text, err := c.ReadText("/hello.txt")
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	assert.Equal(t, "hello, aegisfs", text)
}

func TestWriteReadMultiBlockFile(t *testing.T) {
	c := startCluster(t)

	data := make([]byte, types.BlockSize*3+17)
	for i := range data {
		data[i] = byte(i % 251)
	}

	if err := c.WriteBytes("/big.bin", data, "application/octet-stream", "big.bin"); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}

	got, err := c.ReadBytes("/big.bin")
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	assert.Equal(t, data, got)
}

func TestWriteEmptyFile(t *testing.T) {
	c := startCluster(t)

	if err := c.WriteBytes("/empty.bin", nil, "application/octet-stream", "empty.bin"); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}

	got, err := c.ReadBytes("/empty.bin")
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	assert.Equal(t, []byte{}, got)

	var metaResp getMetaResponse
	if err := call(c.mdsAddr, "get_meta", getMetaArgs{Path: "/empty.bin"}, &metaResp); err != nil {
		t.Fatalf("get_meta failed: %v", err)
	}
	if !assert.NotNil(t, metaResp.Value) {
		t.FailNow()
	}
	assert.Len(t, metaResp.Value.Blocks, 0)
	assert.Equal(t, int64(0), metaResp.Value.Size)
}

func TestReadMissingFileReturnsErrNotFound(t *testing.T) {
	c := startCluster(t)

	_, err := c.ReadBytes("/nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFileRemovesBlocksAndMetadata(t *testing.T) {
	c := startCluster(t)

	if err := c.WriteText("/to-delete.txt", "temporary", "to-delete.txt"); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	var metaResp getMetaResponse
	if err := call(c.mdsAddr, "get_meta", getMetaArgs{Path: "/to-delete.txt"}, &metaResp); err != nil {
		t.Fatalf("get_meta failed: %v", err)
	}
	if !assert.NotNil(t, metaResp.Value) {
		t.FailNow()
	}
	blockIDs := metaResp.Value.Blocks

	if err := c.DeleteFile("/to-delete.txt"); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}

	_, err := c.ReadBytes("/to-delete.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, blockID := range blockIDs {
		var resp readBlockResponse
		if err := call(c.dataNodeAddr, "read_block", readBlockArgs{BlockID: blockID}, &resp); err != nil {
			t.Fatalf("read_block failed: %v", err)
		}
		assert.False(t, resp.OK)
		assert.Equal(t, "not_found", resp.Error)
	}

	err = c.DeleteFile("/to-delete.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFilesReflectsWritesAndDeletes(t *testing.T) {
	c := startCluster(t)

	if err := c.WriteText("/a.txt", "a", "a.txt"); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if err := c.WriteText("/b.txt", "b", "b.txt"); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	paths, err := c.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	assert.Equal(t, []string{"/a.txt", "/b.txt"}, paths)

	if err := c.DeleteFile("/a.txt"); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}

	paths, err = c.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	assert.Equal(t, []string{"/b.txt"}, paths)
}
