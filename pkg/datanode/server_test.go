package datanode

import (
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/aegisfs/aegisfs/pkg/blockstore"
	"github.com/aegisfs/aegisfs/pkg/rpc"
	"github.com/stretchr/testify/assert"
)

func startTestServer(t *testing.T) (addr string, closer func()) {
	t.Helper()
	store, err := blockstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("blockstore.New failed: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(store)
	go func() { _ = srv.Serve(ctx, ln) }()

	return ln.Addr().String(), func() {
		cancel()
		_ = ln.Close()
	}
}

func call(t *testing.T, addr string, req rpc.Request) map[string]any {
	t.Helper()
	nc, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer nc.Close()

	conn := rpc.NewConn(nc)
	if err := conn.Send(req); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	var resp map[string]any
	if err := conn.Recv(&resp); err != nil {
		t.Fatalf("recv failed: %v", err)
	}
	return resp
}

func TestPing(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	req, _ := rpc.NewRequest("ping", nil)
	resp := call(t, addr, req)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "datanode_alive", resp["msg"])
}

func TestStoreReadDeleteBlock(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	data := []byte("binary-safe\x00\x01\x02payload")
	storeReq, _ := rpc.NewRequest("store_block", map[string]string{
		"block_id": "b_deadbeef",
		"data_b64": base64.StdEncoding.EncodeToString(data),
	})
	storeResp := call(t, addr, storeReq)
	assert.Equal(t, true, storeResp["ok"])

	readReq, _ := rpc.NewRequest("read_block", map[string]string{"block_id": "b_deadbeef"})
	readResp := call(t, addr, readReq)
	assert.Equal(t, true, readResp["ok"])
	decoded, err := base64.StdEncoding.DecodeString(readResp["data_b64"].(string))
	if err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.Equal(t, data, decoded)

	delReq, _ := rpc.NewRequest("delete_block", map[string]string{"block_id": "b_deadbeef"})
	delResp := call(t, addr, delReq)
	assert.Equal(t, true, delResp["ok"])

	readAgain := call(t, addr, readReq)
	assert.Equal(t, false, readAgain["ok"])
	assert.Equal(t, "not_found", readAgain["error"])
}

func TestReadMissingBlockNotFound(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	readReq, _ := rpc.NewRequest("read_block", map[string]string{"block_id": "b_missing0"})
	resp := call(t, addr, readReq)
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "not_found", resp["error"])
}

func TestDeleteBlockIsIdempotent(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	delReq, _ := rpc.NewRequest("delete_block", map[string]string{"block_id": "b_missing0"})
	resp := call(t, addr, delReq)
	assert.Equal(t, true, resp["ok"])
}

func TestUnknownOp(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	req, _ := rpc.NewRequest("levitate", nil)
	resp := call(t, addr, req)
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "unknown_op:levitate", resp["error"])
}
