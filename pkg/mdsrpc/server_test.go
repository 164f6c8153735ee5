package mdsrpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/aegisfs/aegisfs/pkg/mds"
	"github.com/aegisfs/aegisfs/pkg/rpc"
	"github.com/aegisfs/aegisfs/pkg/types"
	"github.com/stretchr/testify/assert"
)

func startTestServer(t *testing.T) (addr string, closer func()) {
	t.Helper()
	dir := t.TempDir()
	state, err := mds.Open(filepath.Join(dir, "journal.jsonl"), filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("mds.Open failed: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(state)
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

func TestMDSPing(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	req, _ := rpc.NewRequest("ping", nil)
	resp := call(t, addr, req)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "mds_alive", resp["msg"])
}

func TestPutGetDeleteListMeta(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	putReq, _ := rpc.NewRequest("put_meta", map[string]any{
		"path": "/a.txt",
		"value": types.FileMeta{
			Blocks: []string{"b1", "b2"},
			Size:   42,
			Mime:   "text/plain",
		},
	})
	putResp := call(t, addr, putReq)
	assert.Equal(t, true, putResp["ok"])

	getReq, _ := rpc.NewRequest("get_meta", map[string]string{"path": "/a.txt"})
	getResp := call(t, addr, getReq)
	assert.Equal(t, true, getResp["ok"])
	value, ok := getResp["value"].(map[string]any)
	if !ok {
		t.Fatalf("expected value to be an object, got %#v", getResp["value"])
	}
	assert.Equal(t, float64(42), value["size"])

	listReq, _ := rpc.NewRequest("list_meta", nil)
	listResp := call(t, addr, listReq)
	assert.Equal(t, true, listResp["ok"])
	assert.Equal(t, []any{"/a.txt"}, listResp["paths"])

	delReq, _ := rpc.NewRequest("delete_meta", map[string]string{"path": "/a.txt"})
	delResp := call(t, addr, delReq)
	assert.Equal(t, true, delResp["ok"])

	getAgain := call(t, addr, getReq)
	assert.Equal(t, true, getAgain["ok"])
	assert.Nil(t, getAgain["value"])
}

func TestGetMetaMissingPathIsOKWithNilValue(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	getReq, _ := rpc.NewRequest("get_meta", map[string]string{"path": "/missing"})
	resp := call(t, addr, getReq)
	assert.Equal(t, true, resp["ok"])
	assert.Nil(t, resp["value"])
}

func TestMDSUnknownOp(t *testing.T) {
	addr, closer := startTestServer(t)
	defer closer()

	req, _ := rpc.NewRequest("levitate", nil)
	resp := call(t, addr, req)
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "unknown_op:levitate", resp["error"])
}
