package client

import (
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aegisfs/aegisfs/pkg/log"
	"github.com/aegisfs/aegisfs/pkg/rpc"
	"github.com/aegisfs/aegisfs/pkg/types"
)

// DialTimeout bounds how long a single RPC call waits to establish its
// connection.
const DialTimeout = 5 * time.Second

// Client drives the MDS and a single DataNode to implement whole-file
// reads and writes on top of their block-level RPC protocols. It holds
// no open connections between calls.
type Client struct {
	mdsAddr      string
	dataNodeAddr string
}

// New returns a Client targeting the given MDS and DataNode addresses,
// each a host:port string.
func New(mdsAddr, dataNodeAddr string) *Client {
	return &Client{mdsAddr: mdsAddr, dataNodeAddr: dataNodeAddr}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type putMetaArgs struct {
	Path  string         `json:"path"`
	Value types.FileMeta `json:"value"`
}

type getMetaArgs struct {
	Path string `json:"path"`
}

type getMetaResponse struct {
	envelope
	Value *types.FileMeta `json:"value"`
}

type deleteMetaArgs struct {
	Path string `json:"path"`
}

type listMetaResponse struct {
	envelope
	Paths []string `json:"paths"`
}

type storeBlockArgs struct {
	BlockID string `json:"block_id"`
	DataB64 string `json:"data_b64"`
}

type readBlockArgs struct {
	BlockID string `json:"block_id"`
}

type readBlockResponse struct {
	envelope
	DataB64 string `json:"data_b64"`
}

type deleteBlockArgs struct {
	BlockID string `json:"block_id"`
}

// call dials addr fresh, sends one request, decodes one response into
// out, and closes the connection before returning.
func call(addr, op string, args any, out any) error {
	req, err := rpc.NewRequest(op, args)
	if err != nil {
		return fmt.Errorf("client: failed to build request %s: %w", op, err)
	}

	nc, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return fmt.Errorf("client: failed to dial %s: %w", addr, err)
	}
	conn := rpc.NewConn(nc)
	defer conn.Close()

	if err := conn.Send(req); err != nil {
		return fmt.Errorf("client: failed to send %s to %s: %w", op, addr, err)
	}
	if err := conn.Recv(out); err != nil {
		return fmt.Errorf("client: failed to receive %s response from %s: %w", op, addr, err)
	}
	return nil
}

// WriteBytes splits data into pkg/types.BlockSize chunks, stores each
// chunk with the DataNode under a freshly minted block id, and records
// the resulting block list, size, mime, and filename with the MDS.
// Existing metadata at path is replaced; the blocks it referenced are
// left on the DataNode and are not freed.
func (c *Client) WriteBytes(path string, data []byte, mime, filename string) error {
	logger := log.WithPath(path)

	blocks := make([]string, 0, (len(data)/types.BlockSize)+1)
	for offset := 0; offset < len(data); offset += types.BlockSize {
		end := offset + types.BlockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]

		blockID := uuid.NewString()
		var resp envelope
		err := call(c.dataNodeAddr, "store_block", storeBlockArgs{
			BlockID: blockID,
			DataB64: base64.StdEncoding.EncodeToString(chunk),
		}, &resp)
		if err != nil {
			return err
		}
		if !resp.OK {
			return fmt.Errorf("client: store_block failed for %s: %s", path, resp.Error)
		}
		blocks = append(blocks, blockID)
	}

	var resp envelope
	err := call(c.mdsAddr, "put_meta", putMetaArgs{
		Path: path,
		Value: types.FileMeta{
			Blocks:   blocks,
			Size:     int64(len(data)),
			Mime:     mime,
			Filename: filename,
		},
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("client: put_meta failed for %s: %s", path, resp.Error)
	}

	logger.Info().Int("blocks", len(blocks)).Int("bytes", len(data)).Msg("wrote file")
	return nil
}

// ErrNotFound is returned by ReadBytes and DeleteFile when path has no
// metadata entry.
var ErrNotFound = fmt.Errorf("client: file not found")

// ReadBytes fetches path's metadata, then reads and concatenates its
// blocks in order.
func (c *Client) ReadBytes(path string) ([]byte, error) {
	var metaResp getMetaResponse
	if err := call(c.mdsAddr, "get_meta", getMetaArgs{Path: path}, &metaResp); err != nil {
		return nil, err
	}
	if !metaResp.OK {
		return nil, fmt.Errorf("client: get_meta failed for %s: %s", path, metaResp.Error)
	}
	if metaResp.Value == nil {
		return nil, ErrNotFound
	}

	out := make([]byte, 0, metaResp.Value.Size)
	for _, blockID := range metaResp.Value.Blocks {
		var resp readBlockResponse
		if err := call(c.dataNodeAddr, "read_block", readBlockArgs{BlockID: blockID}, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("client: read_block %s failed for %s: %s", blockID, path, resp.Error)
		}
		chunk, err := base64.StdEncoding.DecodeString(resp.DataB64)
		if err != nil {
			return nil, fmt.Errorf("client: corrupt block %s for %s: %w", blockID, path, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// DeleteFile removes path's blocks from the DataNode followed by its
// metadata. Blocks are deleted first, so a failure part way leaves the
// metadata entry in place: the path stays listed, some of its blocks may
// already be gone, and the delete can be retried.
func (c *Client) DeleteFile(path string) error {
	var metaResp getMetaResponse
	if err := call(c.mdsAddr, "get_meta", getMetaArgs{Path: path}, &metaResp); err != nil {
		return err
	}
	if !metaResp.OK {
		return fmt.Errorf("client: get_meta failed for %s: %s", path, metaResp.Error)
	}
	if metaResp.Value == nil {
		return ErrNotFound
	}

	for _, blockID := range metaResp.Value.Blocks {
		var resp envelope
		if err := call(c.dataNodeAddr, "delete_block", deleteBlockArgs{BlockID: blockID}, &resp); err != nil {
			return err
		}
		if !resp.OK {
			return fmt.Errorf("client: delete_block %s failed for %s: %s", blockID, path, resp.Error)
		}
	}

	var delResp envelope
	if err := call(c.mdsAddr, "delete_meta", deleteMetaArgs{Path: path}, &delResp); err != nil {
		return err
	}
	if !delResp.OK {
		return fmt.Errorf("client: delete_meta failed for %s: %s", path, delResp.Error)
	}
	return nil
}

// ListFiles returns every path currently known to the MDS, sorted.
func (c *Client) ListFiles() ([]string, error) {
	var resp listMetaResponse
	if err := call(c.mdsAddr, "list_meta", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("client: list_meta failed: %s", resp.Error)
	}
	return resp.Paths, nil
}

// WriteText is WriteBytes for a UTF-8 string, with mime set to
// text/plain.
func (c *Client) WriteText(path, text, filename string) error {
	return c.WriteBytes(path, []byte(text), "text/plain", filename)
}

// ReadText is ReadBytes decoded as UTF-8; any invalid byte sequence is
// replaced with the Unicode replacement character rather than failing
// the read.
func (c *Client) ReadText(path string) (string, error) {
	data, err := c.ReadBytes(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		b.WriteRune(r)
		data = data[size:]
	}
	return b.String(), nil
}
