package datanode

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/aegisfs/aegisfs/pkg/blockstore"
	"github.com/aegisfs/aegisfs/pkg/log"
	"github.com/aegisfs/aegisfs/pkg/metrics"
	"github.com/aegisfs/aegisfs/pkg/rpc"
)

// Server wraps a blockstore.Store with the DataNode RPC protocol.
type Server struct {
	store *blockstore.Store
}

// NewServer returns a Server backed by store.
func NewServer(store *blockstore.Store) *Server {
	return &Server{store: store}
}

// Serve accepts connections on ln until ctx is canceled or Accept
// fails. Each accepted connection is handled in its own goroutine; a
// single exchange is one request followed by one response.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := log.WithComponent("datanode")
	logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("datanode: accept failed: %w", err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()
	conn := rpc.NewConn(nc)

	var req rpc.Request
	if err := conn.Recv(&req); err != nil {
		if !errors.Is(err, io.EOF) {
			log.WithComponent("datanode").Debug().Err(err).Msg("failed to read request")
		}
		return
	}

	resp := s.dispatch(req)
	if err := conn.Send(resp); err != nil {
		log.WithComponent("datanode").Debug().Err(err).Msg("failed to write response")
	}
}

type pingResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type storeBlockArgs struct {
	BlockID string `json:"block_id"`
	DataB64 string `json:"data_b64"`
}

type storeBlockResponse struct {
	OK bool `json:"ok"`
}

type readBlockArgs struct {
	BlockID string `json:"block_id"`
}

type readBlockResponse struct {
	OK      bool   `json:"ok"`
	DataB64 string `json:"data_b64"`
}

type deleteBlockArgs struct {
	BlockID string `json:"block_id"`
}

type deleteBlockResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) dispatch(req rpc.Request) any {
	switch req.Op {
	case "ping":
		metrics.RPCRequest("datanode", "ping", true)
		return pingResponse{OK: true, Msg: "datanode_alive"}

	case "store_block":
		var args storeBlockArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return s.badArgs("store_block", err)
		}
		data, err := base64.StdEncoding.DecodeString(args.DataB64)
		if err != nil {
			return s.badArgs("store_block", err)
		}
		if err := s.store.WriteBlock(args.BlockID, data); err != nil {
			log.WithBlockID(args.BlockID).Error().Err(err).Msg("store_block failed")
			metrics.RPCRequest("datanode", "store_block", false)
			return errorResponse{OK: false, Error: err.Error()}
		}
		metrics.BlockBytes("store", len(data))
		metrics.RPCRequest("datanode", "store_block", true)
		return storeBlockResponse{OK: true}

	case "read_block":
		var args readBlockArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return s.badArgs("read_block", err)
		}
		data, found, err := s.store.ReadBlock(args.BlockID)
		if err != nil {
			log.WithBlockID(args.BlockID).Error().Err(err).Msg("read_block failed")
			metrics.RPCRequest("datanode", "read_block", false)
			return errorResponse{OK: false, Error: err.Error()}
		}
		if !found {
			metrics.RPCRequest("datanode", "read_block", false)
			return errorResponse{OK: false, Error: "not_found"}
		}
		metrics.BlockBytes("read", len(data))
		metrics.RPCRequest("datanode", "read_block", true)
		return readBlockResponse{OK: true, DataB64: base64.StdEncoding.EncodeToString(data)}

	case "delete_block":
		var args deleteBlockArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return s.badArgs("delete_block", err)
		}
		if err := s.store.DeleteBlock(args.BlockID); err != nil {
			log.WithBlockID(args.BlockID).Error().Err(err).Msg("delete_block failed")
			metrics.RPCRequest("datanode", "delete_block", false)
			return errorResponse{OK: false, Error: err.Error()}
		}
		metrics.RPCRequest("datanode", "delete_block", true)
		return deleteBlockResponse{OK: true}

	default:
		metrics.RPCRequest("datanode", req.Op, false)
		return errorResponse{OK: false, Error: rpc.ErrUnknownOp(req.Op)}
	}
}

func (s *Server) badArgs(op string, err error) errorResponse {
	metrics.RPCRequest("datanode", op, false)
	return errorResponse{OK: false, Error: fmt.Sprintf("bad_args: %v", err)}
}
