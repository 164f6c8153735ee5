package mdsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/aegisfs/aegisfs/pkg/log"
	"github.com/aegisfs/aegisfs/pkg/mds"
	"github.com/aegisfs/aegisfs/pkg/metrics"
	"github.com/aegisfs/aegisfs/pkg/rpc"
	"github.com/aegisfs/aegisfs/pkg/types"
)

// Server wraps an mds.State with the MDS RPC protocol.
type Server struct {
	state *mds.State
}

// NewServer returns a Server backed by state.
func NewServer(state *mds.State) *Server {
	return &Server{state: state}
}

// Serve accepts connections on ln until ctx is canceled or Accept
// fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := log.WithComponent("mds-rpc")
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
			return fmt.Errorf("mdsrpc: accept failed: %w", err)
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
			log.WithComponent("mds-rpc").Debug().Err(err).Msg("failed to read request")
		}
		return
	}

	resp := s.dispatch(req)
	if err := conn.Send(resp); err != nil {
		log.WithComponent("mds-rpc").Debug().Err(err).Msg("failed to write response")
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

type putMetaArgs struct {
	Path  string         `json:"path"`
	Value types.FileMeta `json:"value"`
}

type putMetaResponse struct {
	OK bool `json:"ok"`
}

type getMetaArgs struct {
	Path string `json:"path"`
}

type getMetaResponse struct {
	OK    bool            `json:"ok"`
	Value *types.FileMeta `json:"value"`
}

type deleteMetaArgs struct {
	Path string `json:"path"`
}

type deleteMetaResponse struct {
	OK bool `json:"ok"`
}

type listMetaResponse struct {
	OK    bool     `json:"ok"`
	Paths []string `json:"paths"`
}

func (s *Server) dispatch(req rpc.Request) any {
	switch req.Op {
	case "ping":
		metrics.RPCRequest("mds", "ping", true)
		return pingResponse{OK: true, Msg: "mds_alive"}

	case "put_meta":
		var args putMetaArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return s.badArgs("put_meta", err)
		}
		if err := s.state.PutMetadata(args.Path, args.Value); err != nil {
			log.WithPath(args.Path).Error().Err(err).Msg("put_meta failed")
			metrics.RPCRequest("mds", "put_meta", false)
			return errorResponse{OK: false, Error: err.Error()}
		}
		metrics.RPCRequest("mds", "put_meta", true)
		return putMetaResponse{OK: true}

	case "get_meta":
		var args getMetaArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return s.badArgs("get_meta", err)
		}
		meta, ok, err := s.state.GetMetadata(args.Path)
		if err != nil {
			log.WithPath(args.Path).Error().Err(err).Msg("get_meta failed")
			metrics.RPCRequest("mds", "get_meta", false)
			return errorResponse{OK: false, Error: err.Error()}
		}
		metrics.RPCRequest("mds", "get_meta", true)
		if !ok {
			return getMetaResponse{OK: true, Value: nil}
		}
		return getMetaResponse{OK: true, Value: &meta}

	case "delete_meta":
		var args deleteMetaArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return s.badArgs("delete_meta", err)
		}
		if err := s.state.DeleteMetadata(args.Path); err != nil {
			log.WithPath(args.Path).Error().Err(err).Msg("delete_meta failed")
			metrics.RPCRequest("mds", "delete_meta", false)
			return errorResponse{OK: false, Error: err.Error()}
		}
		metrics.RPCRequest("mds", "delete_meta", true)
		return deleteMetaResponse{OK: true}

	case "list_meta":
		metrics.RPCRequest("mds", "list_meta", true)
		return listMetaResponse{OK: true, Paths: s.state.ListMetadata()}

	default:
		metrics.RPCRequest("mds", req.Op, false)
		return errorResponse{OK: false, Error: rpc.ErrUnknownOp(req.Op)}
	}
}

func (s *Server) badArgs(op string, err error) errorResponse {
	metrics.RPCRequest("mds", op, false)
	return errorResponse{OK: false, Error: fmt.Sprintf("bad_args: %v", err)}
}
