package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
)

// Conn is a newline-delimited JSON connection: one Send call writes
// exactly one line, one Recv call reads exactly one line. Close closes
// the underlying net.Conn.
type Conn struct {
	nc     net.Conn
	reader *bufio.Reader
}

// NewConn wraps nc for line-delimited JSON framing.
func NewConn(nc net.Conn) *Conn {
	r := bufio.NewReaderSize(nc, 4096)
	return &Conn{nc: nc, reader: r}
}

// Send marshals v to JSON and writes it followed by a newline.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rpc: failed to encode message: %w", err)
	}
	data = append(data, '\n')
	if _, err := c.nc.Write(data); err != nil {
		return fmt.Errorf("rpc: failed to write message: %w", err)
	}
	return nil
}

// Recv reads one newline-terminated line and unmarshals it into v. An
// EOF encountered before any newline-terminated line is read is
// returned as io.EOF so callers can distinguish a clean disconnect from
// a message truncated mid-transmission.
func (c *Conn) Recv(v any) error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("rpc: failed to decode message: %w", err)
	}
	return nil
}

// RecvRaw reads one newline-terminated line without decoding it.
func (c *Conn) RecvRaw() (json.RawMessage, error) {
	return c.readLine()
}

func (c *Conn) readLine() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			// a non-empty line with no trailing newline is a message
			// truncated mid-transmission, not a clean disconnect.
			return nil, fmt.Errorf("rpc: connection closed mid-message: %w", io.ErrUnexpectedEOF)
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("rpc: failed to read message: %w", err)
	}
	return line[:len(line)-1], nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.nc.Close()
}
