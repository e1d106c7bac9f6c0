package main

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/illgrenoble/webx-session-manager/internal/ipc"
)

// dialTimeout bounds how long a client waits for the supervisor to
// accept the connection before giving up.
const dialTimeout = 3 * time.Second

// client is a thin synchronous wrapper over one request/response
// round-trip against the supervisor's Unix domain socket. One
// connection per invocation — webx-sessionctl is a one-shot CLI, not a
// long-lived session, so there is no reason to keep the socket open
// across commands.
type client struct {
	socketPath string
}

func newClient(socketPath string) *client {
	return &client{socketPath: socketPath}
}

// call dials the socket, writes req as one JSON line, and reads back
// exactly one JSON line as the response.
func (c *client) call(req ipc.Request) (ipc.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return ipc.Response{}, fmt.Errorf("connecting to %s: %w", c.socketPath, err)
	}
	defer conn.Close() //nolint:errcheck // best-effort cleanup

	enc := ipc.NewEncoder()
	raw, err := enc.EncodeRequest(req)
	if err != nil {
		return ipc.Response{}, fmt.Errorf("encoding request: %w", err)
	}
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return ipc.Response{}, fmt.Errorf("writing request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return ipc.Response{}, fmt.Errorf("reading response: %w", err)
		}
		return ipc.Response{}, fmt.Errorf("connection closed before a response was received")
	}

	resp, err := enc.DecodeResponse(scanner.Bytes())
	if err != nil {
		return ipc.Response{}, fmt.Errorf("decoding response: %w", err)
	}
	return resp, nil
}
