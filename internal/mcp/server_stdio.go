package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
)

// ServeStdio runs server against newline-delimited JSON-RPC messages read
// from in and written to out, blocking until ctx is cancelled or in is
// exhausted. Mirrors StdioTransport's wire format from the client side.
func ServeStdio(ctx context.Context, server *Server, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	writer := bufio.NewWriter(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp, handled := dispatchLine(ctx, server, line)
		if !handled {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			slog.Default().Error("marshal mcp response", "error", err)
			continue
		}
		if _, err := writer.Write(append(data, '\n')); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// dispatchLine distinguishes a request (has an id) from a notification (no
// id) and routes accordingly. Requests produce a response to write back;
// notifications produce none.
func dispatchLine(ctx context.Context, server *Server, line []byte) (*JSONRPCResponse, bool) {
	var probe struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return errorResponse(nil, ErrCodeParseError, "invalid JSON"), true
	}

	if len(probe.ID) == 0 || string(probe.ID) == "null" {
		var notif JSONRPCNotification
		if err := json.Unmarshal(line, &notif); err == nil {
			server.HandleNotification(&notif)
		}
		return nil, false
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, ErrCodeParseError, "invalid JSON"), true
	}
	return server.HandleRequest(ctx, &req), true
}
