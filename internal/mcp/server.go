package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agentcore/agentcore/internal/agent"
)

// ToolSource is the local registry an MCP server dispatches tools/list and
// tools/call against. agent.ToolRegistry satisfies this.
type ToolSource interface {
	Get(name string) (agent.Tool, bool)
	AsLLMTools() []agent.Tool
	Execute(ctx context.Context, name string, params json.RawMessage) (*agent.ToolResult, error)
}

// Server is the inverse of Client/transport: it accepts incoming JSON-RPC
// requests over a transport and answers them from a local ToolSource,
// rather than issuing requests to a remote MCP server.
type Server struct {
	info    ServerInfo
	tools   ToolSource
	logger  *slog.Logger
	initted bool
}

// NewServer builds an MCP server fronting tools.
func NewServer(info ServerInfo, tools ToolSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{info: info, tools: tools, logger: logger.With("mcp_server_role", "host")}
}

// HandleRequest dispatches a single JSON-RPC request and returns the
// response to write back. req.ID is echoed verbatim (including its
// original JSON type) per the JSON-RPC 2.0 spec.
func (s *Server) HandleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleListTools(req)
	case "tools/call":
		return s.handleCallTool(ctx, req)
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// HandleNotification processes an incoming notification. Only
// notifications/initialized is meaningful; everything else is accepted
// silently, matching the client's handshake on the other end of this
// connection.
func (s *Server) HandleNotification(notif *JSONRPCNotification) {
	switch notif.Method {
	case "notifications/initialized":
		s.initted = true
	default:
		s.logger.Debug("ignoring unrecognized notification", "method", notif.Method)
	}
}

func (s *Server) handleInitialize(req *JSONRPCRequest) *JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: Capabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: s.info,
	}
	return resultResponse(req.ID, result)
}

func (s *Server) handleListTools(req *JSONRPCRequest) *JSONRPCResponse {
	llmTools := s.tools.AsLLMTools()
	mcpTools := make([]*MCPTool, 0, len(llmTools))
	for _, t := range llmTools {
		mcpTools = append(mcpTools, &MCPTool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		})
	}
	return resultResponse(req.ID, ListToolsResult{Tools: mcpTools})
}

func (s *Server) handleCallTool(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if _, ok := s.tools.Get(params.Name); !ok {
		return errorResponse(req.ID, ErrCodeToolNotFound, fmt.Sprintf("tool not found: %s", params.Name))
	}
	result, err := s.tools.Execute(ctx, params.Name, params.Arguments)
	if err != nil {
		return errorResponse(req.ID, ErrCodeInternalError, err.Error())
	}
	callResult := ToolCallResult{
		Content: []ToolResultContent{{Type: "text", Text: result.Content}},
		IsError: result.IsError,
	}
	return resultResponse(req.ID, callResult)
}

func resultResponse(id any, result any) *JSONRPCResponse {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, ErrCodeInternalError, fmt.Sprintf("marshal result: %v", err))
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: data}
}

func errorResponse(id any, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}
