package rpcserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/completion"
	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcporch"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callToolParams struct {
	Server    string         `json:"server"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

type readResourceParams struct {
	Server string `json:"server"`
	URI    string `json:"uri"`
}

// Server speaks line-delimited JSON-RPC 2.0 over a reader/writer pair,
// dispatching requests to a completion engine and an MCP orchestrator.
// Either backend may be nil; methods that need a missing backend report
// an internal error instead of panicking.
type Server struct {
	engine *completion.Engine
	orch   *mcporch.Orchestrator
	logger *slog.Logger

	writeMu sync.Mutex
}

// NewServer builds a Server. A nil logger falls back to slog.Default().
func NewServer(engine *completion.Engine, orch *mcporch.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, orch: orch, logger: logger}
}

// Serve reads one JSON-RPC request per line from r, writing one response
// per line to w. It returns when the client sends shutdown, the input
// stream ends, or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.reply(w, response{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
			continue
		}
		if req.JSONRPC != "2.0" {
			s.reply(w, response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
			continue
		}

		s.logger.Debug("rpc request", "method", req.Method)
		resp, stop := s.dispatch(ctx, &req)
		s.reply(w, resp)
		if stop {
			return nil
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *request) (response, bool) {
	resp := response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "get_completion":
		result, err := s.getCompletion(ctx, req.Params)
		return s.finish(resp, result, err), false

	case "list_tools":
		if s.orch == nil {
			resp.Result = map[string][]mcporch.Tool{}
			return resp, false
		}
		tools, degraded := s.orch.ListAllTools(ctx)
		s.logDegraded("list_tools", degraded)
		resp.Result = tools
		return resp, false

	case "list_resources":
		if s.orch == nil {
			resp.Result = map[string][]mcporch.Resource{}
			return resp, false
		}
		resources, degraded := s.orch.ListAllResources(ctx)
		s.logDegraded("list_resources", degraded)
		resp.Result = resources
		return resp, false

	case "call_tool":
		result, err := s.callTool(ctx, req.Params)
		return s.finish(resp, result, err), false

	case "read_resource":
		result, err := s.readResource(ctx, req.Params)
		return s.finish(resp, result, err), false

	case "status":
		resp.Result = s.statusReport()
		return resp, false

	case "shutdown":
		if s.orch != nil {
			s.orch.Shutdown()
		}
		resp.Result = map[string]string{"status": "shutting down"}
		return resp, true

	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp, false
	}
}

func (s *Server) finish(resp response, result any, err error) response {
	if err != nil {
		resp.Error = &rpcError{Code: codeInternalError, Message: err.Error()}
		return resp
	}
	resp.Result = result
	return resp
}

func (s *Server) getCompletion(ctx context.Context, params json.RawMessage) (*completion.Response, error) {
	if s.engine == nil {
		return nil, errors.New("completion engine unavailable")
	}
	var req completion.Request
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("invalid completion params: %w", err)
	}
	return s.engine.GetCompletions(ctx, &req)
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (*mcporch.ToolResult, error) {
	if s.orch == nil {
		return nil, errors.New("orchestrator unavailable")
	}
	var p callToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid call_tool params: %w", err)
	}
	return s.orch.CallTool(ctx, p.Server, p.Tool, p.Arguments)
}

func (s *Server) readResource(ctx context.Context, params json.RawMessage) (*mcporch.ResourceContent, error) {
	if s.orch == nil {
		return nil, errors.New("orchestrator unavailable")
	}
	var p readResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid read_resource params: %w", err)
	}
	return s.orch.ReadResource(ctx, p.Server, p.URI)
}

func (s *Server) statusReport() map[string]any {
	servers := map[string]any{}
	if s.orch != nil {
		for _, st := range s.orch.Status() {
			entry := map[string]any{"status": string(st.Status)}
			if st.Reason != "" {
				entry["reason"] = st.Reason
			}
			servers[st.Name] = entry
		}
	}
	engineState := "ready"
	if s.engine == nil {
		engineState = "unavailable"
	}
	return map[string]any{
		"completion_engine": engineState,
		"mcp_servers":       servers,
	}
}

func (s *Server) logDegraded(method string, degraded []string) {
	if len(degraded) > 0 {
		s.logger.Warn("some servers did not respond", "method", method, "servers", degraded)
	}
}

func (s *Server) reply(w io.Writer, resp response) {
	// "id" must be present even for requests that never carried one.
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode response", "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := w.Write(append(payload, '\n')); err != nil {
		s.logger.Error("write response", "error", err)
	}
}
