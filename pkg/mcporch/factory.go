package mcporch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcpconfig"
)

const (
	clientName    = "nvim-mcp-client"
	clientVersion = "0.1.0"
)

// NewSDKSessionFactory returns the production SessionFactory, dialing MCP
// servers through the modelcontextprotocol go-sdk. Local servers run as child
// processes over stdio; remote servers speak Streamable HTTP, falling back to
// SSE. All backend-kind dispatch lives here; the orchestrator stays
// kind-agnostic.
func NewSDKSessionFactory(logger *slog.Logger) SessionFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, name string, cfg mcpconfig.ServerConfig) (Session, error) {
		switch c := cfg.(type) {
		case *mcpconfig.LocalServerConfig:
			logger.Debug("creating local MCP session", "server", name, "command", c.Command, "args", c.Args)
			return dialLocal(ctx, name, c)
		case *mcpconfig.RemoteServerConfig:
			logger.Debug("creating remote MCP session", "server", name, "url", c.URL)
			return dialRemote(ctx, name, c)
		default:
			return nil, fmt.Errorf("mcporch: server %q has unsupported config type %T", name, cfg)
		}
	}
}

func dialLocal(ctx context.Context, name string, cfg *mcpconfig.LocalServerConfig) (Session, error) {
	return connect(ctx, name, &mcp.CommandTransport{Command: localCommand(cfg)})
}

// localCommand builds the child process invocation for a local server. The
// configured environment is layered on top of the parent's, never replacing it.
func localCommand(cfg *mcpconfig.LocalServerConfig) *exec.Cmd {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	return cmd
}

func dialRemote(ctx context.Context, name string, cfg *mcpconfig.RemoteServerConfig) (Session, error) {
	httpClient := http.DefaultClient
	if len(cfg.Headers) > 0 {
		httpClient = &http.Client{Transport: &headerRoundTripper{
			next:    http.DefaultTransport,
			headers: cfg.Headers,
		}}
	}

	streamable := &mcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient}
	sse := &mcp.SSEClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient}

	if strings.HasSuffix(strings.TrimSpace(cfg.URL), "/sse") {
		return connect(ctx, name, sse)
	}
	session, streamErr := connect(ctx, name, streamable)
	if streamErr == nil {
		return session, nil
	}
	session, sseErr := connect(ctx, name, sse)
	if sseErr != nil {
		return nil, fmt.Errorf("mcporch: server %q: streamable error: %v; sse error: %w", name, streamErr, sseErr)
	}
	return session, nil
}

func connect(ctx context.Context, name string, transport mcp.Transport) (Session, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, &mcp.ClientOptions{})
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcporch: connect to server %q: %w", name, err)
	}
	return &sdkSession{session: session}, nil
}

// headerRoundTripper attaches the configured static headers to every outbound
// request without clobbering headers the transport sets itself.
type headerRoundTripper struct {
	next    http.RoundTripper
	headers map[string]string
}

func (t *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

// sdkSession adapts a go-sdk ClientSession to the Session interface, flattening
// the SDK's typed results into the plain structs the orchestrator exposes.
type sdkSession struct {
	session *mcp.ClientSession
}

func (s *sdkSession) ListTools(ctx context.Context) ([]Tool, error) {
	res, err := s.session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	tools := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tool := Tool{Name: t.Name, Description: t.Description}
		if t.InputSchema != nil {
			if raw, err := json.Marshal(t.InputSchema); err == nil {
				tool.InputSchema = raw
			}
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

func (s *sdkSession) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	params := &mcp.CallToolParams{Name: name}
	if args != nil {
		params.Arguments = args
	}
	res, err := s.session.CallTool(ctx, params)
	if err != nil {
		return nil, err
	}
	result := &ToolResult{IsError: res.IsError}
	for _, content := range res.Content {
		result.Content = append(result.Content, convertContent(content))
	}
	return result, nil
}

func convertContent(content mcp.Content) ToolResultContent {
	switch c := content.(type) {
	case *mcp.TextContent:
		return ToolResultContent{Type: "text", Text: c.Text}
	case *mcp.ImageContent:
		return ToolResultContent{Type: "image", Data: marshalOpaque(map[string]any{
			"data":     base64.StdEncoding.EncodeToString(c.Data),
			"mimeType": c.MIMEType,
		})}
	case *mcp.AudioContent:
		return ToolResultContent{Type: "audio", Data: marshalOpaque(map[string]any{
			"data":     base64.StdEncoding.EncodeToString(c.Data),
			"mimeType": c.MIMEType,
		})}
	case *mcp.ResourceLink:
		return ToolResultContent{Type: "resource", Data: marshalOpaque(map[string]any{
			"uri":  c.URI,
			"name": c.Name,
		})}
	case *mcp.EmbeddedResource:
		payload := map[string]any{}
		if c.Resource != nil {
			payload["uri"] = c.Resource.URI
			payload["mimeType"] = c.Resource.MIMEType
			payload["text"] = c.Resource.Text
		}
		return ToolResultContent{Type: "resource", Data: marshalOpaque(payload)}
	default:
		return ToolResultContent{Type: "text"}
	}
}

func marshalOpaque(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func (s *sdkSession) ListResources(ctx context.Context) ([]Resource, error) {
	res, err := s.session.ListResources(ctx, nil)
	if err != nil {
		return nil, err
	}
	resources := make([]Resource, 0, len(res.Resources))
	for _, r := range res.Resources {
		resources = append(resources, Resource{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return resources, nil
}

func (s *sdkSession) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	res, err := s.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, err
	}
	content := &ResourceContent{URI: uri}
	if len(res.Contents) > 0 {
		first := res.Contents[0]
		content.MIMEType = first.MIMEType
		content.Text = first.Text
		if len(first.Blob) > 0 {
			content.Blob = base64.StdEncoding.EncodeToString(first.Blob)
		}
	}
	return content, nil
}

func (s *sdkSession) Disconnect() error {
	return s.session.Close()
}
