package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hupe1980/assetmesh/logging"
)

// ServerOptions configure the MCP adapter.
type ServerOptions struct {
	Logger logging.Logger
}

// Server exposes a Registry over the Model Context Protocol on stdio. Every
// registered tool is mirrored as an MCP tool; calls flow through the
// registry's uniform Result envelope.
type Server struct {
	mcpServer *server.MCPServer
	registry  *Registry
	logger    logging.Logger
}

// NewServer wraps a registry in an MCP server. Tools registered after
// construction are not picked up.
func NewServer(registry *Registry, optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	info := registry.Initialize()
	s := server.NewMCPServer(
		info.ServerInfo.Name,
		info.ServerInfo.Version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		registry:  registry,
		logger:    opts.Logger,
	}
	srv.registerTools()
	return srv
}

// registerTools mirrors every registry tool into the MCP server.
func (s *Server) registerTools() {
	for _, desc := range s.registry.ListTools() {
		opts := []mcp.ToolOption{mcp.WithDescription(desc.Description)}
		opts = append(opts, schemaToolOptions(desc.Parameters)...)

		name := desc.Name
		s.mcpServer.AddTool(mcp.NewTool(name, opts...), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.handleCall(ctx, name, request)
		})
	}
}

func (s *Server) handleCall(ctx context.Context, name string, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.registry.CallTool(ctx, name, request.GetArguments())
	if !result.Success {
		return mcp.NewToolResultError(result.Error), nil
	}

	payload, err := json.Marshal(result.Result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// Run serves MCP on stdio until the client disconnects.
func (s *Server) Run() error {
	s.logger.Info("mcp server listening on stdio", "tools", len(s.registry.ListTools()))
	return server.ServeStdio(s.mcpServer)
}

// schemaToolOptions translates the registry's JSON-schema maps into mcp-go
// tool options. Only the property shapes the registry produces are handled.
func schemaToolOptions(schema map[string]any) []mcp.ToolOption {
	var opts []mcp.ToolOption

	properties, _ := schema["properties"].(map[string]any)
	required := requiredSet(schema["required"])

	for name, raw := range properties {
		prop, _ := raw.(map[string]any)
		description, _ := prop["description"].(string)

		var propOpts []mcp.PropertyOption
		if description != "" {
			propOpts = append(propOpts, mcp.Description(description))
		}
		if required[name] {
			propOpts = append(propOpts, mcp.Required())
		}
		if enum, ok := prop["enum"].([]string); ok {
			propOpts = append(propOpts, mcp.Enum(enum...))
		}

		switch prop["type"] {
		case "number":
			opts = append(opts, mcp.WithNumber(name, propOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(name, propOpts...))
		case "array":
			opts = append(opts, mcp.WithArray(name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(name, propOpts...))
		}
	}
	return opts
}

func requiredSet(raw any) map[string]bool {
	out := make(map[string]bool)
	switch v := raw.(type) {
	case []string:
		for _, name := range v {
			out[name] = true
		}
	case []any:
		for _, item := range v {
			if name, ok := item.(string); ok {
				out[name] = true
			}
		}
	}
	return out
}
