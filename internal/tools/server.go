package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
)

// unknownToolName is registered but never listed. Calls to names outside the
// tool set are routed to it so they get a text result instead of a
// protocol error.
const unknownToolName = "_unknown_tool"

// NewMCPServer creates the MCP server with every star tool registered.
func NewMCPServer(t *StarTools, version string) *server.MCPServer {
	defs := t.Definitions()
	known := make(map[string]bool, len(defs))
	for _, def := range defs {
		known[def.Name] = true
	}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(func(_ context.Context, _ any, req *mcp.CallToolRequest) {
		if !known[req.Params.Name] {
			req.Params.Arguments = map[string]any{"name": req.Params.Name}
			req.Params.Name = unknownToolName
		}
	})

	s := server.NewMCPServer(
		"starmap",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithToolFilter(func(_ context.Context, tools []mcp.Tool) []mcp.Tool {
			listed := make([]mcp.Tool, 0, len(tools))
			for _, tool := range tools {
				if tool.Name != unknownToolName {
					listed = append(listed, tool)
				}
			}
			return listed
		}),
	)

	for _, def := range defs {
		s.AddTool(def, t.Handle)
	}
	s.AddTool(mcp.NewTool(unknownToolName), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return t.Call(ctx, cast.ToString(req.GetArguments()["name"]), nil), nil
	})
	return s
}
